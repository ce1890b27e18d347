package simulator

import (
	"time"

	"go.uber.org/zap"
)

// RecoveryScheduler 延时恢复调度器
// 在指定延迟后执行一次动作，动作与触发请求的生命周期无关（fire-and-forget）：
// 失败只记录日志，不向原调用方传播，也不提供取消。
// 调度不做持久化：进程在延迟期间重启会丢失已排期的恢复，
// 受影响的设备将一直保持 OFFLINE。这是已知并接受的限制。
type RecoveryScheduler struct {
	logger *zap.Logger
}

// NewRecoveryScheduler 创建调度器
func NewRecoveryScheduler(logger *zap.Logger) *RecoveryScheduler {
	return &RecoveryScheduler{
		logger: logger,
	}
}

// After 在 delay 之后执行 fn
// name 用于日志标识。调用立即返回，不阻塞。
func (s *RecoveryScheduler) After(delay time.Duration, name string, fn func() error) {
	s.logger.Info("Scheduled deferred action",
		zap.String("name", name),
		zap.Duration("delay", delay),
	)

	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		<-timer.C

		if err := fn(); err != nil {
			s.logger.Error("Deferred action failed",
				zap.String("name", name),
				zap.Error(err),
			)
			return
		}
		s.logger.Info("Deferred action completed",
			zap.String("name", name),
		)
	}()
}
