package alerting

import (
	"context"
	"time"

	"go.uber.org/zap"

	"coldtrace-monitor/internal/models"
)

// AlertStore 报警存储接口（由 repository.AlertRepository 实现）
type AlertStore interface {
	CreateAlert(ctx context.Context, alert *models.Alert) error
	GetRecentAlert(ctx context.Context, deviceID string, alertType models.AlertType, within time.Duration) (*models.Alert, error)
}

// Deduplicator 报警去重器
// 去重检查与创建之间没有原子性保证：并发触发同一 (设备, 类型) 时
// 可能产生重复报警。报警属于运营提示信息，接受这种 best-effort 语义，
// 不额外加锁。
type Deduplicator struct {
	store  AlertStore
	window time.Duration
	logger *zap.Logger
}

// NewDeduplicator 创建去重器
func NewDeduplicator(store AlertStore, window time.Duration, logger *zap.Logger) *Deduplicator {
	if window <= 0 {
		window = 5 * time.Minute
	}
	return &Deduplicator{
		store:  store,
		window: window,
		logger: logger,
	}
}

// ShouldCreate 判断是否应创建该 (设备, 类型) 的新报警
// 窗口内已存在同类报警时返回 false（抑制）。
// 存储层查询失败时返回错误，调用方必须放弃本次报警创建，不得猜测。
func (d *Deduplicator) ShouldCreate(ctx context.Context, deviceID string, alertType models.AlertType) (bool, error) {
	recent, err := d.store.GetRecentAlert(ctx, deviceID, alertType, d.window)
	if err != nil {
		return false, err
	}

	if recent != nil {
		d.logger.Debug("Alert suppressed by dedup window",
			zap.String("device_id", deviceID),
			zap.String("type", string(alertType)),
			zap.Duration("window", d.window),
		)
		return false, nil
	}

	return true, nil
}
