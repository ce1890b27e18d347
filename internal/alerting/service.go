package alerting

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"coldtrace-monitor/internal/models"
)

// Service 报警服务：去重网关 + 创建 + 外发通知
// 所有报警创建必须经过本服务，不允许绕过去重检查直接写存储。
type Service struct {
	store    AlertStore
	dedup    *Deduplicator
	notifier *WebhookNotifier
	logger   *zap.Logger
}

// NewService 创建报警服务
func NewService(store AlertStore, dedup *Deduplicator, notifier *WebhookNotifier, logger *zap.Logger) *Service {
	return &Service{
		store:    store,
		dedup:    dedup,
		notifier: notifier,
		logger:   logger,
	}
}

// Raise 触发报警
// 去重窗口内已有同类报警时抑制，返回 (nil, nil)。
// 去重查询失败时放弃创建并返回错误。
func (s *Service) Raise(ctx context.Context, device *models.Device, alertType models.AlertType, severity models.AlertSeverity, detail string) (*models.Alert, error) {
	ok, err := s.dedup.ShouldCreate(ctx, device.ID, alertType)
	if err != nil {
		return nil, fmt.Errorf("dedup check failed: %w", err)
	}
	if !ok {
		return nil, nil
	}

	alert := BuildAlert(device, alertType, severity, detail)
	if err := s.store.CreateAlert(ctx, alert); err != nil {
		return nil, fmt.Errorf("failed to create alert: %w", err)
	}

	s.logger.Info("Alert created",
		zap.String("alert_id", alert.ID),
		zap.String("device_id", device.ID),
		zap.String("type", string(alertType)),
		zap.String("severity", string(severity)),
	)

	s.notifier.Notify(alert)

	return alert, nil
}
