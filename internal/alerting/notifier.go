package alerting

import (
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"coldtrace-monitor/internal/models"
)

// WebhookNotifier 报警外发通知器
// 将新建报警 POST 到配置的 Webhook 地址。通知是 advisory 渠道，
// 失败只记录日志，不影响报警创建。
type WebhookNotifier struct {
	client *resty.Client
	url    string
	logger *zap.Logger
}

// NewWebhookNotifier 创建通知器
// url 为空时返回禁用状态的通知器（Notify 为空操作）。
func NewWebhookNotifier(url string, timeout time.Duration, logger *zap.Logger) *WebhookNotifier {
	n := &WebhookNotifier{
		url:    url,
		logger: logger,
	}
	if url != "" {
		n.client = resty.New().
			SetTimeout(timeout).
			SetRetryCount(2)
	}
	return n
}

// Enabled 是否配置了 Webhook 地址
func (n *WebhookNotifier) Enabled() bool {
	return n.url != ""
}

// Notify 异步推送报警
func (n *WebhookNotifier) Notify(alert *models.Alert) {
	if !n.Enabled() {
		return
	}

	go func() {
		resp, err := n.client.R().
			SetHeader("Content-Type", "application/json").
			SetBody(alert).
			Post(n.url)
		if err != nil {
			n.logger.Error("Failed to deliver alert webhook",
				zap.String("alert_id", alert.ID),
				zap.Error(err),
			)
			return
		}
		if resp.IsError() {
			n.logger.Warn("Alert webhook returned error status",
				zap.String("alert_id", alert.ID),
				zap.Int("status", resp.StatusCode()),
			)
		}
	}()
}
