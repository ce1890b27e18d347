package models

import (
	"time"
)

// AlertType 报警类型
type AlertType string

const (
	AlertTypeTemperatureExcursion AlertType = "TEMPERATURE_EXCURSION"
	AlertTypeDeviceOffline        AlertType = "DEVICE_OFFLINE"
	AlertTypeLowBattery           AlertType = "LOW_BATTERY"
	AlertTypeConnectionLost       AlertType = "CONNECTION_LOST"
)

// AlertSeverity 报警级别
type AlertSeverity string

const (
	AlertSeverityWarning  AlertSeverity = "WARNING"
	AlertSeverityCritical AlertSeverity = "CRITICAL"
)

// Alert 报警记录（对应 alerts 表）
// 只能通过去重网关创建；已读/已解决状态由外部操作层维护。
type Alert struct {
	ID         string        `json:"id" db:"id"`
	DeviceID   string        `json:"device_id" db:"device_id"`
	Type       AlertType     `json:"type" db:"type"`
	Severity   AlertSeverity `json:"severity" db:"severity"`
	Title      string        `json:"title" db:"title"`
	Message    string        `json:"message" db:"message"`
	IsRead     bool          `json:"is_read" db:"is_read"`
	IsResolved bool          `json:"is_resolved" db:"is_resolved"`
	ResolvedAt *time.Time    `json:"resolved_at,omitempty" db:"resolved_at"`
	ResolvedBy *string       `json:"resolved_by,omitempty" db:"resolved_by"`
	CreatedAt  time.Time     `json:"created_at" db:"created_at"`
}
