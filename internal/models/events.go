package models

import (
	"time"
)

// TemperatureEvent 温度更新事件（发布到 TEMPERATURE_UPDATES 及对应设备主题）
type TemperatureEvent struct {
	DeviceID    string        `json:"device_id"`
	Temperature float64       `json:"temperature"`
	Battery     *int          `json:"battery,omitempty"`
	Status      ReadingStatus `json:"status"`
	Timestamp   time.Time     `json:"timestamp"`
}

// DeviceStatusEvent 设备状态变更事件（发布到 DEVICE_STATUS_CHANGED）
type DeviceStatusEvent struct {
	DeviceID  string       `json:"device_id"`
	Status    DeviceStatus `json:"status"`
	Battery   int          `json:"battery"`
	Timestamp time.Time    `json:"timestamp"`
}

// PingEvent 心跳事件（按固定间隔发布到 PING，用于验证推送链路存活）
type PingEvent struct {
	Timestamp time.Time `json:"timestamp"`
}
