package models

import (
	"time"
)

// DeviceStatus 设备状态
type DeviceStatus string

const (
	DeviceStatusOnline      DeviceStatus = "ONLINE"
	DeviceStatusOffline     DeviceStatus = "OFFLINE"
	DeviceStatusMaintenance DeviceStatus = "MAINTENANCE"
)

// Device 冷链监控设备（对应 devices 表）
type Device struct {
	ID        string       `json:"id" db:"id"`
	DeviceID  string       `json:"device_id" db:"device_id"` // 外部设备编号（设备上报时使用）
	Name      string       `json:"name" db:"name"`
	Location  string       `json:"location" db:"location"`
	Latitude  *float64     `json:"latitude,omitempty" db:"latitude"`
	Longitude *float64     `json:"longitude,omitempty" db:"longitude"`
	MinTemp   *float64     `json:"min_temp,omitempty" db:"min_temp"` // 阈值缺失表示不做合规检查
	MaxTemp   *float64     `json:"max_temp,omitempty" db:"max_temp"`
	Battery   int          `json:"battery" db:"battery"` // 0-100
	Status    DeviceStatus `json:"status" db:"status"`
	IsActive  bool         `json:"is_active" db:"is_active"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt time.Time    `json:"updated_at" db:"updated_at"`
}
