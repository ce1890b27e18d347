package models

import (
	"time"
)

// ReadingStatus 读数状态（由分类器根据设备阈值计算）
type ReadingStatus string

const (
	ReadingStatusNormal   ReadingStatus = "NORMAL"
	ReadingStatusWarning  ReadingStatus = "WARNING"
	ReadingStatusCritical ReadingStatus = "CRITICAL"
)

// Reading 温度读数（对应 readings 表，创建后不可变）
// Status 为派生字段：旧数据中存储的状态可能与当前阈值不一致，
// 读取时若设备阈值可用应以重新分类的结果为准。
type Reading struct {
	ID          string        `json:"id" db:"id"`
	DeviceID    string        `json:"device_id" db:"device_id"`
	Temperature float64       `json:"temperature" db:"temperature"`
	Battery     *int          `json:"battery,omitempty" db:"battery"`
	Status      ReadingStatus `json:"status" db:"status"`
	Timestamp   time.Time     `json:"timestamp" db:"timestamp"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
}
