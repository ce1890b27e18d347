package models

import "errors"

// ErrDeviceNotFound 设备不存在
// 存储层用 %w 包装该错误，调用方通过 errors.Is 与存储故障区分。
var ErrDeviceNotFound = errors.New("device not found")
