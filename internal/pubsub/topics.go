package pubsub

// 主题常量（与前端订阅协议保持一致）
const (
	TopicTemperatureUpdates  = "TEMPERATURE_UPDATES"
	TopicDeviceStatusChanged = "DEVICE_STATUS_CHANGED"
	TopicPing                = "PING"
)

// DeviceTopic 构建按设备过滤的主题名，格式: <全局主题>_<设备ID>
// 发布方对全局主题和设备主题双重发布，过滤责任由发布方的命名约定承担，
// 总线本身不做任何内容过滤。
func DeviceTopic(base, deviceID string) string {
	return base + "_" + deviceID
}
