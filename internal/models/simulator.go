package models

// SimulatorResult 场景执行结果（临时值对象，不持久化）
type SimulatorResult struct {
	Success         bool     `json:"success"`
	Message         string   `json:"message"`
	AffectedDevices []Device `json:"affected_devices"`
}

// SimulatorStats 车队统计快照（每次按需从存储层新鲜计算，不缓存）
type SimulatorStats struct {
	TotalDevices      int `json:"total_devices"`
	OnlineDevices     int `json:"online_devices"`
	OfflineDevices    int `json:"offline_devices"`
	LowBatteryDevices int `json:"low_battery_devices"` // 最新读数电量 < 20
	CriticalDevices   int `json:"critical_devices"`    // 最近1小时内有 CRITICAL 读数的设备数（去重）
	ReadingsLast24h   int `json:"readings_last_24h"`
	AlertsCreated     int `json:"alerts_created"` // 最近24小时创建的报警数
}
