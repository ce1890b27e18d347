package classifier

import (
	"coldtrace-monitor/internal/models"
)

// criticalBand 超出阈值的临界距离（摄氏度）：
// 带外且距离被违反的阈值不超过 2 度判为 WARNING，超过判为 CRITICAL。
// 读数状态在全系统范围内统一使用本函数计算（上报入库、场景模拟、查询回退）。
const criticalBand = 2.0

// Classify 根据设备阈值对温度读数分类
// 任一阈值缺失表示设备未配置合规策略，始终返回 NORMAL。
// 纯函数，无副作用。
func Classify(temperature float64, minTemp, maxTemp *float64) models.ReadingStatus {
	if minTemp == nil || maxTemp == nil {
		return models.ReadingStatusNormal
	}

	if temperature >= *minTemp && temperature <= *maxTemp {
		return models.ReadingStatusNormal
	}

	// 带外：计算距离被违反阈值的偏差
	var distance float64
	if temperature < *minTemp {
		distance = *minTemp - temperature
	} else {
		distance = temperature - *maxTemp
	}

	if distance > criticalBand {
		return models.ReadingStatusCritical
	}
	return models.ReadingStatusWarning
}
