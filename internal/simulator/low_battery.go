package simulator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"coldtrace-monitor/internal/models"
)

// SimulateLowBattery 低电量场景
// 将目标设备电量设为 [5, 20) 的随机值，创建一条携带该电量的
// 正常温度读数，发布状态变更事件并触发 LOW_BATTERY 报警。
func (e *Engine) SimulateLowBattery(ctx context.Context, deviceID string) models.SimulatorResult {
	device, err := e.resolveTarget(ctx, deviceID)
	if err != nil {
		return failure("%v", err)
	}

	battery := e.randBetween(5, 20)

	if err := e.devices.UpdateDeviceBatteryStatus(ctx, device.ID, battery, device.Status); err != nil {
		e.logger.Error("Failed to update device battery",
			zap.String("device_id", device.ID),
			zap.Error(err),
		)
		return failure("failed to update battery: %v", err)
	}
	device.Battery = battery

	reading := e.newReading(device, e.normalTemperature(device), &battery)
	if err := e.readings.CreateReading(ctx, &reading); err != nil {
		e.logger.Error("Failed to create low battery reading",
			zap.String("device_id", device.ID),
			zap.Error(err),
		)
		return failure("failed to create reading: %v", err)
	}

	e.cacheReading(ctx, reading)
	e.publishTemperature(reading)
	e.publishStatus(device)

	e.raiseAlert(ctx, device, models.AlertTypeLowBattery, models.AlertSeverityWarning,
		fmt.Sprintf("battery at %d%%", battery))

	e.logger.Info("Simulated low battery",
		zap.String("device_id", device.ID),
		zap.Int("battery", battery),
	)

	return models.SimulatorResult{
		Success:         true,
		Message:         fmt.Sprintf("Set %s battery to %d%%", device.Name, battery),
		AffectedDevices: []models.Device{*device},
	}
}
