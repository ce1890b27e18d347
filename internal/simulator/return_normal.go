package simulator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"coldtrace-monitor/internal/models"
)

// ReturnToNormal 恢复正常场景
// 将所有 OFFLINE 或 MAINTENANCE 的 active 设备上线并刷新电量，
// 每台设备创建一条正常温度读数。
// 没有符合条件的设备时返回成功的空结果（幂等空操作，不是错误）。
func (e *Engine) ReturnToNormal(ctx context.Context) models.SimulatorResult {
	offline, err := e.devices.ListDevicesByStatus(ctx, models.DeviceStatusOffline, true)
	if err != nil {
		return failure("failed to list offline devices: %v", err)
	}
	maintenance, err := e.devices.ListDevicesByStatus(ctx, models.DeviceStatusMaintenance, true)
	if err != nil {
		return failure("failed to list maintenance devices: %v", err)
	}

	eligible := append(offline, maintenance...)
	if len(eligible) == 0 {
		return models.SimulatorResult{
			Success:         true,
			Message:         "All devices already online",
			AffectedDevices: []models.Device{},
		}
	}

	affected, readings, err := e.bringOnline(ctx, eligible)
	if err != nil {
		return failure("%v", err)
	}

	if err := e.readings.CreateReadings(ctx, readings); err != nil {
		e.logger.Error("Failed to create recovery readings",
			zap.Int("count", len(readings)),
			zap.Error(err),
		)
		return failure("failed to create readings: %v", err)
	}

	for _, reading := range readings {
		e.cacheReading(ctx, reading)
		e.publishTemperature(reading)
	}

	e.logger.Info("Returned fleet to normal",
		zap.Int("devices", len(affected)),
	)

	return models.SimulatorResult{
		Success:         true,
		Message:         fmt.Sprintf("Returned %d devices to normal", len(affected)),
		AffectedDevices: affected,
	}
}
