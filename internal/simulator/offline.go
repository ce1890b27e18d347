package simulator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"coldtrace-monitor/internal/models"
)

// TakeDeviceOffline 设备离线场景
// 将目标设备状态置为 OFFLINE，发布状态变更事件并触发 DEVICE_OFFLINE 报警。
func (e *Engine) TakeDeviceOffline(ctx context.Context, deviceID string) models.SimulatorResult {
	device, err := e.resolveTarget(ctx, deviceID)
	if err != nil {
		return failure("%v", err)
	}

	if err := e.devices.UpdateDeviceStatus(ctx, device.ID, models.DeviceStatusOffline); err != nil {
		e.logger.Error("Failed to take device offline",
			zap.String("device_id", device.ID),
			zap.Error(err),
		)
		return failure("failed to update device status: %v", err)
	}
	device.Status = models.DeviceStatusOffline

	e.publishStatus(device)
	e.raiseAlert(ctx, device, models.AlertTypeDeviceOffline, models.AlertSeverityWarning, "")

	e.logger.Info("Took device offline",
		zap.String("device_id", device.ID),
		zap.String("name", device.Name),
	)

	return models.SimulatorResult{
		Success:         true,
		Message:         fmt.Sprintf("Took %s offline", device.Name),
		AffectedDevices: []models.Device{*device},
	}
}
