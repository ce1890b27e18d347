package simulator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"coldtrace-monitor/internal/models"
)

// SimulateBatchArrival 批量到货场景
// 将最多 batchCap 台 OFFLINE+active 设备上线，电量刷新到 [85, 100]，
// 并为每台设备创建一条正常温度读数。
func (e *Engine) SimulateBatchArrival(ctx context.Context) models.SimulatorResult {
	offline, err := e.devices.ListDevicesByStatus(ctx, models.DeviceStatusOffline, true)
	if err != nil {
		return failure("failed to list offline devices: %v", err)
	}
	if len(offline) == 0 {
		return failure("no offline devices available")
	}

	if len(offline) > e.batchCap {
		offline = offline[:e.batchCap]
	}

	affected, readings, err := e.bringOnline(ctx, offline)
	if err != nil {
		return failure("%v", err)
	}

	if err := e.readings.CreateReadings(ctx, readings); err != nil {
		e.logger.Error("Failed to create arrival readings",
			zap.Int("count", len(readings)),
			zap.Error(err),
		)
		return failure("failed to create readings: %v", err)
	}

	for _, reading := range readings {
		e.cacheReading(ctx, reading)
		e.publishTemperature(reading)
	}

	e.logger.Info("Simulated batch arrival",
		zap.Int("devices", len(affected)),
	)

	return models.SimulatorResult{
		Success:         true,
		Message:         fmt.Sprintf("Batch arrival: %d devices online", len(affected)),
		AffectedDevices: affected,
	}
}

// bringOnline 将一批设备上线并刷新电量，返回更新后的设备和待入库读数
// 状态变更事件在此处逐台发布。
func (e *Engine) bringOnline(ctx context.Context, devices []models.Device) ([]models.Device, []models.Reading, error) {
	affected := make([]models.Device, 0, len(devices))
	readings := make([]models.Reading, 0, len(devices))

	for i := range devices {
		device := devices[i]
		battery := e.randBetween(85, 101)

		if err := e.devices.UpdateDeviceBatteryStatus(ctx, device.ID, battery, models.DeviceStatusOnline); err != nil {
			return nil, nil, fmt.Errorf("failed to bring device %s online: %w", device.Name, err)
		}

		device.Battery = battery
		device.Status = models.DeviceStatusOnline
		e.publishStatus(&device)

		readings = append(readings, e.newReading(&device, e.normalTemperature(&device), &battery))
		affected = append(affected, device)
	}

	return affected, readings, nil
}
