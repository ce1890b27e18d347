package simulator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"coldtrace-monitor/internal/models"
)

// TriggerExcursion 温度偏移场景
// 为目标设备创建一条固定带外温度的读数，双重发布温度事件，
// 并经去重网关触发 TEMPERATURE_EXCURSION 报警。
func (e *Engine) TriggerExcursion(ctx context.Context, deviceID string) models.SimulatorResult {
	device, err := e.resolveTarget(ctx, deviceID)
	if err != nil {
		return failure("%v", err)
	}

	battery := device.Battery
	reading := e.newReading(device, e.excursionTemp, &battery)

	if err := e.readings.CreateReading(ctx, &reading); err != nil {
		e.logger.Error("Failed to create excursion reading",
			zap.String("device_id", device.ID),
			zap.Error(err),
		)
		return failure("failed to create reading: %v", err)
	}

	e.cacheReading(ctx, reading)
	e.publishTemperature(reading)

	severity := models.AlertSeverityWarning
	if reading.Status == models.ReadingStatusCritical {
		severity = models.AlertSeverityCritical
	}
	e.raiseAlert(ctx, device, models.AlertTypeTemperatureExcursion, severity,
		fmt.Sprintf("temperature %.1f°C", reading.Temperature))

	e.logger.Info("Triggered temperature excursion",
		zap.String("device_id", device.ID),
		zap.Float64("temperature", reading.Temperature),
		zap.String("status", string(reading.Status)),
	)

	return models.SimulatorResult{
		Success:         true,
		Message:         fmt.Sprintf("Triggered excursion on %s (%.1f°C)", device.Name, reading.Temperature),
		AffectedDevices: []models.Device{*device},
	}
}
