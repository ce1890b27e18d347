package simulator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"coldtrace-monitor/internal/models"
)

// SimulatePowerOutage 断电场景
// 将所有 ONLINE+active 设备批量置为 OFFLINE，逐个发布状态变更事件，
// 并排期固定延迟后的自动恢复。恢复在独立的后台任务中执行，
// 失败只记录日志，不回传给触发方。
func (e *Engine) SimulatePowerOutage(ctx context.Context) models.SimulatorResult {
	devices, err := e.devices.ListDevicesByStatus(ctx, models.DeviceStatusOnline, true)
	if err != nil {
		return failure("failed to list online devices: %v", err)
	}
	if len(devices) == 0 {
		return failure("no online devices available")
	}

	ids := make([]string, len(devices))
	for i := range devices {
		ids[i] = devices[i].ID
	}

	if err := e.devices.UpdateDeviceStatusBatch(ctx, ids, models.DeviceStatusOffline); err != nil {
		e.logger.Error("Failed to batch update devices to offline",
			zap.Int("count", len(ids)),
			zap.Error(err),
		)
		return failure("failed to take devices offline: %v", err)
	}

	for i := range devices {
		devices[i].Status = models.DeviceStatusOffline
		e.publishStatus(&devices[i])
		e.raiseAlert(ctx, &devices[i], models.AlertTypeConnectionLost, models.AlertSeverityCritical, "power outage")
	}

	e.scheduler.After(e.recoveryDelay, "power-outage-recovery", func() error {
		return e.recoverFromOutage(context.Background(), ids)
	})

	e.logger.Info("Simulated power outage",
		zap.Int("affected", len(devices)),
		zap.Duration("recovery_delay", e.recoveryDelay),
	)

	return models.SimulatorResult{
		Success:         true,
		Message:         fmt.Sprintf("Power outage: %d devices offline, recovery in %s", len(devices), e.recoveryDelay),
		AffectedDevices: devices,
	}
}

// recoverFromOutage 断电自动恢复
// 延迟期间运营人员可能手动改过设备状态，因此恢复前重新读取
// 当前状态，只恢复仍处于 OFFLINE 的设备。
func (e *Engine) recoverFromOutage(ctx context.Context, ids []string) error {
	var toRecover []*models.Device
	for _, id := range ids {
		device, err := e.devices.GetDevice(ctx, id)
		if err != nil {
			e.logger.Warn("Skipping recovery for missing device",
				zap.String("device_id", id),
				zap.Error(err),
			)
			continue
		}
		if device.Status != models.DeviceStatusOffline {
			continue
		}
		toRecover = append(toRecover, device)
	}

	if len(toRecover) == 0 {
		e.logger.Info("Power outage recovery: nothing to recover")
		return nil
	}

	recoverIDs := make([]string, len(toRecover))
	for i, device := range toRecover {
		recoverIDs[i] = device.ID
	}

	if err := e.devices.UpdateDeviceStatusBatch(ctx, recoverIDs, models.DeviceStatusOnline); err != nil {
		return fmt.Errorf("failed to recover devices: %w", err)
	}

	for _, device := range toRecover {
		device.Status = models.DeviceStatusOnline
		e.publishStatus(device)
	}

	e.logger.Info("Power outage recovery completed",
		zap.Int("recovered", len(toRecover)),
	)
	return nil
}
