package fleet

import (
	"context"
	"time"

	"go.uber.org/zap"

	"coldtrace-monitor/internal/models"
)

const (
	lowBatteryThreshold = 20
	criticalWindow      = time.Hour
	volumeWindow        = 24 * time.Hour
)

// DeviceCounter 设备计数接口（由 repository.DeviceRepository 实现）
type DeviceCounter interface {
	CountDevices(ctx context.Context) (int, error)
	CountDevicesByStatus(ctx context.Context, status models.DeviceStatus) (int, error)
}

// ReadingQuerier 读数聚合查询接口（由 repository.ReadingRepository 实现）
type ReadingQuerier interface {
	CountReadingsSince(ctx context.Context, since time.Time) (int, error)
	ListCriticalDevicesSince(ctx context.Context, since time.Time) ([]string, error)
	ListLowBatteryDevices(ctx context.Context, threshold int) ([]string, error)
}

// AlertCounter 报警计数接口（由 repository.AlertRepository 实现）
type AlertCounter interface {
	CountAlertsSince(ctx context.Context, since time.Time) (int, error)
}

// StatsService 车队统计服务
// 每次调用都从存储层新鲜计算，不缓存。
// 存储层失败时返回全零快照（记录日志），保证仪表盘轮询不中断。
type StatsService struct {
	devices  DeviceCounter
	readings ReadingQuerier
	alerts   AlertCounter
	logger   *zap.Logger
}

// NewStatsService 创建统计服务
func NewStatsService(devices DeviceCounter, readings ReadingQuerier, alerts AlertCounter, logger *zap.Logger) *StatsService {
	return &StatsService{
		devices:  devices,
		readings: readings,
		alerts:   alerts,
		logger:   logger,
	}
}

// Snapshot 计算车队统计快照
func (s *StatsService) Snapshot(ctx context.Context) models.SimulatorStats {
	now := time.Now()
	var stats models.SimulatorStats

	total, err := s.devices.CountDevices(ctx)
	if err != nil {
		return s.zeroSnapshot(err)
	}
	stats.TotalDevices = total

	online, err := s.devices.CountDevicesByStatus(ctx, models.DeviceStatusOnline)
	if err != nil {
		return s.zeroSnapshot(err)
	}
	stats.OnlineDevices = online

	offline, err := s.devices.CountDevicesByStatus(ctx, models.DeviceStatusOffline)
	if err != nil {
		return s.zeroSnapshot(err)
	}
	stats.OfflineDevices = offline

	lowBattery, err := s.readings.ListLowBatteryDevices(ctx, lowBatteryThreshold)
	if err != nil {
		return s.zeroSnapshot(err)
	}
	stats.LowBatteryDevices = len(lowBattery)

	critical, err := s.readings.ListCriticalDevicesSince(ctx, now.Add(-criticalWindow))
	if err != nil {
		return s.zeroSnapshot(err)
	}
	stats.CriticalDevices = len(critical)

	readings, err := s.readings.CountReadingsSince(ctx, now.Add(-volumeWindow))
	if err != nil {
		return s.zeroSnapshot(err)
	}
	stats.ReadingsLast24h = readings

	alerts, err := s.alerts.CountAlertsSince(ctx, now.Add(-volumeWindow))
	if err != nil {
		return s.zeroSnapshot(err)
	}
	stats.AlertsCreated = alerts

	return stats
}

// zeroSnapshot 存储层失败时的降级快照
func (s *StatsService) zeroSnapshot(err error) models.SimulatorStats {
	s.logger.Warn("Failed to compute fleet stats, returning zero snapshot",
		zap.Error(err),
	)
	return models.SimulatorStats{}
}
