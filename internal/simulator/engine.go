package simulator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"coldtrace-monitor/internal/classifier"
	"coldtrace-monitor/internal/config"
	"coldtrace-monitor/internal/models"
	"coldtrace-monitor/internal/pubsub"
)

// defaultNormalTemp 设备未配置阈值时使用的正常温度（摄氏度）
const defaultNormalTemp = 4.0

// DeviceStore 设备存储接口（由 repository.DeviceRepository 实现）
type DeviceStore interface {
	GetDevice(ctx context.Context, id string) (*models.Device, error)
	GetDeviceByDeviceID(ctx context.Context, deviceID string) (*models.Device, error)
	ListDevicesByStatus(ctx context.Context, status models.DeviceStatus, activeOnly bool) ([]models.Device, error)
	UpdateDeviceStatus(ctx context.Context, id string, status models.DeviceStatus) error
	UpdateDeviceStatusBatch(ctx context.Context, ids []string, status models.DeviceStatus) error
	UpdateDeviceBatteryStatus(ctx context.Context, id string, battery int, status models.DeviceStatus) error
}

// ReadingStore 读数存储接口（由 repository.ReadingRepository 实现）
type ReadingStore interface {
	CreateReading(ctx context.Context, reading *models.Reading) error
	CreateReadings(ctx context.Context, readings []models.Reading) error
}

// AlertRaiser 报警触发接口（由 alerting.Service 实现）
type AlertRaiser interface {
	Raise(ctx context.Context, device *models.Device, alertType models.AlertType, severity models.AlertSeverity, detail string) (*models.Alert, error)
}

// Publisher 事件发布接口（由 pubsub.Bus 实现）
type Publisher interface {
	Publish(topic string, payload interface{})
}

// ReadingCache 最新读数缓存接口（由 cache.RealtimeCache 实现，可为 nil）
type ReadingCache interface {
	SetLatestReading(ctx context.Context, reading models.Reading) error
}

// StatsSource 统计快照接口（由 fleet.StatsService 实现）
type StatsSource interface {
	Snapshot(ctx context.Context) models.SimulatorStats
}

// Engine 设备场景模拟引擎
// 每个场景方法在自身边界内吞掉所有错误，统一转换为
// SimulatorResult{Success: false}，不向调用方抛出。
// 场景内的一串存储操作没有整体事务，部分完成是可接受的 best effort。
type Engine struct {
	devices   DeviceStore
	readings  ReadingStore
	alerts    AlertRaiser
	bus       Publisher
	cache     ReadingCache
	stats     StatsSource
	scheduler *RecoveryScheduler
	logger    *zap.Logger

	excursionTemp float64
	recoveryDelay time.Duration
	batchCap      int

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewEngine 创建模拟引擎
func NewEngine(
	cfg *config.Config,
	devices DeviceStore,
	readings ReadingStore,
	alerts AlertRaiser,
	stats StatsSource,
	bus Publisher,
	cache ReadingCache,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		devices:       devices,
		readings:      readings,
		alerts:        alerts,
		bus:           bus,
		cache:         cache,
		stats:         stats,
		scheduler:     NewRecoveryScheduler(logger),
		logger:        logger,
		excursionTemp: cfg.Simulator.ExcursionTemp,
		recoveryDelay: cfg.Simulator.RecoveryDelay,
		batchCap:      cfg.Simulator.BatchArrivalCap,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// GetStats 按需计算统计快照
func (e *Engine) GetStats(ctx context.Context) models.SimulatorStats {
	return e.stats.Snapshot(ctx)
}

// resolveTarget 解析场景目标设备
// deviceID 非空时按内部 ID 查找（兼容外部设备编号），且设备必须 ONLINE；
// 为空时从 ONLINE+active 设备中随机选取。
// 只有确定不存在时才回退按设备编号查找，存储故障原样上抛，
// 不伪装成设备不存在。
func (e *Engine) resolveTarget(ctx context.Context, deviceID string) (*models.Device, error) {
	if deviceID != "" {
		device, err := e.devices.GetDevice(ctx, deviceID)
		if errors.Is(err, models.ErrDeviceNotFound) {
			// 兼容按外部设备编号指定
			device, err = e.devices.GetDeviceByDeviceID(ctx, deviceID)
		}
		if err != nil {
			if errors.Is(err, models.ErrDeviceNotFound) {
				return nil, fmt.Errorf("device not found: %s", deviceID)
			}
			return nil, fmt.Errorf("failed to query device %s: %w", deviceID, err)
		}
		if device.Status != models.DeviceStatusOnline {
			return nil, fmt.Errorf("device %s is not ONLINE", device.Name)
		}
		return device, nil
	}

	devices, err := e.devices.ListDevicesByStatus(ctx, models.DeviceStatusOnline, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list online devices: %w", err)
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("no online devices available")
	}

	device := devices[e.randIntn(len(devices))]
	return &device, nil
}

// newReading 构建读数并通过分类器计算状态
func (e *Engine) newReading(device *models.Device, temperature float64, battery *int) models.Reading {
	return models.Reading{
		ID:          uuid.New().String(),
		DeviceID:    device.ID,
		Temperature: temperature,
		Battery:     battery,
		Status:      classifier.Classify(temperature, device.MinTemp, device.MaxTemp),
		Timestamp:   time.Now(),
	}
}

// normalTemperature 设备的带内正常温度（阈值中点，未配置阈值时取默认值）
func (e *Engine) normalTemperature(device *models.Device) float64 {
	if device.MinTemp != nil && device.MaxTemp != nil {
		return (*device.MinTemp + *device.MaxTemp) / 2
	}
	return defaultNormalTemp
}

// publishTemperature 双重发布温度事件：全局主题 + 按设备主题
func (e *Engine) publishTemperature(reading models.Reading) {
	event := models.TemperatureEvent{
		DeviceID:    reading.DeviceID,
		Temperature: reading.Temperature,
		Battery:     reading.Battery,
		Status:      reading.Status,
		Timestamp:   reading.Timestamp,
	}
	e.bus.Publish(pubsub.TopicTemperatureUpdates, event)
	e.bus.Publish(pubsub.DeviceTopic(pubsub.TopicTemperatureUpdates, reading.DeviceID), event)
}

// publishStatus 发布设备状态变更事件
func (e *Engine) publishStatus(device *models.Device) {
	e.bus.Publish(pubsub.TopicDeviceStatusChanged, models.DeviceStatusEvent{
		DeviceID:  device.ID,
		Status:    device.Status,
		Battery:   device.Battery,
		Timestamp: time.Now(),
	})
}

// cacheReading 更新实时缓存（失败只记录日志）
func (e *Engine) cacheReading(ctx context.Context, reading models.Reading) {
	if e.cache == nil {
		return
	}
	if err := e.cache.SetLatestReading(ctx, reading); err != nil {
		e.logger.Warn("Failed to update realtime cache",
			zap.String("device_id", reading.DeviceID),
			zap.Error(err),
		)
	}
}

// raiseAlert 触发报警（失败只记录日志，不中断场景）
func (e *Engine) raiseAlert(ctx context.Context, device *models.Device, alertType models.AlertType, severity models.AlertSeverity, detail string) {
	if _, err := e.alerts.Raise(ctx, device, alertType, severity, detail); err != nil {
		e.logger.Error("Failed to raise alert",
			zap.String("device_id", device.ID),
			zap.String("type", string(alertType)),
			zap.Error(err),
		)
	}
}

func (e *Engine) randIntn(n int) int {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return e.rng.Intn(n)
}

// randBetween 返回 [min, max) 区间内的随机整数
func (e *Engine) randBetween(min, max int) int {
	return min + e.randIntn(max-min)
}

// failure 构建失败结果
func failure(format string, args ...interface{}) models.SimulatorResult {
	return models.SimulatorResult{
		Success:         false,
		Message:         fmt.Sprintf(format, args...),
		AffectedDevices: []models.Device{},
	}
}
