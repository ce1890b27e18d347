package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"coldtrace-monitor/internal/classifier"
	"coldtrace-monitor/internal/config"
	"coldtrace-monitor/internal/models"
	"coldtrace-monitor/internal/mqttclient"
	"coldtrace-monitor/internal/pubsub"
)

const lowBatteryThreshold = 20

// DeviceStore 设备存储接口
type DeviceStore interface {
	GetDeviceByDeviceID(ctx context.Context, deviceID string) (*models.Device, error)
	UpdateDeviceBatteryStatus(ctx context.Context, id string, battery int, status models.DeviceStatus) error
}

// ReadingStore 读数存储接口
type ReadingStore interface {
	CreateReading(ctx context.Context, reading *models.Reading) error
}

// AlertRaiser 报警触发接口
type AlertRaiser interface {
	Raise(ctx context.Context, device *models.Device, alertType models.AlertType, severity models.AlertSeverity, detail string) (*models.Alert, error)
}

// Publisher 事件发布接口
type Publisher interface {
	Publish(topic string, payload interface{})
}

// ReadingCache 最新读数缓存接口（可为 nil）
type ReadingCache interface {
	SetLatestReading(ctx context.Context, reading models.Reading) error
}

// Subscriber MQTT订阅接口（由 mqttclient.Client 实现）
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqttclient.MessageHandler) error
	Unsubscribe(topics ...string) error
}

// readingPayload 设备上报的读数消息
type readingPayload struct {
	Temperature float64    `json:"temperature"`
	Battery     *int       `json:"battery,omitempty"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
}

// Consumer MQTT读数消费者
// 订阅设备上报主题，将原始读数转换为已分类读数入库，
// 并沿实时管线（缓存、事件总线、报警网关）分发。
type Consumer struct {
	config     *config.Config
	mqttClient Subscriber
	devices    DeviceStore
	readings   ReadingStore
	alerts     AlertRaiser
	bus        Publisher
	cache      ReadingCache
	logger     *zap.Logger
}

// NewConsumer 创建读数消费者
func NewConsumer(
	cfg *config.Config,
	mqttClient Subscriber,
	devices DeviceStore,
	readings ReadingStore,
	alerts AlertRaiser,
	bus Publisher,
	cache ReadingCache,
	logger *zap.Logger,
) *Consumer {
	return &Consumer{
		config:     cfg,
		mqttClient: mqttClient,
		devices:    devices,
		readings:   readings,
		alerts:     alerts,
		bus:        bus,
		cache:      cache,
		logger:     logger,
	}
}

// Start 启动消费者
func (c *Consumer) Start(ctx context.Context) error {
	if err := c.mqttClient.Subscribe(c.config.MQTT.ReadingTopic, c.config.MQTT.QoS, c.handleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to reading topic: %w", err)
	}

	c.logger.Info("MQTT reading consumer started",
		zap.String("topic", c.config.MQTT.ReadingTopic),
	)

	<-ctx.Done()
	return nil
}

// Stop 停止消费者
func (c *Consumer) Stop() {
	if err := c.mqttClient.Unsubscribe(c.config.MQTT.ReadingTopic); err != nil {
		c.logger.Error("Failed to unsubscribe", zap.Error(err))
	}

	c.logger.Info("MQTT reading consumer stopped")
}

// handleMessage 处理一条设备上报
// 主题格式: coldtrace/{device_id}/reading
func (c *Consumer) handleMessage(topic string, payload []byte) error {
	ctx := context.Background()

	parts := strings.Split(topic, "/")
	if len(parts) < 3 {
		return fmt.Errorf("invalid topic format: %s", topic)
	}
	deviceIdentifier := parts[1]

	var msg readingPayload
	if err := json.Unmarshal(payload, &msg); err != nil {
		c.logger.Error("Failed to unmarshal reading payload",
			zap.String("topic", topic),
			zap.Error(err),
		)
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	device, err := c.devices.GetDeviceByDeviceID(ctx, deviceIdentifier)
	if err != nil {
		c.logger.Warn("Reading from unknown device",
			zap.String("identifier", deviceIdentifier),
			zap.Error(err),
		)
		return fmt.Errorf("device not found: %s", deviceIdentifier)
	}

	battery := device.Battery
	if msg.Battery != nil {
		battery = *msg.Battery
	}

	timestamp := time.Now()
	if msg.Timestamp != nil {
		timestamp = *msg.Timestamp
	}

	// 入库前按设备当前阈值分类
	reading := models.Reading{
		ID:          uuid.New().String(),
		DeviceID:    device.ID,
		Temperature: msg.Temperature,
		Battery:     &battery,
		Status:      classifier.Classify(msg.Temperature, device.MinTemp, device.MaxTemp),
		Timestamp:   timestamp,
	}

	if err := c.readings.CreateReading(ctx, &reading); err != nil {
		return fmt.Errorf("failed to store reading: %w", err)
	}

	// 收到上报说明设备在线，顺带刷新电量
	wasOffline := device.Status != models.DeviceStatusOnline
	if err := c.devices.UpdateDeviceBatteryStatus(ctx, device.ID, battery, models.DeviceStatusOnline); err != nil {
		c.logger.Error("Failed to refresh device state",
			zap.String("device_id", device.ID),
			zap.Error(err),
		)
	} else {
		device.Battery = battery
		device.Status = models.DeviceStatusOnline
	}

	if c.cache != nil {
		if err := c.cache.SetLatestReading(ctx, reading); err != nil {
			c.logger.Warn("Failed to update realtime cache",
				zap.String("device_id", device.ID),
				zap.Error(err),
			)
		}
	}

	event := models.TemperatureEvent{
		DeviceID:    device.ID,
		Temperature: reading.Temperature,
		Battery:     reading.Battery,
		Status:      reading.Status,
		Timestamp:   reading.Timestamp,
	}
	c.bus.Publish(pubsub.TopicTemperatureUpdates, event)
	c.bus.Publish(pubsub.DeviceTopic(pubsub.TopicTemperatureUpdates, device.ID), event)

	if wasOffline {
		c.bus.Publish(pubsub.TopicDeviceStatusChanged, models.DeviceStatusEvent{
			DeviceID:  device.ID,
			Status:    models.DeviceStatusOnline,
			Battery:   battery,
			Timestamp: time.Now(),
		})
	}

	c.raiseAlerts(ctx, device, &reading, battery)

	return nil
}

// raiseAlerts 按读数内容触发报警（失败只记录日志）
func (c *Consumer) raiseAlerts(ctx context.Context, device *models.Device, reading *models.Reading, battery int) {
	if reading.Status != models.ReadingStatusNormal {
		severity := models.AlertSeverityWarning
		if reading.Status == models.ReadingStatusCritical {
			severity = models.AlertSeverityCritical
		}
		if _, err := c.alerts.Raise(ctx, device, models.AlertTypeTemperatureExcursion, severity,
			fmt.Sprintf("temperature %.1f°C", reading.Temperature)); err != nil {
			c.logger.Error("Failed to raise excursion alert",
				zap.String("device_id", device.ID),
				zap.Error(err),
			)
		}
	}

	if battery < lowBatteryThreshold {
		if _, err := c.alerts.Raise(ctx, device, models.AlertTypeLowBattery, models.AlertSeverityWarning,
			fmt.Sprintf("battery at %d%%", battery)); err != nil {
			c.logger.Error("Failed to raise low battery alert",
				zap.String("device_id", device.ID),
				zap.Error(err),
			)
		}
	}
}
