package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"coldtrace-monitor/internal/models"
	"coldtrace-monitor/internal/pubsub"
)

// ReadingCache 最新读数查询接口（由 cache.RealtimeCache 实现，可为 nil）
type ReadingCache interface {
	GetLatestReading(ctx context.Context, deviceID string) (*models.Reading, error)
}

// Bridge 实时推送桥接层
// 将事件总线的消息转换为 WebSocket 推送。每个连接持有一个独立的
// 总线订阅，连接断开时立即取消订阅，总线不保留已断开连接的引用。
type Bridge struct {
	bus      *pubsub.Bus
	cache    ReadingCache
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewBridge 创建桥接层
func NewBridge(bus *pubsub.Bus, cache ReadingCache, logger *zap.Logger) *Bridge {
	return &Bridge{
		bus:   bus,
		cache: cache,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// 仪表盘与 API 同源部署，跨域校验交给外层网关
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// ServeHTTP 实现 http.Handler
func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.HandleLive(w, r)
}

// HandleLive 处理 /ws/live 连接
// 可选查询参数 deviceId 将温度订阅收窄到单台设备：
// 订阅 TEMPERATURE_UPDATES_<deviceId> 而不是全局主题，
// 并在订阅生效后立即下发该设备缓存中的最新读数作为初始快照。
// 所有连接都会收到 DEVICE_STATUS_CHANGED 和 PING。
func (b *Bridge) HandleLive(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("deviceId")

	topics := []string{pubsub.TopicDeviceStatusChanged, pubsub.TopicPing}
	if deviceID != "" {
		topics = append(topics, pubsub.DeviceTopic(pubsub.TopicTemperatureUpdates, deviceID))
	} else {
		topics = append(topics, pubsub.TopicTemperatureUpdates)
	}

	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Error("Failed to upgrade websocket connection", zap.Error(err))
		return
	}

	sub := b.bus.Subscribe(topics...)

	b.logger.Info("Live viewer connected",
		zap.String("remote", conn.RemoteAddr().String()),
		zap.String("device_filter", deviceID),
	)

	// 初始快照在 pump 启动前写入，此时连接上还没有并发写
	if deviceID != "" {
		b.sendSnapshot(r.Context(), conn, deviceID)
	}

	client := newClient(conn, sub, b.logger)
	go client.writePump()
	client.readPump()

	b.logger.Info("Live viewer disconnected",
		zap.String("remote", conn.RemoteAddr().String()),
	)
}

// sendSnapshot 下发设备缓存中的最新读数，让按设备过滤的连接
// 不必等到下一次上报才看到数据。缓存未命中或未配置缓存时跳过。
func (b *Bridge) sendSnapshot(ctx context.Context, conn *websocket.Conn, deviceID string) {
	if b.cache == nil {
		return
	}

	reading, err := b.cache.GetLatestReading(ctx, deviceID)
	if err != nil {
		b.logger.Debug("No cached reading for snapshot",
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
		return
	}

	msg := wireMessage{
		Topic: pubsub.DeviceTopic(pubsub.TopicTemperatureUpdates, deviceID),
		Payload: models.TemperatureEvent{
			DeviceID:    reading.DeviceID,
			Temperature: reading.Temperature,
			Battery:     reading.Battery,
			Status:      reading.Status,
			Timestamp:   reading.Timestamp,
		},
	}

	data, err := json.Marshal(msg)
	if err != nil {
		b.logger.Error("Failed to marshal snapshot", zap.Error(err))
		return
	}

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		b.logger.Warn("Failed to write snapshot",
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
	}
}
