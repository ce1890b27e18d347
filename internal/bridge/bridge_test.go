package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"coldtrace-monitor/internal/models"
	"coldtrace-monitor/internal/pubsub"
)

type fakeReadingCache struct {
	readings map[string]*models.Reading
}

func (f *fakeReadingCache) GetLatestReading(ctx context.Context, deviceID string) (*models.Reading, error) {
	if r, ok := f.readings[deviceID]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("latest reading not found for device %s", deviceID)
}

func setupTestBridge(t *testing.T, cache ReadingCache) (*pubsub.Bus, *httptest.Server) {
	t.Helper()

	bus := pubsub.NewBus(16, zap.NewNop())
	b := NewBridge(bus, cache, zap.NewNop())

	server := httptest.NewServer(b)
	t.Cleanup(server.Close)

	return bus, server
}

func dialLive(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/live"
	if query != "" {
		url += "?" + query
	}

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func waitForSubscriber(t *testing.T, bus *pubsub.Bus, topic string) {
	t.Helper()
	require.Eventually(t, func() bool {
		return bus.SubscriberCount(topic) > 0
	}, time.Second, 5*time.Millisecond)
}

func readWireMessage(t *testing.T, conn *websocket.Conn) wireMessage {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg wireMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHandleLive_GlobalTemperatureStream(t *testing.T) {
	bus, server := setupTestBridge(t, nil)
	conn := dialLive(t, server, "")

	waitForSubscriber(t, bus, pubsub.TopicTemperatureUpdates)

	bus.Publish(pubsub.TopicTemperatureUpdates, models.TemperatureEvent{
		DeviceID:    "dev-1",
		Temperature: 5.5,
		Status:      models.ReadingStatusNormal,
		Timestamp:   time.Now(),
	})

	msg := readWireMessage(t, conn)
	assert.Equal(t, pubsub.TopicTemperatureUpdates, msg.Topic)

	payload, err := json.Marshal(msg.Payload)
	require.NoError(t, err)
	var event models.TemperatureEvent
	require.NoError(t, json.Unmarshal(payload, &event))
	assert.Equal(t, "dev-1", event.DeviceID)
	assert.Equal(t, 5.5, event.Temperature)
}

func TestHandleLive_DeviceFilter(t *testing.T) {
	bus, server := setupTestBridge(t, nil)
	conn := dialLive(t, server, "deviceId=dev-1")

	deviceTopic := pubsub.DeviceTopic(pubsub.TopicTemperatureUpdates, "dev-1")
	waitForSubscriber(t, bus, deviceTopic)

	// 按设备过滤的连接不订阅全局主题
	assert.Equal(t, 0, bus.SubscriberCount(pubsub.TopicTemperatureUpdates))

	// 其他设备的事件不可见
	bus.Publish(pubsub.DeviceTopic(pubsub.TopicTemperatureUpdates, "dev-2"), models.TemperatureEvent{DeviceID: "dev-2"})
	bus.Publish(deviceTopic, models.TemperatureEvent{DeviceID: "dev-1", Temperature: 12.0})

	msg := readWireMessage(t, conn)
	assert.Equal(t, deviceTopic, msg.Topic)
}

func TestHandleLive_StatusEventsAlwaysDelivered(t *testing.T) {
	bus, server := setupTestBridge(t, nil)
	conn := dialLive(t, server, "deviceId=dev-1")

	waitForSubscriber(t, bus, pubsub.TopicDeviceStatusChanged)

	bus.Publish(pubsub.TopicDeviceStatusChanged, models.DeviceStatusEvent{
		DeviceID:  "dev-9",
		Status:    models.DeviceStatusOffline,
		Timestamp: time.Now(),
	})

	msg := readWireMessage(t, conn)
	assert.Equal(t, pubsub.TopicDeviceStatusChanged, msg.Topic)
}

func TestHandleLive_DeviceFilterGetsCachedSnapshot(t *testing.T) {
	battery := 80
	cache := &fakeReadingCache{readings: map[string]*models.Reading{
		"dev-1": {
			ID:          "r1",
			DeviceID:    "dev-1",
			Temperature: 6.5,
			Battery:     &battery,
			Status:      models.ReadingStatusNormal,
			Timestamp:   time.Now(),
		},
	}}
	_, server := setupTestBridge(t, cache)
	conn := dialLive(t, server, "deviceId=dev-1")

	// 连接建立后无需等待下一次上报，直接收到缓存的最新读数
	msg := readWireMessage(t, conn)
	assert.Equal(t, pubsub.DeviceTopic(pubsub.TopicTemperatureUpdates, "dev-1"), msg.Topic)

	payload, err := json.Marshal(msg.Payload)
	require.NoError(t, err)
	var event models.TemperatureEvent
	require.NoError(t, json.Unmarshal(payload, &event))
	assert.Equal(t, "dev-1", event.DeviceID)
	assert.Equal(t, 6.5, event.Temperature)
}

func TestHandleLive_SnapshotSkippedOnCacheMiss(t *testing.T) {
	cache := &fakeReadingCache{readings: map[string]*models.Reading{}}
	bus, server := setupTestBridge(t, cache)
	conn := dialLive(t, server, "deviceId=dev-1")

	deviceTopic := pubsub.DeviceTopic(pubsub.TopicTemperatureUpdates, "dev-1")
	waitForSubscriber(t, bus, deviceTopic)

	// 缓存未命中时第一条消息是之后的实时发布，而不是快照
	bus.Publish(deviceTopic, models.TemperatureEvent{DeviceID: "dev-1", Temperature: 3.0})

	msg := readWireMessage(t, conn)
	assert.Equal(t, deviceTopic, msg.Topic)
}

func TestHandleLive_GlobalConnectionHasNoSnapshot(t *testing.T) {
	battery := 80
	cache := &fakeReadingCache{readings: map[string]*models.Reading{
		"dev-1": {ID: "r1", DeviceID: "dev-1", Temperature: 6.5, Battery: &battery, Status: models.ReadingStatusNormal, Timestamp: time.Now()},
	}}
	bus, server := setupTestBridge(t, cache)
	conn := dialLive(t, server, "")

	waitForSubscriber(t, bus, pubsub.TopicTemperatureUpdates)

	// 全局连接没有过滤目标，不下发快照，第一条消息来自总线
	bus.Publish(pubsub.TopicTemperatureUpdates, models.TemperatureEvent{DeviceID: "dev-2", Temperature: 4.0})

	msg := readWireMessage(t, conn)
	assert.Equal(t, pubsub.TopicTemperatureUpdates, msg.Topic)

	payload, err := json.Marshal(msg.Payload)
	require.NoError(t, err)
	var event models.TemperatureEvent
	require.NoError(t, json.Unmarshal(payload, &event))
	assert.Equal(t, "dev-2", event.DeviceID)
}

func TestHandleLive_DisconnectCleansUpSubscription(t *testing.T) {
	bus, server := setupTestBridge(t, nil)
	conn := dialLive(t, server, "")

	waitForSubscriber(t, bus, pubsub.TopicTemperatureUpdates)

	conn.Close()

	require.Eventually(t, func() bool {
		return bus.SubscriberCount(pubsub.TopicTemperatureUpdates) == 0
	}, time.Second, 5*time.Millisecond)
}
