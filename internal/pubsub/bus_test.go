package pubsub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestBus() *Bus {
	return NewBus(8, zap.NewNop())
}

func receiveEvent(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case event, ok := <-sub.Events():
		require.True(t, ok, "subscription channel closed unexpectedly")
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func assertNoEvent(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case event, ok := <-sub.Events():
		if ok {
			t.Fatalf("unexpected event on topic %s", event.Topic)
		}
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBus_PublishSubscribe(t *testing.T) {
	bus := newTestBus()

	sub := bus.Subscribe(TopicTemperatureUpdates)
	defer sub.Close()

	bus.Publish(TopicTemperatureUpdates, "payload-1")

	event := receiveEvent(t, sub)
	assert.Equal(t, TopicTemperatureUpdates, event.Topic)
	assert.Equal(t, "payload-1", event.Payload)
}

func TestBus_DeviceTopicIsolation(t *testing.T) {
	bus := newTestBus()

	subX := bus.Subscribe(DeviceTopic(TopicTemperatureUpdates, "device-x"))
	defer subX.Close()

	// 只发布到设备 Y 的主题，设备 X 的订阅者不应收到
	bus.Publish(DeviceTopic(TopicTemperatureUpdates, "device-y"), "for-y")
	assertNoEvent(t, subX)

	bus.Publish(DeviceTopic(TopicTemperatureUpdates, "device-x"), "for-x")
	event := receiveEvent(t, subX)
	assert.Equal(t, "for-x", event.Payload)
}

func TestBus_MultiTopicSubscription(t *testing.T) {
	bus := newTestBus()

	sub := bus.Subscribe(TopicTemperatureUpdates, TopicDeviceStatusChanged)
	defer sub.Close()

	bus.Publish(TopicDeviceStatusChanged, "status")
	bus.Publish(TopicTemperatureUpdates, "temp")

	first := receiveEvent(t, sub)
	second := receiveEvent(t, sub)
	topics := []string{first.Topic, second.Topic}
	assert.Contains(t, topics, TopicTemperatureUpdates)
	assert.Contains(t, topics, TopicDeviceStatusChanged)
}

func TestBus_NoReplayForLateSubscriber(t *testing.T) {
	bus := newTestBus()

	// 发布时没有订阅者
	bus.Publish(TopicTemperatureUpdates, "lost")

	sub := bus.Subscribe(TopicTemperatureUpdates)
	defer sub.Close()

	// 晚到的订阅者看不到历史消息
	assertNoEvent(t, sub)
}

func TestBus_CloseStopsDelivery(t *testing.T) {
	bus := newTestBus()

	sub := bus.Subscribe(TopicTemperatureUpdates)
	sub.Close()

	// 取消订阅后发布不会 panic，也不会投递
	bus.Publish(TopicTemperatureUpdates, "after-close")

	_, ok := <-sub.Events()
	assert.False(t, ok, "channel should be closed")

	// 重复 Close 安全
	sub.Close()
}

func TestBus_TopicGarbageCollection(t *testing.T) {
	bus := newTestBus()

	sub1 := bus.Subscribe(TopicPing)
	sub2 := bus.Subscribe(TopicPing)
	assert.Equal(t, 1, bus.TopicCount())
	assert.Equal(t, 2, bus.SubscriberCount(TopicPing))

	sub1.Close()
	assert.Equal(t, 1, bus.SubscriberCount(TopicPing))

	// 最后一个订阅者离开后主题被回收
	sub2.Close()
	assert.Equal(t, 0, bus.TopicCount())
}

func TestBus_SlowSubscriberDropsMessages(t *testing.T) {
	bus := NewBus(2, zap.NewNop())

	sub := bus.Subscribe(TopicTemperatureUpdates)
	defer sub.Close()

	// 缓冲区大小为 2，发布 5 条不会阻塞发布方
	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			bus.Publish(TopicTemperatureUpdates, i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher blocked by slow subscriber")
	}

	// 只有缓冲区内的前 2 条被保留
	assert.Equal(t, 0, receiveEvent(t, sub).Payload)
	assert.Equal(t, 1, receiveEvent(t, sub).Payload)
	assertNoEvent(t, sub)
}

func TestBus_ConcurrentPublishSubscribe(t *testing.T) {
	bus := NewBus(64, zap.NewNop())

	stop := make(chan struct{})
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
				bus.Publish(TopicTemperatureUpdates, "x")
			}
		}
	}()

	// 并发订阅/取消不应与发布互相破坏
	for i := 0; i < 50; i++ {
		sub := bus.Subscribe(TopicTemperatureUpdates)
		sub.Close()
	}
	close(stop)
}
