package pubsub

import (
	"sync"

	"go.uber.org/zap"
)

// Event 总线事件
type Event struct {
	Topic   string
	Payload interface{}
}

// Bus 进程内发布/订阅总线
// 主题在首次订阅时惰性创建，最后一个订阅者离开时回收。
// 投递语义为 best effort：订阅者缓冲区写满时丢弃消息而不阻塞发布方；
// 订阅晚于发布的消息不会补发（无回放缓冲）。
type Bus struct {
	mu     sync.RWMutex
	topics map[string]map[*Subscription]struct{}
	buffer int
	logger *zap.Logger
}

// Subscription 订阅句柄
// Events 通道在 Close 后关闭，订阅者通过 range 循环可自然退出。
type Subscription struct {
	bus    *Bus
	topics []string
	events chan Event
	once   sync.Once
}

// NewBus 创建事件总线
// buffer 为每个订阅者的通道缓冲区大小。
func NewBus(buffer int, logger *zap.Logger) *Bus {
	if buffer <= 0 {
		buffer = 16
	}
	return &Bus{
		topics: make(map[string]map[*Subscription]struct{}),
		buffer: buffer,
		logger: logger,
	}
}

// Subscribe 订阅一个或多个主题，返回订阅句柄
// 多主题订阅用于按设备过滤：只看设备 X 的订阅者订阅
// TEMPERATURE_UPDATES_X，而不是自行过滤全局流。
func (b *Bus) Subscribe(topics ...string) *Subscription {
	sub := &Subscription{
		bus:    b,
		topics: topics,
		events: make(chan Event, b.buffer),
	}

	b.mu.Lock()
	for _, topic := range topics {
		subs, ok := b.topics[topic]
		if !ok {
			subs = make(map[*Subscription]struct{})
			b.topics[topic] = subs
		}
		subs[sub] = struct{}{}
	}
	b.mu.Unlock()

	return sub
}

// Publish 向主题的当前订阅者投递事件
// 没有订阅者的主题直接丢弃消息。
func (b *Bus) Publish(topic string, payload interface{}) {
	event := Event{Topic: topic, Payload: payload}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.topics[topic] {
		select {
		case sub.events <- event:
		default:
			// 订阅者消费过慢，丢弃本条消息
			b.logger.Warn("Subscriber buffer full, dropping event",
				zap.String("topic", topic),
			)
		}
	}
}

// Events 返回事件接收通道
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Close 取消订阅并关闭事件通道
// 总线不再持有该订阅者的任何引用；重复调用安全。
func (s *Subscription) Close() {
	s.once.Do(func() {
		b := s.bus
		b.mu.Lock()
		for _, topic := range s.topics {
			subs, ok := b.topics[topic]
			if !ok {
				continue
			}
			delete(subs, s)
			if len(subs) == 0 {
				delete(b.topics, topic)
			}
		}
		// 在锁内关闭，避免与并发 Publish 的发送竞争
		close(s.events)
		b.mu.Unlock()
	})
}

// TopicCount 当前存在订阅者的主题数
func (b *Bus) TopicCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics)
}

// SubscriberCount 指定主题的订阅者数
func (b *Bus) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}
