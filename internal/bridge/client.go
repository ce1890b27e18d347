package bridge

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"coldtrace-monitor/internal/pubsub"
)

const (
	// 单条消息写超时
	writeWait = 10 * time.Second

	// 等待对端 pong 的最长时间
	pongWait = 60 * time.Second

	// ping 发送周期，必须小于 pongWait
	pingPeriod = (pongWait * 9) / 10

	// 对端消息大小上限（客户端不应发送业务数据）
	maxMessageSize = 512
)

// wireMessage 推送给客户端的消息信封
type wireMessage struct {
	Topic   string      `json:"topic"`
	Payload interface{} `json:"payload"`
}

// client 单个 WebSocket 连接
// writePump 把总线事件写入连接，readPump 只负责消费控制帧、
// 感知断开。任一方向出错都会关闭订阅，进而结束另一个 pump。
type client struct {
	conn   *websocket.Conn
	sub    *pubsub.Subscription
	logger *zap.Logger
}

func newClient(conn *websocket.Conn, sub *pubsub.Subscription, logger *zap.Logger) *client {
	return &client{
		conn:   conn,
		sub:    sub,
		logger: logger,
	}
}

// readPump 读取并丢弃对端消息，直到连接断开
func (c *client) readPump() {
	defer func() {
		c.sub.Close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("Unexpected websocket close", zap.Error(err))
			}
			return
		}
	}
}

// writePump 将订阅事件写入连接，并周期性发送 ping
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.sub.Close()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.sub.Events():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// 订阅已关闭，通知对端后退出
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(wireMessage{Topic: event.Topic, Payload: event.Payload})
			if err != nil {
				c.logger.Error("Failed to marshal event", zap.String("topic", event.Topic), zap.Error(err))
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
