package hub

import (
	"sync"

	"securewave_server/pkg/constants"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Conn 基于 gorilla/websocket 的 Peer 实现
// 读写分离：readLoop 收帧交给 Hub 分发，writeLoop 消费发送缓冲
type Conn struct {
	id   string
	ws   *websocket.Conn
	hub  *Hub
	send chan []byte
	done chan struct{}
	once sync.Once
}

// NewConn 包装一条已升级的 WebSocket 连接
func NewConn(ws *websocket.Conn, h *Hub) *Conn {
	return &Conn{
		id:   uuid.NewString(),
		ws:   ws,
		hub:  h,
		send: make(chan []byte, constants.CHANNEL_SIZE),
		done: make(chan struct{}),
	}
}

func (c *Conn) ID() string {
	return c.id
}

// Send 将数据放入发送缓冲
// 缓冲满时丢弃该帧并记录日志，避免慢客户端阻塞 Hub
func (c *Conn) Send(data []byte) {
	select {
	case c.send <- data:
	default:
		zap.L().Warn("发送缓冲已满，丢弃数据帧",
			zap.String("conn_id", c.id))
	}
}

// Close 关闭连接，幂等
func (c *Conn) Close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

// Serve 注册连接并启动读写循环，阻塞直到连接关闭
func (c *Conn) Serve() {
	c.hub.Register(c)
	go c.writeLoop()
	c.readLoop()
}

func (c *Conn) readLoop() {
	defer func() {
		c.hub.Disconnect(c)
		c.Close()
	}()
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zap.L().Warn("连接异常关闭",
					zap.String("conn_id", c.id), zap.Error(err))
			}
			return
		}
		c.hub.Dispatch(c, data)
	}
}

func (c *Conn) writeLoop() {
	defer c.Close()
	for {
		select {
		case data := <-c.send:
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				zap.L().Warn("写入失败，关闭连接",
					zap.String("conn_id", c.id), zap.Error(err))
				return
			}
		case <-c.done:
			return
		}
	}
}
