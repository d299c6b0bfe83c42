package collab

import (
	"sync"
	"time"

	"PPicture/logger"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ConnConf websocket 连接参数
type ConnConf struct {
	SendQueue       int           // 每连接发送队列
	WriteTimeout    time.Duration // 单帧写超时
	PingInterval    time.Duration
	PongWait        time.Duration // 超过未收到 pong 视为断开
	MaxMessageBytes int64
}

func (c *ConnConf) norm() {
	if c.SendQueue <= 0 {
		c.SendQueue = 256
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 25 * time.Second
	}
	if c.PongWait <= c.PingInterval {
		c.PongWait = c.PingInterval * 12 / 5
	}
	if c.MaxMessageBytes <= 0 {
		c.MaxMessageBytes = 64 * 1024
	}
}

// wsConn 写协程独占底层连接的写操作（gorilla 不允许并发写）
type wsConn struct {
	ws   *websocket.Conn
	conf ConnConf

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	exited    chan struct{}
}

func newWsConn(ws *websocket.Conn, conf ConnConf) *wsConn {
	c := &wsConn{
		ws:     ws,
		conf:   conf,
		send:   make(chan []byte, conf.SendQueue),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	go c.writePump()
	return c
}

// Send 非阻塞入队；队列满说明对端太慢，直接断开
func (c *wsConn) Send(data []byte) error {
	select {
	case <-c.done:
		return ErrSessionClosed.Wrap()
	default:
	}
	select {
	case c.send <- data:
		return nil
	default:
		logger.Warn("[WS] send queue full, closing slow peer", zap.String("remote", c.RemoteAddr()))
		_ = c.Close()
		return ErrSlowConsumer.Wrap()
	}
}

func (c *wsConn) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

func (c *wsConn) RemoteAddr() string {
	if a := c.ws.RemoteAddr(); a != nil {
		return a.String()
	}
	return ""
}

func (c *wsConn) writePump() {
	ticker := time.NewTicker(c.conf.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.ws.SetWriteDeadline(time.Now().Add(c.conf.WriteTimeout))
		_ = c.ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		closeQuiet(c.ws)
		close(c.exited)
	}()
	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			if err := c.write(websocket.TextMessage, data); err != nil {
				logger.Debug("[WS] write failed", zap.String("remote", c.RemoteAddr()), zap.Error(err))
				_ = c.Close()
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				logger.Debug("[WS] ping failed", zap.String("remote", c.RemoteAddr()), zap.Error(err))
				_ = c.Close()
				return
			}
		}
	}
}

func (c *wsConn) write(mt int, data []byte) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(c.conf.WriteTimeout))
	return c.ws.WriteMessage(mt, data)
}

func closeQuiet(ws *websocket.Conn) {
	if ws == nil {
		return
	}
	_ = ws.Close()
}
