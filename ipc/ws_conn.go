package ipc

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Trinoooo/eggie_ipc/consts"
	"github.com/Trinoooo/eggie_ipc/logs"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write the close frame to the peer.
	closeWriteWait = time.Second

	// close frame 的 payload 上限 125 字节，去掉 2 字节 code
	maxCloseReasonSize = 123
)

// wsConn 是 websocket 后端的 Conn 实现
type wsConn struct {
	id      string
	remote  string
	raw     *websocket.Conn
	emitter *emitter
	logger  *logs.ComponentLogger
	metrics *MetricsHelper

	// gorilla 同一时刻只允许一个 writer
	writeMu sync.Mutex

	closing     atomic.Bool
	closeOnce   sync.Once
	releaseOnce sync.Once

	onFinish func()
}

func newWsConn(id, remote string, raw *websocket.Conn, opts *Options) *wsConn {
	logger := ipcLogger.With(
		zap.String(consts.LogFieldTransport, consts.TransportWebsocket),
		zap.String(consts.LogFieldConnID, id),
	)
	return &wsConn{
		id:      id,
		remote:  remote,
		raw:     raw,
		emitter: newEmitter(logger, connEvents...),
		logger:  logger,
		metrics: opts.Metrics,
	}
}

func (c *wsConn) ID() string {
	return c.id
}

func (c *wsConn) RemoteAddress() string {
	return c.remote
}

func (c *wsConn) Transport() Transport {
	return TransportWebsocket
}

func (c *wsConn) On(name EventName, fn HandlerFunc) Conn {
	c.emitter.on(name, fn)
	return c
}

// Write 每次调用发送一个 text frame
func (c *wsConn) Write(p []byte) (int, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.raw.WriteMessage(websocket.TextMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close 发送 close frame 后释放连接。code 解析失败或不是合法的 close code 时使用 1000。
func (c *wsConn) Close(code, reason string) bool {
	c.closeOnce.Do(func() {
		c.closing.Store(true)
		status := closeCode(code)
		if len(reason) > maxCloseReasonSize {
			reason = reason[:maxCloseReasonSize]
		}
		// WriteControl 可以和其他方法并发调用
		msg := websocket.FormatCloseMessage(status, reason)
		if err := c.raw.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteWait)); err != nil {
			c.logger.Debug("write close frame failed", zap.Error(err))
		}
		c.release()
		c.logger.Info("closed websocket conn", zap.Int(consts.LogFieldCode, status), zap.String(consts.LogFieldReason, reason))
	})
	return true
}

func (c *wsConn) release() {
	c.releaseOnce.Do(func() {
		if err := c.raw.Close(); err != nil {
			c.logger.Debug("close socket failed", zap.Error(err))
		}
	})
}

func (c *wsConn) serve(maxMessageSize int64) {
	defer c.finish()

	c.raw.SetReadLimit(maxMessageSize)
	for {
		_, message, err := c.raw.ReadMessage()
		if err != nil {
			if !c.isTermination(err) {
				c.logger.Warn("websocket conn read failed", zap.Error(err))
				c.metrics.onError(TransportWebsocket)
				c.emitter.emit(&Event{Name: EventError, Conn: c, Err: err})
			}
			return
		}

		c.metrics.onData(TransportWebsocket, len(message))
		c.emitter.emit(&Event{Name: EventData, Conn: c, Data: string(message)})
	}
}

func (c *wsConn) isTermination(err error) bool {
	if c.closing.Load() {
		return true
	}
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived)
}

func (c *wsConn) finish() {
	c.release()
	c.metrics.onClose(TransportWebsocket)
	c.emitter.emit(&Event{Name: EventClose, Conn: c})
	if c.onFinish != nil {
		c.onFinish()
	}
}

func closeCode(code string) int {
	status, err := strconv.Atoi(code)
	if err != nil || !isValidCloseCode(status) {
		return consts.WebsocketCloseNormal
	}
	return status
}

// 1005/1006/1015 只能出现在本地，不能写进 close frame
func isValidCloseCode(code int) bool {
	switch {
	case code >= 1000 && code <= 1003:
		return true
	case code >= 1007 && code <= 1014:
		return true
	case code >= 3000 && code <= 4999:
		return true
	}
	return false
}
