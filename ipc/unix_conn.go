package ipc

import (
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/Trinoooo/eggie_ipc/consts"
	"github.com/Trinoooo/eggie_ipc/logs"
	"github.com/Trinoooo/eggie_ipc/utils"
	"go.uber.org/zap"
)

// unixConn 把一条 unix socket 连接包装成 Conn。
// 读写直接委托给底层 socket，只改写 RemoteAddress 和 Close。
type unixConn struct {
	id      string
	raw     *net.UnixConn
	emitter *emitter
	logger  *logs.ComponentLogger
	metrics *MetricsHelper

	readBufferSize int

	closing     atomic.Bool
	closeOnce   sync.Once
	releaseOnce sync.Once

	// onFinish 由 server 设置，连接结束后把自己从 server 上摘掉
	onFinish func()
}

func newUnixConn(id string, raw *net.UnixConn, opts *Options) *unixConn {
	logger := ipcLogger.With(
		zap.String(consts.LogFieldTransport, consts.TransportUnix),
		zap.String(consts.LogFieldConnID, id),
	)
	return &unixConn{
		id:             id,
		raw:            raw,
		emitter:        newEmitter(logger, connEvents...),
		logger:         logger,
		metrics:        opts.Metrics,
		readBufferSize: opts.ReadBufferSize,
	}
}

func (c *unixConn) ID() string {
	return c.id
}

func (c *unixConn) RemoteAddress() string {
	return consts.LoopbackAddress
}

func (c *unixConn) Transport() Transport {
	return TransportUnix
}

func (c *unixConn) On(name EventName, fn HandlerFunc) Conn {
	c.emitter.on(name, fn)
	return c
}

func (c *unixConn) Write(p []byte) (int, error) {
	return c.raw.Write(p)
}

// Close 先半关闭写端（对端会读到 EOF），再释放 socket。
// 没来得及被对端读走的数据可能丢失，这是预期行为。
func (c *unixConn) Close(code, reason string) bool {
	c.closeOnce.Do(func() {
		c.closing.Store(true)
		c.release()
		c.logger.Info("closed unix conn", zap.String(consts.LogFieldCode, code), zap.String(consts.LogFieldReason, reason))
	})
	return true
}

func (c *unixConn) release() {
	c.releaseOnce.Do(func() {
		if err := c.raw.CloseWrite(); err != nil {
			c.logger.Debug("close write failed", zap.Error(err))
		}
		if err := c.raw.Close(); err != nil {
			c.logger.Debug("close socket failed", zap.Error(err))
		}
	})
}

// serve 是该连接唯一的读协程，所有事件都从这里派发
func (c *unixConn) serve() {
	defer c.finish()

	// 文本固定按 utf-8 解码，被 read 截断的多字节字符留到下一次拼完整再派发
	decoder := utils.NewTextDecoder()
	buf := make([]byte, c.readBufferSize)
	for {
		n, err := c.raw.Read(buf)
		if n > 0 {
			c.metrics.onData(TransportUnix, n)
		}
		if text := decoder.Decode(buf[:n], err != nil); text != "" {
			c.emitter.emit(&Event{Name: EventData, Conn: c, Data: text})
		}
		if err != nil {
			if !c.isTermination(err) {
				c.logger.Warn("unix conn read failed", zap.Error(err))
				c.metrics.onError(TransportUnix)
				c.emitter.emit(&Event{Name: EventError, Conn: c, Err: err})
			}
			return
		}
	}
}

// isTermination 对端正常结束或者本端主动 Close 都不算错误
func (c *unixConn) isTermination(err error) bool {
	if errors.Is(err, io.EOF) {
		return true
	}
	return c.closing.Load() && errors.Is(err, net.ErrClosed)
}

// finish 无论哪一端先结束，都收敛到这里：释放 socket，触发一次 close
func (c *unixConn) finish() {
	c.release()
	c.metrics.onClose(TransportUnix)
	c.emitter.emit(&Event{Name: EventClose, Conn: c})
	if c.onFinish != nil {
		c.onFinish()
	}
}
