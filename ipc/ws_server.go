package ipc

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/Trinoooo/eggie_ipc/consts"
	"github.com/Trinoooo/eggie_ipc/errs"
	"github.com/Trinoooo/eggie_ipc/logs"
	"github.com/Trinoooo/eggie_ipc/utils"
	"github.com/gorilla/websocket"
	"github.com/luci/go-render/render"
	"go.uber.org/zap"
)

// WsServer 是 websocket 后端：把 upgrade handler 挂到调用方的 http mux 上，
// http server 的生命周期由调用方负责。
type WsServer struct {
	mutex     sync.Mutex
	opts      *Options
	upgrader  websocket.Upgrader
	installed bool
	emitter   *emitter
	logger    *logs.ComponentLogger

	// 保证 connection handler 不会并发执行
	dispatchMu sync.Mutex

	nextID atomic.Int64
	conns  sync.Map

	closed atomic.Bool
}

func NewWsServer(opts *Options) *WsServer {
	logger := ipcLogger.With(zap.String(consts.LogFieldTransport, consts.TransportWebsocket))
	return &WsServer{
		opts:    opts.withDefaults(),
		emitter: newEmitter(logger, serverEvents...),
		logger:  logger,
	}
}

func (s *WsServer) On(name EventName, fn HandlerFunc) Server {
	s.emitter.on(name, fn)
	return s
}

func (s *WsServer) InstallHandlers(host Host, opts *Options) error {
	if host == nil {
		raw := errors.New("websocket server needs a host mux")
		s.emitter.emit(&Event{Name: EventListening, Err: raw})
		return errs.NewInvalidParamErr().WithErr(raw)
	}

	s.mutex.Lock()
	if s.closed.Load() {
		s.mutex.Unlock()
		return errs.NewServerClosedErr()
	}
	if s.installed {
		s.mutex.Unlock()
		return nil
	}
	if opts != nil {
		s.opts = opts.withDefaults()
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  s.opts.ReadBufferSize,
		WriteBufferSize: s.opts.WriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	host.Handle(s.opts.Prefix, s)
	s.installed = true
	s.mutex.Unlock()

	s.logger.Info(fmt.Sprintf("websocket handler installed on: %s", s.opts.Prefix), zap.String(consts.LogFieldParams, render.Render(s.opts)))
	s.emitter.emit(&Event{Name: EventListening})
	return nil
}

func (s *WsServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.closed.Load() {
		http.Error(w, "server closed", http.StatusServiceUnavailable)
		return
	}

	raw, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade 已经写过错误响应
		s.logger.Warn("websocket upgrade failed", zap.Error(errs.NewUpgradeErr().WithErr(err)))
		return
	}

	conn := newWsConn(fmt.Sprintf("%s-%d", consts.TransportWebsocket, s.nextID.Add(1)), remoteAddress(r), raw, s.opts)
	conn.onFinish = func() {
		s.conns.Delete(conn.id)
	}
	s.conns.Store(conn.id, conn)
	s.opts.Metrics.onAccept(TransportWebsocket)
	s.logger.Info("websocket connection", zap.String(consts.LogFieldConnID, conn.id), zap.String(consts.LogFieldAddr, conn.remote))

	utils.WrapLock(&s.dispatchMu, func() {
		s.emitter.emit(&Event{Name: EventConnection, Conn: conn})
	})
	conn.serve(s.opts.MaxMessageSize)
}

func (s *WsServer) ConnCount() int {
	count := 0
	s.conns.Range(func(_, _ interface{}) bool {
		count++
		return true
	})
	return count
}

// Close 关闭所有存活连接，之后的 upgrade 请求返回 503
func (s *WsServer) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.conns.Range(func(_, v interface{}) bool {
		v.(*wsConn).Close("1001", "server closed")
		return true
	})
	return nil
}

// remoteAddress 优先取 X-Forwarded-For 的第一跳
func remoteAddress(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
