package ipc

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Trinoooo/eggie_ipc/consts"
	"github.com/Trinoooo/eggie_ipc/errs"
	"github.com/Trinoooo/eggie_ipc/logs"
	"github.com/Trinoooo/eggie_ipc/utils"
	"github.com/bytedance/gopkg/util/gopool"
	"github.com/luci/go-render/render"
	"go.uber.org/zap"
)

const (
	acceptBackoffMin = 5 * time.Millisecond
	acceptBackoffMax = 1 * time.Second
)

// UnixServer 在 unix socket 上提供和 websocket 后端相同的 Server 接口。
//
// 状态只有 未绑定 -> 监听中 两种，InstallHandlers 之后一直处于监听状态。
// Close 不属于 Server 接口，只给进程退出和测试使用。
type UnixServer struct {
	mutex    sync.Mutex
	opts     *Options
	listener *net.UnixListener
	emitter  *emitter
	pool     gopool.Pool
	logger   *logs.ComponentLogger

	nextID atomic.Int64
	conns  sync.Map // id -> *unixConn，只保存存活的连接

	closed atomic.Bool
	done   sync.WaitGroup
}

func NewUnixServer(opts *Options) *UnixServer {
	logger := ipcLogger.With(zap.String(consts.LogFieldTransport, consts.TransportUnix))
	pool := gopool.NewPool("eggie_ipc_unix_conn", math.MaxInt32, gopool.NewConfig())
	pool.SetPanicHandler(func(_ context.Context, r interface{}) {
		logger.Error("unix conn goroutine panic", zap.Any(consts.LogFieldValue, r))
	})

	return &UnixServer{
		opts:    opts.withDefaults(),
		emitter: newEmitter(logger, serverEvents...),
		pool:    pool,
		logger:  logger,
	}
}

func (s *UnixServer) On(name EventName, fn HandlerFunc) Server {
	s.emitter.on(name, fn)
	return s
}

// InstallHandlers 删除绑定路径上遗留的文件后开始监听，host 不会被使用。
// 遗留文件一律视为上次进程崩溃留下的，不检测是否还有进程在监听。
// 绑定失败时错误会原样通过 "listening" 事件派发，同时作为返回值返回。
func (s *UnixServer) InstallHandlers(_ Host, opts *Options) error {
	s.mutex.Lock()
	if s.closed.Load() {
		s.mutex.Unlock()
		return errs.NewServerClosedErr()
	}
	if s.listener != nil {
		s.mutex.Unlock()
		return nil
	}
	if opts != nil {
		s.opts = opts.withDefaults()
	}

	listener, err := s.listen()
	if err != nil {
		s.mutex.Unlock()
		s.logger.Error("unix server listen failed", zap.String(consts.LogFieldPath, s.opts.UnixPath), zap.Error(err))
		raw := err
		if inner := errors.Unwrap(err); inner != nil {
			raw = inner
		}
		s.emitter.emit(&Event{Name: EventListening, Err: raw})
		return err
	}
	s.listener = listener
	s.mutex.Unlock()

	s.logger.Info(fmt.Sprintf("listening on: %s", s.opts.UnixPath), zap.String(consts.LogFieldParams, render.Render(s.opts)))
	s.emitter.emit(&Event{Name: EventListening})

	s.done.Add(1)
	go s.acceptLoop(listener)
	return nil
}

func (s *UnixServer) listen() (*net.UnixListener, error) {
	path := s.opts.UnixPath
	if err := utils.EnsureParentDir(path); err != nil {
		return nil, err
	}

	removed, err := utils.RemoveIfExists(path)
	if err != nil {
		return nil, err
	}
	if removed {
		s.logger.Warn("removed previous bind artifact", zap.String(consts.LogFieldPath, path))
	}

	listener, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, errs.NewListenErr().WithErr(err)
	}
	// 和进程退出一样保留 socket 文件，下次启动时再删
	listener.SetUnlinkOnClose(false)

	if s.opts.SocketPermissions != 0 {
		if err = os.Chmod(path, s.opts.SocketPermissions); err != nil {
			_ = listener.Close()
			return nil, errs.NewChmodFileErr().WithErr(err)
		}
	}
	return listener, nil
}

// acceptLoop 串行 accept，connection handler 全部返回后才开始读数据，
// 所以 handler 的调用顺序和 accept 顺序一致。
// 只有这一个协程派发 connection 事件，不需要 WsServer 那样的 dispatchMu。
func (s *UnixServer) acceptLoop(listener *net.UnixListener) {
	defer s.done.Done()

	var backoff time.Duration
	for {
		raw, err := listener.AcceptUnix()
		if err != nil {
			if s.closed.Load() || errors.Is(err, net.ErrClosed) {
				s.logger.Info("unix listener closed, exit accept loop")
				return
			}

			if backoff == 0 {
				backoff = acceptBackoffMin
			} else if backoff *= 2; backoff > acceptBackoffMax {
				backoff = acceptBackoffMax
			}
			s.logger.Error("accept unix conn failed", zap.Error(errs.NewAcceptErr().WithErr(err)), zap.Duration("backoff", backoff))
			time.Sleep(backoff)
			continue
		}
		backoff = 0

		conn := newUnixConn(fmt.Sprintf("%s-%d", consts.TransportUnix, s.nextID.Add(1)), raw, s.opts)
		conn.onFinish = func() {
			s.conns.Delete(conn.id)
		}
		s.conns.Store(conn.id, conn)
		s.opts.Metrics.onAccept(TransportUnix)
		s.logger.Info("unix connection", zap.String(consts.LogFieldConnID, conn.id))

		s.emitter.emit(&Event{Name: EventConnection, Conn: conn})
		s.pool.Go(conn.serve)
	}
}

func (s *UnixServer) Path() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.opts.UnixPath
}

// ConnCount 当前存活的连接数
func (s *UnixServer) ConnCount() int {
	count := 0
	s.conns.Range(func(_, _ interface{}) bool {
		count++
		return true
	})
	return count
}

// Close 停止 accept 并关闭所有存活连接，socket 文件保留在原地。
func (s *UnixServer) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	s.mutex.Lock()
	listener := s.listener
	s.mutex.Unlock()

	var err error
	if listener != nil {
		err = listener.Close()
		s.done.Wait()
	}

	s.conns.Range(func(_, v interface{}) bool {
		v.(*unixConn).Close("", "server closed")
		return true
	})
	return err
}
