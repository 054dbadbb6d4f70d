package ipc

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/Trinoooo/eggie_ipc/consts"
	"github.com/Trinoooo/eggie_ipc/errs"
)

var (
	_ Server = &UnixServer{}
	_ Server = &WsServer{}
	_ Conn   = &unixConn{}
	_ Conn   = &wsConn{}
)

type Transport string

const (
	TransportUnix      Transport = consts.TransportUnix
	TransportWebsocket Transport = consts.TransportWebsocket
)

func ParseTransport(s string) (Transport, error) {
	switch t := Transport(strings.ToLower(s)); t {
	case TransportUnix, TransportWebsocket:
		return t, nil
	default:
		return "", errs.NewUnsupportedTransportErr().WithErr(errors.New(s))
	}
}

type EventName string

const (
	// server 事件
	EventConnection EventName = "connection"
	EventListening  EventName = "listening"

	// conn 事件
	EventData  EventName = "data"
	EventClose EventName = "close"
	EventError EventName = "error"
)

// Event 是传给 HandlerFunc 的事件，只有与 Name 相关的字段会被填充：
// connection/data/close/error 带 Conn，data 带 Data，error 带 Err，
// listening 绑定失败时 Err 为底层错误，成功时为 nil。
type Event struct {
	Name EventName
	Conn Conn
	Data string
	Err  error
}

type HandlerFunc func(evt *Event)

// Host 是 websocket 后端挂载 upgrade handler 的宿主，*http.ServeMux 即满足。
// unix 后端忽略它。
type Host interface {
	Handle(pattern string, handler http.Handler)
}

// Server 是两种传输方式统一对外的服务端接口。
//
// On 只识别 "connection" 和 "listening"，其他事件名不会报错，只是永远不会被触发。
type Server interface {
	InstallHandlers(host Host, opts *Options) error
	On(name EventName, fn HandlerFunc) Server
}

// Conn 是一条已建立的连接。
//
// 事件 "data" / "close" / "error" 都在该连接自己的读协程里按顺序派发，
// 同一条连接的 handler 不会并发执行。"close" 只触发一次，之后不再有 "data"。
//
// Close 可以重复调用、可以并发调用，每次都返回 true，
// 返回值不代表连接此前是否已关闭，需要确认关闭的调用方应等待 "close" 事件。
type Conn interface {
	io.Writer
	ID() string
	// RemoteAddress unix socket 没有对端网络地址，固定返回 consts.LoopbackAddress 占位
	RemoteAddress() string
	Transport() Transport
	On(name EventName, fn HandlerFunc) Conn
	Close(code, reason string) bool
}
