package client

import (
	"context"
	"io"
	"net"
	"time"

	"github.com/Trinoooo/eggie_ipc/consts"
	"github.com/Trinoooo/eggie_ipc/errs"
	"github.com/Trinoooo/eggie_ipc/utils"
	"github.com/coder/websocket"
	"github.com/pkg/errors"
)

const defaultDialTimeout = 5 * time.Second

type Config struct {
	Transport string
	// UnixPath 和 URL 按 Transport 二选一
	UnixPath    string
	URL         string
	DialTimeout time.Duration
	BufferSize  int
}

// Client 是 eggie_ipc 服务端的对端，不能并发调用 Recv
type Client struct {
	transport string

	unix    net.Conn
	decoder *utils.TextDecoder
	buf     []byte

	ws *websocket.Conn
}

func Dial(ctx context.Context, cfg *Config) (*Client, error) {
	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	switch cfg.Transport {
	case consts.TransportUnix:
		var d net.Dialer
		conn, err := d.DialContext(dialCtx, "unix", cfg.UnixPath)
		if err != nil {
			return nil, errs.NewDialErr().WithErr(errors.Wrapf(err, "dial unix %s", cfg.UnixPath))
		}
		size := cfg.BufferSize
		if size <= 0 {
			size = consts.DefaultReadBufferSize
		}
		return &Client{
			transport: cfg.Transport,
			unix:      conn,
			decoder:   utils.NewTextDecoder(),
			buf:       make([]byte, size),
		}, nil
	case consts.TransportWebsocket:
		conn, _, err := websocket.Dial(dialCtx, cfg.URL, nil)
		if err != nil {
			return nil, errs.NewDialErr().WithErr(errors.Wrapf(err, "dial websocket %s", cfg.URL))
		}
		return &Client{
			transport: cfg.Transport,
			ws:        conn,
		}, nil
	default:
		return nil, errs.NewUnsupportedTransportErr().WithErr(errors.New(cfg.Transport))
	}
}

func (c *Client) Transport() string {
	return c.transport
}

func (c *Client) Send(ctx context.Context, text string) error {
	if c.ws != nil {
		if err := c.ws.Write(ctx, websocket.MessageText, []byte(text)); err != nil {
			return errs.NewWriteSocketErr().WithErr(err)
		}
		return nil
	}

	stop := c.bindDeadline(ctx, c.unix.SetWriteDeadline)
	defer stop()
	if _, err := c.unix.Write([]byte(text)); err != nil {
		return errs.NewWriteSocketErr().WithErr(err)
	}
	return nil
}

// Recv websocket 每次返回一条消息；unix socket 没有分帧，返回当前可读的全部文本。
// 服务端关闭连接时返回 io.EOF。
// 注意 websocket 下 ctx 超时会导致连接被关闭。
func (c *Client) Recv(ctx context.Context) (string, error) {
	if c.ws != nil {
		_, data, err := c.ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				return "", io.EOF
			}
			return "", errs.NewReadSocketErr().WithErr(err)
		}
		return string(data), nil
	}

	stop := c.bindDeadline(ctx, c.unix.SetReadDeadline)
	defer stop()
	n, err := c.unix.Read(c.buf)
	atEOF := errors.Is(err, io.EOF)
	if text := c.decoder.Decode(c.buf[:n], atEOF); text != "" {
		return text, nil
	}
	if err != nil {
		if atEOF {
			return "", io.EOF
		}
		return "", errs.NewReadSocketErr().WithErr(err)
	}
	return "", nil
}

func (c *Client) Close() error {
	if c.ws != nil {
		return c.ws.Close(websocket.StatusNormalClosure, "bye")
	}
	return c.unix.Close()
}

// bindDeadline 把 ctx 的 deadline / 取消映射到 socket deadline 上
func (c *Client) bindDeadline(ctx context.Context, set func(time.Time) error) func() {
	if deadline, ok := ctx.Deadline(); ok {
		_ = set(deadline)
	} else {
		_ = set(time.Time{})
	}
	stop := context.AfterFunc(ctx, func() {
		_ = set(time.Now())
	})
	return func() { stop() }
}
