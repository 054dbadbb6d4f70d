package handle

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Trinoooo/eggie_ipc/client"
	"github.com/Trinoooo/eggie_ipc/consts"
	"github.com/pkg/errors"
)

const CmdExit = "exit"

const (
	defaultReplyTimeout = 2 * time.Second
	// unix socket 收到第一段回复后，再等这么久没有新数据就认为回复结束
	idleTimeout = 50 * time.Millisecond
)

// Session 一行输入对应一次发送，打印服务端返回的文本
type Session struct {
	client       *client.Client
	out          io.Writer
	replyTimeout time.Duration
}

func NewSession(c *client.Client, out io.Writer, replyTimeout time.Duration) *Session {
	if replyTimeout <= 0 {
		replyTimeout = defaultReplyTimeout
	}
	return &Session{
		client:       c,
		out:          out,
		replyTimeout: replyTimeout,
	}
}

// Handle 返回 true 表示 REPL 应该退出
func (s *Session) Handle(ctx context.Context, line string) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}
	if strings.EqualFold(line, CmdExit) {
		return true, nil
	}

	if err := s.client.Send(ctx, line); err != nil {
		return false, errors.Wrap(err, "send")
	}

	reply, err := s.collect(ctx)
	if reply != "" {
		_, _ = fmt.Fprintln(s.out, reply)
	}
	if errors.Is(err, io.EOF) {
		_, _ = fmt.Fprintln(s.out, "connection closed by server")
		return true, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "recv")
	}
	return false, nil
}

// collect websocket 下一条消息就是完整回复。
// unix socket 没有分帧，读到空闲超时为止。
// 注意 websocket 的读超时会关闭连接，服务端不回复时下一次 Send 会失败。
func (s *Session) collect(ctx context.Context) (string, error) {
	var sb strings.Builder
	wait := s.replyTimeout
	for {
		recvCtx, cancel := context.WithTimeout(ctx, wait)
		text, err := s.client.Recv(recvCtx)
		timedOut := recvCtx.Err() != nil || errors.Is(err, os.ErrDeadlineExceeded)
		cancel()

		sb.WriteString(text)
		if err != nil {
			if timedOut && !errors.Is(err, io.EOF) {
				return sb.String(), nil
			}
			return sb.String(), err
		}
		if sb.Len() > 0 {
			if s.client.Transport() != consts.TransportUnix {
				return sb.String(), nil
			}
			wait = idleTimeout
		}
	}
}
