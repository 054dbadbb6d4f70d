package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Trinoooo/eggie_ipc/consts"
	"github.com/Trinoooo/eggie_ipc/errs"
	"github.com/Trinoooo/eggie_ipc/ipc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echo 原样回写，收到 bye 时关闭连接
func echo(evt *ipc.Event) {
	evt.Conn.On(ipc.EventData, func(evt *ipc.Event) {
		if evt.Data == "bye" {
			evt.Conn.Close("1000", "bye")
			return
		}
		_, _ = evt.Conn.Write([]byte(evt.Data))
	})
}

func startUnix(t *testing.T) string {
	dir, err := os.MkdirTemp("", "eggie_ipc")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	path := filepath.Join(dir, "ipc.sock")

	srv := ipc.NewUnixServer(&ipc.Options{UnixPath: path})
	srv.On(ipc.EventConnection, echo)
	require.NoError(t, srv.InstallHandlers(nil, nil))
	t.Cleanup(func() { _ = srv.Close() })
	return path
}

func startWs(t *testing.T) string {
	srv := ipc.NewWsServer(nil)
	srv.On(ipc.EventConnection, echo)
	mux := http.NewServeMux()
	require.NoError(t, srv.InstallHandlers(mux, nil))
	ts := httptest.NewServer(mux)
	t.Cleanup(func() {
		_ = srv.Close()
		ts.Close()
	})
	return "ws" + strings.TrimPrefix(ts.URL, "http") + consts.DefaultPrefix
}

func TestClient_Echo(t *testing.T) {
	cfgs := map[string]func(t *testing.T) *Config{
		consts.TransportUnix: func(t *testing.T) *Config {
			return &Config{Transport: consts.TransportUnix, UnixPath: startUnix(t)}
		},
		consts.TransportWebsocket: func(t *testing.T) *Config {
			return &Config{Transport: consts.TransportWebsocket, URL: startWs(t)}
		},
	}

	for name, build := range cfgs {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()

			c, err := Dial(ctx, build(t))
			require.NoError(t, err)
			defer c.Close()
			assert.Equal(t, name, c.Transport())

			require.NoError(t, c.Send(ctx, "ping"))
			var got string
			for len(got) < len("ping") {
				text, err := c.Recv(ctx)
				require.NoError(t, err)
				got += text
			}
			assert.Equal(t, "ping", got)

			require.NoError(t, c.Send(ctx, "bye"))
			_, err = c.Recv(ctx)
			assert.ErrorIs(t, err, io.EOF)
		})
	}
}

func TestClient_RecvTimeoutIsRecoverable(t *testing.T) {
	ctx := context.Background()
	c, err := Dial(ctx, &Config{Transport: consts.TransportUnix, UnixPath: startUnix(t)})
	require.NoError(t, err)
	defer c.Close()

	short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	_, err = c.Recv(short)
	cancel()
	assert.Equal(t, int64(errs.ReadSocketErrCode), errs.GetCode(err))

	// 超时之后连接仍可用
	longer, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	require.NoError(t, c.Send(longer, "again"))
	text, err := c.Recv(longer)
	require.NoError(t, err)
	assert.Equal(t, "again", text)
}

func TestDial_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := Dial(ctx, &Config{Transport: "carrier-pigeon"})
	assert.Equal(t, int64(errs.UnsupportedTransportErrCode), errs.GetCode(err))

	_, err = Dial(ctx, &Config{Transport: consts.TransportUnix, UnixPath: filepath.Join(t.TempDir(), "none.sock")})
	assert.Equal(t, int64(errs.DialErrCode), errs.GetCode(err))
}
