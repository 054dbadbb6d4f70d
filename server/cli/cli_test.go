package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Trinoooo/eggie_ipc/client"
	"github.com/Trinoooo/eggie_ipc/config"
	"github.com/Trinoooo/eggie_ipc/consts"
	"github.com/Trinoooo/eggie_ipc/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tmpDir(t *testing.T) string {
	dir, err := os.MkdirTemp("", "eggie_ipc")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return dir
}

func TestWrapper_InvalidTransport(t *testing.T) {
	wrapper := NewWrapper()
	err := wrapper.Run([]string{consts.AppName, "--config", tmpDir(t), "--transport", "carrier-pigeon"})
	require.Error(t, err)
	assert.Equal(t, int64(errs.UnsupportedTransportErrCode), errs.GetCode(err))
}

func TestWrapper_InvalidPrefix(t *testing.T) {
	wrapper := NewWrapper()
	err := wrapper.Run([]string{consts.AppName, "--config", tmpDir(t), "--transport", "websocket", "--prefix", "ipc"})
	require.Error(t, err)
	assert.Equal(t, int64(errs.InvalidParamErrCode), errs.GetCode(err))
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Transport:       consts.TransportUnix,
		UnixPath:        filepath.Join(tmpDir(t), "ipc.sock"),
		Addr:            consts.DefaultAddr,
		Prefix:          consts.DefaultPrefix,
		ReadBufferSize:  consts.DefaultReadBufferSize,
		WriteBufferSize: consts.DefaultWriteBufferSize,
		MaxMessageSize:  consts.DefaultMaxMessageSize,
	}
}

func dialEventually(t *testing.T, path string) *client.Client {
	var c *client.Client
	require.Eventually(t, func() bool {
		var err error
		c, err = client.Dial(context.Background(), &client.Config{
			Transport: consts.TransportUnix,
			UnixPath:  path,
		})
		return err == nil
	}, 3*time.Second, 10*time.Millisecond)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func recvAll(t *testing.T, c *client.Client, want int) string {
	got := ""
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	for len(got) < want {
		text, err := c.Recv(ctx)
		require.NoError(t, err)
		got += text
	}
	return got
}

func TestServe_UnixEcho(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, cfg)
	}()

	c := dialEventually(t, cfg.UnixPath)
	require.NoError(t, c.Send(context.Background(), "hello eggie"))
	assert.Equal(t, "hello eggie", recvAll(t, c, len("hello eggie")))

	require.NoError(t, c.Send(context.Background(), "bye"))
	recvCtx, recvCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer recvCancel()
	for {
		_, err := c.Recv(recvCtx)
		if err != nil {
			assert.ErrorIs(t, err, io.EOF)
			break
		}
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("serve did not return after cancel")
	}

	// 关闭后 socket 文件保留，下次启动删除
	_, err := os.Stat(cfg.UnixPath)
	assert.NoError(t, err)
}

func TestServe_BindFailure(t *testing.T) {
	cfg := testConfig(t)
	parent := filepath.Join(tmpDir(t), "file")
	require.NoError(t, os.WriteFile(parent, nil, 0644))
	cfg.UnixPath = filepath.Join(parent, "ipc.sock")

	err := serve(context.Background(), cfg)
	require.Error(t, err)
}
