package ipc

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Trinoooo/eggie_ipc/errs"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWsServer(t *testing.T, opts *Options) (*WsServer, *httptest.Server, <-chan Conn) {
	srv := NewWsServer(opts)
	conns := make(chan Conn, 16)
	srv.On(EventConnection, func(evt *Event) {
		conns <- evt.Conn
	})

	mux := http.NewServeMux()
	require.NoError(t, srv.InstallHandlers(mux, nil))
	ts := httptest.NewServer(mux)
	t.Cleanup(func() {
		_ = srv.Close()
		ts.Close()
	})
	return srv, ts, conns
}

func dialWs(t *testing.T, ts *httptest.Server, prefix string, header http.Header) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + prefix
	c, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestWsServer_InstallHandlers(t *testing.T) {
	srv := NewWsServer(&Options{Prefix: "/sock"})

	var listening atomic.Int32
	srv.On(EventListening, func(evt *Event) {
		assert.NoError(t, evt.Err)
		listening.Add(1)
	})

	mux := http.NewServeMux()
	require.NoError(t, srv.InstallHandlers(mux, nil))
	require.NoError(t, srv.InstallHandlers(mux, nil))
	assert.Equal(t, int32(1), listening.Load())

	// 挂载在 prefix 上，其他路径 404
	ts := httptest.NewServer(mux)
	defer ts.Close()
	resp, err := http.Get(ts.URL + "/other")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	dialWs(t, ts, "/sock", nil)
}

func TestWsServer_NilHost(t *testing.T) {
	srv := NewWsServer(nil)
	var gotErr error
	srv.On(EventListening, func(evt *Event) {
		gotErr = evt.Err
	})

	err := srv.InstallHandlers(nil, nil)
	assert.Equal(t, int64(errs.InvalidParamErrCode), errs.GetCode(err))
	require.Error(t, gotErr)
	assert.Equal(t, int64(errs.UnknownErrCode), errs.GetCode(gotErr), "raw error is forwarded unwrapped")
	assert.ErrorIs(t, err, gotErr)
}

func TestWsConn_Data(t *testing.T) {
	srv := NewWsServer(nil)
	dc := &dataCollector{}
	var remote atomic.Value
	srv.On(EventConnection, func(evt *Event) {
		remote.Store(evt.Conn.RemoteAddress())
		evt.Conn.On(EventData, dc.handle)
	})
	mux := http.NewServeMux()
	require.NoError(t, srv.InstallHandlers(mux, nil))
	ts := httptest.NewServer(mux)
	defer ts.Close()

	client := dialWs(t, ts, DefaultOptions().Prefix, nil)
	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte("ping")))

	assert.Eventually(t, func() bool { return dc.String() == "ping" }, waitTimeout, 10*time.Millisecond)
	assert.Equal(t, "127.0.0.1", remote.Load())
}

func TestWsConn_ForwardedRemoteAddress(t *testing.T) {
	_, ts, conns := startWsServer(t, nil)

	header := http.Header{}
	header.Set("X-Forwarded-For", "10.0.0.7, 10.0.0.1")
	dialWs(t, ts, DefaultOptions().Prefix, header)

	c := waitConn(t, conns)
	assert.Equal(t, "10.0.0.7", c.RemoteAddress())
	assert.Equal(t, TransportWebsocket, c.Transport())
	assert.Equal(t, "websocket-1", c.ID())
}

func TestWsConn_Write(t *testing.T) {
	_, ts, conns := startWsServer(t, nil)
	client := dialWs(t, ts, DefaultOptions().Prefix, nil)
	c := waitConn(t, conns)

	_, err := c.Write([]byte("hello"))
	require.NoError(t, err)

	_ = client.SetReadDeadline(time.Now().Add(waitTimeout))
	mt, msg, err := client.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, mt)
	assert.Equal(t, "hello", string(msg))
}

func TestWsConn_Close(t *testing.T) {
	srv, ts, conns := startWsServer(t, nil)
	client := dialWs(t, ts, DefaultOptions().Prefix, nil)
	c := waitConn(t, conns)

	var closed, errored atomic.Int32
	c.On(EventClose, func(evt *Event) { closed.Add(1) }).
		On(EventError, func(evt *Event) { errored.Add(1) })

	assert.True(t, c.Close("4001", "done"))
	assert.True(t, c.Close("", ""))

	_ = client.SetReadDeadline(time.Now().Add(waitTimeout))
	_, _, err := client.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, 4001), "got %v", err)

	assert.Eventually(t, func() bool { return closed.Load() == 1 }, waitTimeout, 10*time.Millisecond)
	assert.Equal(t, int32(0), errored.Load())
	assert.Eventually(t, func() bool { return srv.ConnCount() == 0 }, waitTimeout, 10*time.Millisecond)
	assert.True(t, c.Close("1000", "again"))
}

func TestWsConn_PeerClose(t *testing.T) {
	_, ts, conns := startWsServer(t, nil)
	client := dialWs(t, ts, DefaultOptions().Prefix, nil)
	c := waitConn(t, conns)

	var closed, errored atomic.Int32
	c.On(EventClose, func(evt *Event) { closed.Add(1) }).
		On(EventError, func(evt *Event) { errored.Add(1) })

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
	require.NoError(t, client.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)))

	assert.Eventually(t, func() bool { return closed.Load() == 1 }, waitTimeout, 10*time.Millisecond)
	assert.Equal(t, int32(0), errored.Load())
}

func TestWsConn_AbnormalClose(t *testing.T) {
	_, ts, conns := startWsServer(t, nil)
	client := dialWs(t, ts, DefaultOptions().Prefix, nil)
	c := waitConn(t, conns)

	var closed atomic.Int32
	errCh := make(chan error, 1)
	c.On(EventClose, func(evt *Event) { closed.Add(1) }).
		On(EventError, func(evt *Event) { errCh <- evt.Err })

	// 不发 close frame 直接断开 tcp
	require.NoError(t, client.UnderlyingConn().Close())

	select {
	case err := <-errCh:
		assert.True(t, websocket.IsCloseError(err, websocket.CloseAbnormalClosure), "got %v", err)
	case <-time.After(waitTimeout):
		t.Fatal("wait error event timeout")
	}
	assert.Eventually(t, func() bool { return closed.Load() == 1 }, waitTimeout, 10*time.Millisecond)
}

func TestWsServer_RejectAfterClose(t *testing.T) {
	srv, ts, _ := startWsServer(t, nil)
	require.NoError(t, srv.Close())

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + DefaultOptions().Prefix
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	assert.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestCloseCode(t *testing.T) {
	assert.Equal(t, 1000, closeCode(""))
	assert.Equal(t, 1000, closeCode("abc"))
	assert.Equal(t, 1000, closeCode("1006"))
	assert.Equal(t, 1001, closeCode("1001"))
	assert.Equal(t, 4000, closeCode("4000"))
	assert.Equal(t, 1000, closeCode("5000"))
}
