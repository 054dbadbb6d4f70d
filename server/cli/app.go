package cli

import (
	"strings"
	"sync/atomic"

	"github.com/Trinoooo/eggie_ipc/consts"
	"github.com/Trinoooo/eggie_ipc/ipc"
	"github.com/Trinoooo/eggie_ipc/logs"
	"go.uber.org/zap"
)

const byeCommand = "bye"

// EchoApp 是 daemon 自带的演示应用：原样回写收到的文本，收到 bye 时断开
type EchoApp struct {
	logger *logs.ComponentLogger
	active atomic.Int64
}

func NewEchoApp() *EchoApp {
	return &EchoApp{
		logger: logs.NewComponentLogger("echo"),
	}
}

func (a *EchoApp) Active() int64 {
	return a.active.Load()
}

func (a *EchoApp) OnListening(evt *ipc.Event) {
	if evt.Err != nil {
		a.logger.Error("server listen failed", zap.Error(evt.Err))
		return
	}
	a.logger.Info("server listening")
}

func (a *EchoApp) OnConnection(evt *ipc.Event) {
	conn := evt.Conn
	a.active.Add(1)
	a.logger.Info("client connected",
		zap.String(consts.LogFieldConnID, conn.ID()),
		zap.String(consts.LogFieldAddr, conn.RemoteAddress()),
		zap.String(consts.LogFieldTransport, string(conn.Transport())),
	)

	conn.On(ipc.EventData, a.onData).
		On(ipc.EventError, a.onError).
		On(ipc.EventClose, a.onClose)
}

func (a *EchoApp) onData(evt *ipc.Event) {
	if strings.TrimSpace(evt.Data) == byeCommand {
		evt.Conn.Close("1000", byeCommand)
		return
	}
	if _, err := evt.Conn.Write([]byte(evt.Data)); err != nil {
		a.logger.Warn("echo failed", zap.String(consts.LogFieldConnID, evt.Conn.ID()), zap.Error(err))
	}
}

func (a *EchoApp) onError(evt *ipc.Event) {
	a.logger.Warn("client conn error", zap.String(consts.LogFieldConnID, evt.Conn.ID()), zap.Error(evt.Err))
}

func (a *EchoApp) onClose(evt *ipc.Event) {
	a.active.Add(-1)
	a.logger.Info("client disconnected", zap.String(consts.LogFieldConnID, evt.Conn.ID()))
}
