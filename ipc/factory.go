package ipc

import (
	"errors"

	"github.com/Trinoooo/eggie_ipc/errs"
)

// CreateServer 按启动时确定的传输方式返回对应后端，进程生命周期内不会再切换。
func CreateServer(transport Transport, opts *Options) (Server, error) {
	switch transport {
	case TransportUnix:
		return NewUnixServer(opts), nil
	case TransportWebsocket:
		return NewWsServer(opts), nil
	default:
		return nil, errs.NewUnsupportedTransportErr().WithErr(errors.New(string(transport)))
	}
}
