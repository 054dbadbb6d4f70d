package errs

import (
	"errors"
	"fmt"
)

type IpcErr struct {
	msg  string
	code int64
	err  error
}

// Error 输出格式：
// [错误码] 错误类型描述 ( => 包含错误详细描述 )
// 解释：(xxx) 表示可选内容
func (ie *IpcErr) Error() string {
	details := fmt.Sprintf("[%d] %s", ie.code, ie.msg)
	if ie.err != nil {
		details += fmt.Sprintf(" => %s", ie.err)
	}

	return details
}

func (ie *IpcErr) Code() int64 {
	return ie.code
}

func (ie *IpcErr) WithErr(err error) *IpcErr {
	ie.err = err
	return ie
}

func (ie *IpcErr) Unwrap() error {
	return ie.err
}

func GetCode(err error) int64 {
	var ie *IpcErr
	if errors.As(err, &ie) {
		return ie.code
	}
	return UnknownErrCode
}

const (
	UnknownErrCode              = 0
	InvalidParamErrCode         = 100001
	UnsupportedTransportErrCode = 100002
	MkdirErrCode                = 100003
	RemoveFileErrCode           = 100004
	ChmodFileErrCode            = 100005
	ListenErrCode               = 100006
	AcceptErrCode               = 100007
	UpgradeErrCode              = 100008
	ReadSocketErrCode           = 100009
	WriteSocketErrCode          = 100010
	ConnClosedErrCode           = 100011
	ReadConfigErrCode           = 100012
	DialErrCode                 = 100013
	ServerClosedErrCode         = 100014
)

func NewUnknownErr() *IpcErr {
	return &IpcErr{msg: "unknown error", code: UnknownErrCode}
}

func NewInvalidParamErr() *IpcErr {
	return &IpcErr{msg: "invalid params", code: InvalidParamErrCode}
}

func NewUnsupportedTransportErr() *IpcErr {
	return &IpcErr{msg: "unsupported transport", code: UnsupportedTransportErrCode}
}

func NewMkdirErr() *IpcErr {
	return &IpcErr{msg: "mkdir failed", code: MkdirErrCode}
}

func NewRemoveFileErr() *IpcErr {
	return &IpcErr{msg: "remove file failed", code: RemoveFileErrCode}
}

func NewChmodFileErr() *IpcErr {
	return &IpcErr{msg: "chmod file failed", code: ChmodFileErrCode}
}

func NewListenErr() *IpcErr {
	return &IpcErr{msg: "listen failed", code: ListenErrCode}
}

func NewAcceptErr() *IpcErr {
	return &IpcErr{msg: "accept connection failed", code: AcceptErrCode}
}

func NewUpgradeErr() *IpcErr {
	return &IpcErr{msg: "websocket upgrade failed", code: UpgradeErrCode}
}

func NewReadSocketErr() *IpcErr {
	return &IpcErr{msg: "read socket failed", code: ReadSocketErrCode}
}

func NewWriteSocketErr() *IpcErr {
	return &IpcErr{msg: "write socket failed", code: WriteSocketErrCode}
}

func NewConnClosedErr() *IpcErr {
	return &IpcErr{msg: "connection already closed", code: ConnClosedErrCode}
}

func NewReadConfigErr() *IpcErr {
	return &IpcErr{msg: "read config failed", code: ReadConfigErrCode}
}

func NewDialErr() *IpcErr {
	return &IpcErr{msg: "dial server failed", code: DialErrCode}
}

func NewServerClosedErr() *IpcErr {
	return &IpcErr{msg: "server already closed", code: ServerClosedErrCode}
}
