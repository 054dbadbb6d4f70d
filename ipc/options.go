package ipc

import (
	"os"

	"github.com/Trinoooo/eggie_ipc/config"
	"github.com/Trinoooo/eggie_ipc/consts"
)

type Options struct {
	// Prefix websocket upgrade handler 的挂载路径
	Prefix string
	// UnixPath unix socket 的绑定路径，启动时会无条件删除该路径上遗留的文件
	UnixPath string

	ReadBufferSize  int
	WriteBufferSize int
	MaxMessageSize  int64

	// SocketPermissions 为 0 时不修改 socket 文件权限
	SocketPermissions os.FileMode

	// Metrics 为 nil 时不打点
	Metrics *MetricsHelper
}

func DefaultOptions() *Options {
	return &Options{
		Prefix:          consts.DefaultPrefix,
		UnixPath:        consts.DefaultUnixPath,
		ReadBufferSize:  consts.DefaultReadBufferSize,
		WriteBufferSize: consts.DefaultWriteBufferSize,
		MaxMessageSize:  consts.DefaultMaxMessageSize,
	}
}

func NewOptions(cfg *config.Config, metrics *MetricsHelper) *Options {
	return &Options{
		Prefix:            cfg.Prefix,
		UnixPath:          cfg.UnixPath,
		ReadBufferSize:    cfg.ReadBufferSize,
		WriteBufferSize:   cfg.WriteBufferSize,
		MaxMessageSize:    cfg.MaxMessageSize,
		SocketPermissions: cfg.SocketPermissions,
		Metrics:           metrics,
	}
}

// withDefaults 返回一份副本，零值字段用默认值补齐
func (o *Options) withDefaults() *Options {
	if o == nil {
		return DefaultOptions()
	}

	opts := *o
	def := DefaultOptions()
	if opts.Prefix == "" {
		opts.Prefix = def.Prefix
	}
	if opts.UnixPath == "" {
		opts.UnixPath = def.UnixPath
	}
	if opts.ReadBufferSize <= 0 {
		opts.ReadBufferSize = def.ReadBufferSize
	}
	if opts.WriteBufferSize <= 0 {
		opts.WriteBufferSize = def.WriteBufferSize
	}
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = def.MaxMessageSize
	}
	return &opts
}
