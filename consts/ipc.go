package consts

import "time"

// 配置项 key，与 yaml 文件中的字段一一对应
const (
	KeyTransport         = "transport"
	KeyUnixPath          = "unix_path"
	KeyAddr              = "addr"
	KeyPrefix            = "prefix"
	KeyReadBufferSize    = "read_buffer_size"
	KeyWriteBufferSize   = "write_buffer_size"
	KeyMaxMessageSize    = "max_message_size"
	KeySocketPermissions = "socket_permissions"
	KeyMetricsEnabled    = "metrics.enabled"
	KeyMetricsPath       = "metrics.path"
	KeyMetricsPushURL    = "metrics.push_url"
	KeyMetricsPushPeriod = "metrics.push_period"
)

const (
	TransportUnix      = "unix"
	TransportWebsocket = "websocket"

	DefaultTransport = TransportUnix
	DefaultUnixPath  = "/tmp/eggie-ipc.sock"
	DefaultAddr      = "127.0.0.1:8015"
	DefaultPrefix    = "/ipc"

	DefaultReadBufferSize  = 4 * KB
	DefaultWriteBufferSize = 4 * KB
	DefaultMaxMessageSize  = 1 * MB

	DefaultMetricsPath       = "/metrics"
	DefaultMetricsPushPeriod = 5 * time.Second
)

// LoopbackAddress 是 unix socket 连接对外暴露的 remote address。
// unix socket 没有网络层的对端地址，这里只是占位值，不代表真实的对端。
const LoopbackAddress = "127.0.0.1"

// WebsocketCloseNormal 调用方没有传 close code 时使用
const WebsocketCloseNormal = 1000
