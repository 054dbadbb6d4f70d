package consts

const (
	EnvPrefix = "EGGIE_IPC" // viper AutomaticEnv 前缀

	Env       = "EGGIE_IPC_ENV"       // 运行环境，test 时使用开发日志
	Transport = "EGGIE_IPC_TRANSPORT" // 传输方式 unix / websocket
	UnixPath  = "EGGIE_IPC_UNIX_PATH" // unix socket 绑定路径
	Addr      = "EGGIE_IPC_ADDR"      // http 监听地址
	Prefix    = "EGGIE_IPC_PREFIX"    // websocket 挂载路径
	Config    = "EGGIE_IPC_CONFIG"    // 配置文件目录
	Metrics   = "EGGIE_IPC_METRICS"   // 是否暴露 /metrics
)
