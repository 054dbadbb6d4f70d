package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/Trinoooo/eggie_ipc/consts"
	"github.com/Trinoooo/eggie_ipc/errs"
	"github.com/spf13/viper"
)

// Config 进程启动时解析一次，之后只读
type Config struct {
	Transport         string
	UnixPath          string
	Addr              string
	Prefix            string
	ReadBufferSize    int
	WriteBufferSize   int
	MaxMessageSize    int64
	SocketPermissions os.FileMode
	Metrics           MetricsConfig
}

type MetricsConfig struct {
	Enabled    bool
	Path       string
	PushURL    string
	PushPeriod time.Duration
}

// Load 按 环境变量 > 配置文件 > 默认值 的优先级加载配置。
// configPath 为空时使用 ~/eggie_ipc/config，目录下没有 config.yaml 不算错误。
func Load(configPath string) (*Config, error) {
	v, err := newViper(configPath)
	if err != nil {
		return nil, err
	}
	return FromViper(v)
}

func newViper(configPath string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	if configPath == "" {
		configPath = consts.DefaultConfigPath
	}
	v.AddConfigPath(configPath)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix(consts.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errs.NewReadConfigErr().WithErr(err)
		}
	}
	return v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(consts.KeyTransport, consts.DefaultTransport)
	v.SetDefault(consts.KeyUnixPath, consts.DefaultUnixPath)
	v.SetDefault(consts.KeyAddr, consts.DefaultAddr)
	v.SetDefault(consts.KeyPrefix, consts.DefaultPrefix)
	v.SetDefault(consts.KeyReadBufferSize, consts.DefaultReadBufferSize)
	v.SetDefault(consts.KeyWriteBufferSize, consts.DefaultWriteBufferSize)
	v.SetDefault(consts.KeyMaxMessageSize, consts.DefaultMaxMessageSize)
	v.SetDefault(consts.KeySocketPermissions, "")
	v.SetDefault(consts.KeyMetricsEnabled, false)
	v.SetDefault(consts.KeyMetricsPath, consts.DefaultMetricsPath)
	v.SetDefault(consts.KeyMetricsPushURL, "")
	v.SetDefault(consts.KeyMetricsPushPeriod, consts.DefaultMetricsPushPeriod)
}

// FromViper 把 viper 中的配置转成 Config 并校验
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Transport:       strings.ToLower(v.GetString(consts.KeyTransport)),
		UnixPath:        v.GetString(consts.KeyUnixPath),
		Addr:            v.GetString(consts.KeyAddr),
		Prefix:          v.GetString(consts.KeyPrefix),
		ReadBufferSize:  v.GetInt(consts.KeyReadBufferSize),
		WriteBufferSize: v.GetInt(consts.KeyWriteBufferSize),
		MaxMessageSize:  v.GetInt64(consts.KeyMaxMessageSize),
		Metrics: MetricsConfig{
			Enabled:    v.GetBool(consts.KeyMetricsEnabled),
			Path:       v.GetString(consts.KeyMetricsPath),
			PushURL:    v.GetString(consts.KeyMetricsPushURL),
			PushPeriod: v.GetDuration(consts.KeyMetricsPushPeriod),
		},
	}

	perm, err := ParseFileMode(v.GetString(consts.KeySocketPermissions))
	if err != nil {
		return nil, err
	}
	cfg.SocketPermissions = perm

	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) Validate() error {
	switch cfg.Transport {
	case consts.TransportUnix:
		if cfg.UnixPath == "" {
			return errs.NewInvalidParamErr().WithErr(errors.New("unix_path is empty"))
		}
	case consts.TransportWebsocket:
		if cfg.Addr == "" {
			return errs.NewInvalidParamErr().WithErr(errors.New("addr is empty"))
		}
		if !strings.HasPrefix(cfg.Prefix, "/") {
			return errs.NewInvalidParamErr().WithErr(errors.New("prefix must start with /"))
		}
	default:
		return errs.NewUnsupportedTransportErr().WithErr(errors.New(cfg.Transport))
	}

	if cfg.ReadBufferSize <= 0 || cfg.ReadBufferSize > consts.MB {
		return errs.NewInvalidParamErr().WithErr(errors.New("read_buffer_size out of range"))
	}
	if cfg.WriteBufferSize <= 0 || cfg.WriteBufferSize > consts.MB {
		return errs.NewInvalidParamErr().WithErr(errors.New("write_buffer_size out of range"))
	}
	if cfg.MaxMessageSize <= 0 || cfg.MaxMessageSize > consts.GB {
		return errs.NewInvalidParamErr().WithErr(errors.New("max_message_size out of range"))
	}
	if cfg.Metrics.PushURL != "" && cfg.Metrics.PushPeriod <= 0 {
		return errs.NewInvalidParamErr().WithErr(errors.New("metrics.push_period must be positive"))
	}
	return nil
}
