package cli

import (
	"context"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Trinoooo/eggie_ipc/config"
	"github.com/Trinoooo/eggie_ipc/consts"
	"github.com/Trinoooo/eggie_ipc/errs"
	"github.com/Trinoooo/eggie_ipc/ipc"
	"github.com/Trinoooo/eggie_ipc/logs"
	"github.com/luci/go-render/render"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

var (
	flagConfig = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Value:   consts.DefaultConfigPath,
		Usage:   "directory holding config.yaml.",
		EnvVars: []string{consts.Config},
	}
	flagTransport = &cli.StringFlag{
		Name:    "transport",
		Aliases: []string{"t"},
		Value:   consts.DefaultTransport,
		Usage:   "ipc transport, unix or websocket.",
		Action: func(c *cli.Context, transport string) error {
			if _, err := ipc.ParseTransport(transport); err != nil {
				logs.Error(err.Error(), zap.String(consts.LogFieldParams, "transport"), zap.String(consts.LogFieldValue, transport))
				return err
			}
			return nil
		},
		EnvVars: []string{consts.Transport},
	}
	flagUnixPath = &cli.StringFlag{
		Name:    "unix-path",
		Aliases: []string{"u"},
		Value:   consts.DefaultUnixPath,
		Usage:   "unix socket bind path, a stale file on it is removed at startup.",
		Action: func(c *cli.Context, path string) error {
			if path == "" {
				e := errs.NewInvalidParamErr()
				logs.Error(e.Error(), zap.String(consts.LogFieldParams, "unix-path"), zap.String(consts.LogFieldValue, path))
				return e
			}
			return nil
		},
		EnvVars: []string{consts.UnixPath},
	}
	flagAddr = &cli.StringFlag{
		Name:    "addr",
		Aliases: []string{"a"},
		Value:   consts.DefaultAddr,
		Usage:   "http listen address for websocket and metrics.",
		EnvVars: []string{consts.Addr},
	}
	flagPrefix = &cli.StringFlag{
		Name:    "prefix",
		Aliases: []string{"p"},
		Value:   consts.DefaultPrefix,
		Usage:   "websocket endpoint path.",
		EnvVars: []string{consts.Prefix},
	}
	flagMetrics = &cli.BoolFlag{
		Name:    "metrics",
		Aliases: []string{"m"},
		Value:   false,
		Usage:   "set this flag to expose prometheus metrics on addr.",
		EnvVars: []string{consts.Metrics},
	}
)

type Wrapper struct {
	app *cli.App
}

func NewWrapper() *Wrapper {
	wrapper := &Wrapper{
		app: &cli.App{
			Name:    consts.AppName,
			Usage:   "serve ipc connections over unix socket or websocket",
			Version: consts.AppVersion,
		},
	}
	wrapper.modifyDefaultHelp()
	wrapper.withFlags()
	wrapper.withAction()
	wrapper.withAuthor()
	return wrapper
}

func (wrapper *Wrapper) Run(args []string) error {
	return wrapper.app.Run(args)
}

func (wrapper *Wrapper) modifyDefaultHelp() {
	cli.HelpFlag = &cli.BoolFlag{
		Name: "help",
	}
	cli.AppHelpTemplate = consts.HelpTemplate
}

func (wrapper *Wrapper) withFlags() {
	wrapper.app.Flags = []cli.Flag{
		flagConfig,
		flagTransport,
		flagUnixPath,
		flagAddr,
		flagPrefix,
		flagMetrics,
	}
}

func (wrapper *Wrapper) withAction() {
	wrapper.app.Action = func(ctx *cli.Context) error {
		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		logs.Info("config loaded", zap.String(consts.LogFieldParams, render.Render(cfg)))

		runCtx, stop := signal.NotifyContext(ctx.Context, syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(runCtx, cfg)
	}
}

func (wrapper *Wrapper) withAuthor() {
	wrapper.app.Authors = []*cli.Author{
		{
			Name:  "Trino",
			Email: "sujun.trinoooo@gmail.com",
		},
	}
}

// loadConfig 命令行显式传入的参数覆盖配置文件
func loadConfig(ctx *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(ctx.String(flagConfig.Name))
	if err != nil {
		return nil, err
	}

	if ctx.IsSet(flagTransport.Name) {
		cfg.Transport = ctx.String(flagTransport.Name)
	}
	if ctx.IsSet(flagUnixPath.Name) {
		cfg.UnixPath = ctx.String(flagUnixPath.Name)
	}
	if ctx.IsSet(flagAddr.Name) {
		cfg.Addr = ctx.String(flagAddr.Name)
	}
	if ctx.IsSet(flagPrefix.Name) {
		cfg.Prefix = ctx.String(flagPrefix.Name)
	}
	if ctx.IsSet(flagMetrics.Name) {
		cfg.Metrics.Enabled = ctx.Bool(flagMetrics.Name)
	}

	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// serve 阻塞到 ctx 结束。传输方式在这里确定一次，之后不再变化。
func serve(ctx context.Context, cfg *config.Config) error {
	transport, err := ipc.ParseTransport(cfg.Transport)
	if err != nil {
		return err
	}

	var metrics *ipc.MetricsHelper
	if cfg.Metrics.Enabled || cfg.Metrics.PushURL != "" {
		metrics = ipc.NewMetricsHelper()
	}

	srv, err := ipc.CreateServer(transport, ipc.NewOptions(cfg, metrics))
	if err != nil {
		return err
	}

	app := NewEchoApp()
	srv.On(ipc.EventListening, app.OnListening).
		On(ipc.EventConnection, app.OnConnection)

	mux := http.NewServeMux()
	if metrics != nil && cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, metrics.Handler())
	}
	if err = srv.InstallHandlers(mux, nil); err != nil {
		return err
	}

	eg, egCtx := errgroup.WithContext(ctx)
	if transport == ipc.TransportWebsocket || (metrics != nil && cfg.Metrics.Enabled) {
		httpServer := &http.Server{
			Addr:              cfg.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		eg.Go(func() error {
			logs.Info("http server listening", zap.String(consts.LogFieldAddr, cfg.Addr))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return errors.Wrapf(err, "http server on %s", cfg.Addr)
			}
			return nil
		})
		eg.Go(func() error {
			<-egCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return errors.Wrap(httpServer.Shutdown(shutdownCtx), "shutdown http server")
		})
	}
	if metrics != nil && cfg.Metrics.PushURL != "" {
		eg.Go(func() error {
			metrics.StartPush(egCtx, cfg.Metrics.PushURL, cfg.Metrics.PushPeriod)
			return nil
		})
	}
	eg.Go(func() error {
		<-egCtx.Done()
		logs.Info("shutdown...")
		if closer, ok := srv.(io.Closer); ok {
			return closer.Close()
		}
		return nil
	})

	return eg.Wait()
}
