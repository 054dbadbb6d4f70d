//go:build unix

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Trinoooo/eggie_ipc/client"
	"github.com/Trinoooo/eggie_ipc/consts"
	"github.com/Trinoooo/eggie_ipc/errs"
	"github.com/Trinoooo/eggie_ipc/interactive/cli/handle"
	"github.com/Trinoooo/eggie_ipc/logs"
	"github.com/Trinoooo/eggie_ipc/utils"
	"github.com/chzyer/readline"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	wrapper := NewCliWrapper()
	if err := wrapper.Run(os.Args); err != nil {
		logs.Fatal("eggie_ipc_client exit", zap.Error(err))
	}
}

var (
	flagTransport = &cli.StringFlag{
		Name:    "transport",
		Aliases: []string{"t"},
		Value:   consts.DefaultTransport,
		Usage:   "ipc transport, unix or websocket.",
		Action: func(c *cli.Context, transport string) error {
			if transport != consts.TransportUnix && transport != consts.TransportWebsocket {
				return errs.NewUnsupportedTransportErr().WithErr(errors.New(transport))
			}
			return nil
		},
		EnvVars: []string{consts.Transport},
	}
	flagUnixPath = &cli.StringFlag{
		Name:    "unix-path",
		Aliases: []string{"u"},
		Value:   consts.DefaultUnixPath,
		Usage:   "unix socket path of the server.",
		EnvVars: []string{consts.UnixPath},
	}
	flagURL = &cli.StringFlag{
		Name:  "url",
		Value: fmt.Sprintf("ws://%s%s", consts.DefaultAddr, consts.DefaultPrefix),
		Usage: "websocket endpoint of the server.",
	}
	flagTimeout = &cli.DurationFlag{
		Name:  "timeout",
		Value: 2 * time.Second,
		Usage: "how long to wait for a reply.",
	}
)

type CliWrapper struct {
	app *cli.App
}

func NewCliWrapper() *CliWrapper {
	wrapper := &CliWrapper{
		app: &cli.App{
			Name:    "eggie_ipc_client",
			Usage:   "interactive client for eggie_ipc",
			Version: consts.AppVersion,
		},
	}
	wrapper.modifyDefaultHelp()
	wrapper.withFlags()
	wrapper.withAction()
	wrapper.withAuthor()
	return wrapper
}

func (wrapper *CliWrapper) Run(args []string) error {
	return wrapper.app.Run(args)
}

func (wrapper *CliWrapper) modifyDefaultHelp() {
	cli.HelpFlag = &cli.BoolFlag{
		Name: "help",
	}
	cli.AppHelpTemplate = consts.HelpTemplate
}

func (wrapper *CliWrapper) withFlags() {
	wrapper.app.Flags = []cli.Flag{
		flagTransport,
		flagUnixPath,
		flagURL,
		flagTimeout,
	}
}

func (wrapper *CliWrapper) withAction() {
	wrapper.app.Action = func(ctx *cli.Context) error {
		c, err := client.Dial(ctx.Context, &client.Config{
			Transport: ctx.String(flagTransport.Name),
			UnixPath:  ctx.String(flagUnixPath.Name),
			URL:       ctx.String(flagURL.Name),
		})
		if err != nil {
			return err
		}
		defer c.Close()

		historyFile := filepath.Join(consts.TmpDir, "cli", fmt.Sprintf("cmd_history_%s", time.Now().Format("20060102")))
		input, err := readline.NewEx(&readline.Config{
			Prompt:       fmt.Sprintf("%s> ", c.Transport()),
			AutoComplete: readline.NewPrefixCompleter(readline.PcItem(handle.CmdExit), readline.PcItem("bye")),
			HistoryFile:  historyFile,
		})
		if err != nil {
			return err
		}
		defer input.Close()
		input.CaptureExitSignal()

		_, _ = fmt.Fprintln(input.Stdout(), utils.WrapInfo("connected over %s, type exit to quit", c.Transport()))
		session := handle.NewSession(c, input.Stdout(), ctx.Duration(flagTimeout.Name))
		for {
			line, err := input.Readline()
			if err != nil {
				if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
					return nil
				}
				_, _ = fmt.Fprintln(input.Stderr(), utils.WrapWarn("read line failed: %v", err))
				continue
			}
			quit, err := session.Handle(context.Background(), strings.TrimSpace(line))
			if err != nil {
				_, _ = fmt.Fprintln(input.Stderr(), utils.WrapError(err))
				continue
			}
			if quit {
				return nil
			}
		}
	}
}

func (wrapper *CliWrapper) withAuthor() {
	wrapper.app.Authors = []*cli.Author{
		{
			Name:  "Trino",
			Email: "sujun.trinoooo@gmail.com",
		},
	}
}
