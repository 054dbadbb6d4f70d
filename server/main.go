package main

import (
	"os"

	"github.com/Trinoooo/eggie_ipc/logs"
	"github.com/Trinoooo/eggie_ipc/server/cli"
	"go.uber.org/zap"
)

func main() {
	wrapper := cli.NewWrapper()
	if err := wrapper.Run(os.Args); err != nil {
		logs.Fatal("eggie_ipc exit", zap.Error(err))
	}
}
