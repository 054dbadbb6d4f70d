package ipc

import "github.com/Trinoooo/eggie_ipc/logs"

var ipcLogger = logs.NewComponentLogger("ipc")
