package consts

const (
	B = 1 << (iota * 10)
	KB
	MB
	GB
)

const HelpTemplate = `NAME:
   {{.Name}} - {{.Usage}}
USAGE:
   {{.HelpName}} {{if .VisibleFlags}}[global options]{{end}}{{if .Commands}} command [command options]{{end}} {{if .ArgsUsage}}{{.ArgsUsage}}{{else}}[arguments...]{{end}}
   {{if len .Authors}}
AUTHOR:
   {{range .Authors}}{{ . }}{{end}}
   {{end}}{{if .Commands}}
COMMANDS:
{{range .Commands}}{{if not .HideHelp}}   {{join .Names ", "}}{{ "\t"}}{{.Usage}}{{ "\n" }}{{end}}{{end}}{{end}}{{if .VisibleFlags}}
GLOBAL OPTIONS:
   {{range .VisibleFlags}}{{.}}
   {{end}}{{end}}{{if .Copyright }}
COPYRIGHT:
   {{.Copyright}}
   {{end}}{{if .Version}}
VERSION:
   {{.Version}}
   {{end}}
`

const (
	AppName    = "eggie_ipc"
	AppVersion = "0.0.1.261018_alpha"

	TmpDir = "/tmp/eggie_ipc"
)

// 日志字段
const (
	LogFieldComponent = "component"
	LogFieldTransport = "transport"
	LogFieldConnID    = "conn_id"
	LogFieldPath      = "path"
	LogFieldAddr      = "addr"
	LogFieldEvent     = "event"
	LogFieldCode      = "code"
	LogFieldReason    = "reason"
	LogFieldParams    = "params"
	LogFieldValue     = "value"
)
