package consts

import (
	"fmt"

	"github.com/mitchellh/go-homedir"
)

func init() {
	home, _ := homedir.Dir()
	BaseDir = fmt.Sprintf("%s/eggie_ipc", home)
	DefaultConfigPath = fmt.Sprintf("%s/config", BaseDir)
}

var (
	BaseDir           string
	DefaultConfigPath string
)
