package config

import (
	"os"
	"strconv"

	"github.com/Trinoooo/eggie_ipc/errs"
)

// ParseFileMode 解析八进制权限字符串，例如 "0660"。空串返回 0，表示不修改权限。
func ParseFileMode(s string) (os.FileMode, error) {
	if s == "" {
		return 0, nil
	}
	mode, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, errs.NewInvalidParamErr().WithErr(err)
	}
	if mode > 0777 {
		return 0, errs.NewInvalidParamErr()
	}
	return os.FileMode(mode), nil
}
