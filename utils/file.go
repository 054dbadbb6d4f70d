package utils

import (
	"errors"
	"os"
	"path/filepath"
	"syscall"

	"github.com/Trinoooo/eggie_ipc/errs"
)

// EnsureParentDir 创建 filePath 所在目录（已存在则忽略），路径上是普通文件时报错
func EnsureParentDir(filePath string) error {
	dir := filepath.Dir(filePath)
	info, err := os.Stat(dir)
	if err == nil && !info.IsDir() {
		return errs.NewMkdirErr().WithErr(&os.PathError{Op: "mkdir", Path: dir, Err: syscall.ENOTDIR})
	}
	if errors.Is(err, os.ErrNotExist) {
		if err = os.MkdirAll(dir, 0770); err != nil {
			return errs.NewMkdirErr().WithErr(err)
		}
		return nil
	}
	if err != nil {
		return errs.NewMkdirErr().WithErr(err)
	}
	return nil
}

// RemoveIfExists 删除 filePath 上遗留的文件，返回是否真的删除了。
// 不做存活检测：路径上即使是另一个进程正在监听的 socket 也会被删掉。
func RemoveIfExists(filePath string) (bool, error) {
	if _, err := os.Lstat(filePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, errs.NewRemoveFileErr().WithErr(err)
	}

	if err := os.Remove(filePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, errs.NewRemoveFileErr().WithErr(err)
	}
	return true, nil
}
