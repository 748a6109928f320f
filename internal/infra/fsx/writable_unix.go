//go:build unix

package fsx

import "golang.org/x/sys/unix"

// dirWritable 用 access(2) 判断当前进程能否在 dir 中创建/删除条目。
func dirWritable(dir string) bool {
	return unix.Access(dir, unix.W_OK|unix.X_OK) == nil
}
