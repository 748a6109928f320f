//go:build unix

package fsx

import (
	"errors"
	"syscall"
)

// isEXDEV 识别跨文件系统 rename。errors.Is 会穿过 *os.LinkError。
func isEXDEV(err error) bool {
	return errors.Is(err, syscall.EXDEV)
}
