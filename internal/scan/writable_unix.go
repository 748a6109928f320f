//go:build unix

package scan

import (
	"os"

	"github.com/spf13/afero"
	"golang.org/x/sys/unix"
)

// writable 在真实文件系统上用 access(2) 询问当前进程能否写入；
// 其他 afero 实现没有进程身份，只能看属主写权限位。
func writable(fs afero.Fs, path string, fi os.FileInfo) bool {
	if _, ok := fs.(*afero.OsFs); ok {
		return unix.Access(path, unix.W_OK) == nil
	}
	return fi.Mode().Perm()&0o200 != 0
}
