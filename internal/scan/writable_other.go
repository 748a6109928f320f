//go:build !unix

package scan

import (
	"os"

	"github.com/spf13/afero"
)

func writable(_ afero.Fs, _ string, fi os.FileInfo) bool {
	return fi.Mode().Perm()&0o200 != 0
}
