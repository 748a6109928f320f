//go:build unix

package scan

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 真实文件系统上 is_writable 由进程身份决定：root 对 0555 目录同样可写。
func TestProbe_OsFs_WritableFollowsAccess(t *testing.T) {
	base := t.TempDir()
	for _, mode := range []os.FileMode{0o755, 0o555} {
		dir := filepath.Join(base, mode.String())
		require.NoError(t, os.Mkdir(dir, 0o755))
		require.NoError(t, os.Chmod(dir, mode))
		defer func(d string) { _ = os.Chmod(d, 0o755) }(dir)

		res, err := Probe(afero.NewOsFs(), dir)
		require.NoError(t, err)
		assert.True(t, res.Exists)
		assert.Equal(t, syscall.Access(dir, 0x2) == nil, res.IsWritable, "mode=%v", mode) // W_OK
	}
}
