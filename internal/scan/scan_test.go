package scan

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/mdd/internal/domain"
	"github.com/John-Robertt/mdd/internal/filter"
)

const kb = 1024

func defaultPolicy(ignored ...string) filter.Policy {
	return filter.New(ignored, filter.DefaultExtensions(), filter.DefaultMinSize)
}

func TestScan_FiltersByExtensionAndSize(t *testing.T) {
	fs := afero.NewMemMapFs()
	put(t, fs, "/media/a/photo.jpg", 500000)
	put(t, fs, "/media/a/small.jpg", 50000) // 低于 100KB
	put(t, fs, "/media/a/doc.txt", 500000)  // 扩展名不在白名单
	put(t, fs, "/media/b/CLIP.MP4", 200*kb) // 扩展名大小写不敏感
	put(t, fs, "/media/b/edge.png", 102400) // 恰好等于阈值：保留

	res, err := New(defaultPolicy(), WithFs(fs)).Scan("/media")
	require.NoError(t, err)

	assert.Equal(t, []string{"/media/a/photo.jpg", "/media/b/CLIP.MP4", "/media/b/edge.png"}, paths(res.Files))
	assert.Equal(t, 3, res.TotalScanned)
	assert.Empty(t, res.Issues)

	clip := res.Files[1]
	assert.Equal(t, "CLIP.MP4", clip.Filename)
	assert.Equal(t, "CLIP", clip.BaseName)
	assert.Equal(t, "mp4", clip.Extension)
	assert.Equal(t, int64(200*kb), clip.Size)
	assert.False(t, clip.ModTime.IsZero())
}

func TestScan_MinSizeExcludesSmallFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	put(t, fs, "/media/tiny.jpg", 50000)

	res, err := New(defaultPolicy(), WithFs(fs)).Scan("/media")
	require.NoError(t, err)
	assert.Empty(t, res.Files)
}

func TestScan_IgnoredPrefixExcludesSubtree(t *testing.T) {
	fs := afero.NewMemMapFs()
	put(t, fs, "/media/tmp/anything/photo.jpg", 500000)
	put(t, fs, "/media/tmp/x.jpg", 500000)
	put(t, fs, "/media/tmpfile.jpg", 500000) // 字符串前缀匹配：同样被忽略
	put(t, fs, "/media/keep/photo.jpg", 500000)

	res, err := New(defaultPolicy("/media/tmp/"), WithFs(fs)).Scan("/media")
	require.NoError(t, err)
	assert.Equal(t, []string{"/media/keep/photo.jpg"}, paths(res.Files))
}

func TestScan_IgnoredRootYieldsEmptyResult(t *testing.T) {
	fs := afero.NewMemMapFs()
	put(t, fs, "/media/photo.jpg", 500000)

	res, err := New(defaultPolicy("/media"), WithFs(fs)).Scan("/media/")
	require.NoError(t, err)
	assert.Empty(t, res.Files)
	assert.Zero(t, res.TotalScanned)
}

func TestScan_EmptyAndFullyFilteredTree(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/empty", 0o755))
	put(t, fs, "/filtered/a.txt", 500000)
	put(t, fs, "/filtered/b.jpg", 10)

	for _, root := range []string{"/empty", "/filtered"} {
		sc := New(defaultPolicy(), WithFs(fs))
		res, err := sc.Scan(root)
		require.NoError(t, err, root)
		assert.Empty(t, res.Files, root)
		assert.Empty(t, res.Issues, root)

		st := sc.Stats()
		assert.Zero(t, st.TotalFiles)
		assert.Zero(t, st.TotalScanned)
		assert.Zero(t, st.TotalSize)
		assert.Empty(t, st.Extensions)
	}
}

func TestScan_DepthFirstOrder(t *testing.T) {
	fs := afero.NewMemMapFs()
	put(t, fs, "/m/a.jpg", 200*kb)
	put(t, fs, "/m/b/c.jpg", 200*kb)
	put(t, fs, "/m/b/d/e.jpg", 200*kb)
	put(t, fs, "/m/c.jpg", 200*kb)

	res, err := New(defaultPolicy(), WithFs(fs)).Scan("/m")
	require.NoError(t, err)
	// 同目录按名称排序；遇到子目录立即深入。
	assert.Equal(t, []string{"/m/a.jpg", "/m/b/c.jpg", "/m/b/d/e.jpg", "/m/c.jpg"}, paths(res.Files))
}

func TestScan_InvalidRoot(t *testing.T) {
	fs := afero.NewMemMapFs()
	put(t, fs, "/media/file.jpg", 200*kb)

	for _, root := range []string{"", "   ", "/nope", "/media/file.jpg"} {
		_, err := New(defaultPolicy(), WithFs(fs)).Scan(root)
		require.Error(t, err, root)
		assert.True(t, IsInvalidRoot(err), "root=%q err=%v", root, err)
	}
}

func TestScan_UnreadableRootIsFatal(t *testing.T) {
	base := afero.NewMemMapFs()
	require.NoError(t, base.MkdirAll("/media", 0o755))
	fs := &faultyFs{Fs: base, openErr: map[string]error{"/media": os.ErrPermission}}

	_, err := New(defaultPolicy(), WithFs(fs)).Scan("/media")
	require.Error(t, err)
	assert.True(t, IsInvalidRoot(err))
	assert.ErrorIs(t, err, os.ErrPermission)
}

func TestScan_DirectoryFailureIsolated(t *testing.T) {
	base := afero.NewMemMapFs()
	put(t, base, "/media/a/ok.jpg", 200*kb)
	put(t, base, "/media/locked/hidden.jpg", 200*kb)
	put(t, base, "/media/z/ok2.jpg", 200*kb)
	fs := &faultyFs{Fs: base, openErr: map[string]error{"/media/locked": os.ErrPermission}}

	res, err := New(defaultPolicy(), WithFs(fs)).Scan("/media")
	require.NoError(t, err)

	// 兄弟目录与祖先不受影响。
	assert.Equal(t, []string{"/media/a/ok.jpg", "/media/z/ok2.jpg"}, paths(res.Files))
	require.Len(t, res.Issues, 1)
	assert.Equal(t, domain.IssueDirectory, res.Issues[0].Kind)
	assert.Equal(t, "/media/locked", res.Issues[0].Path)
}

func TestScan_FileFailureIsolated(t *testing.T) {
	base := afero.NewMemMapFs()
	put(t, base, "/media/a.jpg", 200*kb)
	put(t, base, "/media/broken.jpg", 200*kb)
	put(t, base, "/media/c.jpg", 200*kb)
	fs := &faultyFs{Fs: base, statErr: map[string]error{"/media/broken.jpg": errors.New("i/o error")}}

	res, err := New(defaultPolicy(), WithFs(fs)).Scan("/media")
	require.NoError(t, err)

	assert.Equal(t, []string{"/media/a.jpg", "/media/c.jpg"}, paths(res.Files))
	assert.Equal(t, 2, res.TotalScanned)
	require.Len(t, res.Issues, 1)
	assert.Equal(t, domain.IssueFile, res.Issues[0].Kind)
	assert.Equal(t, "/media/broken.jpg", res.Issues[0].Path)
}

func TestScan_MaxDepthBoundsRecursion(t *testing.T) {
	fs := afero.NewMemMapFs()
	put(t, fs, "/r/a.jpg", 200*kb)
	put(t, fs, "/r/1/b.jpg", 200*kb)
	put(t, fs, "/r/1/2/c.jpg", 200*kb)

	res, err := New(defaultPolicy(), WithFs(fs), WithMaxDepth(1)).Scan("/r")
	require.NoError(t, err)

	// "1" 按名称排在 "a.jpg" 之前。
	assert.Equal(t, []string{"/r/1/b.jpg", "/r/a.jpg"}, paths(res.Files))
	require.Len(t, res.Issues, 1)
	assert.Equal(t, "/r/1/2", res.Issues[0].Path)
	assert.Contains(t, res.Issues[0].Error, ErrMaxDepth.Error())
}

func TestScan_RescanDiscardsPreviousResult(t *testing.T) {
	fs := afero.NewMemMapFs()
	put(t, fs, "/one/a.jpg", 200*kb)
	put(t, fs, "/two/b.jpg", 300*kb)
	put(t, fs, "/two/c.png", 300*kb)

	sc := New(defaultPolicy(), WithFs(fs))
	_, err := sc.Scan("/one")
	require.NoError(t, err)
	res, err := sc.Scan("/two")
	require.NoError(t, err)

	assert.Equal(t, []string{"/two/b.jpg", "/two/c.png"}, paths(res.Files))
	st := sc.Stats()
	assert.Equal(t, 2, st.TotalFiles)
	assert.Equal(t, 2, st.TotalScanned)
	assert.Equal(t, int64(600*kb), st.TotalSize)
	assert.Equal(t, domain.ExtStat{Count: 1, Size: 300 * kb}, st.Extensions["png"])
}

func TestScan_FilterInvariant(t *testing.T) {
	fs := afero.NewMemMapFs()
	sizes := []int{10, 50000, 102399, 102400, 200000}
	names := []string{"a.jpg", "b.JPEG", "c.png", "d.mp4", "e.gif", "f"}
	for _, dir := range []string{"/m/x", "/m/skip", "/m/skipped-too", "/m/y/z"} {
		for i, n := range names {
			put(t, fs, filepath.Join(dir, n), sizes[i%len(sizes)])
		}
	}

	p := defaultPolicy("/m/skip")
	res, err := New(p, WithFs(fs)).Scan("/m")
	require.NoError(t, err)
	require.NotEmpty(t, res.Files)

	for _, f := range res.Files {
		assert.GreaterOrEqual(t, f.Size, p.MinSize(), f.Path)
		assert.True(t, p.IsAllowedExtension(f.Filename), f.Path)
		assert.False(t, p.ShouldIgnore(f.Path), f.Path)
	}
}

func TestScan_OsFs_Symlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink 需要额外权限")
	}
	root := t.TempDir()
	target := filepath.Join(root, "real", "photo.jpg")
	require.NoError(t, os.MkdirAll(filepath.Dir(target), 0o755))
	require.NoError(t, os.WriteFile(target, make([]byte, 200*kb), 0o644))

	// 指向文件的链接：视为文件；指向目录的链接：不进入。
	require.NoError(t, os.Symlink(target, filepath.Join(root, "link.jpg")))
	require.NoError(t, os.Symlink(filepath.Join(root, "real"), filepath.Join(root, "loop")))
	// 断链：记录为文件级失败。
	require.NoError(t, os.Symlink(filepath.Join(root, "missing.jpg"), filepath.Join(root, "broken.jpg")))

	res, err := New(defaultPolicy()).Scan(root)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{filepath.Join(root, "link.jpg"), target}, paths(res.Files))
	require.Len(t, res.Issues, 1)
	assert.Equal(t, domain.IssueFile, res.Issues[0].Kind)
	assert.Equal(t, filepath.Join(root, "broken.jpg"), res.Issues[0].Path)
}

func put(t *testing.T, fs afero.Fs, path string, size int) {
	t.Helper()
	require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, afero.WriteFile(fs, path, make([]byte, size), 0o644))
}

func paths(files []domain.FileRecord) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Path)
	}
	return out
}

// faultyFs 在指定路径上注入 Open/Stat 失败，用于验证失败隔离。
type faultyFs struct {
	afero.Fs
	openErr map[string]error
	statErr map[string]error
}

func (f *faultyFs) Open(name string) (afero.File, error) {
	if err, ok := f.openErr[name]; ok {
		return nil, &os.PathError{Op: "open", Path: name, Err: err}
	}
	return f.Fs.Open(name)
}

func (f *faultyFs) Stat(name string) (os.FileInfo, error) {
	if err, ok := f.statErr[name]; ok {
		return nil, &os.PathError{Op: "stat", Path: name, Err: err}
	}
	return f.Fs.Stat(name)
}
