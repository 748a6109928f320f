package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/mdd/internal/filter"
	"github.com/John-Robertt/mdd/internal/scan"
)

func writeFile(t *testing.T, path string, b []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, b, 0o644))
}

func TestLoadEffective_NoConfigUsesDefaults(t *testing.T) {
	cwd := t.TempDir()

	eff, err := LoadEffective(cwd, CLIArgs{Path: "media"})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(cwd, "media"), eff.Path)
	assert.Equal(t, []string{"jpg", "jpeg", "png", "mp4"}, eff.Extensions)
	assert.Equal(t, filter.DefaultMinSize, eff.MinFileSize)
	assert.Equal(t, scan.DefaultMaxDepth, eff.MaxDepth)
	assert.Equal(t, DefaultLogLevel, eff.LogLevel)
	assert.Equal(t, DefaultImageViewer, eff.Viewers.Image)
	assert.Equal(t, DefaultVideoViewer, eff.Viewers.Video)
	assert.Equal(t, []string{"mp4"}, eff.Viewers.VideoExtensions)
	assert.True(t, eff.History.Enabled)
	assert.Equal(t, filepath.Join(cwd, DefaultHistoryDB), eff.History.DBPath)
	assert.Empty(t, eff.Source)
	assert.Empty(t, eff.IgnoredPaths)
}

func TestLoadEffective_MissingPath(t *testing.T) {
	cwd := t.TempDir()

	_, err := LoadEffective(cwd, CLIArgs{NeedPath: true})
	assert.Equal(t, ErrCodeMissingPath, Code(err))

	// 不需要 path 的命令允许为空。
	eff, err := LoadEffective(cwd, CLIArgs{})
	require.NoError(t, err)
	assert.Empty(t, eff.Path)
}

func TestLoadEffective_ExplicitConfigNotFound(t *testing.T) {
	cwd := t.TempDir()

	_, err := LoadEffective(cwd, CLIArgs{ConfigFile: "nope.yaml"})
	assert.Equal(t, ErrCodeNotFound, Code(err))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadEffective_InvalidYAML(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte("path: [unterminated\n"))

	_, err := LoadEffective(cwd, CLIArgs{})
	assert.Equal(t, ErrCodeInvalid, Code(err))
}

func TestLoadEffective_FileValues(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte(`
path: photos
ignored_paths:
  - /media/photos/tmp
  - "  "
log_level: debug
detector:
  supported_extensions: [".JPG", png]
  min_file_size: 0
  max_depth: 8
viewers:
  image_viewer: eog
  video_viewer: mpv
  video_extensions: [MKV, mp4]
history:
  enabled: false
`))

	eff, err := LoadEffective(cwd, CLIArgs{})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(cwd, "photos"), eff.Path)
	assert.Equal(t, []string{"/media/photos/tmp"}, eff.IgnoredPaths)
	assert.Equal(t, []string{"jpg", "png"}, eff.Extensions)
	assert.Equal(t, int64(0), eff.MinFileSize)
	assert.Equal(t, 8, eff.MaxDepth)
	assert.Equal(t, "debug", eff.LogLevel)
	assert.Equal(t, Viewers{Image: "eog", Video: "mpv", VideoExtensions: []string{"mkv", "mp4"}}, eff.Viewers)
	assert.False(t, eff.History.Enabled)
	assert.Empty(t, eff.History.DBPath)
	assert.Equal(t, filepath.Join(cwd, FileName), eff.Source)
}

func TestLoadEffective_CLIOverridesFile(t *testing.T) {
	cwd := t.TempDir()
	cfg := filepath.Join(cwd, "conf", "custom.yaml")
	writeFile(t, cfg, []byte(`
path: /from/config
ignored_paths: [/from/config/tmp]
log_level: warn
detector:
  supported_extensions: [png]
  min_file_size: 500
history:
  db_path: state/h.db
`))

	eff, err := LoadEffective(cwd, CLIArgs{
		Path:          "/from/cli",
		ConfigFile:    "conf/custom.yaml",
		Ignored:       []string{"/from/cli/skip"},
		IgnoredSet:    true,
		Extensions:    []string{"mp4"},
		ExtensionsSet: true,
		MinSize:       0,
		MinSizeSet:    true,
		LogLevel:      "ERROR",
		LogLevelSet:   true,
	})
	require.NoError(t, err)

	assert.Equal(t, "/from/cli", eff.Path)
	assert.Equal(t, []string{"/from/cli/skip"}, eff.IgnoredPaths)
	assert.Equal(t, []string{"mp4"}, eff.Extensions)
	assert.Equal(t, int64(0), eff.MinFileSize)
	assert.Equal(t, "error", eff.LogLevel)
	// 配置文件内的相对路径以配置文件所在目录为基准
	assert.Equal(t, filepath.Join(cwd, "conf", "state", "h.db"), eff.History.DBPath)
	assert.Equal(t, cfg, eff.Source)
}

func TestLoadEffective_Validation(t *testing.T) {
	cases := map[string]CLIArgs{
		"negative min size": {MinSize: -1, MinSizeSet: true},
		"empty extensions":  {Extensions: []string{" ", "."}, ExtensionsSet: true},
		"bad log level":     {LogLevel: "loud", LogLevelSet: true},
	}
	for name, cli := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadEffective(t.TempDir(), cli)
			assert.Equal(t, ErrCodeInvalid, Code(err))
		})
	}
}

func TestLoadEffective_NegativeMaxDepth(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte("detector:\n  max_depth: -3\n"))

	_, err := LoadEffective(cwd, CLIArgs{})
	assert.Equal(t, ErrCodeInvalid, Code(err))
}

func TestEffectiveConfig_Policy(t *testing.T) {
	eff := EffectiveConfig{
		IgnoredPaths: []string{"/m/tmp/"},
		Extensions:   []string{"jpg"},
		MinFileSize:  10,
	}
	p := eff.Policy()

	assert.True(t, p.ShouldIgnore("/m/tmp/a.jpg"))
	assert.True(t, p.IsAllowedExtension("A.JPG"))
	assert.False(t, p.IsAllowedExtension("a.png"))
	assert.Equal(t, int64(10), p.MinSize())
}

func TestDefaults(t *testing.T) {
	d := Defaults()
	assert.Empty(t, d.Path)
	assert.Equal(t, filter.DefaultMinSize, d.MinFileSize)
	assert.Equal(t, DefaultHistoryDB, d.History.DBPath)
}

func TestCode_NonConfigError(t *testing.T) {
	assert.Equal(t, "", Code(os.ErrNotExist))
	assert.Equal(t, "", Code(nil))
}
