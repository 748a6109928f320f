// Package viewer 用外部程序打开扫描结果里的文件（图片 / 视频查看器）。
package viewer

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/John-Robertt/mdd/internal/config"
	"github.com/John-Robertt/mdd/internal/filter"
)

// 通过可替换的函数指针，让测试不真正启动外部程序。
var startFunc = func(name string, args ...string) error {
	// Stdin/Stdout/Stderr 保持 nil：输出直接丢弃（/dev/null）。
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	// 不等待查看器退出；回收放到后台，避免僵尸进程。
	go func() { _ = cmd.Wait() }()
	return nil
}

var ErrEmptyPath = errors.New("文件路径不能为空")

// Result 是一次打开操作的结果。
type Result struct {
	File string `json:"file"`
	// Viewer 是展示用名称（首字母大写），Program 是实际执行的程序。
	Viewer  string `json:"viewer"`
	Program string `json:"-"`
	Message string `json:"message"`
}

// Launcher 按扩展名选择查看器并启动它。
type Launcher struct {
	cfg config.Viewers
	log zerolog.Logger
}

func New(cfg config.Viewers, log zerolog.Logger) *Launcher {
	return &Launcher{cfg: cfg, log: log.With().Str("component", "viewer").Logger()}
}

// Open 打开 path：扩展名在 video_extensions 中用视频查看器，否则用图片查看器。
// 文件必须存在且可读；查看器在后台启动，不读取其输出。
func (l *Launcher) Open(path string) (Result, error) {
	if strings.TrimSpace(path) == "" {
		return Result{}, ErrEmptyPath
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{}, fmt.Errorf("文件不存在：%s", path)
		}
		return Result{}, fmt.Errorf("文件不可读：%s：%w", path, err)
	}
	_ = f.Close()

	prog := l.Pick(path)
	if prog == "" {
		return Result{}, fmt.Errorf("未配置查看器：%s", path)
	}
	if err := startFunc(prog, path); err != nil {
		l.log.Warn().Err(err).Str("program", prog).Str("path", path).Msg("启动查看器失败")
		return Result{}, fmt.Errorf("启动查看器 %s 失败：%w", prog, err)
	}

	name := displayName(prog)
	l.log.Debug().Str("program", prog).Str("path", path).Msg("已打开文件")
	return Result{
		File:    path,
		Viewer:  name,
		Program: prog,
		Message: fmt.Sprintf("已用 %s 打开文件", name),
	}, nil
}

// Pick 返回用于打开 path 的程序。
func (l *Launcher) Pick(path string) string {
	ext := filter.Extension(path)
	for _, v := range l.cfg.VideoExtensions {
		if ext == v {
			return l.cfg.Video
		}
	}
	return l.cfg.Image
}

func displayName(prog string) string {
	r, n := utf8.DecodeRuneInString(prog)
	if r == utf8.RuneError {
		return prog
	}
	return string(unicode.ToUpper(r)) + prog[n:]
}
