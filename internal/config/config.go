package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/John-Robertt/mdd/internal/filter"
	"github.com/John-Robertt/mdd/internal/scan"
)

const (
	// ErrCodeNotFound 表示显式指定的 --config 文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
	// ErrCodeMissingPath 表示命令需要扫描根目录，但 CLI 与配置文件都没有给出 path。
	ErrCodeMissingPath = "config_missing_path"
)

const (
	// FileName 是 cwd 下自动发现的配置文件名。
	FileName = "mdd.yaml"

	DefaultLogLevel    = "info"
	DefaultImageViewer = "xviewer"
	DefaultVideoViewer = "celluloid"
	DefaultHistoryDB   = ".mdd/history.db"
)

// CLIArgs 是 CLI 可覆盖的字段，并保留“是否显式指定”的信息。
// 这能保证覆盖优先级可实现：例如 --min-size=0 必须能覆盖配置里的 min_file_size。
type CLIArgs struct {
	Path string
	// ConfigFile 显式指定配置文件；为空时尝试 <cwd>/mdd.yaml（可选）。
	ConfigFile string
	// NeedPath 为 true 时，最终 path 为空会返回 ErrCodeMissingPath。
	NeedPath bool

	Ignored    []string
	IgnoredSet bool

	Extensions    []string
	ExtensionsSet bool

	MinSize    int64
	MinSizeSet bool

	LogLevel    string
	LogLevelSet bool
}

// FileConfig 对应 mdd.yaml 的解析结构。
type FileConfig struct {
	Path         string         `yaml:"path"`
	IgnoredPaths []string       `yaml:"ignored_paths"`
	LogLevel     string         `yaml:"log_level"`
	Detector     DetectorConfig `yaml:"detector"`
	Viewers      ViewerConfig   `yaml:"viewers"`
	History      HistoryConfig  `yaml:"history"`
}

type DetectorConfig struct {
	SupportedExtensions []string `yaml:"supported_extensions"`
	// MinFileSize 用指针区分“未配置”与显式 0。
	MinFileSize *int64 `yaml:"min_file_size"`
	MaxDepth    int    `yaml:"max_depth"`
}

type ViewerConfig struct {
	ImageViewer     string   `yaml:"image_viewer"`
	VideoViewer     string   `yaml:"video_viewer"`
	VideoExtensions []string `yaml:"video_extensions"`
}

type HistoryConfig struct {
	Enabled *bool  `yaml:"enabled"`
	DBPath  string `yaml:"db_path"`
}

// Viewers 是外部查看器的最终配置。
type Viewers struct {
	Image           string
	Video           string
	VideoExtensions []string
}

// History 是扫描历史的最终配置；DBPath 已是绝对路径。
type History struct {
	Enabled bool
	DBPath  string
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	// Path 为空表示未配置（仅不需要扫描根目录的命令允许）。
	Path         string
	IgnoredPaths []string

	Extensions  []string
	MinFileSize int64
	MaxDepth    int

	LogLevel string

	Viewers Viewers
	History History

	// Source 是实际读取的配置文件；未读取任何文件时为空。
	Source string
}

// Policy 由最终配置构造扫描过滤策略。
func (c EffectiveConfig) Policy() filter.Policy {
	return filter.New(c.IgnoredPaths, c.Extensions, c.MinFileSize)
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeMissingPath:
		if e.Path == "" {
			return fmt.Sprintf("%s：未指定扫描目录（参数或配置文件 path）", e.Code)
		}
		return fmt.Sprintf("%s：配置文件 %q 缺少 path，且未通过参数指定扫描目录", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置文件，然后与 CLI 参数合并为最终配置。
//
// 发现规则：
// 1) CLI 指定 --config：必须存在
// 2) 否则尝试 <cwd>/mdd.yaml（可选，不存在不报错）
//
// 覆盖优先级：CLI > 配置文件 > 内置默认。
// viewers/history 仅由配置文件控制（CLI 不暴露）。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	cfgPath := filepath.Join(cwdAbs, FileName)
	required := false
	if strings.TrimSpace(cli.ConfigFile) != "" {
		cfgPath = absCleanFrom(cwdAbs, cli.ConfigFile)
		required = true
	}

	fc, exists, err := readFileConfig(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if !exists {
		if required {
			return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
		}
		cfgPath = ""
	}

	// 配置文件里的相对路径以配置文件所在目录为基准；CLI 的相对路径以 cwd 为基准。
	cfgBase := cwdAbs
	if cfgPath != "" {
		cfgBase = filepath.Dir(cfgPath)
	}

	eff, err := merge(cwdAbs, cfgBase, cli, fc, cfgPath)
	if err != nil {
		return EffectiveConfig{}, err
	}
	if cli.NeedPath && eff.Path == "" {
		return EffectiveConfig{}, &Error{Code: ErrCodeMissingPath, Path: cfgPath}
	}
	return eff, nil
}

// Defaults 返回不读取任何配置文件时的最终配置。
func Defaults() EffectiveConfig {
	eff, _ := merge("", "", CLIArgs{}, FileConfig{}, "")
	return eff
}

func merge(cwdAbs, cfgBase string, cli CLIArgs, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	invalid := func(err error) error { return &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err} }

	// path：CLI > config
	path := ""
	if strings.TrimSpace(cli.Path) != "" {
		path = absCleanFrom(cwdAbs, cli.Path)
	} else if strings.TrimSpace(fc.Path) != "" {
		path = absCleanFrom(cfgBase, fc.Path)
	}

	ignored := fc.IgnoredPaths
	if cli.IgnoredSet {
		ignored = cli.Ignored
	}

	exts := filter.DefaultExtensions()
	if cli.ExtensionsSet {
		exts = cli.Extensions
	} else if len(fc.Detector.SupportedExtensions) > 0 {
		exts = fc.Detector.SupportedExtensions
	}
	// 经 Policy 规范化后再判空：[" ", "."] 这类输入等同于空列表。
	exts = filter.New(nil, exts, 0).Extensions()
	if len(exts) == 0 {
		return EffectiveConfig{}, invalid(fmt.Errorf("supported_extensions 不能为空"))
	}

	minSize := filter.DefaultMinSize
	if cli.MinSizeSet {
		minSize = cli.MinSize
	} else if fc.Detector.MinFileSize != nil {
		minSize = *fc.Detector.MinFileSize
	}
	if minSize < 0 {
		return EffectiveConfig{}, invalid(fmt.Errorf("min_file_size 不能为负数，实际是 %d", minSize))
	}

	maxDepth := fc.Detector.MaxDepth
	if maxDepth == 0 {
		maxDepth = scan.DefaultMaxDepth
	}
	if maxDepth < 1 {
		return EffectiveConfig{}, invalid(fmt.Errorf("max_depth 必须 ≥ 1，实际是 %d", maxDepth))
	}

	level := DefaultLogLevel
	if cli.LogLevelSet {
		level = cli.LogLevel
	} else if strings.TrimSpace(fc.LogLevel) != "" {
		level = fc.LogLevel
	}
	level = strings.ToLower(strings.TrimSpace(level))
	if _, err := zerolog.ParseLevel(level); err != nil || level == "" {
		return EffectiveConfig{}, invalid(fmt.Errorf("log_level 无效：%q", level))
	}

	viewers := Viewers{
		Image:           firstNonEmpty(fc.Viewers.ImageViewer, DefaultImageViewer),
		Video:           firstNonEmpty(fc.Viewers.VideoViewer, DefaultVideoViewer),
		VideoExtensions: []string{"mp4"},
	}
	if len(fc.Viewers.VideoExtensions) > 0 {
		viewers.VideoExtensions = filter.New(nil, fc.Viewers.VideoExtensions, 0).Extensions()
	}

	history := History{Enabled: true}
	if fc.History.Enabled != nil {
		history.Enabled = *fc.History.Enabled
	}
	if history.Enabled {
		dbPath := firstNonEmpty(fc.History.DBPath, DefaultHistoryDB)
		if cfgBase != "" || filepath.IsAbs(dbPath) {
			dbPath = absCleanFrom(cfgBase, dbPath)
		}
		history.DBPath = dbPath
	}

	return EffectiveConfig{
		Path:         path,
		IgnoredPaths: cleanList(ignored),
		Extensions:   exts,
		MinFileSize:  minSize,
		MaxDepth:     maxDepth,
		LogLevel:     level,
		Viewers:      viewers,
		History:      history,
		Source:       cfgPath,
	}, nil
}

func firstNonEmpty(v, def string) string {
	if s := strings.TrimSpace(v); s != "" {
		return s
	}
	return def
}

// cleanList 去掉空白项；保持顺序，不做路径改写（忽略前缀按原样参与字符串前缀匹配）。
func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
// - p 若已是绝对路径：直接 Clean
// - p 若是相对路径：Join(base, p) 后 Clean
func absCleanFrom(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = filepath.Clean(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 YAML 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
