package scan

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/John-Robertt/mdd/internal/domain"
	"github.com/John-Robertt/mdd/internal/filter"
)

// DefaultMaxDepth 是目录递归深度的默认上限（防止异常目录结构耗尽调用栈）。
const DefaultMaxDepth = 512

// Result 是一次扫描的输出。Files 的顺序即遍历顺序（深度优先，同目录按名称排序）。
type Result struct {
	// Root 是校验后的 clean + absolute 根目录。
	Root         string
	Files        []domain.FileRecord
	TotalScanned int
	Issues       []domain.ScanIssue
}

type Option func(*Scanner)

// WithFs 替换文件系统实现（默认 afero.NewOsFs()；测试可用 MemMapFs）。
func WithFs(fs afero.Fs) Option {
	return func(s *Scanner) {
		if fs != nil {
			s.fs = fs
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Scanner) { s.log = l }
}

// WithMaxDepth 设置递归深度上限；n<1 时保持默认值。
func WithMaxDepth(n int) Option {
	return func(s *Scanner) {
		if n >= 1 {
			s.maxDepth = n
		}
	}
}

// Scanner 按 filter.Policy 深度优先遍历目录树，收集 FileRecord。
//
// 约束：
// - 单线程、同步执行；一个 Scanner 同一时间只服务一次 Scan
// - 只做 stat，不读文件内容
// - 目录级/文件级失败就地恢复（记录 + 日志），只有根目录无效是致命错误
type Scanner struct {
	fs       afero.Fs
	policy   filter.Policy
	log      zerolog.Logger
	maxDepth int

	files        []domain.FileRecord
	totalScanned int
	issues       []domain.ScanIssue
}

func New(policy filter.Policy, opts ...Option) *Scanner {
	s := &Scanner{
		fs:       afero.NewOsFs(),
		policy:   policy,
		log:      zerolog.Nop(),
		maxDepth: DefaultMaxDepth,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Scan 扫描 root。每次调用都会丢弃上一次的结果。
func (s *Scanner) Scan(root string) (Result, error) {
	s.files = make([]domain.FileRecord, 0, 128)
	s.totalScanned = 0
	s.issues = make([]domain.ScanIssue, 0)

	root, err := ValidateRoot(s.fs, root)
	if err != nil {
		return Result{}, err
	}

	s.scanDir(root, 0)

	return Result{
		Root:         root,
		Files:        append([]domain.FileRecord(nil), s.files...),
		TotalScanned: s.totalScanned,
		Issues:       append([]domain.ScanIssue(nil), s.issues...),
	}, nil
}

// Stats 返回最近一次 Scan 的统计（遍历结束后一次性计算）。
func (s *Scanner) Stats() domain.ScanStats {
	return domain.ComputeScanStats(s.files, s.totalScanned)
}

// ValidateRoot 校验扫描根目录，返回 clean + absolute 的路径。
func ValidateRoot(fs afero.Fs, root string) (string, error) {
	raw := root
	root = strings.TrimSpace(root)
	if root == "" {
		return "", &InvalidRootError{Path: raw, Reason: "路径不能为空"}
	}
	root = filepath.Clean(root)
	if !filepath.IsAbs(root) {
		abs, err := filepath.Abs(root)
		if err != nil {
			return "", &InvalidRootError{Path: raw, Reason: "无法转换为绝对路径", Err: err}
		}
		root = abs
	}

	fi, err := fs.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &InvalidRootError{Path: root, Reason: "路径不存在"}
		}
		return "", &InvalidRootError{Path: root, Reason: "无法读取路径信息", Err: err}
	}
	if !fi.IsDir() {
		return "", &InvalidRootError{Path: root, Reason: "不是目录"}
	}

	f, err := fs.Open(root)
	if err != nil {
		return "", &InvalidRootError{Path: root, Reason: "目录不可读", Err: err}
	}
	_ = f.Close()
	return root, nil
}

func (s *Scanner) scanDir(dir string, depth int) {
	if s.policy.ShouldIgnore(dir) {
		return
	}
	if depth > s.maxDepth {
		s.recover(&DirectoryAccessError{Path: dir, Err: ErrMaxDepth})
		return
	}

	entries, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		s.recover(&DirectoryAccessError{Path: dir, Err: err})
		return
	}

	for _, e := range entries {
		name := e.Name()
		if name == "." || name == ".." {
			continue
		}

		full := filepath.Join(dir, name)
		if s.policy.ShouldIgnore(full) {
			continue
		}

		// ReadDir 的信息不跟随符号链接：目录链接不会在这里进入递归。
		if e.IsDir() {
			s.scanDir(full, depth+1)
			continue
		}
		if e.Mode().IsRegular() || e.Mode()&os.ModeSymlink != 0 {
			if err := s.processFile(full, name); err != nil {
				s.recover(err)
			}
		}
	}
}

func (s *Scanner) processFile(path, name string) error {
	if !s.policy.IsAllowedExtension(name) {
		return nil
	}

	// 单独 stat：读取大小/时间，同时解析指向文件的符号链接。
	fi, err := s.fs.Stat(path)
	if err != nil {
		return &FileAccessError{Path: path, Err: err}
	}
	if !fi.Mode().IsRegular() {
		s.log.Debug().Str("path", path).Msg("跳过非普通文件")
		return nil
	}
	if fi.Size() < s.policy.MinSize() {
		return nil
	}

	s.files = append(s.files, domain.FileRecord{
		Filename:  name,
		Path:      path,
		Size:      fi.Size(),
		BaseName:  filter.BaseName(name),
		Extension: filter.Extension(name),
		ModTime:   fi.ModTime(),
	})
	s.totalScanned++
	return nil
}

// recover 是目录级/文件级失败的唯一出口：记录 + 日志，然后继续扫描。
func (s *Scanner) recover(err error) {
	issue := domain.ScanIssue{Error: err.Error()}

	var de *DirectoryAccessError
	var fe *FileAccessError
	switch {
	case errors.As(err, &de):
		issue.Kind = domain.IssueDirectory
		issue.Path = de.Path
		s.log.Warn().Err(de.Err).Str("path", de.Path).Msg("目录无法读取，跳过该子树")
	case errors.As(err, &fe):
		issue.Kind = domain.IssueFile
		issue.Path = fe.Path
		s.log.Warn().Err(fe.Err).Str("path", fe.Path).Msg("文件信息无法读取，跳过该文件")
	default:
		s.log.Warn().Err(err).Msg("扫描出错")
	}
	s.issues = append(s.issues, issue)
}
