package filter

import (
	"path/filepath"
	"strings"
)

const (
	// DefaultMinSize 是最小文件大小的内置默认值（100KB）。
	DefaultMinSize int64 = 102400
)

// DefaultExtensions 是扩展名白名单的内置默认值。
func DefaultExtensions() []string {
	return []string{"jpg", "jpeg", "png", "mp4"}
}

// Policy 决定一个路径/文件是否参与扫描。
//
// 约束：
// - 构造后只读（扫描期间不允许修改），可以按值传递
// - 忽略判断是纯字符串前缀匹配，不感知路径分段：前缀 /a/b 同样会忽略 /a/bc
type Policy struct {
	ignored []string
	exts    map[string]struct{}
	extList []string
	minSize int64
}

// New 构造 Policy。
// - ignored：去掉末尾的 '/' 与 '\'；处理后为空的条目直接丢弃（空前缀会匹配一切路径）
// - exts：小写化，允许带前导 '.'
// - minSize：小于 0 按 0 处理
func New(ignored []string, exts []string, minSize int64) Policy {
	p := Policy{
		ignored: make([]string, 0, len(ignored)),
		exts:    make(map[string]struct{}, len(exts)),
		extList: make([]string, 0, len(exts)),
		minSize: minSize,
	}
	if p.minSize < 0 {
		p.minSize = 0
	}

	for _, x := range ignored {
		x = trimSeparators(strings.TrimSpace(x))
		if x == "" {
			continue
		}
		p.ignored = append(p.ignored, x)
	}

	for _, e := range exts {
		e = normalizeExt(e)
		if e == "" {
			continue
		}
		if _, ok := p.exts[e]; ok {
			continue
		}
		p.exts[e] = struct{}{}
		p.extList = append(p.extList, e)
	}
	return p
}

// ShouldIgnore 判断 path 是否位于任一忽略前缀之下（字符串前缀匹配）。
func (p Policy) ShouldIgnore(path string) bool {
	path = trimSeparators(path)
	for _, x := range p.ignored {
		if strings.HasPrefix(path, x) {
			return true
		}
	}
	return false
}

// IsAllowedExtension 判断文件名的扩展名（最后一个 '.' 之后，小写）是否在白名单内。
func (p Policy) IsAllowedExtension(filename string) bool {
	_, ok := p.exts[Extension(filename)]
	return ok
}

func (p Policy) MinSize() int64 { return p.minSize }

// Ignored 返回规范化后的忽略前缀（副本）。
func (p Policy) Ignored() []string { return append([]string(nil), p.ignored...) }

// Extensions 返回规范化后的白名单（保持输入顺序，副本）。
func (p Policy) Extensions() []string { return append([]string(nil), p.extList...) }

// Extension 返回文件名的扩展名：小写、不含 '.'；没有扩展名时返回空串。
func Extension(filename string) string {
	return normalizeExt(filepath.Ext(filename))
}

// BaseName 返回去掉扩展名后的文件名。
func BaseName(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}

func normalizeExt(e string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))
}

func trimSeparators(s string) string {
	return strings.TrimRight(s, `/\`)
}
