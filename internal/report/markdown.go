package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/John-Robertt/mdd/internal/domain"
)

// Title 是 Markdown / HTML 报告的标题。
const Title = "媒体重复文件报告"

// Markdown 渲染人类可读的报告；组的顺序与 JSON 一致（按大小降序）。
func Markdown(r domain.ScanReport) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# %s\n\n", Title)

	fmt.Fprintf(&b, "- 扫描目录：`%s`\n", r.Path)
	if r.ID != "" {
		fmt.Fprintf(&b, "- 扫描 ID：`%s`\n", r.ID)
	}
	if !r.StartedAt.IsZero() {
		fmt.Fprintf(&b, "- 开始时间：%s\n", r.StartedAt.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "- 耗时：%.2f s\n", r.ExecutionTime)

	if !r.Success {
		fmt.Fprintf(&b, "\n## 扫描失败\n\n%s\n", cell(r.Error))
		return b.Bytes()
	}

	fmt.Fprintf(&b, "- 文件数：%d（合计 %s）\n", r.ScanStats.TotalFiles, domain.FormatSize(r.ScanStats.TotalSize))
	if len(r.IgnoredPaths) > 0 {
		fmt.Fprintf(&b, "- 忽略路径：%s\n", codeList(r.IgnoredPaths))
	}
	fmt.Fprintf(&b, "- 扩展名：%s；最小文件：%s\n",
		codeList(r.Config.SupportedExtensions), domain.FormatSize(r.Config.MinFileSize))

	st := r.Duplicates.Stats
	b.WriteString("\n## 汇总\n\n")
	b.WriteString("| 类型 | 组数 | 文件数 | 可释放空间 |\n|---|---:|---:|---:|\n")
	fmt.Fprintf(&b, "| 完全重复（文件名 + 大小） | %d | %d | %s |\n", st.ExactGroups, st.ExactFiles, domain.FormatSize(st.ExactWasted))
	fmt.Fprintf(&b, "| 大小相同（文件名不同） | %d | %d | %s |\n", st.SizeGroups, st.SizeFiles, domain.FormatSize(st.SizePotential))

	if exts := r.ScanStats.SortedExtensions(); len(exts) > 0 {
		b.WriteString("\n## 扩展名\n\n| 扩展名 | 文件数 | 大小 |\n|---|---:|---:|\n")
		for _, e := range exts {
			s := r.ScanStats.Extensions[e]
			fmt.Fprintf(&b, "| %s | %d | %s |\n", cell(e), s.Count, domain.FormatSize(s.Size))
		}
	}

	b.WriteString("\n## 完全重复\n\n")
	if len(r.Duplicates.Exact) == 0 {
		b.WriteString("无。\n")
	}
	for _, g := range r.Duplicates.Exact {
		fmt.Fprintf(&b, "### %s（%s × %d，可释放 %s）\n\n", cell(g.Filename), domain.FormatSize(g.Size), g.Count, domain.FormatSize(g.Wasted))
		b.WriteString("| # | 路径 | 修改时间 |\n|---:|---|---|\n")
		for i, f := range g.Files {
			fmt.Fprintf(&b, "| %d | %s | %s |\n", i+1, cell(f.Path), modTime(f.ModTime))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n## 大小相同\n\n")
	if len(r.Duplicates.SizeOnly) == 0 {
		b.WriteString("无。\n")
	}
	for _, g := range r.Duplicates.SizeOnly {
		fmt.Fprintf(&b, "### %s × %d（%d 种文件名，可能释放 %s）\n\n", domain.FormatSize(g.Size), g.Count, g.UniqueFilenames, domain.FormatSize(g.Potential))
		b.WriteString("| # | 文件名 | 路径 |\n|---:|---|---|\n")
		for i, f := range g.Files {
			fmt.Fprintf(&b, "| %d | %s | %s |\n", i+1, cell(f.Filename), cell(f.Path))
		}
		b.WriteString("\n")
	}

	if len(r.Issues) > 0 {
		b.WriteString("\n## 扫描问题\n\n| 类型 | 路径 | 错误 |\n|---|---|---|\n")
		for _, is := range r.Issues {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", cell(is.Kind), cell(is.Path), cell(is.Error))
		}
	}
	return b.Bytes()
}

// cell 转义表格单元格里会破坏结构的字符。
func cell(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}

func codeList(xs []string) string {
	if len(xs) == 0 {
		return "（无）"
	}
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = "`" + x + "`"
	}
	return strings.Join(parts, "、")
}

func modTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
