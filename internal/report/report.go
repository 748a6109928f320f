// Package report 把 ScanReport 渲染为 JSON / Markdown / HTML。
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/John-Robertt/mdd/internal/domain"
)

const (
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
)

// Render 按 format 渲染报告。
func Render(r domain.ScanReport, format string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatJSON, "":
		return JSON(r)
	case FormatMarkdown, "md":
		return Markdown(r), nil
	case FormatHTML:
		return HTML(r)
	default:
		return nil, fmt.Errorf("不支持的报告格式：%q（可选 json / markdown / html）", format)
	}
}

// JSON 输出缩进后的 JSON（末尾带换行）。
func JSON(r domain.ScanReport) ([]byte, error) {
	r.Finalize()
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
