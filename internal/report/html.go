package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/John-Robertt/mdd/internal/app/planner"
	"github.com/John-Robertt/mdd/internal/domain"
)

const page = `<!DOCTYPE html>
<html lang="zh-CN">
<head>
<meta charset="utf-8">
<title></title>
<style>
body { font-family: sans-serif; margin: 2em auto; max-width: 72em; }
table.mdd-table { border-collapse: collapse; margin-bottom: 1em; }
table.mdd-table th, table.mdd-table td { border: 1px solid #ccc; padding: 0.25em 0.6em; }
tr.mdd-keep td { background: #eef8ee; }
.mdd-failed { color: #b00; }
</style>
</head>
<body></body>
</html>`

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

// HTML 把 Markdown 报告转成独立的 HTML 页面。
//
// 转换后再用 goquery 做结构化补充：
// - <title> 与表格 class
// - 每个 <h2> 带稳定 id（summary / exact / size / issues / ...），便于页面内跳转
// - 完全重复组里 prune 默认策略（oldest）会保留的那一行标记 mdd-keep
func HTML(r domain.ScanReport) ([]byte, error) {
	var body bytes.Buffer
	if err := md.Convert(Markdown(r), &body); err != nil {
		return nil, fmt.Errorf("markdown 转 html 失败：%w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, err
	}
	doc.Find("title").SetText(fmt.Sprintf("%s - %s", Title, r.Path))
	doc.Find("body").SetHtml(body.String())

	doc.Find("table").AddClass("mdd-table")
	doc.Find("h2").Each(func(_ int, s *goquery.Selection) {
		if id, ok := sectionIDs[strings.TrimSpace(s.Text())]; ok {
			s.SetAttr("id", id)
		}
	})
	doc.Find("h2#failed").AddClass("mdd-failed")

	// 完全重复区块：从 h2#exact 到下一个 h2 之间的表格，与 Exact 一一对应，行序即 Files 顺序。
	keep := keepRows(r.Duplicates.Exact)
	doc.Find("h2#exact").NextUntil("h2").Filter("table").Each(func(i int, t *goquery.Selection) {
		if i < len(keep) && keep[i] >= 0 {
			t.Find("tbody tr").Eq(keep[i]).AddClass("mdd-keep")
		}
	})

	out, err := doc.Html()
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

var sectionIDs = map[string]string{
	"汇总":   "summary",
	"扩展名":  "extensions",
	"完全重复": "exact",
	"大小相同": "size",
	"扫描问题": "issues",
	"扫描失败": "failed",
}

// keepRows 返回每个组里 prune 默认会保留的文件下标（-1 表示无）。
func keepRows(groups []domain.ExactGroup) []int {
	rows := make([]int, len(groups))
	for i, g := range groups {
		rows[i] = -1
		plans, err := planner.PlanPrune([]domain.ExactGroup{g}, domain.KeepOldest)
		if err != nil || len(plans) == 0 {
			continue
		}
		for j, f := range g.Files {
			if f.Path == plans[0].Keep {
				rows[i] = j
				break
			}
		}
	}
	return rows
}
