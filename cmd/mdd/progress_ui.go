package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/John-Robertt/mdd/internal/app/run"
	"github.com/John-Robertt/mdd/internal/config"
	"github.com/John-Robertt/mdd/internal/domain"
)

var _ run.Observer = (*progressUI)(nil)

// progressUI 是交互终端下的进度输出（写 stderr，不污染 stdout 的报告输出）。
//
// 扫描本身是同步的、没有逐条事件；keepalive ticker 在长时间没有输出时打印一行“仍在扫描”。
type progressUI struct {
	w io.Writer

	mu          sync.Mutex
	startedAt   time.Time
	lastPrinted time.Time
	phase       string
	issues      int

	keepaliveThreshold time.Duration
	tickerInterval     time.Duration

	stopCh        chan struct{}
	tickerStarted bool
}

func newProgressUI(w io.Writer) *progressUI {
	return &progressUI{
		w:                  w,
		keepaliveThreshold: 6 * time.Second,
		tickerInterval:     2 * time.Second,
	}
}

func (p *progressUI) OnStart(eff config.EffectiveConfig) {
	now := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.startedAt.IsZero() {
		p.startedAt = now
	}
	p.phase = "scan"

	color.New(color.Bold).Fprintf(p.w, "[%s] mdd scan\n", now.Format("15:04:05"))
	fmt.Fprintln(p.w, "配置（生效）:")
	fmt.Fprintf(p.w, "  path: %s\n", eff.Path)
	fmt.Fprintf(p.w, "  ignored_paths: %s\n", formatStringListJSON(eff.IgnoredPaths))
	fmt.Fprintf(p.w, "  extensions: %s\n", formatStringListJSON(eff.Extensions))
	fmt.Fprintf(p.w, "  min_file_size: %s\n", domain.FormatSize(eff.MinFileSize))
	fmt.Fprintf(p.w, "  max_depth: %d\n", eff.MaxDepth)
	if eff.Source != "" {
		fmt.Fprintf(p.w, "  config: %s\n", eff.Source)
	}
	if eff.History.Enabled {
		fmt.Fprintf(p.w, "  history: %s\n", eff.History.DBPath)
	}
	fmt.Fprintln(p.w)

	p.lastPrinted = time.Now()
	if !p.tickerStarted {
		p.startTickerLocked()
	}
}

func (p *progressUI) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch name {
	case "scan":
		p.phase = "analyze"
		fmt.Fprintf(p.w, "扫描: files=%d issues=%d (%s)\n",
			intField(fields, "files"), intField(fields, "issues"), formatShortDuration(dur),
		)
	case "analyze":
		p.phase = ""
		fmt.Fprintf(p.w, "分析: exact_groups=%d size_groups=%d wasted=%s potential=%s (%s)\n",
			intField(fields, "exact_groups"),
			intField(fields, "size_groups"),
			domain.FormatSize(int64Field(fields, "wasted")),
			domain.FormatSize(int64Field(fields, "potential")),
			formatShortDuration(dur),
		)
		p.stopTickerLocked()
	default:
		fmt.Fprintf(p.w, "%s (%s)\n", name, formatShortDuration(dur))
	}

	p.lastPrinted = time.Now()
}

func (p *progressUI) OnIssue(issue domain.ScanIssue) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.issues++
	color.New(color.FgYellow).Fprintf(p.w, "跳过 %s %s: %s\n", issueKind(issue.Kind), issue.Path, truncate(issue.Error, 160))
	p.lastPrinted = time.Now()
}

// Close 停止 keepalive（扫描失败时不会有 analyze 事件）。
func (p *progressUI) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopTickerLocked()
}

func (p *progressUI) stopTickerLocked() {
	if p.tickerStarted {
		close(p.stopCh)
		p.tickerStarted = false
	}
}

func (p *progressUI) startTickerLocked() {
	p.stopCh = make(chan struct{})
	p.tickerStarted = true
	stop := p.stopCh

	interval := p.tickerInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	threshold := p.keepaliveThreshold
	if threshold <= 0 {
		threshold = 6 * time.Second
	}

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-t.C:
				p.mu.Lock()
				if p.phase != "" && time.Since(p.lastPrinted) > threshold {
					fmt.Fprintf(p.w, "进度: %s 进行中 issues=%d elapsed=%s\n",
						phaseLabel(p.phase), p.issues, formatElapsed(time.Since(p.startedAt)),
					)
					p.lastPrinted = time.Now()
				}
				p.mu.Unlock()
			case <-stop:
				return
			}
		}
	}()
}

func phaseLabel(phase string) string {
	switch phase {
	case "scan":
		return "扫描"
	case "analyze":
		return "分析"
	default:
		return phase
	}
}

func issueKind(kind string) string {
	switch kind {
	case domain.IssueDirectory:
		return "目录"
	case domain.IssueFile:
		return "文件"
	default:
		return kind
	}
}

func formatStringListJSON(xs []string) string {
	// json.Marshal(nil slice) => "null"；对用户更友好的是 "[]"
	if xs == nil {
		xs = []string{}
	}
	b, err := json.Marshal(xs)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// truncate 按字符（而非字节）截断，避免切坏中文。
func truncate(s string, max int) string {
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", sec/3600, (sec%3600)/60, sec%60)
}

func intField(fields map[string]any, key string) int {
	return int(int64Field(fields, key))
}

// int64Field 读取字节数等可能超过 32 位 int 的字段。
func int64Field(fields map[string]any, key string) int64 {
	switch x := fields[key].(type) {
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	case uint:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return int64(x)
	default:
		return 0
	}
}
