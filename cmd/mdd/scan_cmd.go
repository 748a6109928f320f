package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/John-Robertt/mdd/internal/app/run"
	"github.com/John-Robertt/mdd/internal/config"
	"github.com/John-Robertt/mdd/internal/domain"
	"github.com/John-Robertt/mdd/internal/infra/fsx"
	"github.com/John-Robertt/mdd/internal/report"
)

type scanOpts struct {
	ignore    []string
	exts      []string
	minSize   int64
	format    string
	out       string
	noHistory bool
}

func newScanCmd(o *rootOpts) *cobra.Command {
	so := &scanOpts{}
	cmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "扫描目录并检测重复文件",
		Long: `扫描 path（未指定时读取配置文件中的 path）下的媒体文件，输出重复检测报告。

--out 指定时按 --format 把报告写入文件（加锁 + 原子替换）。
扫描根目录无效时退出码为 1；单个目录/文件读取失败只记入 issues，不影响退出码。`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, o, so, args)
		},
	}
	f := cmd.Flags()
	f.StringSliceVar(&so.ignore, "ignore", nil, "忽略的路径前缀（可重复）；指定后覆盖配置中的 ignored_paths")
	f.StringSliceVar(&so.exts, "ext", nil, "扩展名白名单（可重复或逗号分隔）")
	f.Int64Var(&so.minSize, "min-size", 0, "最小文件大小（字节）")
	f.StringVar(&so.format, "format", report.FormatJSON, "报告格式：json|markdown|html")
	f.StringVar(&so.out, "out", "", "把报告写入该文件")
	f.BoolVar(&so.noHistory, "no-history", false, "本次不写入扫描历史")
	return cmd
}

func (so *scanOpts) cliArgs(cmd *cobra.Command, args []string) config.CLIArgs {
	cli := config.CLIArgs{NeedPath: true}
	if len(args) > 0 {
		cli.Path = args[0]
	}
	f := cmd.Flags()
	if f.Changed("ignore") {
		cli.Ignored, cli.IgnoredSet = so.ignore, true
	}
	if f.Changed("ext") {
		cli.Extensions, cli.ExtensionsSet = so.exts, true
	}
	if f.Changed("min-size") {
		cli.MinSize, cli.MinSizeSet = so.minSize, true
	}
	return cli
}

func runScan(cmd *cobra.Command, o *rootOpts, so *scanOpts, args []string) error {
	env := o.env
	if _, err := report.Render(domain.ScanReport{}, so.format); err != nil {
		return err
	}

	eff, log, err := o.load(cmd, so.cliArgs(cmd, args))
	if err != nil {
		rr := reportForConfigError(env.cwd, args, err)
		emitReport(env, rr, report.FormatJSON)
		return &exitError{code: 1}
	}

	deps := run.Deps{Fs: afero.NewOsFs(), Logger: &log}
	if !so.noHistory {
		if hs := openHistory(eff, log); hs != nil {
			defer hs.Close()
			deps.History = hs
		}
	}

	var obs run.Observer
	if env.isTTY(env.stderr) {
		ui := newProgressUI(env.stderr)
		defer ui.Close()
		obs = ui
	}

	rr := run.ExecuteWithObserver(cmd.Context(), eff, deps, obs)

	if so.out != "" {
		out := so.out
		if !filepath.IsAbs(out) {
			out = filepath.Join(env.cwd, out)
		}
		b, err := report.Render(rr, so.format)
		if err == nil {
			err = fsx.WriteReport(out, b)
		}
		if err != nil {
			emitReport(env, rr, so.format)
			return fail(fmt.Errorf("写入报告失败：%w", err))
		}
		log.Info().Str("out", out).Str("format", so.format).Msg("报告已写入")
	}

	emitReport(env, rr, so.format)
	if !rr.Success {
		return &exitError{code: 1}
	}
	return nil
}

// emitReport 遵守输出契约：
// - stdout 是 TTY：打印摘要与重复组
// - stdout 非 TTY：stdout 只输出一个报告文档（按 format），摘要写 stderr
func emitReport(env *cliEnv, rr domain.ScanReport, format string) {
	if env.isTTY(env.stdout) {
		printSummary(env.stdout, rr)
		printGroups(env.stdout, rr)
		return
	}
	b, err := report.Render(rr, format)
	if err != nil {
		b, _ = report.JSON(rr)
	}
	_, _ = env.stdout.Write(b)
	printSummary(env.stderr, rr)
}

func printSummary(w io.Writer, rr domain.ScanReport) {
	if !rr.Success {
		color.New(color.FgRed).Fprintf(w, "失败：%s %s\n", rr.ErrorCode, rr.Error)
		return
	}
	st := rr.Duplicates.Stats
	fmt.Fprintf(w, "完成：files=%d exact=%d组/%d个文件（可释放 %s） size=%d组/%d个文件（可能释放 %s） issues=%d (%.2fs)\n",
		rr.ScanStats.TotalFiles,
		st.ExactGroups, st.ExactFiles, st.ExactWastedFormatted,
		st.SizeGroups, st.SizeFiles, st.SizePotentialFormatted,
		len(rr.Issues), rr.ExecutionTime,
	)
}

func printGroups(w io.Writer, rr domain.ScanReport) {
	if !rr.Success {
		return
	}
	head := color.New(color.FgCyan, color.Bold)
	dim := color.New(color.FgHiBlack)
	warn := color.New(color.FgYellow)

	for _, g := range rr.Duplicates.Exact {
		head.Fprintf(w, "\n[exact] %s  %s × %d", g.Filename, g.SizeFormatted, g.Count)
		dim.Fprintf(w, "  可释放 %s\n", domain.FormatSize(g.Wasted))
		for _, f := range g.Files {
			fmt.Fprintf(w, "  %s\n", f.Path)
		}
	}
	for _, g := range rr.Duplicates.SizeOnly {
		head.Fprintf(w, "\n[size] %s × %d（%d 种文件名）", g.SizeFormatted, g.Count, g.UniqueFilenames)
		dim.Fprintf(w, "  可能释放 %s\n", domain.FormatSize(g.Potential))
		for _, f := range g.Files {
			fmt.Fprintf(w, "  %s\n", f.Path)
		}
	}
	if len(rr.Issues) > 0 {
		fmt.Fprintln(w)
		for _, is := range rr.Issues {
			warn.Fprintf(w, "跳过 %s %s: %s\n", issueKind(is.Kind), is.Path, truncate(is.Error, 160))
		}
	}
}

func reportForConfigError(cwd string, args []string, err error) domain.ScanReport {
	now := time.Now().UTC()
	path := cwd
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		path = args[0]
	}
	rr := domain.ScanReport{
		Path:       path,
		ErrorCode:  config.Code(err),
		Error:      err.Error(),
		StartedAt:  now,
		FinishedAt: now,
	}
	if rr.ErrorCode == "" {
		rr.ErrorCode = config.ErrCodeInvalid
	}
	rr.Finalize()
	return rr
}

// writeJSON 输出缩进 JSON（非 TTY 时各子命令的唯一 stdout 文档）。
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
