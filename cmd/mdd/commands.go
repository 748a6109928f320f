package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/John-Robertt/mdd/internal/api"
	"github.com/John-Robertt/mdd/internal/app/planner"
	"github.com/John-Robertt/mdd/internal/app/run"
	"github.com/John-Robertt/mdd/internal/config"
	"github.com/John-Robertt/mdd/internal/domain"
	"github.com/John-Robertt/mdd/internal/infra/fsx"
	"github.com/John-Robertt/mdd/internal/infra/history"
	"github.com/John-Robertt/mdd/internal/scan"
	"github.com/John-Robertt/mdd/internal/viewer"
)

func absFrom(cwd, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(cwd, p)
}

func newProbeCmd(o *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "probe <path>",
		Short: "检查路径是否存在、可读、可写，并统计目录条目（最多 1000 个）",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env := o.env
			res, err := scan.Probe(afero.NewOsFs(), absFrom(env.cwd, args[0]))
			if err != nil {
				return fail(err)
			}
			if !env.isTTY(env.stdout) {
				return writeJSON(env.stdout, res)
			}
			fmt.Fprintf(env.stdout, "path: %s\n", res.Path)
			fmt.Fprintf(env.stdout, "  exists=%v directory=%v readable=%v writable=%v\n",
				res.Exists, res.IsDirectory, res.IsReadable, res.IsWritable)
			if res.IsDirectory && res.IsReadable {
				more := ""
				if res.Truncated {
					more = "+"
				}
				fmt.Fprintf(env.stdout, "  files=%d%s dirs=%d%s\n", res.FileCount, more, res.DirCount, more)
			}
			if res.Error != "" {
				color.New(color.FgYellow).Fprintf(env.stdout, "  error: %s\n", res.Error)
			}
			return nil
		},
	}
}

func newOpenCmd(o *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "open <file>",
		Short: "用配置的外部查看器打开文件",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eff, log, err := o.load(cmd, config.CLIArgs{})
			if err != nil {
				return fail(err)
			}
			res, err := viewer.New(eff.Viewers, log).Open(absFrom(o.env.cwd, args[0]))
			if err != nil {
				return fail(err)
			}
			if !o.env.isTTY(o.env.stdout) {
				return writeJSON(o.env.stdout, res)
			}
			fmt.Fprintln(o.env.stdout, res.Message)
			return nil
		},
	}
}

func newDeleteCmd(o *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <file>",
		Short: "删除单个文件（文件必须存在，所在目录必须可写）",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, err := o.load(cmd, config.CLIArgs{})
			if err != nil {
				return fail(err)
			}
			path := absFrom(o.env.cwd, args[0])
			if err := fsx.DeleteFile(path); err != nil {
				return fail(err)
			}
			log.Info().Str("path", path).Msg("已删除文件")
			if !o.env.isTTY(o.env.stdout) {
				return writeJSON(o.env.stdout, map[string]any{"success": true, "file": path})
			}
			fmt.Fprintf(o.env.stdout, "已删除：%s\n", path)
			return nil
		},
	}
}

type pruneOpts struct {
	keep  string
	sort  string
	apply bool
}

// pruneOutput 是 prune 在非 TTY 下的 stdout 文档。
type pruneOutput struct {
	ReportID string             `json:"report_id"`
	Path     string             `json:"base_path"`
	Apply    bool               `json:"apply"`
	Keep     string             `json:"keep"`
	Plans    []domain.PrunePlan `json:"plans"`
	Deleted  int                `json:"deleted"`
	Freed    int64              `json:"freed"`
	Failed   int                `json:"failed"`
}

func newPruneCmd(o *rootOpts) *cobra.Command {
	po := &pruneOpts{}
	cmd := &cobra.Command{
		Use:   "prune [path]",
		Short: "为完全重复的文件生成清理计划（默认只预览，--apply 才删除）",
		Long: `扫描 path 后，对每个“文件名 + 大小”相同的组保留一份，其余列为待删除。
仅大小相同的组不参与清理。默认 dry-run；--apply 时逐个删除，单个失败不影响其他文件。`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrune(cmd, o, po, args)
		},
	}
	cmd.Flags().StringVar(&po.keep, "keep", domain.KeepOldest, "保留策略：oldest|first")
	cmd.Flags().StringVar(&po.sort, "sort", "size", "计划顺序：size（按文件大小降序）|path（按保留文件路径）")
	cmd.Flags().BoolVar(&po.apply, "apply", false, "真正删除文件")
	return cmd
}

func runPrune(cmd *cobra.Command, o *rootOpts, po *pruneOpts, args []string) error {
	env := o.env
	// 先校验策略，避免白跑一次扫描。
	if _, err := planner.PlanPrune(nil, po.keep); err != nil {
		return &exitError{code: 2, err: err}
	}
	if po.sort != "size" && po.sort != "path" {
		return &exitError{code: 2, err: fmt.Errorf("--sort 只能是 size 或 path，实际是 %q", po.sort)}
	}
	cli := config.CLIArgs{NeedPath: true}
	if len(args) > 0 {
		cli.Path = args[0]
	}
	eff, log, err := o.load(cmd, cli)
	if err != nil {
		return fail(err)
	}

	deps := run.Deps{Fs: afero.NewOsFs(), Logger: &log}
	if hs := openHistory(eff, log); hs != nil {
		defer hs.Close()
		deps.History = hs
	}
	rr := run.Execute(cmd.Context(), eff, deps)
	if !rr.Success {
		return fail(fmt.Errorf("%s：%s", rr.ErrorCode, rr.Error))
	}

	plans, err := planner.PlanPrune(rr.Duplicates.Exact, po.keep)
	if err != nil {
		return &exitError{code: 2, err: err}
	}
	if po.sort == "path" {
		planner.SortPlans(plans)
	}

	out := pruneOutput{ReportID: rr.ID, Path: rr.Path, Apply: po.apply, Keep: po.keep, Plans: plans}
	if po.apply {
		out.Deleted, out.Freed = planner.Apply(plans, fsx.DeleteFile)
		for _, p := range plans {
			for _, d := range p.Delete {
				if !d.Done {
					out.Failed++
					log.Warn().Str("path", d.Path).Str("err", d.Error).Msg("删除失败")
				}
			}
		}
	} else {
		for _, p := range plans {
			out.Freed += p.Frees()
		}
	}

	if !env.isTTY(env.stdout) {
		if err := writeJSON(env.stdout, out); err != nil {
			return err
		}
	} else {
		printPlans(env, out)
	}

	verb := "可释放"
	if po.apply {
		verb = "已释放"
	}
	fmt.Fprintf(env.stderr, "完成：groups=%d deleted=%d failed=%d %s %s\n",
		len(plans), out.Deleted, out.Failed, verb, domain.FormatSize(out.Freed))
	if out.Failed > 0 {
		return &exitError{code: 1}
	}
	return nil
}

func printPlans(env *cliEnv, out pruneOutput) {
	keep := color.New(color.FgGreen)
	del := color.New(color.FgRed)
	for _, p := range out.Plans {
		fmt.Fprintf(env.stdout, "\n%s\n", p.Key)
		keep.Fprintf(env.stdout, "  保留 %s\n", p.Keep)
		for _, d := range p.Delete {
			switch {
			case d.Done:
				del.Fprintf(env.stdout, "  已删 %s\n", d.Path)
			case d.Error != "":
				color.New(color.FgYellow).Fprintf(env.stdout, "  失败 %s: %s\n", d.Path, d.Error)
			default:
				del.Fprintf(env.stdout, "  待删 %s\n", d.Path)
			}
		}
	}
	if !out.Apply && len(out.Plans) > 0 {
		fmt.Fprintln(env.stdout, "\n（预览）使用 --apply 执行删除")
	}
}

// defaultsOutput 是 defaults 命令的输出（get_defaults 的 CLI 版本，附带完整生效配置）。
type defaultsOutput struct {
	Path                string   `json:"remote_drive_path"`
	IgnoredPaths        []string `json:"paths_to_ignore"`
	SupportedExtensions []string `json:"supported_extensions"`
	MinFileSize         int64    `json:"min_file_size"`
	MaxDepth            int      `json:"max_depth"`
	LogLevel            string   `json:"log_level"`
	ImageViewer         string   `json:"image_viewer"`
	VideoViewer         string   `json:"video_viewer"`
	VideoExtensions     []string `json:"video_extensions"`
	HistoryEnabled      bool     `json:"history_enabled"`
	HistoryDB           string   `json:"history_db,omitempty"`
	Source              string   `json:"config_file,omitempty"`
}

func newDefaultsCmd(o *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "defaults",
		Short: "打印生效的默认配置（默认扫描目录、忽略路径等）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eff, _, err := o.load(cmd, config.CLIArgs{})
			if err != nil {
				return fail(err)
			}
			return writeJSON(o.env.stdout, defaultsOutput{
				Path:                eff.Path,
				IgnoredPaths:        nonNil(eff.IgnoredPaths),
				SupportedExtensions: nonNil(eff.Extensions),
				MinFileSize:         eff.MinFileSize,
				MaxDepth:            eff.MaxDepth,
				LogLevel:            eff.LogLevel,
				ImageViewer:         eff.Viewers.Image,
				VideoViewer:         eff.Viewers.Video,
				VideoExtensions:     nonNil(eff.Viewers.VideoExtensions),
				HistoryEnabled:      eff.History.Enabled,
				HistoryDB:           eff.History.DBPath,
				Source:              eff.Source,
			})
		},
	}
}

func nonNil(xs []string) []string {
	if xs == nil {
		return []string{}
	}
	return xs
}

func newHistoryCmd(o *rootOpts) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "列出最近的扫描记录",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env := o.env
			eff, log, err := o.load(cmd, config.CLIArgs{})
			if err != nil {
				return fail(err)
			}
			if !eff.History.Enabled {
				return fail(errors.New("扫描历史未启用（history.enabled=false）"))
			}
			hs, err := history.Open(eff.History.DBPath, log)
			if err != nil {
				return fail(err)
			}
			defer hs.Close()

			entries, err := hs.List(cmd.Context(), limit)
			if err != nil {
				return fail(err)
			}
			if !env.isTTY(env.stdout) {
				return writeJSON(env.stdout, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(env.stdout, "暂无扫描记录")
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(env.stdout, "%s  %s  files=%d exact=%d(%s) size=%d(%s) issues=%d %.2fs  %s\n",
					e.StartedAt.Local().Format("2006-01-02 15:04:05"), e.Path,
					e.TotalFiles,
					e.ExactGroups, domain.FormatSize(e.ExactWasted),
					e.SizeGroups, domain.FormatSize(e.SizePotential),
					e.Issues, e.ExecutionTime, e.ID,
				)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", history.DefaultLimit, "最多显示的条数")
	return cmd
}

func newServeCmd(o *rootOpts) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP JSON 接口（/api?action=scan|test_path|open_file|get_defaults|delete_file）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eff, log, err := o.load(cmd, config.CLIArgs{})
			if err != nil {
				return fail(err)
			}

			deps := api.Deps{Logger: &log}
			if hs := openHistory(eff, log); hs != nil {
				defer hs.Close()
				deps.History = hs
			}

			srv := &http.Server{
				Addr:              addr,
				Handler:           api.New(eff, deps).Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			log.Info().Str("addr", addr).Msg("HTTP 服务已启动")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fail(err)
			}
			log.Info().Msg("HTTP 服务已停止")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "监听地址")
	return cmd
}
