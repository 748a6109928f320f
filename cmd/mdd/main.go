package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/John-Robertt/mdd/internal/config"
	"github.com/John-Robertt/mdd/internal/infra/history"
)

// Version 在构建时通过 -ldflags 注入。
var Version = "dev"

// cliEnv 收拢命令行的外部环境，测试用 buffer 替换即可。
type cliEnv struct {
	stdout io.Writer
	stderr io.Writer
	cwd    string
	isTTY  func(w io.Writer) bool
}

// exitError 携带退出码；err 为 nil 表示结果已经输出过，不再额外打印。
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func fail(err error) error { return &exitError{code: 1, err: err} }

func main() {
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取当前目录失败：%v\n", err)
		os.Exit(1)
	}
	os.Exit(execute(&cliEnv{
		stdout: os.Stdout,
		stderr: os.Stderr,
		cwd:    cwd,
		isTTY:  isTTY,
	}, os.Args[1:]))
}

// execute 运行一次命令并返回退出码：0 成功，1 执行失败，2 参数错误。
func execute(env *cliEnv, args []string) int {
	root := newRootCmd(env)
	root.SetArgs(args)
	root.SetOut(env.stdout)
	root.SetErr(env.stderr)

	err := root.ExecuteContext(context.Background())
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintf(env.stderr, "错误：%v\n", ee.err)
		}
		return ee.code
	}
	fmt.Fprintf(env.stderr, "参数错误：%v\n", err)
	return 2
}

// rootOpts 是所有子命令共享的参数。
type rootOpts struct {
	env        *cliEnv
	configFile string
	logLevel   string
}

func newRootCmd(env *cliEnv) *cobra.Command {
	o := &rootOpts{env: env}
	cmd := &cobra.Command{
		Use:   "mdd",
		Short: "媒体重复文件检测",
		Long: `mdd 扫描目录树中的媒体文件，按“文件名 + 大小”与“仅大小”两种方式找出可能的重复文件，
并统计可释放的空间。

stdout 为终端时输出人类可读摘要；否则 stdout 只输出一个 JSON 文档（摘要与日志走 stderr）。`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&o.configFile, "config", "", "配置文件路径（默认读取当前目录下的 "+config.FileName+"，可选）")
	cmd.PersistentFlags().StringVar(&o.logLevel, "log-level", "", "日志级别：debug|info|warn|error（默认 info）")

	cmd.AddCommand(
		newScanCmd(o),
		newProbeCmd(o),
		newOpenCmd(o),
		newDeleteCmd(o),
		newPruneCmd(o),
		newDefaultsCmd(o),
		newHistoryCmd(o),
		newServeCmd(o),
	)
	return cmd
}

// load 合并配置并按最终 log_level 构造 logger。
func (o *rootOpts) load(cmd *cobra.Command, cli config.CLIArgs) (config.EffectiveConfig, zerolog.Logger, error) {
	cli.ConfigFile = o.configFile
	if cmd.Flags().Changed("log-level") {
		cli.LogLevel = o.logLevel
		cli.LogLevelSet = true
	}
	eff, err := config.LoadEffective(o.env.cwd, cli)
	if err != nil {
		return config.EffectiveConfig{}, newLogger(o.env, config.DefaultLogLevel), err
	}
	return eff, newLogger(o.env, eff.LogLevel), nil
}

// newLogger 在 stderr 上构造 console 日志（stdout 留给结果）。
func newLogger(env *cliEnv, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	w := zerolog.ConsoleWriter{
		Out:        env.stderr,
		TimeFormat: "15:04:05",
		NoColor:    !env.isTTY(env.stderr),
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// openHistory 打开历史库；未启用或打开失败时返回 nil（失败只记日志）。
func openHistory(eff config.EffectiveConfig, log zerolog.Logger) *history.Store {
	if !eff.History.Enabled || eff.History.DBPath == "" {
		return nil
	}
	s, err := history.Open(eff.History.DBPath, log)
	if err != nil {
		log.Warn().Err(err).Str("db", eff.History.DBPath).Msg("打开扫描历史失败，本次不记录")
		return nil
	}
	return s
}

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
