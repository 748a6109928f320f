package run

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/John-Robertt/mdd/internal/app"
	"github.com/John-Robertt/mdd/internal/config"
	"github.com/John-Robertt/mdd/internal/domain"
	"github.com/John-Robertt/mdd/internal/scan"
)

// Recorder 记录已完成的扫描摘要（由 infra/history 实现）。
type Recorder interface {
	Record(ctx context.Context, r domain.ScanReport) error
}

// Deps 是一次执行的外部依赖；零值可用（OsFs + 无日志 + 不记录历史）。
type Deps struct {
	Fs      afero.Fs
	Logger  *zerolog.Logger
	History Recorder
}

func (d Deps) fs() afero.Fs {
	if d.Fs == nil {
		return afero.NewOsFs()
	}
	return d.Fs
}

func (d Deps) logger() zerolog.Logger {
	if d.Logger == nil {
		return zerolog.Nop()
	}
	return *d.Logger
}

// Execute 执行一次扫描 + 重复检测，并返回对外稳定的 ScanReport。
// 单个目录/文件的失败只进入 report.Issues；只有根目录无效（或 ctx 取消）才使整次执行失败。
func Execute(ctx context.Context, eff config.EffectiveConfig, deps Deps) domain.ScanReport {
	return ExecuteWithObserver(ctx, eff, deps, nil)
}

// ExecuteWithObserver 与 Execute 相同，但允许传入 Observer 以输出进度/阶段信息（由上层决定是否启用）。
func ExecuteWithObserver(ctx context.Context, eff config.EffectiveConfig, deps Deps, obs Observer) domain.ScanReport {
	started := time.Now().UTC()
	log := deps.logger().With().Str("component", "run").Logger()

	if obs != nil {
		obs.OnStart(eff)
	}

	policy := eff.Policy()
	rr := domain.ScanReport{
		ID:           uuid.NewString(),
		Path:         eff.Path,
		IgnoredPaths: policy.Ignored(),
		Config: domain.ReportConfig{
			MinFileSize:         policy.MinSize(),
			SupportedExtensions: policy.Extensions(),
		},
		StartedAt: started,
	}

	if err := ctx.Err(); err != nil {
		return fail(rr, domain.ErrCodeCanceled, fmt.Sprintf("扫描已取消：%v", err))
	}

	scanner := scan.New(policy,
		scan.WithFs(deps.fs()),
		scan.WithLogger(deps.logger()),
		scan.WithMaxDepth(eff.MaxDepth),
	)

	scanStarted := time.Now()
	res, err := scanner.Scan(eff.Path)
	if err != nil {
		log.Error().Err(err).Str("path", eff.Path).Msg("扫描根目录无效")
		return fail(rr, domain.ErrCodeInvalidRoot, err.Error())
	}
	scanDur := time.Since(scanStarted)
	rr.Path = res.Root
	rr.ScanStats = scanner.Stats()
	rr.Issues = res.Issues

	if obs != nil {
		for _, is := range res.Issues {
			obs.OnIssue(is)
		}
		obs.OnPhaseDone("scan", map[string]any{
			"files":   len(res.Files),
			"scanned": res.TotalScanned,
			"issues":  len(res.Issues),
		}, scanDur)
	}

	if err := ctx.Err(); err != nil {
		return fail(rr, domain.ErrCodeCanceled, fmt.Sprintf("扫描已取消：%v", err))
	}

	analyzeStarted := time.Now()
	rr.Duplicates = app.Analyze(res.Files)
	analyzeDur := time.Since(analyzeStarted)

	if obs != nil {
		st := rr.Duplicates.Stats
		obs.OnPhaseDone("analyze", map[string]any{
			"exact_groups": st.ExactGroups,
			"size_groups":  st.SizeGroups,
			"wasted":       st.ExactWasted,
			"potential":    st.SizePotential,
		}, analyzeDur)
	}

	rr.Success = true
	rr.FinishedAt = time.Now().UTC()
	rr.Finalize()

	log.Info().
		Str("id", rr.ID).
		Str("path", rr.Path).
		Int("files", rr.ScanStats.TotalFiles).
		Int("exact_groups", rr.Duplicates.Stats.ExactGroups).
		Int("size_groups", rr.Duplicates.Stats.SizeGroups).
		Float64("seconds", rr.ExecutionTime).
		Msg("扫描完成")

	if deps.History != nil {
		if err := deps.History.Record(ctx, rr); err != nil {
			// 历史只是附带记录：失败不影响本次结果。
			log.Warn().Err(err).Str("id", rr.ID).Msg("写入扫描历史失败")
		}
	}
	return rr
}

func fail(rr domain.ScanReport, code, msg string) domain.ScanReport {
	rr.Success = false
	rr.ErrorCode = code
	rr.Error = msg
	rr.FinishedAt = time.Now().UTC()
	rr.Finalize()
	return rr
}
