package run

import (
	"time"

	"github.com/John-Robertt/mdd/internal/config"
	"github.com/John-Robertt/mdd/internal/domain"
)

// Observer 用于把“运行进度/阶段/恢复的失败”从核心执行流程中解耦出来。
//
// 约束：
// - run 包只负责发事件，不做任何输出（避免污染 stdout 的 JSON 契约）。
// - HTTP 服务可能并发执行多次扫描；同一个 Observer 被共享时，实现必须并发安全。
type Observer interface {
	// OnStart 在 ExecuteWithObserver 开始时调用（应尽量早，保证用户 1 秒内看到输出）。
	OnStart(eff config.EffectiveConfig)
	// OnPhaseDone 在阶段结束时调用（"scan" / "analyze"），用于打印阶段统计与耗时。
	OnPhaseDone(name string, fields map[string]any, dur time.Duration)
	// OnIssue 对每个被就地恢复的目录/文件失败调用一次（按发生顺序）。
	OnIssue(issue domain.ScanIssue)
}
