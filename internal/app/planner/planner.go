package planner

import (
	"fmt"
	"sort"

	"github.com/John-Robertt/mdd/internal/domain"
)

// PlanPrune 为每个 exact 组生成确定性的清理计划（不做任何删除）。
//
// 只处理 exact 组：size-only 组只是“大小相同”，不足以证明是重复文件。
// 保留策略：
// - oldest：保留 ModTime 最早的一份；相同时间取输入顺序靠前者
// - first：保留组内第一份（即扫描遍历顺序）
func PlanPrune(groups []domain.ExactGroup, strategy string) ([]domain.PrunePlan, error) {
	if err := validateStrategy(strategy); err != nil {
		return nil, err
	}

	plans := make([]domain.PrunePlan, 0, len(groups))
	for _, g := range groups {
		if len(g.Files) < 2 {
			continue
		}
		keep := keepIndex(g.Files, strategy)

		del := make([]domain.PruneDeletion, 0, len(g.Files)-1)
		for i, f := range g.Files {
			if i == keep {
				continue
			}
			del = append(del, domain.PruneDeletion{Path: f.Path, Size: f.Size})
		}
		plans = append(plans, domain.PrunePlan{
			Key:    g.Key,
			Keep:   g.Files[keep].Path,
			Delete: del,
		})
	}
	return plans, nil
}

// Apply 按计划逐个调用 remove；单个文件失败只记录在对应条目上，不影响其他条目。
// 返回成功删除的文件数与释放的字节数。
func Apply(plans []domain.PrunePlan, remove func(path string) error) (deleted int, freed int64) {
	for i := range plans {
		for j := range plans[i].Delete {
			d := &plans[i].Delete[j]
			if err := remove(d.Path); err != nil {
				d.Error = err.Error()
				continue
			}
			d.Done = true
			deleted++
			freed += d.Size
		}
	}
	return deleted, freed
}

// SortPlans 按保留文件路径稳定排序（prune --sort path）；默认保持组的 size 降序。
func SortPlans(plans []domain.PrunePlan) {
	sort.SliceStable(plans, func(i, j int) bool { return plans[i].Keep < plans[j].Keep })
}

func keepIndex(files []domain.FileRecord, strategy string) int {
	if strategy == domain.KeepFirst {
		return 0
	}
	keep := 0
	for i := 1; i < len(files); i++ {
		if files[i].ModTime.Before(files[keep].ModTime) {
			keep = i
		}
	}
	return keep
}

func validateStrategy(s string) error {
	switch s {
	case domain.KeepOldest, domain.KeepFirst:
		return nil
	case "":
		return fmt.Errorf("保留策略不能为空")
	default:
		return fmt.Errorf("保留策略只能是 %s 或 %s，实际是 %q", domain.KeepOldest, domain.KeepFirst, s)
	}
}
