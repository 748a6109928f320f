package app

import (
	"fmt"
	"sort"

	"github.com/John-Robertt/mdd/internal/domain"
)

// exactKey 是 exact 分组的复合键；用结构体而不是字符串拼接，避免文件名含分隔符时冲突。
type exactKey struct {
	name string
	size int64
}

// Analyze 对扫描结果做重复检测：exact + size-only + 汇总统计。
//
// 对固定输入是确定的（幂等）：
// - 组内文件顺序 = 输入顺序
// - 组间按 size 降序；size 相同的组保持键首次出现的顺序（稳定排序）
func Analyze(files []domain.FileRecord) domain.Duplicates {
	exact := FindExactDuplicates(files)
	sizeOnly := FindSizeDuplicates(files, exact)
	return domain.Duplicates{
		Exact:    exact,
		SizeOnly: sizeOnly,
		Stats:    Stats(exact, sizeOnly),
	}
}

// FindExactDuplicates 按 (filename, size) 分组；成员 ≥2 的组即 exact 重复。
func FindExactDuplicates(files []domain.FileRecord) []domain.ExactGroup {
	index := make(map[exactKey]int, len(files))
	buckets := make([][]domain.FileRecord, 0, 64)

	for _, f := range files {
		k := exactKey{name: f.Filename, size: f.Size}
		if idx, ok := index[k]; ok {
			buckets[idx] = append(buckets[idx], f)
			continue
		}
		index[k] = len(buckets)
		buckets = append(buckets, []domain.FileRecord{f})
	}

	groups := make([]domain.ExactGroup, 0, 16)
	for _, b := range buckets {
		if len(b) < 2 {
			continue
		}
		head := b[0]
		groups = append(groups, domain.ExactGroup{
			Key:           fmt.Sprintf("%s|%d", head.Filename, head.Size),
			Filename:      head.Filename,
			Size:          head.Size,
			SizeFormatted: domain.FormatSize(head.Size),
			Files:         b,
			Count:         len(b),
			Wasted:        domain.Reclaimable(head.Size, len(b)),
		})
	}

	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Size > groups[j].Size })
	return groups
}

// FindSizeDuplicates 按 size 分组；成员 ≥2 且文件名至少 2 种的组为候选。
//
// 排除规则（只看 size）：只要存在任一 exact 组与候选 size 相同，候选即被丢弃，
// 即使该 exact 组的文件名与候选中任何文件名都不重叠。
func FindSizeDuplicates(files []domain.FileRecord, exact []domain.ExactGroup) []domain.SizeGroup {
	claimed := make(map[int64]struct{}, len(exact))
	for _, g := range exact {
		claimed[g.Size] = struct{}{}
	}

	index := make(map[int64]int, len(files))
	buckets := make([][]domain.FileRecord, 0, 64)
	for _, f := range files {
		if idx, ok := index[f.Size]; ok {
			buckets[idx] = append(buckets[idx], f)
			continue
		}
		index[f.Size] = len(buckets)
		buckets = append(buckets, []domain.FileRecord{f})
	}

	groups := make([]domain.SizeGroup, 0, 16)
	for _, b := range buckets {
		if len(b) < 2 {
			continue
		}
		names := make(map[string]struct{}, len(b))
		for _, f := range b {
			names[f.Filename] = struct{}{}
		}
		if len(names) < 2 {
			continue
		}
		size := b[0].Size
		if _, ok := claimed[size]; ok {
			continue
		}
		groups = append(groups, domain.SizeGroup{
			Size:            size,
			SizeFormatted:   domain.FormatSize(size),
			Files:           b,
			Count:           len(b),
			UniqueFilenames: len(names),
			Potential:       domain.Reclaimable(size, len(b)),
		})
	}

	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Size > groups[j].Size })
	return groups
}

// Stats 汇总两类重复的组数、涉及文件数与可释放空间。
func Stats(exact []domain.ExactGroup, sizeOnly []domain.SizeGroup) domain.DuplicateStats {
	var st domain.DuplicateStats
	for _, g := range exact {
		st.ExactGroups++
		st.ExactFiles += g.Count
		st.ExactWasted += g.Wasted
	}
	for _, g := range sizeOnly {
		st.SizeGroups++
		st.SizeFiles += g.Count
		st.SizePotential += g.Potential
	}
	st.ExactWastedFormatted = domain.FormatSize(st.ExactWasted)
	st.SizePotentialFormatted = domain.FormatSize(st.SizePotential)
	return st
}
