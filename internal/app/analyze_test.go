package app

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/mdd/internal/domain"
)

func rec(path string, size int64) domain.FileRecord {
	name := filepath.Base(path)
	return domain.FileRecord{Filename: name, Path: path, Size: size}
}

func TestAnalyze_ExactSameNameSameSize(t *testing.T) {
	d := Analyze([]domain.FileRecord{
		rec("/a/photo.jpg", 500000),
		rec("/b/photo.jpg", 500000),
	})

	require.Len(t, d.Exact, 1)
	g := d.Exact[0]
	assert.Equal(t, "photo.jpg", g.Filename)
	assert.Equal(t, int64(500000), g.Size)
	assert.Equal(t, 2, g.Count)
	assert.Equal(t, int64(500000), g.Wasted)
	assert.Equal(t, "photo.jpg|500000", g.Key)
	assert.Equal(t, "488.28 KB", g.SizeFormatted)
	assert.Empty(t, d.SizeOnly)

	assert.Equal(t, 1, d.Stats.ExactGroups)
	assert.Equal(t, 2, d.Stats.ExactFiles)
	assert.Equal(t, int64(500000), d.Stats.ExactWasted)
	assert.Equal(t, "488.28 KB", d.Stats.ExactWastedFormatted)
}

func TestAnalyze_SizeOnlyDifferentNames(t *testing.T) {
	d := Analyze([]domain.FileRecord{
		rec("/a/x.jpg", 300000),
		rec("/b/y.png", 300000),
	})

	assert.Empty(t, d.Exact)
	require.Len(t, d.SizeOnly, 1)
	g := d.SizeOnly[0]
	assert.Equal(t, int64(300000), g.Size)
	assert.Equal(t, 2, g.Count)
	assert.Equal(t, 2, g.UniqueFilenames)
	assert.Equal(t, int64(300000), g.Potential)
	assert.Equal(t, 1, d.Stats.SizeGroups)
	assert.Equal(t, 2, d.Stats.SizeFiles)
	assert.Equal(t, int64(300000), d.Stats.SizePotential)
}

func TestAnalyze_SizeOnlyExcludedWhenExactGroupSharesSize(t *testing.T) {
	// 名字互不重叠，但 size 与 exact 组相同：size-only 候选仍被丢弃。
	d := Analyze([]domain.FileRecord{
		rec("/a/dup.jpg", 200000),
		rec("/b/dup.jpg", 200000),
		rec("/c/x.jpg", 200000),
		rec("/d/y.png", 200000),
	})

	require.Len(t, d.Exact, 1)
	assert.Equal(t, 2, d.Exact[0].Count)
	assert.Empty(t, d.SizeOnly)
	assert.Equal(t, 0, d.Stats.SizeGroups)
	assert.Equal(t, "0 B", d.Stats.SizePotentialFormatted)
}

func TestAnalyze_SameNameOnlyIsNotSizeOnly(t *testing.T) {
	// 同 size 组内仅一种文件名时不计入 size-only。
	files := []domain.FileRecord{
		rec("/a/same.jpg", 150000),
		rec("/b/same.jpg", 150000),
	}
	assert.Empty(t, FindSizeDuplicates(files, nil))
}

func TestAnalyze_ExclusionAppliesPerSize(t *testing.T) {
	// 不同 size 的 exact 组不影响本 size 的候选；组内保留全部成员（含重名）。
	files := []domain.FileRecord{
		rec("/a/p.jpg", 400000),
		rec("/b/p.jpg", 400000),
		rec("/c/q.jpg", 123456),
		rec("/d/q.jpg", 999999),
		rec("/e/r.png", 123456),
		rec("/f/q.jpg", 123456),
	}
	d := Analyze(files)

	require.Len(t, d.Exact, 2)
	// 123456 的 q.jpg 也构成 exact 组，因此 123456 的 size-only 候选被排除
	assert.Equal(t, int64(400000), d.Exact[0].Size)
	assert.Equal(t, int64(123456), d.Exact[1].Size)
	assert.Empty(t, d.SizeOnly)
}

func TestAnalyze_OrderingBySizeDescStable(t *testing.T) {
	files := []domain.FileRecord{
		rec("/1/b.jpg", 100),
		rec("/1/a.jpg", 300),
		rec("/1/c.jpg", 100),
		rec("/2/b.jpg", 100),
		rec("/2/a.jpg", 300),
		rec("/2/c.jpg", 100),
		rec("/1/m.png", 700),
		rec("/1/n.png", 700),
	}
	d := Analyze(files)

	require.Len(t, d.Exact, 3)
	assert.Equal(t, "a.jpg", d.Exact[0].Filename)
	// size 相同：保留 key 首次出现的顺序
	assert.Equal(t, "b.jpg", d.Exact[1].Filename)
	assert.Equal(t, "c.jpg", d.Exact[2].Filename)

	// 组内文件顺序 = 输入顺序
	assert.Equal(t, "/1/b.jpg", d.Exact[1].Files[0].Path)
	assert.Equal(t, "/2/b.jpg", d.Exact[1].Files[1].Path)

	// size 100 已被 exact 组占用；700 为 size-only
	require.Len(t, d.SizeOnly, 1)
	assert.Equal(t, int64(700), d.SizeOnly[0].Size)
}

func TestAnalyze_DelimiterInFilenameDoesNotCollide(t *testing.T) {
	// 字符串拼接键下 "a|1" + 23 与 "a" + "1|23" 可能相撞；结构体键不会。
	files := []domain.FileRecord{
		{Filename: "a|1", Path: "/x/a|1", Size: 23},
		{Filename: "a", Path: "/x/a", Size: 123},
	}
	assert.Empty(t, FindExactDuplicates(files))
}

func TestAnalyze_Idempotent(t *testing.T) {
	files := []domain.FileRecord{
		rec("/a/photo.jpg", 500000),
		rec("/b/photo.jpg", 500000),
		rec("/c/x.jpg", 300000),
		rec("/d/y.png", 300000),
		rec("/e/z.mp4", 300000),
	}
	first := Analyze(files)
	second := Analyze(files)
	assert.Equal(t, first, second)
}

func TestAnalyze_WastedSpaceInvariant(t *testing.T) {
	files := []domain.FileRecord{
		rec("/a/v.mp4", 1<<20),
		rec("/b/v.mp4", 1<<20),
		rec("/c/v.mp4", 1<<20),
		rec("/a/k.jpg", 2048),
		rec("/b/l.jpg", 2048),
		rec("/c/m.jpg", 2048),
	}
	d := Analyze(files)

	var wasted, potential int64
	var exactFiles, sizeFiles int
	for _, g := range d.Exact {
		assert.Equal(t, g.Size*int64(g.Count-1), g.Wasted)
		wasted += g.Wasted
		exactFiles += g.Count
	}
	for _, g := range d.SizeOnly {
		assert.Equal(t, g.Size*int64(g.Count-1), g.Potential)
		assert.GreaterOrEqual(t, g.UniqueFilenames, 2)
		potential += g.Potential
		sizeFiles += g.Count
	}
	assert.Equal(t, wasted, d.Stats.ExactWasted)
	assert.Equal(t, potential, d.Stats.SizePotential)
	assert.Equal(t, exactFiles, d.Stats.ExactFiles)
	assert.Equal(t, sizeFiles, d.Stats.SizeFiles)
	assert.Equal(t, int64(2<<20), d.Stats.ExactWasted)
	assert.Equal(t, int64(4096), d.Stats.SizePotential)
	assert.Equal(t, "2.00 MB", d.Stats.ExactWastedFormatted)
	assert.Equal(t, "4.00 KB", d.Stats.SizePotentialFormatted)
}

func TestAnalyze_Empty(t *testing.T) {
	d := Analyze(nil)
	assert.Empty(t, d.Exact)
	assert.Empty(t, d.SizeOnly)
	assert.Equal(t, domain.DuplicateStats{ExactWastedFormatted: "0 B", SizePotentialFormatted: "0 B"}, d.Stats)
}
