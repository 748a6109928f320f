package domain

// ExactGroup 是“文件名 + 大小”完全相同的一组文件（至少 2 个）。
type ExactGroup struct {
	// Key 仅用于展示（形如 "photo.jpg|500000"）；分组本身使用结构体键，不依赖字符串拼接。
	Key           string       `json:"group_key"`
	Filename      string       `json:"filename"`
	Size          int64        `json:"filesize"`
	SizeFormatted string       `json:"filesize_formatted"`
	Files         []FileRecord `json:"files"`
	Count         int          `json:"count"`
	Wasted        int64        `json:"wasted_space"`
}

// SizeGroup 是“大小相同但文件名不全相同”的一组文件（至少 2 个，至少 2 种文件名）。
type SizeGroup struct {
	Size            int64        `json:"filesize"`
	SizeFormatted   string       `json:"filesize_formatted"`
	Files           []FileRecord `json:"files"`
	Count           int          `json:"count"`
	UniqueFilenames int          `json:"unique_filenames"`
	Potential       int64        `json:"potential_space"`
}

type DuplicateStats struct {
	ExactGroups          int    `json:"exact_duplicate_groups"`
	ExactFiles           int    `json:"exact_duplicate_files"`
	ExactWasted          int64  `json:"exact_duplicate_wasted_space"`
	ExactWastedFormatted string `json:"exact_duplicate_wasted_space_formatted"`

	SizeGroups             int    `json:"size_duplicate_groups"`
	SizeFiles              int    `json:"size_duplicate_files"`
	SizePotential          int64  `json:"size_duplicate_potential_space"`
	SizePotentialFormatted string `json:"size_duplicate_potential_space_formatted"`
}

// Duplicates 是一次分析的完整结果；每次分析都从头计算，不保留增量状态。
type Duplicates struct {
	Exact    []ExactGroup   `json:"exact_duplicates"`
	SizeOnly []SizeGroup    `json:"size_duplicates"`
	Stats    DuplicateStats `json:"stats"`
}

// Reclaimable 返回 size × (count − 1)：每组保留一份时可释放的字节数。
func Reclaimable(size int64, count int) int64 {
	if count < 2 {
		return 0
	}
	return size * int64(count-1)
}
