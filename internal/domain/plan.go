package domain

const (
	KeepOldest = "oldest"
	KeepFirst  = "first"
)

// PruneDeletion 描述一个可删除的冗余副本（只描述；真正删除由 delete 协作者执行）。
type PruneDeletion struct {
	Path  string `json:"path"`
	Size  int64  `json:"size"`
	Error string `json:"error,omitempty"`
	Done  bool   `json:"deleted"`
}

// PrunePlan 是对某个 exact group 的最小清理计划：保留 Keep，删除 Delete。
type PrunePlan struct {
	Key    string          `json:"group_key"`
	Keep   string          `json:"keep"`
	Delete []PruneDeletion `json:"delete"`
}

// Frees 返回计划全部执行后可释放的字节数。
func (p PrunePlan) Frees() int64 {
	var n int64
	for _, d := range p.Delete {
		n += d.Size
	}
	return n
}
