package domain

const (
	IssueDirectory = "directory"
	IssueFile      = "file"
)

// ScanIssue 记录扫描中被“就地恢复”的失败（目录无法列出 / 文件元数据无法读取）。
// 这类失败不会中断扫描，只进入 report 供用户排查。
type ScanIssue struct {
	Kind  string `json:"kind"`
	Path  string `json:"path"`
	Error string `json:"error"`
}
