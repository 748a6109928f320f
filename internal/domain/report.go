package domain

import (
	"encoding/json"
	"math"
	"time"
)

const (
	ErrCodeInvalidRoot       = "invalid_root"
	ErrCodeConfigInvalid     = "config_invalid"
	ErrCodeConfigMissingPath = "config_missing_path"
	ErrCodeCanceled          = "canceled"
)

// ScanReport 是对外稳定输出（stdout JSON / --out 文件 / HTTP 响应）的结构。
type ScanReport struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`

	ErrorCode string `json:"error_code,omitempty"`
	Error     string `json:"error,omitempty"`

	Path         string       `json:"base_path"`
	IgnoredPaths []string     `json:"ignored_paths"`
	Config       ReportConfig `json:"config"`

	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	ExecutionTime float64   `json:"execution_time"` // 秒，保留 2 位小数

	ScanStats  ScanStats   `json:"scan_stats"`
	Duplicates Duplicates  `json:"duplicates"`
	Issues     []ScanIssue `json:"issues"`
}

// ReportConfig 回显本次扫描实际生效的过滤参数。
type ReportConfig struct {
	MinFileSize         int64    `json:"min_file_size"`
	SupportedExtensions []string `json:"supported_extensions"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) 所有 slice/map 非 nil（JSON 输出 [] / {} 而不是 null）
// 3) execution_time 由起止时间计算得出
func (r *ScanReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	if r.IgnoredPaths == nil {
		r.IgnoredPaths = []string{}
	}
	if r.Config.SupportedExtensions == nil {
		r.Config.SupportedExtensions = []string{}
	}
	if r.ScanStats.Extensions == nil {
		r.ScanStats.Extensions = map[string]ExtStat{}
	}
	if r.Duplicates.Exact == nil {
		r.Duplicates.Exact = []ExactGroup{}
	}
	if r.Duplicates.SizeOnly == nil {
		r.Duplicates.SizeOnly = []SizeGroup{}
	}
	if r.Issues == nil {
		r.Issues = []ScanIssue{}
	}

	// 格式化字段由数值推导，空结果也要给出 "0 B"。
	r.Duplicates.Stats.ExactWastedFormatted = FormatSize(r.Duplicates.Stats.ExactWasted)
	r.Duplicates.Stats.SizePotentialFormatted = FormatSize(r.Duplicates.Stats.SizePotential)

	d := r.FinishedAt.Sub(r.StartedAt)
	if d < 0 {
		d = 0
	}
	r.ExecutionTime = math.Round(d.Seconds()*100) / 100
}

// MarshalJSON 输出 Finalize 之后的副本：即便调用方漏掉 Finalize，
// JSON 里的 slice/map 也不会是 null，时间一律是 UTC。
func (r ScanReport) MarshalJSON() ([]byte, error) {
	type plain ScanReport
	r.Finalize()
	return json.Marshal(plain(r))
}
