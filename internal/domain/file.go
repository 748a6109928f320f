package domain

import "time"

// FileRecord 描述一次扫描得到的媒体文件（只做 stat，不读文件内容）。
//
// 不变量（实现必须遵守）：
// - Path 必须是 clean + absolute
// - 创建后只读：Analyzer 只消费，不修改
type FileRecord struct {
	Filename  string    `json:"filename"`
	Path      string    `json:"filepath"`
	Size      int64     `json:"filesize"`
	BaseName  string    `json:"basename"`  // filename without ext
	Extension string    `json:"extension"` // "jpg"（小写、不含点）
	ModTime   time.Time `json:"modified_time"`
}
