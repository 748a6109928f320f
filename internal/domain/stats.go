package domain

import "sort"

type ExtStat struct {
	Count int   `json:"count"`
	Size  int64 `json:"size"`
}

// ScanStats 是扫描完成后一次性计算的统计（不做增量累加）。
type ScanStats struct {
	TotalFiles   int                `json:"total_files"`
	TotalScanned int                `json:"total_scanned"`
	TotalSize    int64              `json:"total_size"`
	Extensions   map[string]ExtStat `json:"extensions"`
}

// ComputeScanStats 由文件列表计算统计；totalScanned 是扫描过程中接受的文件计数。
func ComputeScanStats(files []FileRecord, totalScanned int) ScanStats {
	st := ScanStats{
		TotalFiles:   len(files),
		TotalScanned: totalScanned,
		Extensions:   make(map[string]ExtStat, 8),
	}
	for _, f := range files {
		st.TotalSize += f.Size
		e := st.Extensions[f.Extension]
		e.Count++
		e.Size += f.Size
		st.Extensions[f.Extension] = e
	}
	return st
}

// SortedExtensions 返回按扩展名字典序排列的扩展名列表（用于稳定展示）。
func (s ScanStats) SortedExtensions() []string {
	out := make([]string, 0, len(s.Extensions))
	for ext := range s.Extensions {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}
