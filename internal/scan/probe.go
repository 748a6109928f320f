package scan

import (
	"errors"
	"io"
	"strings"

	"github.com/spf13/afero"
)

// ProbeLimit 是探测目录时最多统计的条目数（超过即停止枚举）。
const ProbeLimit = 1000

// ProbeResult 描述一个路径的可访问性（对应 test_path）。
type ProbeResult struct {
	Path        string `json:"path"`
	Exists      bool   `json:"exists"`
	IsDirectory bool   `json:"is_directory"`
	IsReadable  bool   `json:"is_readable"`
	IsWritable  bool   `json:"is_writable"`

	// 以下字段仅在“可读目录”时有意义。
	FileCount        int    `json:"file_count"`
	DirCount         int    `json:"dir_count"`
	Truncated        bool   `json:"truncated"`
	SampleAccessible bool   `json:"sample_accessible"`
	Error            string `json:"error,omitempty"`
}

// Probe 探测 path：是否存在/是否目录/是否可读写；可读目录再抽样统计文件与子目录数量。
//
// 抽样最多枚举 ProbeLimit+1 个条目，保证在超大目录上也能快速返回。
// 可写判断询问操作系统（access(2)），不做真实写入。
func Probe(fs afero.Fs, path string) (ProbeResult, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return ProbeResult{}, errors.New("探测路径不能为空")
	}
	res := ProbeResult{Path: path}

	fi, err := fs.Stat(path)
	if err != nil {
		// 不存在/无权限都视为“不可访问”，而不是调用失败。
		return res, nil
	}
	res.Exists = true
	res.IsDirectory = fi.IsDir()
	res.IsWritable = writable(fs, path, fi)

	f, err := fs.Open(path)
	if err != nil {
		return res, nil
	}
	defer f.Close()
	res.IsReadable = true

	if !res.IsDirectory {
		return res, nil
	}

	for {
		batch, err := f.Readdir(64)
		for _, e := range batch {
			if e.IsDir() {
				res.DirCount++
			} else {
				res.FileCount++
			}
			if res.FileCount+res.DirCount > ProbeLimit {
				res.Truncated = true
				break
			}
		}
		if res.Truncated {
			break
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				res.Error = err.Error()
				return res, nil
			}
			break
		}
		if len(batch) == 0 {
			break
		}
	}
	res.SampleAccessible = true
	return res, nil
}
