package domain

import "fmt"

var sizeUnits = [...]string{"B", "KB", "MB", "GB", "TB"}

// FormatSize 把字节数格式化为带单位的字符串（1024 进制，保留 2 位小数）。
// 0 固定输出 "0 B"。
func FormatSize(n int64) string {
	if n == 0 {
		return "0 B"
	}
	v := float64(n)
	i := 0
	for v >= 1024 && i < len(sizeUnits)-1 {
		v /= 1024
		i++
	}
	return fmt.Sprintf("%.2f %s", v, sizeUnits[i])
}
