package scan

import (
	"errors"
	"fmt"
)

// ErrMaxDepth 表示目录嵌套超过了 Scanner 的深度上限（该子树被跳过）。
var ErrMaxDepth = errors.New("超过最大目录深度")

// InvalidRootError 表示扫描根目录无效（为空/不存在/不是目录/不可读）。
// 这是扫描唯一的致命错误：在任何遍历开始之前返回。
type InvalidRootError struct {
	Path   string
	Reason string
	Err    error
}

func (e *InvalidRootError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("无效的扫描路径 %q：%s：%v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("无效的扫描路径 %q：%s", e.Path, e.Reason)
}

func (e *InvalidRootError) Unwrap() error { return e.Err }

func IsInvalidRoot(err error) bool {
	var e *InvalidRootError
	return errors.As(err, &e)
}

// DirectoryAccessError 表示某个目录无法列出；只影响该子树，扫描继续。
type DirectoryAccessError struct {
	Path string
	Err  error
}

func (e *DirectoryAccessError) Error() string {
	return fmt.Sprintf("读取目录失败 %q：%v", e.Path, e.Err)
}

func (e *DirectoryAccessError) Unwrap() error { return e.Err }

// FileAccessError 表示某个文件的元数据无法读取；只跳过该文件，扫描继续。
type FileAccessError struct {
	Path string
	Err  error
}

func (e *FileAccessError) Error() string {
	return fmt.Sprintf("读取文件信息失败 %q：%v", e.Path, e.Err)
}

func (e *FileAccessError) Unwrap() error { return e.Err }
