package fsx

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// NotFoundError 表示待删除的文件不存在。
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("文件不存在：%s", e.Path) }

func (e *NotFoundError) Unwrap() error { return os.ErrNotExist }

// NotWritableError 表示文件所在目录不可写（无法删除其中的条目）。
type NotWritableError struct {
	Dir string
}

func (e *NotWritableError) Error() string { return fmt.Sprintf("目录不可写：%s", e.Dir) }

func (e *NotWritableError) Unwrap() error { return os.ErrPermission }

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

func IsNotWritable(err error) bool {
	var e *NotWritableError
	return errors.As(err, &e)
}

// DeleteFile 删除单个文件。
//
// 前置检查：
// - path 非空且存在（Lstat：对符号链接删除的是链接本身）
// - path 不是目录
// - 当前进程对父目录有写权限
func DeleteFile(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("文件路径不能为空")
	}
	path = filepath.Clean(path)

	fi, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &NotFoundError{Path: path}
		}
		return err
	}
	if fi.IsDir() {
		return &PathTypeConflictError{Path: path, Want: "file", Got: "dir"}
	}

	dir := filepath.Dir(path)
	if !dirWritable(dir) {
		return &NotWritableError{Dir: dir}
	}

	if err := removeFunc(path); err != nil {
		return fmt.Errorf("删除文件失败：%s：%w", path, err)
	}
	return nil
}
