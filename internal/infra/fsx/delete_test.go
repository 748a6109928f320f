package fsx

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeleteFile_Success(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.jpg")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))

	require.NoError(t, DeleteFile(p))
	assert.NoFileExists(t, p)
}

func TestDeleteFile_NotFound(t *testing.T) {
	err := DeleteFile(filepath.Join(t.TempDir(), "missing.jpg"))
	assert.True(t, IsNotFound(err), "期望 NotFoundError，实际：%T %v", err, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestDeleteFile_EmptyPath(t *testing.T) {
	assert.Error(t, DeleteFile("  "))
}

func TestDeleteFile_Directory(t *testing.T) {
	err := DeleteFile(t.TempDir())
	assert.True(t, IsPathTypeConflict(err), "期望 PathTypeConflictError，实际：%T %v", err, err)
}

func TestDeleteFile_RemoveFailureWrapped(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.jpg")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))

	old := removeFunc
	removeFunc = func(string) error { return os.ErrPermission }
	defer func() { removeFunc = old }()

	err := DeleteFile(p)
	assert.ErrorIs(t, err, os.ErrPermission)
	assert.FileExists(t, p)
}
