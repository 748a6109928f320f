//go:build !unix

package fsx

import "os"

func dirWritable(dir string) bool {
	fi, err := os.Stat(dir)
	if err != nil {
		return false
	}
	return fi.Mode().Perm()&0o200 != 0
}
