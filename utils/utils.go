// Package utils holds small helpers shared by the cmd entrypoints:
// wall-clock access and path preparation.
package utils

import (
	"os"
	"path/filepath"
	"time"
)

// NowAsUnixMilli returns the current wall clock in milliseconds, the
// same clock source every process hands to its LogDir/segment layer.
func NowAsUnixMilli() int64 {
	return time.Now().UnixNano() / 1e6
}

// EnsurePath makes sure path's directory exists, creating it (and any
// parents) if necessary. When dir is true, path itself is the directory.
func EnsurePath(path string, dir bool) error {
	if !dir {
		path = filepath.Dir(path)
	}
	return os.MkdirAll(path, 0750)
}
