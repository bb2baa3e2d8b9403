package storage

import (
	"fmt"
	"path/filepath"
)

const (
	logSuffix   = ".log"
	indexSuffix = ".index"
	// manifestFile and hwFile are the per-partition sidecar files from spec §6.
	manifestFile = "MANIFEST"
	hwFile       = "high_water_mark"
)

// partitionDir returns <root>/<topic>/<partition>.
func partitionDir(root, topic string, partition int32) string {
	return filepath.Join(root, topic, fmt.Sprintf("%d", partition))
}

// segmentBaseName renders a segment's base offset as the fixed-width
// name shared by its .log and .index files, matching the teacher's
// zero-padded convention.
func segmentBaseName(baseOffset int64) string {
	return fmt.Sprintf("%020d", baseOffset)
}

func logPath(dir string, baseOffset int64) string {
	return filepath.Join(dir, segmentBaseName(baseOffset)+logSuffix)
}

func indexPath(dir string, baseOffset int64) string {
	return filepath.Join(dir, segmentBaseName(baseOffset)+indexSuffix)
}

func manifestPath(dir string) string {
	return filepath.Join(dir, manifestFile)
}

func hwPath(dir string) string {
	return filepath.Join(dir, hwFile)
}
