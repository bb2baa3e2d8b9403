package storage

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// manifest mirrors the per-partition MANIFEST file: line-oriented
// "key: value" pairs for base_offset, next_offset, high_watermark, and
// timestamp_ms (spec §3, §6).
type manifest struct {
	BaseOffset    int64
	NextOffset    int64
	HighWatermark int64
	TimestampMs   int64
}

func writeManifest(dir string, m manifest) error {
	content := fmt.Sprintf(
		"base_offset: %d\nnext_offset: %d\nhigh_watermark: %d\ntimestamp_ms: %d\n",
		m.BaseOffset, m.NextOffset, m.HighWatermark, m.TimestampMs,
	)
	return os.WriteFile(manifestPath(dir), []byte(content), 0644)
}

// writeHighWaterMark persists the ASCII-decimal high_water_mark sidecar file.
func writeHighWaterMark(dir string, hw int64) error {
	return os.WriteFile(hwPath(dir), []byte(strconv.FormatInt(hw, 10)), 0644)
}

func readHighWaterMark(dir string) (int64, error) {
	b, err := os.ReadFile(hwPath(dir))
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(strings.TrimSpace(string(b)), 10, 64)
	if err != nil {
		return 0, err
	}
	return v, nil
}
