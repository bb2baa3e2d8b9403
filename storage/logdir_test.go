package storage

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/CefBoud/corelog/types"
)

func testClock() func() int64 {
	n := int64(1700000000000)
	return func() int64 { n++; return n }
}

func TestLogDirGetOrCreateSegmentRollsWhenFull(t *testing.T) {
	dir := t.TempDir()
	ld, err := Open(dir, int64(types.SegmentHeaderSize)+100, types.FlushEachBatch, testClock())
	require.NoError(t, err)
	defer ld.Close()

	seg1, err := ld.GetOrCreateSegment("orders", 0)
	require.NoError(t, err)
	_, err = seg1.Append([]types.Record{{Value: make([]byte, 10)}}, 1000)
	require.NoError(t, err)

	// second append overflows the tiny segment; Produce-level retry is the
	// broker's job, but GetOrCreateSegment itself must report the segment
	// that's still open as active until it's actually rolled.
	require.False(t, seg1.IsClosed())

	rolled, err := ld.RollSegment("orders", 0)
	require.NoError(t, err)
	require.Greater(t, rolled.BaseOffset(), seg1.BaseOffset())

	active, err := ld.GetOrCreateSegment("orders", 0)
	require.NoError(t, err)
	require.Equal(t, rolled.BaseOffset(), active.BaseOffset())
}

func TestLogDirHighWatermarkNonDecreasing(t *testing.T) {
	dir := t.TempDir()
	ld, err := Open(dir, 4096, types.FlushOnRoll, testClock())
	require.NoError(t, err)
	defer ld.Close()

	require.NoError(t, ld.SetHighWatermark("orders", 0, 5))
	require.NoError(t, ld.SetHighWatermark("orders", 0, 3)) // must not regress
	require.Equal(t, int64(5), ld.GetHighWatermark("orders", 0))
}

func TestLogDirListTopicsAndPartitions(t *testing.T) {
	dir := t.TempDir()
	ld, err := Open(dir, 4096, types.FlushOnRoll, testClock())
	require.NoError(t, err)
	defer ld.Close()

	_, err = ld.GetOrCreateSegment("orders", 0)
	require.NoError(t, err)
	_, err = ld.GetOrCreateSegment("orders", 1)
	require.NoError(t, err)
	_, err = ld.GetOrCreateSegment("payments", 0)
	require.NoError(t, err)

	require.Equal(t, []string{"orders", "payments"}, ld.ListTopics())
	require.Equal(t, []int32{0, 1}, ld.ListPartitions("orders"))
}

func TestLogDirCleanupOldSegmentsKeepsActive(t *testing.T) {
	dir := t.TempDir()
	maxSize := int64(types.SegmentHeaderSize) + 100
	ld, err := Open(dir, maxSize, types.FlushEachBatch, testClock())
	require.NoError(t, err)
	defer ld.Close()

	seg, err := ld.GetOrCreateSegment("orders", 0)
	require.NoError(t, err)
	_, err = seg.Append([]types.Record{{Value: make([]byte, 10)}}, 1000)
	require.NoError(t, err)
	_, err = ld.RollSegment("orders", 0)
	require.NoError(t, err)

	require.NoError(t, ld.CleanupOldSegments("orders", 0, 0))
	require.Len(t, ld.GetSegments("orders", 0), 1) // active segment always kept
}

func TestLogDirReopenRecoversSegments(t *testing.T) {
	dir := t.TempDir()
	clock := testClock()
	ld, err := Open(dir, 4096, types.FlushEachBatch, clock)
	require.NoError(t, err)

	seg, err := ld.GetOrCreateSegment("orders", 0)
	require.NoError(t, err)
	_, err = seg.Append([]types.Record{{Value: []byte("a")}}, 1000)
	require.NoError(t, err)
	require.NoError(t, ld.Close())

	reopened, err := Open(dir, 4096, types.FlushEachBatch, clock)
	require.NoError(t, err)
	defer reopened.Close()
	require.Equal(t, int64(1), reopened.EndOffset("orders", 0))
}
