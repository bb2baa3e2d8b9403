package storage

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/CefBoud/corelog/types"
)

func TestSegmentAppendAndRead(t *testing.T) {
	dir := t.TempDir()
	seg, err := CreateSegment(dir, 0, 1000, 4096, types.FlushEachBatch)
	require.NoError(t, err)
	defer seg.Close()

	off, err := seg.Append([]types.Record{{Value: []byte("a")}, {Value: []byte("b")}}, 1000)
	require.NoError(t, err)
	require.Equal(t, int64(0), off)
	require.Equal(t, int64(2), seg.EndOffset())

	batches, err := seg.Read(0, 4096)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	require.Equal(t, 2, batches[0].Count())
	require.Equal(t, []byte("a"), batches[0].Records[0].Value)
}

func TestSegmentReadMaxBytesSmallerThanFirstBatchReturnsNone(t *testing.T) {
	dir := t.TempDir()
	seg, err := CreateSegment(dir, 0, 1000, 4096, types.FlushEachBatch)
	require.NoError(t, err)
	defer seg.Close()

	_, err = seg.Append([]types.Record{{Value: []byte("hello world")}}, 1000)
	require.NoError(t, err)

	batches, err := seg.Read(0, 1)
	require.NoError(t, err)
	require.Empty(t, batches)
}

func TestSegmentFullRejectsOversizedAppend(t *testing.T) {
	dir := t.TempDir()
	seg, err := CreateSegment(dir, 0, 1000, int64(types.SegmentHeaderSize)+40, types.FlushNever)
	require.NoError(t, err)
	defer seg.Close()

	bigValue := make([]byte, 1000)
	_, err = seg.Append([]types.Record{{Value: bigValue}}, 1000)
	require.ErrorIs(t, err, ErrSegmentFull)
}

func TestSegmentRecoverTailTruncatesPartialWrite(t *testing.T) {
	dir := t.TempDir()
	seg, err := CreateSegment(dir, 0, 1000, 4096, types.FlushEachBatch)
	require.NoError(t, err)
	_, err = seg.Append([]types.Record{{Value: []byte("a")}}, 1000)
	require.NoError(t, err)
	validSize := seg.Size()
	require.NoError(t, seg.Close())

	// simulate a crash mid-write: append 10 garbage bytes to the tail.
	f, err := os.OpenFile(logPath(dir, 0), os.O_RDWR|os.O_APPEND, 0644)
	require.NoError(t, err)
	_, err = f.Write(make([]byte, 10))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	reopened, err := OpenSegment(dir, 0, 4096, types.FlushEachBatch)
	require.NoError(t, err)
	defer reopened.Close()

	require.Equal(t, int64(1), reopened.EndOffset())
	require.Equal(t, validSize, reopened.Size())
}

func TestSegmentClosedRejectsAppend(t *testing.T) {
	dir := t.TempDir()
	seg, err := CreateSegment(dir, 0, 1000, 4096, types.FlushNever)
	require.NoError(t, err)
	require.NoError(t, seg.Close())

	_, err = seg.Append([]types.Record{{Value: []byte("a")}}, 1000)
	require.ErrorIs(t, err, ErrClosedSegment)
}
