package broker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/CefBoud/corelog/idempotency"
	"github.com/CefBoud/corelog/storage"
	"github.com/CefBoud/corelog/types"
)

func newTestBroker(t *testing.T) *Broker {
	t.Helper()
	b, _ := newTestBrokerInDir(t)
	return b
}

func newTestBrokerInDir(t *testing.T) (*Broker, string) {
	t.Helper()
	dir := t.TempDir()
	nowMs := int64(1700000000000)
	clock := func() int64 { return nowMs }
	ld, err := storage.Open(dir, 4096, types.FlushEachBatch, clock)
	require.NoError(t, err)
	t.Cleanup(func() { ld.Close() })
	return New(ld, idempotency.NewMapCache(), nil, clock), dir
}

func TestProduceAssignsIncreasingOffsets(t *testing.T) {
	b := newTestBroker(t)
	req := types.ProduceRequest{Topic: "orders", Partition: 0, Records: []types.Record{{Value: []byte("a")}}}

	resp1, err := b.Produce(req)
	require.NoError(t, err)
	require.Equal(t, int64(0), resp1.BaseOffset)

	resp2, err := b.Produce(req)
	require.NoError(t, err)
	require.Greater(t, resp2.BaseOffset, resp1.BaseOffset)
}

func TestProduceIdempotentRetryReturnsCachedOffset(t *testing.T) {
	b := newTestBroker(t)
	req := types.ProduceRequest{
		Topic: "orders", Partition: 0,
		Records:    []types.Record{{Value: []byte("a")}},
		ProducerID: "p1", Sequence: 0,
	}

	resp1, err := b.Produce(req)
	require.NoError(t, err)

	resp2, err := b.Produce(req)
	require.Error(t, err)
	require.Equal(t, types.IdempotentReplay, types.AsError(err).Code)
	require.Equal(t, resp1.BaseOffset, resp2.BaseOffset)
}

func TestFetchReturnsOffsetOutOfRangeAtLogEnd(t *testing.T) {
	b := newTestBroker(t)
	_, err := b.Produce(types.ProduceRequest{Topic: "orders", Partition: 0, Records: []types.Record{{Value: []byte("a")}}})
	require.NoError(t, err)

	_, err = b.Fetch(types.FetchRequest{Topic: "orders", Partition: 0, Offset: 1, MaxBytes: 1024})
	require.Error(t, err)
	require.Equal(t, types.OffsetOutOfRange, types.AsError(err).Code)
}

func TestFetchReturnsAppendedRecords(t *testing.T) {
	b := newTestBroker(t)
	_, err := b.Produce(types.ProduceRequest{Topic: "orders", Partition: 0, Records: []types.Record{{Value: []byte("a")}, {Value: []byte("b")}}})
	require.NoError(t, err)

	resp, err := b.Fetch(types.FetchRequest{Topic: "orders", Partition: 0, Offset: 0, MaxBytes: 1024})
	require.NoError(t, err)
	require.Len(t, resp.Batches, 1)
	require.Equal(t, 2, resp.Batches[0].Count())
	require.Equal(t, int64(2), resp.HighWatermark)
}

func TestFetchStopsShortOnMidReadCRCMismatchWithoutFailingRPC(t *testing.T) {
	b, dir := newTestBrokerInDir(t)

	_, err := b.Produce(types.ProduceRequest{Topic: "orders", Partition: 0, Records: []types.Record{{Value: []byte("first")}}})
	require.NoError(t, err)

	segs := b.LogDir.GetSegments("orders", 0)
	require.Len(t, segs, 1)
	secondFrameOffset := segs[0].Size()

	_, err = b.Produce(types.ProduceRequest{Topic: "orders", Partition: 0, Records: []types.Record{{Value: []byte("second")}}})
	require.NoError(t, err)

	// Flip a byte inside the second batch's body, after the frame header,
	// so its stored CRC no longer matches — simulating on-disk corruption
	// discovered mid-read rather than at recovery time.
	logPath := filepath.Join(dir, "orders", "0", "00000000000000000000.log")
	f, err := os.OpenFile(logPath, os.O_RDWR, 0644)
	require.NoError(t, err)
	corruptAt := secondFrameOffset + int64(types.FrameHeaderSize) + 4
	_, err = f.WriteAt([]byte{0xFF}, corruptAt)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	resp, err := b.Fetch(types.FetchRequest{Topic: "orders", Partition: 0, Offset: 0, MaxBytes: 4096})
	require.NoError(t, err)
	require.Len(t, resp.Batches, 1)
	require.Equal(t, []byte("first"), resp.Batches[0].Records[0].Value)
}

func TestFetchOnEmptyPartitionReturnsZeroHighWatermark(t *testing.T) {
	b := newTestBroker(t)
	resp, err := b.Fetch(types.FetchRequest{Topic: "missing", Partition: 0, Offset: 0, MaxBytes: 1024})
	require.NoError(t, err)
	require.Empty(t, resp.Batches)
	require.Equal(t, int64(0), resp.HighWatermark)
}
