package rpcserver

import (
	"net/rpc"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/CefBoud/corelog/broker"
	"github.com/CefBoud/corelog/compress"
	"github.com/CefBoud/corelog/idempotency"
	"github.com/CefBoud/corelog/storage"
	"github.com/CefBoud/corelog/types"
)

func TestBrokerServiceProduceFetchOverRPC(t *testing.T) {
	dir := t.TempDir()
	nowMs := int64(1700000000000)
	ld, err := storage.Open(dir, 4096, types.FlushEachBatch, func() int64 { return nowMs })
	require.NoError(t, err)
	t.Cleanup(func() { ld.Close() })

	b := broker.New(ld, idempotency.NewMapCache(), nil, func() int64 { return nowMs })

	srv := New()
	require.NoError(t, srv.Register("BrokerService", &BrokerService{Broker: b}))
	require.NoError(t, srv.Bind("127.0.0.1:0"))
	srv.Start()
	t.Cleanup(func() {
		srv.Stop()
		srv.Wait()
	})

	client, err := rpc.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer client.Close()

	var produceResp types.ProduceResponse
	err = client.Call("BrokerService.Produce", &types.ProduceRequest{
		Topic: "orders", Partition: 0, Records: []types.Record{{Value: []byte("hi")}},
	}, &produceResp)
	require.NoError(t, err)
	require.Equal(t, int64(0), produceResp.BaseOffset)

	var fetchResp types.FetchResponse
	err = client.Call("BrokerService.Fetch", &types.FetchRequest{
		Topic: "orders", Partition: 0, Offset: 0, MaxBytes: 4096,
	}, &fetchResp)
	require.NoError(t, err)
	require.Len(t, fetchResp.Batches, 1)
	require.Equal(t, []byte("hi"), fetchResp.Batches[0].Records[0].Value)
}

func TestBrokerServiceFetchWithCompression(t *testing.T) {
	dir := t.TempDir()
	nowMs := int64(1700000000000)
	ld, err := storage.Open(dir, 4096, types.FlushEachBatch, func() int64 { return nowMs })
	require.NoError(t, err)
	t.Cleanup(func() { ld.Close() })

	b := broker.New(ld, idempotency.NewMapCache(), nil, func() int64 { return nowMs })
	_, err = b.Produce(types.ProduceRequest{Topic: "orders", Partition: 0, Records: []types.Record{{Value: []byte("hi")}}})
	require.NoError(t, err)

	svc := &BrokerService{Broker: b}
	var resp types.FetchResponse
	err = svc.Fetch(&types.FetchRequest{Topic: "orders", Partition: 0, Offset: 0, MaxBytes: 4096, CompressionType: "gzip"}, &resp)
	require.NoError(t, err)
	require.Equal(t, "gzip", resp.CompressionType)
	require.NotEmpty(t, resp.CompressedBody)
	require.Empty(t, resp.Batches)

	decompressedBody, err := compress.ByName("gzip").Decompress(resp.CompressedBody)
	require.NoError(t, err)
	batches, err := DecodeBatches(decompressedBody)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	require.Equal(t, []byte("hi"), batches[0].Records[0].Value)
}
