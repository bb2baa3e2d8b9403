package controller

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/CefBoud/corelog/types"
)

func TestCreateTopicAssignsReplicasRoundRobin(t *testing.T) {
	r := New([]uint32{1, 2, 3})
	require.NoError(t, r.CreateTopic("orders", 4, 2))

	meta, err := r.DescribeTopic("orders")
	require.NoError(t, err)
	require.Len(t, meta.PartitionInfo, 4)
	require.Len(t, meta.PartitionInfo[0].Replicas, 2)
	require.Equal(t, uint32(1), meta.PartitionInfo[0].Leader)
	require.Equal(t, uint32(2), meta.PartitionInfo[1].Leader)
}

func TestCreateTopicRejectsDuplicateName(t *testing.T) {
	r := New([]uint32{1})
	require.NoError(t, r.CreateTopic("orders", 1, 1))
	err := r.CreateTopic("orders", 1, 1)
	require.Error(t, err)
	require.Equal(t, types.AlreadyExists, types.AsError(err).Code)
}

func TestListTopicsSorted(t *testing.T) {
	r := New([]uint32{1})
	require.NoError(t, r.CreateTopic("payments", 1, 1))
	require.NoError(t, r.CreateTopic("audit", 1, 1))
	require.NoError(t, r.CreateTopic("orders", 1, 1))

	require.Equal(t, []string{"audit", "orders", "payments"}, r.ListTopics())
}

func TestDeleteTopicRemovesFromListing(t *testing.T) {
	r := New([]uint32{1})
	require.NoError(t, r.CreateTopic("orders", 1, 1))
	require.NoError(t, r.DeleteTopic("orders"))
	require.Empty(t, r.ListTopics())

	err := r.DeleteTopic("orders")
	require.Error(t, err)
	require.Equal(t, types.NotFound, types.AsError(err).Code)
}

func TestUpdatePartitionHighWatermarkNonDecreasing(t *testing.T) {
	r := New([]uint32{1})
	require.NoError(t, r.CreateTopic("orders", 1, 1))
	require.NoError(t, r.UpdatePartitionHighWatermark("orders", 0, 10))
	require.NoError(t, r.UpdatePartitionHighWatermark("orders", 0, 3))

	info, err := r.GetPartitionInfo("orders", 0)
	require.NoError(t, err)
	require.Equal(t, int64(10), info.HighWatermark)
}

func TestUpdatePartitionLeader(t *testing.T) {
	r := New([]uint32{1, 2})
	require.NoError(t, r.CreateTopic("orders", 1, 1))
	require.NoError(t, r.UpdatePartitionLeader("orders", 0, 2))

	info, err := r.GetPartitionInfo("orders", 0)
	require.NoError(t, err)
	require.Equal(t, uint32(2), info.Leader)
}
