package coordinator

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/CefBoud/corelog/types"
)

func newTestCoordinator(t *testing.T, now func() time.Time) *Coordinator {
	t.Helper()
	path := filepath.Join(t.TempDir(), "offsets.db")
	c, err := New(path, 10*time.Millisecond, 50*time.Millisecond, WithClock(now), WithPartitionCounter(func(string) int32 { return 2 }))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestJoinGroupAssignsPartitionsRoundRobin(t *testing.T) {
	clock := time.Now()
	c := newTestCoordinator(t, func() time.Time { return clock })

	resp1, err := c.JoinGroup(types.JoinGroupRequest{GroupID: "g1", MemberID: "m1", SubscribedTopics: []string{"orders"}})
	require.NoError(t, err)
	require.Len(t, resp1.Assignments, 2) // alone: gets both partitions

	resp2, err := c.JoinGroup(types.JoinGroupRequest{GroupID: "g1", MemberID: "m2", SubscribedTopics: []string{"orders"}})
	require.NoError(t, err)

	got1, err := c.GetAssignments(types.GetAssignmentsRequest{GroupID: "g1", MemberID: "m1"})
	require.NoError(t, err)
	require.Len(t, got1.Assignments, 1)
	require.Len(t, resp2.Assignments, 1)
}

func TestHeartbeatUnknownGroupOrMember(t *testing.T) {
	c := newTestCoordinator(t, time.Now)
	err := c.Heartbeat(types.HeartbeatRequest{GroupID: "ghost", MemberID: "m1"})
	require.Error(t, err)
	require.Equal(t, types.NotFound, types.AsError(err).Code)

	_, err = c.JoinGroup(types.JoinGroupRequest{GroupID: "g1", MemberID: "m1", SubscribedTopics: []string{"orders"}})
	require.NoError(t, err)
	err = c.Heartbeat(types.HeartbeatRequest{GroupID: "g1", MemberID: "ghost"})
	require.Error(t, err)
	require.Equal(t, types.NotFound, types.AsError(err).Code)
}

func TestLeaveGroupPreservesCommittedOffsets(t *testing.T) {
	c := newTestCoordinator(t, time.Now)
	_, err := c.JoinGroup(types.JoinGroupRequest{GroupID: "g1", MemberID: "m1", SubscribedTopics: []string{"orders"}})
	require.NoError(t, err)
	require.NoError(t, c.CommitOffset(types.CommitOffsetRequest{GroupID: "g1", Topic: "orders", Partition: 0, Offset: 42}))

	require.NoError(t, c.LeaveGroup(types.LeaveGroupRequest{GroupID: "g1", MemberID: "m1"}))

	resp := c.GetCommittedOffset(types.GetCommittedOffsetRequest{GroupID: "g1", Topic: "orders", Partition: 0})
	require.Equal(t, int64(42), resp.Offset)
}

func TestCommitOffsetUnknownGroupReturnsNotFound(t *testing.T) {
	c := newTestCoordinator(t, time.Now)
	err := c.CommitOffset(types.CommitOffsetRequest{GroupID: "ghost", Topic: "orders", Partition: 0, Offset: 1})
	require.Error(t, err)
	require.Equal(t, types.NotFound, types.AsError(err).Code)
}

func TestGetCommittedOffsetUnknownReturnsZero(t *testing.T) {
	c := newTestCoordinator(t, time.Now)
	resp := c.GetCommittedOffset(types.GetCommittedOffsetRequest{GroupID: "g1", Topic: "orders", Partition: 0})
	require.Equal(t, int64(0), resp.Offset)
}

func TestRebalanceEvictsStaleMembers(t *testing.T) {
	clock := time.Now()
	now := func() time.Time { return clock }
	c := newTestCoordinator(t, now)

	_, err := c.JoinGroup(types.JoinGroupRequest{GroupID: "g1", MemberID: "m1", SubscribedTopics: []string{"orders"}})
	require.NoError(t, err)

	clock = clock.Add(time.Hour) // now stale beyond session timeout
	c.Rebalance("g1")

	resp, err := c.GetAssignments(types.GetAssignmentsRequest{GroupID: "g1", MemberID: "m1"})
	require.NoError(t, err)
	require.Empty(t, resp.Assignments)
}

func TestNeedsRebalancingFalseForEmptyGroup(t *testing.T) {
	c := newTestCoordinator(t, time.Now)
	require.False(t, c.NeedsRebalancing("nonexistent"))
}
