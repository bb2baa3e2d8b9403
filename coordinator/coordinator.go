// Package coordinator implements consumer group membership, session
// liveness, round-robin partition assignment, and durable offset
// commits (spec §4.5).
package coordinator

import (
	"sort"
	"sync"
	"time"

	"github.com/CefBoud/corelog/logging"
	"github.com/CefBoud/corelog/metrics"
	"github.com/CefBoud/corelog/types"
)

// defaultPartitionCount is the reference core's placeholder partition
// count, used when no PartitionCounter is wired to the controller
// (spec §4.5: "production implementations MUST consult the
// controller's metadata" — left as an explicit Open Question).
const defaultPartitionCount = 6

// PartitionCounter resolves a topic's partition count, normally backed
// by a controller client; nil, or a non-positive result, falls back to
// defaultPartitionCount.
type PartitionCounter func(topic string) int32

// Coordinator owns every consumer group's state behind a single mutex,
// matching spec §4.5 and §5 ("a single mutex over the group table").
type Coordinator struct {
	mu sync.Mutex

	groups            map[string]*types.ConsumerGroup
	offsets           *offsetStore
	heartbeatInterval time.Duration
	sessionTimeout    time.Duration
	partitionCount    PartitionCounter
	metrics           *metrics.Registry
	now               func() time.Time
}

// Option customizes a Coordinator at construction time.
type Option func(*Coordinator)

// WithPartitionCounter wires a controller-backed partition count
// resolver in place of the fixed placeholder.
func WithPartitionCounter(pc PartitionCounter) Option {
	return func(c *Coordinator) { c.partitionCount = pc }
}

// WithMetrics attaches a metrics registry.
func WithMetrics(reg *metrics.Registry) Option {
	return func(c *Coordinator) { c.metrics = reg }
}

// WithClock overrides the coordinator's notion of now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// New opens (creating if absent) the durable offset store at
// offsetStoragePath and returns a ready Coordinator.
func New(offsetStoragePath string, heartbeatInterval, sessionTimeout time.Duration, opts ...Option) (*Coordinator, error) {
	store, err := openOffsetStore(offsetStoragePath)
	if err != nil {
		return nil, err
	}
	c := &Coordinator{
		groups:            make(map[string]*types.ConsumerGroup),
		offsets:           store,
		heartbeatInterval: heartbeatInterval,
		sessionTimeout:    sessionTimeout,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Close releases the durable offset store.
func (c *Coordinator) Close() error {
	return c.offsets.close()
}

func (c *Coordinator) partitionsFor(topic string) int32 {
	if c.partitionCount != nil {
		if n := c.partitionCount(topic); n > 0 {
			return n
		}
	}
	return defaultPartitionCount
}

// JoinGroup creates the group if absent, inserts or refreshes member,
// and rebalances if the change leaves the group needing it.
func (c *Coordinator) JoinGroup(req types.JoinGroupRequest) (types.JoinGroupResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	g, ok := c.groups[req.GroupID]
	if !ok {
		g = types.NewConsumerGroup(req.GroupID)
		c.groups[req.GroupID] = g
	}

	now := c.now()
	if m, exists := g.Members[req.MemberID]; exists {
		m.SubscribedTopics = req.SubscribedTopics
		m.LastHeartbeat = now
		m.Active = true
	} else {
		g.Members[req.MemberID] = &types.Member{
			MemberID:         req.MemberID,
			SubscribedTopics: req.SubscribedTopics,
			LastHeartbeat:    now,
			Active:           true,
		}
	}

	if c.needsRebalancingLocked(g) {
		c.rebalanceLocked(g)
	}
	if c.metrics != nil {
		c.metrics.GroupSize(g.GroupID, len(g.Members))
	}

	return types.JoinGroupResponse{Assignments: g.Assignments[req.MemberID]}, nil
}

// LeaveGroup removes a member; the group record itself survives so its
// committed offsets are preserved.
func (c *Coordinator) LeaveGroup(req types.LeaveGroupRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	g, ok := c.groups[req.GroupID]
	if !ok {
		return nil
	}
	delete(g.Members, req.MemberID)
	delete(g.Assignments, req.MemberID)
	if c.needsRebalancingLocked(g) {
		c.rebalanceLocked(g)
	}
	return nil
}

// Heartbeat refreshes a member's liveness timestamp.
func (c *Coordinator) Heartbeat(req types.HeartbeatRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	g, ok := c.groups[req.GroupID]
	if !ok {
		return types.Errorf(types.NotFound, "heartbeat: unknown group %v", req.GroupID)
	}
	m, ok := g.Members[req.MemberID]
	if !ok {
		return types.Errorf(types.NotFound, "heartbeat: unknown member %v in group %v", req.MemberID, req.GroupID)
	}
	m.LastHeartbeat = c.now()
	return nil
}

// GetAssignments returns the member's current partition assignment.
func (c *Coordinator) GetAssignments(req types.GetAssignmentsRequest) (types.GetAssignmentsResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	g, ok := c.groups[req.GroupID]
	if !ok {
		return types.GetAssignmentsResponse{}, nil
	}
	return types.GetAssignmentsResponse{Assignments: g.Assignments[req.MemberID]}, nil
}

// CommitOffset persists a (topic, partition) -> offset pair for group.
// The group must already exist (i.e. at least one member has joined).
func (c *Coordinator) CommitOffset(req types.CommitOffsetRequest) error {
	c.mu.Lock()
	_, ok := c.groups[req.GroupID]
	c.mu.Unlock()
	if !ok {
		return types.Errorf(types.NotFound, "commit: unknown group %v", req.GroupID)
	}
	return c.offsets.commit(req.GroupID, req.Topic, req.Partition, req.Offset)
}

// GetCommittedOffset returns the committed offset, or 0 if unset.
func (c *Coordinator) GetCommittedOffset(req types.GetCommittedOffsetRequest) types.GetCommittedOffsetResponse {
	offset, _ := c.offsets.get(req.GroupID, req.Topic, req.Partition)
	return types.GetCommittedOffsetResponse{Offset: offset}
}

// NeedsRebalancing reports whether group requires a rebalance.
func (c *Coordinator) NeedsRebalancing(groupID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.groups[groupID]
	if !ok {
		return false
	}
	return c.needsRebalancingLocked(g)
}

func (c *Coordinator) needsRebalancingLocked(g *types.ConsumerGroup) bool {
	if len(g.Members) == 0 {
		return false
	}
	for _, m := range g.Members {
		if c.isStaleLocked(m) {
			return true
		}
		if m.Active && len(g.Assignments[m.MemberID]) == 0 {
			return true
		}
	}
	return false
}

func (c *Coordinator) isStaleLocked(m *types.Member) bool {
	return !m.Active || c.now().Sub(m.LastHeartbeat) >= c.sessionTimeout
}

// Rebalance evicts stale members, gathers subscribed topics, and
// assigns partitions round-robin across surviving members.
func (c *Coordinator) Rebalance(groupID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.groups[groupID]
	if !ok {
		return
	}
	c.rebalanceLocked(g)
}

func (c *Coordinator) rebalanceLocked(g *types.ConsumerGroup) {
	for id, m := range g.Members {
		if c.isStaleLocked(m) {
			delete(g.Members, id)
		}
	}
	if len(g.Members) == 0 {
		g.Assignments = make(map[string][]types.PartitionAssignment)
		return
	}

	topicSet := make(map[string]bool)
	var memberIDs []string
	for id, m := range g.Members {
		memberIDs = append(memberIDs, id)
		for _, t := range m.SubscribedTopics {
			topicSet[t] = true
		}
	}
	sort.Strings(memberIDs)

	var topics []string
	for t := range topicSet {
		topics = append(topics, t)
	}
	sort.Strings(topics)

	assignments := make(map[string][]types.PartitionAssignment, len(memberIDs))
	globalIndex := 0
	for _, topic := range topics {
		n := c.partitionsFor(topic)
		for p := int32(0); p < n; p++ {
			owner := memberIDs[globalIndex%len(memberIDs)]
			assignments[owner] = append(assignments[owner], types.PartitionAssignment{Topic: topic, Partition: p})
			globalIndex++
		}
	}
	g.Assignments = assignments
	g.LastRebalance = c.now()

	if c.metrics != nil {
		c.metrics.RebalanceCount(g.GroupID)
	}
	logging.Info("rebalanced group %v: %d members, %d topics", g.GroupID, len(memberIDs), len(topics))
}
