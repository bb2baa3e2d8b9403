package types

import (
	"time"
)

// GroupState is the coarse lifecycle of a consumer group.
type GroupState uint8

const (
	GroupEmpty GroupState = iota
	GroupStable
	GroupRebalancing
)

func (s GroupState) String() string {
	switch s {
	case GroupEmpty:
		return "Empty"
	case GroupRebalancing:
		return "Rebalancing"
	default:
		return "Stable"
	}
}

// Member is one participant of a ConsumerGroup.
type Member struct {
	MemberID         string
	SubscribedTopics []string
	LastHeartbeat    time.Time
	Active           bool
}

// PartitionAssignment names one partition assigned to a group member.
type PartitionAssignment struct {
	Topic     string
	Partition int32
}

// TopicPartition is a (topic, partition) pair used as a committed-offset key.
type TopicPartition struct {
	Topic     string
	Partition int32
}

// ConsumerGroup holds membership and assignment state for one group id.
// The coordinator keeps committed offsets in its durable offset store;
// it does not populate Committed. All operations on it are taken under the
// coordinator's single group-table mutex, so ConsumerGroup itself needs
// no lock of its own.
type ConsumerGroup struct {
	GroupID       string
	Members       map[string]*Member
	Assignments   map[string][]PartitionAssignment
	Committed     map[TopicPartition]int64
	LastRebalance time.Time
}

// NewConsumerGroup builds an empty group ready for its first member.
func NewConsumerGroup(groupID string) *ConsumerGroup {
	return &ConsumerGroup{
		GroupID:     groupID,
		Members:     make(map[string]*Member),
		Assignments: make(map[string][]PartitionAssignment),
		Committed:   make(map[TopicPartition]int64),
	}
}

// State reports the group's current lifecycle phase: Empty if it has no
// members, Stable if every active member holds a non-empty assignment
// and none are stale, Rebalancing otherwise.
func (g *ConsumerGroup) State(sessionTimeout time.Duration, now time.Time) GroupState {
	if len(g.Members) == 0 {
		return GroupEmpty
	}
	for _, m := range g.Members {
		if !m.Active || now.Sub(m.LastHeartbeat) >= sessionTimeout {
			return GroupRebalancing
		}
		if len(g.Assignments[m.MemberID]) == 0 {
			return GroupRebalancing
		}
	}
	return GroupStable
}
