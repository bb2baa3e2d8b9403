package types

import "time"

// ProducerKey identifies one idempotent producer stream.
type ProducerKey struct {
	ProducerID string
	Topic      string
	Partition  int32
}

// ProducerState is what the idempotency cache remembers about a
// ProducerKey: the last accepted sequence number, the offset it was
// assigned, and when it was last touched (for TTL eviction).
type ProducerState struct {
	LastSequence int64
	LastOffset   int64
	LastSeen     time.Time
}
