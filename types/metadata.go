package types

// PartitionInfo is the controller's view of one partition: where it
// lives and how far it has been written.
type PartitionInfo struct {
	Topic         string
	Partition     int32
	Leader        uint32
	Replicas      []uint32
	ISR           []uint32
	HighWatermark int64
}

// TopicMetadata is the controller's record for one topic: its partition
// count, replication factor, and the per-partition leader/HW state.
type TopicMetadata struct {
	Name              string
	Partitions        int32
	ReplicationFactor int32
	PartitionInfo     map[int32]*PartitionInfo
}
