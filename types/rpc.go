package types

// ProduceRequest is the broker's Produce RPC input (spec §4.4, §6).
type ProduceRequest struct {
	Topic      string
	Partition  int32
	Records    []Record
	Ack        AckLevel
	ProducerID string
	Sequence   int64
}

// ProduceResponse is the broker's Produce RPC output.
type ProduceResponse struct {
	BaseOffset int64
}

// FetchRequest is the broker's Fetch RPC input. CompressionType, when
// non-empty, asks the broker to compress the serialized batch payload
// before it crosses the RPC boundary (transport-level only — the
// on-disk segment format is never compressed).
type FetchRequest struct {
	Topic           string
	Partition       int32
	Offset          int64
	MaxBytes        int32
	CompressionType string
}

// FetchResponse is the broker's Fetch RPC output.
type FetchResponse struct {
	Batches         []RecordBatch
	HighWatermark   int64
	CompressionType string
	CompressedBody  []byte // set instead of Batches when CompressionType != ""
}

// JoinGroupRequest is the coordinator's JoinGroup RPC input.
type JoinGroupRequest struct {
	GroupID          string
	MemberID         string
	SubscribedTopics []string
}

// JoinGroupResponse is the coordinator's JoinGroup RPC output.
type JoinGroupResponse struct {
	Assignments []PartitionAssignment
}

// LeaveGroupRequest is the coordinator's LeaveGroup RPC input.
type LeaveGroupRequest struct {
	GroupID  string
	MemberID string
}

// HeartbeatRequest is the coordinator's Heartbeat RPC input.
type HeartbeatRequest struct {
	GroupID  string
	MemberID string
}

// GetAssignmentsRequest is the coordinator's GetAssignments RPC input.
type GetAssignmentsRequest struct {
	GroupID  string
	MemberID string
}

// GetAssignmentsResponse is the coordinator's GetAssignments RPC output.
type GetAssignmentsResponse struct {
	Assignments []PartitionAssignment
}

// CommitOffsetRequest is the coordinator's CommitOffset RPC input.
type CommitOffsetRequest struct {
	GroupID   string
	Topic     string
	Partition int32
	Offset    int64
}

// GetCommittedOffsetRequest is the coordinator's GetCommittedOffset RPC input.
type GetCommittedOffsetRequest struct {
	GroupID   string
	Topic     string
	Partition int32
}

// GetCommittedOffsetResponse is the coordinator's GetCommittedOffset RPC output.
type GetCommittedOffsetResponse struct {
	Offset int64
}

// CreateTopicRequest is the controller's CreateTopic RPC input.
type CreateTopicRequest struct {
	Name              string
	Partitions        int32
	ReplicationFactor int32
}

// DescribeTopicRequest is the controller's DescribeTopic RPC input.
type DescribeTopicRequest struct {
	Name string
}

// DescribeTopicResponse is the controller's DescribeTopic RPC output.
type DescribeTopicResponse struct {
	Metadata TopicMetadata
}

// ListTopicsResponse is the controller's ListTopics RPC output.
type ListTopicsResponse struct {
	Names []string
}

// DeleteTopicRequest is the controller's DeleteTopic RPC input.
type DeleteTopicRequest struct {
	Name string
}

// UpdatePartitionLeaderRequest is the controller's
// UpdatePartitionLeader RPC input.
type UpdatePartitionLeaderRequest struct {
	Topic     string
	Partition int32
	BrokerID  uint32
}

// UpdatePartitionHighWatermarkRequest is the controller's
// UpdatePartitionHighWatermark RPC input.
type UpdatePartitionHighWatermarkRequest struct {
	Topic         string
	Partition     int32
	HighWatermark int64
}

// GetPartitionInfoRequest is the controller's GetPartitionInfo RPC input.
type GetPartitionInfoRequest struct {
	Topic     string
	Partition int32
}

// GetPartitionInfoResponse is the controller's GetPartitionInfo RPC output.
type GetPartitionInfoResponse struct {
	Info PartitionInfo
}
