package rpcserver

import (
	"github.com/CefBoud/corelog/broker"
	"github.com/CefBoud/corelog/compress"
	"github.com/CefBoud/corelog/controller"
	"github.com/CefBoud/corelog/coordinator"
	"github.com/CefBoud/corelog/logging"
	"github.com/CefBoud/corelog/serde"
	"github.com/CefBoud/corelog/storage"
	"github.com/CefBoud/corelog/types"
)

// BrokerService exposes Broker's Produce/Fetch over net/rpc.
// Fetch applies optional transport-level compression (SPEC_FULL.md §3):
// the on-disk segment format itself is never compressed.
type BrokerService struct {
	Broker *broker.Broker
}

func (s *BrokerService) Produce(req *types.ProduceRequest, resp *types.ProduceResponse) error {
	r, err := s.Broker.Produce(*req)
	*resp = r
	return err
}

func (s *BrokerService) Fetch(req *types.FetchRequest, resp *types.FetchResponse) error {
	r, err := s.Broker.Fetch(*req)
	if err != nil {
		*resp = r
		return err
	}
	if req.CompressionType == "" {
		*resp = r
		return nil
	}
	compressor := compress.ByName(req.CompressionType)
	if compressor == nil {
		*resp = r
		return nil
	}
	body := encodeBatches(r.Batches)
	compressed, cErr := compressor.Compress(body)
	if cErr != nil {
		logging.Warn("fetch: compression %v failed, falling back to uncompressed: %v", req.CompressionType, cErr)
		*resp = r
		return nil
	}
	*resp = types.FetchResponse{
		HighWatermark:   r.HighWatermark,
		CompressionType: req.CompressionType,
		CompressedBody:  compressed,
	}
	return nil
}

// encodeBatches serializes a batch list for transport-level
// compression, reusing the segment's own frame codec.
func encodeBatches(batches []types.RecordBatch) []byte {
	e := serde.NewEncoder()
	e.PutInt32(int32(len(batches)))
	for _, b := range batches {
		frame := storage.FrameBatch(b)
		e.PutInt32(int32(len(frame)))
		e.PutBytes(frame)
	}
	return e.Bytes()
}

// DecodeBatches is the client-side counterpart of encodeBatches, used
// after decompressing a FetchResponse.CompressedBody.
func DecodeBatches(body []byte) ([]types.RecordBatch, error) {
	d := serde.NewDecoder(body)
	count := int(d.Int32())
	batches := make([]types.RecordBatch, 0, count)
	for i := 0; i < count; i++ {
		frameLen := int(d.Int32())
		frame := d.Bytes(frameLen)
		b, ok := storage.DecodeFrame(frame)
		if !ok {
			return batches, types.Errorf(types.CorruptedData, "decode batches: frame %d failed CRC check", i)
		}
		batches = append(batches, b)
	}
	return batches, nil
}

// ControllerService exposes Registry's topic metadata operations over net/rpc.
type ControllerService struct {
	Registry *controller.Registry
}

func (s *ControllerService) CreateTopic(req *types.CreateTopicRequest, _ *struct{}) error {
	return s.Registry.CreateTopic(req.Name, req.Partitions, req.ReplicationFactor)
}

func (s *ControllerService) DescribeTopic(req *types.DescribeTopicRequest, resp *types.DescribeTopicResponse) error {
	meta, err := s.Registry.DescribeTopic(req.Name)
	resp.Metadata = meta
	return err
}

func (s *ControllerService) ListTopics(_ *struct{}, resp *types.ListTopicsResponse) error {
	resp.Names = s.Registry.ListTopics()
	return nil
}

func (s *ControllerService) DeleteTopic(req *types.DeleteTopicRequest, _ *struct{}) error {
	return s.Registry.DeleteTopic(req.Name)
}

func (s *ControllerService) UpdatePartitionLeader(req *types.UpdatePartitionLeaderRequest, _ *struct{}) error {
	return s.Registry.UpdatePartitionLeader(req.Topic, req.Partition, req.BrokerID)
}

func (s *ControllerService) UpdatePartitionHighWatermark(req *types.UpdatePartitionHighWatermarkRequest, _ *struct{}) error {
	return s.Registry.UpdatePartitionHighWatermark(req.Topic, req.Partition, req.HighWatermark)
}

func (s *ControllerService) GetPartitionInfo(req *types.GetPartitionInfoRequest, resp *types.GetPartitionInfoResponse) error {
	info, err := s.Registry.GetPartitionInfo(req.Topic, req.Partition)
	resp.Info = info
	return err
}

// CoordinatorService exposes Coordinator's group operations over net/rpc.
type CoordinatorService struct {
	Coordinator *coordinator.Coordinator
}

func (s *CoordinatorService) JoinGroup(req *types.JoinGroupRequest, resp *types.JoinGroupResponse) error {
	r, err := s.Coordinator.JoinGroup(*req)
	*resp = r
	return err
}

func (s *CoordinatorService) LeaveGroup(req *types.LeaveGroupRequest, _ *struct{}) error {
	return s.Coordinator.LeaveGroup(*req)
}

func (s *CoordinatorService) Heartbeat(req *types.HeartbeatRequest, _ *struct{}) error {
	return s.Coordinator.Heartbeat(*req)
}

func (s *CoordinatorService) GetAssignments(req *types.GetAssignmentsRequest, resp *types.GetAssignmentsResponse) error {
	r, err := s.Coordinator.GetAssignments(*req)
	*resp = r
	return err
}

func (s *CoordinatorService) CommitOffset(req *types.CommitOffsetRequest, _ *struct{}) error {
	return s.Coordinator.CommitOffset(*req)
}

func (s *CoordinatorService) GetCommittedOffset(req *types.GetCommittedOffsetRequest, resp *types.GetCommittedOffsetResponse) error {
	*resp = s.Coordinator.GetCommittedOffset(*req)
	return nil
}
