// Package controller implements the thin in-memory topic metadata
// registry: topic -> (partition count, replica set, partition leader,
// high watermark) (spec §4.6).
package controller

import (
	"sync"

	"github.com/google/btree"

	"github.com/CefBoud/corelog/types"
)

// topicItem orders topics by name for Registry's btree index, which
// keeps ListTopics sorted without sorting on every call.
type topicItem string

func (t topicItem) Less(than btree.Item) bool {
	return t < than.(topicItem)
}

// Registry is a thread-safe in-memory topic metadata store. Partition
// assignment at creation is a simple round-robin over a fixed broker
// set; persistence is explicitly a non-goal (spec §4.6).
type Registry struct {
	mu      sync.Mutex
	topics  map[string]*types.TopicMetadata
	ordered *btree.BTree
	brokers []uint32
}

// New returns an empty Registry that round-robins new partitions over
// brokers.
func New(brokers []uint32) *Registry {
	return &Registry{
		topics:  make(map[string]*types.TopicMetadata),
		ordered: btree.New(32),
		brokers: brokers,
	}
}

// CreateTopic registers a new topic with the given partition count and
// replication factor, assigning partition leaders round-robin over the
// broker set. Fails AlreadyExists on name collision.
func (r *Registry) CreateTopic(name string, partitions, replicationFactor int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.topics[name]; exists {
		return types.Errorf(types.AlreadyExists, "topic %v already exists", name)
	}
	if partitions <= 0 || replicationFactor <= 0 {
		return types.Errorf(types.InvalidArgument, "topic %v: partitions and replication_factor must be positive", name)
	}

	meta := &types.TopicMetadata{
		Name:              name,
		Partitions:        partitions,
		ReplicationFactor: replicationFactor,
		PartitionInfo:     make(map[int32]*types.PartitionInfo),
	}
	for p := int32(0); p < partitions; p++ {
		replicas := r.roundRobinReplicas(p, replicationFactor)
		meta.PartitionInfo[p] = &types.PartitionInfo{
			Topic:     name,
			Partition: p,
			Leader:    replicas[0],
			Replicas:  replicas,
			ISR:       append([]uint32(nil), replicas...),
		}
	}

	r.topics[name] = meta
	r.ordered.ReplaceOrInsert(topicItem(name))
	return nil
}

func (r *Registry) roundRobinReplicas(partition, replicationFactor int32) []uint32 {
	if len(r.brokers) == 0 {
		return []uint32{0}
	}
	n := int(replicationFactor)
	if n > len(r.brokers) {
		n = len(r.brokers)
	}
	out := make([]uint32, n)
	for i := 0; i < n; i++ {
		out[i] = r.brokers[(int(partition)+i)%len(r.brokers)]
	}
	return out
}

// DescribeTopic returns the full metadata for name.
func (r *Registry) DescribeTopic(name string) (types.TopicMetadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	meta, ok := r.topics[name]
	if !ok {
		return types.TopicMetadata{}, types.Errorf(types.NotFound, "topic %v not found", name)
	}
	return *meta, nil
}

// ListTopics returns every topic name, sorted.
func (r *Registry) ListTopics() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, r.ordered.Len())
	r.ordered.Ascend(func(item btree.Item) bool {
		names = append(names, string(item.(topicItem)))
		return true
	})
	return names
}

// DeleteTopic removes a topic's metadata.
func (r *Registry) DeleteTopic(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.topics[name]; !ok {
		return types.Errorf(types.NotFound, "topic %v not found", name)
	}
	delete(r.topics, name)
	r.ordered.Delete(topicItem(name))
	return nil
}

// UpdatePartitionLeader sets the current leader broker for a partition.
func (r *Registry) UpdatePartitionLeader(topic string, partition int32, brokerID uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, err := r.partitionInfoLocked(topic, partition)
	if err != nil {
		return err
	}
	info.Leader = brokerID
	return nil
}

// UpdatePartitionHighWatermark records hw as the partition's high
// watermark when it is larger than the stored value; a smaller hw is
// ignored.
func (r *Registry) UpdatePartitionHighWatermark(topic string, partition int32, hw int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, err := r.partitionInfoLocked(topic, partition)
	if err != nil {
		return err
	}
	if hw > info.HighWatermark {
		info.HighWatermark = hw
	}
	return nil
}

// GetPartitionInfo returns one partition's metadata.
func (r *Registry) GetPartitionInfo(topic string, partition int32) (types.PartitionInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, err := r.partitionInfoLocked(topic, partition)
	if err != nil {
		return types.PartitionInfo{}, err
	}
	return *info, nil
}

func (r *Registry) partitionInfoLocked(topic string, partition int32) (*types.PartitionInfo, error) {
	meta, ok := r.topics[topic]
	if !ok {
		return nil, types.Errorf(types.NotFound, "topic %v not found", topic)
	}
	info, ok := meta.PartitionInfo[partition]
	if !ok {
		return nil, types.Errorf(types.NotFound, "partition %v-%v not found", topic, partition)
	}
	return info, nil
}
