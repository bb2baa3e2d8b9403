// Package storage implements the segmented, offset-addressable commit
// log: segment codec and recovery, the per-partition segment set, and
// the on-disk layout under a log directory root.
package storage

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/CefBoud/corelog/logging"
	"github.com/CefBoud/corelog/types"
)

// partition holds one (topic, partition)'s ordered segment list. Its own
// mutex protects the slice and the high watermark; individual segments
// are independently synchronized (spec §4.2, §5).
type partition struct {
	mu            sync.Mutex
	dir           string
	topic         string
	index         int32
	segments      []*Segment
	highWatermark int64
}

// LogDir owns every partition's segment set under a root directory. A
// single mutex guards the topic→partition map; outside Close, segment
// I/O never happens while that mutex is held (spec §5).
type LogDir struct {
	mu          sync.Mutex
	root        string
	maxSegment  int64
	flushPolicy types.FlushPolicy
	partitions  map[string]*partition // "topic/partition" -> *partition
	nowMs       func() int64
}

func partitionKey(topic string, p int32) string {
	return topic + "/" + strconv.Itoa(int(p))
}

// Open discovers existing partitions under root (walking
// <root>/<topic>/<partition>/), loads and sorts their segments by base
// offset, and runs recover_tail on each.
func Open(root string, maxSegmentSize int64, flushPolicy types.FlushPolicy, nowMs func() int64) (*LogDir, error) {
	if err := os.MkdirAll(root, 0750); err != nil {
		return nil, err
	}
	ld := &LogDir{
		root:        root,
		maxSegment:  maxSegmentSize,
		flushPolicy: flushPolicy,
		partitions:  make(map[string]*partition),
		nowMs:       nowMs,
	}

	topics, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	for _, t := range topics {
		if !t.IsDir() {
			continue
		}
		topicDir := filepath.Join(root, t.Name())
		parts, err := os.ReadDir(topicDir)
		if err != nil {
			return nil, err
		}
		for _, p := range parts {
			if !p.IsDir() {
				continue
			}
			idx, err := strconv.Atoi(p.Name())
			if err != nil {
				continue
			}
			if err := ld.loadPartition(t.Name(), int32(idx)); err != nil {
				return nil, err
			}
		}
	}
	return ld, nil
}

func (ld *LogDir) loadPartition(topic string, idx int32) error {
	dir := partitionDir(ld.root, topic, idx)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	var bases []int64
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), logSuffix) {
			continue
		}
		name := strings.TrimSuffix(e.Name(), logSuffix)
		base, err := strconv.ParseInt(name, 10, 64)
		if err != nil {
			continue
		}
		bases = append(bases, base)
	}
	sort.Slice(bases, func(i, j int) bool { return bases[i] < bases[j] })

	p := &partition{dir: dir, topic: topic, index: idx}
	for _, base := range bases {
		seg, err := OpenSegment(dir, base, ld.maxSegment, ld.flushPolicy)
		if err != nil {
			return err
		}
		p.segments = append(p.segments, seg)
	}
	if hw, err := readHighWaterMark(dir); err == nil {
		p.highWatermark = hw
	} else if len(p.segments) > 0 {
		p.highWatermark = p.segments[len(p.segments)-1].EndOffset()
	}

	ld.mu.Lock()
	ld.partitions[partitionKey(topic, idx)] = p
	ld.mu.Unlock()
	return nil
}

func (ld *LogDir) partitionFor(topic string, p int32) *partition {
	ld.mu.Lock()
	defer ld.mu.Unlock()
	key := partitionKey(topic, p)
	part, ok := ld.partitions[key]
	if !ok {
		part = &partition{dir: partitionDir(ld.root, topic, p), topic: topic, index: p}
		ld.partitions[key] = part
	}
	return part
}

// GetOrCreateSegment returns the active (last, non-full, non-closed)
// segment for (topic, partition), creating the partition's first
// segment if none exists yet.
func (ld *LogDir) GetOrCreateSegment(topic string, p int32) (*Segment, error) {
	part := ld.partitionFor(topic, p)
	part.mu.Lock()
	defer part.mu.Unlock()

	if len(part.segments) == 0 {
		return ld.newSegmentLocked(part, 0)
	}
	active := part.segments[len(part.segments)-1]
	if active.IsFull() || active.IsClosed() {
		return ld.newSegmentLocked(part, active.EndOffset())
	}
	return active, nil
}

// RollSegment forces the creation of a new active segment regardless of
// whether the current one reports itself full.
func (ld *LogDir) RollSegment(topic string, p int32) (*Segment, error) {
	part := ld.partitionFor(topic, p)
	part.mu.Lock()
	defer part.mu.Unlock()

	base := int64(0)
	if len(part.segments) > 0 {
		base = part.segments[len(part.segments)-1].EndOffset()
	}
	return ld.newSegmentLocked(part, base)
}

func (ld *LogDir) newSegmentLocked(part *partition, base int64) (*Segment, error) {
	if n := len(part.segments); n > 0 {
		prev := part.segments[n-1]
		prev.mu.Lock()
		var flushErr error
		if !prev.closed {
			flushErr = prev.honorFlushPolicy(true)
		}
		prev.mu.Unlock()
		if flushErr != nil {
			return nil, flushErr
		}
	}
	seg, err := CreateSegment(part.dir, base, ld.nowMs(), ld.maxSegment, ld.flushPolicy)
	if err != nil {
		return nil, err
	}
	part.segments = append(part.segments, seg)
	logging.Info("created segment %v/%020d for %v-%v", part.dir, base, part.topic, part.index)
	return seg, nil
}

// GetSegments returns a snapshot of (topic, partition)'s segment handles.
func (ld *LogDir) GetSegments(topic string, p int32) []*Segment {
	part := ld.partitionFor(topic, p)
	part.mu.Lock()
	defer part.mu.Unlock()
	out := make([]*Segment, len(part.segments))
	copy(out, part.segments)
	return out
}

// EndOffset returns the partition's log-end offset: the active
// segment's end offset, or 0 if the partition has no segments.
func (ld *LogDir) EndOffset(topic string, p int32) int64 {
	segs := ld.GetSegments(topic, p)
	if len(segs) == 0 {
		return 0
	}
	return segs[len(segs)-1].EndOffset()
}

// GetHighWatermark returns the partition's current high watermark.
func (ld *LogDir) GetHighWatermark(topic string, p int32) int64 {
	part := ld.partitionFor(topic, p)
	part.mu.Lock()
	defer part.mu.Unlock()
	return part.highWatermark
}

// SetHighWatermark advances the partition's high watermark (spec's B3:
// high_watermark is non-decreasing) and persists it to the sidecar file.
func (ld *LogDir) SetHighWatermark(topic string, p int32, hw int64) error {
	part := ld.partitionFor(topic, p)
	part.mu.Lock()
	if hw > part.highWatermark {
		part.highWatermark = hw
	}
	dir, value := part.dir, part.highWatermark
	part.mu.Unlock()
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}
	return writeHighWaterMark(dir, value)
}

// ListTopics returns the distinct topic names with at least one partition.
func (ld *LogDir) ListTopics() []string {
	ld.mu.Lock()
	defer ld.mu.Unlock()
	seen := make(map[string]bool)
	for _, part := range ld.partitions {
		seen[part.topic] = true
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// ListPartitions returns the partition indices known for topic, sorted.
func (ld *LogDir) ListPartitions(topic string) []int32 {
	ld.mu.Lock()
	defer ld.mu.Unlock()
	var out []int32
	for _, part := range ld.partitions {
		if part.topic == topic {
			out = append(out, part.index)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// CleanupOldSegments deletes the oldest segments of (topic, partition)
// until the retained size is at or below retentionBytes, always keeping
// the active segment (spec §9's resolution of the retention boundary).
func (ld *LogDir) CleanupOldSegments(topic string, p int32, retentionBytes int64) error {
	part := ld.partitionFor(topic, p)
	part.mu.Lock()
	defer part.mu.Unlock()

	for len(part.segments) > 1 {
		var total int64
		for _, s := range part.segments {
			total += s.Size()
		}
		if total <= retentionBytes {
			break
		}
		oldest := part.segments[0]
		if err := oldest.Close(); err != nil {
			return err
		}
		if err := os.Remove(logPath(part.dir, oldest.BaseOffset())); err != nil {
			return err
		}
		if err := os.Remove(indexPath(part.dir, oldest.BaseOffset())); err != nil {
			return err
		}
		logging.Info("deleted segment %020d for %v-%v (retention)", oldest.BaseOffset(), part.topic, part.index)
		part.segments = part.segments[1:]
	}
	return nil
}

// Close flushes and closes every open segment.
func (ld *LogDir) Close() error {
	ld.mu.Lock()
	defer ld.mu.Unlock()
	var firstErr error
	for _, part := range ld.partitions {
		part.mu.Lock()
		for _, seg := range part.segments {
			if err := seg.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		part.mu.Unlock()
	}
	return firstErr
}
