// Package broker implements Produce/Fetch request handling: idempotency
// validation, segment append/read, and the high-watermark contract
// (spec §4.4).
package broker

import (
	"time"

	"github.com/CefBoud/corelog/idempotency"
	"github.com/CefBoud/corelog/logging"
	"github.com/CefBoud/corelog/metrics"
	"github.com/CefBoud/corelog/storage"
	"github.com/CefBoud/corelog/types"
)

// Broker owns the log directory and idempotency cache for one node and
// serves Produce/Fetch against them.
type Broker struct {
	LogDir  *storage.LogDir
	Cache   idempotency.Cache
	Metrics *metrics.Registry
	NowMs   func() int64
}

// New wires a Broker over an already-open LogDir and idempotency cache.
func New(logDir *storage.LogDir, cache idempotency.Cache, reg *metrics.Registry, nowMs func() int64) *Broker {
	return &Broker{LogDir: logDir, Cache: cache, Metrics: reg, NowMs: nowMs}
}

// Produce validates, consults the idempotency cache, appends to the
// active segment (rolling once on Full), advances the high watermark,
// and returns the assigned base offset (spec §4.4, invariants B1-B3).
func (b *Broker) Produce(req types.ProduceRequest) (types.ProduceResponse, error) {
	start := time.Now()
	defer func() {
		if b.Metrics != nil {
			b.Metrics.ProduceLatency(req.Topic, req.Partition, start)
		}
	}()

	if req.Topic == "" || req.Partition < 0 || len(req.Records) == 0 {
		return types.ProduceResponse{}, types.Errorf(types.InvalidArgument, "produce: topic, non-negative partition, and at least one record are required")
	}

	var key types.ProducerKey
	idempotent := req.ProducerID != ""
	if idempotent {
		key = types.ProducerKey{ProducerID: req.ProducerID, Topic: req.Topic, Partition: req.Partition}
		if !b.Cache.IsValidSequence(key, req.Sequence) {
			return types.ProduceResponse{BaseOffset: b.Cache.GetLastOffset(key)},
				types.Errorf(types.IdempotentReplay, "producer %v: sequence %d already seen (last %d)", req.ProducerID, req.Sequence, b.Cache.GetLastSequence(key))
		}
	}

	seg, err := b.LogDir.GetOrCreateSegment(req.Topic, req.Partition)
	if err != nil {
		return types.ProduceResponse{}, types.Errorf(types.Internal, "produce: %v", err)
	}

	nowMs := b.NowMs()
	baseOffset, err := seg.Append(req.Records, nowMs)
	if err == storage.ErrSegmentFull {
		seg, err = b.LogDir.RollSegment(req.Topic, req.Partition)
		if err != nil {
			return types.ProduceResponse{}, types.Errorf(types.Internal, "produce: roll: %v", err)
		}
		baseOffset, err = seg.Append(req.Records, nowMs)
	}
	if err != nil {
		return types.ProduceResponse{}, types.Errorf(types.Internal, "produce: append: %v", err)
	}

	if idempotent {
		b.Cache.UpdateSequence(key, req.Sequence, baseOffset, time.Now())
	}

	newHW := baseOffset + int64(len(req.Records))
	if err := b.LogDir.SetHighWatermark(req.Topic, req.Partition, newHW); err != nil {
		logging.Warn("produce: failed to persist high watermark for %v-%v: %v", req.Topic, req.Partition, err)
	}

	return types.ProduceResponse{BaseOffset: baseOffset}, nil
}

// Fetch locates the segment containing req.Offset, reads up to
// req.MaxBytes, and reports the partition's current high watermark
// (spec §4.4).
func (b *Broker) Fetch(req types.FetchRequest) (types.FetchResponse, error) {
	start := time.Now()
	defer func() {
		if b.Metrics != nil {
			b.Metrics.FetchLatency(req.Topic, req.Partition, start)
		}
	}()

	if req.Topic == "" || req.Partition < 0 || req.Offset < 0 || req.MaxBytes <= 0 {
		return types.FetchResponse{}, types.Errorf(types.InvalidArgument, "fetch: topic, non-negative partition/offset, and positive max_bytes are required")
	}

	segs := b.LogDir.GetSegments(req.Topic, req.Partition)
	hw := b.LogDir.GetHighWatermark(req.Topic, req.Partition)
	if len(segs) == 0 {
		return types.FetchResponse{HighWatermark: 0}, nil
	}

	endOffset := segs[len(segs)-1].EndOffset()
	if req.Offset >= endOffset {
		return types.FetchResponse{HighWatermark: hw}, types.Errorf(types.OffsetOutOfRange, "fetch: offset %d >= log end offset %d", req.Offset, endOffset)
	}

	var target *storage.Segment
	for _, seg := range segs {
		if req.Offset >= seg.BaseOffset() && req.Offset < seg.EndOffset() {
			target = seg
			break
		}
	}
	if target == nil {
		target = segs[len(segs)-1]
	}

	batches, err := target.Read(req.Offset, int(req.MaxBytes))
	if err != nil {
		// A CRC mismatch mid-read stops the batch list but does not fail
		// the RPC: the client sees a short batch list and can retry from
		// where it left off (spec §4.4, §7).
		if types.AsError(err).Code == types.CorruptedData {
			logging.Warn("fetch: CRC mismatch reading %v-%v at offset %d, returning %d batches short: %v", req.Topic, req.Partition, req.Offset, len(batches), err)
			return types.FetchResponse{Batches: batches, HighWatermark: hw}, nil
		}
		return types.FetchResponse{HighWatermark: hw}, types.Errorf(types.Internal, "fetch: %v", err)
	}

	bytesOut := 0
	for _, bt := range batches {
		for _, r := range bt.Records {
			bytesOut += len(r.Key) + len(r.Value)
		}
	}
	if b.Metrics != nil {
		b.Metrics.FetchBytes(req.Topic, req.Partition, bytesOut)
	}

	return types.FetchResponse{Batches: batches, HighWatermark: hw}, nil
}
