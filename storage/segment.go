package storage

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/CefBoud/corelog/logging"
	"github.com/CefBoud/corelog/serde"
	"github.com/CefBoud/corelog/types"
)

// ErrClosedSegment is returned by Append when the segment has been closed.
var ErrClosedSegment = types.Errorf(types.FailedPrecondition, "segment is closed")

// ErrSegmentFull is returned by Append when the write would overflow the
// segment's size cap; the caller rolls and retries once.
var ErrSegmentFull = types.Errorf(types.ResourceExhausted, "segment is full")

// Segment is one append-only (.log, .index) pair. Appends, reads, and
// recovery are all guarded by the segment's own mutex so that different
// partitions — which own independent segments — proceed fully in
// parallel (spec §5).
type Segment struct {
	mu sync.Mutex

	dir         string
	baseOffset  int64
	endOffset   int64 // next offset to be assigned
	tail        int64 // log file write position (>= header size)
	maxSize     int64
	flushPolicy types.FlushPolicy
	closed      bool

	logFile   *os.File
	indexFile *os.File
	index     []types.IndexEntry
}

// CreateSegment creates a brand-new segment rooted at baseOffset: writes
// the log header, preallocates the log file to maxSize (advisory —
// failure is logged and otherwise ignored), and hints sequential access.
func CreateSegment(dir string, baseOffset int64, nowMs int64, maxSize int64, flushPolicy types.FlushPolicy) (*Segment, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, err
	}
	logFile, err := os.OpenFile(logPath(dir, baseOffset), os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, fmt.Errorf("creating log file: %w", err)
	}
	indexFile, err := os.OpenFile(indexPath(dir, baseOffset), os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating index file: %w", err)
	}

	preallocate(logFile, maxSize)
	hintSequential(logFile)

	header := serde.NewEncoder()
	header.PutInt64(baseOffset)
	header.PutInt64(nowMs)
	header.PutUint32(types.SegmentMagic)
	header.PutUint32(types.SegmentVersion)
	if _, err := logFile.WriteAt(header.Bytes(), 0); err != nil {
		logFile.Close()
		indexFile.Close()
		return nil, fmt.Errorf("writing segment header: %w", err)
	}

	return &Segment{
		dir:         dir,
		baseOffset:  baseOffset,
		endOffset:   baseOffset,
		tail:        types.SegmentHeaderSize,
		maxSize:     maxSize,
		flushPolicy: flushPolicy,
		logFile:     logFile,
		indexFile:   indexFile,
	}, nil
}

// OpenSegment reopens an existing segment and runs recovery on it.
func OpenSegment(dir string, baseOffset int64, maxSize int64, flushPolicy types.FlushPolicy) (*Segment, error) {
	logFile, err := os.OpenFile(logPath(dir, baseOffset), os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	indexFile, err := os.OpenFile(indexPath(dir, baseOffset), os.O_RDWR, 0644)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("opening index file: %w", err)
	}

	s := &Segment{
		dir:         dir,
		baseOffset:  baseOffset,
		endOffset:   baseOffset,
		tail:        types.SegmentHeaderSize,
		maxSize:     maxSize,
		flushPolicy: flushPolicy,
		logFile:     logFile,
		indexFile:   indexFile,
	}
	if err := s.recoverTail(); err != nil {
		logFile.Close()
		indexFile.Close()
		return nil, err
	}
	return s, nil
}

// BaseOffset returns the segment's base offset.
func (s *Segment) BaseOffset() int64 {
	return s.baseOffset
}

// EndOffset returns the next offset this segment would assign.
func (s *Segment) EndOffset() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endOffset
}

// Size returns the number of log-file bytes in use (header + frames written).
func (s *Segment) Size() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tail
}

// IsFull reports whether the segment has reached its size cap.
func (s *Segment) IsFull() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tail >= s.maxSize
}

// IsClosed reports whether the segment has been closed.
func (s *Segment) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Append builds a RecordBatch from records, frames it, and writes it to
// the tail of the log. Records with TimestampMs == 0 are stamped with
// nowMs before framing. Returns the offset assigned to the first record.
func (s *Segment) Append(records []types.Record, nowMs int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosedSegment
	}

	records = append([]types.Record(nil), records...)
	for i := range records {
		if records[i].TimestampMs == 0 {
			records[i].TimestampMs = nowMs
		}
	}

	batch := types.RecordBatch{
		BaseOffset:  s.endOffset,
		Records:     records,
		TimestampMs: nowMs,
	}
	frame := frameBatch(batch)
	if s.tail+int64(len(frame)) > s.maxSize {
		return 0, ErrSegmentFull
	}

	if _, err := s.logFile.WriteAt(frame, s.tail); err != nil {
		return 0, fmt.Errorf("writing batch frame: %w", err)
	}

	entry := types.IndexEntry{
		RelativeOffset: s.endOffset - s.baseOffset,
		FilePosition:   s.tail,
		BatchSize:      int32(len(frame)),
	}
	if err := s.appendIndexEntry(entry); err != nil {
		return 0, fmt.Errorf("writing index entry: %w", err)
	}

	assigned := s.endOffset
	s.tail += int64(len(frame))
	s.endOffset += int64(len(records))

	if err := s.honorFlushPolicy(false); err != nil {
		return 0, err
	}
	if err := writeManifest(s.dir, manifest{
		BaseOffset:    s.baseOffset,
		NextOffset:    s.endOffset,
		HighWatermark: s.endOffset,
		TimestampMs:   nowMs,
	}); err != nil {
		logging.Warn("failed to update MANIFEST for %v: %v", s.dir, err)
	}

	return assigned, nil
}

const indexEntrySize = 8 + 8 + 4

func (s *Segment) appendIndexEntry(e types.IndexEntry) error {
	enc := serde.NewEncoder()
	enc.PutInt64(e.RelativeOffset)
	enc.PutInt64(e.FilePosition)
	enc.PutInt32(e.BatchSize)
	pos := int64(len(s.index)) * indexEntrySize
	if _, err := s.indexFile.WriteAt(enc.Bytes(), pos); err != nil {
		return err
	}
	s.index = append(s.index, e)
	return nil
}

// Read returns the batches starting at or covering fromOffset, up to
// maxBytes of framed data (spec §4.1).
func (s *Segment) Read(fromOffset int64, maxBytes int) ([]types.RecordBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if fromOffset < s.baseOffset || fromOffset >= s.endOffset || len(s.index) == 0 {
		return nil, nil
	}

	idx := s.searchIndex(fromOffset - s.baseOffset)
	var batches []types.RecordBatch
	budget := maxBytes
	for i := idx; i < len(s.index); i++ {
		entry := s.index[i]
		if int(entry.BatchSize) > budget {
			break
		}
		batch, err := s.readFrameAt(entry.FilePosition, int(entry.BatchSize))
		if err != nil {
			return batches, err
		}
		batches = append(batches, batch)
		budget -= int(entry.BatchSize)
	}
	return batches, nil
}

// searchIndex binary-searches for the greatest index entry whose
// RelativeOffset is <= target, returning its slice position (or 0).
func (s *Segment) searchIndex(target int64) int {
	lo, hi := 0, len(s.index)-1
	best := 0
	for lo <= hi {
		mid := (lo + hi) / 2
		if s.index[mid].RelativeOffset <= target {
			best = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return best
}

func (s *Segment) readFrameAt(pos int64, size int) (types.RecordBatch, error) {
	frame := make([]byte, size)
	if _, err := s.logFile.ReadAt(frame, pos); err != nil {
		return types.RecordBatch{}, fmt.Errorf("reading frame at %d: %w", pos, err)
	}
	d := serde.NewDecoder(frame)
	_ = d.Uint32() // len, already known from index entry
	storedCRC := d.Uint32()
	_ = d.Int64() // base_offset, already known from index entry
	payload := frame[types.FrameHeaderSize:]

	batch, ok := decodeBatchBody(payload)
	if !ok || batch.CRC32 != storedCRC {
		return types.RecordBatch{}, types.Errorf(types.CorruptedData, "CRC mismatch in frame at %d", pos)
	}
	return batch, nil
}

// Flush fsyncs the log and index files.
func (s *Segment) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flush()
}

func (s *Segment) flush() error {
	if err := s.logFile.Sync(); err != nil {
		return fmt.Errorf("fsync log file: %w", err)
	}
	if err := s.indexFile.Sync(); err != nil {
		return fmt.Errorf("fsync index file: %w", err)
	}
	return nil
}

// honorFlushPolicy fsyncs if the active policy calls for it at this point.
// rolling is true when called as part of a roll/close.
func (s *Segment) honorFlushPolicy(rolling bool) error {
	switch s.flushPolicy {
	case types.FlushEachBatch:
		return s.flush()
	case types.FlushOnRoll:
		if rolling {
			return s.flush()
		}
	}
	return nil
}

// Close flushes (per policy) and closes the segment's file handles.
func (s *Segment) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	if err := s.honorFlushPolicy(true); err != nil {
		logging.Warn("flush on close failed for %v: %v", s.dir, err)
	}
	s.closed = true
	if err := s.logFile.Close(); err != nil {
		return err
	}
	return s.indexFile.Close()
}

// recoverTail walks frames forward from the header, truncating at the
// first sign of a short read, a sanity-bound violation, a partial tail
// write, or a CRC mismatch (spec §4.1). The index is always rebuilt.
func (s *Segment) recoverTail() error {
	stat, err := s.logFile.Stat()
	if err != nil {
		return err
	}
	fileSize := stat.Size()

	pos := int64(types.SegmentHeaderSize)
	var recordCount int64
	var index []types.IndexEntry

	for {
		header := make([]byte, types.FrameHeaderSize)
		n, err := s.logFile.ReadAt(header, pos)
		if err != nil && n < types.FrameHeaderSize {
			break // short read: truncate here
		}
		d := serde.NewDecoder(header)
		frameLen := d.Uint32()
		frameCRC := d.Uint32()
		baseOffset := d.Int64()

		if frameLen == 0 || frameLen > types.MaxBatchBytes {
			break
		}
		frameSize := int64(types.FrameHeaderSize) + int64(frameLen)
		if pos+frameSize > fileSize {
			break // partial tail write
		}

		payload := make([]byte, frameLen)
		if _, err := s.logFile.ReadAt(payload, pos+int64(types.FrameHeaderSize)); err != nil {
			break
		}
		batch, ok := decodeBatchBody(payload)
		if !ok || batch.CRC32 != frameCRC {
			break
		}

		index = append(index, types.IndexEntry{
			RelativeOffset: baseOffset - s.baseOffset,
			FilePosition:   pos,
			BatchSize:      int32(frameSize),
		})
		recordCount += int64(len(batch.Records))
		pos += frameSize
	}

	if pos < fileSize {
		if err := s.logFile.Truncate(pos); err != nil {
			return fmt.Errorf("truncating corrupt tail: %w", err)
		}
	}

	if err := s.rebuildIndexFile(index); err != nil {
		return err
	}
	s.index = index
	s.tail = pos
	s.endOffset = s.baseOffset + recordCount
	return nil
}

func (s *Segment) rebuildIndexFile(index []types.IndexEntry) error {
	if err := s.indexFile.Truncate(0); err != nil {
		return err
	}
	enc := serde.NewEncoder()
	for _, e := range index {
		enc.PutInt64(e.RelativeOffset)
		enc.PutInt64(e.FilePosition)
		enc.PutInt32(e.BatchSize)
	}
	if _, err := s.indexFile.WriteAt(enc.Bytes(), 0); err != nil {
		return err
	}
	return nil
}

// preallocate extends f to size bytes using Fallocate where the
// platform supports it. Advisory: failures are logged, not returned.
func preallocate(f *os.File, size int64) {
	if size <= 0 {
		return
	}
	if err := unix.Fallocate(int(f.Fd()), 0, 0, size); err != nil {
		logging.Debug("preallocate: Fallocate unavailable for %v (%v); falling back to Truncate", f.Name(), err)
		if err := f.Truncate(size); err != nil {
			logging.Debug("preallocate: Truncate also failed for %v: %v", f.Name(), err)
		}
	}
}

// hintSequential advises the kernel that f will be read/written sequentially.
func hintSequential(f *os.File) {
	if err := unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_SEQUENTIAL); err != nil {
		logging.Debug("hintSequential: Fadvise unavailable for %v: %v", f.Name(), err)
	}
}
