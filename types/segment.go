package types

// IndexEntry is one packed record of a segment's .index file:
// (relative_offset, file_position, batch_size).
type IndexEntry struct {
	RelativeOffset int64
	FilePosition   int64
	BatchSize      int32
}

const (
	// SegmentMagic tags a well-formed segment log header.
	SegmentMagic uint32 = 0xDEADBEEF
	// SegmentVersion is the on-disk log header format version.
	SegmentVersion uint32 = 1
	// SegmentHeaderSize is the fixed size, in bytes, of a segment's log header.
	SegmentHeaderSize = 8 + 8 + 4 + 4
	// FrameHeaderSize is the fixed size, in bytes, of a batch frame's header.
	FrameHeaderSize = 4 + 4 + 8
	// MaxBatchBytes bounds a single batch frame during recovery sanity checks.
	MaxBatchBytes = 1 << 20
)
