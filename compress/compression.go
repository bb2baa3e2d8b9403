// Package compress implements the optional transport-level payload
// compressors applied to Fetch responses (SPEC_FULL.md §3). The
// on-disk segment format is never compressed.
package compress

// Name identifies one of the supported compression algorithms by the
// string carried in a FetchRequest/FetchResponse's CompressionType.
type Name string

const (
	None   Name = ""
	Gzip   Name = "gzip"
	Snappy Name = "snappy"
	LZ4    Name = "lz4"
	ZSTD   Name = "zstd"
)

var compressors = map[Name]Compressor{
	Gzip:   &GzipCompressor{},
	Snappy: &SnappyCompressor{},
	LZ4:    &LZ4Compressor{},
	ZSTD:   &ZSTDCompressor{},
}

// ByName returns the Compressor for name, or nil for None/unknown names.
func ByName(name string) Compressor {
	return compressors[Name(name)]
}

// Compressor represents one of the supported compressors.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}
