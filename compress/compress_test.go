package compress

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTripAllAlgorithms(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog, repeated a bit to give compressors something to chew on")

	for _, name := range []string{"gzip", "snappy", "lz4", "zstd"} {
		c := ByName(name)
		require.NotNil(t, c, name)

		compressed, err := c.Compress(data)
		require.NoError(t, err, name)

		decompressed, err := c.Decompress(compressed)
		require.NoError(t, err, name)
		require.Equal(t, data, decompressed, name)
	}
}

func TestByNameUnknownReturnsNil(t *testing.T) {
	require.Nil(t, ByName(""))
	require.Nil(t, ByName("bz2"))
}
