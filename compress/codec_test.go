package compress

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func allCodecs(t *testing.T) map[Algorithm]Codec {
	t.Helper()

	codecs := make(map[Algorithm]Codec)
	for _, a := range []Algorithm{AlgorithmNone, AlgorithmZstd, AlgorithmS2, AlgorithmLZ4, AlgorithmXZ} {
		c, err := New(a)
		require.NoError(t, err)
		codecs[a] = c
	}

	return codecs
}

func TestAlgorithm_String(t *testing.T) {
	require.Equal(t, "none", AlgorithmNone.String())
	require.Equal(t, "zstd", AlgorithmZstd.String())
	require.Equal(t, "s2", AlgorithmS2.String())
	require.Equal(t, "lz4", AlgorithmLZ4.String())
	require.Equal(t, "xz", AlgorithmXZ.String())
	require.Equal(t, "unknown", Algorithm(99).String())
}

func TestNew_UnknownAlgorithm(t *testing.T) {
	_, err := New(Algorithm(99))
	require.Error(t, err)
}

func TestAllCodecs_EmptyData(t *testing.T) {
	for name, c := range allCodecs(t) {
		compressed, err := c.Compress(nil)
		require.NoError(t, err, name)
		require.Empty(t, compressed, name)

		decompressed, err := c.Decompress(nil)
		require.NoError(t, err, name)
		require.Empty(t, decompressed, name)
	}
}

func TestAllCodecs_RoundTrip(t *testing.T) {
	payloads := [][]byte{
		[]byte("A"),
		[]byte("ACGTACGTACGTACGTACGTACGTACGTACGT"),
		bytesRepeat([]byte("ACGTN"), 4096),
	}

	for name, c := range allCodecs(t) {
		for _, payload := range payloads {
			compressed, err := c.Compress(payload)
			require.NoError(t, err, name)

			decompressed, err := c.Decompress(compressed)
			require.NoError(t, err, name)
			require.Equal(t, payload, decompressed, name)
		}
	}
}

func TestNoOpCompressor_SharesBacking(t *testing.T) {
	c := NewNoOpCompressor()
	data := []byte("ACGT")

	compressed, err := c.Compress(data)
	require.NoError(t, err)
	require.Same(t, &data[0], &compressed[0])
}

func bytesRepeat(pattern []byte, n int) []byte {
	out := make([]byte, 0, len(pattern)*n)
	for i := 0; i < n; i++ {
		out = append(out, pattern...)
	}

	return out
}
