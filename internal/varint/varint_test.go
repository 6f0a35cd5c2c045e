package varint

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppendReadZigzag_RoundTrip(t *testing.T) {
	values := []int64{0, 1, -1, 127, -128, 1000000, -1000000}

	var buf []byte
	for _, v := range values {
		buf = AppendZigzag(buf, v)
	}

	offset := 0
	for _, want := range values {
		got, next, ok := ReadZigzag(buf, offset)
		require.True(t, ok)
		require.Equal(t, want, got)
		offset = next
	}
	require.Equal(t, len(buf), offset)
}

func TestReadZigzag_Truncated(t *testing.T) {
	_, _, ok := ReadZigzag(nil, 0)
	require.False(t, ok)

	buf := AppendZigzag(nil, 99999)
	_, _, ok = ReadZigzag(buf[:len(buf)-1], 0)
	require.False(t, ok)
}
