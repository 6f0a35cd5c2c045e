package record

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecord_Validate(t *testing.T) {
	r := Record{ID: []byte("r1"), Sequence: []byte("ACGT"), Quality: []byte("IIII")}
	require.NoError(t, r.Validate())

	bad := Record{ID: []byte("r1"), Sequence: []byte("ACGT"), Quality: []byte("III")}
	require.Error(t, bad.Validate())
}

func TestRecord_Clone(t *testing.T) {
	r := Record{ID: []byte("r1"), Sequence: []byte("ACGT"), Quality: []byte("IIII")}
	clone := r.Clone()
	clone.Sequence[0] = 'T'

	require.Equal(t, byte('A'), r.Sequence[0])
	require.Equal(t, byte('T'), clone.Sequence[0])
}

func TestChunk_UniformLength(t *testing.T) {
	c := Chunk{Records: []Record{
		{ID: []byte("r1"), Sequence: []byte("ACGT"), Quality: []byte("IIII")},
		{ID: []byte("r2"), Sequence: []byte("TTTT"), Quality: []byte("!!!!")},
	}}

	n, ok := c.UniformLength()
	require.True(t, ok)
	require.Equal(t, 4, n)

	c.Records = append(c.Records, Record{ID: []byte("r3"), Sequence: []byte("A"), Quality: []byte("I")})
	_, ok = c.UniformLength()
	require.False(t, ok)
}

func TestChunk_UniformLength_Empty(t *testing.T) {
	c := Chunk{}
	_, ok := c.UniformLength()
	require.False(t, ok)
}
