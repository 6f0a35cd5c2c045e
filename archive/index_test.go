package archive

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func threeBlockIndex() *Index {
	return &Index{Entries: []IndexEntry{
		{Offset: 0, CompressedSize: 100, ArchiveIDStart: 1, RecordCount: 100000},
		{Offset: 100, CompressedSize: 120, ArchiveIDStart: 100001, RecordCount: 100000},
		{Offset: 220, CompressedSize: 90, ArchiveIDStart: 200001, RecordCount: 100000},
	}}
}

func TestIndex_EncodeDecode_RoundTrip(t *testing.T) {
	ix := threeBlockIndex()

	encoded := ix.Encode()
	require.Equal(t, ix.Size(), len(encoded))

	decoded, err := DecodeIndex(encoded)
	require.NoError(t, err)
	require.Equal(t, ix.Entries, decoded.Entries)
}

func TestIndex_EncodeDecode_Empty(t *testing.T) {
	ix := &Index{}

	encoded := ix.Encode()
	decoded, err := DecodeIndex(encoded)
	require.NoError(t, err)
	require.Empty(t, decoded.Entries)
	require.Equal(t, uint64(0), decoded.TotalRecords())
}

func TestIndex_FindBlock(t *testing.T) {
	ix := threeBlockIndex()

	i, err := ix.FindBlock(1)
	require.NoError(t, err)
	require.Equal(t, 0, i)

	i, err = ix.FindBlock(100001)
	require.NoError(t, err)
	require.Equal(t, 1, i)

	i, err = ix.FindBlock(300000)
	require.NoError(t, err)
	require.Equal(t, 2, i)

	_, err = ix.FindBlock(300001)
	require.Error(t, err)

	_, err = ix.FindBlock(0)
	require.Error(t, err)
}

func TestIndex_RangeBlocks(t *testing.T) {
	ix := threeBlockIndex()

	start, end, err := ix.RangeBlocks(250000, 250001)
	require.NoError(t, err)
	require.Equal(t, 2, start)
	require.Equal(t, 2, end)

	start, end, err = ix.RangeBlocks(99999, 100002)
	require.NoError(t, err)
	require.Equal(t, 0, start)
	require.Equal(t, 1, end)
}

func TestIndex_TotalRecords(t *testing.T) {
	ix := threeBlockIndex()
	require.Equal(t, uint64(300000), ix.TotalRecords())
}
