package block

import (
	"testing"

	"github.com/fqzip/fqzip/codec"
	"github.com/fqzip/fqzip/format"
	"github.com/fqzip/fqzip/record"
	"github.com/stretchr/testify/require"
)

func uniformSelection() CodecSelection {
	return CodecSelection{
		IDs:      format.Tag(format.FamilyDeltaZstd, 0),
		Sequence: format.Tag(format.FamilyAbcV1, 0),
		Quality:  format.Tag(format.FamilyScmV1, 0),
		Aux:      format.Tag(format.FamilyDeltaVarint, 0),
		Level:    6,
	}
}

func scenario2Chunk() record.Chunk {
	return record.Chunk{Records: []record.Record{
		{ID: []byte("r1"), Sequence: []byte("ACGT"), Quality: []byte("IIII")},
		{ID: []byte("r2"), Sequence: []byte("ACGN"), Quality: []byte("IIIH")},
		{ID: []byte("r3"), Sequence: []byte("TTTT"), Quality: []byte("!!!!")},
	}}
}

func TestAssembleDisassemble_UniformLength(t *testing.T) {
	registry := codec.NewRegistry()
	chunk := scenario2Chunk()

	blk, err := Assemble(chunk, 0, uniformSelection(), registry)
	require.NoError(t, err)
	require.Equal(t, uint32(3), blk.Header.RecordCount)
	require.Equal(t, uint32(4), blk.Header.UniformLength)
	require.Equal(t, format.Tag(format.FamilyDeltaVarint, format.DeltaVarintSentinelVersion), blk.Header.Codec[format.StreamAux])
	require.Empty(t, blk.Streams[format.StreamAux])

	out, err := Disassemble(blk, registry, true)
	require.NoError(t, err)
	require.Len(t, out.Records, 3)
	for i, r := range out.Records {
		require.Equal(t, chunk.Records[i].ID, r.ID)
		require.Equal(t, chunk.Records[i].Sequence, r.Sequence)
		require.Equal(t, chunk.Records[i].Quality, r.Quality)
	}
}

func TestAssembleDisassemble_VariableLength(t *testing.T) {
	registry := codec.NewRegistry()
	chunk := record.Chunk{Records: []record.Record{
		{ID: []byte("r1"), Sequence: []byte("ACGT"), Quality: []byte("IIII")},
		{ID: []byte("r2"), Sequence: []byte("ACGTACGT"), Quality: []byte("IIIIIIII")},
		{ID: []byte("r3"), Sequence: []byte("A"), Quality: []byte("!")},
	}}

	blk, err := Assemble(chunk, 5, uniformSelection(), registry)
	require.NoError(t, err)
	require.Equal(t, uint32(0), blk.Header.UniformLength)
	require.NotEmpty(t, blk.Streams[format.StreamAux])

	out, err := Disassemble(blk, registry, true)
	require.NoError(t, err)
	require.Len(t, out.Records, 3)
	for i, r := range out.Records {
		require.Equal(t, chunk.Records[i].Sequence, r.Sequence)
	}
}

func TestAssemble_EmptyChunk(t *testing.T) {
	registry := codec.NewRegistry()
	_, err := Assemble(record.Chunk{}, 0, uniformSelection(), registry)
	require.Error(t, err)
}

func TestDisassemble_ChecksumMismatch(t *testing.T) {
	registry := codec.NewRegistry()
	chunk := scenario2Chunk()

	blk, err := Assemble(chunk, 0, uniformSelection(), registry)
	require.NoError(t, err)

	blk.Header.PayloadXxh64 ^= 0xFFFFFFFF

	_, err = Disassemble(blk, registry, true)
	require.Error(t, err)
}

func TestDisassemble_SkipVerification(t *testing.T) {
	registry := codec.NewRegistry()
	chunk := scenario2Chunk()

	blk, err := Assemble(chunk, 0, uniformSelection(), registry)
	require.NoError(t, err)
	blk.Header.PayloadXxh64 ^= 0xFFFFFFFF

	_, err = Disassemble(blk, registry, false)
	require.NoError(t, err)
}

func TestDisassembleSelective_IdsOnly(t *testing.T) {
	registry := codec.NewRegistry()
	chunk := scenario2Chunk()

	blk, err := Assemble(chunk, 0, uniformSelection(), registry)
	require.NoError(t, err)

	out, err := DisassembleSelective(blk, registry, format.StreamMaskHeaderOnly, true)
	require.NoError(t, err)
	require.Len(t, out.Records, 3)
	for i, r := range out.Records {
		require.Equal(t, chunk.Records[i].ID, r.ID)
		require.Nil(t, r.Sequence)
		require.Nil(t, r.Quality)
	}
}

func TestDisassembleSelective_SequenceOnly_VariableLength(t *testing.T) {
	registry := codec.NewRegistry()
	chunk := record.Chunk{Records: []record.Record{
		{ID: []byte("r1"), Sequence: []byte("ACGT"), Quality: []byte("IIII")},
		{ID: []byte("r2"), Sequence: []byte("A"), Quality: []byte("!")},
	}}

	blk, err := Assemble(chunk, 0, uniformSelection(), registry)
	require.NoError(t, err)

	mask := format.StreamSequence.Bit()
	out, err := DisassembleSelective(blk, registry, mask, true)
	require.NoError(t, err)
	require.Len(t, out.Records, 2)
	for i, r := range out.Records {
		require.Equal(t, chunk.Records[i].Sequence, r.Sequence)
		require.Nil(t, r.Quality)
		require.Nil(t, r.ID)
	}
}

func TestDisassembleSelective_SkipsVerificationOnPartialMask(t *testing.T) {
	registry := codec.NewRegistry()
	chunk := scenario2Chunk()

	blk, err := Assemble(chunk, 0, uniformSelection(), registry)
	require.NoError(t, err)
	blk.Header.PayloadXxh64 ^= 0xFFFFFFFF

	_, err = DisassembleSelective(blk, registry, format.StreamMaskHeaderOnly, true)
	require.NoError(t, err, "partial-mask reads must not force a checksum check")
}

func TestHeader_EncodeDecode_RoundTrip(t *testing.T) {
	h := Header{
		HeaderSize:     format.BlockHeaderSize,
		BlockID:        42,
		ChecksumType:   format.ChecksumXxh64,
		Codec:          [4]uint8{1, 2, 3, 4},
		PayloadXxh64:   0xDEADBEEFCAFEBABE,
		RecordCount:    100,
		UniformLength:  150,
		CompressedSize: 9000,
		Offsets:        [4]uint64{0, 100, 200, 300},
		Sizes:          [4]uint64{100, 100, 100, 100},
	}

	encoded := h.Encode()
	require.Len(t, encoded, format.BlockHeaderSize)

	decoded, err := DecodeHeader(encoded)
	require.NoError(t, err)
	require.Equal(t, h, *decoded)
}

func TestDecodeHeader_Truncated(t *testing.T) {
	_, err := DecodeHeader(make([]byte, 10))
	require.Error(t, err)
}

func TestPlaceholder(t *testing.T) {
	chunk := Placeholder(3, 4, '#')
	require.Len(t, chunk.Records, 3)
	for _, r := range chunk.Records {
		require.Equal(t, []byte("NNNN"), r.Sequence)
		require.Equal(t, []byte("####"), r.Quality)
	}
}
