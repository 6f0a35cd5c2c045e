package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodecFamily_String(t *testing.T) {
	tests := []struct {
		family CodecFamily
		want   string
	}{
		{FamilyRaw, "Raw"},
		{FamilyAbcV1, "AbcV1"},
		{FamilyScmV1, "ScmV1"},
		{FamilyDeltaLzma, "DeltaLzma"},
		{FamilyDeltaZstd, "DeltaZstd"},
		{FamilyDeltaVarint, "DeltaVarint"},
		{FamilyOverlapV1, "OverlapV1"},
		{FamilyZstdPlain, "ZstdPlain"},
		{FamilyScmOrder1, "ScmOrder1"},
		{FamilyExternal, "External"},
		{FamilyReserved, "Reserved"},
		{CodecFamily(0xA), "Reserved"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.family.String())
	}
}

func TestTagRoundTrip(t *testing.T) {
	for family := CodecFamily(0); family <= 0xF; family++ {
		for version := CodecVersion(0); version <= 0xF; version++ {
			tag := Tag(family, version)
			gotFamily, gotVersion := SplitTag(tag)
			assert.Equal(t, family, gotFamily)
			assert.Equal(t, version, gotVersion)
		}
	}
}

func TestStreamMask(t *testing.T) {
	assert.True(t, StreamMaskAll.Has(StreamIds))
	assert.True(t, StreamMaskAll.Has(StreamSequence))
	assert.True(t, StreamMaskAll.Has(StreamQuality))
	assert.True(t, StreamMaskAll.Has(StreamAux))

	assert.True(t, StreamMaskHeaderOnly.Has(StreamIds))
	assert.False(t, StreamMaskHeaderOnly.Has(StreamSequence))

	var m StreamMask
	m |= StreamSequence.Bit() | StreamQuality.Bit()
	assert.False(t, m.Has(StreamIds))
	assert.True(t, m.Has(StreamSequence))
	assert.True(t, m.Has(StreamQuality))
	assert.False(t, m.Has(StreamAux))
}

func TestClassifyLength(t *testing.T) {
	assert.Equal(t, ReadLengthShort, ClassifyLength(1))
	assert.Equal(t, ReadLengthShort, ClassifyLength(255))
	assert.Equal(t, ReadLengthMedium, ClassifyLength(256))
	assert.Equal(t, ReadLengthMedium, ClassifyLength(511))
	assert.Equal(t, ReadLengthLong, ClassifyLength(512))
	assert.Equal(t, ReadLengthLong, ClassifyLength(10000))
}

func TestGlobalFlags_RoundTrip(t *testing.T) {
	f := NewGlobalFlags(true, true, QualityIllumina8, IDTokenize, true, PELayoutConsecutive, ReadLengthLong, false)

	assert.True(t, f.IsPairedEnd())
	assert.True(t, f.PreserveOriginalOrder())
	assert.Equal(t, QualityIllumina8, f.QualityMode())
	assert.Equal(t, IDTokenize, f.IDMode())
	assert.True(t, f.HasReorderMap())
	assert.Equal(t, PELayoutConsecutive, f.PELayout())
	assert.Equal(t, ReadLengthLong, f.ReadLengthClass())
	assert.False(t, f.StreamingMode())
}

func TestGlobalFlags_AllFalseZeroEnums(t *testing.T) {
	f := NewGlobalFlags(false, false, QualityLossless, IDExact, false, PELayoutInterleaved, ReadLengthShort, true)

	assert.False(t, f.IsPairedEnd())
	assert.False(t, f.PreserveOriginalOrder())
	assert.Equal(t, QualityLossless, f.QualityMode())
	assert.Equal(t, IDExact, f.IDMode())
	assert.False(t, f.HasReorderMap())
	assert.Equal(t, PELayoutInterleaved, f.PELayout())
	assert.Equal(t, ReadLengthShort, f.ReadLengthClass())
	assert.True(t, f.StreamingMode())
}

func TestVersionByteRoundTrip(t *testing.T) {
	v := VersionByte(1, 2)
	major, minor := SplitVersionByte(v)
	assert.Equal(t, uint8(1), major)
	assert.Equal(t, uint8(2), minor)
}

func TestBlockHeaderSize(t *testing.T) {
	assert.Equal(t, 104, BlockHeaderSize)
}
