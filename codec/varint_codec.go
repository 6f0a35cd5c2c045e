package codec

import (
	"encoding/binary"

	"github.com/fqzip/fqzip/errs"
	"github.com/fqzip/fqzip/format"
	"github.com/fqzip/fqzip/internal/varint"
)

// DeltaVarintCodec is the auxiliary-length stream codec (family
// DeltaVarint, version 0). The raw aux stream the block assembler produces
// is a concatenation of u32 little-endian record lengths; this codec
// delta+zigzag+varint encodes that sequence, using the same transform
// reorder.EncodeArray uses for the reorder map (§4.7), simplified to
// single-order delta since the aux stream needs no delta-of-delta
// chaining.
type DeltaVarintCodec struct{}

var _ Codec = DeltaVarintCodec{}

// NewDeltaVarintCodec returns the DeltaVarint family codec.
func NewDeltaVarintCodec() DeltaVarintCodec { return DeltaVarintCodec{} }

func (DeltaVarintCodec) Family() format.CodecFamily  { return format.FamilyDeltaVarint }
func (DeltaVarintCodec) Version() format.CodecVersion { return 0 }

func (DeltaVarintCodec) Encode(raw []byte, _ int) ([]byte, error) {
	if len(raw)%4 != 0 {
		return nil, errs.Wrap(errs.KindFormat, errs.ErrInvalidHeaderSize, "deltavarint: raw aux stream not a multiple of 4 bytes")
	}

	count := len(raw) / 4
	out := make([]byte, 0, count*2)

	var prev int64
	for i := 0; i < count; i++ {
		v := int64(binary.LittleEndian.Uint32(raw[i*4:]))
		out = varint.AppendZigzag(out, v-prev)
		prev = v
	}

	return out, nil
}

func (DeltaVarintCodec) Decode(compressed []byte, hint int) ([]byte, error) {
	if len(compressed) == 0 {
		return nil, nil
	}

	count := hint / 4
	out := make([]byte, 0, count*4)

	var prev int64
	offset := 0
	// A zero hint gives no record count, so decode until the stream ends.
	for i := 0; i < count || (hint <= 0 && offset < len(compressed)); i++ {
		delta, next, ok := varint.ReadZigzag(compressed, offset)
		if !ok {
			return nil, errs.Wrap(errs.KindFormat, errs.ErrTruncatedFile, "deltavarint: truncated aux stream")
		}
		offset = next

		prev += delta
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, uint32(prev)) //nolint:gosec
		out = append(out, buf...)
	}

	return out, nil
}

// SentinelVarintCodec is registered under (DeltaVarint,
// format.DeltaVarintSentinelVersion) and represents "the aux stream is
// omitted because uniform_length > 0": both operations are no-ops that
// always produce zero bytes, so a block assembled with a uniform length
// round-trips through the same family byte as a non-uniform block without
// ever touching real aux bytes.
type SentinelVarintCodec struct{}

var _ Codec = SentinelVarintCodec{}

// NewSentinelVarintCodec returns the omitted-aux-stream sentinel codec.
func NewSentinelVarintCodec() SentinelVarintCodec { return SentinelVarintCodec{} }

func (SentinelVarintCodec) Family() format.CodecFamily  { return format.FamilyDeltaVarint }
func (SentinelVarintCodec) Version() format.CodecVersion { return format.DeltaVarintSentinelVersion }
func (SentinelVarintCodec) Encode(_ []byte, _ int) ([]byte, error)     { return nil, nil }
func (SentinelVarintCodec) Decode(_ []byte, _ int) ([]byte, error)     { return nil, nil }
