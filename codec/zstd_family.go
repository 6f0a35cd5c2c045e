package codec

import (
	"github.com/fqzip/fqzip/compress"
	"github.com/fqzip/fqzip/format"
)

// ZstdFamilyCodec wraps compress.ZstdCompressor under one of the two zstd-
// backed family tags spec §4.2 names: ZstdPlain (the fallback sequence
// codec for medium/long reads) and DeltaZstd (one of the two ids-stream
// codecs). Both families are stand-ins for a specialized external codec;
// the core only requires that encode/decode round-trip deterministically.
type ZstdFamilyCodec struct {
	family format.CodecFamily
	codec  compress.Codec
}

var _ Codec = ZstdFamilyCodec{}

// NewZstdFamilyCodec returns a zstd-backed codec tagged with family,
// version 0.
func NewZstdFamilyCodec(family format.CodecFamily) ZstdFamilyCodec {
	return ZstdFamilyCodec{family: family, codec: compress.NewZstdCompressor()}
}

func (c ZstdFamilyCodec) Encode(raw []byte, _ int) ([]byte, error) {
	return c.codec.Compress(raw)
}

func (c ZstdFamilyCodec) Decode(compressed []byte, _ int) ([]byte, error) {
	return c.codec.Decompress(compressed)
}

func (c ZstdFamilyCodec) Family() format.CodecFamily  { return c.family }
func (c ZstdFamilyCodec) Version() format.CodecVersion { return 0 }

// OverlapV1Codec is the long-read sequence codec: zstd tuned for the
// overlap-redundant reads read_length_class=Long produces. It shares the
// same underlying compressor as ZstdFamilyCodec; the family tag is what a
// reader uses to know a long-read-tuned stream was used. The tuning itself
// is a codec-internal detail out of this module's scope.
type OverlapV1Codec struct {
	codec compress.Codec
}

var _ Codec = OverlapV1Codec{}

// NewOverlapV1Codec returns the OverlapV1 family codec.
func NewOverlapV1Codec() OverlapV1Codec {
	return OverlapV1Codec{codec: compress.NewZstdCompressor()}
}

func (c OverlapV1Codec) Encode(raw []byte, _ int) ([]byte, error) {
	return c.codec.Compress(raw)
}

func (c OverlapV1Codec) Decode(compressed []byte, _ int) ([]byte, error) {
	return c.codec.Decompress(compressed)
}

func (OverlapV1Codec) Family() format.CodecFamily  { return format.FamilyOverlapV1 }
func (OverlapV1Codec) Version() format.CodecVersion { return 0 }
