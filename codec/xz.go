package codec

import (
	"github.com/fqzip/fqzip/compress"
	"github.com/fqzip/fqzip/format"
)

// XZCodec backs the DeltaLzma ids-stream family with compress.XZCompressor
// (ulikunitz/xz's LZMA2 container), the closest real library in the
// retrieved pack to "delta+lzma" (there is no pure LZMA1 codec available).
// The delta transform the family name implies is part of the out-of-scope
// external id-tokenization codec; this stand-in compresses the framed raw
// ids stream directly.
type XZCodec struct {
	family format.CodecFamily
	codec  compress.Codec
}

var _ Codec = XZCodec{}

// NewXZCodec returns an XZ-backed codec tagged with family, version 0.
func NewXZCodec(family format.CodecFamily) XZCodec {
	return XZCodec{family: family, codec: compress.NewXZCompressor()}
}

func (c XZCodec) Encode(raw []byte, _ int) ([]byte, error) {
	return c.codec.Compress(raw)
}

func (c XZCodec) Decode(compressed []byte, _ int) ([]byte, error) {
	return c.codec.Decompress(compressed)
}

func (c XZCodec) Family() format.CodecFamily  { return c.family }
func (c XZCodec) Version() format.CodecVersion { return 0 }
