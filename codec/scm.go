package codec

import (
	"github.com/fqzip/fqzip/compress"
	"github.com/fqzip/fqzip/format"
)

// ScmCodec backs the two quality-stream families ScmV1 and ScmOrder1 (the
// order-1 context-mixing variant). The real SCM quality context-mixing
// model is out of scope here; both families are stand-ins backed by
// compress.LZ4Compressor, distinguished only by their codec tag so the
// rest of the system (registry, writer, reader) has a concrete,
// round-tripping codec to exercise.
type ScmCodec struct {
	family format.CodecFamily
	codec  compress.Codec
}

var _ Codec = ScmCodec{}

// NewScmCodec returns an LZ4-backed codec tagged with family, version 0.
func NewScmCodec(family format.CodecFamily) ScmCodec {
	return ScmCodec{family: family, codec: compress.NewLZ4Compressor()}
}

func (c ScmCodec) Encode(raw []byte, _ int) ([]byte, error) {
	return c.codec.Compress(raw)
}

func (c ScmCodec) Decode(compressed []byte, _ int) ([]byte, error) {
	return c.codec.Decompress(compressed)
}

func (c ScmCodec) Family() format.CodecFamily  { return c.family }
func (c ScmCodec) Version() format.CodecVersion { return 0 }
