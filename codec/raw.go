package codec

import "github.com/fqzip/fqzip/format"

// RawCodec is the debug pass-through codec (family Raw, version 0):
// encode/decode are both the identity function. Grounded on the same
// bypass semantics as compress.NoOpCompressor.
type RawCodec struct{}

var _ Codec = RawCodec{}

// NewRawCodec returns the Raw family codec.
func NewRawCodec() RawCodec { return RawCodec{} }

func (RawCodec) Encode(raw []byte, _ int) ([]byte, error)    { return raw, nil }
func (RawCodec) Decode(compressed []byte, _ int) ([]byte, error) { return compressed, nil }
func (RawCodec) Family() format.CodecFamily                  { return format.FamilyRaw }
func (RawCodec) Version() format.CodecVersion                { return 0 }
