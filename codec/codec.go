// Package codec implements the archive's stream codec registry (C2) and the
// concrete per-family stream codecs (C3) described in spec §4.2/§6.4. Every
// codec is stateless across calls: context resets at each block boundary,
// which is what makes parallel compression and random-access decode
// possible.
package codec

import (
	"github.com/fqzip/fqzip/errs"
	"github.com/fqzip/fqzip/format"
)

// Codec is the capability set a family implementation provides: encode,
// decode, and the (family, version) tag it identifies itself with (§6.4).
//
// hint, when nonzero, is the expected uncompressed size in bytes; codecs
// that need to know the record count to decode correctly (DeltaVarint)
// derive it from hint. A zero hint means "unknown," and implementations
// must still produce a correct result.
type Codec interface {
	Encode(raw []byte, level int) ([]byte, error)
	Decode(compressed []byte, hint int) ([]byte, error)
	Family() format.CodecFamily
	Version() format.CodecVersion
}

// Registry maps a packed (family, version) tag byte to a Codec
// implementation (§4.2).
type Registry struct {
	codecs map[uint8]Codec
}

// NewRegistry returns a Registry pre-populated with the default codec for
// every family named in spec §4.2's table, each backed by a real
// third-party compressor (see DESIGN.md for the grounding of each choice).
func NewRegistry() *Registry {
	r := &Registry{codecs: make(map[uint8]Codec)}

	r.Register(NewRawCodec())
	r.Register(NewAbcV1Codec())
	r.Register(NewScmCodec(format.FamilyScmV1))
	r.Register(NewScmCodec(format.FamilyScmOrder1))
	r.Register(NewXZCodec(format.FamilyDeltaLzma))
	r.Register(NewZstdFamilyCodec(format.FamilyDeltaZstd))
	r.Register(NewDeltaVarintCodec())
	r.Register(NewSentinelVarintCodec())
	r.Register(NewOverlapV1Codec())
	r.Register(NewZstdFamilyCodec(format.FamilyZstdPlain))

	return r
}

// Register installs c under its (family, version) tag, overwriting any
// existing registration. This is the External family's extension point
// (§4.2): a caller registers a codec under format.FamilyExternal to supply
// one of the out-of-scope specialized compressors.
func (r *Registry) Register(c Codec) {
	r.codecs[format.Tag(c.Family(), c.Version())] = c
}

// Get returns the codec registered for tag, or an UnsupportedCodec error
// carrying the offending tag (§4.2, §7).
func (r *Registry) Get(tag uint8) (Codec, error) {
	c, ok := r.codecs[tag]
	if !ok {
		family, version := format.SplitTag(tag)
		return nil, errs.Wrap(errs.KindUnsupportedCodec, errs.ErrUnsupportedCodec, unsupportedContext(family, version))
	}

	return c, nil
}

func unsupportedContext(family format.CodecFamily, version format.CodecVersion) string {
	return "family=" + family.String() + " version=" + versionString(version)
}

func versionString(v format.CodecVersion) string {
	const hex = "0123456789abcdef"
	return string([]byte{hex[v&0x0F]})
}

// Default is a package-level Registry with every built-in codec registered,
// used wherever a caller does not construct its own (e.g. the CLI's default
// writer/reader configuration).
var Default = NewRegistry()
