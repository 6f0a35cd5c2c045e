package codec

import (
	"encoding/binary"

	"github.com/fqzip/fqzip/compress"
	"github.com/fqzip/fqzip/errs"
	"github.com/fqzip/fqzip/format"
	"github.com/fqzip/fqzip/internal/varint"
)

// AbcV1Codec is the short-read sequence codec. It reproduces ABC's
// well-known first stage: packing the 4-symbol {A,C,G,T} alphabet into 2
// bits per base, with an exception list for any other byte (N, lowercase,
// ambiguity codes), composed with compress.S2Compressor for the
// entropy-coding second stage.
//
// Wire format (before S2 compression):
//
//	varint(n)            total base count
//	varint(numExceptions)
//	numExceptions * (varint(deltaPosition), byte(originalValue))
//	ceil(n/4) bytes of 2-bit packed bases (exception positions packed as 'A')
type AbcV1Codec struct {
	s2 compress.Codec
}

var _ Codec = AbcV1Codec{}

// NewAbcV1Codec returns the AbcV1 family codec.
func NewAbcV1Codec() AbcV1Codec {
	return AbcV1Codec{s2: compress.NewS2Compressor()}
}

func (AbcV1Codec) Family() format.CodecFamily  { return format.FamilyAbcV1 }
func (AbcV1Codec) Version() format.CodecVersion { return 0 }

var base2bit = [256]byte{}
var bit2base = [4]byte{'A', 'C', 'G', 'T'}

func init() {
	for i := range base2bit {
		base2bit[i] = 0xFF
	}
	base2bit['A'] = 0
	base2bit['C'] = 1
	base2bit['G'] = 2
	base2bit['T'] = 3
}

func (c AbcV1Codec) Encode(raw []byte, _ int) ([]byte, error) {
	n := len(raw)
	packed := make([]byte, 0, binary.MaxVarintLen64*2+n/4+8)
	packed = binary.AppendUvarint(packed, uint64(n))

	var exceptions []byte
	var lastPos int64 = -1
	numExceptions := 0
	for i, b := range raw {
		if base2bit[b] == 0xFF {
			exceptions = varint.AppendZigzag(exceptions, int64(i)-lastPos)
			exceptions = append(exceptions, b)
			lastPos = int64(i)
			numExceptions++
		}
	}

	packed = binary.AppendUvarint(packed, uint64(numExceptions))
	packed = append(packed, exceptions...)

	bits := make([]byte, (n+3)/4)
	for i, b := range raw {
		code := base2bit[b]
		if code == 0xFF {
			code = 0
		}
		bits[i/4] |= code << uint((i%4)*2)
	}
	packed = append(packed, bits...)

	return c.s2.Compress(packed)
}

func (c AbcV1Codec) Decode(compressed []byte, _ int) ([]byte, error) {
	packed, err := c.s2.Decompress(compressed)
	if err != nil {
		return nil, err
	}

	if len(packed) == 0 {
		return nil, nil
	}

	n64, offset := binary.Uvarint(packed)
	if offset <= 0 {
		return nil, errs.Wrap(errs.KindFormat, errs.ErrTruncatedFile, "abcv1: truncated header")
	}
	n := int(n64)

	numExceptions64, n2 := binary.Uvarint(packed[offset:])
	if n2 <= 0 {
		return nil, errs.Wrap(errs.KindFormat, errs.ErrTruncatedFile, "abcv1: truncated exception count")
	}
	offset += n2

	type exception struct {
		pos int
		val byte
	}
	exceptions := make([]exception, 0, numExceptions64)
	var lastPos int64 = -1
	for i := uint64(0); i < numExceptions64; i++ {
		delta, next, ok := varint.ReadZigzag(packed, offset)
		if !ok {
			return nil, errs.Wrap(errs.KindFormat, errs.ErrTruncatedFile, "abcv1: truncated exception delta")
		}
		offset = next
		if offset >= len(packed) {
			return nil, errs.Wrap(errs.KindFormat, errs.ErrTruncatedFile, "abcv1: truncated exception value")
		}
		val := packed[offset]
		offset++

		pos := lastPos + delta
		lastPos = pos
		exceptions = append(exceptions, exception{pos: int(pos), val: val})
	}

	bits := packed[offset:]
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		code := (bits[i/4] >> uint((i%4)*2)) & 0x3
		out[i] = bit2base[code]
	}
	for _, e := range exceptions {
		if e.pos >= 0 && e.pos < n {
			out[e.pos] = e.val
		}
	}

	return out, nil
}
