// Package archive implements the archive container format (C5 writer, C6
// reader): the file-level magic/version, global header, block index,
// footer, optional reorder map, and the atomic-replace write path (§4.4,
// §4.5, §6.1).
package archive

import (
	"github.com/fqzip/fqzip/endian"
	"github.com/fqzip/fqzip/errs"
	"github.com/fqzip/fqzip/format"
)

// GlobalHeader is the archive's singleton global header (§4.4 step 2,
// §6.1). It is self-describing: HeaderSize is the byte length of the
// encoded header including the 4-byte size field itself, so a reader can
// skip straight to the first block without parsing every field.
type GlobalHeader struct {
	HeaderSize             uint32
	Flags                  format.GlobalFlags
	GeneralCompressionAlgo uint8
	ChecksumType           format.ChecksumType
	TotalRecordCount       uint64
	OriginalFilename       string
	CreatedAtUnix          uint64
}

// Encode serializes h, computing and filling HeaderSize.
func (h *GlobalHeader) Encode() []byte {
	engine := endian.GetLittleEndianEngine()

	nameBytes := []byte(h.OriginalFilename)
	body := make([]byte, 0, 4+8+1+1+8+4+len(nameBytes)+8)

	body = engine.AppendUint64(body, uint64(h.Flags))
	body = append(body, h.GeneralCompressionAlgo)
	body = append(body, byte(h.ChecksumType))
	body = engine.AppendUint64(body, h.TotalRecordCount)
	body = engine.AppendUint32(body, uint32(len(nameBytes))) //nolint:gosec
	body = append(body, nameBytes...)
	body = engine.AppendUint64(body, h.CreatedAtUnix)

	h.HeaderSize = uint32(4 + len(body)) //nolint:gosec

	out := make([]byte, 0, h.HeaderSize)
	out = engine.AppendUint32(out, h.HeaderSize)
	out = append(out, body...)

	return out
}

// DecodeGlobalHeader parses a global header from the start of data, which
// must contain at least the declared HeaderSize bytes.
func DecodeGlobalHeader(data []byte) (*GlobalHeader, error) {
	if len(data) < 4 {
		return nil, errs.Wrap(errs.KindFormat, errs.ErrInvalidHeaderSize, "archive: truncated global header size field")
	}

	engine := endian.GetLittleEndianEngine()
	headerSize := engine.Uint32(data[0:4])
	if int(headerSize) > len(data) || headerSize < 4+8+1+1+8+4+8 {
		return nil, errs.Wrap(errs.KindFormat, errs.ErrInvalidHeaderSize, "archive: invalid global header size")
	}

	h := &GlobalHeader{HeaderSize: headerSize}
	off := 4

	h.Flags = format.GlobalFlags(engine.Uint64(data[off : off+8]))
	off += 8

	h.GeneralCompressionAlgo = data[off]
	off++

	h.ChecksumType = format.ChecksumType(data[off])
	off++

	h.TotalRecordCount = engine.Uint64(data[off : off+8])
	off += 8

	nameLen := int(engine.Uint32(data[off : off+4]))
	off += 4

	if off+nameLen+8 > int(headerSize) {
		return nil, errs.Wrap(errs.KindFormat, errs.ErrInvalidHeaderSize, "archive: global header filename overruns declared size")
	}

	h.OriginalFilename = string(data[off : off+nameLen])
	off += nameLen

	h.CreatedAtUnix = engine.Uint64(data[off : off+8])

	return h, nil
}
