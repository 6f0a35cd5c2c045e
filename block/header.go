// Package block implements the block assembler (C4): packing a Chunk of
// records into the four independent streams a Block carries, and the
// inverse operation, including per-block checksum verification and
// skip-corrupted placeholder synthesis (§4.3, §7).
package block

import (
	"github.com/fqzip/fqzip/endian"
	"github.com/fqzip/fqzip/errs"
	"github.com/fqzip/fqzip/format"
)

// Header is the fixed-size block header prefix described in §6.3. The
// payload (four compressed streams, in order ids/seq/qual/aux) immediately
// follows it in the archive.
type Header struct {
	HeaderSize     uint32
	BlockID        uint32
	ChecksumType   format.ChecksumType
	Codec          [4]uint8
	PayloadXxh64   uint64
	RecordCount    uint32
	UniformLength  uint32
	CompressedSize uint64
	Offsets        [4]uint64
	Sizes          [4]uint64
}

// Encode serializes h into its on-disk little-endian layout (§6.3).
func (h *Header) Encode() []byte {
	engine := endian.GetLittleEndianEngine()
	buf := make([]byte, 0, format.BlockHeaderSize)

	buf = engine.AppendUint32(buf, h.HeaderSize)
	buf = engine.AppendUint32(buf, h.BlockID)
	buf = append(buf, byte(h.ChecksumType))
	buf = append(buf, h.Codec[:]...)
	buf = append(buf, 0)             // reserved u8
	buf = engine.AppendUint16(buf, 0) // reserved u16
	buf = engine.AppendUint64(buf, h.PayloadXxh64)
	buf = engine.AppendUint32(buf, h.RecordCount)
	buf = engine.AppendUint32(buf, h.UniformLength)
	buf = engine.AppendUint64(buf, h.CompressedSize)
	for _, o := range h.Offsets {
		buf = engine.AppendUint64(buf, o)
	}
	for _, s := range h.Sizes {
		buf = engine.AppendUint64(buf, s)
	}

	return buf
}

// DecodeHeader parses a block header from data, which must contain at
// least format.BlockHeaderSize bytes.
func DecodeHeader(data []byte) (*Header, error) {
	if len(data) < format.BlockHeaderSize {
		return nil, errs.Wrap(errs.KindFormat, errs.ErrInvalidHeaderSize, "block: header shorter than fixed prefix")
	}

	engine := endian.GetLittleEndianEngine()
	h := &Header{}

	h.HeaderSize = engine.Uint32(data[0:4])
	h.BlockID = engine.Uint32(data[4:8])
	h.ChecksumType = format.ChecksumType(data[8])
	copy(h.Codec[:], data[9:13])
	// data[13] reserved u8, data[14:16] reserved u16
	h.PayloadXxh64 = engine.Uint64(data[16:24])
	h.RecordCount = engine.Uint32(data[24:28])
	h.UniformLength = engine.Uint32(data[28:32])
	h.CompressedSize = engine.Uint64(data[32:40])

	off := 40
	for i := range h.Offsets {
		h.Offsets[i] = engine.Uint64(data[off : off+8])
		off += 8
	}
	for i := range h.Sizes {
		h.Sizes[i] = engine.Uint64(data[off : off+8])
		off += 8
	}

	if h.RecordCount == 0 {
		return nil, errs.Wrap(errs.KindFormat, errs.ErrInvalidHeaderSize, "block: record_count must be >= 1")
	}

	return h, nil
}
