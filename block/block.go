package block

import (
	"encoding/binary"

	"github.com/fqzip/fqzip/codec"
	"github.com/fqzip/fqzip/errs"
	"github.com/fqzip/fqzip/format"
	"github.com/fqzip/fqzip/internal/hash"
	"github.com/fqzip/fqzip/internal/pool"
	"github.com/fqzip/fqzip/record"
)

// Block is an independently-decodable group of records: a Header plus the
// four compressed streams it describes (§3).
type Block struct {
	Header  Header
	Streams [4][]byte // indexed by format.StreamKind: ids, seq, qual, aux
}

// CodecSelection names the (family, version) tag used for each of a
// block's four streams and the compression level passed to Encode.
type CodecSelection struct {
	IDs, Sequence, Quality, Aux uint8
	Level                       int
}

// Encode produces the on-disk bytes for b: header followed by the four
// compressed streams in order (ids, seq, qual, aux), per §4.4. It stages
// the concatenation in a pooled buffer to avoid a fresh allocation per
// block on the compress hot path.
func (b *Block) Encode() []byte {
	header := b.Header.Encode()

	bb := pool.GetBlockBuffer()
	defer pool.PutBlockBuffer(bb)

	bb.Grow(len(header) + int(b.Header.CompressedSize))
	bb.MustWrite(header)
	for _, s := range b.Streams {
		bb.MustWrite(s)
	}

	out := make([]byte, bb.Len())
	copy(out, bb.Bytes())

	return out
}

// Assemble packs a Chunk into a Block: it projects records into four raw
// byte streams, hashes their uncompressed concatenation, invokes the
// selected codec for each, and fills in offsets/sizes (§4.3).
func Assemble(chunk record.Chunk, blockID uint32, sel CodecSelection, registry *codec.Registry) (*Block, error) {
	n := len(chunk.Records)
	if n == 0 {
		return nil, errs.Wrap(errs.KindUsage, errs.ErrInvalidRange, "block: cannot assemble an empty chunk")
	}

	idsRaw := projectIDs(chunk.Records)
	seqRaw := projectSequence(chunk.Records)
	qualRaw := projectQuality(chunk.Records)

	uniformLength, isUniform := chunk.UniformLength()
	isUniform = isUniform && uniformLength > 0 // uniform_length==0 is the variable-length sentinel (§3)

	var auxRaw []byte
	auxTag := sel.Aux
	if isUniform {
		auxTag = format.Tag(format.FamilyDeltaVarint, format.DeltaVarintSentinelVersion)
	} else {
		auxRaw = projectAux(chunk.Records)
	}

	payloadHash := hash.Sum64(concatRaw(idsRaw, seqRaw, qualRaw, auxRaw))

	rawStreams := [4][]byte{idsRaw, seqRaw, qualRaw, auxRaw}
	tags := [4]uint8{sel.IDs, sel.Sequence, sel.Quality, auxTag}

	blk := &Block{}
	blk.Header = Header{
		BlockID:       blockID,
		ChecksumType:  format.ChecksumXxh64,
		PayloadXxh64:  payloadHash,
		RecordCount:   uint32(n), //nolint:gosec
		UniformLength: uint32(0),
	}
	if isUniform {
		blk.Header.UniformLength = uint32(uniformLength) //nolint:gosec
	}
	copy(blk.Header.Codec[:], tags[:])

	var offset uint64
	for i, raw := range rawStreams {
		c, err := registry.Get(tags[i])
		if err != nil {
			return nil, err
		}

		compressed, err := c.Encode(raw, sel.Level)
		if err != nil {
			return nil, errs.Wrap(errs.KindIO, err, "block: stream encode failed")
		}

		blk.Streams[i] = compressed
		blk.Header.Offsets[i] = offset
		blk.Header.Sizes[i] = uint64(len(compressed))
		offset += uint64(len(compressed))
	}
	blk.Header.CompressedSize = offset
	blk.Header.HeaderSize = format.BlockHeaderSize

	return blk, nil
}

// Disassemble reverses Assemble: it decompresses each stream, optionally
// re-hashes the decompressed concatenation against Header.PayloadXxh64, and
// reconstructs the Chunk's records.
func Disassemble(b *Block, registry *codec.Registry, verifyChecksum bool) (record.Chunk, error) {
	return DisassembleSelective(b, registry, format.StreamMaskAll, verifyChecksum)
}

// DisassembleSelective is Disassemble restricted to the streams named by
// mask (§4.5): streams outside mask are never passed to a codec. A record
// whose Sequence/Quality stream was not selected has a nil slice for that
// field; one whose Ids stream was not selected has a nil ID.
//
// verifyChecksum is honored only when mask is format.StreamMaskAll: the
// payload hash covers the concatenation of all four raw streams, so a
// partial decode cannot reproduce it. Requesting verification with a
// partial mask silently skips verification rather than forcing a full
// decode just to check it.
func DisassembleSelective(b *Block, registry *codec.Registry, mask format.StreamMask, verifyChecksum bool) (record.Chunk, error) {
	n := int(b.Header.RecordCount)
	needLengths := mask.Has(format.StreamSequence) || mask.Has(format.StreamQuality)

	raw := [4][]byte{}
	decode := [4]bool{
		format.StreamIds:      mask.Has(format.StreamIds),
		format.StreamSequence: mask.Has(format.StreamSequence),
		format.StreamQuality:  mask.Has(format.StreamQuality),
		format.StreamAux:      needLengths && b.Header.UniformLength == 0,
	}

	for i, want := range decode {
		if !want {
			continue
		}

		tag := b.Header.Codec[i]
		c, err := registry.Get(tag)
		if err != nil {
			return record.Chunk{}, err
		}

		hint := 0
		if format.StreamKind(i) == format.StreamAux {
			hint = n * 4
		}

		decoded, err := c.Decode(b.Streams[i], hint)
		if err != nil {
			// A codec failing to decode a stream means the compressed bytes
			// are corrupt, not that the underlying storage I/O failed: tag
			// it Format so --skip-corrupted's downgrade applies to it.
			return record.Chunk{}, errs.Wrap(errs.KindFormat, err, "block: stream decode failed")
		}

		raw[i] = decoded
	}

	if verifyChecksum && mask == format.StreamMaskAll {
		got := hash.Sum64(concatRaw(raw[0], raw[1], raw[2], raw[3]))
		if got != b.Header.PayloadXxh64 {
			return record.Chunk{}, errs.Wrap(errs.KindChecksum, errs.ErrChecksumMismatch,
				checksumContext(b.Header.PayloadXxh64, got))
		}
	}

	var lengths []uint32
	if needLengths {
		l, cleanup := pool.GetUint32Slice(n)
		defer cleanup()

		if err := recordLengths(l, raw[format.StreamAux], int(b.Header.UniformLength)); err != nil {
			return record.Chunk{}, err
		}
		lengths = l
	}

	var ids [][]byte
	if decode[format.StreamIds] {
		parsed, err := splitIDs(raw[format.StreamIds], n)
		if err != nil {
			return record.Chunk{}, err
		}
		ids = parsed
	}

	records := make([]record.Record, n)
	seqOffset, qualOffset := 0, 0
	for i := 0; i < n; i++ {
		var r record.Record
		if ids != nil {
			r.ID = ids[i]
		}

		if needLengths {
			l := int(lengths[i])
			if decode[format.StreamSequence] {
				if seqOffset+l > len(raw[format.StreamSequence]) {
					return record.Chunk{}, errs.Wrap(errs.KindFormat, errs.ErrInvalidHeaderSize, "block: sequence stream shorter than declared record lengths")
				}
				r.Sequence = raw[format.StreamSequence][seqOffset : seqOffset+l]
			}
			if decode[format.StreamQuality] {
				if qualOffset+l > len(raw[format.StreamQuality]) {
					return record.Chunk{}, errs.Wrap(errs.KindFormat, errs.ErrInvalidHeaderSize, "block: quality stream shorter than declared record lengths")
				}
				r.Quality = raw[format.StreamQuality][qualOffset : qualOffset+l]
			}
			seqOffset += l
			qualOffset += l
		}

		records[i] = r
	}

	return record.Chunk{Records: records}, nil
}

// Placeholder synthesizes n records for a block the reader could not
// decode under --skip-corrupted (§7): sequence is all 'N', quality is
// qualityChar repeated, both of length fixedLength.
func Placeholder(n int, fixedLength int, qualityChar byte) record.Chunk {
	records := make([]record.Record, n)
	for i := 0; i < n; i++ {
		seq := make([]byte, fixedLength)
		qual := make([]byte, fixedLength)
		for j := range seq {
			seq[j] = 'N'
			qual[j] = qualityChar
		}
		records[i] = record.Record{ID: []byte{}, Sequence: seq, Quality: qual}
	}

	return record.Chunk{Records: records}
}

func concatRaw(ids, seq, qual, aux []byte) []byte {
	out := make([]byte, 0, len(ids)+len(seq)+len(qual)+len(aux))
	out = append(out, ids...)
	out = append(out, seq...)
	out = append(out, qual...)
	out = append(out, aux...)

	return out
}

func projectIDs(records []record.Record) []byte {
	out := make([]byte, 0)
	for _, r := range records {
		out = binary.AppendUvarint(out, uint64(len(r.ID)))
		out = append(out, r.ID...)
	}

	return out
}

func splitIDs(raw []byte, n int) ([][]byte, error) {
	out := make([][]byte, n)
	offset := 0
	for i := 0; i < n; i++ {
		l, adv := binary.Uvarint(raw[offset:])
		if adv <= 0 {
			return nil, errs.Wrap(errs.KindFormat, errs.ErrTruncatedFile, "block: truncated ids stream")
		}
		offset += adv

		if offset+int(l) > len(raw) {
			return nil, errs.Wrap(errs.KindFormat, errs.ErrTruncatedFile, "block: ids stream shorter than declared length")
		}

		out[i] = raw[offset : offset+int(l)]
		offset += int(l)
	}

	return out, nil
}

func projectSequence(records []record.Record) []byte {
	out := make([]byte, 0)
	for _, r := range records {
		out = append(out, r.Sequence...)
	}

	return out
}

func projectQuality(records []record.Record) []byte {
	out := make([]byte, 0)
	for _, r := range records {
		out = append(out, r.Quality...)
	}

	return out
}

func projectAux(records []record.Record) []byte {
	out := make([]byte, 0, len(records)*4)
	for _, r := range records {
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, uint32(r.Len())) //nolint:gosec
		out = append(out, buf...)
	}

	return out
}

// recordLengths fills the caller-provided lengths slice (one entry per
// record) from either the uniform-length header field or the decoded aux
// stream. Callers typically source lengths from pool.GetUint32Slice since
// the values never outlive the block's decode call.
func recordLengths(lengths []uint32, auxRaw []byte, uniformLength int) error {
	n := len(lengths)

	if uniformLength > 0 {
		for i := range lengths {
			lengths[i] = uint32(uniformLength) //nolint:gosec
		}

		return nil
	}

	if len(auxRaw) != n*4 {
		return errs.Wrap(errs.KindFormat, errs.ErrInvalidHeaderSize, "block: aux stream length mismatch")
	}

	for i := 0; i < n; i++ {
		lengths[i] = binary.LittleEndian.Uint32(auxRaw[i*4:])
	}

	return nil
}

func checksumContext(expected, actual uint64) string {
	return "expected=" + uint64ToString(expected) + " actual=" + uint64ToString(actual)
}

func uint64ToString(v uint64) string {
	if v == 0 {
		return "0"
	}

	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}

	return string(buf[i:])
}
