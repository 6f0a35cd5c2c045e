package archive

import (
	"io"
	"os"

	"github.com/fqzip/fqzip/block"
	"github.com/fqzip/fqzip/codec"
	"github.com/fqzip/fqzip/endian"
	"github.com/fqzip/fqzip/errs"
	"github.com/fqzip/fqzip/format"
	"github.com/fqzip/fqzip/internal/hash"
	"github.com/fqzip/fqzip/record"
	"github.com/fqzip/fqzip/reorder"
)

// VerifyMode selects how thoroughly Reader.Verify checks an archive (§4.5).
type VerifyMode uint8

const (
	// VerifyQuick checks only the trailing footer magic, already validated
	// at Open; calling Verify with this mode re-checks it explicitly.
	VerifyQuick VerifyMode = iota
	// VerifyGlobal streams the file from byte 0 through indexOffset plus
	// the index bytes into xxh64 and compares against the footer checksum.
	VerifyGlobal
	// VerifyPerBlock decompresses every block and re-hashes its payload
	// against the block header's payload checksum.
	VerifyPerBlock
)

// Reader opens an archive for random-access and sequential decoding (C6).
// It loads the global header, footer, and full block index eagerly on
// Open; the reorder map, which can be large, is loaded lazily on first
// request.
type Reader struct {
	path string
	file *os.File
	size int64

	registry *codec.Registry

	Header GlobalHeader
	footer Footer
	index  Index

	// VersionWarning is non-empty when the archive's minor version is
	// newer than this reader supports (§4.5 forward compatibility); the
	// archive still loads normally.
	VersionWarning string

	reorderMap *reorder.Map
}

// Open validates an archive's magic, version, and footer, loads its global
// header and block index into memory, and returns a ready Reader. registry
// resolves the codec for every stream tag found in the file; pass
// codec.Default for the built-in set.
func Open(path string, registry *codec.Registry) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(errs.KindIO, err, "archive: open "+path)
	}

	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, errs.Wrap(errs.KindIO, err, "archive: stat "+path)
	}

	r := &Reader{path: path, file: f, size: st.Size(), registry: registry}

	if err := r.readPrefixAndHeader(); err != nil {
		_ = f.Close()
		return nil, err
	}

	if err := r.readFooter(); err != nil {
		_ = f.Close()
		return nil, err
	}

	if err := r.readIndex(); err != nil {
		_ = f.Close()
		return nil, err
	}

	return r, nil
}

func (r *Reader) readPrefixAndHeader() error {
	if r.size < int64(format.PrefixSize) {
		return errs.Wrap(errs.KindFormat, errs.ErrTruncatedFile, "archive: file shorter than magic+version prefix")
	}

	prefix := make([]byte, format.PrefixSize)
	if err := r.readAt(prefix, 0); err != nil {
		return err
	}

	var magic [format.MagicSize]byte
	copy(magic[:], prefix[:format.MagicSize])
	if magic != format.Magic {
		return errs.Wrap(errs.KindFormat, errs.ErrInvalidMagic, "archive: "+r.path)
	}

	major, minor := format.SplitVersionByte(prefix[format.MagicSize])
	if major != format.CurrentVersionMajor {
		return errs.Wrap(errs.KindFormat, errs.ErrUnsupportedMajorVersion, "archive: "+r.path)
	}
	if minor > format.CurrentVersionMinor {
		r.VersionWarning = "archive minor version is newer than this reader supports; decoding may be incomplete"
	}

	// Peek the header's self-declared size, then read exactly that many
	// bytes starting at the size field.
	sizeField := make([]byte, 4)
	if err := r.readAt(sizeField, int64(format.PrefixSize)); err != nil {
		return err
	}
	headerSize := endian.GetLittleEndianEngine().Uint32(sizeField)

	headerBuf := make([]byte, headerSize)
	if err := r.readAt(headerBuf, int64(format.PrefixSize)); err != nil {
		return err
	}

	h, err := DecodeGlobalHeader(headerBuf)
	if err != nil {
		return err
	}
	r.Header = *h

	return nil
}

func (r *Reader) readFooter() error {
	if r.size < int64(format.FooterSize) {
		return errs.Wrap(errs.KindFormat, errs.ErrTruncatedFile, "archive: file shorter than footer")
	}

	buf := make([]byte, format.FooterSize)
	if err := r.readAt(buf, r.size-int64(format.FooterSize)); err != nil {
		return err
	}

	f, err := DecodeFooter(buf)
	if err != nil {
		return err
	}
	r.footer = *f

	return nil
}

func (r *Reader) readIndex() error {
	if r.footer.IndexOffset > uint64(r.size) {
		return errs.Wrap(errs.KindFormat, errs.ErrInvalidIndexOffsets, "archive: index offset past end of file")
	}

	indexBytes := r.size - int64(format.FooterSize) - int64(r.footer.IndexOffset)
	if indexBytes < IndexHeaderSize {
		return errs.Wrap(errs.KindFormat, errs.ErrInvalidIndexOffsets, "archive: truncated block index")
	}

	buf := make([]byte, indexBytes)
	if err := r.readAt(buf, int64(r.footer.IndexOffset)); err != nil {
		return err
	}

	ix, err := DecodeIndex(buf)
	if err != nil {
		return err
	}
	r.index = *ix

	return nil
}

func (r *Reader) readAt(buf []byte, offset int64) error {
	n, err := r.file.ReadAt(buf, offset)
	if err != nil && !(err == io.EOF && n == len(buf)) {
		return errs.Wrap(errs.KindIO, err, "archive: short read at offset")
	}

	return nil
}

// Close releases the reader's open file handle.
func (r *Reader) Close() error {
	return r.file.Close()
}

// NumBlocks returns the number of blocks in the archive.
func (r *Reader) NumBlocks() int { return len(r.index.Entries) }

// TotalRecordCount returns the archive's declared total record count.
func (r *Reader) TotalRecordCount() uint64 { return r.Header.TotalRecordCount }

// ReorderMap lazily loads and caches the archive's reorder map. It returns
// an InvalidState error, per §4.5, if the archive has no reorder map.
func (r *Reader) ReorderMap() (*reorder.Map, error) {
	if r.reorderMap != nil {
		return r.reorderMap, nil
	}

	if !r.Header.Flags.HasReorderMap() || r.footer.ReorderMapOffset == 0 {
		return nil, errs.Wrap(errs.KindInvalidState, errs.ErrReorderMapAbsent, "")
	}

	sub := make([]byte, 16)
	if err := r.readAt(sub, int64(r.footer.ReorderMapOffset)); err != nil {
		return nil, err
	}

	engine := endian.GetLittleEndianEngine()
	totalReads := int(engine.Uint32(sub[4:8]))
	forwardSize := int(engine.Uint32(sub[8:12]))
	reverseSize := int(engine.Uint32(sub[12:16]))

	arrays := make([]byte, forwardSize+reverseSize)
	if err := r.readAt(arrays, int64(r.footer.ReorderMapOffset)+16); err != nil {
		return nil, err
	}

	m, err := reorder.Decode(arrays[:forwardSize], arrays[forwardSize:], totalReads)
	if err != nil {
		return nil, err
	}

	r.reorderMap = m

	return m, nil
}

// readBlockAt loads and parses the full on-disk block (header + streams) at
// index entry i.
func (r *Reader) readBlockAt(entryIdx int) (*block.Block, error) {
	entry := r.index.Entries[entryIdx]

	buf := make([]byte, entry.CompressedSize)
	if err := r.readAt(buf, int64(entry.Offset)); err != nil {
		return nil, err
	}

	if uint64(len(buf)) < format.BlockHeaderSize {
		return nil, errs.Wrap(errs.KindFormat, errs.ErrTruncatedFile, "archive: truncated block header")
	}

	h, err := block.DecodeHeader(buf[:format.BlockHeaderSize])
	if err != nil {
		return nil, err
	}

	payload := buf[format.BlockHeaderSize:]
	blk := &block.Block{Header: *h}
	for i := 0; i < format.NumStreams; i++ {
		start := h.Offsets[i]
		end := start + h.Sizes[i]
		if end > uint64(len(payload)) {
			return nil, errs.Wrap(errs.KindFormat, errs.ErrTruncatedFile, "archive: block stream extends past payload")
		}
		blk.Streams[i] = payload[start:end]
	}

	return blk, nil
}

// IndexEntryAt returns the block index entry at entryIdx, for callers that
// need a block's record count or archive id range without decoding it
// (e.g. --skip-corrupted placeholder synthesis).
func (r *Reader) IndexEntryAt(entryIdx int) (IndexEntry, error) {
	if entryIdx < 0 || entryIdx >= len(r.index.Entries) {
		return IndexEntry{}, errs.Wrap(errs.KindUsage, errs.ErrInvalidRange, "archive: block index out of range")
	}

	return r.index.Entries[entryIdx], nil
}

// BlockHeader reads and parses just the fixed-size block header at
// entryIdx, without touching its stream payload. It is useful when the
// payload is suspected corrupt but the header (e.g. uniform_length) may
// still be intact.
func (r *Reader) BlockHeader(entryIdx int) (*block.Header, error) {
	entry, err := r.IndexEntryAt(entryIdx)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, format.BlockHeaderSize)
	if err := r.readAt(buf, int64(entry.Offset)); err != nil {
		return nil, err
	}

	return block.DecodeHeader(buf)
}

// ReadBlock decodes block entryIdx's selected streams into a Chunk.
// verifyChecksum is honored only when mask is format.StreamMaskAll, per
// block.DisassembleSelective.
func (r *Reader) ReadBlock(entryIdx int, mask format.StreamMask, verifyChecksum bool) (record.Chunk, error) {
	if entryIdx < 0 || entryIdx >= len(r.index.Entries) {
		return record.Chunk{}, errs.Wrap(errs.KindUsage, errs.ErrInvalidRange, "archive: block index out of range")
	}

	blk, err := r.readBlockAt(entryIdx)
	if err != nil {
		return record.Chunk{}, err
	}

	return block.DisassembleSelective(blk, r.registry, mask, verifyChecksum)
}

// ReadRecordRange returns records [start, end] (1-based, inclusive) in
// archive order (§4.5, §8 property 6).
func (r *Reader) ReadRecordRange(start, end uint64, mask format.StreamMask, verifyChecksum bool) (record.Chunk, error) {
	if start == 0 || end < start {
		return record.Chunk{}, errs.Wrap(errs.KindUsage, errs.ErrInvalidRange, "archive: empty or invalid record range")
	}

	startIdx, endIdx, err := r.index.RangeBlocks(start, end)
	if err != nil {
		return record.Chunk{}, err
	}

	var out []record.Record
	for i := startIdx; i <= endIdx; i++ {
		entry := r.index.Entries[i]
		chunk, err := r.ReadBlock(i, mask, verifyChecksum)
		if err != nil {
			return record.Chunk{}, err
		}

		lo := uint64(0)
		if start > entry.ArchiveIDStart {
			lo = start - entry.ArchiveIDStart
		}
		hi := entry.RecordCount
		if blockEnd := entry.ArchiveIDStart + entry.RecordCount - 1; end < blockEnd {
			hi = end - entry.ArchiveIDStart + 1
		}

		out = append(out, chunk.Records[lo:hi]...)
	}

	return record.Chunk{Records: out}, nil
}

// ReadOriginalOrder reads every record in the archive and reorders it back
// to original input order using the reorder map (§4.5). It fails with
// InvalidState if the archive carries no reorder map.
func (r *Reader) ReadOriginalOrder(mask format.StreamMask, verifyChecksum bool) (record.Chunk, error) {
	m, err := r.ReorderMap()
	if err != nil {
		return record.Chunk{}, err
	}

	n := r.NumBlocks()
	total := int(r.index.TotalRecords())
	if total != m.Len() {
		return record.Chunk{}, errs.Wrap(errs.KindFormat, errs.ErrInvalidIndexOffsets, "archive: reorder map length does not match total record count")
	}

	archiveOrder := make([]record.Record, 0, total)
	for i := 0; i < n; i++ {
		chunk, err := r.ReadBlock(i, mask, verifyChecksum)
		if err != nil {
			return record.Chunk{}, err
		}
		archiveOrder = append(archiveOrder, chunk.Records...)
	}

	original := make([]record.Record, total)
	for archivePos, origPos := range m.Reverse {
		original[origPos-1] = archiveOrder[archivePos]
	}

	return record.Chunk{Records: original}, nil
}

// Verify checks archive integrity at the level named by mode (§4.5, §8
// scenario 6).
func (r *Reader) Verify(mode VerifyMode) error {
	switch mode {
	case VerifyQuick:
		buf := make([]byte, format.FooterSize)
		if err := r.readAt(buf, r.size-int64(format.FooterSize)); err != nil {
			return err
		}
		_, err := DecodeFooter(buf)
		return err

	case VerifyGlobal:
		return r.verifyGlobal()

	case VerifyPerBlock:
		return r.verifyPerBlock()

	default:
		return errs.Wrap(errs.KindUsage, errs.ErrInvalidFlagCombination, "archive: unknown verify mode")
	}
}

func (r *Reader) verifyGlobal() error {
	indexEnd := r.footer.IndexOffset + uint64(r.index.Size())

	st := hash.NewState()
	const chunkSize = 1 << 20
	buf := make([]byte, chunkSize)

	remaining := int64(indexEnd)
	offset := int64(0)
	for remaining > 0 {
		n := chunkSize
		if int64(n) > remaining {
			n = int(remaining)
		}

		if err := r.readAt(buf[:n], offset); err != nil {
			return err
		}

		st.Write(buf[:n])
		offset += int64(n)
		remaining -= int64(n)
	}

	if st.Sum64() != r.footer.GlobalChecksum {
		return errs.Wrap(errs.KindChecksum, errs.ErrChecksumMismatch, "archive: global checksum mismatch")
	}

	return nil
}

func (r *Reader) verifyPerBlock() error {
	for i := range r.index.Entries {
		if _, err := r.ReadBlock(i, format.StreamMaskAll, true); err != nil {
			return err
		}
	}

	return nil
}

// FindRecord is a thin wrapper over the loaded index's binary search,
// exposed for callers that need the owning block without reading it.
func (r *Reader) FindRecord(archiveID uint64) (IndexEntry, error) {
	i, err := r.index.FindBlock(archiveID)
	if err != nil {
		return IndexEntry{}, err
	}

	return r.index.Entries[i], nil
}
