package archive

import (
	"sort"

	"github.com/fqzip/fqzip/endian"
	"github.com/fqzip/fqzip/errs"
	"github.com/fqzip/fqzip/internal/pool"
)

// IndexEntry is one fixed-width block index record (§4.4 step 5): the
// block's absolute file offset, its compressed size, the 1-based archive
// id of its first record, and its record count.
type IndexEntry struct {
	Offset         uint64
	CompressedSize uint64
	ArchiveIDStart uint64
	RecordCount    uint64
}

// IndexEntrySize is the fixed on-disk size of one IndexEntry.
const IndexEntrySize = 8 * 4

// Encode serializes e.
func (e IndexEntry) Encode() []byte {
	engine := endian.GetLittleEndianEngine()
	buf := make([]byte, 0, IndexEntrySize)
	buf = engine.AppendUint64(buf, e.Offset)
	buf = engine.AppendUint64(buf, e.CompressedSize)
	buf = engine.AppendUint64(buf, e.ArchiveIDStart)
	buf = engine.AppendUint64(buf, e.RecordCount)

	return buf
}

// DecodeIndexEntry parses one fixed-width entry from data.
func DecodeIndexEntry(data []byte) IndexEntry {
	engine := endian.GetLittleEndianEngine()
	return IndexEntry{
		Offset:         engine.Uint64(data[0:8]),
		CompressedSize: engine.Uint64(data[8:16]),
		ArchiveIDStart: engine.Uint64(data[16:24]),
		RecordCount:    engine.Uint64(data[24:32]),
	}
}

// Index is the archive's in-memory block index, loaded fully from disk on
// open (§4.5).
type Index struct {
	Entries []IndexEntry
}

// IndexHeaderSize is the fixed size of the block index's own sub-header
// (headerSize, entrySize, numBlocks), each a u32 (§4.4 step 5).
const IndexHeaderSize = 4 * 3

// Encode serializes the index's sub-header followed by every entry, using
// a pooled buffer since a large archive's index can run to megabytes.
func (ix *Index) Encode() []byte {
	engine := endian.GetLittleEndianEngine()
	size := IndexHeaderSize + len(ix.Entries)*IndexEntrySize

	bb := pool.GetIndexBuffer()
	defer pool.PutIndexBuffer(bb)
	bb.Grow(size)

	bb.B = engine.AppendUint32(bb.B, IndexHeaderSize)
	bb.B = engine.AppendUint32(bb.B, IndexEntrySize)
	bb.B = engine.AppendUint32(bb.B, uint32(len(ix.Entries))) //nolint:gosec

	for _, e := range ix.Entries {
		bb.MustWrite(e.Encode())
	}

	out := make([]byte, bb.Len())
	copy(out, bb.Bytes())

	return out
}

// DecodeIndex parses an index from data (its sub-header plus every entry).
func DecodeIndex(data []byte) (*Index, error) {
	if len(data) < IndexHeaderSize {
		return nil, errs.Wrap(errs.KindFormat, errs.ErrInvalidIndexOffsets, "archive: truncated index header")
	}

	engine := endian.GetLittleEndianEngine()
	headerSize := int(engine.Uint32(data[0:4]))
	entrySize := int(engine.Uint32(data[4:8]))
	numBlocks := int(engine.Uint32(data[8:12]))

	if entrySize != IndexEntrySize {
		return nil, errs.Wrap(errs.KindFormat, errs.ErrInvalidIndexOffsets, "archive: unsupported index entry size")
	}

	need := headerSize + numBlocks*entrySize
	if len(data) < need {
		return nil, errs.Wrap(errs.KindFormat, errs.ErrInvalidIndexOffsets, "archive: truncated index entries")
	}

	entries := make([]IndexEntry, numBlocks)
	off := headerSize
	for i := 0; i < numBlocks; i++ {
		entries[i] = DecodeIndexEntry(data[off : off+entrySize])
		off += entrySize
	}

	return &Index{Entries: entries}, nil
}

// Size returns the encoded byte length of the index.
func (ix *Index) Size() int {
	return IndexHeaderSize + len(ix.Entries)*IndexEntrySize
}

// FindBlock binary searches for the block containing 1-based archive
// record id r (§4.5), returning its index within Entries.
func (ix *Index) FindBlock(r uint64) (int, error) {
	i := sort.Search(len(ix.Entries), func(i int) bool {
		e := ix.Entries[i]
		return e.ArchiveIDStart+e.RecordCount > r
	})

	if i >= len(ix.Entries) || r < ix.Entries[i].ArchiveIDStart {
		return 0, errs.Wrap(errs.KindUsage, errs.ErrInvalidRange, "archive: record id out of range")
	}

	return i, nil
}

// RangeBlocks returns the inclusive range [startIdx, endIdx] of block
// indices covering the 1-based archive record range [start, end] (§4.5).
func (ix *Index) RangeBlocks(start, end uint64) (startIdx, endIdx int, err error) {
	startIdx, err = ix.FindBlock(start)
	if err != nil {
		return 0, 0, err
	}

	endIdx, err = ix.FindBlock(end)
	if err != nil {
		return 0, 0, err
	}

	return startIdx, endIdx, nil
}

// TotalRecords returns the sum of RecordCount across every entry.
func (ix *Index) TotalRecords() uint64 {
	var total uint64
	for _, e := range ix.Entries {
		total += e.RecordCount
	}

	return total
}
