package archive

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/fqzip/fqzip/block"
	"github.com/fqzip/fqzip/errs"
	"github.com/fqzip/fqzip/format"
	"github.com/fqzip/fqzip/internal/hash"
	"github.com/fqzip/fqzip/internal/options"
	"github.com/fqzip/fqzip/reorder"
)

// writerState is the writer's lifecycle state machine (§9 design notes):
// Fresh -> HeaderWritten -> Blocks* -> (ReorderMap?) -> Finalized | Aborted.
// Writes are forbidden in the two terminal states.
type writerState uint8

const (
	stateFresh writerState = iota
	stateHeaderWritten
	stateFinalized
	stateAborted
)

// Writer produces the archive byte layout described in §6.1, writing to a
// temporary path and renaming to the final path only on successful
// Finalize (§4.4): atomic replace semantics, with the temp file removed on
// cancellation, fatal error, or process termination signal.
type Writer struct {
	mu sync.Mutex

	finalPath string
	tempPath  string
	file      *os.File

	state  writerState
	offset uint64
	hasher *hash.State

	header GlobalHeader
	index  Index

	reorderMap       *reorder.Map
	reorderMapOffset uint64

	syncOnFinalize bool
}

// WithSync controls whether Finalize calls fsync before renaming the temp
// file into place. Enabled by default; callers that can tolerate losing an
// in-progress archive on a crash (e.g. scratch/test runs) can disable it to
// skip the fsync cost.
func WithSync(enabled bool) options.Option[*Writer] {
	return options.NoError(func(w *Writer) {
		w.syncOnFinalize = enabled
	})
}

// NewWriter creates a Writer that will atomically replace finalPath on
// Finalize. The temp file lives alongside finalPath so the final rename is
// same-filesystem.
func NewWriter(finalPath string, opts ...options.Option[*Writer]) (*Writer, error) {
	dir := filepath.Dir(finalPath)
	f, err := os.CreateTemp(dir, filepath.Base(finalPath)+".tmp-*")
	if err != nil {
		return nil, errs.Wrap(errs.KindIO, err, "archive: create temp file")
	}

	w := &Writer{
		finalPath:      finalPath,
		tempPath:       f.Name(),
		file:           f,
		hasher:         hash.NewState(),
		syncOnFinalize: true,
	}

	if err := options.Apply(w, opts...); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return nil, err
	}

	globalWriterRegistry.register(w)

	return w, nil
}

// writeMagicAndVersion writes the 8-byte magic and version byte (§4.4 step
// 1). It is unexported and called only by WriteHeader.
func (w *Writer) writeMagicAndVersion() error {
	buf := make([]byte, 0, format.PrefixSize)
	buf = append(buf, format.Magic[:]...)
	buf = append(buf, format.VersionByte(format.CurrentVersionMajor, format.CurrentVersionMinor))

	return w.writeRaw(buf)
}

// WriteHeader writes the magic, version, and global header (§4.4 steps 1-2).
// It fails if the header was already written.
func (w *Writer) WriteHeader(h GlobalHeader) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != stateFresh {
		return errs.Wrap(errs.KindInvalidState, errs.ErrHeaderAlreadyWritten, "")
	}

	if err := w.writeMagicAndVersion(); err != nil {
		return err
	}

	if h.TotalRecordCount == 0 {
		h.TotalRecordCount = w.header.TotalRecordCount
	}

	encoded := h.Encode()
	if err := w.writeRaw(encoded); err != nil {
		return err
	}

	w.header = h
	w.state = stateHeaderWritten

	return nil
}

// WriteBlock appends blk in block_id order and records a new index entry
// (§4.4 step 3). archiveIDStart is the 1-based archive id of the block's
// first record.
func (w *Writer) WriteBlock(blk *block.Block, archiveIDStart uint64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != stateHeaderWritten {
		return errs.Wrap(errs.KindInvalidState, errs.ErrWriteBeforeHeader, "")
	}

	startOffset := w.offset
	encoded := blk.Encode()
	if err := w.writeRaw(encoded); err != nil {
		return err
	}

	w.index.Entries = append(w.index.Entries, IndexEntry{
		Offset:         startOffset,
		CompressedSize: uint64(len(encoded)),
		ArchiveIDStart: archiveIDStart,
		RecordCount:    uint64(blk.Header.RecordCount),
	})

	return nil
}

// SetTotalRecordCount mutates the global header's total_record_count before
// it is serialized. WriteHeader encodes and flushes the header immediately,
// so this must be called before WriteHeader: a caller that does not know
// the record count in advance should pass a placeholder to WriteHeader and
// count while streaming instead of relying on a later fixup here.
func (w *Writer) SetTotalRecordCount(n uint64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != stateFresh {
		return errs.Wrap(errs.KindInvalidState, errs.ErrTotalRecordCountFrozen, "")
	}

	w.header.TotalRecordCount = n

	return nil
}

// WriteReorderMap writes the optional reorder map region (§4.4 step 4). It
// must be called after all blocks and before Finalize.
func (w *Writer) WriteReorderMap(m *reorder.Map) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != stateHeaderWritten {
		return errs.Wrap(errs.KindInvalidState, errs.ErrWriteBeforeHeader, "")
	}

	w.reorderMapOffset = w.offset

	forward, reverse := m.Encode()
	sub := make([]byte, 0, 4*4+len(forward)+len(reverse))
	sub = appendU32(sub, reorder.Version)
	sub = appendU32(sub, uint32(m.Len())) //nolint:gosec
	sub = appendU32(sub, uint32(len(forward))) //nolint:gosec
	sub = appendU32(sub, uint32(len(reverse))) //nolint:gosec
	sub = append(sub, forward...)
	sub = append(sub, reverse...)

	if err := w.writeRaw(sub); err != nil {
		return err
	}

	w.reorderMap = m

	return nil
}

// Finalize writes the block index and footer and atomically renames the
// temp file to the final path (§4.4 steps 5-6). After Finalize the writer
// is terminal and further writes fail.
func (w *Writer) Finalize() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state == stateFinalized {
		return errs.Wrap(errs.KindInvalidState, errs.ErrAlreadyFinalized, "")
	}
	if w.state == stateAborted {
		return errs.Wrap(errs.KindInvalidState, errs.ErrAlreadyAborted, "")
	}

	indexOffset := w.offset
	if err := w.writeRaw(w.index.Encode()); err != nil {
		return err
	}

	footer := Footer{
		IndexOffset:      indexOffset,
		ReorderMapOffset: w.reorderMapOffset,
		GlobalChecksum:   w.hasher.Sum64(),
	}

	if _, err := w.file.Write(footer.Encode()); err != nil {
		return errs.Wrap(errs.KindIO, err, "archive: write footer")
	}

	if w.syncOnFinalize {
		if err := w.file.Sync(); err != nil {
			return errs.Wrap(errs.KindIO, err, "archive: sync archive file")
		}
	}
	if err := w.file.Close(); err != nil {
		return errs.Wrap(errs.KindIO, err, "archive: close archive file")
	}

	if err := os.Rename(w.tempPath, w.finalPath); err != nil {
		return errs.Wrap(errs.KindIO, err, "archive: rename temp file into place")
	}

	w.state = stateFinalized
	globalWriterRegistry.unregister(w)

	return nil
}

// Abort removes the temp file without renaming it into place, used on
// cancellation or fatal error (§4.4, §4.6).
func (w *Writer) Abort() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.abortLocked()
}

func (w *Writer) abortLocked() error {
	if w.state == stateFinalized || w.state == stateAborted {
		return nil
	}

	w.state = stateAborted
	_ = w.file.Close()
	err := os.Remove(w.tempPath)
	globalWriterRegistry.unregister(w)

	if err != nil && !os.IsNotExist(err) {
		return errs.Wrap(errs.KindIO, err, "archive: remove temp file")
	}

	return nil
}

// abortForSignal is invoked by the process-wide signal handler (archive
// package's writerRegistry) when SIGINT/SIGTERM arrives mid-write.
func (w *Writer) abortForSignal() {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.abortLocked()
}

func (w *Writer) writeRaw(p []byte) error {
	n, err := w.file.Write(p)
	if err != nil {
		return errs.Wrap(errs.KindIO, err, "archive: short write at offset")
	}

	w.hasher.Write(p[:n])
	w.offset += uint64(n)

	return nil
}

func appendU32(buf []byte, v uint32) []byte {
	return append(buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}
