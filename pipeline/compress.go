package pipeline

import (
	"context"
	"errors"
	"io"

	"github.com/fqzip/fqzip/archive"
	"github.com/fqzip/fqzip/block"
	"github.com/fqzip/fqzip/codec"
	"github.com/fqzip/fqzip/format"
	"github.com/fqzip/fqzip/record"
)

// ChunkSource supplies successive Chunks to the compression pipeline (S1),
// e.g. one per fixed-size group of records read from a FASTQ parser. It
// returns io.EOF once no further chunks remain.
type ChunkSource func() (record.Chunk, error)

// CompressConfig configures a compression run.
type CompressConfig struct {
	Engine Config
	// Selection names the codec tag and compression level applied to
	// every block this run produces.
	Selection block.CodecSelection
	// Registry resolves Selection's tags to concrete codecs. Nil uses
	// codec.Default.
	Registry *codec.Registry
	// StartArchiveID is the 1-based archive id assigned to this run's
	// first record. Zero means 1. Set to a chunk planner Partition's
	// ArchiveIDStart so block_id/archive_id numbering continues
	// monotonically across partitions of the same archive (§5).
	StartArchiveID uint64
	// StartBlockID is the block_id assigned to this run's first block.
	// Set to a chunk planner Partition's BlockIDStart for the same
	// reason.
	StartBlockID uint32
}

type compressUnit struct {
	chunk          record.Chunk
	archiveIDStart uint64
	blockID        uint32
}

type compressedBlock struct {
	blk            *block.Block
	archiveIDStart uint64
}

// Compress reads Chunks from source, compresses each into a Block (S2),
// and writes them to w in chunk order (S3) (§4.6). On error the caller is
// responsible for calling w.Abort(); Compress itself never finalizes or
// aborts w, since a caller may want to write a reorder map first.
func Compress(ctx context.Context, w *archive.Writer, source ChunkSource, cfg CompressConfig) (Snapshot, error) {
	registry := cfg.Registry
	if registry == nil {
		registry = codec.Default
	}

	nextArchiveID := cfg.StartArchiveID
	if nextArchiveID == 0 {
		nextArchiveID = 1
	}
	nextBlockID := cfg.StartBlockID

	var nextIndex uint64

	src := func(context.Context) (Item[compressUnit], bool, error) {
		chunk, err := source()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return Item[compressUnit]{}, false, nil
			}
			return Item[compressUnit]{}, false, err
		}

		idx := nextIndex
		nextIndex++
		archiveIDStart := nextArchiveID
		nextArchiveID += uint64(chunk.Len())
		blockID := nextBlockID
		nextBlockID++

		return Item[compressUnit]{
			Index: idx,
			Value: compressUnit{chunk: chunk, archiveIDStart: archiveIDStart, blockID: blockID},
		}, true, nil
	}

	worker := func(_ context.Context, item Item[compressUnit]) (compressedBlock, error) {
		blk, err := block.Assemble(item.Value.chunk, item.Value.blockID, cfg.Selection, registry)
		if err != nil {
			return compressedBlock{}, err
		}

		return compressedBlock{blk: blk, archiveIDStart: item.Value.archiveIDStart}, nil
	}

	sink := func(_ context.Context, item Item[compressedBlock]) (uint64, uint64, error) {
		cb := item.Value
		if err := w.WriteBlock(cb.blk, cb.archiveIDStart); err != nil {
			return 0, 0, err
		}

		bytesOut := uint64(format.BlockHeaderSize) + cb.blk.Header.CompressedSize

		return uint64(cb.blk.Header.RecordCount), bytesOut, nil
	}

	return Run(ctx, cfg.Engine, src, worker, sink)
}
