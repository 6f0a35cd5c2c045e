package pipeline

import (
	"context"

	"github.com/fqzip/fqzip/archive"
	"github.com/fqzip/fqzip/block"
	"github.com/fqzip/fqzip/errs"
	"github.com/fqzip/fqzip/format"
	"github.com/fqzip/fqzip/record"
)

// ChunkSink consumes one decoded Chunk in archive order (S3), e.g. by
// writing it out through a FASTQ serializer.
type ChunkSink func(record.Chunk) error

// DecompressConfig configures a decompression run.
type DecompressConfig struct {
	Engine Config
	// Mask selects which of the four per-block streams to decode
	// (§4.5); format.StreamMaskAll decodes everything.
	Mask format.StreamMask
	// VerifyChecksum re-hashes each block's decompressed payload against
	// its header checksum; only takes effect when Mask is
	// format.StreamMaskAll.
	VerifyChecksum bool
	// SkipCorrupted downgrades a per-block Checksum/Format error into a
	// recorded warning and substitutes a placeholder chunk (§7) instead
	// of failing the whole run.
	SkipCorrupted bool
	// PlaceholderQuality is the quality character used to fill
	// skip-corrupted placeholder records.
	PlaceholderQuality byte
	// PlaceholderFallbackLength is used for placeholder records when the
	// corrupted block's own header cannot be read to recover
	// uniform_length.
	PlaceholderFallbackLength int
	// OnWarning, if set, is called for every block downgraded under
	// SkipCorrupted.
	OnWarning func(blockIndex int, err error)
}

// Decompress reads blocks from r in archive order (S1 emits block
// indices, S2 decodes them in parallel), and delivers the resulting
// Chunks to sink in ascending block order (S3) (§4.6).
func Decompress(ctx context.Context, r *archive.Reader, sink ChunkSink, cfg DecompressConfig) (Snapshot, error) {
	numBlocks := r.NumBlocks()
	nextBlock := 0

	src := func(context.Context) (Item[int], bool, error) {
		if nextBlock >= numBlocks {
			return Item[int]{}, false, nil
		}

		idx := nextBlock
		nextBlock++

		return Item[int]{Index: uint64(idx), Value: idx}, true, nil
	}

	worker := func(_ context.Context, item Item[int]) (record.Chunk, error) {
		chunk, err := r.ReadBlock(item.Value, cfg.Mask, cfg.VerifyChecksum)
		if err == nil {
			return chunk, nil
		}

		if !cfg.SkipCorrupted {
			return record.Chunk{}, err
		}

		kind := errs.KindOf(err)
		if kind != errs.KindChecksum && kind != errs.KindFormat {
			return record.Chunk{}, err
		}

		if cfg.OnWarning != nil {
			cfg.OnWarning(item.Value, err)
		}

		return placeholderFor(r, item.Value, cfg.PlaceholderQuality, cfg.PlaceholderFallbackLength)
	}

	sinkFn := func(_ context.Context, item Item[record.Chunk]) (uint64, uint64, error) {
		chunk := item.Value
		if err := sink(chunk); err != nil {
			return 0, 0, err
		}

		return uint64(chunk.Len()), uint64(chunkBytes(chunk)), nil
	}

	return Run(ctx, cfg.Engine, src, worker, sinkFn)
}

func chunkBytes(c record.Chunk) int {
	total := 0
	for _, rec := range c.Records {
		total += len(rec.ID) + len(rec.Sequence) + len(rec.Quality)
	}

	return total
}

// placeholderFor synthesizes a skip-corrupted placeholder chunk for block
// blockIndex, recovering its record count from the index and its fixed
// record length from the block header if that much is still readable.
func placeholderFor(r *archive.Reader, blockIndex int, qualityChar byte, fallbackLength int) (record.Chunk, error) {
	entry, err := r.IndexEntryAt(blockIndex)
	if err != nil {
		return record.Chunk{}, err
	}

	length := fallbackLength
	if h, err := r.BlockHeader(blockIndex); err == nil && h.UniformLength > 0 {
		length = int(h.UniformLength)
	}

	return block.Placeholder(int(entry.RecordCount), length, qualityChar), nil
}
