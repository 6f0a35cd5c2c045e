package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"time"

	"github.com/fqzip/fqzip/archive"
	"github.com/fqzip/fqzip/codec"
	"github.com/fqzip/fqzip/compress"
	"github.com/fqzip/fqzip/format"
	"github.com/fqzip/fqzip/pipeline"
	"github.com/fqzip/fqzip/record"
	"github.com/fqzip/fqzip/reorder"
	"github.com/schollz/progressbar/v2"
	"github.com/spf13/cobra"
)

func newCompressCommand() *cobra.Command {
	var (
		inFile        string
		inFile2       string
		outFile       string
		level         int
		threads       int
		memoryLimitMB int
		lossyQuality  string
		idMode        string
		reorderFlag   bool
		noReorder     bool
		streaming     bool
		peLayout      string
		force         bool
	)

	cmd := &cobra.Command{
		Use:   "compress",
		Short: "Compress a FASTQ file into a fqzip archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			if level < 1 || level > 9 {
				return fmt.Errorf("fqzip: --level must be between 1 and 9")
			}
			if reorderFlag && streaming {
				return fmt.Errorf("fqzip: --reorder and --streaming are mutually exclusive")
			}
			doReorder := reorderFlag && !noReorder

			qm, err := parseQualityMode(lossyQuality)
			if err != nil {
				return err
			}
			im, err := parseIDMode(idMode)
			if err != nil {
				return err
			}
			layout, err := parsePELayout(peLayout)
			if err != nil {
				return err
			}

			if !force {
				if _, err := os.Stat(outFile); err == nil {
					return fmt.Errorf("fqzip: output %s already exists (use -f to overwrite)", outFile)
				}
			}

			if threads <= 0 {
				threads = runtime.NumCPU()
			}

			return runCompress(cmd.Context(), compressOptions{
				inFile:        inFile,
				inFile2:       inFile2,
				outFile:       outFile,
				level:         level,
				threads:       threads,
				memoryLimitMB: memoryLimitMB,
				qualityMode:   qm,
				idMode:        im,
				reorder:       doReorder,
				streaming:     streaming,
				peLayout:      layout,
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&inFile, "input", "i", "", "input FASTQ file (required)")
	flags.StringVarP(&outFile, "output", "o", "", "output archive file (required)")
	flags.IntVarP(&level, "level", "l", 6, "compression level, 1-9")
	flags.IntVar(&threads, "threads", 0, "worker concurrency, 0 = auto")
	flags.IntVar(&memoryLimitMB, "memory-limit", 0, "cap per-partition memory in MB, 0 = unbounded")
	flags.StringVar(&lossyQuality, "lossy-quality", "none", "quality transform: none, illumina8, qvz, discard")
	flags.StringVar(&idMode, "id-mode", "exact", "id stream transform: exact, tokenize, discard")
	flags.BoolVar(&reorderFlag, "reorder", false, "build a reorder map and store records sorted for better compression")
	flags.BoolVar(&noReorder, "no-reorder", false, "disable reordering (default)")
	flags.BoolVar(&streaming, "streaming", false, "single-pass mode: forbids --reorder")
	flags.StringVar(&peLayout, "pe-layout", "interleaved", "paired-end layout: interleaved, consecutive")
	flags.StringVar(&inFile2, "2", "", "paired-end R2 input file")
	flags.BoolVarP(&force, "force", "f", false, "overwrite an existing output file")

	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("output")

	return cmd
}

type compressOptions struct {
	inFile, inFile2, outFile string
	level, threads           int
	memoryLimitMB            int
	qualityMode              format.QualityMode
	idMode                   format.IDMode
	reorder, streaming       bool
	peLayout                 format.PELayout
}

func runCompress(ctx context.Context, opt compressOptions) (err error) {
	pairedEnd := opt.inFile2 != ""

	rs, totalRecords, maxLen, err := loadRecordSource(opt.inFile, opt.inFile2, pairedEnd, opt.peLayout, opt.reorder)
	if err != nil {
		return err
	}

	var reorderMap *reorder.Map
	if opt.reorder {
		var buffered []record.Record
		for {
			rec, rerr := rs()
			if rerr != nil {
				if rerr == io.EOF {
					break
				}
				return rerr
			}
			buffered = append(buffered, rec)
		}

		sortIdx := make([]int, len(buffered))
		for i := range sortIdx {
			sortIdx[i] = i
		}
		sort.SliceStable(sortIdx, func(i, j int) bool {
			return buffered[sortIdx[i]].Len() < buffered[sortIdx[j]].Len()
		})

		sorted := make([]record.Record, len(buffered))
		originalOf := make([]uint32, len(buffered))
		for archivePos, origIdx := range sortIdx {
			sorted[archivePos] = buffered[origIdx]
			originalOf[archivePos] = uint32(origIdx + 1) //nolint:gosec
		}

		reorderMap, err = reorder.Build(originalOf)
		if err != nil {
			return err
		}

		cursor := 0
		rs = func() (record.Record, error) {
			if cursor >= len(sorted) {
				return record.Record{}, io.EOF
			}
			rec := sorted[cursor]
			cursor++
			return rec, nil
		}
	}

	class := format.ClassifyLength(maxLen)
	selection := selectCodecs(class, opt.level)

	flags := format.NewGlobalFlags(pairedEnd, true, opt.qualityMode, opt.idMode, opt.reorder, opt.peLayout, class, opt.streaming)

	w, err := archive.NewWriter(opt.outFile)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = w.Abort()
		}
	}()

	if err = w.WriteHeader(archive.GlobalHeader{
		ChecksumType:     format.ChecksumXxh64,
		Flags:            flags,
		TotalRecordCount: totalRecords,
		OriginalFilename: opt.inFile,
		CreatedAtUnix:    uint64(time.Now().Unix()),
		GeneralCompressionAlgo: uint8(compress.AlgorithmZstd),
	}); err != nil {
		return err
	}

	planner := archive.Planner{
		MemoryLimitBytes: int64(opt.memoryLimitMB) * 1024 * 1024,
		BlockRecordCount: archive.DefaultBlockRecordCount,
	}
	partitions := planner.Plan(totalRecords, opt.reorder)

	bar := progressbar.NewOptions64(int64(totalRecords),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetPredictTime(true))

	for _, part := range partitions {
		src := partitionedChunkSource(rs, int(archive.DefaultBlockRecordCount), int(part.RecordCount))

		lastReported := uint64(0)
		_, err = pipeline.Compress(ctx, w, src, pipeline.CompressConfig{
			Engine: pipeline.Config{
				Concurrency:      opt.threads,
				InFlight:         opt.threads * 2,
				ProgressInterval: 200 * time.Millisecond,
				OnProgress: func(s pipeline.Snapshot) bool {
					delta := s.RecordsDone - lastReported
					lastReported = s.RecordsDone
					_ = bar.Add(int(delta))
					return true
				},
			},
			Selection:      selection,
			Registry:       codec.Default,
			StartArchiveID: part.ArchiveIDStart,
			StartBlockID:   part.BlockIDStart,
		})
		if err != nil {
			return err
		}
	}

	if reorderMap != nil {
		if err = w.WriteReorderMap(reorderMap); err != nil {
			return err
		}
	}

	if err = w.Finalize(); err != nil {
		return err
	}

	fmt.Fprintln(os.Stderr)

	return nil
}

// loadRecordSource opens the input file(s) and returns a recordSource over
// them plus the total record count and the longest sequence length seen,
// both of which must be known before the archive header is written. When
// reorder is requested the caller drains the whole source into memory
// anyway (Phase-1 analysis), so this performs a single pass; otherwise it
// precounts with a throwaway pass and reopens for the real read, since the
// header's total_record_count must precede any block (§4.4).
func loadRecordSource(inFile, inFile2 string, pairedEnd bool, layout format.PELayout, reorder bool) (recordSource, uint64, int, error) {
	open := func() (recordSource, func(), error) {
		r1, err := openFastqReader(inFile)
		if err != nil {
			return nil, nil, err
		}
		if !pairedEnd {
			return singleSource(r1), func() { r1.close() }, nil
		}

		r2, err := openFastqReader(inFile2)
		if err != nil {
			r1.close()
			return nil, nil, err
		}

		closeBoth := func() { r1.close(); r2.close() }
		if layout == format.PELayoutConsecutive {
			return consecutiveSource(r1, r2), closeBoth, nil
		}
		return interleavedSource(r1, r2), closeBoth, nil
	}

	if reorder {
		rs, closeFn, err := open()
		if err != nil {
			return nil, 0, 0, err
		}
		defer closeFn()

		return bufferedCountingSource(rs)
	}

	countRs, closeCount, err := open()
	if err != nil {
		return nil, 0, 0, err
	}

	var total uint64
	maxLen := 0
	for {
		rec, rerr := countRs()
		if rerr != nil {
			if rerr == io.EOF {
				break
			}
			closeCount()
			return nil, 0, 0, rerr
		}
		total++
		if rec.Len() > maxLen {
			maxLen = rec.Len()
		}
	}
	closeCount()

	rs, _, err := open()
	if err != nil {
		return nil, 0, 0, err
	}

	return rs, total, maxLen, nil
}

// bufferedCountingSource drains rs fully into memory and returns a new
// source that replays it, alongside its count and max record length.
func bufferedCountingSource(rs recordSource) (recordSource, uint64, int, error) {
	var records []record.Record
	maxLen := 0
	for {
		rec, err := rs()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, 0, 0, err
		}
		records = append(records, rec)
		if rec.Len() > maxLen {
			maxLen = rec.Len()
		}
	}

	cursor := 0
	replay := func() (record.Record, error) {
		if cursor >= len(records) {
			return record.Record{}, io.EOF
		}
		rec := records[cursor]
		cursor++
		return rec, nil
	}

	return replay, uint64(len(records)), maxLen, nil
}

// partitionedChunkSource batches limit records from rs into chunks of at
// most recordsPerChunk, then reports io.EOF, leaving rs positioned for the
// next partition's call.
func partitionedChunkSource(rs recordSource, recordsPerChunk, limit int) pipeline.ChunkSource {
	consumed := 0
	return func() (record.Chunk, error) {
		if consumed >= limit {
			return record.Chunk{}, io.EOF
		}

		records := make([]record.Record, 0, recordsPerChunk)
		for len(records) < recordsPerChunk && consumed < limit {
			rec, err := rs()
			if err != nil {
				if err == io.EOF {
					break
				}
				return record.Chunk{}, err
			}
			records = append(records, rec)
			consumed++
		}

		if len(records) == 0 {
			return record.Chunk{}, io.EOF
		}

		return record.Chunk{Records: records}, nil
	}
}
