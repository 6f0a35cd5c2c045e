package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/fqzip/fqzip/archive"
	"github.com/fqzip/fqzip/codec"
	"github.com/fqzip/fqzip/errs"
	"github.com/fqzip/fqzip/format"
	"github.com/fqzip/fqzip/pipeline"
	"github.com/schollz/progressbar/v2"
	"github.com/spf13/cobra"
)

func newDecompressCommand() *cobra.Command {
	var (
		inFile        string
		outFile       string
		r2Out         string
		rangeFlag     string
		headerOnly    bool
		originalOrder bool
		skipCorrupted bool
		splitPE       bool
		placeholderQ  string
		threads       int
	)

	cmd := &cobra.Command{
		Use:   "decompress",
		Short: "Restore a fqzip archive to FASTQ",
		RunE: func(cmd *cobra.Command, args []string) error {
			qualChar := byte('#')
			if placeholderQ != "" {
				qualChar = placeholderQ[0]
			}

			if threads <= 0 {
				threads = runtime.NumCPU()
			}

			return runDecompress(cmd.Context(), decompressOptions{
				inFile:         inFile,
				outFile:        outFile,
				r2Out:          r2Out,
				rangeFlag:      rangeFlag,
				hasRange:       rangeFlag != "",
				headerOnly:     headerOnly,
				originalOrder:  originalOrder,
				skipCorrupted:  skipCorrupted,
				splitPE:        splitPE,
				placeholderQual: qualChar,
				threads:        threads,
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&inFile, "input", "i", "", "input archive file (required)")
	flags.StringVarP(&outFile, "output", "o", "", "output FASTQ file, or R1 output when --split-pe is set (required)")
	flags.StringVar(&r2Out, "2", "", "R2 output file for --split-pe; derived from --output if omitted")
	flags.StringVar(&rangeFlag, "range", "", "restrict output to archive records START:END, 1-based inclusive; END may be omitted for \"through end of archive\"")
	flags.BoolVar(&headerOnly, "header-only", false, "decode only the id stream")
	flags.BoolVar(&originalOrder, "original-order", false, "restore pre-reorder input order using the archive's reorder map")
	flags.BoolVar(&skipCorrupted, "skip-corrupted", false, "replace corrupted blocks with placeholder records instead of failing")
	flags.BoolVar(&splitPE, "split-pe", false, "demultiplex a paired-end archive back into separate R1/R2 FASTQ files")
	flags.StringVar(&placeholderQ, "placeholder-quality", "#", "quality character used for skip-corrupted placeholders")
	flags.IntVar(&threads, "threads", 0, "worker concurrency, 0 = auto")

	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("output")

	return cmd
}

type decompressOptions struct {
	inFile, outFile, r2Out string
	rangeFlag              string
	hasRange               bool
	headerOnly             bool
	originalOrder          bool
	skipCorrupted          bool
	splitPE                bool
	placeholderQual        byte
	threads                int
}

// deriveR2Path builds a default R2 output path from an R1 output path by
// inserting ".R2" before the final extension, e.g. "out.fastq" ->
// "out.R2.fastq".
func deriveR2Path(r1Path string) string {
	ext := filepath.Ext(r1Path)
	base := strings.TrimSuffix(r1Path, ext)

	return base + ".R2" + ext
}

// parseRange parses a "START:END" --range argument. END may be empty,
// meaning "through the last record" (totalRecords, the archive's 1-based
// last record id).
func parseRange(s string, totalRecords uint64) (uint64, uint64, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("fqzip: --range must be START:END, got %q", s)
	}

	start, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("fqzip: invalid --range start %q: %w", parts[0], err)
	}

	if parts[1] == "" {
		return start, totalRecords, nil
	}

	end, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("fqzip: invalid --range end %q: %w", parts[1], err)
	}

	return start, end, nil
}

func runDecompress(ctx context.Context, opt decompressOptions) error {
	r, err := archive.Open(opt.inFile, codec.Default)
	if err != nil {
		return err
	}
	defer r.Close()

	if r.VersionWarning != "" {
		fmt.Fprintln(os.Stderr, "fqzip: warning:", r.VersionWarning)
	}

	mask := format.StreamMaskAll
	if opt.headerOnly {
		mask = format.StreamMaskHeaderOnly
	}

	w, err := openDecompressWriter(r, opt)
	if err != nil {
		return err
	}
	defer w.close()

	switch {
	case opt.hasRange:
		start, end, err := parseRange(opt.rangeFlag, r.TotalRecordCount())
		if err != nil {
			return err
		}

		chunk, err := r.ReadRecordRange(start, end, mask, true)
		if err != nil {
			return err
		}
		return w.writeChunk(chunk)

	case opt.originalOrder:
		chunk, err := r.ReadOriginalOrder(mask, true)
		if err != nil {
			return err
		}
		return w.writeChunk(chunk)

	default:
		return streamDecompress(ctx, r, w, mask, opt)
	}
}

// openDecompressWriter builds the FASTQ output sink: a single file, or,
// under --split-pe, a demuxWriter that demultiplexes the archive's paired
// records back into separate R1/R2 files per its stored PE layout (§4.6,
// §6.6).
func openDecompressWriter(r *archive.Reader, opt decompressOptions) (chunkWriter, error) {
	if !opt.splitPE {
		return openFastqWriter(opt.outFile)
	}

	if !r.Header.Flags.IsPairedEnd() {
		return nil, errs.Wrap(errs.KindUsage, errs.ErrInvalidFlagCombination, "archive: --split-pe requires a paired-end archive")
	}

	r2Path := opt.r2Out
	if r2Path == "" {
		r2Path = deriveR2Path(opt.outFile)
	}

	w1, err := openFastqWriter(opt.outFile)
	if err != nil {
		return nil, err
	}

	w2, err := openFastqWriter(r2Path)
	if err != nil {
		w1.close()
		return nil, err
	}

	return newDemuxWriter(w1, w2, r.Header.Flags.PELayout(), r.TotalRecordCount()), nil
}

// streamDecompress drives the concurrent block decode pipeline over the
// whole archive in on-disk (archive) order, the common case for large
// files that don't need random access or a full in-memory reorder.
func streamDecompress(ctx context.Context, r *archive.Reader, w chunkWriter, mask format.StreamMask, opt decompressOptions) error {
	bar := progressbar.NewOptions64(int64(r.TotalRecordCount()),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetPredictTime(true))

	var warnings []string
	lastReported := uint64(0)

	_, err := pipeline.Decompress(ctx, r, w.writeChunk, pipeline.DecompressConfig{
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
		Mask:                      mask,
		VerifyChecksum:            mask == format.StreamMaskAll,
		SkipCorrupted:             opt.skipCorrupted,
		PlaceholderQuality:        opt.placeholderQual,
		PlaceholderFallbackLength: 0,
		OnWarning: func(blockIndex int, err error) {
			warnings = append(warnings, fmt.Sprintf("block %d: %v", blockIndex, err))
		},
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stderr)
	for _, msg := range warnings {
		fmt.Fprintln(os.Stderr, "fqzip: warning:", msg)
	}

	return nil
}
