// Package cli implements the fqzip command-line surface (§6.6): the
// compress, decompress, info, and verify subcommands, built on cobra the
// way the pack's FASTQ tooling builds its own subcommands, with
// shenwei356/bio/seqio/fastx and shenwei356/xopen for record I/O.
package cli

import (
	"errors"
	"io"

	"github.com/fqzip/fqzip/format"
	"github.com/fqzip/fqzip/record"
	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"
	"github.com/shenwei356/xopen"
)

// chunkWriter accepts decompressed record chunks and flushes them to one or
// more FASTQ outputs; implemented by fastqWriter and demuxWriter.
type chunkWriter interface {
	writeChunk(record.Chunk) error
	close()
}

// fastqReader wraps a fastx.Reader, converting its records into the
// record.Record shape the archive pipeline consumes.
type fastqReader struct {
	r *fastx.Reader
}

func openFastqReader(path string) (*fastqReader, error) {
	r, err := fastx.NewReader(seq.DNAredundant, path, fastx.DefaultIDRegexp)
	if err != nil {
		return nil, err
	}

	return &fastqReader{r: r}, nil
}

// next returns the next record, or io.EOF when the input is exhausted.
func (f *fastqReader) next() (record.Record, error) {
	rec, err := f.r.Read()
	if err != nil {
		return record.Record{}, err
	}

	return record.Record{
		ID:       append([]byte(nil), rec.Name...),
		Sequence: append([]byte(nil), rec.Seq.Seq...),
		Quality:  append([]byte(nil), rec.Seq.Qual...),
	}, nil
}

func (f *fastqReader) close() {
	f.r.Close()
}

// recordSource supplies one record per call, io.EOF when exhausted.
type recordSource func() (record.Record, error)

// singleSource reads straight through one FASTQ file.
func singleSource(r *fastqReader) recordSource {
	return r.next
}

// interleavedSource alternates R1 and R2 records, failing if one file runs
// out of records before the other (§6.6 --pe-layout interleaved).
func interleavedSource(r1, r2 *fastqReader) recordSource {
	var pendingR2 *record.Record

	return func() (record.Record, error) {
		if pendingR2 != nil {
			rec := *pendingR2
			pendingR2 = nil
			return rec, nil
		}

		a, errA := r1.next()
		b, errB := r2.next()

		aEOF := errors.Is(errA, io.EOF)
		bEOF := errors.Is(errB, io.EOF)

		switch {
		case aEOF && bEOF:
			return record.Record{}, io.EOF
		case errA != nil && !aEOF:
			return record.Record{}, errA
		case errB != nil && !bEOF:
			return record.Record{}, errB
		case aEOF != bEOF:
			return record.Record{}, errMismatchedPairCount
		}

		pendingR2 = &b
		return a, nil
	}
}

// consecutiveSource drains r1 fully, then r2 (§6.6 --pe-layout consecutive).
func consecutiveSource(r1, r2 *fastqReader) recordSource {
	doneR1 := false

	return func() (record.Record, error) {
		if !doneR1 {
			rec, err := r1.next()
			if err == nil {
				return rec, nil
			}
			if !errors.Is(err, io.EOF) {
				return record.Record{}, err
			}
			doneR1 = true
		}

		return r2.next()
	}
}

var errMismatchedPairCount = errors.New("fqzip: R1 and R2 files have different record counts")

// fastqWriter wraps an xopen.Writer, formatting record.Chunks back to
// FASTQ text.
type fastqWriter struct {
	w *xopen.Writer
}

func openFastqWriter(path string) (*fastqWriter, error) {
	w, err := xopen.Wopen(path)
	if err != nil {
		return nil, err
	}

	return &fastqWriter{w: w}, nil
}

func (f *fastqWriter) writeChunk(c record.Chunk) error {
	for _, r := range c.Records {
		fx := &fastx.Record{
			Name: r.ID,
			Seq:  &seq.Seq{Seq: r.Sequence, Qual: r.Quality},
		}
		fx.FormatToWriter(f.w, 0)
	}

	return nil
}

func (f *fastqWriter) close() {
	f.w.Close()
}

var _ chunkWriter = (*fastqWriter)(nil)

// demuxWriter splits a decompressed archive-order record stream back into
// separate R1/R2 FASTQ files, reversing whichever PE layout the archive was
// compressed with (§4.6 "at S3 by how they are demultiplexed", §6.6
// --split-pe). seen counts records already routed, 0-based, so it can
// resume correctly across multiple writeChunk calls from the streaming
// pipeline.
type demuxWriter struct {
	r1, r2 *fastqWriter
	layout format.PELayout
	total  uint64
	seen   uint64
}

func newDemuxWriter(r1, r2 *fastqWriter, layout format.PELayout, total uint64) *demuxWriter {
	return &demuxWriter{r1: r1, r2: r2, layout: layout, total: total}
}

func (d *demuxWriter) writeChunk(c record.Chunk) error {
	for _, rec := range c.Records {
		isR1 := true
		switch d.layout {
		case format.PELayoutInterleaved:
			isR1 = d.seen%2 == 0
		case format.PELayoutConsecutive:
			isR1 = d.seen < d.total/2
		}

		single := record.Chunk{Records: []record.Record{rec}}

		var err error
		if isR1 {
			err = d.r1.writeChunk(single)
		} else {
			err = d.r2.writeChunk(single)
		}
		if err != nil {
			return err
		}

		d.seen++
	}

	return nil
}

func (d *demuxWriter) close() {
	d.r1.close()
	d.r2.close()
}

var _ chunkWriter = (*demuxWriter)(nil)
