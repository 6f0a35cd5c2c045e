// Package pipeline implements the three-stage ordered concurrent engine
// (C7) that drives both compression and decompression: a serial reader
// stage (S1), a bounded pool of parallel workers (S2), and a serial writer
// stage (S3) that reassembles worker output back into strict input order
// (§4.6, §5).
//
// The ordered-reassembly queue is grounded on cosnicolaou/pbzip2's
// parallel.go, which holds out-of-order block completions in a
// container/heap min-heap keyed by a monotonic order counter and drains it
// whenever the next expected id arrives. This package generalizes that
// shape with type parameters so the same engine drives both Chunk->Block
// compression and Block->Chunk decompression.
package pipeline

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/fqzip/fqzip/errs"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// errCancelledByCallback is the error surfaced when Config.OnProgress
// requests cancellation by returning false.
var errCancelledByCallback = errs.Wrap(errs.KindCancelled, errs.ErrCancelled, "pipeline: progress callback requested cancellation")

// Item pairs a monotonic index with a payload value. Index is the
// chunk_index (compress) or block index (decompress) that ordering is
// maintained against.
type Item[T any] struct {
	Index uint64
	Value T
}

// Source supplies the next work item, serially and in strictly ascending
// Index order (S1). ok is false once the source is exhausted; a non-nil
// err aborts the run.
type Source[T any] func(ctx context.Context) (item Item[T], ok bool, err error)

// Worker transforms one item (S2). Workers run concurrently and hold no
// state across calls.
type Worker[T, R any] func(ctx context.Context, item Item[T]) (R, error)

// Sink consumes one item in strict ascending Index order (S3) and reports
// how much work it accounted for, for the progress snapshot.
type Sink[R any] func(ctx context.Context, item Item[R]) (records, bytesOut uint64, err error)

// Config tunes the engine's concurrency and progress reporting.
type Config struct {
	// Concurrency is the number of S2 worker goroutines (N in §4.6).
	// Zero means 1.
	Concurrency int
	// InFlight bounds how many items may exist anywhere in the pipeline
	// at once (W in §4.6/§5, default 8).
	InFlight int
	// ProgressInterval is the wall-clock period between OnProgress calls.
	// Zero disables progress reporting.
	ProgressInterval time.Duration
	// OnProgress is called with a snapshot roughly every ProgressInterval.
	// Returning false requests cancellation (§4.6).
	OnProgress func(Snapshot) bool
}

// Snapshot is the progress counters reported to Config.OnProgress.
type Snapshot struct {
	RecordsDone uint64
	ItemsDone   uint64
	BytesOut    uint64
	Elapsed     time.Duration
}

func (c Config) concurrency() int {
	if c.Concurrency <= 0 {
		return 1
	}
	return c.Concurrency
}

func (c Config) inFlight() int64 {
	if c.InFlight <= 0 {
		return 8
	}
	return int64(c.InFlight)
}

type result[R any] struct {
	index   uint64
	value   R
	err     error
	release func()
}

// resultHeap orders in-flight results by ascending Index for the
// reassembly queue; heap.Pop always returns the lowest Index.
type resultHeap[R any] []result[R]

func (h resultHeap[R]) Len() int            { return len(h) }
func (h resultHeap[R]) Less(i, j int) bool  { return h[i].index < h[j].index }
func (h resultHeap[R]) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *resultHeap[R]) Push(x interface{}) { *h = append(*h, x.(result[R])) }
func (h *resultHeap[R]) Pop() interface{} {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// Run drives the three-stage pipeline to completion: it pulls items from
// src, fans them out across cfg.Concurrency workers, and reassembles
// results in ascending Index order for sink. It returns once src is
// exhausted and every dispatched item has been consumed by sink, or once
// the first error anywhere cancels the run.
func Run[T, R any](ctx context.Context, cfg Config, src Source[T], work Worker[T, R], sink Sink[R]) (Snapshot, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := semaphore.NewWeighted(cfg.inFlight())
	workCh := make(chan Item[T], cfg.concurrency())
	doneCh := make(chan result[R], cfg.concurrency())

	var errOnce sync.Once
	var firstErr error
	fail := func(err error) {
		if err == nil {
			return
		}
		errOnce.Do(func() { firstErr = err })
		cancel()
	}

	g, gCtx := errgroup.WithContext(runCtx)

	// S1: serial reader. Acquires a backpressure slot per item before
	// dispatch; the slot is released by S3 once the item is fully
	// consumed (§5 "in-flight" spans read-to-write).
	g.Go(func() error {
		defer close(workCh)
		for {
			if err := sem.Acquire(gCtx, 1); err != nil {
				return nil // context cancelled; not a pipeline error
			}

			item, ok, err := src(gCtx)
			if err != nil {
				sem.Release(1)
				fail(err)
				return nil
			}
			if !ok {
				sem.Release(1)
				return nil
			}

			select {
			case workCh <- item:
			case <-gCtx.Done():
				sem.Release(1)
				return nil
			}
		}
	})

	// S2: bounded worker pool.
	var workerWg sync.WaitGroup
	workerWg.Add(cfg.concurrency())
	for i := 0; i < cfg.concurrency(); i++ {
		g.Go(func() error {
			defer workerWg.Done()
			for item := range workCh {
				select {
				case <-gCtx.Done():
					sem.Release(1)
					continue
				default:
				}

				v, err := work(gCtx, item)

				r := result[R]{index: item.Index, value: v, err: err, release: func() { sem.Release(1) }}
				select {
				case doneCh <- r:
				case <-gCtx.Done():
					sem.Release(1)
				}
			}
			return nil
		})
	}

	go func() {
		workerWg.Wait()
		close(doneCh)
	}()

	// S3: ordered reassembly, heap-based like pbzip2's assemble loop.
	var snapshot Snapshot
	g.Go(func() error {
		h := &resultHeap[R]{}
		heap.Init(h)

		var ticker *time.Ticker
		var tickCh <-chan time.Time
		if cfg.ProgressInterval > 0 && cfg.OnProgress != nil {
			ticker = time.NewTicker(cfg.ProgressInterval)
			tickCh = ticker.C
			defer ticker.Stop()
		}

		start := time.Now()
		expected := uint64(0)

		drain := func() error {
			for h.Len() > 0 && (*h)[0].index == expected {
				r := heap.Pop(h).(result[R])
				expected++

				if r.err != nil {
					r.release()
					fail(r.err)
					return r.err
				}

				records, bytesOut, err := sink(gCtx, Item[R]{Index: r.index, Value: r.value})
				r.release()
				if err != nil {
					fail(err)
					return err
				}

				snapshot.RecordsDone += records
				snapshot.ItemsDone++
				snapshot.BytesOut += bytesOut
			}
			return nil
		}

		for {
			select {
			case r, open := <-doneCh:
				if !open {
					snapshot.Elapsed = time.Since(start)
					return nil
				}
				heap.Push(h, r)
				if err := drain(); err != nil {
					return err
				}
			case <-tickCh:
				snapshot.Elapsed = time.Since(start)
				if !cfg.OnProgress(snapshot) {
					fail(errCancelledByCallback)
				}
			case <-gCtx.Done():
				snapshot.Elapsed = time.Since(start)
				return nil
			}
		}
	})

	_ = g.Wait()

	if firstErr != nil {
		return snapshot, firstErr
	}

	return snapshot, ctx.Err()
}
