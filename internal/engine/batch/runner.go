package batch

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/rshade/cryptoassets-importer/internal/logging"
)

// Configuration errors. These are returned before any worker runs.
var (
	ErrInvalidConcurrency = errors.New("concurrency must be at least 1")
	ErrNilWorker          = errors.New("batch worker cannot be nil")
)

// ErrWorkerPanic is wrapped by the ItemError recorded for a worker that panicked.
var ErrWorkerPanic = errors.New("worker panicked")

// Worker processes a single item. index is the item's 0-based position in the input.
type Worker[T, R any] func(ctx context.Context, item T, index int) (R, error)

// FailureCallback is invoked once for every item whose worker failed.
// It may be called concurrently from several lanes.
type FailureCallback[T any] func(ctx context.Context, item T, index int, err error)

// ProgressCallback is invoked after each item settles, successfully or not.
// It may be called concurrently from several lanes.
type ProgressCallback func(snapshot ProgressSnapshot)

// Runner executes a Worker over a slice of items with at most concurrency
// workers in flight. A Runner holds no per-run state and may be reused.
type Runner[T, R any] struct {
	// concurrency is the size of the sliding window.
	concurrency int

	// onFailure is an optional side-channel for item failures.
	onFailure FailureCallback[T]

	// onProgress is an optional callback for progress updates.
	onProgress ProgressCallback
}

// NewRunner creates a runner with the given concurrency window.
func NewRunner[T, R any](concurrency int) (*Runner[T, R], error) {
	if concurrency < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidConcurrency, concurrency)
	}

	return &Runner[T, R]{concurrency: concurrency}, nil
}

// WithFailureCallback sets the callback invoked for each failed item.
func (r *Runner[T, R]) WithFailureCallback(callback FailureCallback[T]) *Runner[T, R] {
	r.onFailure = callback
	return r
}

// WithProgressCallback sets a progress callback for the runner.
func (r *Runner[T, R]) WithProgressCallback(callback ProgressCallback) *Runner[T, R] {
	r.onProgress = callback
	return r
}

// Concurrency returns the configured window size.
func (r *Runner[T, R]) Concurrency() int {
	return r.concurrency
}

// Run is shorthand for NewRunner followed by Runner.Run.
func Run[T, R any](ctx context.Context, items []T, concurrency int, worker Worker[T, R]) ([]Outcome[R], error) {
	r, err := NewRunner[T, R](concurrency)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx, items, worker)
}

type queuedItem[T any] struct {
	index int
	item  T
}

// Run invokes worker once for every item and returns one Outcome per item,
// in input order. Item failures are recorded in the outcomes; the returned
// error is non-nil only when the runner is misconfigured.
func (r *Runner[T, R]) Run(ctx context.Context, items []T, worker Worker[T, R]) ([]Outcome[R], error) {
	if worker == nil {
		return nil, ErrNilWorker
	}
	if r.concurrency < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidConcurrency, r.concurrency)
	}

	outcomes := make([]Outcome[R], len(items))
	if len(items) == 0 {
		return outcomes, nil
	}

	log := logging.FromContext(ctx)
	lanes := min(r.concurrency, len(items))
	progress := NewProgress(len(items))

	// The queue is filled and closed up front; receiving from it is the
	// atomic dequeue step shared by all lanes.
	queue := make(chan queuedItem[T], len(items))
	for i, item := range items {
		queue <- queuedItem[T]{index: i, item: item}
	}
	close(queue)

	log.Debug().
		Ctx(ctx).
		Int("items", len(items)).
		Int("lanes", lanes).
		Msg("batch run started")

	// Lanes never return an error, so Wait only joins them.
	var g errgroup.Group
	for range lanes {
		g.Go(func() error {
			for work := range queue {
				outcomes[work.index] = r.invoke(ctx, worker, work, progress)
			}
			return nil
		})
	}
	_ = g.Wait()

	snap := progress.Snapshot()
	log.Debug().
		Ctx(ctx).
		Int("succeeded", snap.SucceededItems).
		Int("failed", snap.FailedItems).
		Dur("elapsed", snap.ElapsedTime).
		Msg("batch run completed")

	return outcomes, nil
}

// invoke runs the worker for one item and converts its result, error or
// panic into an Outcome.
func (r *Runner[T, R]) invoke(
	ctx context.Context,
	worker Worker[T, R],
	work queuedItem[T],
	progress *Progress,
) (out Outcome[R]) {
	out.Index = work.index

	defer func() {
		if rec := recover(); rec != nil {
			var zero R
			out.Value = zero
			out.Err = &ItemError{Index: work.index, Err: fmt.Errorf("%w: %v", ErrWorkerPanic, rec)}
		}
		r.settle(ctx, work, out, progress)
	}()

	value, err := worker(ctx, work.item, work.index)
	if err != nil {
		out.Err = &ItemError{Index: work.index, Err: err}
		return out
	}
	out.Value = value
	return out
}

// settle records progress and reports failures for a finished item.
func (r *Runner[T, R]) settle(ctx context.Context, work queuedItem[T], out Outcome[R], progress *Progress) {
	if out.Err != nil {
		progress.AddFailed()
		logging.FromContext(ctx).Warn().
			Ctx(ctx).
			Int("index", work.index).
			Err(out.Err).
			Msg("batch item failed")
		if r.onFailure != nil {
			r.onFailure(ctx, work.item, work.index, out.Err)
		}
	} else {
		progress.AddSucceeded()
	}

	if r.onProgress != nil {
		r.onProgress(progress.Snapshot())
	}
}
