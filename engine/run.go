package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/RHUDHRESH/Raptorflow-v1-sub003/core"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/positioning"
)

// ErrRunFinished is returned by Run methods that need a live run.
var ErrRunFinished = errors.New("pipeline run finished")

// Run is a pipeline executing in the background. ICP is blocked until Select
// is called with one of the options returned by Options.
type Run struct {
	SubjectID string
	RunID     int64

	pipeline *Pipeline
	cancel   context.CancelFunc

	ready     chan struct{} // closed when positioning options are available
	selection chan int      // buffered; holds the single selection
	done      chan struct{}

	mu       sync.Mutex
	options  positioning.Result
	selected bool
	err      error
}

// Start begins a pipeline run for subjectID and returns immediately.
// Cancelling ctx or calling Cancel stops the run.
func (o *Orchestrator) Start(ctx context.Context, subjectID, description string, optFns ...func(o *RunOptions)) (*Run, error) {
	p, err := o.NewPipeline(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	ro := newRunOptions(optFns)
	runCtx, cancel := context.WithCancel(ctx)
	r := &Run{
		SubjectID: subjectID,
		RunID:     p.RunID,
		pipeline:  p,
		cancel:    cancel,
		ready:     make(chan struct{}),
		selection: make(chan int, 1),
		done:      make(chan struct{}),
	}
	go func() {
		defer close(r.done)
		defer cancel()
		err := o.execute(runCtx, p, description, r.awaitSelection, ro)
		r.mu.Lock()
		r.err = err
		r.mu.Unlock()
	}()
	return r, nil
}

// awaitSelection publishes the options and blocks until Select or
// cancellation.
func (r *Run) awaitSelection(ctx context.Context, res positioning.Result) (int, error) {
	// The pipeline finalizes the selected option in place; readers get a copy.
	res.Options = slices.Clone(res.Options)
	r.mu.Lock()
	r.options = res
	r.mu.Unlock()
	close(r.ready)

	select {
	case n := <-r.selection:
		return n, nil
	case <-ctx.Done():
		return 0, fmt.Errorf("%w: %w", core.ErrCancelled, ctx.Err())
	}
}

// Options blocks until the positioning options are ready and returns them.
// If the run halts before that, the run's error is returned.
func (r *Run) Options(ctx context.Context) (positioning.Result, error) {
	select {
	case <-r.ready:
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.options, nil
	case <-r.done:
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.err != nil {
			return positioning.Result{}, r.err
		}
		return positioning.Result{}, ErrRunFinished
	case <-ctx.Done():
		return positioning.Result{}, ctx.Err()
	}
}

// Select supplies the chosen option number. It may be called once, after
// Options has returned.
func (r *Run) Select(n int) error {
	select {
	case <-r.ready:
	default:
		return core.Validationf("positioning options are not ready")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.selected {
		return core.Validationf("an option was already selected")
	}
	if _, ok := r.options.Option(n); !ok {
		return core.Validationf("no positioning option %d", n)
	}
	select {
	case <-r.done:
		return ErrRunFinished
	default:
	}
	r.selected = true
	r.selection <- n
	return nil
}

// Cancel stops the run. The run's error becomes a cancellation.
func (r *Run) Cancel() { r.cancel() }

// Done is closed when the run has finished.
func (r *Run) Done() <-chan struct{} { return r.done }

// Wait blocks until the run finishes and returns the pipeline with the
// error that halted it, if any.
func (r *Run) Wait(ctx context.Context) (*Pipeline, error) {
	select {
	case <-r.done:
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.pipeline, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
