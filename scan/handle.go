package scan

import (
	"context"
	"sync"
	"time"

	"github.com/dux-project/dux/tree"
	"github.com/pkg/errors"
)

// State is the lifecycle state of a scan.
type State int32

const (
	StateIdle State = iota
	StateScanning
	StateCompleted
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal returns whether no further transition can happen from the state.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

// Result is the outcome of a successful scan.
type Result struct {
	Root     *tree.Node    // Aggregated tree
	Progress Progress      // Final snapshot, always complete
	Partial  bool          // Tree was built from incomplete output
	Elapsed  time.Duration // Wall time of the scan
}

// Source produces a tree from some origin, e.g. the local file system or a remote
// host. Scan blocks until the tree is complete, and must return ErrCancelled (or
// an error wrapping it) once it observes the cancellation of ctx.
type Source interface {
	Scan(ctx context.Context, onProgress ProgressFunc) (*Result, error)
}

// Callbacks are invoked by a started scan. All callbacks of a scan are delivered
// serially from a single goroutine owned by its Handle, never concurrently.
type Callbacks struct {
	OnProgress func(Progress)  // Throttled progress, latest snapshot wins when consumer is slow
	OnComplete func(*Result)   // Completed tree along with the final snapshot
	OnError    func(err error) // Fatal failure, no tree
}

type outcome struct {
	result *Result
	err    error
}

// Handle controls a scan started in background.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	state     State
	cancelled bool
	pending   *Progress

	notify chan struct{}
}

// Start runs source in background and returns immediately. Progress and completion
// are delivered through callbacks, see Callbacks.
func Start(ctx context.Context, source Source, callbacks Callbacks) *Handle {
	ctx, cancel := context.WithCancel(ctx)

	handle := &Handle{
		cancel: cancel,
		done:   make(chan struct{}),
		state:  StateScanning,
		notify: make(chan struct{}, 1),
	}

	outcomeCh := make(chan outcome, 1)

	go func() {
		result, err := source.Scan(ctx, handle.post)
		outcomeCh <- outcome{result, err}
	}()

	go handle.deliver(callbacks, outcomeCh)

	return handle
}

// Cancel requests the scan to stop. Once Cancel returns, no completion is delivered
// and no further progress is delivered except a callback already in flight.
// Cancelling a finished scan has no effect.
func (h *Handle) Cancel() {
	h.mu.Lock()
	if h.state == StateScanning {
		h.cancelled = true
		h.pending = nil
	}
	h.mu.Unlock()

	h.cancel()
}

// State returns the current state of the scan.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Done returns a channel closed once the scan reached a terminal state and all
// callbacks returned.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the scan terminates and returns its final state.
func (h *Handle) Wait() State {
	<-h.done
	return h.State()
}

// post stores the latest snapshot for delivery, replacing any undelivered one so
// that the scanning goroutine never blocks on a slow consumer.
func (h *Handle) post(progress Progress) {
	h.mu.Lock()
	if h.cancelled {
		h.mu.Unlock()
		return
	}
	h.pending = &progress
	h.mu.Unlock()

	select {
	case h.notify <- struct{}{}:
	default:
	}
}

func (h *Handle) deliver(callbacks Callbacks, outcomeCh <-chan outcome) {
	defer close(h.done)
	defer h.cancel()

	for {
		select {
		case <-h.notify:
			h.flush(callbacks)
		case out := <-outcomeCh:
			// drain progress posted right before the outcome, to keep ordering
			h.flush(callbacks)
			h.finish(callbacks, out)
			return
		}
	}
}

func (h *Handle) flush(callbacks Callbacks) {
	h.mu.Lock()
	progress := h.pending
	h.pending = nil
	cancelled := h.cancelled
	h.mu.Unlock()

	if progress == nil || cancelled || callbacks.OnProgress == nil {
		return
	}

	callbacks.OnProgress(*progress)
}

func (h *Handle) finish(callbacks Callbacks, out outcome) {
	h.mu.Lock()
	switch {
	case h.cancelled || errors.Is(out.err, ErrCancelled):
		h.state = StateCancelled
	case out.err != nil:
		h.state = StateFailed
	default:
		h.state = StateCompleted
	}
	state := h.state
	h.mu.Unlock()

	switch state {
	case StateFailed:
		if callbacks.OnError != nil {
			callbacks.OnError(out.err)
		}
	case StateCompleted:
		if callbacks.OnComplete != nil {
			callbacks.OnComplete(out.result)
		}
	}
}
