// internal/places/handle.go
//
// Lifecycle of the external lookup.  Loading is retried with a constant
// delay and a fixed attempt budget; after the budget the handle settles in
// Failed and callers fall back to manual entry.

package places

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// State of a Handle.
type State int32

const (
	Uninitialized State = iota
	Loading
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "uninitialized"
	}
}

// Loader produces a usable Lookup or an error.  Wrap errors that will never
// succeed with backoff.Permanent to skip the remaining attempts.
type Loader func(ctx context.Context) (Lookup, error)

// Default retry budget.
const (
	DefaultAttempts = 10
	DefaultDelay    = 300 * time.Millisecond
)

// Handle guards one Lookup and its load state.
type Handle struct {
	load     Loader
	attempts int
	delay    time.Duration

	mu     sync.Mutex
	state  State
	lookup Lookup
	err    error
	done   chan struct{} // closed when the current load settles
}

// Option tweaks a Handle.
type Option func(*Handle)

// WithRetry overrides the attempt budget and delay.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(h *Handle) {
		if attempts > 0 {
			h.attempts = attempts
		}
		if delay >= 0 {
			h.delay = delay
		}
	}
}

// NewHandle returns an Uninitialized handle.
func NewHandle(load Loader, opts ...Option) *Handle {
	h := &Handle{load: load, attempts: DefaultAttempts, delay: DefaultDelay}
	for _, o := range opts {
		o(h)
	}
	return h
}

// NewReadyHandle wraps an already usable Lookup in a Ready handle.
func NewReadyHandle(l Lookup) *Handle {
	return &Handle{state: Ready, lookup: l, attempts: DefaultAttempts}
}

// State returns the current state.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Err returns the error that moved the handle to Failed, if any.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Lookup returns the attached Lookup when Ready.
func (h *Handle) Lookup() (Lookup, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lookup, h.state == Ready
}

// Init loads the Lookup.  Concurrent callers share one load.  Calling Init
// on a Failed handle starts a fresh attempt budget.
func (h *Handle) Init(ctx context.Context) error {
	h.mu.Lock()
	switch h.state {
	case Ready:
		h.mu.Unlock()
		return nil
	case Loading:
		done := h.done
		h.mu.Unlock()
		select {
		case <-done:
			return h.Err()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	h.state = Loading
	h.err = nil
	h.done = make(chan struct{})
	done := h.done
	h.mu.Unlock()

	var (
		l       Lookup
		attempt int
	)
	op := func() error {
		attempt++
		var err error
		l, err = h.load(ctx)
		if err != nil {
			zap.S().Debugw("places load attempt failed", "attempt", attempt, "error", err)
		}
		return err
	}
	pol := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(h.delay), uint64(h.attempts-1)),
		ctx,
	)
	err := backoff.Retry(op, pol)

	h.mu.Lock()
	if err != nil {
		h.state = Failed
		h.err = fmt.Errorf("places: load failed after %d attempt(s): %w", attempt, err)
		err = h.err
	} else {
		h.state = Ready
		h.lookup = l
	}
	close(done)
	h.mu.Unlock()

	if err != nil {
		zap.S().Warnw("places lookup unavailable, manual entry only", "error", err)
	}
	return err
}
