// internal/submit/coordinator.go
//
// Submission coordinator.
//
// Context
// -------
// Submit drives one press of the "Book now" button:
//
//  1. The validator switches to eager mode.
//  2. The whole draft is validated.  Invalid drafts never reach the network.
//  3. If a submission is already in flight the call returns ErrInFlight.
//     Nothing is queued.
//  4. Exactly one Transport.Send carries the validated booking.
//  5. Success resets the store.  Failure leaves the draft untouched so the
//     customer can try again, and no automatic retry is made.
//
// Requests carry no idempotency key.  A customer who retries after a
// timeout that actually reached the server may produce a duplicate lead;
// staff dedupe by phone number.
//
// Notes
// -----
// • Oxford commas, two spaces after periods.
package submit

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/tradesite/internal/booking"
	"github.com/yanizio/tradesite/internal/message"
	"github.com/yanizio/tradesite/internal/metrics"
)

var (
	// ErrInvalid means the draft failed validation; see Validator.Visible.
	ErrInvalid = errors.New("submit: please fix the highlighted fields")
	// ErrInFlight means an earlier Submit has not returned yet.
	ErrInFlight = errors.New("submit: a submission is already in progress")
	// ErrSubmitFailed wraps every transport failure.
	ErrSubmitFailed = errors.New("submit: we couldn't send your request, please try again")
)

// Result is the dispatcher's answer for a delivered booking.
type Result struct {
	Success       bool             `json:"success"`
	AdminEmail    *message.Receipt `json:"adminEmail,omitempty"`
	CustomerEmail *message.Receipt `json:"customerEmail,omitempty"`
}

// Transport carries a validated booking to the dispatcher.
type Transport interface {
	Send(ctx context.Context, v *booking.Validated) (Result, error)
}

// Coordinator binds one form session: its store, its validator, and a
// transport.
type Coordinator struct {
	store    *booking.Store
	val      *booking.Validator
	tr       Transport
	inflight atomic.Bool
}

// New returns a coordinator for one form session.
func New(store *booking.Store, val *booking.Validator, tr Transport) *Coordinator {
	return &Coordinator{store: store, val: val, tr: tr}
}

// InFlight reports whether a Send is outstanding.
func (c *Coordinator) InFlight() bool { return c.inflight.Load() }

// Submit runs the sequence described in the file header.
func (c *Coordinator) Submit(ctx context.Context) (Result, error) {
	c.val.MarkSubmitAttempted()

	v, ok := c.val.ValidateForm(c.store.Draft())
	if !ok {
		metrics.BookingsRejected.WithLabelValues("invalid").Inc()
		return Result{}, ErrInvalid
	}

	if !c.inflight.CompareAndSwap(false, true) {
		return Result{}, ErrInFlight
	}
	defer c.inflight.Store(false)

	start := time.Now()
	res, err := c.tr.Send(ctx, v)
	if err != nil {
		metrics.SubmitSeconds.WithLabelValues(metrics.OutcomeFailed).Observe(time.Since(start).Seconds())
		zap.S().Warnw("booking submit failed", "error", err)
		return Result{}, fmt.Errorf("%w: %w", ErrSubmitFailed, err)
	}
	metrics.SubmitSeconds.WithLabelValues(metrics.OutcomeSent).Observe(time.Since(start).Seconds())

	c.store.Reset()
	return res, nil
}
