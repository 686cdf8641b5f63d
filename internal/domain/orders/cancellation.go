package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/emr/chart/internal/platform/notification"
	"github.com/emr/chart/internal/platform/workspace"
)

// State is the cancellation form's lifecycle position.
type State string

const (
	StateIdle       State = "idle"
	StateValidating State = "validating"
	StateSubmitting State = "submitting"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// ErrSubmitInFlight is returned when Submit is called while a previous
// submission has not resolved yet.
var ErrSubmitInFlight = errors.New("cancellation already submitting")

// ValidationError carries per-field messages. It is returned before any sink
// call is made; a submission never starts with invalid fields.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "missing required fields"
}

// SubmissionError wraps a sink rejection. The form stays open and the wrapped
// message is what the user sees.
type SubmissionError struct {
	OrderNumber string
	Err         error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("cancel order %s: %v", e.OrderNumber, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// Sink accepts one cancellation request. It resolves with nil on acceptance
// or with the fulfiller's rejection message.
type Sink interface {
	SubmitCancellation(ctx context.Context, order *Order, req CancellationRequest) error
}

// CancelForm drives a single order-cancellation interaction:
//
//	Idle -> Validating -> Submitting -> Succeeded | Failed
//
// Validation always resolves before any sink call; at most one submission is
// in flight; on success the workspace closes, the order list re-fetch fires,
// and a success notification naming the order number is emitted, each exactly
// once. On failure the workspace stays open and an error notification carries
// the rejection message. A failed form may be corrected and resubmitted.
type CancelForm struct {
	order    *Order
	today    time.Time
	sink     Sink
	mutate   func(ctx context.Context)
	notifier notification.Notifier
	handle   *workspace.Handle
	log      zerolog.Logger

	mu        sync.Mutex
	state     State
	date      *time.Time
	reason    string
	touched   bool
	fieldErrs map[string]string
}

// CancelFormDeps are the collaborators a form needs for the life of one
// interaction.
type CancelFormDeps struct {
	Sink     Sink
	Notifier notification.Notifier
	Handle   *workspace.Handle
	// Mutate triggers the out-of-band order list re-fetch after a
	// successful cancellation.
	Mutate func(ctx context.Context)
	// Today overrides the reference day for date validation. Zero means
	// time.Now.
	Today time.Time
	Log   zerolog.Logger
}

func NewCancelForm(order *Order, deps CancelFormDeps) *CancelForm {
	today := deps.Today
	if today.IsZero() {
		today = time.Now()
	}
	f := &CancelForm{
		order:    order,
		today:    startOfDay(today),
		sink:     deps.Sink,
		mutate:   deps.Mutate,
		notifier: deps.Notifier,
		handle:   deps.Handle,
		log:      deps.Log,
		state:    StateIdle,
	}
	if f.handle != nil {
		f.handle.SetDirty(f.Dirty)
	}
	return f
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func (f *CancelForm) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// FieldErrors returns the messages from the last validation pass, keyed by
// field name ("date", "reason").
func (f *CancelForm) FieldErrors() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.fieldErrs))
	for k, v := range f.fieldErrs {
		out[k] = v
	}
	return out
}

// SetDate records the cancellation date. Once any field has been touched,
// every change re-validates so field errors track the current input.
func (f *CancelForm) SetDate(t time.Time) {
	f.mu.Lock()
	f.date = &t
	f.touched = true
	f.revalidateLocked()
	f.mu.Unlock()
}

func (f *CancelForm) SetReason(s string) {
	f.mu.Lock()
	f.reason = s
	f.touched = true
	f.revalidateLocked()
	f.mu.Unlock()
}

// Dirty reports whether any field differs from its initial (empty) value.
// The workspace consults it before honoring a close request.
func (f *CancelForm) Dirty() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.date != nil || f.reason != ""
}

func (f *CancelForm) revalidateLocked() {
	if !f.touched {
		return
	}
	if verr := f.validateLocked(); verr != nil {
		f.fieldErrs = verr.Fields
	} else {
		f.fieldErrs = nil
	}
}

// validateLocked checks the two submission rules: the date must be present
// and not before the start of today, the reason must be non-empty.
func (f *CancelForm) validateLocked() *ValidationError {
	fields := make(map[string]string)
	if f.date == nil {
		fields["date"] = "cancellation date is required"
	} else if startOfDay(*f.date).Before(f.today) {
		fields["date"] = "cancellation date cannot be before today"
	}
	if strings.TrimSpace(f.reason) == "" {
		fields["reason"] = "reason for cancellation is required"
	}
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

// Submit runs the full pipeline. Validation failure returns the form to Idle
// with field errors set and no sink call. A duplicate call while a submission
// is in flight returns ErrSubmitInFlight without side effects.
func (f *CancelForm) Submit(ctx context.Context) error {
	f.mu.Lock()
	if f.state == StateSubmitting {
		f.mu.Unlock()
		return ErrSubmitInFlight
	}

	f.state = StateValidating
	f.touched = true
	if verr := f.validateLocked(); verr != nil {
		f.state = StateIdle
		f.fieldErrs = verr.Fields
		f.mu.Unlock()
		return verr
	}
	f.fieldErrs = nil
	f.state = StateSubmitting
	req := CancellationRequest{FulfillerStatus: FulfillerDeclined, Reason: f.reason}
	f.mu.Unlock()

	err := f.sink.SubmitCancellation(ctx, f.order, req)
	if err != nil {
		f.mu.Lock()
		f.state = StateFailed
		f.mu.Unlock()

		serr := &SubmissionError{OrderNumber: f.order.OrderNumber, Err: err}
		f.log.Error().Err(err).Str("order_number", f.order.OrderNumber).Msg("cancellation rejected")
		if f.notifier != nil {
			f.notifier.Notify(ctx, notification.Notification{
				Kind:     notification.KindError,
				Title:    "Error cancelling order",
				Subtitle: err.Error(),
			})
		}
		return serr
	}

	f.mu.Lock()
	f.state = StateSucceeded
	f.mu.Unlock()

	// Resolution order: close the interaction, trigger the list re-fetch,
	// then notify. Each happens exactly once per successful submission.
	if f.handle != nil {
		f.handle.Close()
	}
	if f.mutate != nil {
		f.mutate(ctx)
	}
	if f.notifier != nil {
		f.notifier.Notify(ctx, notification.Notification{
			Kind:     notification.KindSuccess,
			Title:    "Order cancelled",
			Subtitle: fmt.Sprintf("Order %s has been cancelled", f.order.OrderNumber),
		})
	}
	f.log.Info().Str("order_number", f.order.OrderNumber).Msg("order cancelled")
	return nil
}
