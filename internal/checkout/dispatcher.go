package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ms-booking/internal/booking"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
)

var (
	ErrTermsNotAccepted = errors.New("checkout: required agreements not accepted")
	ErrPaymentInFlight  = errors.New("checkout: a payment is already being processed")
	ErrUnknownMethod    = errors.New("checkout: unknown payment method")
)

// ProviderError wraps a failure at the payment provider. The checkout
// stays on the payment step when it occurs; no charge was completed.
type ProviderError struct {
	Method models.PaymentMethod
	Err    error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("payment provider %s: %v", e.Method, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// PaymentContext carries per-attempt data into a strategy.
type PaymentContext struct {
	BookingID     string
	Amount        float64
	PayPalOrderID string
}

// TransactionOutcome is what a strategy reports after the provider has
// accepted the charge. TransactionID is nil for manual payments.
type TransactionOutcome struct {
	Method        models.PaymentMethod
	Amount        float64
	TransactionID *string
}

type PaymentStrategy interface {
	Method() models.PaymentMethod
	Initiate(ctx context.Context, pc PaymentContext) (*TransactionOutcome, error)
}

// OutcomeRecorder is the slice of the booking service the dispatcher
// needs to persist a payment outcome.
type OutcomeRecorder interface {
	RecordPayment(ctx context.Context, id, userID string, update models.PaymentUpdate) (*models.Booking, error)
	ParkPayment(bookingID string, update models.PaymentUpdate, reason string) error
}

// Dispatcher routes a finalize request to the chosen strategy and owns
// the terms gate, the single-flight guard and outcome persistence.
type Dispatcher struct {
	strategies map[models.PaymentMethod]PaymentStrategy
	recorder   OutcomeRecorder
	logger     *logger.Logger

	maxAttempts int
	backoff     time.Duration

	mu       sync.Mutex
	inFlight map[string]bool
}

func NewDispatcher(recorder OutcomeRecorder, log *logger.Logger, strategies ...PaymentStrategy) *Dispatcher {
	d := &Dispatcher{
		strategies:  make(map[models.PaymentMethod]PaymentStrategy, len(strategies)),
		recorder:    recorder,
		logger:      log,
		maxAttempts: 3,
		backoff:     500 * time.Millisecond,
		inFlight:    make(map[string]bool),
	}
	for _, s := range strategies {
		d.strategies[s.Method()] = s
	}
	return d
}

// Finalize runs checkout step 3 end to end: terms gate, provider charge,
// outcome PUT, session completion. At most one finalize is admitted per
// booking; a concurrent call for the same booking gets
// ErrPaymentInFlight instead of a second charge.
func (d *Dispatcher) Finalize(ctx context.Context, seq *Sequencer, agreements models.Agreements, method models.PaymentMethod, pc PaymentContext) (*models.Booking, error) {
	if !agreements.Accepted() {
		return nil, ErrTermsNotAccepted
	}

	bookingID := seq.Session().BookingID
	if bookingID == "" {
		return nil, ErrNoBooking
	}

	d.mu.Lock()
	if d.inFlight[bookingID] {
		d.mu.Unlock()
		return nil, ErrPaymentInFlight
	}
	d.inFlight[bookingID] = true
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		delete(d.inFlight, bookingID)
		d.mu.Unlock()
	}()

	if seq.Step() != StepPayment {
		return nil, fmt.Errorf("%w: step is %s", ErrWrongStep, seq.Step())
	}

	strategy, ok := d.strategies[method]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}

	current, err := seq.Booking()
	if err != nil {
		return nil, err
	}
	pc.BookingID = current.ID
	pc.Amount = current.TotalAmount

	outcome, err := strategy.Initiate(ctx, pc)
	if err != nil {
		d.logger.LogPayment(string(method), current.ID, fmt.Sprintf("provider error: %v", err))
		return nil, &ProviderError{Method: method, Err: err}
	}

	update := models.PaymentUpdate{
		PaymentMethod: outcome.Method,
		PaymentAmount: outcome.Amount,
		TransactionID: outcome.TransactionID,
	}

	confirmed, err := d.recordWithRetry(ctx, seq.Session(), update)
	if err != nil {
		// The provider took the money but the outcome could not be
		// recorded. Park the charge so reconciliation can pick it up;
		// the session stays on the payment step.
		if parkErr := d.recorder.ParkPayment(current.ID, update, err.Error()); parkErr != nil {
			d.logger.Error("PAYMENT", fmt.Sprintf("park failed for %s: %v", current.ID, parkErr))
		}
		return nil, fmt.Errorf("record payment outcome: %w", err)
	}

	if err := seq.Complete(); err != nil {
		return nil, err
	}
	return confirmed, nil
}

// recordWithRetry retries the outcome PUT on transient failures. Domain
// rejections are permanent and returned immediately.
func (d *Dispatcher) recordWithRetry(ctx context.Context, session CheckoutSession, update models.PaymentUpdate) (*models.Booking, error) {
	var lastErr error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		confirmed, err := d.recorder.RecordPayment(ctx, session.BookingID, session.UserID, update)
		if err == nil {
			return confirmed, nil
		}
		if isPermanent(err) {
			return nil, err
		}
		lastErr = err
		d.logger.Warn("PAYMENT", fmt.Sprintf("outcome PUT attempt %d/%d for %s failed: %v", attempt, d.maxAttempts, session.BookingID, err))

		if attempt < d.maxAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(d.backoff * time.Duration(attempt)):
			}
		}
	}
	return nil, fmt.Errorf("exhausted %d attempts: %w", d.maxAttempts, lastErr)
}

func isPermanent(err error) bool {
	return errors.Is(err, booking.ErrAmountMismatch) ||
		errors.Is(err, booking.ErrNotPending) ||
		errors.Is(err, booking.ErrCapacityGone) ||
		errors.Is(err, booking.ErrForbidden) ||
		errors.Is(err, booking.ErrNotFound)
}
