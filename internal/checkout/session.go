package checkout

import (
	"context"
	"errors"
	"fmt"

	"ms-booking/internal/models"
)

type Step string

const (
	StepDetails  Step = "details"
	StepExtras   Step = "extras"
	StepPayment  Step = "payment"
	StepComplete Step = "complete"
	StepFailed   Step = "failed"
)

var (
	ErrNoBooking = errors.New("checkout: no booking created yet")
	ErrWrongStep = errors.New("checkout: operation not allowed in current step")
)

// CheckoutSession carries the state a checkout accumulates between steps.
// The booking row stays the source of truth; the session only remembers
// which booking is in flight and where the user is.
type CheckoutSession struct {
	BookingID   string            `json:"booking_id,omitempty"`
	UserID      string            `json:"user_id"`
	Step        Step              `json:"step"`
	Travellers  int               `json:"travellers"`
	Room        models.RoomOption `json:"room_option"`
	AddTransfer bool              `json:"add_transfer"`
	AddNights   bool              `json:"add_nights"`
	FlightHelp  bool              `json:"flight_help"`
	Donation    bool              `json:"donation"`
	Total       float64           `json:"total"`
}

// BookingOps is the slice of the booking service the sequencer drives.
type BookingOps interface {
	CreateBooking(ctx context.Context, userID string, req models.BookingRequest) (*models.Booking, error)
	UpdateExtras(ctx context.Context, id, userID string, update models.ExtrasUpdate) (*models.Booking, error)
	GetBooking(id, userID string) (*models.Booking, error)
}

// Sequencer enforces the step order Details -> Extras -> Payment ->
// Complete. Every advance goes through the booking service, so a stale
// session can never move past a booking that no longer allows it.
type Sequencer struct {
	ops     BookingOps
	session CheckoutSession
}

func NewSequencer(ops BookingOps, userID string) *Sequencer {
	return &Sequencer{
		ops: ops,
		session: CheckoutSession{
			UserID: userID,
			Step:   StepDetails,
		},
	}
}

// ResumeSequencer rebuilds a sequencer at the payment step for an
// existing pending booking, so finalize can be driven over HTTP without
// the in-process state of the earlier steps.
func ResumeSequencer(ops BookingOps, userID, bookingID string) (*Sequencer, error) {
	s := &Sequencer{
		ops: ops,
		session: CheckoutSession{
			UserID:    userID,
			BookingID: bookingID,
		},
	}

	booking, err := s.Booking()
	if err != nil {
		return nil, err
	}
	if booking.Status != models.BookingPending {
		return nil, fmt.Errorf("%w: booking is %s", ErrWrongStep, booking.Status)
	}

	s.syncFromBooking(booking)
	s.session.Step = StepPayment
	return s, nil
}

func (s *Sequencer) Step() Step {
	return s.session.Step
}

func (s *Sequencer) Session() CheckoutSession {
	return s.session
}

// SubmitDetails runs step 1 and advances to Extras on success.
func (s *Sequencer) SubmitDetails(ctx context.Context, req models.BookingRequest) (*models.Booking, error) {
	if s.session.Step != StepDetails {
		return nil, fmt.Errorf("%w: step is %s", ErrWrongStep, s.session.Step)
	}

	booking, err := s.ops.CreateBooking(ctx, s.session.UserID, req)
	if err != nil {
		return nil, err
	}

	s.session.BookingID = booking.ID
	s.syncFromBooking(booking)
	s.session.Step = StepExtras
	return booking, nil
}

// SubmitExtras runs step 2 and advances to Payment on success.
func (s *Sequencer) SubmitExtras(ctx context.Context, update models.ExtrasUpdate) (*models.Booking, error) {
	if s.session.Step != StepExtras {
		return nil, fmt.Errorf("%w: step is %s", ErrWrongStep, s.session.Step)
	}
	if s.session.BookingID == "" {
		return nil, ErrNoBooking
	}

	booking, err := s.ops.UpdateExtras(ctx, s.session.BookingID, s.session.UserID, update)
	if err != nil {
		return nil, err
	}

	s.syncFromBooking(booking)
	s.session.Step = StepPayment
	return booking, nil
}

func (s *Sequencer) syncFromBooking(booking *models.Booking) {
	s.session.Travellers = booking.Travellers
	s.session.Room = booking.RoomOption
	s.session.AddTransfer = booking.AddTransfer
	s.session.AddNights = booking.AddNights
	s.session.FlightHelp = booking.FlightHelp
	s.session.Donation = booking.Donation
	s.session.Total = booking.TotalAmount
}

// Back steps one screen back. Details is the floor; a completed or
// failed checkout cannot be re-entered.
func (s *Sequencer) Back() error {
	switch s.session.Step {
	case StepExtras:
		s.session.Step = StepDetails
	case StepPayment:
		s.session.Step = StepExtras
	default:
		return fmt.Errorf("%w: cannot go back from %s", ErrWrongStep, s.session.Step)
	}
	return nil
}

// Complete is invoked by the dispatcher once the payment outcome has
// been recorded. It is the only way into StepComplete.
func (s *Sequencer) Complete() error {
	if s.session.Step != StepPayment {
		return fmt.Errorf("%w: step is %s", ErrWrongStep, s.session.Step)
	}
	if s.session.BookingID == "" {
		return ErrNoBooking
	}
	s.session.Step = StepComplete
	return nil
}

// Fail absorbs an unrecoverable checkout error.
func (s *Sequencer) Fail() {
	s.session.Step = StepFailed
}

// Booking re-fetches the in-flight booking.
func (s *Sequencer) Booking() (*models.Booking, error) {
	if s.session.BookingID == "" {
		return nil, ErrNoBooking
	}
	return s.ops.GetBooking(s.session.BookingID, s.session.UserID)
}
