package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-booking/internal/booking/db"
	"ms-booking/internal/capacity"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/pricing"

	"github.com/google/uuid"
)

var (
	ErrNotFound       = errors.New("booking not found")
	ErrForbidden      = errors.New("booking belongs to another user")
	ErrNotPending     = errors.New("booking is no longer pending")
	ErrAmountMismatch = errors.New("payment amount does not match the booking total")
	ErrCapacityGone   = errors.New("capacity is no longer available")
	ErrHoldFailed     = errors.New("could not hold places for the booking")
)

type DBLayer interface {
	CreateBooking(booking models.Booking) error
	GetBookingByID(id string) (*models.Booking, error)
	GetBookingsByUserID(userID string) ([]models.Booking, error)
	UpdateExtras(booking models.Booking) error
	UpdatePayment(id string, update models.PaymentUpdate, paidAt time.Time) (int64, error)
	CancelBooking(id string) error
	GetDateOption(id string) (*models.DateOption, error)
	GetTravelDeal(id string) (*models.TravelDeal, error)
	DecrementCapacity(id string, places int) error
	IncrementCapacity(id string, places int) error
	InsertReconciliationEntry(entry db.ReconciliationEntry) error
}

type CapacityHold interface {
	HoldPlaces(ctx context.Context, dateOptionID, bookingID string, travellers int) (bool, error)
	ReleaseHold(ctx context.Context, dateOptionID, bookingID string) error
	HeldPlaces(ctx context.Context, dateOptionID string) (int, error)
}

type EventPublisher interface {
	PublishBookingCreated(event models.BookingEvent) error
	PublishBookingUpdated(event models.BookingEvent) error
	PublishBookingConfirmed(event models.BookingEvent) error
	PublishBookingCanceled(event models.BookingEvent) error
	PublishPaymentSuccess(event models.PaymentEvent) error
	PublishPaymentFailed(event models.PaymentEvent) error
}

type Mailer interface {
	SendConfirmation(booking *models.Booking) error
	SendCancellation(booking *models.Booking) error
}

type Service struct {
	DB      DBLayer
	Hold    CapacityHold
	Kafka   EventPublisher
	Mailer  Mailer
	Pricing *pricing.Engine
	Logger  *logger.Logger
}

func NewService(database DBLayer, hold CapacityHold, kafka EventPublisher, mailer Mailer, engine *pricing.Engine, log *logger.Logger) *Service {
	return &Service{
		DB:      database,
		Hold:    hold,
		Kafka:   kafka,
		Mailer:  mailer,
		Pricing: engine,
		Logger:  log,
	}
}

// CreateBooking runs checkout step 1: validates the trip selection, gates
// on effective capacity (stored capacity minus live holds), takes a hold
// and persists the pending booking. The hold is rolled back if the insert
// fails.
func (s *Service) CreateBooking(ctx context.Context, userID string, req models.BookingRequest) (*models.Booking, error) {
	option, err := s.DB.GetDateOption(req.DateOptionID)
	if err != nil {
		return nil, fmt.Errorf("date option %s: %w", req.DateOptionID, err)
	}
	if option.TravelDealID != req.TravelDealID {
		return nil, fmt.Errorf("date option %s does not belong to deal %s", req.DateOptionID, req.TravelDealID)
	}

	held, err := s.Hold.HeldPlaces(ctx, option.ID)
	if err != nil {
		return nil, fmt.Errorf("check held places: %w", err)
	}
	effective := option.Capacity - held
	if err := capacity.Validate(req.Travellers, effective); err != nil {
		return nil, err
	}

	base, err := pricing.ParseAmount(option.DiscountedPrice)
	if err != nil {
		return nil, err
	}
	quote := s.Pricing.Quote(base, req.Travellers, req.RoomOption, req.Donation)

	now := time.Now()
	booking := models.Booking{
		ID:            uuid.New().String(),
		UserID:        userID,
		TravelDealID:  req.TravelDealID,
		DateOptionID:  req.DateOptionID,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Email:         req.Email,
		Phone:         req.Phone,
		AddressLine1:  req.AddressLine1,
		AddressLine2:  req.AddressLine2,
		Town:          req.Town,
		State:         req.State,
		Postcode:      req.Postcode,
		Country:       req.Country,
		Travellers:    req.Travellers,
		RoomOption:    req.RoomOption,
		Donation:      req.Donation,
		TotalAmount:   quote.Total,
		Status:        models.BookingPending,
		PaymentStatus: models.PaymentPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	ok, err := s.Hold.HoldPlaces(ctx, option.ID, booking.ID, req.Travellers)
	if err != nil {
		return nil, fmt.Errorf("hold places: %w", err)
	}
	if !ok {
		return nil, ErrHoldFailed
	}

	if err := s.DB.CreateBooking(booking); err != nil {
		s.Logger.Error("BOOKING", fmt.Sprintf("create failed for %s, releasing hold: %v", booking.ID, err))
		_ = s.Hold.ReleaseHold(ctx, option.ID, booking.ID)
		return nil, fmt.Errorf("create booking: %w", err)
	}

	s.Logger.LogBooking("CREATE", booking.ID, fmt.Sprintf("user %s, %d traveller(s), total %.2f", userID, booking.Travellers, booking.TotalAmount))

	if err := s.Kafka.PublishBookingCreated(s.event(&booking)); err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("publish booking.created for %s: %v", booking.ID, err))
	}

	return &booking, nil
}

// GetBooking fetches a booking the caller owns.
func (s *Service) GetBooking(id, userID string) (*models.Booking, error) {
	booking, err := s.DB.GetBookingByID(id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if booking.UserID != userID {
		return nil, ErrForbidden
	}
	return booking, nil
}

func (s *Service) ListBookings(userID string) ([]models.Booking, error) {
	return s.DB.GetBookingsByUserID(userID)
}

// UpdateExtras runs checkout step 2: applies traveller/room/donation
// changes to a pending booking and reprices it from the stored catalog
// price, never from anything the client sent.
func (s *Service) UpdateExtras(ctx context.Context, id, userID string, update models.ExtrasUpdate) (*models.Booking, error) {
	booking, err := s.GetBooking(id, userID)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.BookingPending {
		return nil, ErrNotPending
	}

	origTravellers := booking.Travellers
	if update.Travellers != nil {
		booking.Travellers = *update.Travellers
	}
	if update.RoomOption != nil {
		booking.RoomOption = *update.RoomOption
	}
	if update.AddTransfer != nil {
		booking.AddTransfer = *update.AddTransfer
	}
	if update.AddNights != nil {
		booking.AddNights = *update.AddNights
	}
	if update.FlightHelp != nil {
		booking.FlightHelp = *update.FlightHelp
	}
	if update.Donation != nil {
		booking.Donation = *update.Donation
	}

	option, err := s.DB.GetDateOption(booking.DateOptionID)
	if err != nil {
		return nil, fmt.Errorf("date option %s: %w", booking.DateOptionID, err)
	}

	held, err := s.Hold.HeldPlaces(ctx, option.ID)
	if err != nil {
		return nil, fmt.Errorf("check held places: %w", err)
	}
	// The booking's own hold is part of the held total; it keeps its
	// original places, so only the increase competes with others.
	if err := capacity.Validate(booking.Travellers, option.Capacity-held+origTravellers); err != nil {
		return nil, err
	}

	base, err := pricing.ParseAmount(option.DiscountedPrice)
	if err != nil {
		return nil, err
	}
	quote := s.Pricing.Quote(base, booking.Travellers, booking.RoomOption, booking.Donation)
	booking.TotalAmount = quote.Total
	booking.UpdatedAt = time.Now()

	if err := s.DB.UpdateExtras(*booking); err != nil {
		return nil, fmt.Errorf("update extras: %w", err)
	}

	// Refresh the hold so it covers the new traveller count.
	if booking.Travellers != origTravellers {
		if err := s.Hold.ReleaseHold(ctx, option.ID, booking.ID); err == nil {
			if _, err := s.Hold.HoldPlaces(ctx, option.ID, booking.ID, booking.Travellers); err != nil {
				s.Logger.Warn("REDIS", fmt.Sprintf("re-hold for %s: %v", booking.ID, err))
			}
		}
	}

	s.Logger.LogBooking("EXTRAS", booking.ID, fmt.Sprintf("travellers=%d room=%s donation=%t total=%.2f", booking.Travellers, booking.RoomOption, booking.Donation, booking.TotalAmount))

	if err := s.Kafka.PublishBookingUpdated(s.event(booking)); err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("publish booking.updated for %s: %v", booking.ID, err))
	}

	return booking, nil
}

// RecordPayment runs checkout step 3: verifies the submitted amount
// against a server-derived quote, consumes capacity and confirms the
// booking. This is the only transition to confirmed.
func (s *Service) RecordPayment(ctx context.Context, id, userID string, update models.PaymentUpdate) (*models.Booking, error) {
	booking, err := s.GetBooking(id, userID)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.BookingPending {
		return nil, ErrNotPending
	}

	option, err := s.DB.GetDateOption(booking.DateOptionID)
	if err != nil {
		return nil, fmt.Errorf("date option %s: %w", booking.DateOptionID, err)
	}
	base, err := pricing.ParseAmount(option.DiscountedPrice)
	if err != nil {
		return nil, err
	}
	quote := s.Pricing.Quote(base, booking.Travellers, booking.RoomOption, booking.Donation)
	if update.PaymentAmount != quote.Total {
		return nil, fmt.Errorf("%w: got %.2f, expected %.2f", ErrAmountMismatch, update.PaymentAmount, quote.Total)
	}

	// Capacity is consumed here, not at create. The guard catches the
	// case where the hold expired and the places went to someone else.
	if err := s.DB.DecrementCapacity(option.ID, booking.Travellers); err != nil {
		if errors.Is(err, db.ErrCapacityGone) {
			return nil, ErrCapacityGone
		}
		return nil, fmt.Errorf("decrement capacity: %w", err)
	}

	paidAt := time.Now()
	affected, err := s.DB.UpdatePayment(booking.ID, update, paidAt)
	if err != nil {
		_ = s.DB.IncrementCapacity(option.ID, booking.Travellers)
		return nil, fmt.Errorf("record payment: %w", err)
	}
	if affected == 0 {
		_ = s.DB.IncrementCapacity(option.ID, booking.Travellers)
		return nil, ErrNotPending
	}

	booking.Status = models.BookingConfirmed
	booking.PaymentStatus = models.PaymentPaid
	booking.PaymentMethod = update.PaymentMethod
	booking.PaymentAmount = update.PaymentAmount
	if update.TransactionID != nil {
		booking.TransactionID = *update.TransactionID
	}
	booking.PaidAt = &paidAt

	if err := s.Hold.ReleaseHold(ctx, option.ID, booking.ID); err != nil {
		s.Logger.Warn("REDIS", fmt.Sprintf("release hold for %s: %v", booking.ID, err))
	}

	s.Logger.LogPayment(string(update.PaymentMethod), booking.ID, fmt.Sprintf("recorded %.2f, booking confirmed", update.PaymentAmount))

	if err := s.Mailer.SendConfirmation(booking); err != nil {
		s.Logger.Warn("MAILER", fmt.Sprintf("confirmation mail for %s: %v", booking.ID, err))
	}
	if err := s.Kafka.PublishBookingConfirmed(s.event(booking)); err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("publish booking.confirmed for %s: %v", booking.ID, err))
	}
	if err := s.Kafka.PublishPaymentSuccess(paymentEvent(booking.ID, update, "")); err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("publish payment.success for %s: %v", booking.ID, err))
	}

	return booking, nil
}

// ParkPayment journals a charge that succeeded at the provider but could
// not be recorded against its booking.
func (s *Service) ParkPayment(bookingID string, update models.PaymentUpdate, reason string) error {
	txnID := ""
	if update.TransactionID != nil {
		txnID = *update.TransactionID
	}
	entry := db.ReconciliationEntry{
		ID:            uuid.New().String(),
		BookingID:     bookingID,
		PaymentMethod: string(update.PaymentMethod),
		Amount:        update.PaymentAmount,
		TransactionID: txnID,
		Reason:        reason,
		CreatedAt:     time.Now(),
	}
	if err := s.DB.InsertReconciliationEntry(entry); err != nil {
		return fmt.Errorf("park payment for %s: %w", bookingID, err)
	}
	s.Logger.Error("PAYMENT", fmt.Sprintf("parked charge for booking %s (txn %s): %s", bookingID, txnID, reason))

	if err := s.Kafka.PublishPaymentFailed(paymentEvent(bookingID, update, reason)); err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("publish payment.failed for %s: %v", bookingID, err))
	}
	return nil
}

// CancelBooking cancels a pending or confirmed booking, releases its
// hold or returns its consumed places, and notifies the traveller.
func (s *Service) CancelBooking(ctx context.Context, id, userID string) error {
	booking, err := s.GetBooking(id, userID)
	if err != nil {
		return err
	}
	if booking.Status == models.BookingCanceled {
		return nil
	}
	wasConfirmed := booking.Status == models.BookingConfirmed

	if err := s.DB.CancelBooking(booking.ID); err != nil {
		return fmt.Errorf("cancel booking %s: %w", id, err)
	}
	booking.Status = models.BookingCanceled

	if wasConfirmed {
		if err := s.DB.IncrementCapacity(booking.DateOptionID, booking.Travellers); err != nil {
			s.Logger.Error("BOOKING", fmt.Sprintf("return capacity for %s: %v", booking.ID, err))
		}
	} else {
		if err := s.Hold.ReleaseHold(ctx, booking.DateOptionID, booking.ID); err != nil {
			s.Logger.Warn("REDIS", fmt.Sprintf("release hold for %s: %v", booking.ID, err))
		}
	}

	s.Logger.LogBooking("CANCEL", booking.ID, fmt.Sprintf("user %s", userID))

	if err := s.Mailer.SendCancellation(booking); err != nil {
		s.Logger.Warn("MAILER", fmt.Sprintf("cancellation mail for %s: %v", booking.ID, err))
	}
	if err := s.Kafka.PublishBookingCanceled(s.event(booking)); err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("publish booking.canceled for %s: %v", booking.ID, err))
	}

	return nil
}

// CancelExpired is invoked by the hold-expiry subscriber: the hold is
// already gone, so only the booking row and notifications remain.
func (s *Service) CancelExpired(bookingID string) error {
	booking, err := s.DB.GetBookingByID(bookingID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil
		}
		return err
	}
	if booking.Status != models.BookingPending {
		return nil
	}

	if err := s.DB.CancelBooking(booking.ID); err != nil {
		return fmt.Errorf("cancel expired booking %s: %w", bookingID, err)
	}
	booking.Status = models.BookingCanceled

	s.Logger.LogBooking("EXPIRE", booking.ID, "capacity hold expired, booking canceled")

	if err := s.Mailer.SendCancellation(booking); err != nil {
		s.Logger.Warn("MAILER", fmt.Sprintf("cancellation mail for %s: %v", booking.ID, err))
	}
	if err := s.Kafka.PublishBookingCanceled(s.event(booking)); err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("publish booking.canceled for %s: %v", booking.ID, err))
	}
	return nil
}

func paymentEvent(bookingID string, update models.PaymentUpdate, reason string) models.PaymentEvent {
	txnID := ""
	if update.TransactionID != nil {
		txnID = *update.TransactionID
	}
	return models.PaymentEvent{
		BookingID:     bookingID,
		PaymentMethod: update.PaymentMethod,
		Amount:        update.PaymentAmount,
		TransactionID: txnID,
		Reason:        reason,
		OccurredAt:    time.Now(),
	}
}

func (s *Service) event(b *models.Booking) models.BookingEvent {
	return models.BookingEvent{
		BookingID:    b.ID,
		UserID:       b.UserID,
		TravelDealID: b.TravelDealID,
		DateOptionID: b.DateOptionID,
		Status:       b.Status,
		Travellers:   b.Travellers,
		TotalAmount:  b.TotalAmount,
		OccurredAt:   time.Now(),
	}
}
