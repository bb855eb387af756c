package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"ms-booking/internal/models"

	"github.com/uptrace/bun"
)

// ErrCapacityGone means the conditional capacity decrement found fewer
// places than requested. The caller decides how to surface it.
var ErrCapacityGone = errors.New("db: not enough capacity left")

type DB struct {
	Bun *bun.DB
}

// ---------------- BOOKINGS ----------------

func (d *DB) CreateBooking(booking models.Booking) error {
	_, err := d.Bun.NewInsert().Model(&booking).Exec(context.Background())
	return err
}

// GetBookingByID fetches one booking with its deal and date option loaded.
func (d *DB) GetBookingByID(id string) (*models.Booking, error) {
	var booking models.Booking
	err := d.Bun.NewSelect().
		Model(&booking).
		Relation("TravelDeal").
		Relation("DateOption").
		Where("booking.id = ?", id).
		Limit(1).
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (d *DB) GetBookingsByUserID(userID string) ([]models.Booking, error) {
	var bookings []models.Booking
	err := d.Bun.NewSelect().
		Model(&bookings).
		Relation("TravelDeal").
		Relation("DateOption").
		Where("booking.user_id = ?", userID).
		Order("booking.created_at DESC").
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}
	return bookings, nil
}

// UpdateExtras rewrites the step-2 fields and the recomputed total.
func (d *DB) UpdateExtras(booking models.Booking) error {
	_, err := d.Bun.NewUpdate().
		Model(&booking).
		Column("travellers", "room_option", "add_transfer", "add_nights", "flight_help", "donation", "total_amount", "updated_at").
		Where("id = ?", booking.ID).
		Exec(context.Background())
	return err
}

// UpdatePayment records a payment outcome and flips the booking to
// confirmed/paid in one statement, but only while it is still pending.
func (d *DB) UpdatePayment(id string, update models.PaymentUpdate, paidAt time.Time) (int64, error) {
	txnID := ""
	if update.TransactionID != nil {
		txnID = *update.TransactionID
	}

	res, err := d.Bun.NewUpdate().
		Model((*models.Booking)(nil)).
		Set("payment_method = ?", update.PaymentMethod).
		Set("payment_amount = ?", update.PaymentAmount).
		Set("transaction_id = ?", txnID).
		Set("payment_status = ?", models.PaymentPaid).
		Set("status = ?", models.BookingConfirmed).
		Set("paid_at = ?", paidAt).
		Set("updated_at = ?", paidAt).
		Where("id = ?", id).
		Where("status = ?", models.BookingPending).
		Exec(context.Background())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (d *DB) UpdateBooking(booking models.Booking) error {
	_, err := d.Bun.NewUpdate().
		Model(&booking).
		Column("status", "payment_status", "total_amount", "updated_at").
		Where("id = ?", booking.ID).
		Exec(context.Background())
	return err
}

// CancelBooking marks the booking canceled. The row is kept for the
// user's history and for reporting.
func (d *DB) CancelBooking(id string) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Booking)(nil)).
		Set("status = ?", models.BookingCanceled).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(context.Background())
	return err
}

// ---------------- CATALOG ----------------

func (d *DB) GetTravelDeal(id string) (*models.TravelDeal, error) {
	var deal models.TravelDeal
	err := d.Bun.NewSelect().
		Model(&deal).
		Where("id = ?", id).
		Limit(1).
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return &deal, nil
}

func (d *DB) GetDateOption(id string) (*models.DateOption, error) {
	var option models.DateOption
	err := d.Bun.NewSelect().
		Model(&option).
		Relation("TravelDeal").
		Where("date_option.id = ?", id).
		Limit(1).
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return &option, nil
}

// DecrementCapacity takes places off a date option, guarded so capacity
// never goes negative. Returns ErrCapacityGone when the guard fails.
func (d *DB) DecrementCapacity(id string, places int) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.DateOption)(nil)).
		Set("capacity = capacity - ?", places).
		Where("id = ?", id).
		Where("capacity >= ?", places).
		Exec(context.Background())
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrCapacityGone
	}
	return nil
}

// IncrementCapacity gives places back after a confirmed booking cancels.
func (d *DB) IncrementCapacity(id string, places int) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.DateOption)(nil)).
		Set("capacity = capacity + ?", places).
		Where("id = ?", id).
		Exec(context.Background())
	return err
}

// ---------------- RECONCILIATION ----------------

// ReconciliationEntry parks a charge whose outcome could not be recorded
// against its booking, for manual follow-up.
type ReconciliationEntry struct {
	bun.BaseModel `bun:"table:reconciliation_entries"`

	ID            string    `bun:"id,pk"`
	BookingID     string    `bun:"booking_id,notnull"`
	PaymentMethod string    `bun:"payment_method,notnull"`
	Amount        float64   `bun:"amount,notnull"`
	TransactionID string    `bun:"transaction_id,nullzero"`
	Reason        string    `bun:"reason,notnull"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
	Resolved      bool      `bun:"resolved,notnull,default:false"`
}

func (d *DB) InsertReconciliationEntry(entry ReconciliationEntry) error {
	_, err := d.Bun.NewInsert().Model(&entry).Exec(context.Background())
	return err
}

func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
