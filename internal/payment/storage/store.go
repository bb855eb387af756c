package storage

import (
	"ms-booking/internal/models"
)

type Store interface {
	// Payment operations
	SavePayment(payment *models.Payment) error
	GetPayment(id string) (*models.Payment, error)
	GetPaymentByBookingID(bookingID string) (*models.Payment, error)
	UpdatePayment(payment *models.Payment) error
	ListPayments(limit, offset int) ([]*models.Payment, error)

	// Health and maintenance
	Close() error
	HealthCheck() error
}
