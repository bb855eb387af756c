package models

import (
	"time"
)

// Payment is the gateway-side record of an initiated charge, keyed by
// the booking it pays for.
type Payment struct {
	PaymentID     string        `json:"payment_id" bun:"payment_id,pk"`
	BookingID     string        `json:"booking_id" bun:"booking_id"`
	Method        PaymentMethod `json:"method" bun:"method"`
	Status        PaymentStatus `json:"status" bun:"status"`
	Amount        float64       `json:"amount" bun:"amount"`
	Currency      string        `json:"currency" bun:"currency"`
	TransactionID string        `json:"transaction_id,omitempty" bun:"transaction_id,nullzero"`
	CreatedDate   time.Time     `json:"created_date" bun:"created_date"`
	UpdatedDate   time.Time     `json:"updated_date,omitempty" bun:"updated_date,nullzero"`
}

type IntentRequest struct {
	BookingID string  `json:"booking_id" validate:"required"`
	Amount    float64 `json:"amount" validate:"required,gt=0"`
	Currency  string  `json:"currency"`
}

type IntentResponse struct {
	PaymentID    string `json:"payment_id"`
	ClientSecret string `json:"client_secret"`
	IntentID     string `json:"intent_id"`
}

type PayPalVerifyRequest struct {
	BookingID string `json:"booking_id" validate:"required"`
	OrderID   string `json:"order_id" validate:"required"`
}

type PayPalVerifyResponse struct {
	OrderID  string  `json:"order_id"`
	Status   string  `json:"status"`
	Amount   float64 `json:"amount"`
	Verified bool    `json:"verified"`
}

type RefundRequest struct {
	PaymentID string `json:"payment_id" validate:"required"`
	Reason    string `json:"reason"`
}
