package models

import "time"

// BookingEvent is the payload published to Kafka on booking lifecycle
// changes and fanned out over the SSE stream.
type BookingEvent struct {
	BookingID    string        `json:"booking_id"`
	UserID       string        `json:"user_id"`
	TravelDealID string        `json:"travel_deal_id"`
	DateOptionID string        `json:"date_option_id"`
	Status       BookingStatus `json:"status"`
	Travellers   int           `json:"travellers"`
	TotalAmount  float64       `json:"total_amount"`
	OccurredAt   time.Time     `json:"occurred_at"`
}

// PaymentEvent is the payload published on payment outcomes. Failed
// outcomes carry the reason the charge could not be recorded.
type PaymentEvent struct {
	BookingID     string        `json:"booking_id"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Amount        float64       `json:"amount"`
	TransactionID string        `json:"transaction_id,omitempty"`
	Reason        string        `json:"reason,omitempty"`
	OccurredAt    time.Time     `json:"occurred_at"`
}
