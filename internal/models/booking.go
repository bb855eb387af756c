package models

import (
	"time"

	"github.com/uptrace/bun"
)

type RoomOption string

const (
	RoomShared  RoomOption = "shared"
	RoomPrivate RoomOption = "private"
)

type PaymentMethod string

const (
	MethodManual PaymentMethod = "manual"
	MethodStripe PaymentMethod = "stripe"
	MethodPayPal PaymentMethod = "paypal"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCompleted BookingStatus = "completed"
	BookingCanceled  BookingStatus = "canceled"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

type Booking struct {
	bun.BaseModel `bun:"table:bookings"`

	ID           string `bun:"id,pk" json:"id"`
	UserID       string `bun:"user_id,notnull" json:"user_id"`
	TravelDealID string `bun:"travel_deal_id,notnull" json:"travel_deal_id"`
	DateOptionID string `bun:"date_option_id,notnull" json:"date_option_id"`

	FirstName string `bun:"first_name,notnull" json:"first_name"`
	LastName  string `bun:"last_name,notnull" json:"last_name"`
	Email     string `bun:"email,notnull" json:"email"`
	Phone     string `bun:"phone,nullzero" json:"phone,omitempty"`

	AddressLine1 string `bun:"address_line1,nullzero" json:"address_line1,omitempty"`
	AddressLine2 string `bun:"address_line2,nullzero" json:"address_line2,omitempty"`
	Town         string `bun:"town,nullzero" json:"town,omitempty"`
	State        string `bun:"state,nullzero" json:"state,omitempty"`
	Postcode     string `bun:"postcode,nullzero" json:"postcode,omitempty"`
	Country      string `bun:"country,nullzero" json:"country,omitempty"`

	Travellers  int        `bun:"travellers,notnull" json:"travellers"`
	RoomOption  RoomOption `bun:"room_option,notnull" json:"room_option"`
	AddTransfer bool       `bun:"add_transfer,notnull,default:false" json:"add_transfer"`
	AddNights   bool       `bun:"add_nights,notnull,default:false" json:"add_nights"`
	FlightHelp  bool       `bun:"flight_help,notnull,default:false" json:"flight_help"`
	Donation    bool       `bun:"donation,notnull,default:false" json:"donation"`
	TotalAmount float64    `bun:"total_amount,notnull" json:"total_amount"`

	Status        BookingStatus `bun:"status,notnull" json:"status"`
	PaymentStatus PaymentStatus `bun:"payment_status,notnull" json:"payment_status"`
	PaymentMethod PaymentMethod `bun:"payment_method,nullzero" json:"payment_method,omitempty"`
	PaymentAmount float64       `bun:"payment_amount,nullzero" json:"payment_amount,omitempty"`
	TransactionID string        `bun:"transaction_id,nullzero" json:"transaction_id,omitempty"`
	PaidAt        *time.Time    `bun:"paid_at,nullzero" json:"paid_at,omitempty"`

	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updated_at"`

	TravelDeal *TravelDeal `bun:"rel:belongs-to,join:travel_deal_id=id" json:"travel_deal,omitempty"`
	DateOption *DateOption `bun:"rel:belongs-to,join:date_option_id=id" json:"date_option,omitempty"`
}

// FullName composes the traveller's name for emails and invoices.
func (b *Booking) FullName() string {
	return b.FirstName + " " + b.LastName
}

// BookingRequest is the create-booking payload (checkout step 1).
type BookingRequest struct {
	TravelDealID string     `json:"travel_deal_id" validate:"required"`
	DateOptionID string     `json:"date_option_id" validate:"required"`
	FirstName    string     `json:"first_name" validate:"required"`
	LastName     string     `json:"last_name" validate:"required"`
	Email        string     `json:"email" validate:"required,email"`
	Phone        string     `json:"phone"`
	AddressLine1 string     `json:"address_line1"`
	AddressLine2 string     `json:"address_line2"`
	Town         string     `json:"town"`
	State        string     `json:"state"`
	Postcode     string     `json:"postcode"`
	Country      string     `json:"country"`
	Travellers   int        `json:"travellers" validate:"required,gt=0"`
	RoomOption   RoomOption `json:"room_option" validate:"required,oneof=shared private"`
	Donation     bool       `json:"donation"`
}

// ExtrasUpdate is the step-2 payload. Pointers distinguish "leave as is"
// from an explicit change.
type ExtrasUpdate struct {
	Travellers  *int        `json:"travellers,omitempty" validate:"omitempty,gt=0"`
	RoomOption  *RoomOption `json:"room_option,omitempty" validate:"omitempty,oneof=shared private"`
	AddTransfer *bool       `json:"add_transfer,omitempty"`
	AddNights   *bool       `json:"add_nights,omitempty"`
	FlightHelp  *bool       `json:"flight_help,omitempty"`
	Donation    *bool       `json:"donation,omitempty"`
}

// PaymentUpdate records a payment outcome against a booking (step 3).
// TransactionID is nil for manual payments.
type PaymentUpdate struct {
	PaymentMethod PaymentMethod `json:"payment_method" validate:"required,oneof=manual stripe paypal"`
	PaymentAmount float64       `json:"payment_amount" validate:"required,gt=0"`
	TransactionID *string       `json:"transaction_id,omitempty"`
}

type BookingResponse struct {
	ID            string        `json:"id"`
	Status        BookingStatus `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	TotalAmount   float64       `json:"total_amount"`
}
