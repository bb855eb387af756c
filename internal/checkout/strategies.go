package checkout

import (
	"context"
	"errors"
	"fmt"

	"ms-booking/internal/models"
)

// ManualStrategy records a bank-transfer style payment: no provider is
// involved and no transaction id exists; the booking is confirmed on the
// traveller's word and settled offline.
type ManualStrategy struct{}

func (ManualStrategy) Method() models.PaymentMethod {
	return models.MethodManual
}

func (ManualStrategy) Initiate(ctx context.Context, pc PaymentContext) (*TransactionOutcome, error) {
	return &TransactionOutcome{
		Method: models.MethodManual,
		Amount: pc.Amount,
	}, nil
}

// IntentCreator is implemented by the Stripe service.
type IntentCreator interface {
	CreatePaymentIntent(ctx context.Context, bookingID string, amount float64) (*models.IntentResponse, error)
}

// StripeStrategy charges through a Stripe payment intent; the intent id
// becomes the booking's transaction id.
type StripeStrategy struct {
	Payments IntentCreator
}

func (StripeStrategy) Method() models.PaymentMethod {
	return models.MethodStripe
}

func (s StripeStrategy) Initiate(ctx context.Context, pc PaymentContext) (*TransactionOutcome, error) {
	intent, err := s.Payments.CreatePaymentIntent(ctx, pc.BookingID, pc.Amount)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	return &TransactionOutcome{
		Method:        models.MethodStripe,
		Amount:        pc.Amount,
		TransactionID: &intent.IntentID,
	}, nil
}

// OrderVerifier is implemented by the PayPal client.
type OrderVerifier interface {
	VerifyOrder(ctx context.Context, orderID string) (float64, error)
}

// PayPalStrategy accepts a client-side PayPal capture only after the
// order has been verified server-side against the PayPal API.
type PayPalStrategy struct {
	Client OrderVerifier
}

func (PayPalStrategy) Method() models.PaymentMethod {
	return models.MethodPayPal
}

func (s PayPalStrategy) Initiate(ctx context.Context, pc PaymentContext) (*TransactionOutcome, error) {
	if pc.PayPalOrderID == "" {
		return nil, errors.New("paypal order id is required")
	}
	amount, err := s.Client.VerifyOrder(ctx, pc.PayPalOrderID)
	if err != nil {
		return nil, fmt.Errorf("verify paypal order %s: %w", pc.PayPalOrderID, err)
	}
	if amount != pc.Amount {
		return nil, fmt.Errorf("paypal order %s captured %.2f but booking total is %.2f", pc.PayPalOrderID, amount, pc.Amount)
	}
	orderID := pc.PayPalOrderID
	return &TransactionOutcome{
		Method:        models.MethodPayPal,
		Amount:        pc.Amount,
		TransactionID: &orderID,
	}, nil
}
