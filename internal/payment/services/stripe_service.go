package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"ms-booking/internal/config"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

var (
	ErrStripeAPIError         = errors.New("stripe API error")
	ErrStripeClientInitFailed = errors.New("failed to initialize Stripe client")
)

// amountToCents converts a currency amount to Stripe's smallest unit.
// Rounded, not truncated: 4.35 is 434.999... as a float64 and must
// still charge 435 cents.
func amountToCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// StripeService handles integration with the Stripe payment gateway
type StripeService struct {
	client   *client.API
	currency string
	log      *logger.Logger
}

// NewStripeService creates a new instance of StripeService
func NewStripeService(cfg config.StripeConfig, log *logger.Logger) (*StripeService, error) {
	if cfg.SecretKey == "" {
		log.Error("STRIPE", "STRIPE_SECRET_KEY not set")
		return nil, ErrStripeClientInitFailed
	}

	sc := client.New(cfg.SecretKey, nil)
	if sc == nil {
		log.Error("STRIPE", "Failed to initialize Stripe client")
		return nil, ErrStripeClientInitFailed
	}

	currency := cfg.Currency
	if currency == "" {
		currency = "usd"
	}

	log.Info("STRIPE", "Stripe client initialized successfully")
	return &StripeService{
		client:   sc,
		currency: currency,
		log:      log,
	}, nil
}

// CreatePaymentIntent opens a payment intent for a booking. The client
// confirms it browser-side with the returned client secret; the intent
// id becomes the booking's transaction id.
func (s *StripeService) CreatePaymentIntent(ctx context.Context, bookingID string, amount float64) (*models.IntentResponse, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("invalid payment amount: %.2f", amount)
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountToCents(amount)),
		Currency: stripe.String(s.currency),
		Metadata: map[string]string{
			"booking_id": bookingID,
		},
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx

	s.log.Info("STRIPE", fmt.Sprintf("Creating payment intent for booking %s, amount %.2f %s", bookingID, amount, s.currency))
	pi, err := s.client.PaymentIntents.New(params)
	if err != nil {
		s.log.Error("STRIPE", fmt.Sprintf("Failed to create payment intent for booking %s: %v", bookingID, err))
		return nil, fmt.Errorf("%w: %v", ErrStripeAPIError, err)
	}

	s.log.Info("STRIPE", fmt.Sprintf("Payment intent %s created for booking %s", pi.ID, bookingID))
	return &models.IntentResponse{
		IntentID:     pi.ID,
		ClientSecret: pi.ClientSecret,
	}, nil
}

// GetIntentStatus reports whether an intent has succeeded.
func (s *StripeService) GetIntentStatus(intentID string) (string, error) {
	pi, err := s.client.PaymentIntents.Get(intentID, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStripeAPIError, err)
	}
	return string(pi.Status), nil
}

// RefundPayment refunds a succeeded payment intent in full.
func (s *StripeService) RefundPayment(intentID, reason string) error {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(intentID),
	}
	if reason != "" {
		params.Reason = stripe.String(reason)
	}

	refund, err := s.client.Refunds.New(params)
	if err != nil {
		s.log.Error("STRIPE", fmt.Sprintf("Refund of intent %s failed: %v", intentID, err))
		return fmt.Errorf("%w: %v", ErrStripeAPIError, err)
	}

	s.log.Info("STRIPE", fmt.Sprintf("Refund %s created for intent %s", refund.ID, intentID))
	return nil
}
