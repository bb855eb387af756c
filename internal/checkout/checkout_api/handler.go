package checkout_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"ms-booking/internal/auth"
	"ms-booking/internal/booking"
	"ms-booking/internal/checkout"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// FinalizeRequest is the body of the finalize call: the pre-payment
// agreement checkboxes, the chosen method and, for PayPal, the approved
// order id. The amount is never part of it; the server re-derives it.
type FinalizeRequest struct {
	Agreements    models.Agreements    `json:"agreements"`
	PaymentMethod models.PaymentMethod `json:"payment_method" validate:"required,oneof=manual stripe paypal"`
	PayPalOrderID string               `json:"paypal_order_id,omitempty"`
}

// Handler exposes the payment step of the checkout over HTTP. The
// earlier steps run through the booking routes; finalize rebuilds the
// sequencer from the stored booking and hands it to the dispatcher.
type Handler struct {
	Ops        checkout.BookingOps
	Dispatcher *checkout.Dispatcher
	Logger     *logger.Logger
	validate   *validator.Validate
}

func NewHandler(ops checkout.BookingOps, dispatcher *checkout.Dispatcher, log *logger.Logger) *Handler {
	return &Handler{
		Ops:        ops,
		Dispatcher: dispatcher,
		Logger:     log,
		validate:   validator.New(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/checkout/{bookingID}/finalize", h.Finalize)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (h *Handler) Finalize(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	bookingID := chi.URLParam(r, "bookingID")

	var req FinalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return
	}

	seq, err := checkout.ResumeSequencer(h.Ops, userID, bookingID)
	if err != nil {
		h.writeCheckoutError(w, err)
		return
	}

	confirmed, err := h.Dispatcher.Finalize(r.Context(), seq, req.Agreements, req.PaymentMethod, checkout.PaymentContext{
		PayPalOrderID: req.PayPalOrderID,
	})
	if err != nil {
		h.writeCheckoutError(w, err)
		return
	}

	h.Logger.LogPayment(string(req.PaymentMethod), bookingID, "checkout finalized")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"step":    string(seq.Step()),
		"booking": confirmed,
	})
}

// writeCheckoutError maps sequencer, dispatcher and booking errors onto
// HTTP statuses.
func (h *Handler) writeCheckoutError(w http.ResponseWriter, err error) {
	var provider *checkout.ProviderError

	switch {
	case errors.Is(err, booking.ErrNotFound):
		writeError(w, http.StatusNotFound, "booking not found")
	case errors.Is(err, booking.ErrForbidden):
		writeError(w, http.StatusForbidden, "booking belongs to another user")
	case errors.Is(err, checkout.ErrTermsNotAccepted):
		writeError(w, http.StatusUnprocessableEntity, "terms and trip information must be accepted")
	case errors.Is(err, checkout.ErrPaymentInFlight):
		writeError(w, http.StatusConflict, "a payment for this booking is already being processed")
	case errors.Is(err, checkout.ErrUnknownMethod):
		writeError(w, http.StatusBadRequest, "unsupported payment method")
	case errors.Is(err, checkout.ErrWrongStep), errors.Is(err, booking.ErrNotPending):
		writeError(w, http.StatusConflict, "booking cannot be finalized in its current state")
	case errors.Is(err, booking.ErrAmountMismatch):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, booking.ErrCapacityGone):
		writeError(w, http.StatusConflict, "the selected date has sold out")
	case errors.As(err, &provider):
		h.Logger.Error("API", fmt.Sprintf("Payment provider failure: %v", err))
		writeError(w, http.StatusBadGateway, "the payment provider rejected the charge")
	default:
		h.Logger.Error("API", "Unhandled checkout error: "+err.Error())
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
