package booking_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"ms-booking/internal/auth"
	"ms-booking/internal/booking"
	"ms-booking/internal/capacity"
	"ms-booking/internal/invoice"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/pricing"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	Service  *booking.Service
	Invoices *invoice.Generator
	Logger   *logger.Logger
	validate *validator.Validate
}

func NewHandler(service *booking.Service, invoices *invoice.Generator, log *logger.Logger) *Handler {
	return &Handler{
		Service:  service,
		Invoices: invoices,
		Logger:   log,
		validate: validator.New(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/bookings", func(r chi.Router) {
		r.Post("/", h.CreateBooking)
		r.Get("/", h.ListBookings)
		r.Get("/{bookingID}", h.GetBooking)
		r.Patch("/{bookingID}/extras", h.UpdateExtras)
		r.Put("/{bookingID}/payment", h.RecordPayment)
		r.Delete("/{bookingID}", h.CancelBooking)
		r.Get("/{bookingID}/invoice", h.DownloadInvoice)
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps service errors onto HTTP statuses.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var exceeded *capacity.ExceededError
	var priceErr *pricing.PricingError

	switch {
	case errors.Is(err, booking.ErrNotFound):
		writeError(w, http.StatusNotFound, "booking not found")
	case errors.Is(err, booking.ErrForbidden):
		writeError(w, http.StatusForbidden, "booking belongs to another user")
	case errors.Is(err, booking.ErrNotPending):
		writeError(w, http.StatusConflict, "booking is no longer pending")
	case errors.Is(err, booking.ErrAmountMismatch):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, booking.ErrCapacityGone):
		writeError(w, http.StatusConflict, "the selected date has sold out")
	case errors.As(err, &exceeded):
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"error":     fmt.Sprintf("only %d place(s) left on this date", exceeded.Remaining),
			"requested": exceeded.Requested,
			"remaining": exceeded.Remaining,
		})
	case errors.As(err, &priceErr):
		h.Logger.Error("API", "Pricing failure: "+err.Error())
		writeError(w, http.StatusUnprocessableEntity, "the price for this date could not be determined")
	default:
		h.Logger.Error("API", "Unhandled service error: "+err.Error())
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req models.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return
	}

	created, err := h.Service.CreateBooking(r.Context(), userID, req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	bookings, err := h.Service.ListBookings(userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, bookings)
}

func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	bookingID := chi.URLParam(r, "bookingID")

	found, err := h.Service.GetBooking(bookingID, userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, found)
}

func (h *Handler) UpdateExtras(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	bookingID := chi.URLParam(r, "bookingID")

	var update models.ExtrasUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := h.validate.Struct(update); err != nil {
		writeError(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return
	}

	updated, err := h.Service.UpdateExtras(r.Context(), bookingID, userID, update)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	bookingID := chi.URLParam(r, "bookingID")

	var update models.PaymentUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := h.validate.Struct(update); err != nil {
		writeError(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return
	}

	confirmed, err := h.Service.RecordPayment(r.Context(), bookingID, userID, update)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, confirmed)
}

func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	bookingID := chi.URLParam(r, "bookingID")

	if err := h.Service.CancelBooking(r.Context(), bookingID, userID); err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DownloadInvoice renders the booking invoice as PDF. Only paid
// bookings have one.
func (h *Handler) DownloadInvoice(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	bookingID := chi.URLParam(r, "bookingID")

	found, err := h.Service.GetBooking(bookingID, userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if found.PaymentStatus != models.PaymentPaid {
		writeError(w, http.StatusConflict, "invoice is available after payment")
		return
	}

	data, filename, err := h.Invoices.Generate(found)
	if err != nil {
		h.Logger.Error("API", "Invoice generation failed: "+err.Error())
		writeError(w, http.StatusInternalServerError, "failed to generate invoice")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Write(data)
}
