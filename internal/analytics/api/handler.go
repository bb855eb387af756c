package analytics_api

import (
	"encoding/json"
	"net/http"

	"ms-booking/internal/analytics"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"

	"github.com/go-chi/chi/v5"
)

// Handler handles analytics HTTP endpoints
type Handler struct {
	Service *analytics.Service
	Logger  *logger.Logger
}

func NewHandler(service *analytics.Service, log *logger.Logger) *Handler {
	return &Handler{
		Service: service,
		Logger:  log,
	}
}

// RegisterRoutes registers the analytics routes on a chi router
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/analytics", func(r chi.Router) {
		r.Get("/deals/{dealID}", h.GetDealAnalytics)
		r.Get("/dates/{dateID}", h.GetDateOptionAnalytics)
	})
}

func sendJSONResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

// GetDealAnalytics returns revenue and sales aggregates for a deal.
// Only confirmed bookings count unless a status filter is passed.
func (h *Handler) GetDealAnalytics(w http.ResponseWriter, r *http.Request) {
	dealID := chi.URLParam(r, "dealID")
	if dealID == "" {
		sendJSONResponse(w, http.StatusBadRequest, map[string]string{"error": "deal id is required"})
		return
	}

	status := r.URL.Query().Get("status")
	if status == "" {
		status = string(models.BookingConfirmed)
	}

	result, err := h.Service.GetDealAnalytics(r.Context(), dealID, status)
	if err != nil {
		h.Logger.Error("ANALYTICS", "Error getting deal analytics: "+err.Error())
		sendJSONResponse(w, http.StatusInternalServerError, map[string]string{"error": "Failed to get analytics"})
		return
	}

	sendJSONResponse(w, http.StatusOK, result)
}

// GetDateOptionAnalytics returns sales and remaining capacity for one
// departure date.
func (h *Handler) GetDateOptionAnalytics(w http.ResponseWriter, r *http.Request) {
	dateID := chi.URLParam(r, "dateID")
	if dateID == "" {
		sendJSONResponse(w, http.StatusBadRequest, map[string]string{"error": "date option id is required"})
		return
	}

	status := r.URL.Query().Get("status")
	if status == "" {
		status = string(models.BookingConfirmed)
	}

	result, err := h.Service.GetDateOptionAnalytics(r.Context(), dateID, status)
	if err != nil {
		h.Logger.Error("ANALYTICS", "Error getting date option analytics: "+err.Error())
		sendJSONResponse(w, http.StatusInternalServerError, map[string]string{"error": "Failed to get analytics"})
		return
	}

	sendJSONResponse(w, http.StatusOK, result)
}
