package catalog_api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"ms-booking/internal/catalog/db"
	"ms-booking/internal/logger"

	"github.com/go-chi/chi/v5"
)

// Handler serves the catalog reads checkout consumes.
type Handler struct {
	DB     *db.DB
	Logger *logger.Logger
}

func NewHandler(catalogDB *db.DB, log *logger.Logger) *Handler {
	return &Handler{DB: catalogDB, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/catalog", func(r chi.Router) {
		r.Get("/deals/{dealID}", h.GetDeal)
		r.Get("/deals/{dealID}/dates", h.ListDates)
		r.Get("/dates/{dateID}", h.GetDate)
	})
}

func sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) GetDeal(w http.ResponseWriter, r *http.Request) {
	dealID := chi.URLParam(r, "dealID")

	deal, err := h.DB.GetTravelDeal(r.Context(), dealID)
	if err != nil {
		// Deals are also addressable by slug.
		deal, err = h.DB.GetTravelDealBySlug(r.Context(), dealID)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			sendJSON(w, http.StatusNotFound, map[string]string{"error": "travel deal not found"})
			return
		}
		h.Logger.Error("CATALOG", "Error fetching deal: "+err.Error())
		sendJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to fetch deal"})
		return
	}

	sendJSON(w, http.StatusOK, deal)
}

func (h *Handler) ListDates(w http.ResponseWriter, r *http.Request) {
	dealID := chi.URLParam(r, "dealID")

	options, err := h.DB.ListDateOptions(r.Context(), dealID)
	if err != nil {
		h.Logger.Error("CATALOG", "Error listing date options: "+err.Error())
		sendJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list date options"})
		return
	}

	sendJSON(w, http.StatusOK, options)
}

func (h *Handler) GetDate(w http.ResponseWriter, r *http.Request) {
	dateID := chi.URLParam(r, "dateID")

	option, err := h.DB.GetDateOption(r.Context(), dateID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			sendJSON(w, http.StatusNotFound, map[string]string{"error": "date option not found"})
			return
		}
		h.Logger.Error("CATALOG", "Error fetching date option: "+err.Error())
		sendJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to fetch date option"})
		return
	}

	sendJSON(w, http.StatusOK, option)
}
