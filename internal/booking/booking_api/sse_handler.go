package booking_api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"ms-booking/internal/logger"
	"ms-booking/internal/sse"

	"github.com/go-chi/chi/v5"
)

// SSEHandler streams booking confirmations to deal dashboards.
type SSEHandler struct {
	Logger  *logger.Logger
	Emitter *sse.ConfirmationEmitter
}

func NewSSEHandler(log *logger.Logger, emitter *sse.ConfirmationEmitter) *SSEHandler {
	return &SSEHandler{
		Logger:  log,
		Emitter: emitter,
	}
}

func (h *SSEHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/checkout/stream/{dealID}", h.HandleDealConfirmations)
}

// HandleDealConfirmations streams confirmation events for a travel deal
// until the client disconnects.
func (h *SSEHandler) HandleDealConfirmations(w http.ResponseWriter, r *http.Request) {
	dealID := chi.URLParam(r, "dealID")
	if dealID == "" {
		http.Error(w, "Deal ID is required", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	h.setupSSEHeaders(w)

	ctx := r.Context()
	eventChan := h.Emitter.SubscribeToDeal(ctx, dealID)

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\",\"dealID\":\"%s\"}\n\n", dealID)
	flusher.Flush()

	h.Logger.Info("SSE", fmt.Sprintf("Client connected to confirmation stream for deal: %s", dealID))

	for {
		select {
		case event, ok := <-eventChan:
			if !ok {
				h.Logger.Debug("SSE", fmt.Sprintf("Channel closed for deal: %s", dealID))
				return
			}

			jsonData, err := json.Marshal(event)
			if err != nil {
				h.Logger.Error("SSE", fmt.Sprintf("Failed to serialize confirmation event: %v", err))
				continue
			}

			fmt.Fprintf(w, "event: confirmation\ndata: %s\n\n", jsonData)
			flusher.Flush()

		case <-ctx.Done():
			h.Logger.Debug("SSE", fmt.Sprintf("Client disconnected from confirmation stream for deal: %s", dealID))
			return
		}
	}
}

func (h *SSEHandler) setupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.Header().Set("X-Content-Type-Options", "nosniff")
}
