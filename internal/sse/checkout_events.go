package sse

import (
	"context"
	"sync"

	"ms-booking/internal/models"
)

// ConfirmationEmitter fans booking events out to SSE clients watching a
// travel deal.
type ConfirmationEmitter struct {
	dealClients map[string][]chan models.BookingEvent
	mu          sync.RWMutex
}

func NewConfirmationEmitter() *ConfirmationEmitter {
	return &ConfirmationEmitter{
		dealClients: make(map[string][]chan models.BookingEvent),
	}
}

// SubscribeToDeal adds a client to a deal's booking events. The channel
// is closed and removed when the context ends.
func (e *ConfirmationEmitter) SubscribeToDeal(ctx context.Context, dealID string) chan models.BookingEvent {
	clientChan := make(chan models.BookingEvent, 10)

	e.mu.Lock()
	e.dealClients[dealID] = append(e.dealClients[dealID], clientChan)
	e.mu.Unlock()

	go func() {
		<-ctx.Done()
		e.removeClient(dealID, clientChan)
	}()

	return clientChan
}

// Emit broadcasts a booking event to all clients watching its deal.
// Sends are non-blocking; a slow client misses the event rather than
// stalling the emitter.
func (e *ConfirmationEmitter) Emit(event models.BookingEvent) {
	e.mu.RLock()
	clients := e.dealClients[event.TravelDealID]
	e.mu.RUnlock()

	for _, clientChan := range clients {
		select {
		case clientChan <- event:
		default:
		}
	}
}

func (e *ConfirmationEmitter) removeClient(dealID string, clientChan chan models.BookingEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()

	clients := e.dealClients[dealID]
	for i, ch := range clients {
		if ch == clientChan {
			e.dealClients[dealID] = append(clients[:i], clients[i+1:]...)
			close(clientChan)
			break
		}
	}

	if len(e.dealClients[dealID]) == 0 {
		delete(e.dealClients, dealID)
	}
}

// ClientCount reports the number of live subscribers for a deal.
func (e *ConfirmationEmitter) ClientCount(dealID string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.dealClients[dealID])
}
