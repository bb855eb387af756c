package sse

import (
	"context"
	"testing"
	"time"

	"ms-booking/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitReachesDealSubscribers(t *testing.T) {
	e := NewConfirmationEmitter()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := e.SubscribeToDeal(ctx, "deal-1")
	other := e.SubscribeToDeal(ctx, "deal-2")

	e.Emit(models.BookingEvent{BookingID: "booking-1", TravelDealID: "deal-1", Status: models.BookingConfirmed})

	select {
	case event := <-ch:
		assert.Equal(t, "booking-1", event.BookingID)
	case <-time.After(time.Second):
		t.Fatal("subscriber never received the event")
	}

	select {
	case <-other:
		t.Fatal("deal-2 subscriber should not see deal-1 events")
	default:
	}
}

func TestUnsubscribeOnContextDone(t *testing.T) {
	e := NewConfirmationEmitter()
	ctx, cancel := context.WithCancel(context.Background())

	e.SubscribeToDeal(ctx, "deal-1")
	require.Equal(t, 1, e.ClientCount("deal-1"))

	cancel()
	assert.Eventually(t, func() bool {
		return e.ClientCount("deal-1") == 0
	}, time.Second, 10*time.Millisecond)
}

func TestSlowClientDoesNotBlockEmit(t *testing.T) {
	e := NewConfirmationEmitter()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Never read from this channel; its buffer fills up.
	e.SubscribeToDeal(ctx, "deal-1")

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			e.Emit(models.BookingEvent{BookingID: "booking-1", TravelDealID: "deal-1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("emitter blocked on a slow client")
	}
}
