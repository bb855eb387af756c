package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"ms-booking/internal/logger"

	"github.com/go-redis/redis/v8"
)

const holdKeyPrefix = "capacity_hold:"

// Hold reserves places on a date option for a short window between
// booking creation and payment. Each hold is one key per booking:
//
//	capacity_hold:<dateOptionID>:<bookingID> -> travellers
//
// The TTL bounds how long an unpaid booking keeps places off the market;
// expiry is observed by the keyspace-event subscriber in main, which
// cancels the pending booking.
type Hold struct {
	Client *redis.Client
	TTL    time.Duration
	Logger *logger.Logger
}

func NewHold(client *redis.Client, ttl time.Duration, log *logger.Logger) *Hold {
	return &Hold{
		Client: client,
		TTL:    ttl,
		Logger: log,
	}
}

func holdKey(dateOptionID, bookingID string) string {
	return holdKeyPrefix + dateOptionID + ":" + bookingID
}

// HoldPlaces takes a hold for the booking. Returns false without error if
// a hold for this booking already exists.
func (h *Hold) HoldPlaces(ctx context.Context, dateOptionID, bookingID string, travellers int) (bool, error) {
	key := holdKey(dateOptionID, bookingID)
	ok, err := h.Client.SetNX(ctx, key, strconv.Itoa(travellers), h.TTL).Result()
	if err != nil {
		return false, fmt.Errorf("hold places: %w", err)
	}
	return ok, nil
}

// ReleaseHold removes the booking's hold. Releasing a hold that already
// expired is not an error.
func (h *Hold) ReleaseHold(ctx context.Context, dateOptionID, bookingID string) error {
	key := holdKey(dateOptionID, bookingID)
	if err := h.Client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("release hold: %w", err)
	}
	return nil
}

// HasHold reports whether the booking still holds its places.
func (h *Hold) HasHold(ctx context.Context, dateOptionID, bookingID string) (bool, error) {
	key := holdKey(dateOptionID, bookingID)
	_, err := h.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// HeldPlaces sums the travellers across all live holds on a date option.
// The service subtracts this from the stored capacity when gating a new
// booking, so places held by unpaid checkouts are not sold twice.
func (h *Hold) HeldPlaces(ctx context.Context, dateOptionID string) (int, error) {
	keys, err := h.Client.Keys(ctx, holdKeyPrefix+dateOptionID+":*").Result()
	if err != nil {
		return 0, fmt.Errorf("held places: %w", err)
	}

	total := 0
	for _, key := range keys {
		val, err := h.Client.Get(ctx, key).Result()
		if err == redis.Nil {
			continue // expired between KEYS and GET
		}
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(val)
		if err != nil {
			h.Logger.Warn("REDIS", fmt.Sprintf("ignoring malformed hold %s=%q", key, val))
			continue
		}
		total += n
	}
	return total, nil
}

// ParseHoldKey extracts the date option and booking ids from an expired
// hold key. Used by the expiry subscriber.
func ParseHoldKey(key string) (dateOptionID, bookingID string, ok bool) {
	if len(key) <= len(holdKeyPrefix) || key[:len(holdKeyPrefix)] != holdKeyPrefix {
		return "", "", false
	}
	rest := key[len(holdKeyPrefix):]
	for i := 0; i < len(rest); i++ {
		if rest[i] == ':' {
			return rest[:i], rest[i+1:], rest[:i] != "" && rest[i+1:] != ""
		}
	}
	return "", "", false
}
