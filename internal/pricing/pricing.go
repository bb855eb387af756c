package pricing

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"ms-booking/internal/config"
	"ms-booking/internal/models"
)

// PricingError reports an amount that could not be derived. Callers must
// treat it as a hard failure; a quote is never produced from bad input.
type PricingError struct {
	Input  string
	Reason string
}

func (e *PricingError) Error() string {
	return fmt.Sprintf("pricing: cannot derive amount from %q: %s", e.Input, e.Reason)
}

// ParseAmount converts a catalog price string to a float. Catalog prices
// arrive with currency symbols and thousands separators ("€ 1,250.00",
// "$1250"), so everything except digits, dots and a leading minus is
// stripped before conversion.
func ParseAmount(s string) (float64, error) {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			return r
		}
		return -1
	}, strings.ReplaceAll(s, ",", ""))

	if cleaned == "" {
		return 0, &PricingError{Input: s, Reason: "no numeric content"}
	}

	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, &PricingError{Input: s, Reason: "not a number"}
	}
	if amount < 0 {
		return 0, &PricingError{Input: s, Reason: "negative amount"}
	}
	return amount, nil
}

type Quote struct {
	Base     float64 `json:"base"`
	Room     float64 `json:"room"`
	Donation float64 `json:"donation"`
	Total    float64 `json:"total"`
}

// Engine computes deterministic checkout totals. Unit prices come from
// configuration, never from call sites.
type Engine struct {
	roomUpgrade float64
	donation    float64
}

func NewEngine(cfg config.PricingConfig) *Engine {
	return &Engine{
		roomUpgrade: cfg.PrivateRoomPerTraveller,
		donation:    cfg.DonationAmount,
	}
}

// Quote prices a booking. A non-positive traveller count falls back to 1
// so a stale session can never zero out the room surcharge; handlers
// reject explicit non-positive counts before reaching here.
func (e *Engine) Quote(basePrice float64, travellers int, room models.RoomOption, donation bool) Quote {
	if travellers < 1 {
		travellers = 1
	}

	q := Quote{Base: round2(basePrice)}
	if room == models.RoomPrivate {
		q.Room = round2(e.roomUpgrade * float64(travellers))
	}
	if donation {
		q.Donation = e.donation
	}
	q.Total = round2(q.Base + q.Room + q.Donation)
	return q
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
