package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-booking/internal/config"
	"ms-booking/internal/models"
)

func testEngine() *Engine {
	return NewEngine(config.PricingConfig{
		PrivateRoomPerTraveller: 345,
		DonationAmount:          23,
		Currency:                "USD",
	})
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
	}{
		{"euro with thousands separator", "€ 1,250.00", 1250},
		{"dollar no separator", "$1250", 1250},
		{"plain number", "980.50", 980.5},
		{"surrounding whitespace", "  750 ", 750},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAmountInvalid(t *testing.T) {
	for _, input := range []string{"", "abc", "free", "-120"} {
		_, err := ParseAmount(input)
		require.Error(t, err, "input %q", input)

		var perr *PricingError
		assert.ErrorAs(t, err, &perr)
	}
}

func TestQuotePrivateRoomWithDonation(t *testing.T) {
	q := testEngine().Quote(1250, 2, models.RoomPrivate, true)

	assert.Equal(t, 1250.0, q.Base)
	assert.Equal(t, 690.0, q.Room)
	assert.Equal(t, 23.0, q.Donation)
	assert.Equal(t, 1963.0, q.Total)
}

func TestQuoteSharedRoomNoExtras(t *testing.T) {
	q := testEngine().Quote(980, 3, models.RoomShared, false)

	assert.Equal(t, 0.0, q.Room)
	assert.Equal(t, 0.0, q.Donation)
	assert.Equal(t, 980.0, q.Total)
}

func TestQuoteDefaultsTravellersToOne(t *testing.T) {
	q := testEngine().Quote(500, 0, models.RoomPrivate, false)
	assert.Equal(t, 345.0, q.Room)

	q = testEngine().Quote(500, -4, models.RoomPrivate, false)
	assert.Equal(t, 345.0, q.Room)
}

func TestQuoteRoundsToTwoDecimals(t *testing.T) {
	engine := NewEngine(config.PricingConfig{
		PrivateRoomPerTraveller: 333.335,
		DonationAmount:          23,
	})

	q := engine.Quote(1000.004, 1, models.RoomPrivate, false)
	assert.Equal(t, 1000.0, q.Base)
	assert.Equal(t, 333.34, q.Room)
	assert.Equal(t, 1333.34, q.Total)
}
