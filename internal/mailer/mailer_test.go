package mailer

import (
	"net/smtp"
	"testing"

	"ms-booking/internal/config"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	addr string
	from string
	to   []string
	msg  string
}

func newTestMailer(sent *[]sentMail) *Mailer {
	m := New(config.EmailConfig{
		SMTPHost:    "smtp.example.com",
		SMTPPort:    "587",
		FromAddress: "bookings@travelly.example",
	}, logger.NewLogger())

	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		*sent = append(*sent, sentMail{addr: addr, from: from, to: to, msg: string(msg)})
		return nil
	}
	return m
}

func testBooking() *models.Booking {
	return &models.Booking{
		ID:          "booking-1",
		FirstName:   "Ada",
		Email:       "ada@example.com",
		Travellers:  2,
		TotalAmount: 1963,
		TravelDeal:  &models.TravelDeal{Title: "Andes Trek"},
	}
}

func TestSendConfirmation(t *testing.T) {
	var sent []sentMail
	m := newTestMailer(&sent)

	require.NoError(t, m.SendConfirmation(testBooking()))
	require.Len(t, sent, 1)

	assert.Equal(t, "smtp.example.com:587", sent[0].addr)
	assert.Equal(t, []string{"ada@example.com"}, sent[0].to)
	assert.Contains(t, sent[0].msg, "Booking confirmed: Andes Trek")
	assert.Contains(t, sent[0].msg, "Travellers: 2")
	assert.Contains(t, sent[0].msg, "1963.00")
}

func TestSendCancellation(t *testing.T) {
	var sent []sentMail
	m := newTestMailer(&sent)

	booking := testBooking()
	booking.TravelDeal = nil
	require.NoError(t, m.SendCancellation(booking))
	require.Len(t, sent, 1)

	assert.Contains(t, sent[0].msg, "Booking canceled: your trip")
	assert.Contains(t, sent[0].msg, "booking-1")
}
