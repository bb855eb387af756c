package mailer

import (
	"fmt"
	"net/smtp"
	"strings"

	"ms-booking/internal/config"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
)

// Mailer sends booking notifications over SMTP.
type Mailer struct {
	host string
	port string
	auth smtp.Auth
	from string
	log  *logger.Logger

	// send is swappable for tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func New(cfg config.EmailConfig, log *logger.Logger) *Mailer {
	var auth smtp.Auth
	if cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPHost)
	}
	return &Mailer{
		host: cfg.SMTPHost,
		port: cfg.SMTPPort,
		auth: auth,
		from: cfg.FromAddress,
		log:  log,
		send: smtp.SendMail,
	}
}

func (m *Mailer) sendMail(to, subject, body string) error {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	msg.WriteString(body)

	addr := m.host + ":" + m.port
	if err := m.send(addr, m.auth, m.from, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}

	m.log.Info("MAILER", fmt.Sprintf("Sent %q to %s", subject, to))
	return nil
}

// SendConfirmation notifies the traveller that the booking is confirmed.
func (m *Mailer) SendConfirmation(booking *models.Booking) error {
	dealTitle := "your trip"
	if booking.TravelDeal != nil {
		dealTitle = booking.TravelDeal.Title
	}

	subject := fmt.Sprintf("Booking confirmed: %s", dealTitle)
	body := fmt.Sprintf(
		"Hi %s,\n\n"+
			"Great news! Your booking %s for %s is confirmed.\n\n"+
			"Travellers: %d\n"+
			"Total paid: %.2f\n\n"+
			"Your invoice is available in your account.\n\n"+
			"Safe travels,\nThe Travelly team\n",
		booking.FirstName, booking.ID, dealTitle, booking.Travellers, booking.TotalAmount,
	)
	return m.sendMail(booking.Email, subject, body)
}

// SendCancellation notifies the traveller that the booking was canceled.
func (m *Mailer) SendCancellation(booking *models.Booking) error {
	dealTitle := "your trip"
	if booking.TravelDeal != nil {
		dealTitle = booking.TravelDeal.Title
	}

	subject := fmt.Sprintf("Booking canceled: %s", dealTitle)
	body := fmt.Sprintf(
		"Hi %s,\n\n"+
			"Your booking %s for %s has been canceled.\n\n"+
			"If you already paid, our team will be in touch about the refund.\n\n"+
			"The Travelly team\n",
		booking.FirstName, booking.ID, dealTitle,
	)
	return m.sendMail(booking.Email, subject, body)
}
