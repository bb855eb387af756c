package invoice

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"ms-booking/internal/models"
	"ms-booking/internal/utils"

	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
)

// Generator renders booking invoices as PDF with an embedded voucher QR.
type Generator struct {
	companyName string
	currency    string
}

func NewGenerator(companyName, currency string) *Generator {
	if companyName == "" {
		companyName = "Travelly"
	}
	if currency == "" {
		currency = "EUR"
	}
	return &Generator{companyName: companyName, currency: currency}
}

type voucherPayload struct {
	BookingID string `json:"booking_id"`
	Reference string `json:"reference"`
	DealTitle string `json:"deal_title"`
	StartDate string `json:"start_date,omitempty"`
}

// voucherQR encodes the booking voucher as a PNG QR image.
func (g *Generator) voucherQR(booking *models.Booking, reference string) ([]byte, error) {
	payload := voucherPayload{
		BookingID: booking.ID,
		Reference: reference,
	}
	if booking.TravelDeal != nil {
		payload.DealTitle = booking.TravelDeal.Title
	}
	if booking.DateOption != nil {
		payload.StartDate = booking.DateOption.StartDate.Format("2006-01-02")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(string(data), qrcode.Medium, 256)
}

// Generate renders the invoice PDF for a booking and returns the bytes
// and a suggested filename.
func (g *Generator) Generate(booking *models.Booking) ([]byte, string, error) {
	reference := utils.GenerateBookingReference()

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Invoice", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, g.companyName+" - INVOICE")
	pdf.Ln(12)

	invNo := fmt.Sprintf("INV-%s", booking.ID)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 7, "Invoice no.  : "+invNo)
	pdf.Ln(7)
	pdf.Cell(0, 7, "Reference    : "+reference)
	pdf.Ln(7)
	pdf.Cell(0, 7, "Date         : "+time.Now().Format("2006-01-02 15:04"))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Billed to:")
	pdf.Ln(7)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 7, booking.FirstName+" "+booking.LastName)
	pdf.Ln(7)
	pdf.Cell(0, 7, booking.Email)
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Trip")
	pdf.Ln(7)
	pdf.SetFont("Helvetica", "", 12)
	if booking.TravelDeal != nil {
		pdf.Cell(0, 7, fmt.Sprintf("%s (%d days, %s)", booking.TravelDeal.Title, booking.TravelDeal.Days, booking.TravelDeal.Country))
		pdf.Ln(7)
	}
	if booking.DateOption != nil {
		pdf.Cell(0, 7, fmt.Sprintf("Departure %s - return %s",
			booking.DateOption.StartDate.Format("2006-01-02"),
			booking.DateOption.EndDate.Format("2006-01-02")))
		pdf.Ln(7)
	}
	pdf.Cell(0, 7, fmt.Sprintf("Travellers: %d, room: %s", booking.Travellers, booking.RoomOption))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(120, 8, "Description")
	pdf.Cell(0, 8, "Amount")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 12)

	pdf.Cell(120, 8, "Trip total")
	pdf.Cell(0, 8, fmt.Sprintf("%s %.2f", g.currency, booking.TotalAmount))
	pdf.Ln(8)
	if booking.Donation {
		pdf.Cell(120, 8, "Includes climate donation")
		pdf.Ln(8)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(120, 9, "Total paid")
	pdf.Cell(0, 9, fmt.Sprintf("%s %.2f", g.currency, booking.PaymentAmount))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	method := string(booking.PaymentMethod)
	if method == "" {
		method = "pending"
	}
	pdf.Cell(0, 7, "Payment method: "+method)
	pdf.Ln(7)
	if booking.TransactionID != "" {
		pdf.Cell(0, 7, "Transaction: "+booking.TransactionID)
		pdf.Ln(7)
	}

	// Voucher QR bottom-right
	qrPNG, err := g.voucherQR(booking, reference)
	if err != nil {
		return nil, "", fmt.Errorf("voucher qr: %w", err)
	}
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("voucher-qr", opts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("voucher-qr", 150, 230, 40, 40, false, opts, 0, "")
	pdf.SetXY(150, 270)
	pdf.SetFont("Helvetica", "", 9)
	pdf.Cell(40, 5, "Voucher "+reference)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", fmt.Errorf("render invoice pdf: %w", err)
	}

	filename := fmt.Sprintf("invoice-%s.pdf", booking.ID)
	return buf.Bytes(), filename, nil
}
