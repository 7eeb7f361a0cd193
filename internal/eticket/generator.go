package eticket

import (
	"encoding/json"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"

	"ms-booking/internal/models"
)

// payload is what the gate scanner reads off the QR.
type payload struct {
	TicketID    string `json:"ticket_id"`
	BookingCode string `json:"booking_code"`
	VisitDate   string `json:"visit_date"`
	AdultCount  int    `json:"adult_count"`
	ChildCount  int    `json:"child_count"`
}

// Generate renders a ticket's gate QR as a PNG. Only confirmed tickets should
// be rendered; the handler enforces that.
func Generate(ticket models.Ticket) ([]byte, error) {
	data, err := json.Marshal(payload{
		TicketID:    ticket.ID,
		BookingCode: ticket.BookingCode,
		VisitDate:   ticket.VisitDate,
		AdultCount:  ticket.AdultCount,
		ChildCount:  ticket.ChildCount,
	})
	if err != nil {
		return nil, err
	}

	png, err := qrcode.Encode(string(data), qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR: %w", err)
	}
	return png, nil
}
