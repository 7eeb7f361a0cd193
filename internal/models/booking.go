package models

// BookingRequest is the payload for creating a ticket/transaction pair.
type BookingRequest struct {
	AdultCount      int     `json:"adult_count"`
	ChildCount      int     `json:"child_count"`
	CarCount        int     `json:"car_count"`
	MotorcycleCount int     `json:"motorcycle_count"`
	TotalPrice      float64 `json:"total_price"`
	VisitDate       string  `json:"visit_date"`
	BuyerName       string  `json:"buyer_name"`
	BuyerPhone      string  `json:"buyer_phone"`
	BuyerEmail      string  `json:"buyer_email"`
}

type BookingResponse struct {
	TicketID    string `json:"ticket_id"`
	BookingCode string `json:"booking_code"`
}

// TicketWithTransaction joins a ticket with its payment record for read
// endpoints. Transaction may be nil when the pair is broken (orphan ticket).
type TicketWithTransaction struct {
	Ticket      Ticket       `json:"ticket"`
	Transaction *Transaction `json:"transaction,omitempty"`
}

// VisitorReport aggregates party sizes per visit date across all tickets on
// that date, regardless of status.
type VisitorReport struct {
	VisitDate     string `json:"visit_date"`
	Quota         int    `json:"quota"`
	AdultCount    int    `json:"adult_count"`
	ChildCount    int    `json:"child_count"`
	TotalVisitors int    `json:"total_visitors"`
}
