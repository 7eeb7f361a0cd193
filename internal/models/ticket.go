package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Ticket lifecycle statuses. Transitions are enforced by the booking service,
// not by the store.
const (
	StatusPending   = "pending"
	StatusPaid      = "paid"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

// ValidStatus reports whether s is one of the known lifecycle statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusPaid, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

type Ticket struct {
	bun.BaseModel `bun:"table:tickets"`

	ID string `bun:"id,pk" json:"id"`
	// BookingCode is a human-readable display code (PM-DDMMYYYY-NNNN).
	// It is not guaranteed unique; the ID is the primary key.
	BookingCode     string    `bun:"booking_code,notnull" json:"booking_code"`
	VisitDate       string    `bun:"visit_date,notnull" json:"visit_date"`
	AdultCount      int       `bun:"adult_count,notnull" json:"adult_count"`
	ChildCount      int       `bun:"child_count,notnull" json:"child_count"`
	CarCount        int       `bun:"car_count" json:"car_count"`
	MotorcycleCount int       `bun:"motorcycle_count" json:"motorcycle_count"`
	BuyerName       string    `bun:"buyer_name,notnull" json:"buyer_name"`
	BuyerPhone      string    `bun:"buyer_phone,notnull" json:"buyer_phone"`
	BuyerEmail      string    `bun:"buyer_email,notnull" json:"buyer_email"`
	Status          string    `bun:"status,notnull" json:"status"`
	CreatedAt       time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt       time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

// PartyCount is the number of visitor slots this ticket consumes from the
// date's quota. Vehicle counts are stored but do not count against quota.
func (t *Ticket) PartyCount() int {
	return t.AdultCount + t.ChildCount
}
