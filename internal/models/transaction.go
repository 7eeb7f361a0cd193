package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Transaction is the payment record paired 1:1 with a ticket. It is created
// in the same booking request as its ticket and cascades with it on hard
// delete.
type Transaction struct {
	bun.BaseModel `bun:"table:transactions"`

	ID                string    `bun:"id,pk" json:"id"`
	TicketID          string    `bun:"ticket_id,notnull" json:"ticket_id"`
	UserID            string    `bun:"user_id,notnull" json:"user_id"`
	TotalPrice        float64   `bun:"total_price,notnull" json:"total_price"`
	IsPaid            bool      `bun:"is_paid,notnull" json:"is_paid"`
	ProofOfPaymentURL string    `bun:"proof_of_payment_url,nullzero" json:"proof_of_payment_url,omitempty"`
	CreatedAt         time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt         time.Time `bun:"updated_at,notnull" json:"updated_at"`
}
