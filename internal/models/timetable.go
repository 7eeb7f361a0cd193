package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Timetable is the capacity ledger entry for one visit date. Quota is the
// remaining number of visitor slots; MaxCapacity is the ceiling the quota may
// never exceed, so a double-processed cancellation cannot over-restore.
type Timetable struct {
	bun.BaseModel `bun:"table:timetables"`

	VisitDate   string    `bun:"visit_date,pk" json:"visit_date"`
	Quota       int       `bun:"quota,notnull" json:"quota"`
	MaxCapacity int       `bun:"max_capacity,notnull" json:"max_capacity"`
	CreatedAt   time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt   time.Time `bun:"updated_at,notnull" json:"updated_at"`
}
