package database

import (
	"context"

	"github.com/uptrace/bun"

	"ms-booking/internal/models"
)

// Migrate creates the three booking tables if they don't exist. The schema is
// small enough that bun model definitions are the single source of truth.
func Migrate(ctx context.Context, db *bun.DB) error {
	for _, model := range []interface{}{
		(*models.Timetable)(nil),
		(*models.Ticket)(nil),
		(*models.Transaction)(nil),
	} {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}
