package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"ms-booking/internal/models"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) CreateTransaction(ctx context.Context, txn models.Transaction) error {
	_, err := d.Bun.NewInsert().Model(&txn).Exec(ctx)
	return err
}

func (d *DB) GetTransactionByTicketID(ctx context.Context, ticketID string) (*models.Transaction, error) {
	var txn models.Transaction
	err := d.Bun.NewSelect().
		Model(&txn).
		Where("ticket_id = ?", ticketID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction for ticket %s: %w", ticketID, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (d *DB) GetTransactionsByUserID(ctx context.Context, userID string) ([]models.Transaction, error) {
	var txns []models.Transaction
	err := d.Bun.NewSelect().
		Model(&txns).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return txns, nil
}

// SetProofOfPayment stores the manual payment evidence URL. It does not set
// is_paid; that happens on staff confirmation.
func (d *DB) SetProofOfPayment(ctx context.Context, ticketID, proofURL string, now time.Time) error {
	return d.updateByTicket(ctx, ticketID, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("proof_of_payment_url = ?", proofURL).Set("updated_at = ?", now)
	})
}

func (d *DB) MarkPaid(ctx context.Context, ticketID string, now time.Time) error {
	return d.updateByTicket(ctx, ticketID, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("is_paid = ?", true).Set("updated_at = ?", now)
	})
}

func (d *DB) DeleteTransaction(ctx context.Context, ticketID string) error {
	_, err := d.Bun.NewDelete().
		Model((*models.Transaction)(nil)).
		Where("ticket_id = ?", ticketID).
		Exec(ctx)
	return err
}

func (d *DB) updateByTicket(ctx context.Context, ticketID string, apply func(*bun.UpdateQuery) *bun.UpdateQuery) error {
	q := d.Bun.NewUpdate().
		Model((*models.Transaction)(nil)).
		Where("ticket_id = ?", ticketID)
	res, err := apply(q).Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("transaction for ticket %s: %w", ticketID, models.ErrNotFound)
	}
	return nil
}
