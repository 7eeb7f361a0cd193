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

// DB is the capacity ledger: one row per visit date holding the remaining
// quota and the ceiling it may never exceed.
type DB struct {
	Bun *bun.DB
}

func (d *DB) GetByDate(ctx context.Context, visitDate string) (*models.Timetable, error) {
	var entry models.Timetable
	err := d.Bun.NewSelect().
		Model(&entry).
		Where("visit_date = ?", visitDate).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("timetable for %s: %w", visitDate, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// EnsureDate creates the ledger entry for a date on its first booking. The
// first booking both establishes and consumes capacity, so the new row starts
// at maxCapacity - initialPartyCount.
func (d *DB) EnsureDate(ctx context.Context, visitDate string, initialPartyCount, maxCapacity int) (*models.Timetable, error) {
	if initialPartyCount > maxCapacity {
		return nil, fmt.Errorf("party of %d exceeds venue capacity %d: %w", initialPartyCount, maxCapacity, models.ErrValidation)
	}

	now := time.Now()
	entry := &models.Timetable{
		VisitDate:   visitDate,
		Quota:       maxCapacity - initialPartyCount,
		MaxCapacity: maxCapacity,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := d.Bun.NewInsert().Model(entry).Exec(ctx); err != nil {
		return nil, err
	}
	return entry, nil
}

// TryReserve decrements the date's quota by partyCount as a single
// conditional update. Two concurrent reservations cannot both pass the quota
// check: the WHERE clause makes the check-then-decrement atomic, so the quota
// can never go negative.
func (d *DB) TryReserve(ctx context.Context, visitDate string, partyCount int) (*models.Timetable, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Timetable)(nil)).
		Set("quota = quota - ?", partyCount).
		Set("updated_at = ?", time.Now()).
		Where("visit_date = ?", visitDate).
		Where("quota >= ?", partyCount).
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		// Either the date has no ledger entry or the quota is insufficient.
		if _, err := d.GetByDate(ctx, visitDate); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("reserve %d on %s: %w", partyCount, visitDate, models.ErrQuotaExceeded)
	}

	return d.GetByDate(ctx, visitDate)
}

// Release restores partyCount slots to the date's quota, clamped at the
// date's max capacity so a double-processed cancellation cannot push the
// ledger above its original ceiling.
func (d *DB) Release(ctx context.Context, visitDate string, partyCount int) (*models.Timetable, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Timetable)(nil)).
		Set("quota = CASE WHEN quota + ? > max_capacity THEN max_capacity ELSE quota + ? END", partyCount, partyCount).
		Set("updated_at = ?", time.Now()).
		Where("visit_date = ?", visitDate).
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, fmt.Errorf("timetable for %s: %w", visitDate, models.ErrNotFound)
	}

	return d.GetByDate(ctx, visitDate)
}

func (d *DB) List(ctx context.Context) ([]models.Timetable, error) {
	var entries []models.Timetable
	err := d.Bun.NewSelect().
		Model(&entries).
		Order("visit_date ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return entries, nil
}
