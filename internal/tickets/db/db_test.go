package db_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-booking/internal/models"
	"ms-booking/internal/tickets/db"
)

func setupTestDB(t *testing.T) *db.DB {
	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	require.NoError(t, err)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	require.NoError(t, bunDB.ResetModel(context.Background(), (*models.Ticket)(nil)))

	return &db.DB{Bun: bunDB}
}

func sampleTicket(id, code string) models.Ticket {
	now := time.Date(2026, 9, 10, 9, 0, 0, 0, time.UTC)
	return models.Ticket{
		ID:          id,
		BookingCode: code,
		VisitDate:   "2026-09-15",
		AdultCount:  2,
		ChildCount:  1,
		BuyerName:   "Siti Rahma",
		BuyerPhone:  "+6281234567890",
		BuyerEmail:  "siti@example.com",
		Status:      models.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestCreateAndGetTicket(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	ticket := sampleTicket("t-1", "PM-10092026-0001")
	require.NoError(t, d.CreateTicket(ctx, ticket))

	got, err := d.GetTicketByID(ctx, "t-1")

	assert.NoError(t, err)
	assert.Equal(t, "PM-10092026-0001", got.BookingCode)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Equal(t, 3, got.PartyCount())
}

func TestGetTicketByID_NotFound(t *testing.T) {
	d := setupTestDB(t)

	_, err := d.GetTicketByID(context.Background(), "missing")

	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestGetTicketByBookingCode(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, d.CreateTicket(ctx, sampleTicket("t-1", "PM-10092026-0001")))

	got, err := d.GetTicketByBookingCode(ctx, "PM-10092026-0001")

	assert.NoError(t, err)
	assert.Equal(t, "t-1", got.ID)

	_, err = d.GetTicketByBookingCode(ctx, "PM-00000000-0000")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestGetTicketByBookingCode_CollisionReturnsEarliest(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	first := sampleTicket("t-1", "PM-10092026-0001")
	second := sampleTicket("t-2", "PM-10092026-0001")
	second.CreatedAt = first.CreatedAt.Add(time.Hour)
	require.NoError(t, d.CreateTicket(ctx, first))
	require.NoError(t, d.CreateTicket(ctx, second))

	got, err := d.GetTicketByBookingCode(ctx, "PM-10092026-0001")

	assert.NoError(t, err)
	assert.Equal(t, "t-1", got.ID)
}

func TestGetTicketsByStatusAndVisitDate(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	pending := sampleTicket("t-1", "PM-10092026-0001")
	paid := sampleTicket("t-2", "PM-10092026-0002")
	paid.Status = models.StatusPaid
	otherDate := sampleTicket("t-3", "PM-10092026-0003")
	otherDate.VisitDate = "2026-09-16"
	require.NoError(t, d.CreateTicket(ctx, pending))
	require.NoError(t, d.CreateTicket(ctx, paid))
	require.NoError(t, d.CreateTicket(ctx, otherDate))

	byStatus, err := d.GetTicketsByStatus(ctx, models.StatusPending)
	assert.NoError(t, err)
	assert.Len(t, byStatus, 2)

	byDate, err := d.GetTicketsByVisitDate(ctx, "2026-09-15")
	assert.NoError(t, err)
	assert.Len(t, byDate, 2)
}

func TestUpdateTicketStatus_StampsUpdatedAt(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	ticket := sampleTicket("t-1", "PM-10092026-0001")
	require.NoError(t, d.CreateTicket(ctx, ticket))

	later := ticket.CreatedAt.Add(15 * time.Minute)
	updated, err := d.UpdateTicketStatus(ctx, "t-1", models.StatusPaid, later)

	assert.NoError(t, err)
	assert.Equal(t, models.StatusPaid, updated.Status)
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt))
}

func TestUpdateTicketStatus_NotFound(t *testing.T) {
	d := setupTestDB(t)

	_, err := d.UpdateTicketStatus(context.Background(), "missing", models.StatusPaid, time.Now())

	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDeleteTicket(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, d.CreateTicket(ctx, sampleTicket("t-1", "PM-10092026-0001")))
	require.NoError(t, d.DeleteTicket(ctx, "t-1"))

	_, err := d.GetTicketByID(ctx, "t-1")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
