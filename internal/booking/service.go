package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/utils"
)

// LedgerDB is the per-date capacity ledger.
type LedgerDB interface {
	GetByDate(ctx context.Context, visitDate string) (*models.Timetable, error)
	EnsureDate(ctx context.Context, visitDate string, initialPartyCount, maxCapacity int) (*models.Timetable, error)
	TryReserve(ctx context.Context, visitDate string, partyCount int) (*models.Timetable, error)
	Release(ctx context.Context, visitDate string, partyCount int) (*models.Timetable, error)
	List(ctx context.Context) ([]models.Timetable, error)
}

type TicketDB interface {
	CreateTicket(ctx context.Context, ticket models.Ticket) error
	GetTicketByID(ctx context.Context, id string) (*models.Ticket, error)
	GetTicketByBookingCode(ctx context.Context, code string) (*models.Ticket, error)
	GetTicketsByStatus(ctx context.Context, status string) ([]models.Ticket, error)
	GetTicketsByVisitDate(ctx context.Context, visitDate string) ([]models.Ticket, error)
	UpdateTicketStatus(ctx context.Context, id, status string, now time.Time) (*models.Ticket, error)
	DeleteTicket(ctx context.Context, id string) error
}

type TransactionDB interface {
	CreateTransaction(ctx context.Context, txn models.Transaction) error
	GetTransactionByTicketID(ctx context.Context, ticketID string) (*models.Transaction, error)
	GetTransactionsByUserID(ctx context.Context, userID string) ([]models.Transaction, error)
	SetProofOfPayment(ctx context.Context, ticketID, proofURL string, now time.Time) error
	MarkPaid(ctx context.Context, ticketID string, now time.Time) error
	DeleteTransaction(ctx context.Context, ticketID string) error
}

// DateLock serializes capacity updates for one visit date.
type DateLock interface {
	LockDate(ctx context.Context, visitDate, ownerID string) (bool, error)
	UnlockDate(ctx context.Context, visitDate, ownerID string) error
}

type EventPublisher interface {
	PublishTicketBooked(ticket models.Ticket) error
	PublishTicketPaid(ticket models.Ticket) error
	PublishTicketConfirmed(ticket models.Ticket) error
	PublishTicketCancelled(ticket models.Ticket) error
}

// PaymentGateway exchanges an order id and gross amount for an opaque
// transaction token.
type PaymentGateway interface {
	CreateTransactionToken(orderID string, grossAmount float64) (string, error)
}

// Policy is the venue booking policy the service applies.
type Policy struct {
	MaxCapacity       int
	BookingCodePrefix string
	GraceMinutes      int
	Location          *time.Location
}

// Service orchestrates the ticket lifecycle: it reserves capacity, creates
// the ticket/transaction pair, and advances status through payment,
// confirmation and cancellation.
type Service struct {
	Ledger  LedgerDB
	Tickets TicketDB
	Txns    TransactionDB
	Lock    DateLock
	Events  EventPublisher
	Gateway PaymentGateway
	Logger  *logger.Logger
	Policy  Policy

	// now is the venue clock; tests override it.
	now func() time.Time
}

func NewService(ledger LedgerDB, tickets TicketDB, txns TransactionDB, lock DateLock, events EventPublisher, gateway PaymentGateway, log *logger.Logger, policy Policy) *Service {
	if policy.Location == nil {
		policy.Location = time.UTC
	}
	s := &Service{
		Ledger:  ledger,
		Tickets: tickets,
		Txns:    txns,
		Lock:    lock,
		Events:  events,
		Gateway: gateway,
		Logger:  log,
		Policy:  policy,
	}
	s.now = func() time.Time { return time.Now().In(policy.Location) }
	return s
}

// SetNow overrides the service clock. Tests use it to pin expiry checks.
func (s *Service) SetNow(now func() time.Time) {
	s.now = now
}

func validateBooking(req models.BookingRequest) error {
	if req.AdultCount < 0 || req.ChildCount < 0 || req.CarCount < 0 || req.MotorcycleCount < 0 {
		return fmt.Errorf("counts must not be negative: %w", models.ErrValidation)
	}
	if req.AdultCount+req.ChildCount == 0 {
		return fmt.Errorf("party size must be greater than zero: %w", models.ErrValidation)
	}
	if req.VisitDate == "" {
		return fmt.Errorf("visit date is required: %w", models.ErrValidation)
	}
	if req.TotalPrice < 0 {
		return fmt.Errorf("total price must not be negative: %w", models.ErrValidation)
	}
	if req.BuyerName == "" || req.BuyerPhone == "" || req.BuyerEmail == "" {
		return fmt.Errorf("buyer contact info is required: %w", models.ErrValidation)
	}
	return nil
}

// Book reserves capacity for the visit date and creates the ticket with its
// transaction. The date lock plus the ledger's conditional decrement make the
// quota check-then-write safe against concurrent bookings. Failures after the
// reservation compensate so no capacity is leaked.
func (s *Service) Book(ctx context.Context, userID string, req models.BookingRequest) (*models.BookingResponse, error) {
	if err := validateBooking(req); err != nil {
		return nil, err
	}

	partyCount := req.AdultCount + req.ChildCount
	ticketID := uuid.NewString()

	locked, err := s.Lock.LockDate(ctx, req.VisitDate, ticketID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock date %s: %w", req.VisitDate, err)
	}
	if !locked {
		return nil, fmt.Errorf("date %s is being booked, retry: %w", req.VisitDate, models.ErrQuotaExceeded)
	}
	defer func() {
		if err := s.Lock.UnlockDate(ctx, req.VisitDate, ticketID); err != nil {
			s.Logger.Warn("BOOKING", fmt.Sprintf("failed to unlock date %s: %v", req.VisitDate, err))
		}
	}()

	entry, err := s.Ledger.GetByDate(ctx, req.VisitDate)
	switch {
	case errors.Is(err, models.ErrNotFound):
		// First booking on this date establishes and consumes capacity in one
		// step.
		entry, err = s.Ledger.EnsureDate(ctx, req.VisitDate, partyCount, s.Policy.MaxCapacity)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		entry, err = s.Ledger.TryReserve(ctx, req.VisitDate, partyCount)
		if err != nil {
			return nil, err
		}
	}
	s.Logger.LogQuota(req.VisitDate, entry.Quota, fmt.Sprintf("reserved %d", partyCount))

	now := s.now()
	ticket := models.Ticket{
		ID:              ticketID,
		BookingCode:     utils.GenerateBookingCode(s.Policy.BookingCodePrefix, now),
		VisitDate:       req.VisitDate,
		AdultCount:      req.AdultCount,
		ChildCount:      req.ChildCount,
		CarCount:        req.CarCount,
		MotorcycleCount: req.MotorcycleCount,
		BuyerName:       req.BuyerName,
		BuyerPhone:      req.BuyerPhone,
		BuyerEmail:      req.BuyerEmail,
		Status:          models.StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.Tickets.CreateTicket(ctx, ticket); err != nil {
		if _, relErr := s.Ledger.Release(ctx, req.VisitDate, partyCount); relErr != nil {
			s.Logger.Error("BOOKING", fmt.Sprintf("failed to release %d on %s after ticket create failure: %v", partyCount, req.VisitDate, relErr))
		}
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}

	txn := models.Transaction{
		ID:         uuid.NewString(),
		TicketID:   ticketID,
		UserID:     userID,
		TotalPrice: req.TotalPrice,
		IsPaid:     false,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.Txns.CreateTransaction(ctx, txn); err != nil {
		if delErr := s.Tickets.DeleteTicket(ctx, ticketID); delErr != nil {
			s.Logger.Error("BOOKING", fmt.Sprintf("failed to delete orphan ticket %s: %v", ticketID, delErr))
		}
		if _, relErr := s.Ledger.Release(ctx, req.VisitDate, partyCount); relErr != nil {
			s.Logger.Error("BOOKING", fmt.Sprintf("failed to release %d on %s after transaction create failure: %v", partyCount, req.VisitDate, relErr))
		}
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	if err := s.Events.PublishTicketBooked(ticket); err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("publish ticket booked %s: %v", ticketID, err))
	}

	s.Logger.LogBooking("BOOK", ticketID, fmt.Sprintf("code=%s date=%s party=%d", ticket.BookingCode, req.VisitDate, partyCount))
	return &models.BookingResponse{TicketID: ticketID, BookingCode: ticket.BookingCode}, nil
}

// SubmitPayment records manual proof of payment and moves the ticket from
// pending to paid. isPaid stays false until staff confirm.
func (s *Service) SubmitPayment(ctx context.Context, ticketID, proofURL string) error {
	if proofURL == "" {
		return fmt.Errorf("proof of payment URL is required: %w", models.ErrValidation)
	}

	ticket, err := s.Tickets.GetTicketByID(ctx, ticketID)
	if err != nil {
		return err
	}
	switch ticket.Status {
	case models.StatusPending:
	case models.StatusPaid:
		return fmt.Errorf("payment already submitted: %w", models.ErrInvalidState)
	case models.StatusConfirmed:
		return fmt.Errorf("already confirmed: %w", models.ErrInvalidState)
	case models.StatusCancelled:
		return fmt.Errorf("already cancelled: %w", models.ErrInvalidState)
	default:
		return fmt.Errorf("unknown status %q: %w", ticket.Status, models.ErrInvalidState)
	}

	// The pair must be intact before recording payment.
	if _, err := s.Txns.GetTransactionByTicketID(ctx, ticketID); err != nil {
		return err
	}

	now := s.now()
	if err := s.Txns.SetProofOfPayment(ctx, ticketID, proofURL, now); err != nil {
		return fmt.Errorf("failed to store proof of payment: %w", err)
	}
	updated, err := s.Tickets.UpdateTicketStatus(ctx, ticketID, models.StatusPaid, now)
	if err != nil {
		return fmt.Errorf("failed to update ticket status: %w", err)
	}

	if err := s.Events.PublishTicketPaid(*updated); err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("publish ticket paid %s: %v", ticketID, err))
	}
	s.Logger.LogBooking("PAY", ticketID, "proof of payment submitted")
	return nil
}

// CreatePaymentToken runs the gateway flow: it exchanges the ticket id and
// the transaction's gross amount for an opaque token.
func (s *Service) CreatePaymentToken(ctx context.Context, ticketID string) (string, error) {
	ticket, err := s.Tickets.GetTicketByID(ctx, ticketID)
	if err != nil {
		return "", err
	}
	if ticket.Status != models.StatusPending {
		return "", fmt.Errorf("ticket is not awaiting payment: %w", models.ErrInvalidState)
	}
	txn, err := s.Txns.GetTransactionByTicketID(ctx, ticketID)
	if err != nil {
		return "", err
	}
	return s.Gateway.CreateTransactionToken(ticketID, txn.TotalPrice)
}

// Confirm is the staff verification step: paid → confirmed, and the
// transaction is marked paid.
func (s *Service) Confirm(ctx context.Context, ticketID string) error {
	ticket, err := s.Tickets.GetTicketByID(ctx, ticketID)
	if err != nil {
		return err
	}
	switch ticket.Status {
	case models.StatusPaid:
	case models.StatusPending:
		return fmt.Errorf("ticket is not yet paid: %w", models.ErrInvalidState)
	case models.StatusConfirmed:
		return fmt.Errorf("already confirmed: %w", models.ErrInvalidState)
	case models.StatusCancelled:
		return fmt.Errorf("already cancelled: %w", models.ErrInvalidState)
	default:
		return fmt.Errorf("unknown status %q: %w", ticket.Status, models.ErrInvalidState)
	}

	if _, err := s.Txns.GetTransactionByTicketID(ctx, ticketID); err != nil {
		return err
	}

	now := s.now()
	updated, err := s.Tickets.UpdateTicketStatus(ctx, ticketID, models.StatusConfirmed, now)
	if err != nil {
		return fmt.Errorf("failed to update ticket status: %w", err)
	}
	if err := s.Txns.MarkPaid(ctx, ticketID, now); err != nil {
		return fmt.Errorf("failed to mark transaction paid: %w", err)
	}

	if err := s.Events.PublishTicketConfirmed(*updated); err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("publish ticket confirmed %s: %v", ticketID, err))
	}
	s.Logger.LogBooking("CONFIRM", ticketID, "ticket confirmed")
	return nil
}

// Cancel soft-cancels a pending or paid ticket and restores its party count
// to the date's ledger. The status write happens first so a second cancel is
// rejected instead of double-crediting the quota.
func (s *Service) Cancel(ctx context.Context, ticketID string) error {
	ticket, err := s.Tickets.GetTicketByID(ctx, ticketID)
	if err != nil {
		return err
	}
	switch ticket.Status {
	case models.StatusPending, models.StatusPaid:
	case models.StatusConfirmed:
		return fmt.Errorf("cannot cancel a confirmed ticket: %w", models.ErrInvalidState)
	case models.StatusCancelled:
		return fmt.Errorf("already cancelled: %w", models.ErrInvalidState)
	default:
		return fmt.Errorf("unknown status %q: %w", ticket.Status, models.ErrInvalidState)
	}

	updated, err := s.Tickets.UpdateTicketStatus(ctx, ticketID, models.StatusCancelled, s.now())
	if err != nil {
		return fmt.Errorf("failed to cancel ticket: %w", err)
	}

	entry, err := s.Ledger.Release(ctx, ticket.VisitDate, ticket.PartyCount())
	if err != nil {
		// Status is already cancelled; losing the release is the known gap we
		// surface loudly rather than roll back.
		s.Logger.Error("BOOKING", fmt.Sprintf("cancelled %s but failed to release %d on %s: %v", ticketID, ticket.PartyCount(), ticket.VisitDate, err))
		return fmt.Errorf("failed to release capacity: %w", err)
	}
	s.Logger.LogQuota(ticket.VisitDate, entry.Quota, fmt.Sprintf("released %d", ticket.PartyCount()))

	if err := s.Events.PublishTicketCancelled(*updated); err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("publish ticket cancelled %s: %v", ticketID, err))
	}
	s.Logger.LogBooking("CANCEL", ticketID, "ticket cancelled")
	return nil
}

// DeleteTicket hard-deletes a cancelled ticket and its transaction. The
// ledger is untouched: cancellation already restored the quota.
func (s *Service) DeleteTicket(ctx context.Context, ticketID string) error {
	ticket, err := s.Tickets.GetTicketByID(ctx, ticketID)
	if err != nil {
		return err
	}
	if ticket.Status != models.StatusCancelled {
		return fmt.Errorf("only cancelled tickets can be deleted: %w", models.ErrInvalidState)
	}

	if err := s.Txns.DeleteTransaction(ctx, ticketID); err != nil && !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	if err := s.Tickets.DeleteTicket(ctx, ticketID); err != nil {
		return fmt.Errorf("failed to delete ticket: %w", err)
	}
	s.Logger.LogBooking("DELETE", ticketID, "cancelled ticket removed")
	return nil
}

// GetTicket returns a ticket joined with its transaction. A missing
// transaction (orphan pair) is returned as nil rather than an error.
func (s *Service) GetTicket(ctx context.Context, ticketID string) (*models.TicketWithTransaction, error) {
	ticket, err := s.Tickets.GetTicketByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	result := &models.TicketWithTransaction{Ticket: *ticket}
	txn, err := s.Txns.GetTransactionByTicketID(ctx, ticketID)
	if err == nil {
		result.Transaction = txn
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}
	return result, nil
}

func (s *Service) GetTicketIDByBookingCode(ctx context.Context, code string) (string, error) {
	ticket, err := s.Tickets.GetTicketByBookingCode(ctx, code)
	if err != nil {
		return "", err
	}
	return ticket.ID, nil
}

func (s *Service) GetTimetables(ctx context.Context) ([]models.Timetable, error) {
	return s.Ledger.List(ctx)
}

// GetTicketsByStatus lists tickets in one lifecycle status with their
// transactions, for the staff paid/pending views.
func (s *Service) GetTicketsByStatus(ctx context.Context, status string) ([]models.TicketWithTransaction, error) {
	if !models.ValidStatus(status) {
		return nil, fmt.Errorf("unknown status %q: %w", status, models.ErrValidation)
	}
	tickets, err := s.Tickets.GetTicketsByStatus(ctx, status)
	if err != nil {
		return nil, err
	}
	return s.attachTransactions(ctx, tickets)
}

// GetUserTickets returns every ticket the user has purchased, joined from
// their transactions.
func (s *Service) GetUserTickets(ctx context.Context, userID string) ([]models.TicketWithTransaction, error) {
	txns, err := s.Txns.GetTransactionsByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	result := make([]models.TicketWithTransaction, 0, len(txns))
	for i := range txns {
		ticket, err := s.Tickets.GetTicketByID(ctx, txns[i].TicketID)
		if errors.Is(err, models.ErrNotFound) {
			continue // hard-deleted ticket, stale transaction
		}
		if err != nil {
			return nil, err
		}
		result = append(result, models.TicketWithTransaction{Ticket: *ticket, Transaction: &txns[i]})
	}
	return result, nil
}

// GetVisitorReports aggregates party sizes per visit date across all tickets
// on that date regardless of status. Read-only projection.
func (s *Service) GetVisitorReports(ctx context.Context) ([]models.VisitorReport, error) {
	entries, err := s.Ledger.List(ctx)
	if err != nil {
		return nil, err
	}

	reports := make([]models.VisitorReport, 0, len(entries))
	for _, entry := range entries {
		tickets, err := s.Tickets.GetTicketsByVisitDate(ctx, entry.VisitDate)
		if err != nil {
			return nil, err
		}
		report := models.VisitorReport{VisitDate: entry.VisitDate, Quota: entry.Quota}
		for _, t := range tickets {
			report.AdultCount += t.AdultCount
			report.ChildCount += t.ChildCount
			report.TotalVisitors += t.PartyCount()
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// GetPendingOverdue returns pending tickets older than the grace period, with
// their transactions, for operator follow-up. It is a query only: nothing is
// cancelled and no capacity is released here.
func (s *Service) GetPendingOverdue(ctx context.Context, graceMinutes int) ([]models.TicketWithTransaction, error) {
	if graceMinutes <= 0 {
		graceMinutes = s.Policy.GraceMinutes
	}

	tickets, err := s.Tickets.GetTicketsByStatus(ctx, models.StatusPending)
	if err != nil {
		return nil, err
	}

	now := s.now()
	grace := time.Duration(graceMinutes) * time.Minute
	overdue := make([]models.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if !t.CreatedAt.Add(grace).After(now) {
			overdue = append(overdue, t)
		}
	}
	return s.attachTransactions(ctx, overdue)
}

func (s *Service) attachTransactions(ctx context.Context, tickets []models.Ticket) ([]models.TicketWithTransaction, error) {
	result := make([]models.TicketWithTransaction, 0, len(tickets))
	for _, t := range tickets {
		item := models.TicketWithTransaction{Ticket: t}
		txn, err := s.Txns.GetTransactionByTicketID(ctx, t.ID)
		if err == nil {
			item.Transaction = txn
		} else if !errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		result = append(result, item)
	}
	return result, nil
}
