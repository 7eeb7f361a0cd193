package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ms-booking/internal/auth"
	"ms-booking/internal/eticket"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/utils"
)

// BookingService is the slice of the booking service the handlers need.
type BookingService interface {
	Book(ctx context.Context, userID string, req models.BookingRequest) (*models.BookingResponse, error)
	SubmitPayment(ctx context.Context, ticketID, proofURL string) error
	CreatePaymentToken(ctx context.Context, ticketID string) (string, error)
	Confirm(ctx context.Context, ticketID string) error
	Cancel(ctx context.Context, ticketID string) error
	DeleteTicket(ctx context.Context, ticketID string) error
	GetTicket(ctx context.Context, ticketID string) (*models.TicketWithTransaction, error)
	GetTicketIDByBookingCode(ctx context.Context, code string) (string, error)
	GetTimetables(ctx context.Context) ([]models.Timetable, error)
	GetTicketsByStatus(ctx context.Context, status string) ([]models.TicketWithTransaction, error)
	GetUserTickets(ctx context.Context, userID string) ([]models.TicketWithTransaction, error)
	GetVisitorReports(ctx context.Context) ([]models.VisitorReport, error)
	GetPendingOverdue(ctx context.Context, graceMinutes int) ([]models.TicketWithTransaction, error)
}

type Handler struct {
	Service BookingService
	Logger  *logger.Logger
}

func NewHandler(service BookingService, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

// RegisterRoutes mounts the ticket API. Everything except the public
// timetable listing sits behind the auth middleware.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/tickets", func(r chi.Router) {
		r.Get("/timetables", h.GetTimetables)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware())
			r.Post("/", h.BookTickets)
			r.Get("/my", h.GetUserTickets)
			r.Get("/visitor-reports", h.GetVisitorReports)
			r.Get("/paid-tickets", h.GetPaidTickets)
			r.Get("/pending-tickets", h.GetPendingOverdue)
			r.Get("/booking-code/{bookingCode}", h.GetTicketIDByBookingCode)
			r.Put("/pay/{ticketID}", h.SubmitPayment)
			r.Post("/pay/{ticketID}/token", h.CreatePaymentToken)
			r.Put("/confirm/{ticketID}", h.ConfirmTicket)
			r.Put("/cancel/{ticketID}", h.CancelTicket)
			r.Get("/{ticketID}", h.GetTicket)
			r.Get("/{ticketID}/qr", h.GetTicketQR)
			r.Delete("/{ticketID}", h.DeleteTicket)
		})
	})
}

func (h *Handler) BookTickets(w http.ResponseWriter, r *http.Request) {
	var req models.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body", err.Error()))
		return
	}

	resp, err := h.Service.Book(r.Context(), auth.UserIDFromContext(r.Context()), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, utils.SuccessResponse("ticket booked", resp))
}

func (h *Handler) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProofOfPaymentURL string `json:"proof_of_payment_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body", err.Error()))
		return
	}

	if err := h.Service.SubmitPayment(r.Context(), chi.URLParam(r, "ticketID"), req.ProofOfPaymentURL); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("payment submitted", nil))
}

func (h *Handler) CreatePaymentToken(w http.ResponseWriter, r *http.Request) {
	token, err := h.Service.CreatePaymentToken(r.Context(), chi.URLParam(r, "ticketID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("payment token created", map[string]string{"token": token}))
}

func (h *Handler) ConfirmTicket(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Confirm(r.Context(), chi.URLParam(r, "ticketID")); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("ticket confirmed", nil))
}

func (h *Handler) CancelTicket(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Cancel(r.Context(), chi.URLParam(r, "ticketID")); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("ticket cancelled", nil))
}

func (h *Handler) DeleteTicket(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteTicket(r.Context(), chi.URLParam(r, "ticketID")); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("ticket deleted", nil))
}

func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	ticket, err := h.Service.GetTicket(r.Context(), chi.URLParam(r, "ticketID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("ticket", ticket))
}

// GetTicketQR renders the gate QR for a confirmed ticket.
func (h *Handler) GetTicketQR(w http.ResponseWriter, r *http.Request) {
	ticket, err := h.Service.GetTicket(r.Context(), chi.URLParam(r, "ticketID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if ticket.Ticket.Status != models.StatusConfirmed {
		h.writeError(w, fmt.Errorf("QR is only available for confirmed tickets: %w", models.ErrInvalidState))
		return
	}

	png, err := eticket.Generate(ticket.Ticket)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

func (h *Handler) GetTicketIDByBookingCode(w http.ResponseWriter, r *http.Request) {
	id, err := h.Service.GetTicketIDByBookingCode(r.Context(), chi.URLParam(r, "bookingCode"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("ticket id", map[string]string{"ticket_id": id}))
}

func (h *Handler) GetTimetables(w http.ResponseWriter, r *http.Request) {
	timetables, err := h.Service.GetTimetables(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("timetables", timetables))
}

func (h *Handler) GetPaidTickets(w http.ResponseWriter, r *http.Request) {
	tickets, err := h.Service.GetTicketsByStatus(r.Context(), models.StatusPaid)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("paid tickets", tickets))
}

func (h *Handler) GetUserTickets(w http.ResponseWriter, r *http.Request) {
	tickets, err := h.Service.GetUserTickets(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("user tickets", tickets))
}

func (h *Handler) GetVisitorReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.Service.GetVisitorReports(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("visitor reports", reports))
}

func (h *Handler) GetPendingOverdue(w http.ResponseWriter, r *http.Request) {
	grace := 0
	if v := r.URL.Query().Get("grace"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			h.writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid grace minutes", err.Error()))
			return
		}
		grace = parsed
	}

	tickets, err := h.Service.GetPendingOverdue(r.Context(), grace)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("overdue pending tickets", tickets))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body utils.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.Logger.Error("API", fmt.Sprintf("failed to write response: %v", err))
	}
}

// writeError translates domain errors into HTTP statuses. Unexpected errors
// are logged and surfaced as a generic failure without leaking internals.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		h.writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("validation failed", err.Error()))
	case errors.Is(err, models.ErrQuotaExceeded):
		h.writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("quota for this date is full", err.Error()))
	case errors.Is(err, models.ErrNotFound):
		h.writeJSON(w, http.StatusNotFound, utils.ErrorResponse("not found", err.Error()))
	case errors.Is(err, models.ErrInvalidState):
		h.writeJSON(w, http.StatusConflict, utils.ErrorResponse("invalid ticket state", err.Error()))
	default:
		h.Logger.Error("API", fmt.Sprintf("unexpected error: %v", err))
		h.writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("internal error", "something went wrong"))
	}
}
