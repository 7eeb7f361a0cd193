package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ms-booking/internal/booking/api"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
)

type MockBookingService struct {
	mock.Mock
}

func (m *MockBookingService) Book(ctx context.Context, userID string, req models.BookingRequest) (*models.BookingResponse, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BookingResponse), args.Error(1)
}

func (m *MockBookingService) SubmitPayment(ctx context.Context, ticketID, proofURL string) error {
	args := m.Called(ctx, ticketID, proofURL)
	return args.Error(0)
}

func (m *MockBookingService) CreatePaymentToken(ctx context.Context, ticketID string) (string, error) {
	args := m.Called(ctx, ticketID)
	return args.String(0), args.Error(1)
}

func (m *MockBookingService) Confirm(ctx context.Context, ticketID string) error {
	args := m.Called(ctx, ticketID)
	return args.Error(0)
}

func (m *MockBookingService) Cancel(ctx context.Context, ticketID string) error {
	args := m.Called(ctx, ticketID)
	return args.Error(0)
}

func (m *MockBookingService) DeleteTicket(ctx context.Context, ticketID string) error {
	args := m.Called(ctx, ticketID)
	return args.Error(0)
}

func (m *MockBookingService) GetTicket(ctx context.Context, ticketID string) (*models.TicketWithTransaction, error) {
	args := m.Called(ctx, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TicketWithTransaction), args.Error(1)
}

func (m *MockBookingService) GetTicketIDByBookingCode(ctx context.Context, code string) (string, error) {
	args := m.Called(ctx, code)
	return args.String(0), args.Error(1)
}

func (m *MockBookingService) GetTimetables(ctx context.Context) ([]models.Timetable, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Timetable), args.Error(1)
}

func (m *MockBookingService) GetTicketsByStatus(ctx context.Context, status string) ([]models.TicketWithTransaction, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TicketWithTransaction), args.Error(1)
}

func (m *MockBookingService) GetUserTickets(ctx context.Context, userID string) ([]models.TicketWithTransaction, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TicketWithTransaction), args.Error(1)
}

func (m *MockBookingService) GetVisitorReports(ctx context.Context) ([]models.VisitorReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.VisitorReport), args.Error(1)
}

func (m *MockBookingService) GetPendingOverdue(ctx context.Context, graceMinutes int) ([]models.TicketWithTransaction, error) {
	args := m.Called(ctx, graceMinutes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TicketWithTransaction), args.Error(1)
}

func setupRouter(service api.BookingService) *chi.Mux {
	handler := api.NewHandler(service, logger.NewSilent())
	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r
}

// testToken builds an unsigned JWT carrying the given subject; the middleware
// only parses claims, it does not verify signatures.
func testToken(t *testing.T, sub string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": sub})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func authedRequest(t *testing.T, method, target string, body []byte) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+testToken(t, "user-1"))
	return req
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestBookTickets_Created(t *testing.T) {
	service := new(MockBookingService)
	service.On("Book", mock.Anything, "user-1", mock.Anything).
		Return(&models.BookingResponse{TicketID: "t-1", BookingCode: "PM-15092026-0001"}, nil)
	router := setupRouter(service)

	payload, _ := json.Marshal(models.BookingRequest{
		AdultCount: 2, ChildCount: 1, TotalPrice: 150000,
		VisitDate: "2026-09-15", BuyerName: "Siti", BuyerPhone: "+62812", BuyerEmail: "s@x.id",
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/tickets/", payload))

	assert.Equal(t, http.StatusCreated, rec.Code)
	body := decodeResponse(t, rec)
	assert.Equal(t, true, body["success"])
}

func TestBookTickets_QuotaFull(t *testing.T) {
	service := new(MockBookingService)
	service.On("Book", mock.Anything, "user-1", mock.Anything).
		Return(nil, fmt.Errorf("reserve 3 on 2026-09-15: %w", models.ErrQuotaExceeded))
	router := setupRouter(service)

	payload, _ := json.Marshal(models.BookingRequest{AdultCount: 2, ChildCount: 1, VisitDate: "2026-09-15"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/tickets/", payload))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeResponse(t, rec)
	assert.Equal(t, "quota for this date is full", body["message"])
}

func TestBookTickets_Unauthorized(t *testing.T) {
	router := setupRouter(new(MockBookingService))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tickets/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestConfirmTicket_InvalidState(t *testing.T) {
	service := new(MockBookingService)
	service.On("Confirm", mock.Anything, "t-1").
		Return(fmt.Errorf("ticket is not yet paid: %w", models.ErrInvalidState))
	router := setupRouter(service)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodPut, "/tickets/confirm/t-1", nil))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetTicket_NotFound(t *testing.T) {
	service := new(MockBookingService)
	service.On("GetTicket", mock.Anything, "missing").
		Return(nil, fmt.Errorf("ticket missing: %w", models.ErrNotFound))
	router := setupRouter(service)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodGet, "/tickets/missing", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetTimetables_Public(t *testing.T) {
	service := new(MockBookingService)
	service.On("GetTimetables", mock.Anything).
		Return([]models.Timetable{{VisitDate: "2026-09-15", Quota: 47, MaxCapacity: 50}}, nil)
	router := setupRouter(service)

	// No Authorization header: the timetable listing is public.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tickets/timetables", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetPendingOverdue_ParsesGraceQuery(t *testing.T) {
	service := new(MockBookingService)
	service.On("GetPendingOverdue", mock.Anything, 60).
		Return([]models.TicketWithTransaction{}, nil)
	router := setupRouter(service)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodGet, "/tickets/pending-tickets?grace=60", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	service.AssertCalled(t, "GetPendingOverdue", mock.Anything, 60)
}

func TestGetTicketQR_RequiresConfirmedStatus(t *testing.T) {
	service := new(MockBookingService)
	service.On("GetTicket", mock.Anything, "t-1").
		Return(&models.TicketWithTransaction{
			Ticket: models.Ticket{ID: "t-1", Status: models.StatusPending},
		}, nil)
	router := setupRouter(service)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodGet, "/tickets/t-1/qr", nil))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetTicketQR_ReturnsPNG(t *testing.T) {
	service := new(MockBookingService)
	service.On("GetTicket", mock.Anything, "t-1").
		Return(&models.TicketWithTransaction{
			Ticket: models.Ticket{
				ID: "t-1", BookingCode: "PM-15092026-0001",
				VisitDate: "2026-09-15", Status: models.StatusConfirmed,
			},
		}, nil)
	router := setupRouter(service)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodGet, "/tickets/t-1/qr", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Body.Bytes())
}

func TestCancelTicket_OK(t *testing.T) {
	service := new(MockBookingService)
	service.On("Cancel", mock.Anything, "t-1").Return(nil)
	router := setupRouter(service)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodPut, "/tickets/cancel/t-1", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}
