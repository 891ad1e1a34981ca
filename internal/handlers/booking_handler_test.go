package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/glowmobile/TanAppBack/internal/models"
	"github.com/glowmobile/TanAppBack/internal/repository"
	"github.com/glowmobile/TanAppBack/internal/services"
)

type stubBookingService struct {
	cancelResult   *services.CancelOutcome
	cancelErr      error
	previewResult  *services.RefundDecision
	previewErr     error
	completeResult *models.Booking
	completeErr    error
	confirmResult  *models.Booking
	confirmErr     error
	getResult      *models.Booking
	getErr         error
	listResult     []models.Booking
	listErr        error
	lastBookingID  int64
	lastActorID    int64
	lastRole       string
	lastFilter     repository.BookingListFilter
}

func (s *stubBookingService) Cancel(_ context.Context, bookingID, actorID int64, role string) (*services.CancelOutcome, error) {
	s.lastBookingID = bookingID
	s.lastActorID = actorID
	s.lastRole = role
	return s.cancelResult, s.cancelErr
}

func (s *stubBookingService) PreviewCancel(_ context.Context, bookingID, actorID int64, role string) (*services.RefundDecision, error) {
	s.lastBookingID = bookingID
	s.lastActorID = actorID
	s.lastRole = role
	return s.previewResult, s.previewErr
}

func (s *stubBookingService) MarkCompleted(_ context.Context, actorRole string, bookingID int64) (*models.Booking, error) {
	s.lastRole = actorRole
	s.lastBookingID = bookingID
	return s.completeResult, s.completeErr
}

func (s *stubBookingService) ConfirmPayment(_ context.Context, bookingID int64) (*models.Booking, error) {
	s.lastBookingID = bookingID
	return s.confirmResult, s.confirmErr
}

func (s *stubBookingService) Get(_ context.Context, actorID int64, role string, bookingID int64) (*models.Booking, error) {
	s.lastActorID = actorID
	s.lastRole = role
	s.lastBookingID = bookingID
	return s.getResult, s.getErr
}

func (s *stubBookingService) List(_ context.Context, actorID int64, role string, filter repository.BookingListFilter) ([]models.Booking, error) {
	s.lastActorID = actorID
	s.lastRole = role
	s.lastFilter = filter
	return s.listResult, s.listErr
}

func newBookingApp(service bookingApplicationService, role string) *fiber.App {
	handler := &BookingHandler{service: service}

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("role", role)
		c.Locals("user_id", "42")
		return c.Next()
	})
	app.Get("/api/v1/bookings", handler.List)
	app.Get("/api/v1/bookings/:id", handler.Get)
	app.Post("/api/v1/bookings/:id/cancel", handler.Cancel)
	app.Get("/api/v1/bookings/:id/cancel-preview", handler.PreviewCancel)
	app.Post("/api/v1/bookings/:id/complete", handler.MarkCompleted)
	app.Post("/api/v1/bookings/:id/confirm-payment", handler.ConfirmPayment)
	return app
}

func TestCancelBookingReturnsRefundOutcome(t *testing.T) {
	service := &stubBookingService{
		cancelResult: &services.CancelOutcome{
			Booking: &models.Booking{ID: 5, Status: models.BookingCancelled},
			Refund: services.RefundDecision{
				Status:     models.RefundProcessed,
				Amount:     10,
				HoursUntil: 72,
			},
		},
	}
	app := newBookingApp(service, "client")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/5/cancel", strings.NewReader(`{"confirm_cancel": true}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		RefundStatus string  `json:"refund_status"`
		RefundAmount float64 `json:"refund_amount"`
		HoursUntil   float64 `json:"hours_until_appointment"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if body.RefundStatus != models.RefundProcessed || body.RefundAmount != 10 {
		t.Fatalf("unexpected refund: %+v", body)
	}
	if service.lastActorID != 42 || service.lastRole != "client" {
		t.Fatalf("unexpected actor: %d %q", service.lastActorID, service.lastRole)
	}
}

func TestCancelBookingRequiresConfirmation(t *testing.T) {
	service := &stubBookingService{}
	app := newBookingApp(service, "client")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/5/cancel", strings.NewReader(`{"confirm_cancel": false}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCancelBookingReturnsConflictForTerminalBooking(t *testing.T) {
	service := &stubBookingService{cancelErr: services.ErrInvalidTransition}
	app := newBookingApp(service, "client")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/5/cancel", strings.NewReader(`{"confirm_cancel": true}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestPreviewCancelDoesNotRequireConfirmation(t *testing.T) {
	service := &stubBookingService{
		previewResult: &services.RefundDecision{
			Status:     models.RefundNone,
			Amount:     0,
			HoursUntil: 12,
		},
	}
	app := newBookingApp(service, "client")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings/5/cancel-preview", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		RefundStatus string `json:"refund_status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if body.RefundStatus != models.RefundNone {
		t.Fatalf("unexpected preview: %+v", body)
	}
}

func TestMarkCompletedReturnsConflictFromPending(t *testing.T) {
	service := &stubBookingService{completeErr: services.ErrInvalidTransition}
	app := newBookingApp(service, "operator")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/5/complete", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
	if service.lastRole != "operator" {
		t.Fatalf("expected operator role forwarded, got %q", service.lastRole)
	}
}

func TestConfirmPaymentIsOperatorOnly(t *testing.T) {
	service := &stubBookingService{}
	app := newBookingApp(service, "client")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/5/confirm-payment", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestGetBookingReturnsNotFound(t *testing.T) {
	service := &stubBookingService{getErr: pgx.ErrNoRows}
	app := newBookingApp(service, "client")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings/999", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestListBookingsPassesFilter(t *testing.T) {
	service := &stubBookingService{
		listResult: []models.Booking{{ID: 5, Status: models.BookingConfirmed}},
	}
	app := newBookingApp(service, "client")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings?status=confirmed&timeframe=upcoming", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastFilter.Status != "confirmed" || service.lastFilter.Timeframe != "upcoming" {
		t.Fatalf("unexpected filter: %+v", service.lastFilter)
	}
}
