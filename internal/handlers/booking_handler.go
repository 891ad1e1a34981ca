package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/glowmobile/TanAppBack/internal/models"
	"github.com/glowmobile/TanAppBack/internal/repository"
	"github.com/glowmobile/TanAppBack/internal/services"
)

type BookingHandler struct {
	service bookingApplicationService
}

type bookingApplicationService interface {
	Cancel(ctx context.Context, bookingID, actorID int64, role string) (*services.CancelOutcome, error)
	PreviewCancel(ctx context.Context, bookingID, actorID int64, role string) (*services.RefundDecision, error)
	MarkCompleted(ctx context.Context, actorRole string, bookingID int64) (*models.Booking, error)
	ConfirmPayment(ctx context.Context, bookingID int64) (*models.Booking, error)
	Get(ctx context.Context, actorID int64, role string, bookingID int64) (*models.Booking, error)
	List(ctx context.Context, actorID int64, role string, filter repository.BookingListFilter) ([]models.Booking, error)
}

func NewBookingHandler(service *services.BookingService) *BookingHandler {
	return &BookingHandler{service: service}
}

type cancelBookingRequest struct {
	ConfirmCancel bool `json:"confirm_cancel"`
}

func parseBookingID(c *fiber.Ctx) (int64, error) {
	bookingID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || bookingID <= 0 {
		return 0, strconv.ErrSyntax
	}
	return bookingID, nil
}

func (h *BookingHandler) Cancel(c *fiber.Ctx) error {
	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	bookingID, err := parseBookingID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking id"})
	}

	var req cancelBookingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if !req.ConfirmCancel {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"error": "confirm_cancel must be true"})
	}

	outcome, err := h.service.Cancel(c.Context(), bookingID, actorID, actorRole(c))
	if err != nil {
		return mapCoreError(c, err)
	}

	return c.JSON(fiber.Map{
		"refund_status":           outcome.Refund.Status,
		"refund_amount":           outcome.Refund.Amount,
		"hours_until_appointment": outcome.Refund.HoursUntil,
		"booking":                 outcome.Booking,
	})
}

func (h *BookingHandler) PreviewCancel(c *fiber.Ctx) error {
	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	bookingID, err := parseBookingID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking id"})
	}

	decision, err := h.service.PreviewCancel(c.Context(), bookingID, actorID, actorRole(c))
	if err != nil {
		return mapCoreError(c, err)
	}

	return c.JSON(fiber.Map{
		"refund_status":           decision.Status,
		"refund_amount":           decision.Amount,
		"hours_until_appointment": decision.HoursUntil,
	})
}

func (h *BookingHandler) MarkCompleted(c *fiber.Ctx) error {
	bookingID, err := parseBookingID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking id"})
	}

	booking, err := h.service.MarkCompleted(c.Context(), actorRole(c), bookingID)
	if err != nil {
		return mapCoreError(c, err)
	}
	return c.JSON(fiber.Map{"booking": booking})
}

func (h *BookingHandler) ConfirmPayment(c *fiber.Ctx) error {
	if actorRole(c) != models.RoleOperator {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	bookingID, err := parseBookingID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking id"})
	}

	booking, err := h.service.ConfirmPayment(c.Context(), bookingID)
	if err != nil {
		return mapCoreError(c, err)
	}
	return c.JSON(fiber.Map{"booking": booking})
}

func (h *BookingHandler) Get(c *fiber.Ctx) error {
	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	bookingID, err := parseBookingID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking id"})
	}

	booking, err := h.service.Get(c.Context(), actorID, actorRole(c), bookingID)
	if err != nil {
		return mapCoreError(c, err)
	}
	return c.JSON(fiber.Map{"booking": booking})
}

func (h *BookingHandler) List(c *fiber.Ctx) error {
	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	timeframe := strings.TrimSpace(c.Query("timeframe"))
	if timeframe != "" && timeframe != "upcoming" && timeframe != "past" {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"error": "timeframe must be upcoming or past"})
	}

	bookings, err := h.service.List(c.Context(), actorID, actorRole(c), repository.BookingListFilter{
		Status:    strings.TrimSpace(c.Query("status")),
		Timeframe: timeframe,
	})
	if err != nil {
		return mapCoreError(c, err)
	}
	return c.JSON(fiber.Map{"bookings": bookings})
}
