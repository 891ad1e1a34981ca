package handlers

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/glowmobile/TanAppBack/internal/models"
	"github.com/glowmobile/TanAppBack/internal/services"
)

type ReservationHandler struct {
	service reservationApplicationService
}

type reservationApplicationService interface {
	Reserve(ctx context.Context, clientID int64, input services.ReserveInput) (*models.Reservation, error)
	CheckAvailability(ctx context.Context, slot models.SlotKey) (services.AvailabilityResult, error)
	Cancel(ctx context.Context, reservationID, clientID int64) error
	Complete(ctx context.Context, reservationID, clientID int64, paymentOutcome string) (*models.Booking, error)
}

func NewReservationHandler(service *services.ReservationService) *ReservationHandler {
	return &ReservationHandler{service: service}
}

type reserveRequest struct {
	Date          string  `json:"date" validate:"required"`
	Time          string  `json:"time" validate:"required"`
	PendingAmount float64 `json:"pending_amount" validate:"gte=0"`
	DepositAmount float64 `json:"deposit_amount" validate:"gte=0"`
}

type completeReservationRequest struct {
	PaymentOutcome string `json:"payment_outcome" validate:"required,oneof=paid pending failed"`
}

func (h *ReservationHandler) Reserve(c *fiber.Ctx) error {
	clientID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req reserveRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	slot, err := models.NewSlotKey(req.Date, req.Time)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"error": "date must be YYYY-MM-DD and time must be HH:MM"})
	}

	reservation, err := h.service.Reserve(c.Context(), clientID, services.ReserveInput{
		Slot:          slot,
		PendingAmount: req.PendingAmount,
		DepositAmount: req.DepositAmount,
	})
	if err != nil {
		return mapCoreError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"reservation": reservation,
		"expires_at":  reservation.ExpiresAt,
	})
}

func (h *ReservationHandler) CheckAvailability(c *fiber.Ctx) error {
	slot, err := models.NewSlotKey(c.Params("date"), c.Params("time"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"error": "date must be YYYY-MM-DD and time must be HH:MM"})
	}

	result, err := h.service.CheckAvailability(c.Context(), slot)
	if err != nil {
		return mapCoreError(c, err)
	}
	return c.JSON(result)
}

func (h *ReservationHandler) Complete(c *fiber.Ctx) error {
	clientID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	reservationID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || reservationID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid reservation id"})
	}

	var req completeReservationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	booking, err := h.service.Complete(c.Context(), reservationID, clientID, req.PaymentOutcome)
	if err != nil {
		return mapCoreError(c, err)
	}
	return c.JSON(fiber.Map{"booking": booking})
}

func (h *ReservationHandler) Cancel(c *fiber.Ctx) error {
	clientID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	reservationID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || reservationID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid reservation id"})
	}

	if err := h.service.Cancel(c.Context(), reservationID, clientID); err != nil {
		return mapCoreError(c, err)
	}
	return c.JSON(fiber.Map{"status": "cancelled"})
}
