package handlers

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/glowmobile/TanAppBack/internal/services"
)

var validate = validator.New()

func parseActorID(c *fiber.Ctx) (int64, error) {
	userIDValue := c.Locals("user_id")
	userIDStr, ok := userIDValue.(string)
	if !ok {
		return 0, strconv.ErrSyntax
	}
	return strconv.ParseInt(userIDStr, 10, 64)
}

func actorRole(c *fiber.Ctx) string {
	role, _ := c.Locals("role").(string)
	return role
}

func mapCoreError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrSlotConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Slot is already held or booked, please pick another time"})
	case errors.Is(err, services.ErrHoldExpired):
		return c.Status(fiber.StatusGone).JSON(fiber.Map{"error": "Hold expired, please re-reserve"})
	case errors.Is(err, services.ErrInvalidTransition):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Invalid state transition"})
	case errors.Is(err, services.ErrPaymentFailed):
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{"error": "Payment failed, hold released"})
	case errors.Is(err, services.ErrNoMembership):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Membership not found"})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process request"})
	}
}
