package handlers

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/glowmobile/TanAppBack/internal/models"
	"github.com/glowmobile/TanAppBack/internal/services"
)

type MembershipHandler struct {
	service membershipApplicationService
}

type membershipApplicationService interface {
	StatusFor(ctx context.Context, actorID int64, role string, membershipID int64) (*models.MembershipStatus, error)
	Reconcile(ctx context.Context, membershipID int64) (*services.ReconcileReport, error)
}

func NewMembershipHandler(service *services.MembershipService) *MembershipHandler {
	return &MembershipHandler{service: service}
}

func (h *MembershipHandler) Status(c *fiber.Ctx) error {
	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	membershipID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || membershipID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid membership id"})
	}

	status, err := h.service.StatusFor(c.Context(), actorID, actorRole(c), membershipID)
	if err != nil {
		return mapCoreError(c, err)
	}
	return c.JSON(status)
}

// Reconcile is an operator maintenance endpoint: it compares stored ledger
// counters against counts re-derived from bookings and reports drift.
func (h *MembershipHandler) Reconcile(c *fiber.Ctx) error {
	if actorRole(c) != models.RoleOperator {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	membershipID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || membershipID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid membership id"})
	}

	report, err := h.service.Reconcile(c.Context(), membershipID)
	if err != nil {
		return mapCoreError(c, err)
	}
	return c.JSON(report)
}
