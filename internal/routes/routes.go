package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/glowmobile/TanAppBack/internal/config"
	"github.com/glowmobile/TanAppBack/internal/handlers"
	"github.com/glowmobile/TanAppBack/internal/middleware"
	"github.com/glowmobile/TanAppBack/internal/repository"
	"github.com/glowmobile/TanAppBack/internal/services"
)

// Services bundles the wired service layer so main can reuse it for the
// background sweeper.
type Services struct {
	Reservations *services.ReservationService
	Bookings     *services.BookingService
	Memberships  *services.MembershipService
}

func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool, logger zerolog.Logger) *Services {
	userRepo := repository.NewUserRepository(db)
	reservationRepo := repository.NewReservationRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	membershipRepo := repository.NewMembershipRepository(db)

	clock := services.SystemClock()
	gateway := services.NewManualGateway(logger)

	membershipService := services.NewMembershipService(
		db, membershipRepo, bookingRepo, cfg.AdditionalTanPrice, clock, logger,
	)
	reservationService := services.NewReservationService(
		db, reservationRepo, bookingRepo, membershipService, cfg.HoldDuration, clock, logger,
	)
	bookingService := services.NewBookingService(
		db, bookingRepo, membershipService, gateway, cfg.RefundWindow, clock, logger,
	)

	authHandler := handlers.NewAuthHandler(userRepo, cfg.JWTSecret)
	reservationHandler := handlers.NewReservationHandler(reservationService)
	bookingHandler := handlers.NewBookingHandler(bookingService)
	membershipHandler := handlers.NewMembershipHandler(membershipService)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", middleware.AuthRequired(cfg.JWTSecret), authHandler.Me)

	protected := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret))

	reservations := protected.Group("/reservations")
	reservations.Post("", reservationHandler.Reserve)
	reservations.Get("/availability/:date/:time", reservationHandler.CheckAvailability)
	reservations.Post("/:id/complete", reservationHandler.Complete)
	reservations.Post("/:id/cancel", reservationHandler.Cancel)

	bookings := protected.Group("/bookings")
	bookings.Get("", bookingHandler.List)
	bookings.Get("/:id", bookingHandler.Get)
	bookings.Post("/:id/cancel", bookingHandler.Cancel)
	bookings.Get("/:id/cancel-preview", bookingHandler.PreviewCancel)
	bookings.Post("/:id/complete", bookingHandler.MarkCompleted)
	bookings.Post("/:id/confirm-payment", bookingHandler.ConfirmPayment)

	membership := protected.Group("/membership")
	membership.Get("/:id/status", membershipHandler.Status)
	membership.Post("/:id/reconcile", membershipHandler.Reconcile)

	return &Services{
		Reservations: reservationService,
		Bookings:     bookingService,
		Memberships:  membershipService,
	}
}
