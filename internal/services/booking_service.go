package services

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/glowmobile/TanAppBack/internal/models"
	"github.com/glowmobile/TanAppBack/internal/repository"
)

type CancelOutcome struct {
	Booking *models.Booking `json:"booking"`
	Refund  RefundDecision  `json:"refund"`
}

// BookingService drives the booking state machine: pending -> confirmed ->
// completed, with cancellation allowed from pending and confirmed. Completed
// and cancelled are terminal; only refund status may change afterwards.
type BookingService struct {
	db           *pgxpool.Pool
	bookingRepo  *repository.BookingRepository
	membership   *MembershipService
	gateway      PaymentGateway
	refundWindow time.Duration
	clock        Clock
	loc          *time.Location
	logger       zerolog.Logger
}

func NewBookingService(
	db *pgxpool.Pool,
	bookingRepo *repository.BookingRepository,
	membership *MembershipService,
	gateway PaymentGateway,
	refundWindow time.Duration,
	clock Clock,
	logger zerolog.Logger,
) *BookingService {
	return &BookingService{
		db:           db,
		bookingRepo:  bookingRepo,
		membership:   membership,
		gateway:      gateway,
		refundWindow: refundWindow,
		clock:        clock,
		loc:          time.Local,
		logger:       logger,
	}
}

func canAccessBooking(role string, actorID int64, booking *models.Booking) bool {
	if role == models.RoleOperator {
		return true
	}
	return role == models.RoleClient && booking.ClientID == actorID
}

// ConfirmPayment moves a pending booking to confirmed once payment settles.
// Idempotent: confirming an already-confirmed booking is a no-op.
func (s *BookingService) ConfirmPayment(ctx context.Context, bookingID int64) (*models.Booking, error) {
	booking, err := s.bookingRepo.ConfirmPayment(ctx, bookingID)
	if err == nil {
		return booking, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	booking, err = s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status == models.BookingConfirmed {
		return booking, nil
	}
	s.logInvalidTransition(booking, models.BookingConfirmed)
	return nil, ErrInvalidTransition
}

// MarkCompleted records that the appointment happened. Operator only;
// confirmed bookings only. A membership tan moves from pending to used in
// the same transaction.
func (s *BookingService) MarkCompleted(
	ctx context.Context,
	actorRole string,
	bookingID int64,
) (*models.Booking, error) {
	if actorRole != models.RoleOperator {
		return nil, ErrForbidden
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txBookingRepo := repository.NewBookingRepository(tx)

	booking, err := txBookingRepo.GetByIDForUpdate(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.BookingConfirmed {
		s.logInvalidTransition(booking, models.BookingCompleted)
		return nil, ErrInvalidTransition
	}

	booking, err = txBookingRepo.UpdateStatusIfCurrent(
		ctx, bookingID, models.BookingConfirmed, models.BookingCompleted,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidTransition
		}
		return nil, err
	}

	if booking.MembershipApplied && booking.MembershipID != nil {
		if err := s.membership.OnCompletedTx(
			ctx, tx, *booking.MembershipID, booking.ID, booking.MembershipType, booking.Slot,
		); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return booking, nil
}

// Cancel cancels a live booking: refund policy decides the cash outcome, a
// membership booking gets its pending allowance unit back, and the slot is
// free again as soon as the row leaves the live partial index. A gateway
// refund failure is recorded on the booking but does not undo the
// cancellation.
func (s *BookingService) Cancel(
	ctx context.Context,
	bookingID int64,
	actorID int64,
	role string,
) (*CancelOutcome, error) {
	now := s.clock.Now()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txBookingRepo := repository.NewBookingRepository(tx)

	booking, err := txBookingRepo.GetByIDForUpdate(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !canAccessBooking(role, actorID, booking) {
		return nil, ErrForbidden
	}
	if booking.Status != models.BookingPending && booking.Status != models.BookingConfirmed {
		s.logInvalidTransition(booking, models.BookingCancelled)
		return nil, ErrInvalidTransition
	}

	decision := EvaluateRefund(RefundInput{
		AppointmentAt:     booking.Slot.At(s.loc),
		Now:               now,
		PaymentStatus:     booking.PaymentStatus,
		MembershipApplied: booking.MembershipApplied,
		DepositAmount:     booking.DepositAmount,
		Window:            s.refundWindow,
	})

	booking, err = txBookingRepo.MarkCancelled(
		ctx, bookingID, booking.Status, decision.Status, decision.Amount, now,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidTransition
		}
		return nil, err
	}

	if booking.MembershipApplied && booking.MembershipID != nil {
		if err := s.membership.OnCancelledTx(
			ctx, tx, *booking.MembershipID, booking.ID, booking.MembershipType, booking.Slot,
		); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	if decision.Status == models.RefundProcessed {
		if err := s.gateway.Refund(ctx, booking.ClientID, decision.Amount); err != nil {
			s.logger.Error().
				Err(err).
				Int64("booking_id", booking.ID).
				Float64("amount", decision.Amount).
				Msg("refund execution failed")
			decision.Status = models.RefundFailed
			// The cancellation is already committed; an error here must
			// not make the caller believe it did not happen.
			updated, updateErr := s.bookingRepo.UpdateRefundStatus(ctx, booking.ID, models.RefundFailed)
			if updateErr != nil {
				s.logger.Error().
					Err(updateErr).
					Int64("booking_id", booking.ID).
					Msg("could not record failed refund")
				booking.RefundStatus = models.RefundFailed
			} else {
				booking = updated
			}
		}
	}

	return &CancelOutcome{Booking: booking, Refund: decision}, nil
}

// PreviewCancel reports the refund a cancellation would produce, without
// changing anything. Backed by the same evaluator as Cancel.
func (s *BookingService) PreviewCancel(
	ctx context.Context,
	bookingID int64,
	actorID int64,
	role string,
) (*RefundDecision, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !canAccessBooking(role, actorID, booking) {
		return nil, ErrForbidden
	}
	if booking.Status != models.BookingPending && booking.Status != models.BookingConfirmed {
		return nil, ErrInvalidTransition
	}

	decision := EvaluateRefund(RefundInput{
		AppointmentAt:     booking.Slot.At(s.loc),
		Now:               s.clock.Now(),
		PaymentStatus:     booking.PaymentStatus,
		MembershipApplied: booking.MembershipApplied,
		DepositAmount:     booking.DepositAmount,
		Window:            s.refundWindow,
	})
	return &decision, nil
}

func (s *BookingService) Get(
	ctx context.Context,
	actorID int64,
	role string,
	bookingID int64,
) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !canAccessBooking(role, actorID, booking) {
		return nil, ErrForbidden
	}
	return booking, nil
}

// List returns the actor's bookings; operators see everyone's.
func (s *BookingService) List(
	ctx context.Context,
	actorID int64,
	role string,
	filter repository.BookingListFilter,
) ([]models.Booking, error) {
	if role == models.RoleClient {
		filter.ClientID = actorID
	} else if role != models.RoleOperator {
		return nil, ErrForbidden
	}
	return s.bookingRepo.List(ctx, filter)
}

func (s *BookingService) logInvalidTransition(booking *models.Booking, requested string) {
	s.logger.Warn().
		Int64("booking_id", booking.ID).
		Str("from_status", booking.Status).
		Str("requested_status", requested).
		Str("payment_status", booking.PaymentStatus).
		Msg("invalid booking transition")
}
