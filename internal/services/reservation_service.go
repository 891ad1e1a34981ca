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

const (
	PaymentOutcomePaid    = "paid"
	PaymentOutcomePending = "pending"
	PaymentOutcomeFailed  = "failed"
)

type ReserveInput struct {
	Slot          models.SlotKey
	PendingAmount float64
	DepositAmount float64
}

type AvailabilityResult struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

const (
	ReasonHeld               = "held"
	ReasonBooked             = "booked"
	ReasonExpiredHoldIgnored = "expired-hold-ignored"
)

// ReservationService manages short-lived holds on slots and their promotion
// into bookings. Slot uniqueness is enforced by the storage layer: partial
// unique indexes make every insert an atomic insert-if-absent, and a per-slot
// advisory lock serializes the hold-versus-booking check across processes.
type ReservationService struct {
	db              *pgxpool.Pool
	reservationRepo *repository.ReservationRepository
	bookingRepo     *repository.BookingRepository
	membership      *MembershipService
	holdDuration    time.Duration
	clock           Clock
	logger          zerolog.Logger
}

func NewReservationService(
	db *pgxpool.Pool,
	reservationRepo *repository.ReservationRepository,
	bookingRepo *repository.BookingRepository,
	membership *MembershipService,
	holdDuration time.Duration,
	clock Clock,
	logger zerolog.Logger,
) *ReservationService {
	return &ReservationService{
		db:              db,
		reservationRepo: reservationRepo,
		bookingRepo:     bookingRepo,
		membership:      membership,
		holdDuration:    holdDuration,
		clock:           clock,
		logger:          logger,
	}
}

// Reserve places a hold on the slot. Exactly one caller wins a contended
// slot; every loser gets ErrSlotConflict, including the same client asking
// twice.
func (s *ReservationService) Reserve(
	ctx context.Context,
	clientID int64,
	input ReserveInput,
) (*models.Reservation, error) {
	if input.Slot.IsZero() || clientID <= 0 {
		return nil, ErrInvalidInput
	}
	if input.PendingAmount < 0 || input.DepositAmount < 0 {
		return nil, ErrInvalidInput
	}

	now := s.clock.Now()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := repository.LockSlot(ctx, tx, input.Slot.Key()); err != nil {
		return nil, err
	}

	txReservationRepo := repository.NewReservationRepository(tx)
	txBookingRepo := repository.NewBookingRepository(tx)

	// Stale holds are retired lazily on the way in, so correctness never
	// depends on the background sweeper.
	if _, err := txReservationRepo.ExpireSlot(ctx, input.Slot, now); err != nil {
		return nil, err
	}

	if _, err := txBookingRepo.LiveBySlot(ctx, input.Slot); err == nil {
		return nil, ErrSlotConflict
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	reservation, err := txReservationRepo.Create(ctx, repository.CreateReservationInput{
		Slot:          input.Slot,
		ClientID:      clientID,
		PendingAmount: input.PendingAmount,
		DepositAmount: input.DepositAmount,
		ExpiresAt:     now.Add(s.holdDuration),
	})
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrSlotConflict
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return reservation, nil
}

// CheckAvailability is a read-only check. An overdue hold reads as available
// even before anything has retired the row.
func (s *ReservationService) CheckAvailability(
	ctx context.Context,
	slot models.SlotKey,
) (AvailabilityResult, error) {
	if _, err := s.bookingRepo.LiveBySlot(ctx, slot); err == nil {
		return AvailabilityResult{Available: false, Reason: ReasonBooked}, nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return AvailabilityResult{}, err
	}

	hold, err := s.reservationRepo.ActiveBySlot(ctx, slot)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AvailabilityResult{Available: true}, nil
		}
		return AvailabilityResult{}, err
	}
	if hold.ExpiresAt.Before(s.clock.Now()) {
		return AvailabilityResult{Available: true, Reason: ReasonExpiredHoldIgnored}, nil
	}
	return AvailabilityResult{Available: false, Reason: ReasonHeld}, nil
}

// Cancel releases a hold before payment. Only the holder may cancel.
func (s *ReservationService) Cancel(ctx context.Context, reservationID, clientID int64) error {
	reservation, err := s.reservationRepo.GetByID(ctx, reservationID)
	if err != nil {
		return err
	}
	if reservation.ClientID != clientID {
		return ErrForbidden
	}

	_, err = s.reservationRepo.UpdateStatusIfCurrent(
		ctx,
		reservationID,
		models.ReservationActive,
		models.ReservationCancelled,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		s.logger.Warn().
			Int64("reservation_id", reservationID).
			Str("status", reservation.Status).
			Msg("cancel of non-active reservation")
		return ErrInvalidTransition
	}
	return err
}

// Complete promotes a hold into a booking once the payment attempt has a
// recorded outcome. A failed payment releases the hold without creating a
// booking; an overdue hold is retired and reported as expired. When the
// client has an active membership the tan is allocated from the ledger in
// the same transaction.
func (s *ReservationService) Complete(
	ctx context.Context,
	reservationID int64,
	clientID int64,
	paymentOutcome string,
) (*models.Booking, error) {
	if paymentOutcome != PaymentOutcomePaid &&
		paymentOutcome != PaymentOutcomePending &&
		paymentOutcome != PaymentOutcomeFailed {
		return nil, ErrInvalidInput
	}

	now := s.clock.Now()

	// Lookup before the lock so we know which slot to serialize on.
	reservation, err := s.reservationRepo.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if reservation.ClientID != clientID {
		return nil, ErrForbidden
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := repository.LockSlot(ctx, tx, reservation.Slot.Key()); err != nil {
		return nil, err
	}

	txReservationRepo := repository.NewReservationRepository(tx)
	txBookingRepo := repository.NewBookingRepository(tx)

	reservation, err = txReservationRepo.GetByIDForUpdate(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if reservation.Status != models.ReservationActive {
		if reservation.Status == models.ReservationExpired {
			return nil, ErrHoldExpired
		}
		s.logger.Warn().
			Int64("reservation_id", reservationID).
			Str("status", reservation.Status).
			Msg("complete of non-active reservation")
		return nil, ErrInvalidTransition
	}
	if reservation.ExpiresAt.Before(now) {
		if _, err := txReservationRepo.UpdateStatusIfCurrent(
			ctx, reservationID, models.ReservationActive, models.ReservationExpired,
		); err != nil {
			return nil, err
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}
		return nil, ErrHoldExpired
	}

	// A failed payment releases the hold; no booking is created.
	if paymentOutcome == PaymentOutcomeFailed {
		if _, err := txReservationRepo.UpdateStatusIfCurrent(
			ctx, reservationID, models.ReservationActive, models.ReservationCancelled,
		); err != nil {
			return nil, err
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}
		return nil, ErrPaymentFailed
	}

	bookingStatus := models.BookingConfirmed
	paymentStatus := models.PaymentPaid
	if paymentOutcome == PaymentOutcomePending {
		bookingStatus = models.BookingPending
		paymentStatus = models.PaymentUnpaid
	}

	booking, err := txBookingRepo.Create(ctx, repository.CreateBookingInput{
		Slot:          reservation.Slot,
		ClientID:      reservation.ClientID,
		Status:        bookingStatus,
		PaymentStatus: paymentStatus,
		DepositAmount: reservation.DepositAmount,
		FinalAmount:   reservation.PendingAmount,
	})
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrSlotConflict
		}
		return nil, err
	}

	membershipID, err := s.membership.ActiveMembershipID(ctx, clientID)
	if err != nil && !errors.Is(err, ErrNoMembership) {
		return nil, err
	}
	if err == nil {
		alloc, err := s.membership.AllocateTx(ctx, tx, membershipID, booking.ID)
		if err != nil {
			return nil, err
		}
		booking, err = txBookingRepo.ApplyMembership(ctx, booking.ID, membershipID, alloc.Type, alloc.Price)
		if err != nil {
			return nil, err
		}
	}

	if _, err := txReservationRepo.UpdateStatusIfCurrent(
		ctx, reservationID, models.ReservationActive, models.ReservationCompleted,
	); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return booking, nil
}

// ExpireStale is the periodic garbage collector for overdue holds.
func (s *ReservationService) ExpireStale(ctx context.Context) (int64, error) {
	expired, err := s.reservationRepo.ExpireStale(ctx, s.clock.Now())
	if err != nil {
		return 0, err
	}
	if expired > 0 {
		s.logger.Info().Int64("count", expired).Msg("expired stale holds")
	}
	return expired, nil
}
