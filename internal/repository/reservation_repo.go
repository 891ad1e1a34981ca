package repository

import (
	"context"
	"time"

	"github.com/glowmobile/TanAppBack/internal/models"
)

type CreateReservationInput struct {
	Slot          models.SlotKey
	ClientID      int64
	PendingAmount float64
	DepositAmount float64
	ExpiresAt     time.Time
}

type ReservationRepository struct {
	db DBTX
}

func NewReservationRepository(db DBTX) *ReservationRepository {
	return &ReservationRepository{db: db}
}

const reservationColumns = `id, slot_date, slot_time, client_id, status, pending_amount, deposit_amount, created_at, expires_at, updated_at`

func scanReservation(row interface{ Scan(dest ...any) error }) (*models.Reservation, error) {
	var r models.Reservation
	err := row.Scan(
		&r.ID,
		&r.Slot.Date,
		&r.Slot.Time,
		&r.ClientID,
		&r.Status,
		&r.PendingAmount,
		&r.DepositAmount,
		&r.CreatedAt,
		&r.ExpiresAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Create inserts a new active hold. The partial unique index on
// (slot_date, slot_time) WHERE status = 'active' makes this an atomic
// insert-if-absent; a conflicting hold surfaces as a unique violation.
func (r *ReservationRepository) Create(
	ctx context.Context,
	input CreateReservationInput,
) (*models.Reservation, error) {
	query := `
		INSERT INTO reservations (slot_date, slot_time, client_id, status, pending_amount, deposit_amount, expires_at)
		VALUES ($1, $2, $3, 'active', $4, $5, $6)
		RETURNING ` + reservationColumns

	return scanReservation(r.db.QueryRow(
		ctx,
		query,
		input.Slot.Date,
		input.Slot.Time,
		input.ClientID,
		input.PendingAmount,
		input.DepositAmount,
		input.ExpiresAt,
	))
}

func (r *ReservationRepository) GetByID(ctx context.Context, id int64) (*models.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE id = $1
	`
	return scanReservation(r.db.QueryRow(ctx, query, id))
}

func (r *ReservationRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE id = $1
		FOR UPDATE
	`
	return scanReservation(r.db.QueryRow(ctx, query, id))
}

// ActiveBySlot returns the active hold for the slot, if any. Expiry is the
// caller's concern; the row is returned even if expires_at has passed.
func (r *ReservationRepository) ActiveBySlot(
	ctx context.Context,
	slot models.SlotKey,
) (*models.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE slot_date = $1 AND slot_time = $2 AND status = 'active'
	`
	return scanReservation(r.db.QueryRow(ctx, query, slot.Date, slot.Time))
}

func (r *ReservationRepository) UpdateStatusIfCurrent(
	ctx context.Context,
	id int64,
	currentStatus string,
	nextStatus string,
) (*models.Reservation, error) {
	query := `
		UPDATE reservations
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING ` + reservationColumns

	return scanReservation(r.db.QueryRow(ctx, query, id, currentStatus, nextStatus))
}

// ExpireSlot lazily retires a stale hold on the given slot so the slot reads
// as free before a new hold is inserted.
func (r *ReservationRepository) ExpireSlot(
	ctx context.Context,
	slot models.SlotKey,
	now time.Time,
) (int64, error) {
	query := `
		UPDATE reservations
		SET status = 'expired', updated_at = NOW()
		WHERE slot_date = $1 AND slot_time = $2 AND status = 'active' AND expires_at < $3
	`
	tag, err := r.db.Exec(ctx, query, slot.Date, slot.Time, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ExpireStale retires every overdue hold. Run periodically as cleanup; the
// per-call lazy checks make it non-critical for correctness.
func (r *ReservationRepository) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE reservations
		SET status = 'expired', updated_at = NOW()
		WHERE status = 'active' AND expires_at < $1
	`
	tag, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *ReservationRepository) ListByClient(
	ctx context.Context,
	clientID int64,
) ([]models.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE client_id = $1
		ORDER BY slot_date ASC, slot_time ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reservations := make([]models.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, *res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reservations, nil
}
