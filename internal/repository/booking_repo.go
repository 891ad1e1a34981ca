package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/glowmobile/TanAppBack/internal/models"
)

type CreateBookingInput struct {
	Slot          models.SlotKey
	ClientID      int64
	Status        string
	PaymentStatus string
	PromoCode     *string
	DepositAmount float64
	FinalAmount   float64
}

type BookingListFilter struct {
	ClientID  int64
	Status    string
	Timeframe string
}

type BookingRepository struct {
	db DBTX
}

func NewBookingRepository(db DBTX) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `id, slot_date, slot_time, client_id, status, payment_status,
		membership_applied, membership_type, membership_id, promo_code,
		deposit_amount, final_amount, refund_status, refund_amount,
		created_at, updated_at, cancelled_at`

func scanBooking(row interface{ Scan(dest ...any) error }) (*models.Booking, error) {
	var b models.Booking
	err := row.Scan(
		&b.ID,
		&b.Slot.Date,
		&b.Slot.Time,
		&b.ClientID,
		&b.Status,
		&b.PaymentStatus,
		&b.MembershipApplied,
		&b.MembershipType,
		&b.MembershipID,
		&b.PromoCode,
		&b.DepositAmount,
		&b.FinalAmount,
		&b.RefundStatus,
		&b.RefundAmount,
		&b.CreatedAt,
		&b.UpdatedAt,
		&b.CancelledAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Create inserts a booking. The partial unique index on
// (slot_date, slot_time) WHERE status IN ('pending', 'confirmed') rejects a
// second live booking for the slot at the storage layer.
func (r *BookingRepository) Create(ctx context.Context, input CreateBookingInput) (*models.Booking, error) {
	query := `
		INSERT INTO bookings (slot_date, slot_time, client_id, status, payment_status, promo_code, deposit_amount, final_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + bookingColumns

	return scanBooking(r.db.QueryRow(
		ctx,
		query,
		input.Slot.Date,
		input.Slot.Time,
		input.ClientID,
		input.Status,
		input.PaymentStatus,
		input.PromoCode,
		input.DepositAmount,
		input.FinalAmount,
	))
}

func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*models.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE id = $1
	`
	return scanBooking(r.db.QueryRow(ctx, query, id))
}

func (r *BookingRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE id = $1
		FOR UPDATE
	`
	return scanBooking(r.db.QueryRow(ctx, query, id))
}

// LiveBySlot returns the pending or confirmed booking occupying the slot.
func (r *BookingRepository) LiveBySlot(ctx context.Context, slot models.SlotKey) (*models.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE slot_date = $1 AND slot_time = $2 AND status IN ('pending', 'confirmed')
	`
	return scanBooking(r.db.QueryRow(ctx, query, slot.Date, slot.Time))
}

func (r *BookingRepository) UpdateStatusIfCurrent(
	ctx context.Context,
	id int64,
	currentStatus string,
	nextStatus string,
) (*models.Booking, error) {
	query := `
		UPDATE bookings
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING ` + bookingColumns

	return scanBooking(r.db.QueryRow(ctx, query, id, currentStatus, nextStatus))
}

// ConfirmPayment flips a pending booking to confirmed/paid in one step.
func (r *BookingRepository) ConfirmPayment(ctx context.Context, id int64) (*models.Booking, error) {
	query := `
		UPDATE bookings
		SET status = 'confirmed', payment_status = 'paid', updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + bookingColumns

	return scanBooking(r.db.QueryRow(ctx, query, id))
}

// ApplyMembership records the ledger allocation result on the booking row.
func (r *BookingRepository) ApplyMembership(
	ctx context.Context,
	id int64,
	membershipID int64,
	tanType string,
	finalAmount float64,
) (*models.Booking, error) {
	query := `
		UPDATE bookings
		SET membership_applied = TRUE, membership_type = $2, membership_id = $3,
		    final_amount = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + bookingColumns

	return scanBooking(r.db.QueryRow(ctx, query, id, tanType, membershipID, finalAmount))
}

// MarkCancelled cancels a live booking and stores the refund outcome. The CAS
// on status keeps terminal states immutable.
func (r *BookingRepository) MarkCancelled(
	ctx context.Context,
	id int64,
	currentStatus string,
	refundStatus string,
	refundAmount float64,
	cancelledAt time.Time,
) (*models.Booking, error) {
	query := `
		UPDATE bookings
		SET status = 'cancelled', refund_status = $3, refund_amount = $4,
		    cancelled_at = $5, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING ` + bookingColumns

	return scanBooking(r.db.QueryRow(ctx, query, id, currentStatus, refundStatus, refundAmount, cancelledAt))
}

// UpdateRefundStatus is the only mutation allowed on a cancelled booking.
func (r *BookingRepository) UpdateRefundStatus(
	ctx context.Context,
	id int64,
	refundStatus string,
) (*models.Booking, error) {
	query := `
		UPDATE bookings
		SET refund_status = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'cancelled'
		RETURNING ` + bookingColumns

	return scanBooking(r.db.QueryRow(ctx, query, id, refundStatus))
}

func (r *BookingRepository) List(
	ctx context.Context,
	filter BookingListFilter,
) ([]models.Booking, error) {
	args := []any{}
	whereParts := []string{}

	if filter.ClientID > 0 {
		args = append(args, filter.ClientID)
		whereParts = append(whereParts, fmt.Sprintf("client_id = $%d", len(args)))
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		args = append(args, status)
		whereParts = append(whereParts, fmt.Sprintf("status = $%d", len(args)))
	}
	switch strings.TrimSpace(filter.Timeframe) {
	case "upcoming":
		whereParts = append(whereParts, "(slot_date || ' ' || slot_time)::timestamp > NOW()")
	case "past":
		whereParts = append(whereParts, "(slot_date || ' ' || slot_time)::timestamp <= NOW()")
	}

	where := ""
	if len(whereParts) > 0 {
		where = "WHERE " + strings.Join(whereParts, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT `+bookingColumns+`
		FROM bookings
		%s
		ORDER BY slot_date ASC, slot_time ASC, id ASC
	`, where)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]models.Booking, 0)
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *booking)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bookings, nil
}

// PendingMembershipCounts tallies live membership bookings whose slot date
// falls in [fromDate, toDate). Used to carry pending counters into a fresh
// billing cycle and as a reconciliation check against the stored counters.
// Slot dates are canonical YYYY-MM-DD strings, so string comparison orders
// them correctly.
func (r *BookingRepository) PendingMembershipCounts(
	ctx context.Context,
	membershipID int64,
	fromDate string,
	toDate string,
) (included int, additional int, err error) {
	query := `
		SELECT membership_type, COUNT(*)
		FROM bookings
		WHERE membership_id = $1
		  AND status IN ('pending', 'confirmed')
		  AND slot_date >= $2 AND slot_date < $3
		GROUP BY membership_type
	`
	rows, err := r.db.Query(ctx, query, membershipID, fromDate, toDate)
	if err != nil {
		return 0, 0, err
	}
	defer rows.Close()

	for rows.Next() {
		var tanType string
		var count int
		if err := rows.Scan(&tanType, &count); err != nil {
			return 0, 0, err
		}
		switch tanType {
		case models.MembershipTanIncluded:
			included = count
		case models.MembershipTanAdditional:
			additional = count
		}
	}
	if err := rows.Err(); err != nil {
		return 0, 0, err
	}
	return included, additional, nil
}

// PendingMembershipCountsForCycle counts the live membership bookings whose
// allowance unit sits on the given cycle: slots inside the window, plus slots
// past the window end that were allocated against this cycle and have not
// rolled into a covering cycle yet.
func (r *BookingRepository) PendingMembershipCountsForCycle(
	ctx context.Context,
	membershipID int64,
	cycleID int64,
	fromDate string,
	toDate string,
) (included int, additional int, err error) {
	query := `
		SELECT b.membership_type, COUNT(*)
		FROM bookings b
		WHERE b.membership_id = $1
		  AND b.status IN ('pending', 'confirmed')
		  AND (
		        (b.slot_date >= $3 AND b.slot_date < $4)
		     OR (b.slot_date >= $4 AND EXISTS (
		            SELECT 1 FROM membership_adjustments a
		            WHERE a.booking_id = b.id AND a.event = 'allocate' AND a.cycle_id = $2
		        ))
		  )
		GROUP BY b.membership_type
	`
	rows, err := r.db.Query(ctx, query, membershipID, cycleID, fromDate, toDate)
	if err != nil {
		return 0, 0, err
	}
	defer rows.Close()

	for rows.Next() {
		var tanType string
		var count int
		if err := rows.Scan(&tanType, &count); err != nil {
			return 0, 0, err
		}
		switch tanType {
		case models.MembershipTanIncluded:
			included = count
		case models.MembershipTanAdditional:
			additional = count
		}
	}
	if err := rows.Err(); err != nil {
		return 0, 0, err
	}
	return included, additional, nil
}
