package repository

import (
	"context"
	"time"

	"github.com/glowmobile/TanAppBack/internal/models"
)

type CreateCycleInput struct {
	MembershipID      int64
	CycleStart        time.Time
	CycleEnd          time.Time
	TansIncluded      int
	PendingIncluded   int
	PendingAdditional int
}

type MembershipRepository struct {
	db DBTX
}

func NewMembershipRepository(db DBTX) *MembershipRepository {
	return &MembershipRepository{db: db}
}

func (r *MembershipRepository) GetByID(ctx context.Context, id int64) (*models.Membership, error) {
	query := `
		SELECT id, client_id, status, tans_included, started_at, created_at
		FROM memberships
		WHERE id = $1
	`
	var m models.Membership
	err := r.db.QueryRow(ctx, query, id).
		Scan(&m.ID, &m.ClientID, &m.Status, &m.TansIncluded, &m.StartedAt, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MembershipRepository) GetActiveByClientID(
	ctx context.Context,
	clientID int64,
) (*models.Membership, error) {
	query := `
		SELECT id, client_id, status, tans_included, started_at, created_at
		FROM memberships
		WHERE client_id = $1 AND status = 'active'
		ORDER BY id DESC
		LIMIT 1
	`
	var m models.Membership
	err := r.db.QueryRow(ctx, query, clientID).
		Scan(&m.ID, &m.ClientID, &m.Status, &m.TansIncluded, &m.StartedAt, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

const cycleColumns = `id, membership_id, cycle_start, cycle_end, tans_included,
		tans_used, pending_included, pending_additional`

func scanCycle(row interface{ Scan(dest ...any) error }) (*models.MembershipCycle, error) {
	var c models.MembershipCycle
	err := row.Scan(
		&c.ID,
		&c.MembershipID,
		&c.CycleStart,
		&c.CycleEnd,
		&c.TansIncluded,
		&c.TansUsed,
		&c.PendingIncluded,
		&c.PendingAdditional,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// LatestCycleForUpdate locks the newest cycle row so concurrent allocations
// and rollovers for one membership are serialized.
func (r *MembershipRepository) LatestCycleForUpdate(
	ctx context.Context,
	membershipID int64,
) (*models.MembershipCycle, error) {
	query := `
		SELECT ` + cycleColumns + `
		FROM membership_cycles
		WHERE membership_id = $1
		ORDER BY cycle_start DESC
		LIMIT 1
		FOR UPDATE
	`
	return scanCycle(r.db.QueryRow(ctx, query, membershipID))
}

func (r *MembershipRepository) LatestCycle(
	ctx context.Context,
	membershipID int64,
) (*models.MembershipCycle, error) {
	query := `
		SELECT ` + cycleColumns + `
		FROM membership_cycles
		WHERE membership_id = $1
		ORDER BY cycle_start DESC
		LIMIT 1
	`
	return scanCycle(r.db.QueryRow(ctx, query, membershipID))
}

// CycleByIDForUpdate locks one specific cycle row.
func (r *MembershipRepository) CycleByIDForUpdate(
	ctx context.Context,
	cycleID int64,
) (*models.MembershipCycle, error) {
	query := `
		SELECT ` + cycleColumns + `
		FROM membership_cycles
		WHERE id = $1
		FOR UPDATE
	`
	return scanCycle(r.db.QueryRow(ctx, query, cycleID))
}

// CycleCovering returns the cycle whose window contains the given instant.
func (r *MembershipRepository) CycleCovering(
	ctx context.Context,
	membershipID int64,
	at time.Time,
) (*models.MembershipCycle, error) {
	query := `
		SELECT ` + cycleColumns + `
		FROM membership_cycles
		WHERE membership_id = $1 AND cycle_start <= $2 AND cycle_end > $2
		FOR UPDATE
	`
	return scanCycle(r.db.QueryRow(ctx, query, membershipID, at))
}

// CreateCycle opens a billing cycle. When a concurrent transaction already
// opened the same cycle, no row comes back and the scan reports
// pgx.ErrNoRows; the conflict is absorbed here so the caller's transaction
// stays usable for the re-read.
func (r *MembershipRepository) CreateCycle(
	ctx context.Context,
	input CreateCycleInput,
) (*models.MembershipCycle, error) {
	query := `
		INSERT INTO membership_cycles (membership_id, cycle_start, cycle_end, tans_included, tans_used, pending_included, pending_additional)
		VALUES ($1, $2, $3, $4, 0, $5, $6)
		ON CONFLICT (membership_id, cycle_start) DO NOTHING
		RETURNING ` + cycleColumns

	return scanCycle(r.db.QueryRow(
		ctx,
		query,
		input.MembershipID,
		input.CycleStart,
		input.CycleEnd,
		input.TansIncluded,
		input.PendingIncluded,
		input.PendingAdditional,
	))
}

// AdjustCycle applies counter deltas to one cycle row. Callers pair every
// call with an adjustment-ledger insert so retries cannot re-apply it.
func (r *MembershipRepository) AdjustCycle(
	ctx context.Context,
	cycleID int64,
	dUsed int,
	dPendingIncluded int,
	dPendingAdditional int,
) (*models.MembershipCycle, error) {
	query := `
		UPDATE membership_cycles
		SET tans_used = tans_used + $2,
		    pending_included = GREATEST(pending_included + $3, 0),
		    pending_additional = GREATEST(pending_additional + $4, 0)
		WHERE id = $1
		RETURNING ` + cycleColumns

	return scanCycle(r.db.QueryRow(ctx, query, cycleID, dUsed, dPendingIncluded, dPendingAdditional))
}

// RecordAdjustment inserts the idempotency marker for one ledger mutation,
// keyed by (booking_id, event). Returns false when the marker already exists,
// meaning the mutation was applied before and must not be re-applied.
func (r *MembershipRepository) RecordAdjustment(
	ctx context.Context,
	bookingID int64,
	event string,
	tanType string,
	cycleID int64,
) (bool, error) {
	query := `
		INSERT INTO membership_adjustments (booking_id, event, tan_type, cycle_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (booking_id, event) DO NOTHING
	`
	tag, err := r.db.Exec(ctx, query, bookingID, event, tanType, cycleID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Adjustment returns the tan type and cycle recorded for a prior mutation, so
// a replayed allocation can answer with the original outcome and a settlement
// can find the cycle the allowance unit was charged to.
func (r *MembershipRepository) Adjustment(
	ctx context.Context,
	bookingID int64,
	event string,
) (string, int64, error) {
	query := `
		SELECT tan_type, cycle_id
		FROM membership_adjustments
		WHERE booking_id = $1 AND event = $2
	`
	var tanType string
	var cycleID int64
	if err := r.db.QueryRow(ctx, query, bookingID, event).Scan(&tanType, &cycleID); err != nil {
		return "", 0, err
	}
	return tanType, cycleID, nil
}
