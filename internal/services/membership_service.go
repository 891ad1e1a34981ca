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
	adjustmentAllocate = "allocate"
	adjustmentComplete = "complete"
	adjustmentCancel   = "cancel"
)

// Allocation is the ledger's answer when a membership booking is created.
type Allocation struct {
	Type  string  `json:"type"`
	Price float64 `json:"price"`
}

type ReconcileReport struct {
	MembershipID      int64 `json:"membership_id"`
	StoredIncluded    int   `json:"stored_pending_included"`
	StoredAdditional  int   `json:"stored_pending_additional"`
	DerivedIncluded   int   `json:"derived_pending_included"`
	DerivedAdditional int   `json:"derived_pending_additional"`
	InSync            bool  `json:"in_sync"`
}

// MembershipService owns the monthly tan allowance ledger. The stored cycle
// counters are the source of truth; every mutation is tied to exactly one
// booking state transition through the membership_adjustments table, which
// makes reapplying a mutation after a crash-and-retry a no-op.
type MembershipService struct {
	db                 *pgxpool.Pool
	membershipRepo     *repository.MembershipRepository
	bookingRepo        *repository.BookingRepository
	additionalTanPrice float64
	clock              Clock
	loc                *time.Location
	logger             zerolog.Logger
}

func NewMembershipService(
	db *pgxpool.Pool,
	membershipRepo *repository.MembershipRepository,
	bookingRepo *repository.BookingRepository,
	additionalTanPrice float64,
	clock Clock,
	logger zerolog.Logger,
) *MembershipService {
	return &MembershipService{
		db:                 db,
		membershipRepo:     membershipRepo,
		bookingRepo:        bookingRepo,
		additionalTanPrice: additionalTanPrice,
		clock:              clock,
		loc:                time.Local,
		logger:             logger,
	}
}

// ActiveMembershipID reports the client's active membership, if any.
func (s *MembershipService) ActiveMembershipID(ctx context.Context, clientID int64) (int64, error) {
	membership, err := s.membershipRepo.GetActiveByClientID(ctx, clientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNoMembership
		}
		return 0, err
	}
	return membership.ID, nil
}

// AllocateTx decides included vs additional for a new membership booking, on
// the caller's transaction. Greedy: while completed plus pending included
// tans are under the allowance, the tan is included at no charge; otherwise
// it is an additional tan at the discounted price. Replays return the
// original outcome without touching counters.
func (s *MembershipService) AllocateTx(
	ctx context.Context,
	q repository.DBTX,
	membershipID int64,
	bookingID int64,
) (Allocation, error) {
	repo := repository.NewMembershipRepository(q)

	cycle, err := s.ensureCurrentCycleTx(ctx, q, membershipID)
	if err != nil {
		return Allocation{}, err
	}

	alloc := allocationFor(cycle, s.additionalTanPrice)

	inserted, err := repo.RecordAdjustment(ctx, bookingID, adjustmentAllocate, alloc.Type, cycle.ID)
	if err != nil {
		return Allocation{}, err
	}
	if !inserted {
		prior, _, err := repo.Adjustment(ctx, bookingID, adjustmentAllocate)
		if err != nil {
			return Allocation{}, err
		}
		priorPrice := 0.0
		if prior == models.MembershipTanAdditional {
			priorPrice = s.additionalTanPrice
		}
		return Allocation{Type: prior, Price: priorPrice}, nil
	}

	if alloc.Type == models.MembershipTanIncluded {
		_, err = repo.AdjustCycle(ctx, cycle.ID, 0, 1, 0)
	} else {
		_, err = repo.AdjustCycle(ctx, cycle.ID, 0, 0, 1)
	}
	if err != nil {
		return Allocation{}, err
	}

	return alloc, nil
}

// allocationFor applies the greedy allowance rule to one cycle's counters.
func allocationFor(cycle *models.MembershipCycle, additionalPrice float64) Allocation {
	if cycle.TansUsed+cycle.PendingIncluded < cycle.TansIncluded {
		return Allocation{Type: models.MembershipTanIncluded, Price: 0}
	}
	return Allocation{Type: models.MembershipTanAdditional, Price: additionalPrice}
}

// OnCompletedTx settles the ledger when a membership booking completes: an
// included tan moves from pending to used, an additional tan just leaves the
// pending count (it never counted against the allowance).
func (s *MembershipService) OnCompletedTx(
	ctx context.Context,
	q repository.DBTX,
	membershipID int64,
	bookingID int64,
	tanType string,
	slot models.SlotKey,
) error {
	repo := repository.NewMembershipRepository(q)

	cycle, err := s.cycleForSlotTx(ctx, q, membershipID, bookingID, slot)
	if err != nil {
		return err
	}

	inserted, err := repo.RecordAdjustment(ctx, bookingID, adjustmentComplete, tanType, cycle.ID)
	if err != nil {
		return err
	}
	if !inserted {
		return nil
	}

	if tanType == models.MembershipTanIncluded {
		_, err = repo.AdjustCycle(ctx, cycle.ID, 1, -1, 0)
	} else {
		_, err = repo.AdjustCycle(ctx, cycle.ID, 0, 0, -1)
	}
	return err
}

// OnCancelledTx releases the pending allowance unit held by a cancelled
// membership booking. tans_used is untouched, so the freed unit can be
// rebooked within the same cycle.
func (s *MembershipService) OnCancelledTx(
	ctx context.Context,
	q repository.DBTX,
	membershipID int64,
	bookingID int64,
	tanType string,
	slot models.SlotKey,
) error {
	repo := repository.NewMembershipRepository(q)

	cycle, err := s.cycleForSlotTx(ctx, q, membershipID, bookingID, slot)
	if err != nil {
		return err
	}

	inserted, err := repo.RecordAdjustment(ctx, bookingID, adjustmentCancel, tanType, cycle.ID)
	if err != nil {
		return err
	}
	if !inserted {
		return nil
	}

	if tanType == models.MembershipTanIncluded {
		_, err = repo.AdjustCycle(ctx, cycle.ID, 0, -1, 0)
	} else {
		_, err = repo.AdjustCycle(ctx, cycle.ID, 0, 0, -1)
	}
	return err
}

// StatusFor enforces ownership before reporting status: clients only see
// their own membership, operators see any.
func (s *MembershipService) StatusFor(
	ctx context.Context,
	actorID int64,
	role string,
	membershipID int64,
) (*models.MembershipStatus, error) {
	membership, err := s.membershipRepo.GetByID(ctx, membershipID)
	if err != nil {
		return nil, err
	}
	if role != models.RoleOperator && membership.ClientID != actorID {
		return nil, ErrForbidden
	}
	return s.Status(ctx, membershipID)
}

// Status rolls the membership forward to the current cycle and returns the
// live counters.
func (s *MembershipService) Status(ctx context.Context, membershipID int64) (*models.MembershipStatus, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	cycle, err := s.ensureCurrentCycleTx(ctx, tx, membershipID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &models.MembershipStatus{
		MembershipID:      membershipID,
		TansIncluded:      cycle.TansIncluded,
		TansUsed:          cycle.TansUsed,
		PendingIncluded:   cycle.PendingIncluded,
		PendingAdditional: cycle.PendingAdditional,
		NextBillingDate:   cycle.CycleEnd,
	}, nil
}

// Reconcile compares the stored counters against counts re-derived from live
// bookings. The derived numbers are a consistency check only, never the live
// value.
func (s *MembershipService) Reconcile(ctx context.Context, membershipID int64) (*ReconcileReport, error) {
	cycle, err := s.membershipRepo.LatestCycle(ctx, membershipID)
	if err != nil {
		return nil, err
	}

	// Units for slots beyond the window that were charged to this cycle are
	// part of its stored counters, so the derivation must count them too.
	included, additional, err := s.bookingRepo.PendingMembershipCountsForCycle(
		ctx,
		membershipID,
		cycle.ID,
		cycle.CycleStart.Format("2006-01-02"),
		cycle.CycleEnd.Format("2006-01-02"),
	)
	if err != nil {
		return nil, err
	}

	report := &ReconcileReport{
		MembershipID:      membershipID,
		StoredIncluded:    cycle.PendingIncluded,
		StoredAdditional:  cycle.PendingAdditional,
		DerivedIncluded:   included,
		DerivedAdditional: additional,
		InSync:            cycle.PendingIncluded == included && cycle.PendingAdditional == additional,
	}
	if !report.InSync {
		s.logger.Warn().
			Int64("membership_id", membershipID).
			Int("stored_included", report.StoredIncluded).
			Int("derived_included", report.DerivedIncluded).
			Int("stored_additional", report.StoredAdditional).
			Int("derived_additional", report.DerivedAdditional).
			Msg("membership ledger drift")
	}
	return report, nil
}

// ensureCurrentCycleTx returns the cycle covering now, opening it first when
// the previous cycle has ended. A new cycle starts with zero tans used;
// pending counters carry forward only for live bookings whose slot falls in
// the new window, the rest stay attached to the closing cycle.
func (s *MembershipService) ensureCurrentCycleTx(
	ctx context.Context,
	q repository.DBTX,
	membershipID int64,
) (*models.MembershipCycle, error) {
	repo := repository.NewMembershipRepository(q)
	bookings := repository.NewBookingRepository(q)
	now := s.clock.Now()

	latest, err := repo.LatestCycleForUpdate(ctx, membershipID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		membership, err := repo.GetByID(ctx, membershipID)
		if err != nil {
			return nil, err
		}
		start := membership.StartedAt
		for !now.Before(start.AddDate(0, 1, 0)) {
			start = start.AddDate(0, 1, 0)
		}
		cycle, err := repo.CreateCycle(ctx, repository.CreateCycleInput{
			MembershipID: membershipID,
			CycleStart:   start,
			CycleEnd:     start.AddDate(0, 1, 0),
			TansIncluded: membership.TansIncluded,
		})
		if err != nil {
			// A concurrent transaction opened the cycle first; the
			// re-read runs on a fresh snapshot and sees its row.
			if errors.Is(err, pgx.ErrNoRows) {
				return repo.LatestCycleForUpdate(ctx, membershipID)
			}
			return nil, err
		}
		return cycle, nil
	}

	if now.Before(latest.CycleEnd) {
		return latest, nil
	}

	start := latest.CycleEnd
	for !now.Before(start.AddDate(0, 1, 0)) {
		start = start.AddDate(0, 1, 0)
	}
	end := start.AddDate(0, 1, 0)

	included, additional, err := bookings.PendingMembershipCounts(
		ctx,
		membershipID,
		start.Format("2006-01-02"),
		end.Format("2006-01-02"),
	)
	if err != nil {
		return nil, err
	}

	cycle, err := repo.CreateCycle(ctx, repository.CreateCycleInput{
		MembershipID:      membershipID,
		CycleStart:        start,
		CycleEnd:          end,
		TansIncluded:      latest.TansIncluded,
		PendingIncluded:   included,
		PendingAdditional: additional,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repo.LatestCycleForUpdate(ctx, membershipID)
		}
		return nil, err
	}

	s.logger.Info().
		Int64("membership_id", membershipID).
		Time("cycle_start", start).
		Time("cycle_end", end).
		Int("carried_included", included).
		Int("carried_additional", additional).
		Msg("membership cycle rolled over")
	return cycle, nil
}

// cycleForSlotTx locates the cycle a booking's allowance unit lives on: the
// cycle covering the slot instant when one exists (rollover carry moves the
// unit there), otherwise the cycle the unit was allocated against. The latest
// cycle is never a substitute, it may postdate the allocation and carry
// nothing for this booking.
func (s *MembershipService) cycleForSlotTx(
	ctx context.Context,
	q repository.DBTX,
	membershipID int64,
	bookingID int64,
	slot models.SlotKey,
) (*models.MembershipCycle, error) {
	repo := repository.NewMembershipRepository(q)

	cycle, err := repo.CycleCovering(ctx, membershipID, slot.At(s.loc))
	if err == nil {
		return cycle, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	_, cycleID, err := repo.Adjustment(ctx, bookingID, adjustmentAllocate)
	if err == nil {
		return repo.CycleByIDForUpdate(ctx, cycleID)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	return repo.LatestCycleForUpdate(ctx, membershipID)
}
