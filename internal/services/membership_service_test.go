package services

import (
	"testing"

	"github.com/glowmobile/TanAppBack/internal/models"
)

func TestAllocationForIsGreedy(t *testing.T) {
	cycle := &models.MembershipCycle{TansIncluded: 2}

	// First two allocations of a fresh cycle are included.
	first := allocationFor(cycle, 35)
	if first.Type != models.MembershipTanIncluded || first.Price != 0 {
		t.Fatalf("expected free included tan, got %+v", first)
	}
	cycle.PendingIncluded++

	second := allocationFor(cycle, 35)
	if second.Type != models.MembershipTanIncluded || second.Price != 0 {
		t.Fatalf("expected free included tan, got %+v", second)
	}
	cycle.PendingIncluded++

	// Third exceeds the allowance.
	third := allocationFor(cycle, 35)
	if third.Type != models.MembershipTanAdditional {
		t.Fatalf("expected additional tan, got %+v", third)
	}
	if third.Price != 35 {
		t.Fatalf("expected configured additional price, got %.2f", third.Price)
	}
}

func TestAllocationForCountsUsedTans(t *testing.T) {
	cycle := &models.MembershipCycle{
		TansIncluded:    2,
		TansUsed:        1,
		PendingIncluded: 1,
	}
	alloc := allocationFor(cycle, 35)
	if alloc.Type != models.MembershipTanAdditional {
		t.Fatalf("used plus pending fills the allowance, got %+v", alloc)
	}
}

func TestAllocationForReopensAfterCancellation(t *testing.T) {
	cycle := &models.MembershipCycle{
		TansIncluded:    2,
		TansUsed:        1,
		PendingIncluded: 1,
	}

	// Cancelling the pending included booking restores the allowance unit.
	cycle.PendingIncluded--

	alloc := allocationFor(cycle, 35)
	if alloc.Type != models.MembershipTanIncluded {
		t.Fatalf("expected freed allowance to be reusable, got %+v", alloc)
	}
}
