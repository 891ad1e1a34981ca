package models

import "time"

const (
	MembershipActive    = "active"
	MembershipCancelled = "cancelled"
)

// Membership is a client's monthly plan: a fixed number of included tans per
// billing cycle, extra tans at a discounted price.
type Membership struct {
	ID           int64     `json:"id"`
	ClientID     int64     `json:"client_id"`
	Status       string    `json:"status"`
	TansIncluded int       `json:"tans_included"`
	StartedAt    time.Time `json:"started_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// MembershipCycle tracks one billing cycle's allowance. The stored counters
// are the source of truth; booking queries are only used as a reconciliation
// check.
type MembershipCycle struct {
	ID                int64     `json:"id"`
	MembershipID      int64     `json:"membership_id"`
	CycleStart        time.Time `json:"cycle_start"`
	CycleEnd          time.Time `json:"cycle_end"`
	TansIncluded      int       `json:"tans_included"`
	TansUsed          int       `json:"tans_used_this_month"`
	PendingIncluded   int       `json:"pending_included_tans"`
	PendingAdditional int       `json:"pending_additional_tans"`
}

// MembershipStatus is the read model served to clients.
type MembershipStatus struct {
	MembershipID      int64     `json:"membership_id"`
	TansIncluded      int       `json:"tans_included"`
	TansUsed          int       `json:"tans_used_this_month"`
	PendingIncluded   int       `json:"pending_included_tans"`
	PendingAdditional int       `json:"pending_additional_tans"`
	NextBillingDate   time.Time `json:"next_billing_date"`
}
