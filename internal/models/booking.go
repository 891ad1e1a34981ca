package models

import "time"

const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCompleted = "completed"
	BookingCancelled = "cancelled"
)

const (
	PaymentUnpaid = "unpaid"
	PaymentPaid   = "paid"
)

const (
	MembershipTanNone       = "none"
	MembershipTanIncluded   = "included"
	MembershipTanAdditional = "additional"
)

const (
	RefundNone          = "none"
	RefundNotApplicable = "not_applicable"
	RefundProcessed     = "processed"
	RefundFailed        = "failed"
)

// Booking is a confirmed appointment promoted from a Reservation. completed
// and cancelled are terminal; a cancelled booking only ever changes its
// refund fields afterwards.
type Booking struct {
	ID                int64      `json:"id"`
	Slot              SlotKey    `json:"slot"`
	ClientID          int64      `json:"client_id"`
	Status            string     `json:"status"`
	PaymentStatus     string     `json:"payment_status"`
	MembershipApplied bool       `json:"membership_applied"`
	MembershipType    string     `json:"membership_type"`
	MembershipID      *int64     `json:"membership_id,omitempty"`
	PromoCode         *string    `json:"promo_code,omitempty"`
	DepositAmount     float64    `json:"deposit_amount"`
	FinalAmount       float64    `json:"final_amount"`
	RefundStatus      string     `json:"refund_status"`
	RefundAmount      float64    `json:"refund_amount"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	CancelledAt       *time.Time `json:"cancelled_at,omitempty"`
}
