package services

import (
	"time"

	"github.com/glowmobile/TanAppBack/internal/models"
)

// DefaultRefundWindow is how far ahead of the appointment a paid booking can
// still be cancelled for a full deposit refund.
const DefaultRefundWindow = 48 * time.Hour

type RefundInput struct {
	AppointmentAt     time.Time
	Now               time.Time
	PaymentStatus     string
	MembershipApplied bool
	DepositAmount     float64
	Window            time.Duration
}

type RefundDecision struct {
	Status     string  `json:"refund_status"`
	Amount     float64 `json:"refund_amount"`
	HoursUntil float64 `json:"hours_until_appointment"`
}

// EvaluateRefund decides the refund outcome for a cancellation. Pure and
// deterministic, so the same call backs both the cancellation itself and the
// pre-cancellation preview shown to the client.
//
// Rule order: membership bookings are never cash-refunded (cancellation
// restores ledger allowance instead); unpaid bookings have nothing to refund;
// paid bookings get the deposit back only outside the refund window.
func EvaluateRefund(in RefundInput) RefundDecision {
	window := in.Window
	if window <= 0 {
		window = DefaultRefundWindow
	}
	hoursUntil := in.AppointmentAt.Sub(in.Now).Hours()

	if in.MembershipApplied {
		return RefundDecision{Status: models.RefundNone, Amount: 0, HoursUntil: hoursUntil}
	}
	if in.PaymentStatus != models.PaymentPaid {
		return RefundDecision{Status: models.RefundNotApplicable, Amount: 0, HoursUntil: hoursUntil}
	}
	if in.AppointmentAt.Sub(in.Now) > window {
		return RefundDecision{Status: models.RefundProcessed, Amount: in.DepositAmount, HoursUntil: hoursUntil}
	}
	return RefundDecision{Status: models.RefundNone, Amount: 0, HoursUntil: hoursUntil}
}
