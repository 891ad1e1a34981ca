package services

import (
	"testing"
	"time"

	"github.com/glowmobile/TanAppBack/internal/models"
)

func TestEvaluateRefund(t *testing.T) {
	appointment := time.Date(2026, 6, 10, 14, 0, 0, 0, time.UTC)

	cases := []struct {
		name              string
		now               time.Time
		paymentStatus     string
		membershipApplied bool
		deposit           float64
		wantStatus        string
		wantAmount        float64
	}{
		{
			name:          "paid outside window refunds deposit",
			now:           appointment.Add(-49 * time.Hour),
			paymentStatus: models.PaymentPaid,
			deposit:       10,
			wantStatus:    models.RefundProcessed,
			wantAmount:    10,
		},
		{
			name:          "paid inside window refunds nothing",
			now:           appointment.Add(-47 * time.Hour),
			paymentStatus: models.PaymentPaid,
			deposit:       10,
			wantStatus:    models.RefundNone,
			wantAmount:    0,
		},
		{
			name:          "unpaid booking has nothing to refund",
			now:           appointment.Add(-1 * time.Hour),
			paymentStatus: models.PaymentUnpaid,
			deposit:       10,
			wantStatus:    models.RefundNotApplicable,
			wantAmount:    0,
		},
		{
			name:              "membership booking is never cash refunded",
			now:               appointment.Add(-100 * time.Hour),
			paymentStatus:     models.PaymentPaid,
			membershipApplied: true,
			deposit:           10,
			wantStatus:        models.RefundNone,
			wantAmount:        0,
		},
		{
			name:          "exactly at window boundary refunds nothing",
			now:           appointment.Add(-48 * time.Hour),
			paymentStatus: models.PaymentPaid,
			deposit:       10,
			wantStatus:    models.RefundNone,
			wantAmount:    0,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decision := EvaluateRefund(RefundInput{
				AppointmentAt:     appointment,
				Now:               tc.now,
				PaymentStatus:     tc.paymentStatus,
				MembershipApplied: tc.membershipApplied,
				DepositAmount:     tc.deposit,
			})
			if decision.Status != tc.wantStatus {
				t.Fatalf("expected status %q, got %q", tc.wantStatus, decision.Status)
			}
			if decision.Amount != tc.wantAmount {
				t.Fatalf("expected amount %.2f, got %.2f", tc.wantAmount, decision.Amount)
			}
		})
	}
}

func TestEvaluateRefundIsDeterministic(t *testing.T) {
	in := RefundInput{
		AppointmentAt: time.Date(2026, 6, 10, 14, 0, 0, 0, time.UTC),
		Now:           time.Date(2026, 6, 7, 14, 0, 0, 0, time.UTC),
		PaymentStatus: models.PaymentPaid,
		DepositAmount: 25,
	}

	first := EvaluateRefund(in)
	second := EvaluateRefund(in)
	if first != second {
		t.Fatalf("expected identical decisions, got %+v and %+v", first, second)
	}
	if first.HoursUntil != 72 {
		t.Fatalf("expected 72 hours until appointment, got %.2f", first.HoursUntil)
	}
}

func TestEvaluateRefundHonorsConfiguredWindow(t *testing.T) {
	appointment := time.Date(2026, 6, 10, 14, 0, 0, 0, time.UTC)

	decision := EvaluateRefund(RefundInput{
		AppointmentAt: appointment,
		Now:           appointment.Add(-30 * time.Hour),
		PaymentStatus: models.PaymentPaid,
		DepositAmount: 10,
		Window:        24 * time.Hour,
	})
	if decision.Status != models.RefundProcessed {
		t.Fatalf("expected processed with 24h window, got %q", decision.Status)
	}
}
