package models

import "time"

const (
	ReservationActive    = "active"
	ReservationCompleted = "completed"
	ReservationCancelled = "cancelled"
	ReservationExpired   = "expired"
)

// Reservation is a short-lived hold on a slot while the client finishes
// payment. Only one active hold may exist per slot.
type Reservation struct {
	ID            int64     `json:"id"`
	Slot          SlotKey   `json:"slot"`
	ClientID      int64     `json:"client_id"`
	Status        string    `json:"status"`
	PendingAmount float64   `json:"pending_amount"`
	DepositAmount float64   `json:"deposit_amount"`
	CreatedAt     time.Time `json:"created_at"`
	ExpiresAt     time.Time `json:"expires_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
