package services

import "errors"

var (
	ErrSlotConflict      = errors.New("slot is already held or booked")
	ErrHoldExpired       = errors.New("reservation hold has expired")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidInput      = errors.New("invalid input")
	ErrPaymentFailed     = errors.New("payment failed")
	ErrNoMembership      = errors.New("no active membership")
)
