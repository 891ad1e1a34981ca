package models

import (
	"errors"
	"fmt"
	"time"
)

const (
	slotDateLayout = "2006-01-02"
	slotTimeLayout = "15:04"
)

var ErrInvalidSlot = errors.New("invalid slot date or time")

// SlotKey identifies one unit of appointment capacity. Date and time are
// local-calendar values at the service location; no timezone conversion is
// applied anywhere in the booking path.
type SlotKey struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

// NewSlotKey is the single parsing boundary for slot date/time strings.
// Inputs are "2006-01-02" and "15:04"; anything else is rejected.
func NewSlotKey(date, timeOfDay string) (SlotKey, error) {
	d, err := time.Parse(slotDateLayout, date)
	if err != nil {
		return SlotKey{}, ErrInvalidSlot
	}
	t, err := time.Parse(slotTimeLayout, timeOfDay)
	if err != nil {
		return SlotKey{}, ErrInvalidSlot
	}
	return SlotKey{
		Date: d.Format(slotDateLayout),
		Time: t.Format(slotTimeLayout),
	}, nil
}

// Key returns the canonical string form used for per-slot serialization.
func (k SlotKey) Key() string {
	return k.Date + "T" + k.Time
}

func (k SlotKey) IsZero() bool {
	return k.Date == "" && k.Time == ""
}

// At composes the appointment instant in the given location. Used only for
// duration math (refund windows, cycle membership), never for storage.
func (k SlotKey) At(loc *time.Location) time.Time {
	t, err := time.ParseInLocation(slotDateLayout+"T"+slotTimeLayout, k.Key(), loc)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (k SlotKey) String() string {
	return fmt.Sprintf("%s %s", k.Date, k.Time)
}
