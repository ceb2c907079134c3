package model

import (
	"fmt"

	"cloud.google.com/go/civil"
)

// TimeSlot is the ordinal index of a half-hour slot within the daily
// schedule.  Index 0 is the opening slot.  A slot only becomes an instant
// once combined with a calendar date and the restaurant's time zone.
type TimeSlot int

// SlotKey identifies one (date, slot) partition.  Table exclusivity and
// locking are both scoped to a SlotKey.
type SlotKey struct {
	Date civil.Date
	Slot TimeSlot
}

// String renders the key as "2025-06-01#16"; lock names are built from it.
func (k SlotKey) String() string {
	return fmt.Sprintf("%s#%d", k.Date.String(), int(k.Slot))
}
