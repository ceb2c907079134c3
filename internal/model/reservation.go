package model

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
)

// Status is the lifecycle state of a reservation.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusSeated    Status = "SEATED"
	StatusCancelled Status = "CANCELLED"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSeated, StatusCancelled:
		return true
	}
	return false
}

// HoldsTables reports whether a reservation in this status occupies its
// tables.  Cancelled reservations release them.
func (s Status) HoldsTables() bool {
	return s == StatusPending || s == StatusSeated
}

// CanTransition reports whether the state machine allows from -> to.
// Seated and cancelled are terminal.
func CanTransition(from, to Status) bool {
	if from != StatusPending {
		return false
	}
	return to == StatusSeated || to == StatusCancelled
}

// Reservation is a booking of one or two tables for a (date, slot).
// Reservations are never deleted; cancelling one only changes its status.
//
// Fields:
//
//	ID            – reservation identifier.
//	CustomerID    – subject of the customer account that booked.
//	CustomerName  – contact name given at booking time.
//	CustomerPhone – contact phone.
//	CustomerEmail – contact e-mail.
//	PartySize     – number of guests.
//	Date          – calendar date of the visit.
//	Slot          – time slot within Date.
//	TableIDs      – one or two distinct tables.
//	Status        – PENDING, SEATED or CANCELLED.
//	Version       – bumped on every committed change.
//	CreatedAt     – creation instant (UTC).
//	UpdatedAt     – last change instant (UTC), never moves backwards.
type Reservation struct {
	ID            uuid.UUID
	CustomerID    string
	CustomerName  string
	CustomerPhone string
	CustomerEmail string
	PartySize     int
	Date          civil.Date
	Slot          TimeSlot
	TableIDs      []TableID
	Status        Status
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Key returns the (date, slot) partition the reservation occupies.
func (r *Reservation) Key() SlotKey {
	return SlotKey{Date: r.Date, Slot: r.Slot}
}

// Clone returns a deep copy so callers can mutate it freely.
func (r *Reservation) Clone() Reservation {
	out := *r
	out.TableIDs = append([]TableID(nil), r.TableIDs...)
	return out
}
