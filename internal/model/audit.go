package model

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
)

// AuditAction names the lifecycle transition an audit entry records.
type AuditAction string

const (
	ActionCreated   AuditAction = "created"
	ActionUpdated   AuditAction = "updated"
	ActionCancelled AuditAction = "cancelled"
	ActionSeated    AuditAction = "seated"
)

// AuditEntry is one append-only record of a committed transition.  Values
// are kept structured; the "old → new" display form is produced by the
// HTTP layer.  The Prev fields are only set for ActionUpdated.
type AuditEntry struct {
	ID            int64
	ReservationID uuid.UUID
	Action        AuditAction
	Date          civil.Date
	Slot          TimeSlot
	TableIDs      []TableID
	PrevDate      *civil.Date
	PrevSlot      *TimeSlot
	PrevTableIDs  []TableID
	DoneBy        string
	Timestamp     time.Time
}

// NewAuditEntry builds the entry for a transition that leaves r in its
// current state.
func NewAuditEntry(r *Reservation, action AuditAction, actor string, at time.Time) AuditEntry {
	return AuditEntry{
		ReservationID: r.ID,
		Action:        action,
		Date:          r.Date,
		Slot:          r.Slot,
		TableIDs:      append([]TableID(nil), r.TableIDs...),
		DoneBy:        actor,
		Timestamp:     at,
	}
}

// WithPrevious records the values r held before an update.
func (e AuditEntry) WithPrevious(prev *Reservation) AuditEntry {
	d, s := prev.Date, prev.Slot
	e.PrevDate = &d
	e.PrevSlot = &s
	e.PrevTableIDs = append([]TableID(nil), prev.TableIDs...)
	return e
}
