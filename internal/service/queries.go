package service

import (
	"context"
	"sort"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	pkgerrors "github.com/iliyamo/restaurant-table-reservation/internal/errors"
	"github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// maxListDays caps a staff date-range listing.
const maxListDays = 62

// GetReservation returns one reservation.  Customers only see their own.
func (l *Lifecycle) GetReservation(ctx context.Context, id uuid.UUID, actor Actor) (model.Reservation, error) {
	if err := requireActor(actor); err != nil {
		return model.Reservation{}, err
	}
	return l.load(ctx, id, actor)
}

// ListReservations returns reservations dated from..to inclusive,
// optionally filtered by status, for the staff day view.
func (l *Lifecycle) ListReservations(ctx context.Context, from, to civil.Date, status model.Status) ([]model.Reservation, error) {
	details := map[string]string{}
	if !from.IsValid() {
		details["from"] = "must be a calendar date"
	}
	if !to.IsValid() {
		details["to"] = "must be a calendar date"
	}
	if len(details) == 0 {
		if to.Before(from) {
			details["to"] = "must not be before from"
		} else if to.DaysSince(from) >= maxListDays {
			details["to"] = "range is too long"
		}
	}
	if status != "" && !status.Valid() {
		details["status"] = "must be PENDING, SEATED or CANCELLED"
	}
	if len(details) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
	}
	out, err := l.store.ListByDateRange(ctx, from, to, status)
	if err != nil {
		return nil, l.storeError(ctx, "list reservations", err)
	}
	return out, nil
}

// ListPendingForCustomer returns the customer's upcoming PENDING
// reservations, soonest first.
func (l *Lifecycle) ListPendingForCustomer(ctx context.Context, customerID string) ([]model.Reservation, error) {
	all, err := l.listForCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	now := l.clock()
	out := make([]model.Reservation, 0, len(all))
	for _, r := range all {
		if r.Status == model.StatusPending && !l.calendar.IsPast(r.Date, r.Slot, now) {
			out = append(out, r)
		}
	}
	return out, nil
}

// ListPastForCustomer returns everything ListPendingForCustomer does not:
// seated and cancelled reservations and pending ones whose slot has
// started.  Most recent first.
func (l *Lifecycle) ListPastForCustomer(ctx context.Context, customerID string) ([]model.Reservation, error) {
	all, err := l.listForCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	now := l.clock()
	out := make([]model.Reservation, 0, len(all))
	for _, r := range all {
		if r.Status != model.StatusPending || l.calendar.IsPast(r.Date, r.Slot, now) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Date != b.Date {
			return a.Date.After(b.Date)
		}
		if a.Slot != b.Slot {
			return a.Slot > b.Slot
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return out, nil
}

func (l *Lifecycle) listForCustomer(ctx context.Context, customerID string) ([]model.Reservation, error) {
	if customerID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	all, err := l.store.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, l.storeError(ctx, "list customer reservations", err)
	}
	return all, nil
}

// ListAuditLog returns the newest audit entries first.  limit <= 0 returns
// all of them.
func (l *Lifecycle) ListAuditLog(ctx context.Context, limit int) ([]model.AuditEntry, error) {
	out, err := l.store.AuditLog().ListAll(ctx, limit)
	if err != nil {
		return nil, l.storeError(ctx, "list audit log", err)
	}
	return out, nil
}

// ListReservationAudit returns one reservation's history, oldest first.
func (l *Lifecycle) ListReservationAudit(ctx context.Context, id uuid.UUID) ([]model.AuditEntry, error) {
	if _, err := l.store.Get(ctx, id); err != nil {
		return nil, l.storeError(ctx, "get reservation", err)
	}
	out, err := l.store.AuditLog().ListByReservation(ctx, id)
	if err != nil {
		return nil, l.storeError(ctx, "list reservation audit", err)
	}
	return out, nil
}

// SlotView is one slot of a day as shown to a client picking a time.
type SlotView struct {
	Slot  model.TimeSlot `json:"slot"`
	Label string         `json:"label"`
	Past  bool           `json:"past"`
}

// ListSlots returns the day's grid.  When date is valid each slot is
// flagged past or not relative to now.
func (l *Lifecycle) ListSlots(date civil.Date) []SlotView {
	now := l.clock()
	slots := l.calendar.ListSlots()
	out := make([]SlotView, len(slots))
	for i, s := range slots {
		out[i] = SlotView{Slot: s, Label: l.calendar.Label(s)}
		if date.IsValid() {
			out[i].Past = l.calendar.IsPast(date, s, now)
		}
	}
	return out
}
