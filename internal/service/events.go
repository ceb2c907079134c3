package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/iliyamo/restaurant-table-reservation/internal/model"
	"github.com/iliyamo/restaurant-table-reservation/internal/queue"
)

// EventPublisher delivers committed reservation transitions to the
// outside world.  Publishing happens after the commit, so an error is
// logged and never undoes the transition.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.ReservationEvent) error
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, queue.ReservationEvent) error { return nil }

// FanoutPublisher hands each event to every publisher and combines their
// errors.  One failing sink does not stop the others.
type FanoutPublisher []EventPublisher

func (f FanoutPublisher) Publish(ctx context.Context, ev queue.ReservationEvent) error {
	var errs error
	for _, p := range f {
		if p == nil {
			continue
		}
		errs = multierr.Append(errs, p.Publish(ctx, ev))
	}
	return errs
}

var eventTypes = map[model.AuditAction]string{
	model.ActionCreated:   queue.EventReservationCreated,
	model.ActionUpdated:   queue.EventReservationUpdated,
	model.ActionCancelled: queue.EventReservationCancelled,
	model.ActionSeated:    queue.EventReservationSeated,
}

// newEvent describes the transition recorded by entry.
func (l *Lifecycle) newEvent(r *model.Reservation, entry *model.AuditEntry) queue.ReservationEvent {
	ev := queue.ReservationEvent{
		EventID:       uuid.NewString(),
		Type:          eventTypes[entry.Action],
		ReservationID: r.ID.String(),
		AuditID:       entry.ID,
		Status:        string(r.Status),
		CustomerID:    r.CustomerID,
		Date:          r.Date.String(),
		Slot:          l.calendar.Label(r.Slot),
		TableIDs:      tableInts(r.TableIDs),
		PartySize:     r.PartySize,
		Actor:         entry.DoneBy,
		OccurredAt:    entry.Timestamp.UTC().Format(time.RFC3339Nano),
	}
	if entry.PrevDate != nil {
		ev.PrevDate = entry.PrevDate.String()
	}
	if entry.PrevSlot != nil {
		ev.PrevSlot = l.calendar.Label(*entry.PrevSlot)
	}
	if entry.PrevTableIDs != nil {
		ev.PrevTableIDs = tableInts(entry.PrevTableIDs)
	}
	return ev
}

func tableInts(ids []model.TableID) []int {
	out := make([]int, len(ids))
	for i, id := range ids {
		out[i] = int(id)
	}
	return out
}
