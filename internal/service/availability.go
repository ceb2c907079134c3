package service

import (
	"context"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	pkgerrors "github.com/iliyamo/restaurant-table-reservation/internal/errors"
	"github.com/iliyamo/restaurant-table-reservation/internal/metrics"
	"github.com/iliyamo/restaurant-table-reservation/internal/model"
	"github.com/iliyamo/restaurant-table-reservation/internal/repository"
)

// TableState is how one table looks to a caller picking tables.
type TableState string

const (
	TableAvailable TableState = "AVAILABLE"
	TableHeld      TableState = "HELD"
	// TableSelfHeld marks a table held by the reservation being edited.
	TableSelfHeld TableState = "SELF_HELD"
)

// TableAvailability pairs a table with its state. HeldBy is nil for an
// available table.
type TableAvailability struct {
	Table  model.Table
	State  TableState
	HeldBy *uuid.UUID
}

// Availability is the state of every table for one (date, slot).
type Availability struct {
	Key    model.SlotKey
	Tables []TableAvailability
}

// Unavailable returns the ids in want that are held by another
// reservation.  Self-held and unknown ids are not reported.
func (a Availability) Unavailable(want []model.TableID) []model.TableID {
	states := a.States()
	var out []model.TableID
	for _, id := range want {
		if states[id] == TableHeld {
			out = append(out, id)
		}
	}
	return out
}

func (a Availability) States() map[model.TableID]TableState {
	out := make(map[model.TableID]TableState, len(a.Tables))
	for _, t := range a.Tables {
		out[t.Table.ID] = t.State
	}
	return out
}

// AvailabilityResolver computes table availability from the store on every
// call.  Nothing is cached.
type AvailabilityResolver struct {
	store    repository.ReservationStore
	tables   *repository.TableRegistry
	calendar *Calendar
	metrics  *metrics.ReservationMetrics
}

func NewAvailabilityResolver(store repository.ReservationStore, tables *repository.TableRegistry, calendar *Calendar, m *metrics.ReservationMetrics) *AvailabilityResolver {
	return &AvailabilityResolver{store: store, tables: tables, calendar: calendar, metrics: m}
}

// Resolve reports every table's state at (date, slot).  When exclude is
// set, tables held by that reservation are SELF_HELD instead of HELD.
func (r *AvailabilityResolver) Resolve(ctx context.Context, date civil.Date, slot model.TimeSlot, exclude *uuid.UUID) (Availability, error) {
	if !date.IsValid() {
		return Availability{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid date").
			WithDetails(map[string]string{"date": "must be a calendar date"})
	}
	if !r.calendar.Valid(slot) {
		return Availability{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid slot").
			WithDetails(map[string]string{"slot": "is not a bookable slot"})
	}
	key := model.SlotKey{Date: date, Slot: slot}
	holders, err := r.store.HoldersAt(ctx, key)
	if err != nil {
		return Availability{}, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "read table holders")
	}
	r.metrics.IncAvailabilityRead()

	tables := r.tables.ListTables()
	out := Availability{Key: key, Tables: make([]TableAvailability, 0, len(tables))}
	for _, t := range tables {
		ta := TableAvailability{Table: t, State: TableAvailable}
		if holder, ok := holders[t.ID]; ok {
			h := holder
			ta.HeldBy = &h
			ta.State = TableHeld
			if exclude != nil && holder == *exclude {
				ta.State = TableSelfHeld
			}
		}
		out.Tables = append(out.Tables, ta)
	}
	return out, nil
}
