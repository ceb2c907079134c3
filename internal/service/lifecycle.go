package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	pkgerrors "github.com/iliyamo/restaurant-table-reservation/internal/errors"
	"github.com/iliyamo/restaurant-table-reservation/internal/lock"
	"github.com/iliyamo/restaurant-table-reservation/internal/logger"
	"github.com/iliyamo/restaurant-table-reservation/internal/metrics"
	"github.com/iliyamo/restaurant-table-reservation/internal/model"
	"github.com/iliyamo/restaurant-table-reservation/internal/repository"
)

// Role is the caller's role as carried in the access token.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleStaff    Role = "STAFF"
)

// Actor is the authenticated caller of a lifecycle operation.  ID is
// recorded as doneBy in the audit log.
type Actor struct {
	ID   string
	Role Role
}

// IsStaff reports whether the actor may act on other guests' reservations.
func (a Actor) IsStaff() bool { return a.Role == RoleStaff }

// maxMoveAttempts bounds how often Update re-locks after the reservation
// moved to another slot between its read and its lock.
const maxMoveAttempts = 3

// Deps wires a Lifecycle.  Store, Tables and Calendar are required; the
// rest fall back to in-process or no-op implementations.
type Deps struct {
	Store          repository.ReservationStore
	Tables         *repository.TableRegistry
	Calendar       *Calendar
	Locker         lock.Locker
	Events         EventPublisher
	PublishTimeout time.Duration
	Metrics        *metrics.ReservationMetrics
	Logger         *logger.Logger
	Now            func() time.Time
	NewID          func() uuid.UUID
}

// Lifecycle is the only writer of reservations.  Every mutation runs
// under the (date, slot) locks it touches and commits its state change
// together with exactly one audit entry.
type Lifecycle struct {
	store          repository.ReservationStore
	tables         *repository.TableRegistry
	calendar       *Calendar
	resolver       *AvailabilityResolver
	locker         lock.Locker
	events         EventPublisher
	publishTimeout time.Duration
	metrics        *metrics.ReservationMetrics
	log            *logger.Logger
	now            func() time.Time
	newID          func() uuid.UUID
}

// NewLifecycle builds a Lifecycle from d. Store and Tables are required.
// A nil Locker falls back to an in-process KeyedMutex and a nil Events to
// NopPublisher, so a single replica needs nothing else.
func NewLifecycle(d Deps) *Lifecycle {
	l := &Lifecycle{
		store:          d.Store,
		tables:         d.Tables,
		calendar:       d.Calendar,
		locker:         d.Locker,
		events:         d.Events,
		publishTimeout: d.PublishTimeout,
		metrics:        d.Metrics,
		log:            d.Logger,
		now:            d.Now,
		newID:          d.NewID,
	}
	if l.calendar == nil {
		l.calendar = DefaultCalendar()
	}
	if l.locker == nil {
		l.locker = lock.NewKeyedMutex()
	}
	if l.events == nil {
		l.events = NopPublisher{}
	}
	if l.publishTimeout <= 0 {
		l.publishTimeout = 3 * time.Second
	}
	if l.log == nil {
		l.log = logger.Nop()
	}
	if l.now == nil {
		l.now = time.Now
	}
	if l.newID == nil {
		l.newID = uuid.New
	}
	l.resolver = NewAvailabilityResolver(l.store, l.tables, l.calendar, l.metrics)
	return l
}

func (l *Lifecycle) Resolver() *AvailabilityResolver   { return l.resolver }
func (l *Lifecycle) Calendar() *Calendar               { return l.calendar }
func (l *Lifecycle) Tables() *repository.TableRegistry { return l.tables }

// clock returns now truncated to what every store can persist.
func (l *Lifecycle) clock() time.Time {
	return l.now().UTC().Truncate(time.Microsecond)
}

// nextUpdate is a timestamp strictly after prev.
func (l *Lifecycle) nextUpdate(prev time.Time) time.Time {
	now := l.clock()
	if !now.After(prev) {
		now = prev.Add(time.Microsecond)
	}
	return now
}

// Create books tables for a new PENDING reservation.
func (l *Lifecycle) Create(ctx context.Context, in CreateInput, actor Actor) (res model.Reservation, err error) {
	defer l.observe("create", time.Now(), &err)

	if err := requireActor(actor); err != nil {
		return model.Reservation{}, err
	}
	if err := validate.Struct(in); err != nil {
		return model.Reservation{}, formatValidationErrors(err)
	}
	if err := l.checkPlacement(in.Date, in.Slot, in.TableIDs, in.PartySize); err != nil {
		return model.Reservation{}, err
	}
	now := l.clock()
	if err := l.rejectPast(in.Date, in.Slot, now); err != nil {
		return model.Reservation{}, err
	}

	res = model.Reservation{
		ID:            l.newID(),
		CustomerID:    actor.ID,
		CustomerName:  in.CustomerName,
		CustomerPhone: in.CustomerPhone,
		CustomerEmail: in.CustomerEmail,
		PartySize:     in.PartySize,
		Date:          in.Date,
		Slot:          in.Slot,
		TableIDs:      model.SortTableIDs(in.TableIDs),
		Status:        model.StatusPending,
	}

	var entry model.AuditEntry
	err = l.withSlots(ctx, []model.SlotKey{res.Key()}, func(ctx context.Context) error {
		avail, err := l.resolver.Resolve(ctx, res.Date, res.Slot, nil)
		if err != nil {
			return err
		}
		if taken := avail.Unavailable(res.TableIDs); len(taken) > 0 {
			return conflictError(res.Key(), taken)
		}
		// Stamp under the lock so audit order follows commit order.
		res.CreatedAt = l.clock()
		res.UpdatedAt = res.CreatedAt
		entry = model.NewAuditEntry(&res, model.ActionCreated, actor.ID, res.CreatedAt)
		return l.storeError(ctx, "insert reservation", l.store.Insert(ctx, &res, &entry))
	})
	if err != nil {
		return model.Reservation{}, err
	}
	l.publish(ctx, &res, &entry)
	return res, nil
}

// Update moves a PENDING reservation to a new date, slot and table set.
// Its own tables count as free to it.
func (l *Lifecycle) Update(ctx context.Context, id uuid.UUID, in UpdateInput, actor Actor) (res model.Reservation, err error) {
	defer l.observe("update", time.Now(), &err)

	if err := requireActor(actor); err != nil {
		return model.Reservation{}, err
	}
	if err := validate.Struct(in); err != nil {
		return model.Reservation{}, formatValidationErrors(err)
	}
	tables := model.SortTableIDs(in.TableIDs)
	requested := 0
	if in.PartySize != nil {
		requested = *in.PartySize
	}
	if err := l.checkPlacement(in.Date, in.Slot, tables, requested); err != nil {
		return model.Reservation{}, err
	}
	if err := l.rejectPast(in.Date, in.Slot, l.clock()); err != nil {
		return model.Reservation{}, err
	}

	cur, err := l.load(ctx, id, actor)
	if err != nil {
		return model.Reservation{}, err
	}
	target := model.SlotKey{Date: in.Date, Slot: in.Slot}

	for attempt := 0; ; attempt++ {
		if err := requireTransition(&cur, model.StatusPending); err != nil {
			return model.Reservation{}, err
		}
		partySize := cur.PartySize
		if in.PartySize != nil {
			partySize = *in.PartySize
		}
		if err := l.checkPlacement(in.Date, in.Slot, tables, partySize); err != nil {
			return model.Reservation{}, err
		}

		var entry model.AuditEntry
		moved := false
		err = l.withSlots(ctx, []model.SlotKey{cur.Key(), target}, func(ctx context.Context) error {
			fresh, err := l.store.Get(ctx, id)
			if err != nil {
				return l.storeError(ctx, "reload reservation", err)
			}
			if fresh.Key() != cur.Key() {
				cur, moved = fresh, true
				return nil
			}
			cur = fresh
			if err := requireTransition(&cur, model.StatusPending); err != nil {
				return err
			}

			avail, err := l.resolver.Resolve(ctx, in.Date, in.Slot, &cur.ID)
			if err != nil {
				return err
			}
			if taken := avail.Unavailable(tables); len(taken) > 0 {
				return conflictError(target, taken)
			}

			next := cur.Clone()
			next.Date, next.Slot, next.TableIDs = in.Date, in.Slot, tables
			next.PartySize = partySize
			next.UpdatedAt = l.nextUpdate(cur.UpdatedAt)
			entry = model.NewAuditEntry(&next, model.ActionUpdated, actor.ID, next.UpdatedAt).WithPrevious(&cur)
			if err := l.store.ApplyUpdate(ctx, &next, &entry); err != nil {
				return l.storeError(ctx, "apply update", err)
			}
			res = next
			return nil
		})
		if err != nil {
			return model.Reservation{}, err
		}
		if !moved {
			l.publish(ctx, &res, &entry)
			return res, nil
		}
		if attempt+1 >= maxMoveAttempts {
			return model.Reservation{}, pkgerrors.New(pkgerrors.CodeConflict, "reservation keeps changing, reload and retry")
		}
	}
}

// Cancel frees a PENDING reservation's tables.  Customers may cancel only
// their own reservations.
func (l *Lifecycle) Cancel(ctx context.Context, id uuid.UUID, actor Actor) (res model.Reservation, err error) {
	defer l.observe("cancel", time.Now(), &err)
	return l.transition(ctx, id, actor, model.StatusCancelled, model.ActionCancelled, l.store.ApplyCancel)
}

// Seat checks a PENDING reservation in.  Staff only.
func (l *Lifecycle) Seat(ctx context.Context, id uuid.UUID, actor Actor) (res model.Reservation, err error) {
	defer l.observe("seat", time.Now(), &err)
	if err := requireActor(actor); err != nil {
		return model.Reservation{}, err
	}
	if !actor.IsStaff() {
		return model.Reservation{}, pkgerrors.New(pkgerrors.CodeForbidden, "only staff can seat a reservation")
	}
	return l.transition(ctx, id, actor, model.StatusSeated, model.ActionSeated, l.store.ApplySeat)
}

type applyFunc func(ctx context.Context, r *model.Reservation, entry *model.AuditEntry) error

func (l *Lifecycle) transition(ctx context.Context, id uuid.UUID, actor Actor, to model.Status, action model.AuditAction, apply applyFunc) (model.Reservation, error) {
	if err := requireActor(actor); err != nil {
		return model.Reservation{}, err
	}
	cur, err := l.load(ctx, id, actor)
	if err != nil {
		return model.Reservation{}, err
	}

	for attempt := 0; attempt < maxMoveAttempts; attempt++ {
		if err := requireTransition(&cur, to); err != nil {
			return model.Reservation{}, err
		}
		var (
			next  model.Reservation
			entry model.AuditEntry
			moved bool
		)
		err := l.withSlots(ctx, []model.SlotKey{cur.Key()}, func(ctx context.Context) error {
			fresh, err := l.store.Get(ctx, id)
			if err != nil {
				return l.storeError(ctx, "reload reservation", err)
			}
			if fresh.Key() != cur.Key() {
				cur, moved = fresh, true
				return nil
			}
			cur = fresh
			if err := requireTransition(&cur, to); err != nil {
				return err
			}
			next = cur.Clone()
			next.Status = to
			next.UpdatedAt = l.nextUpdate(cur.UpdatedAt)
			entry = model.NewAuditEntry(&next, action, actor.ID, next.UpdatedAt)
			if err := apply(ctx, &next, &entry); err != nil {
				return l.storeError(ctx, string(action)+" reservation", err)
			}
			return nil
		})
		if err != nil {
			return model.Reservation{}, err
		}
		if !moved {
			l.publish(ctx, &next, &entry)
			return next, nil
		}
	}
	return model.Reservation{}, pkgerrors.New(pkgerrors.CodeConflict, "reservation keeps changing, reload and retry")
}

// load reads a reservation and checks that actor may act on it.
func (l *Lifecycle) load(ctx context.Context, id uuid.UUID, actor Actor) (model.Reservation, error) {
	r, err := l.store.Get(ctx, id)
	if err != nil {
		return model.Reservation{}, l.storeError(ctx, "get reservation", err)
	}
	if !actor.IsStaff() && r.CustomerID != actor.ID {
		return model.Reservation{}, pkgerrors.New(pkgerrors.CodeForbidden, "reservation belongs to another customer")
	}
	return r, nil
}

// withSlots runs fn while holding the locks of keys.  fn gets a context
// that ignores cancellation so a started commit always finishes.
func (l *Lifecycle) withSlots(ctx context.Context, keys []model.SlotKey, fn func(ctx context.Context) error) error {
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.String()
	}
	start := time.Now()
	unlock, err := l.locker.Lock(ctx, names...)
	l.metrics.ObserveLockWait(time.Since(start))
	if err != nil {
		if ctx.Err() != nil {
			return pkgerrors.Wrap(pkgerrors.CodeCanceled, err, "acquire slot lock")
		}
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "acquire slot lock")
	}
	defer unlock()
	return fn(context.WithoutCancel(ctx))
}

// rejectPast fails when the slot on date has already started.
func (l *Lifecycle) rejectPast(date civil.Date, slot model.TimeSlot, now time.Time) error {
	if !l.calendar.IsPast(date, slot, now) {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "reservation slot is in the past").
		WithDetails(map[string]string{"slot": fmt.Sprintf("%s %s has already started", date, l.calendar.Label(slot))})
}

func requireActor(actor Actor) error {
	if actor.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "actor identity is required").
			WithDetails(map[string]string{"actor": "is required"})
	}
	return nil
}

func requireTransition(r *model.Reservation, to model.Status) error {
	if model.CanTransition(r.Status, to) {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeInvalidState,
		fmt.Sprintf("reservation is %s", r.Status)).
		WithDetails(map[string]string{"status": string(r.Status)})
}

func conflictError(key model.SlotKey, taken []model.TableID) error {
	return pkgerrors.New(pkgerrors.CodeConflict,
		fmt.Sprintf("table %s already taken at %s", model.FormatTableIDs(taken), key)).
		WithDetails(map[string]any{"unavailable_table_ids": taken})
}

// storeError maps repository failures onto the public taxonomy.  Unknown
// failures are storage errors and are logged.
func (l *Lifecycle) storeError(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	var taken *repository.TableTakenError
	switch {
	case pkgerrors.As(err) != nil:
		return err
	case errors.As(err, &taken):
		return conflictError(taken.Key, taken.Tables)
	case errors.Is(err, repository.ErrNotFound):
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "reservation not found")
	case errors.Is(err, repository.ErrStaleVersion):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "reservation changed concurrently, reload and retry")
	case errors.Is(err, repository.ErrConflict):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "reservation conflicts with existing data")
	}
	l.log.Error(ctx, op+" failed", err)
	return pkgerrors.Wrap(pkgerrors.CodeStorage, err, op)
}

// publish announces a committed transition.  Failures are logged only.
func (l *Lifecycle) publish(ctx context.Context, r *model.Reservation, entry *model.AuditEntry) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.publishTimeout)
	defer cancel()
	err := l.events.Publish(ctx, l.newEvent(r, entry))
	l.metrics.IncPublished(err == nil)
	if err != nil {
		l.log.WarnErr(l.log.WithReservationID(ctx, r.ID.String()), "publish reservation event", err)
	}
}

func (l *Lifecycle) observe(op string, start time.Time, errp *error) {
	outcome := "ok"
	if *errp != nil {
		outcome = string(pkgerrors.CodeOf(*errp))
	}
	l.metrics.ObserveOperation(op, outcome, time.Since(start))
}
