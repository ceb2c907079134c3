package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/restaurant-table-reservation/internal/config"
	"github.com/iliyamo/restaurant-table-reservation/internal/database"
	pkgerrors "github.com/iliyamo/restaurant-table-reservation/internal/errors"
	"github.com/iliyamo/restaurant-table-reservation/internal/lock"
	"github.com/iliyamo/restaurant-table-reservation/internal/model"
	"github.com/iliyamo/restaurant-table-reservation/internal/queue"
	"github.com/iliyamo/restaurant-table-reservation/internal/repository"
)

var (
	serviceDay = civil.Date{Year: 2025, Month: time.June, Day: 1}
	fixedNow   = time.Date(2025, time.May, 20, 10, 0, 0, 0, time.UTC)

	alice = Actor{ID: "alice", Role: RoleCustomer}
	bob   = Actor{ID: "bob", Role: RoleCustomer}
	staff = Actor{ID: "staff-1", Role: RoleStaff}
)

const sevenPM model.TimeSlot = 16

type spyPublisher struct {
	mu     sync.Mutex
	events []queue.ReservationEvent
	err    error
}

func (p *spyPublisher) Publish(_ context.Context, ev queue.ReservationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *spyPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

type fixture struct {
	lc     *Lifecycle
	store  repository.ReservationStore
	locker *lock.KeyedMutex
	events *spyPublisher
}

func newTables(t *testing.T) *repository.TableRegistry {
	t.Helper()
	reg, err := repository.NewTableRegistry([]model.Table{
		{ID: 1, SeatCount: 2}, {ID: 2, SeatCount: 2}, {ID: 3, SeatCount: 4}, {ID: 4, SeatCount: 4},
		{ID: 5, SeatCount: 4}, {ID: 6, SeatCount: 6}, {ID: 7, SeatCount: 6}, {ID: 8, SeatCount: 8},
	})
	require.NoError(t, err)
	return reg
}

func newSQLiteStore(t *testing.T) repository.ReservationStore {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, dialect, err := database.Open(config.StoreConfig{Driver: config.StoreSQLite, SQLiteDSN: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db, dialect))
	return repository.NewSQLStore(db)
}

func newFixture(t *testing.T, store repository.ReservationStore) *fixture {
	t.Helper()
	f := &fixture{store: store, locker: lock.NewKeyedMutex(), events: &spyPublisher{}}
	f.lc = NewLifecycle(Deps{
		Store:    store,
		Tables:   newTables(t),
		Calendar: DefaultCalendar(),
		Locker:   f.locker,
		Events:   f.events,
		Now:      func() time.Time { return fixedNow },
	})
	return f
}

// forEachStore runs fn against a lifecycle over every store backend.
func forEachStore(t *testing.T, fn func(t *testing.T, f *fixture)) {
	t.Helper()
	t.Run("memory", func(t *testing.T) {
		t.Parallel()
		fn(t, newFixture(t, repository.NewMemoryStore()))
	})
	t.Run("sqlite", func(t *testing.T) {
		t.Parallel()
		fn(t, newFixture(t, newSQLiteStore(t)))
	})
}

func booking(tables ...model.TableID) CreateInput {
	return CreateInput{
		CustomerName:  "Ada Lovelace",
		CustomerPhone: "+15550100",
		CustomerEmail: "ada@example.com",
		PartySize:     2,
		Date:          serviceDay,
		Slot:          sevenPM,
		TableIDs:      tables,
	}
}

func auditCount(t *testing.T, f *fixture) int {
	t.Helper()
	entries, err := f.lc.ListAuditLog(context.Background(), 0)
	require.NoError(t, err)
	return len(entries)
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, pkgerrors.CodeOf(err), err.Error())
}

func TestCreateConflictCancelRebook(t *testing.T) {
	t.Parallel()
	forEachStore(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()

		first, err := f.lc.Create(ctx, booking(5), alice)
		require.NoError(t, err)
		assert.Equal(t, model.StatusPending, first.Status)
		assert.Equal(t, "alice", first.CustomerID)

		_, err = f.lc.Create(ctx, booking(5), bob)
		requireCode(t, err, pkgerrors.CodeConflict)
		assert.Equal(t, map[string]any{"unavailable_table_ids": []model.TableID{5}}, pkgerrors.As(err).Details())

		_, err = f.lc.Cancel(ctx, first.ID, alice)
		require.NoError(t, err)

		third, err := f.lc.Create(ctx, booking(5), bob)
		require.NoError(t, err)
		assert.Equal(t, "bob", third.CustomerID)

		assert.Equal(t, 3, auditCount(t, f))
		assert.Equal(t, []string{
			queue.EventReservationCreated,
			queue.EventReservationCancelled,
			queue.EventReservationCreated,
		}, f.events.types())
	})
}

func TestCreateRejectsBadTableSets(t *testing.T) {
	t.Parallel()
	forEachStore(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		cases := map[string][]model.TableID{
			"none":      nil,
			"empty":     {},
			"three":     {1, 2, 3},
			"duplicate": {3, 3},
			"zero id":   {0},
		}
		for name, tables := range cases {
			_, err := f.lc.Create(ctx, booking(tables...), alice)
			requireCode(t, err, pkgerrors.CodeValidation)
			assert.Contains(t, pkgerrors.As(err).Details(), "table_ids", name)
		}

		_, err := f.lc.Create(ctx, booking(42), alice)
		requireCode(t, err, pkgerrors.CodeValidation)

		big := booking(1)
		big.PartySize = 5
		_, err = f.lc.Create(ctx, big, alice)
		requireCode(t, err, pkgerrors.CodeValidation)
		assert.Contains(t, pkgerrors.As(err).Details(), "party_size")

		badSlot := booking(1)
		badSlot.Slot = 99
		_, err = f.lc.Create(ctx, badSlot, alice)
		requireCode(t, err, pkgerrors.CodeValidation)

		noEmail := booking(1)
		noEmail.CustomerEmail = "not-an-email"
		_, err = f.lc.Create(ctx, noEmail, alice)
		requireCode(t, err, pkgerrors.CodeValidation)

		_, err = f.lc.Create(ctx, booking(1), Actor{Role: RoleCustomer})
		requireCode(t, err, pkgerrors.CodeValidation)

		all, err := f.lc.ListReservations(ctx, serviceDay, serviceDay, "")
		require.NoError(t, err)
		assert.Empty(t, all)
		assert.Zero(t, auditCount(t, f))
		assert.Empty(t, f.events.types())
	})
}

// countingStore counts availability lookups.
type countingStore struct {
	repository.ReservationStore
	lookups atomic.Int32
}

func (s *countingStore) HoldersAt(ctx context.Context, key model.SlotKey) (map[model.TableID]uuid.UUID, error) {
	s.lookups.Add(1)
	return s.ReservationStore.HoldersAt(ctx, key)
}

func TestCreateInPastSkipsAvailability(t *testing.T) {
	t.Parallel()
	store := &countingStore{ReservationStore: repository.NewMemoryStore()}
	f := newFixture(t, store)

	past := booking(5)
	past.Date = civil.DateOf(fixedNow).AddDays(-1)
	_, err := f.lc.Create(context.Background(), past, alice)
	requireCode(t, err, pkgerrors.CodeValidation)
	assert.Contains(t, pkgerrors.As(err).Details(), "slot")

	// The first slot today opens at 11:00, after fixedNow.
	today := booking(5)
	today.Date = civil.DateOf(fixedNow)
	today.Slot = 0
	_, err = f.lc.Create(context.Background(), today, alice)
	require.NoError(t, err)

	assert.Equal(t, int32(1), store.lookups.Load())
}

func TestUpdateKeepingSameTablesSucceeds(t *testing.T) {
	t.Parallel()
	forEachStore(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		r, err := f.lc.Create(ctx, booking(5, 6), alice)
		require.NoError(t, err)

		avail, err := f.lc.Resolver().Resolve(ctx, serviceDay, sevenPM, &r.ID)
		require.NoError(t, err)
		states := avail.States()
		assert.Equal(t, TableSelfHeld, states[5])
		assert.Equal(t, TableSelfHeld, states[6])
		assert.Equal(t, TableAvailable, states[1])

		updated, err := f.lc.Update(ctx, r.ID, UpdateInput{Date: serviceDay, Slot: sevenPM, TableIDs: []model.TableID{6, 5}}, alice)
		require.NoError(t, err)
		assert.Equal(t, []model.TableID{5, 6}, updated.TableIDs)
		assert.True(t, updated.UpdatedAt.After(r.UpdatedAt))
		assert.Greater(t, updated.Version, r.Version)
		assert.Equal(t, 2, auditCount(t, f))
	})
}

func TestUpdateMovesHoldsAndRecordsDiff(t *testing.T) {
	t.Parallel()
	forEachStore(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		r, err := f.lc.Create(ctx, booking(5), alice)
		require.NoError(t, err)

		size := 6
		moved, err := f.lc.Update(ctx, r.ID, UpdateInput{Date: serviceDay, Slot: sevenPM + 1, TableIDs: []model.TableID{5, 6}, PartySize: &size}, alice)
		require.NoError(t, err)
		assert.Equal(t, sevenPM+1, moved.Slot)
		assert.Equal(t, 6, moved.PartySize)

		// Table 5 at 19:00 is free again.
		_, err = f.lc.Create(ctx, booking(5), bob)
		require.NoError(t, err)

		history, err := f.lc.ListReservationAudit(ctx, r.ID)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, model.ActionCreated, history[0].Action)
		upd := history[1]
		assert.Equal(t, model.ActionUpdated, upd.Action)
		require.NotNil(t, upd.PrevSlot)
		assert.Equal(t, sevenPM, *upd.PrevSlot)
		assert.Equal(t, sevenPM+1, upd.Slot)
		assert.Equal(t, []model.TableID{5}, upd.PrevTableIDs)
		assert.Equal(t, []model.TableID{5, 6}, upd.TableIDs)
		assert.Equal(t, "alice", upd.DoneBy)

		evs := f.events.types()
		assert.Equal(t, queue.EventReservationUpdated, evs[1])
	})
}

func TestUpdateConflictLeavesReservationUnchanged(t *testing.T) {
	t.Parallel()
	forEachStore(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		mine, err := f.lc.Create(ctx, booking(3), alice)
		require.NoError(t, err)
		_, err = f.lc.Create(ctx, booking(4), bob)
		require.NoError(t, err)

		_, err = f.lc.Update(ctx, mine.ID, UpdateInput{Date: serviceDay, Slot: sevenPM, TableIDs: []model.TableID{3, 4}}, alice)
		requireCode(t, err, pkgerrors.CodeConflict)

		got, err := f.lc.GetReservation(ctx, mine.ID, alice)
		require.NoError(t, err)
		assert.Equal(t, []model.TableID{3}, got.TableIDs)
		assert.Equal(t, mine.Version, got.Version)
		assert.Equal(t, 2, auditCount(t, f))

		past := UpdateInput{Date: civil.DateOf(fixedNow).AddDays(-3), Slot: sevenPM, TableIDs: []model.TableID{3}}
		_, err = f.lc.Update(ctx, mine.ID, past, alice)
		requireCode(t, err, pkgerrors.CodeValidation)

		_, err = f.lc.Update(ctx, mine.ID, UpdateInput{Date: serviceDay, Slot: sevenPM, TableIDs: []model.TableID{1, 2, 3}}, alice)
		requireCode(t, err, pkgerrors.CodeValidation)
		assert.Equal(t, 2, auditCount(t, f))
	})
}

func TestClosedReservationsRejectTransitions(t *testing.T) {
	t.Parallel()
	forEachStore(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		seated, err := f.lc.Create(ctx, booking(1), alice)
		require.NoError(t, err)
		cancelled, err := f.lc.Create(ctx, booking(2), alice)
		require.NoError(t, err)

		seated, err = f.lc.Seat(ctx, seated.ID, staff)
		require.NoError(t, err)
		assert.Equal(t, model.StatusSeated, seated.Status)
		cancelled, err = f.lc.Cancel(ctx, cancelled.ID, alice)
		require.NoError(t, err)
		assert.Equal(t, model.StatusCancelled, cancelled.Status)
		before := auditCount(t, f)

		for _, r := range []model.Reservation{seated, cancelled} {
			_, err = f.lc.Update(ctx, r.ID, UpdateInput{Date: serviceDay, Slot: sevenPM, TableIDs: r.TableIDs}, alice)
			requireCode(t, err, pkgerrors.CodeInvalidState)
			_, err = f.lc.Cancel(ctx, r.ID, alice)
			requireCode(t, err, pkgerrors.CodeInvalidState)
			_, err = f.lc.Cancel(ctx, r.ID, staff)
			requireCode(t, err, pkgerrors.CodeInvalidState)
			_, err = f.lc.Seat(ctx, r.ID, staff)
			requireCode(t, err, pkgerrors.CodeInvalidState)

			got, err := f.lc.GetReservation(ctx, r.ID, staff)
			require.NoError(t, err)
			assert.Equal(t, r.Status, got.Status)
			assert.Equal(t, r.Version, got.Version)
			assert.True(t, r.UpdatedAt.Equal(got.UpdatedAt))
		}
		assert.Equal(t, before, auditCount(t, f))

		// Seated tables stay held; cancelled ones are free.
		avail, err := f.lc.Resolver().Resolve(ctx, serviceDay, sevenPM, nil)
		require.NoError(t, err)
		assert.Equal(t, TableHeld, avail.States()[1])
		assert.Equal(t, TableAvailable, avail.States()[2])
	})
}

func TestOwnershipAndRoles(t *testing.T) {
	t.Parallel()
	forEachStore(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		r, err := f.lc.Create(ctx, booking(8), alice)
		require.NoError(t, err)

		_, err = f.lc.GetReservation(ctx, r.ID, bob)
		requireCode(t, err, pkgerrors.CodeForbidden)
		_, err = f.lc.Update(ctx, r.ID, UpdateInput{Date: serviceDay, Slot: sevenPM, TableIDs: []model.TableID{8}}, bob)
		requireCode(t, err, pkgerrors.CodeForbidden)
		_, err = f.lc.Cancel(ctx, r.ID, bob)
		requireCode(t, err, pkgerrors.CodeForbidden)
		_, err = f.lc.Seat(ctx, r.ID, alice)
		requireCode(t, err, pkgerrors.CodeForbidden)

		_, err = f.lc.Cancel(ctx, uuid.New(), staff)
		requireCode(t, err, pkgerrors.CodeNotFound)
		_, err = f.lc.Seat(ctx, uuid.New(), staff)
		requireCode(t, err, pkgerrors.CodeNotFound)
		_, err = f.lc.ListReservationAudit(ctx, uuid.New())
		requireCode(t, err, pkgerrors.CodeNotFound)

		got, err := f.lc.Cancel(ctx, r.ID, staff)
		require.NoError(t, err)
		assert.Equal(t, model.StatusCancelled, got.Status)

		history, err := f.lc.ListReservationAudit(ctx, r.ID)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, "staff-1", history[1].DoneBy)
	})
}

func TestConcurrentCreatesSingleWinner(t *testing.T) {
	t.Parallel()
	forEachStore(t, func(t *testing.T, f *fixture) {
		const workers = 16
		var (
			wg        sync.WaitGroup
			wins      atomic.Int32
			conflicts atomic.Int32
		)
		start := make(chan struct{})
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				actor := Actor{ID: uuid.NewString(), Role: RoleCustomer}
				in := booking(7)
				if i%2 == 0 {
					in.TableIDs = []model.TableID{7, 8}
				}
				_, err := f.lc.Create(context.Background(), in, actor)
				switch {
				case err == nil:
					wins.Add(1)
				case pkgerrors.IsCode(err, pkgerrors.CodeConflict):
					conflicts.Add(1)
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}(i)
		}
		close(start)
		wg.Wait()

		assert.Equal(t, int32(1), wins.Load())
		assert.Equal(t, int32(workers-1), conflicts.Load())
		assert.Equal(t, 1, auditCount(t, f))
	})
}

func TestConcurrentUpdatesSingleWinner(t *testing.T) {
	t.Parallel()
	forEachStore(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		const workers = 6
		ids := make([]uuid.UUID, workers)
		for i := range ids {
			in := booking(model.TableID(i + 1))
			in.Slot = model.TimeSlot(i)
			r, err := f.lc.Create(ctx, in, alice)
			require.NoError(t, err)
			ids[i] = r.ID
		}

		var (
			wg   sync.WaitGroup
			wins atomic.Int32
		)
		for _, id := range ids {
			wg.Add(1)
			go func(id uuid.UUID) {
				defer wg.Done()
				_, err := f.lc.Update(ctx, id, UpdateInput{Date: serviceDay, Slot: sevenPM, TableIDs: []model.TableID{8}}, alice)
				if err == nil {
					wins.Add(1)
					return
				}
				assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))
			}(id)
		}
		wg.Wait()

		assert.Equal(t, int32(1), wins.Load())
		avail, err := f.lc.Resolver().Resolve(ctx, serviceDay, sevenPM, nil)
		require.NoError(t, err)
		assert.Equal(t, TableHeld, avail.States()[8])
	})
}

func TestAbandonedRequestBeforeLockIsNoop(t *testing.T) {
	t.Parallel()
	f := newFixture(t, repository.NewMemoryStore())
	key := model.SlotKey{Date: serviceDay, Slot: sevenPM}

	unlock, err := f.locker.Lock(context.Background(), key.String())
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = f.lc.Create(ctx, booking(5), alice)
	requireCode(t, err, pkgerrors.CodeCanceled)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, auditCount(t, f))
}

// tickingClock advances one second per reading.
type tickingClock struct {
	mu    sync.Mutex
	now   time.Time
	reads int
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	c.reads++
	return c.now
}

func (c *tickingClock) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

func TestCreateStampsAfterWaitingForLock(t *testing.T) {
	t.Parallel()
	forEachStore(t, func(t *testing.T, f *fixture) {
		clock := &tickingClock{now: fixedNow}
		lc := NewLifecycle(Deps{
			Store:    f.store,
			Tables:   newTables(t),
			Calendar: DefaultCalendar(),
			Locker:   f.locker,
			Now:      clock.Now,
		})
		ctx := context.Background()
		key := model.SlotKey{Date: serviceDay, Slot: sevenPM}

		unlock, err := f.locker.Lock(ctx, key.String())
		require.NoError(t, err)

		type result struct {
			r   model.Reservation
			err error
		}
		done := make(chan result, 1)
		go func() {
			r, err := lc.Create(ctx, booking(5), alice)
			done <- result{r, err}
		}()
		// The waiting create has read the clock for its past check.
		require.Eventually(t, func() bool { return clock.Reads() >= 1 }, time.Second, time.Millisecond)

		other := booking(3)
		other.Slot = sevenPM + 1
		early, err := lc.Create(ctx, other, bob)
		require.NoError(t, err)

		unlock()
		late := <-done
		require.NoError(t, late.err)
		assert.True(t, late.r.CreatedAt.After(early.CreatedAt))

		entries, err := lc.ListAuditLog(ctx, 0)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, late.r.ID, entries[0].ReservationID)
		assert.Equal(t, early.ID, entries[1].ReservationID)
		assert.Equal(t, late.r.CreatedAt, entries[0].Timestamp.UTC())
	})
}

// failingStore fails every write after the checks pass.
type failingStore struct {
	repository.ReservationStore
}

var errDiskFull = errors.New("disk full")

func (failingStore) Insert(context.Context, *model.Reservation, *model.AuditEntry) error {
	return errDiskFull
}

func (failingStore) ApplyCancel(context.Context, *model.Reservation, *model.AuditEntry) error {
	return errDiskFull
}

func TestStorageFailureSurfacesAndLeavesNoTrace(t *testing.T) {
	t.Parallel()
	mem := repository.NewMemoryStore()
	f := newFixture(t, failingStore{ReservationStore: mem})

	_, err := f.lc.Create(context.Background(), booking(5), alice)
	requireCode(t, err, pkgerrors.CodeStorage)
	assert.ErrorIs(t, err, errDiskFull)
	assert.Zero(t, auditCount(t, f))
	assert.Empty(t, f.events.types())

	// Seed directly, then fail the cancel.
	ok := newFixture(t, mem)
	r, err := ok.lc.Create(context.Background(), booking(5), alice)
	require.NoError(t, err)
	_, err = f.lc.Cancel(context.Background(), r.ID, alice)
	requireCode(t, err, pkgerrors.CodeStorage)

	got, err := mem.Get(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, got.Status)
	assert.Equal(t, 1, auditCount(t, ok))
}

func TestPublishFailureDoesNotFailCommit(t *testing.T) {
	t.Parallel()
	f := newFixture(t, repository.NewMemoryStore())
	f.events.err = errors.New("broker down")

	r, err := f.lc.Create(context.Background(), booking(5), alice)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, r.Status)
	assert.Len(t, f.events.types(), 1)
}

func TestEventCarriesTransition(t *testing.T) {
	t.Parallel()
	f := newFixture(t, repository.NewMemoryStore())
	ctx := context.Background()
	r, err := f.lc.Create(ctx, booking(5), alice)
	require.NoError(t, err)
	_, err = f.lc.Update(ctx, r.ID, UpdateInput{Date: serviceDay, Slot: sevenPM + 2, TableIDs: []model.TableID{6}}, alice)
	require.NoError(t, err)

	f.events.mu.Lock()
	defer f.events.mu.Unlock()
	require.Len(t, f.events.events, 2)
	ev := f.events.events[1]
	assert.Equal(t, r.ID.String(), ev.ReservationID)
	assert.Equal(t, "20:00", ev.Slot)
	assert.Equal(t, "19:00", ev.PrevSlot)
	assert.Equal(t, []int{6}, ev.TableIDs)
	assert.Equal(t, []int{5}, ev.PrevTableIDs)
	assert.Equal(t, "2025-06-01", ev.Date)
	assert.NotZero(t, ev.AuditID)
}

func TestCustomerListings(t *testing.T) {
	t.Parallel()
	forEachStore(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		late, err := f.lc.Create(ctx, booking(1), alice)
		require.NoError(t, err)
		early := booking(2)
		early.Date = serviceDay.AddDays(-5)
		soon, err := f.lc.Create(ctx, early, alice)
		require.NoError(t, err)
		gone, err := f.lc.Create(ctx, booking(3), alice)
		require.NoError(t, err)
		_, err = f.lc.Cancel(ctx, gone.ID, alice)
		require.NoError(t, err)
		_, err = f.lc.Create(ctx, booking(4), bob)
		require.NoError(t, err)

		pending, err := f.lc.ListPendingForCustomer(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, pending, 2)
		assert.Equal(t, soon.ID, pending[0].ID)
		assert.Equal(t, late.ID, pending[1].ID)

		past, err := f.lc.ListPastForCustomer(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, past, 1)
		assert.Equal(t, gone.ID, past[0].ID)

		// Once the clock passes the slot, a pending booking moves to the past list.
		later := NewLifecycle(Deps{
			Store:    f.store,
			Tables:   f.lc.Tables(),
			Calendar: f.lc.Calendar(),
			Now:      func() time.Time { return time.Date(2025, time.May, 28, 12, 0, 0, 0, time.UTC) },
		})
		pending, err = later.ListPendingForCustomer(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, late.ID, pending[0].ID)
		past, err = later.ListPastForCustomer(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, past, 2)
		assert.Equal(t, gone.ID, past[0].ID)
		assert.Equal(t, soon.ID, past[1].ID)

		_, err = f.lc.ListPendingForCustomer(ctx, "")
		requireCode(t, err, pkgerrors.CodeValidation)
	})
}

func TestListReservationsFilters(t *testing.T) {
	t.Parallel()
	forEachStore(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		a, err := f.lc.Create(ctx, booking(1), alice)
		require.NoError(t, err)
		_, err = f.lc.Create(ctx, booking(2), bob)
		require.NoError(t, err)
		_, err = f.lc.Seat(ctx, a.ID, staff)
		require.NoError(t, err)

		all, err := f.lc.ListReservations(ctx, serviceDay, serviceDay, "")
		require.NoError(t, err)
		assert.Len(t, all, 2)

		seated, err := f.lc.ListReservations(ctx, serviceDay, serviceDay, model.StatusSeated)
		require.NoError(t, err)
		require.Len(t, seated, 1)
		assert.Equal(t, a.ID, seated[0].ID)

		_, err = f.lc.ListReservations(ctx, serviceDay, serviceDay.AddDays(-1), "")
		requireCode(t, err, pkgerrors.CodeValidation)
		_, err = f.lc.ListReservations(ctx, serviceDay, serviceDay, "LOST")
		requireCode(t, err, pkgerrors.CodeValidation)
		_, err = f.lc.ListReservations(ctx, serviceDay, serviceDay.AddDays(400), "")
		requireCode(t, err, pkgerrors.CodeValidation)
	})
}

func TestListSlotsFlagsPast(t *testing.T) {
	t.Parallel()
	f := newFixture(t, repository.NewMemoryStore())

	slots := f.lc.ListSlots(civil.DateOf(fixedNow))
	require.Len(t, slots, 20)
	assert.Equal(t, "11:00", slots[0].Label)
	assert.False(t, slots[0].Past)

	yesterday := f.lc.ListSlots(civil.DateOf(fixedNow).AddDays(-1))
	assert.True(t, yesterday[19].Past)

	undated := f.lc.ListSlots(civil.Date{})
	assert.False(t, undated[0].Past)
}
