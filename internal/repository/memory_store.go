package repository

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// MemoryStore keeps reservations in process memory.  A single mutex makes
// every check-then-commit atomic; the lifecycle's per-slot lock keeps
// contention on it short.
type MemoryStore struct {
	mu    sync.RWMutex
	byID  map[uuid.UUID]*model.Reservation
	holds map[model.SlotKey]map[model.TableID]uuid.UUID
	audit *MemoryAuditLog
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:  make(map[uuid.UUID]*model.Reservation),
		holds: make(map[model.SlotKey]map[model.TableID]uuid.UUID),
		audit: NewMemoryAuditLog(),
	}
}

func (s *MemoryStore) AuditLog() AuditLog { return s.audit }

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (model.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byID[id]
	if !ok {
		return model.Reservation{}, ErrNotFound
	}
	return r.Clone(), nil
}

func (s *MemoryStore) ListByDateRange(_ context.Context, from, to civil.Date, status model.Status) ([]model.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Reservation
	for _, r := range s.byID {
		if r.Date.Before(from) || r.Date.After(to) {
			continue
		}
		if status != "" && r.Status != status {
			continue
		}
		out = append(out, r.Clone())
	}
	sortReservations(out)
	return out, nil
}

func (s *MemoryStore) ListByCustomer(_ context.Context, customerID string) ([]model.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Reservation
	for _, r := range s.byID {
		if r.CustomerID == customerID {
			out = append(out, r.Clone())
		}
	}
	sortReservations(out)
	return out, nil
}

func (s *MemoryStore) HoldersAt(_ context.Context, key model.SlotKey) (map[model.TableID]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[model.TableID]uuid.UUID, len(s.holds[key]))
	for t, id := range s.holds[key] {
		out[t] = id
	}
	return out, nil
}

func (s *MemoryStore) Insert(_ context.Context, r *model.Reservation, entry *model.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[r.ID]; exists {
		return ErrConflict
	}
	if taken := heldBy(s.holds[r.Key()], r.TableIDs, r.ID); len(taken) > 0 {
		return &TableTakenError{Key: r.Key(), Tables: taken}
	}
	r.Version = 1
	stored := r.Clone()
	s.byID[r.ID] = &stored
	s.hold(&stored)
	s.audit.appendLocked(entry)
	return nil
}

func (s *MemoryStore) ApplyUpdate(_ context.Context, r *model.Reservation, entry *model.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, err := s.current(r)
	if err != nil {
		return err
	}
	if taken := heldBy(s.holds[r.Key()], r.TableIDs, r.ID); len(taken) > 0 {
		return &TableTakenError{Key: r.Key(), Tables: taken}
	}
	s.release(cur)
	s.commit(r)
	s.hold(s.byID[r.ID])
	s.audit.appendLocked(entry)
	return nil
}

func (s *MemoryStore) ApplyCancel(_ context.Context, r *model.Reservation, entry *model.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, err := s.current(r)
	if err != nil {
		return err
	}
	s.release(cur)
	s.commit(r)
	s.audit.appendLocked(entry)
	return nil
}

func (s *MemoryStore) ApplySeat(_ context.Context, r *model.Reservation, entry *model.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.current(r); err != nil {
		return err
	}
	s.commit(r)
	s.audit.appendLocked(entry)
	return nil
}

// current returns the stored record for r after checking its version.
func (s *MemoryStore) current(r *model.Reservation) (*model.Reservation, error) {
	cur, ok := s.byID[r.ID]
	if !ok {
		return nil, ErrNotFound
	}
	if cur.Version != r.Version {
		return nil, ErrStaleVersion
	}
	return cur, nil
}

func (s *MemoryStore) commit(r *model.Reservation) {
	r.Version++
	stored := r.Clone()
	s.byID[r.ID] = &stored
}

func (s *MemoryStore) hold(r *model.Reservation) {
	if !r.Status.HoldsTables() {
		return
	}
	key := r.Key()
	if s.holds[key] == nil {
		s.holds[key] = make(map[model.TableID]uuid.UUID)
	}
	for _, t := range r.TableIDs {
		s.holds[key][t] = r.ID
	}
}

func (s *MemoryStore) release(r *model.Reservation) {
	key := r.Key()
	held := s.holds[key]
	for _, t := range r.TableIDs {
		if held[t] == r.ID {
			delete(held, t)
		}
	}
	if len(held) == 0 {
		delete(s.holds, key)
	}
}

func sortReservations(rs []model.Reservation) {
	sort.Slice(rs, func(i, j int) bool {
		a, b := rs[i], rs[j]
		if a.Date != b.Date {
			return a.Date.Before(b.Date)
		}
		if a.Slot != b.Slot {
			return a.Slot < b.Slot
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
}

// MemoryAuditLog is an in-process AuditLog.  Ids come from an atomic
// sequence so entries keep their commit order even when timestamps tie.
type MemoryAuditLog struct {
	mu      sync.RWMutex
	seq     atomic.Int64
	entries []model.AuditEntry
}

func NewMemoryAuditLog() *MemoryAuditLog { return &MemoryAuditLog{} }

func (l *MemoryAuditLog) Append(_ context.Context, entry *model.AuditEntry) error {
	l.appendLocked(entry)
	return nil
}

func (l *MemoryAuditLog) appendLocked(entry *model.AuditEntry) {
	entry.ID = l.seq.Add(1)
	l.mu.Lock()
	l.entries = append(l.entries, cloneEntry(*entry))
	l.mu.Unlock()
}

func (l *MemoryAuditLog) ListAll(_ context.Context, limit int) ([]model.AuditEntry, error) {
	l.mu.RLock()
	out := make([]model.AuditEntry, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, cloneEntry(e))
	}
	l.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (l *MemoryAuditLog) ListByReservation(_ context.Context, id uuid.UUID) ([]model.AuditEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []model.AuditEntry
	for _, e := range l.entries {
		if e.ReservationID == id {
			out = append(out, cloneEntry(e))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func cloneEntry(e model.AuditEntry) model.AuditEntry {
	e.TableIDs = append([]model.TableID(nil), e.TableIDs...)
	if e.PrevTableIDs != nil {
		e.PrevTableIDs = append([]model.TableID(nil), e.PrevTableIDs...)
	}
	return e
}
