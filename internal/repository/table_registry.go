package repository

import (
	"errors"
	"fmt"
	"sort"

	"github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// ErrRegistryEmpty is returned when the registry is built without tables.
var ErrRegistryEmpty = errors.New("table registry not initialized")

// TableRegistry holds the restaurant's physical tables.  It is read-only
// after construction and safe for concurrent use.
type TableRegistry struct {
	tables []model.Table
	byID   map[model.TableID]model.Table
}

// NewTableRegistry validates the seed and returns a registry ordered by
// table id.
func NewTableRegistry(seed []model.Table) (*TableRegistry, error) {
	if len(seed) == 0 {
		return nil, ErrRegistryEmpty
	}
	byID := make(map[model.TableID]model.Table, len(seed))
	tables := make([]model.Table, 0, len(seed))
	for _, t := range seed {
		if t.ID <= 0 {
			return nil, fmt.Errorf("table id must be positive, got %d", t.ID)
		}
		if t.SeatCount <= 0 {
			return nil, fmt.Errorf("table %d: seat count must be positive", t.ID)
		}
		if _, dup := byID[t.ID]; dup {
			return nil, fmt.Errorf("table %d seeded twice", t.ID)
		}
		byID[t.ID] = t
		tables = append(tables, t)
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i].ID < tables[j].ID })
	return &TableRegistry{tables: tables, byID: byID}, nil
}

// ListTables returns every table ordered by id.
func (r *TableRegistry) ListTables() []model.Table {
	out := make([]model.Table, len(r.tables))
	copy(out, r.tables)
	return out
}

// Get returns the table with the given id.
func (r *TableRegistry) Get(id model.TableID) (model.Table, bool) {
	t, ok := r.byID[id]
	return t, ok
}

// Exists reports whether id names a table in the layout.
func (r *TableRegistry) Exists(id model.TableID) bool {
	_, ok := r.byID[id]
	return ok
}

// Missing returns the ids in ids that are not seeded.
func (r *TableRegistry) Missing(ids []model.TableID) []model.TableID {
	var out []model.TableID
	for _, id := range ids {
		if !r.Exists(id) {
			out = append(out, id)
		}
	}
	return out
}

// Capacity sums the seats of the given tables, ignoring unknown ids.
func (r *TableRegistry) Capacity(ids []model.TableID) int {
	total := 0
	for _, id := range ids {
		total += r.byID[id].SeatCount
	}
	return total
}
