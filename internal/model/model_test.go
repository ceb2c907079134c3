package model

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	t.Parallel()

	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusSeated, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusPending, false},
		{StatusSeated, StatusCancelled, false},
		{StatusSeated, StatusPending, false},
		{StatusCancelled, StatusSeated, false},
		{StatusCancelled, StatusPending, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestHoldsTables(t *testing.T) {
	t.Parallel()

	assert.True(t, StatusPending.HoldsTables())
	assert.True(t, StatusSeated.HoldsTables())
	assert.False(t, StatusCancelled.HoldsTables())
	assert.False(t, Status("bogus").Valid())
}

func TestCloneDoesNotShareTables(t *testing.T) {
	t.Parallel()

	r := Reservation{ID: uuid.New(), TableIDs: []TableID{1, 2}}
	c := r.Clone()
	c.TableIDs[0] = 9
	assert.Equal(t, TableID(1), r.TableIDs[0])
}

func TestTableHelpers(t *testing.T) {
	t.Parallel()

	assert.True(t, SameTables([]TableID{5, 3}, []TableID{3, 5}))
	assert.False(t, SameTables([]TableID{5}, []TableID{5, 6}))
	assert.Equal(t, "3, 5", FormatTableIDs([]TableID{3, 5}))

	key := SlotKey{Date: civil.Date{Year: 2025, Month: 6, Day: 1}, Slot: 16}
	assert.Equal(t, "2025-06-01#16", key.String())
}

func TestAuditEntryWithPrevious(t *testing.T) {
	t.Parallel()

	prev := Reservation{ID: uuid.New(), Date: civil.Date{Year: 2025, Month: 6, Day: 1}, Slot: 2, TableIDs: []TableID{1}}
	next := prev.Clone()
	next.Slot = 3
	next.TableIDs = []TableID{1, 2}

	e := NewAuditEntry(&next, ActionUpdated, "cust-1", prev.CreatedAt).WithPrevious(&prev)
	assert.Equal(t, TimeSlot(3), e.Slot)
	assert.Equal(t, TimeSlot(2), *e.PrevSlot)
	assert.Equal(t, []TableID{1}, e.PrevTableIDs)
	assert.Equal(t, []TableID{1, 2}, e.TableIDs)
}
