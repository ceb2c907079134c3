package model

import (
	"sort"
	"strconv"
	"strings"
)

// TableID identifies a physical table on the restaurant floor.
type TableID int

// Table is a physical table and its seating capacity.  Tables are seeded
// at startup and never change afterwards.
//
// Fields:
//
//	ID        – stable table number shown to guests and staff.
//	SeatCount – number of guests the table seats (always positive).
type Table struct {
	ID        TableID `json:"id"`
	SeatCount int     `json:"seat_count"`
}

// SortTableIDs returns a sorted copy of ids.
func SortTableIDs(ids []TableID) []TableID {
	out := make([]TableID, len(ids))
	copy(out, ids)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SameTables reports whether a and b hold the same table ids regardless of order.
func SameTables(a, b []TableID) bool {
	if len(a) != len(b) {
		return false
	}
	sa, sb := SortTableIDs(a), SortTableIDs(b)
	for i := range sa {
		if sa[i] != sb[i] {
			return false
		}
	}
	return true
}

// FormatTableIDs renders ids as "3, 5".
func FormatTableIDs(ids []TableID) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.Itoa(int(id)))
	}
	return strings.Join(parts, ", ")
}
