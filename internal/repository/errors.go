// Package repository defines the reservation store contract, its
// in-memory and SQL implementations, and the errors they share.  Higher
// layers translate these sentinel values into the public error taxonomy.
package repository

import (
	"errors"
	"fmt"

	"github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// ErrNotFound is returned when no reservation has the requested id.
var ErrNotFound = errors.New("reservation not found")

// ErrConflict is returned when a write would make two active reservations
// hold the same table in the same slot.
var ErrConflict = errors.New("conflict")

// ErrStaleVersion is returned when the stored reservation changed since
// the caller read it.
var ErrStaleVersion = errors.New("stale reservation version")

// TableTakenError names the tables that blocked a write.  It matches
// ErrConflict with errors.Is.
type TableTakenError struct {
	Key    model.SlotKey
	Tables []model.TableID
}

func (e *TableTakenError) Error() string {
	return fmt.Sprintf("tables [%s] already held at %s", model.FormatTableIDs(e.Tables), e.Key)
}

func (e *TableTakenError) Is(target error) bool { return target == ErrConflict }
