package repository

import (
	"context"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// ReservationStore owns the authoritative reservation records.
//
// The mutating methods are only called by the reservation lifecycle.  Each
// one checks table exclusivity against committed state, commits the new
// reservation state and appends entry to the audit log as one indivisible
// step: either all of it is visible afterwards or none of it is.  The
// passed reservation carries the version the caller read; a mismatch
// yields ErrStaleVersion.  On success the store assigns the new version to
// r and the sequence id to entry.
type ReservationStore interface {
	Get(ctx context.Context, id uuid.UUID) (model.Reservation, error)
	// ListByDateRange returns reservations with from <= date <= to, ordered
	// by date, slot and creation time.  An empty status matches all.
	ListByDateRange(ctx context.Context, from, to civil.Date, status model.Status) ([]model.Reservation, error)
	ListByCustomer(ctx context.Context, customerID string) ([]model.Reservation, error)
	// HoldersAt maps each held table in key to the reservation holding it.
	HoldersAt(ctx context.Context, key model.SlotKey) (map[model.TableID]uuid.UUID, error)

	Insert(ctx context.Context, r *model.Reservation, entry *model.AuditEntry) error
	ApplyUpdate(ctx context.Context, r *model.Reservation, entry *model.AuditEntry) error
	ApplyCancel(ctx context.Context, r *model.Reservation, entry *model.AuditEntry) error
	ApplySeat(ctx context.Context, r *model.Reservation, entry *model.AuditEntry) error

	AuditLog() AuditLog
}

// AuditLog is the append-only record of lifecycle transitions.
type AuditLog interface {
	Append(ctx context.Context, entry *model.AuditEntry) error
	// ListAll returns entries newest first.  limit <= 0 means no limit.
	ListAll(ctx context.Context, limit int) ([]model.AuditEntry, error)
	// ListByReservation returns one reservation's entries oldest first.
	ListByReservation(ctx context.Context, id uuid.UUID) ([]model.AuditEntry, error)
}

// heldBy returns the tables in want that holders assigns to someone other
// than self.
func heldBy(holders map[model.TableID]uuid.UUID, want []model.TableID, self uuid.UUID) []model.TableID {
	var taken []model.TableID
	for _, id := range want {
		if owner, ok := holders[id]; ok && owner != self {
			taken = append(taken, id)
		}
	}
	return taken
}
