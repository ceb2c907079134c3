package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"modernc.org/sqlite"

	"github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// SQLStore persists reservations in MySQL or SQLite.  Active table holds
// live in reservation_tables whose primary key is (date, slot, table), so
// the database itself rejects a double booking even when two processes
// race.  Every mutation runs in one transaction together with its audit
// row.  Timestamps are stored as unix microseconds.
type SQLStore struct {
	db    *sql.DB
	audit *SQLAuditLog
}

// NewSQLStore wraps a migrated database. The caller owns db.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, audit: NewSQLAuditLog(db)}
}

func (s *SQLStore) AuditLog() AuditLog { return s.audit }

const reservationColumns = `id, customer_id, customer_name, customer_phone, customer_email, party_size,
       reservation_date, time_slot, table_ids, status, version, created_at, updated_at`

func (s *SQLStore) Get(ctx context.Context, id uuid.UUID) (model.Reservation, error) {
	q := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
	r, err := scanReservation(s.db.QueryRowContext(ctx, q, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Reservation{}, ErrNotFound
	}
	return r, err
}

func (s *SQLStore) ListByDateRange(ctx context.Context, from, to civil.Date, status model.Status) ([]model.Reservation, error) {
	q := `SELECT ` + reservationColumns + ` FROM reservations WHERE reservation_date >= ? AND reservation_date <= ?`
	args := []any{from.String(), to.String()}
	if status != "" {
		q += ` AND status = ?`
		args = append(args, string(status))
	}
	q += ` ORDER BY reservation_date, time_slot, created_at, id`
	return s.list(ctx, q, args...)
}

func (s *SQLStore) ListByCustomer(ctx context.Context, customerID string) ([]model.Reservation, error) {
	q := `SELECT ` + reservationColumns + ` FROM reservations WHERE customer_id = ?
          ORDER BY reservation_date, time_slot, created_at, id`
	return s.list(ctx, q, customerID)
}

func (s *SQLStore) list(ctx context.Context, q string, args ...any) ([]model.Reservation, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLStore) HoldersAt(ctx context.Context, key model.SlotKey) (map[model.TableID]uuid.UUID, error) {
	return holdersAt(ctx, s.db, key)
}

// Insert writes a new PENDING reservation, its holds and the created entry.
func (s *SQLStore) Insert(ctx context.Context, r *model.Reservation, entry *model.AuditEntry) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		tables, err := encodeTables(r.TableIDs)
		if err != nil {
			return err
		}
		const q = `INSERT INTO reservations (` + reservationColumns + `)
                   VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		_, err = tx.ExecContext(ctx, q,
			r.ID.String(), r.CustomerID, r.CustomerName, r.CustomerPhone, r.CustomerEmail, r.PartySize,
			r.Date.String(), int(r.Slot), tables, string(r.Status), int64(1),
			r.CreatedAt.UnixMicro(), r.UpdatedAt.UnixMicro(),
		)
		if err != nil {
			if isDuplicateKey(err) {
				return ErrConflict
			}
			return err
		}
		if err := holdTablesTx(ctx, tx, r); err != nil {
			return err
		}
		if err := s.audit.AppendTx(ctx, tx, entry); err != nil {
			return err
		}
		r.Version = 1
		return nil
	})
}

// ApplyUpdate moves the reservation to its new date, slot and tables.
func (s *SQLStore) ApplyUpdate(ctx context.Context, r *model.Reservation, entry *model.AuditEntry) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		tables, err := encodeTables(r.TableIDs)
		if err != nil {
			return err
		}
		const q = `UPDATE reservations
                   SET reservation_date = ?, time_slot = ?, table_ids = ?, party_size = ?, updated_at = ?, version = version + 1
                   WHERE id = ? AND version = ?`
		if err := s.bump(ctx, tx, r, q,
			r.Date.String(), int(r.Slot), tables, r.PartySize, r.UpdatedAt.UnixMicro(), r.ID.String(), r.Version,
		); err != nil {
			return err
		}
		if err := releaseTablesTx(ctx, tx, r.ID); err != nil {
			return err
		}
		if err := holdTablesTx(ctx, tx, r); err != nil {
			return err
		}
		if err := s.audit.AppendTx(ctx, tx, entry); err != nil {
			return err
		}
		r.Version++
		return nil
	})
}

// ApplyCancel marks the reservation cancelled and frees its tables.
func (s *SQLStore) ApplyCancel(ctx context.Context, r *model.Reservation, entry *model.AuditEntry) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.setStatusTx(ctx, tx, r); err != nil {
			return err
		}
		if err := releaseTablesTx(ctx, tx, r.ID); err != nil {
			return err
		}
		if err := s.audit.AppendTx(ctx, tx, entry); err != nil {
			return err
		}
		r.Version++
		return nil
	})
}

// ApplySeat marks the reservation seated.  Its tables stay held.
func (s *SQLStore) ApplySeat(ctx context.Context, r *model.Reservation, entry *model.AuditEntry) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.setStatusTx(ctx, tx, r); err != nil {
			return err
		}
		if err := s.audit.AppendTx(ctx, tx, entry); err != nil {
			return err
		}
		r.Version++
		return nil
	})
}

func (s *SQLStore) setStatusTx(ctx context.Context, tx *sql.Tx, r *model.Reservation) error {
	const q = `UPDATE reservations SET status = ?, updated_at = ?, version = version + 1 WHERE id = ? AND version = ?`
	return s.bump(ctx, tx, r, q, string(r.Status), r.UpdatedAt.UnixMicro(), r.ID.String(), r.Version)
}

// bump runs a versioned UPDATE and tells a missing row from a stale one.
func (s *SQLStore) bump(ctx context.Context, tx *sql.Tx, r *model.Reservation, q string, args ...any) error {
	res, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	var one int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM reservations WHERE id = ?`, r.ID.String()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ErrStaleVersion
}

// inTx runs fn in a transaction and commits when it returns nil.
func (s *SQLStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func holdersAt(ctx context.Context, q queryer, key model.SlotKey) (map[model.TableID]uuid.UUID, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT table_id, reservation_id FROM reservation_tables WHERE reservation_date = ? AND time_slot = ?`,
		key.Date.String(), int(key.Slot))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[model.TableID]uuid.UUID)
	for rows.Next() {
		var table int
		var rid string
		if err := rows.Scan(&table, &rid); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(rid)
		if err != nil {
			return nil, fmt.Errorf("reservation_tables: bad reservation id %q: %w", rid, err)
		}
		out[model.TableID(table)] = id
	}
	return out, rows.Err()
}

// holdTablesTx checks and inserts the holds for r.  The explicit check
// names the blocking tables; the primary key catches writers that commit
// between the check and the insert.
func holdTablesTx(ctx context.Context, tx *sql.Tx, r *model.Reservation) error {
	if !r.Status.HoldsTables() {
		return nil
	}
	key := r.Key()
	holders, err := holdersAt(ctx, tx, key)
	if err != nil {
		return err
	}
	if taken := heldBy(holders, r.TableIDs, r.ID); len(taken) > 0 {
		return &TableTakenError{Key: key, Tables: taken}
	}
	for _, t := range r.TableIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO reservation_tables (reservation_date, time_slot, table_id, reservation_id) VALUES (?, ?, ?, ?)`,
			key.Date.String(), int(key.Slot), int(t), r.ID.String())
		if err != nil {
			if isDuplicateKey(err) {
				return &TableTakenError{Key: key, Tables: []model.TableID{t}}
			}
			return err
		}
	}
	return nil
}

func releaseTablesTx(ctx context.Context, tx *sql.Tx, id uuid.UUID) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM reservation_tables WHERE reservation_id = ?`, id.String())
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (model.Reservation, error) {
	var (
		r                    model.Reservation
		id, date, tables, st string
		slot                 int
		created, updated     int64
	)
	err := row.Scan(&id, &r.CustomerID, &r.CustomerName, &r.CustomerPhone, &r.CustomerEmail, &r.PartySize,
		&date, &slot, &tables, &st, &r.Version, &created, &updated)
	if err != nil {
		return model.Reservation{}, err
	}
	if r.ID, err = uuid.Parse(id); err != nil {
		return model.Reservation{}, fmt.Errorf("reservations: bad id %q: %w", id, err)
	}
	if r.Date, err = civil.ParseDate(date); err != nil {
		return model.Reservation{}, fmt.Errorf("reservations: bad date %q: %w", date, err)
	}
	if r.TableIDs, err = decodeTables(tables); err != nil {
		return model.Reservation{}, err
	}
	r.Slot = model.TimeSlot(slot)
	r.Status = model.Status(st)
	r.CreatedAt = time.UnixMicro(created).UTC()
	r.UpdatedAt = time.UnixMicro(updated).UTC()
	return r, nil
}

func encodeTables(ids []model.TableID) (string, error) {
	b, err := json.Marshal(ids)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeTables(s string) ([]model.TableID, error) {
	var ids []model.TableID
	if err := json.Unmarshal([]byte(s), &ids); err != nil {
		return nil, fmt.Errorf("bad table list %q: %w", s, err)
	}
	return ids, nil
}

const (
	mysqlDuplicateEntry         = 1062
	sqliteConstraintPrimaryKey  = 1555
	sqliteConstraintUniqueIndex = 2067
)

// isDuplicateKey reports a primary or unique key violation on either backend.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlDuplicateEntry
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code()
		return code == sqliteConstraintPrimaryKey || code == sqliteConstraintUniqueIndex
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
