package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// SQLAuditLog stores audit entries in the audit_log table.  Ids come from
// the table's auto-increment sequence.
type SQLAuditLog struct {
	db *sql.DB
}

func NewSQLAuditLog(db *sql.DB) *SQLAuditLog { return &SQLAuditLog{db: db} }

// Append writes entry in its own statement.
func (l *SQLAuditLog) Append(ctx context.Context, entry *model.AuditEntry) error {
	return l.insert(ctx, l.db, entry)
}

// AppendTx writes entry inside tx so it commits with the state change it
// describes.
func (l *SQLAuditLog) AppendTx(ctx context.Context, tx *sql.Tx, entry *model.AuditEntry) error {
	return l.insert(ctx, tx, entry)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (l *SQLAuditLog) insert(ctx context.Context, ex execer, e *model.AuditEntry) error {
	tables, err := encodeTables(e.TableIDs)
	if err != nil {
		return err
	}
	var prevDate, prevTables sql.NullString
	var prevSlot sql.NullInt64
	if e.PrevDate != nil {
		prevDate = sql.NullString{String: e.PrevDate.String(), Valid: true}
	}
	if e.PrevSlot != nil {
		prevSlot = sql.NullInt64{Int64: int64(*e.PrevSlot), Valid: true}
	}
	if e.PrevTableIDs != nil {
		s, err := encodeTables(e.PrevTableIDs)
		if err != nil {
			return err
		}
		prevTables = sql.NullString{String: s, Valid: true}
	}
	const q = `INSERT INTO audit_log
        (reservation_id, action, reservation_date, time_slot, table_ids, prev_date, prev_slot, prev_table_ids, done_by, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := ex.ExecContext(ctx, q,
		e.ReservationID.String(), string(e.Action), e.Date.String(), int(e.Slot), tables,
		prevDate, prevSlot, prevTables, e.DoneBy, e.Timestamp.UnixMicro())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = id
	return nil
}

const auditColumns = `id, reservation_id, action, reservation_date, time_slot, table_ids,
       prev_date, prev_slot, prev_table_ids, done_by, created_at`

func (l *SQLAuditLog) ListAll(ctx context.Context, limit int) ([]model.AuditEntry, error) {
	q := `SELECT ` + auditColumns + ` FROM audit_log ORDER BY created_at DESC, id DESC`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	return l.list(ctx, q, args...)
}

func (l *SQLAuditLog) ListByReservation(ctx context.Context, id uuid.UUID) ([]model.AuditEntry, error) {
	q := `SELECT ` + auditColumns + ` FROM audit_log WHERE reservation_id = ? ORDER BY id`
	return l.list(ctx, q, id.String())
}

func (l *SQLAuditLog) list(ctx context.Context, q string, args ...any) ([]model.AuditEntry, error) {
	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.AuditEntry
	for rows.Next() {
		var (
			e                  model.AuditEntry
			rid, action, date  string
			tables             string
			slot               int
			prevDate, prevTabs sql.NullString
			prevSlot           sql.NullInt64
			created            int64
		)
		if err := rows.Scan(&e.ID, &rid, &action, &date, &slot, &tables, &prevDate, &prevSlot, &prevTabs, &e.DoneBy, &created); err != nil {
			return nil, err
		}
		if e.ReservationID, err = uuid.Parse(rid); err != nil {
			return nil, fmt.Errorf("audit_log %d: bad reservation id: %w", e.ID, err)
		}
		if e.Date, err = civil.ParseDate(date); err != nil {
			return nil, fmt.Errorf("audit_log %d: bad date: %w", e.ID, err)
		}
		if e.TableIDs, err = decodeTables(tables); err != nil {
			return nil, err
		}
		e.Action = model.AuditAction(action)
		e.Slot = model.TimeSlot(slot)
		e.Timestamp = time.UnixMicro(created).UTC()
		if prevDate.Valid {
			d, err := civil.ParseDate(prevDate.String)
			if err != nil {
				return nil, fmt.Errorf("audit_log %d: bad prev_date: %w", e.ID, err)
			}
			e.PrevDate = &d
		}
		if prevSlot.Valid {
			s := model.TimeSlot(prevSlot.Int64)
			e.PrevSlot = &s
		}
		if prevTabs.Valid {
			if e.PrevTableIDs, err = decodeTables(prevTabs.String); err != nil {
				return nil, err
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
