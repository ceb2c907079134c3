package handler

import (
	"time"

	"github.com/iliyamo/restaurant-table-reservation/internal/model"
	"github.com/iliyamo/restaurant-table-reservation/internal/service"
)

type reservationResponse struct {
	ID            string          `json:"id"`
	CustomerID    string          `json:"customer_id"`
	CustomerName  string          `json:"customer_name"`
	CustomerPhone string          `json:"customer_phone"`
	CustomerEmail string          `json:"customer_email"`
	PartySize     int             `json:"party_size"`
	Date          string          `json:"reservation_date"`
	Slot          model.TimeSlot  `json:"slot"`
	SlotLabel     string          `json:"time_slot"`
	TableIDs      []model.TableID `json:"table_ids"`
	Status        model.Status    `json:"status"`
	Version       int64           `json:"version"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func toReservation(cal *service.Calendar, r model.Reservation) reservationResponse {
	return reservationResponse{
		ID:            r.ID.String(),
		CustomerID:    r.CustomerID,
		CustomerName:  r.CustomerName,
		CustomerPhone: r.CustomerPhone,
		CustomerEmail: r.CustomerEmail,
		PartySize:     r.PartySize,
		Date:          r.Date.String(),
		Slot:          r.Slot,
		SlotLabel:     cal.Label(r.Slot),
		TableIDs:      r.TableIDs,
		Status:        r.Status,
		Version:       r.Version,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

func toReservations(cal *service.Calendar, rs []model.Reservation) []reservationResponse {
	out := make([]reservationResponse, len(rs))
	for i, r := range rs {
		out[i] = toReservation(cal, r)
	}
	return out
}

// auditResponse renders an entry for the staff audit view.  For updates
// the date, slot and tables read "old → new".
type auditResponse struct {
	ID            int64     `json:"id"`
	ReservationID string    `json:"reservation_id"`
	Action        string    `json:"action"`
	Date          string    `json:"reservation_date"`
	TimeSlot      string    `json:"time_slot"`
	TableIDs      string    `json:"table_ids"`
	DoneBy        string    `json:"done_by"`
	Timestamp     time.Time `json:"timestamp"`
}

func toAudit(cal *service.Calendar, e model.AuditEntry) auditResponse {
	out := auditResponse{
		ID:            e.ID,
		ReservationID: e.ReservationID.String(),
		Action:        string(e.Action),
		Date:          e.Date.String(),
		TimeSlot:      cal.Label(e.Slot),
		TableIDs:      model.FormatTableIDs(e.TableIDs),
		DoneBy:        e.DoneBy,
		Timestamp:     e.Timestamp.UTC(),
	}
	if e.PrevDate != nil && *e.PrevDate != e.Date {
		out.Date = transition(e.PrevDate.String(), out.Date)
	}
	if e.PrevSlot != nil {
		out.TimeSlot = transition(cal.Label(*e.PrevSlot), out.TimeSlot)
	}
	if e.PrevTableIDs != nil {
		out.TableIDs = transition(model.FormatTableIDs(e.PrevTableIDs), out.TableIDs)
	}
	return out
}

func transition(before, after string) string {
	return before + " → " + after
}

func toAuditList(cal *service.Calendar, entries []model.AuditEntry) []auditResponse {
	out := make([]auditResponse, len(entries))
	for i, e := range entries {
		out[i] = toAudit(cal, e)
	}
	return out
}

type tableState struct {
	TableID   model.TableID      `json:"table_id"`
	SeatCount int                `json:"seat_count"`
	Status    service.TableState `json:"status"`
	HeldBy    string             `json:"held_by,omitempty"`
}

type availabilityResponse struct {
	Date      string         `json:"date"`
	Slot      model.TimeSlot `json:"slot"`
	SlotLabel string         `json:"time_slot"`
	Past      bool           `json:"past"`
	Tables    []tableState   `json:"tables"`
}

// toAvailability renders a. Holder ids are only exposed when withHolders
// is set (the staff view).
func toAvailability(cal *service.Calendar, a service.Availability, past, withHolders bool) availabilityResponse {
	out := availabilityResponse{
		Date:      a.Key.Date.String(),
		Slot:      a.Key.Slot,
		SlotLabel: cal.Label(a.Key.Slot),
		Past:      past,
		Tables:    make([]tableState, len(a.Tables)),
	}
	for i, t := range a.Tables {
		ts := tableState{TableID: t.Table.ID, SeatCount: t.Table.SeatCount, Status: t.State}
		if withHolders && t.HeldBy != nil {
			ts.HeldBy = t.HeldBy.String()
		}
		out.Tables[i] = ts
	}
	return out
}
