// Package queue defines the reservation event payload exchanged over the
// message broker and the consumer that records it.
package queue

// Event types, one per lifecycle action.
const (
	EventReservationCreated   = "reservation.created"
	EventReservationUpdated   = "reservation.updated"
	EventReservationCancelled = "reservation.cancelled"
	EventReservationSeated    = "reservation.seated"
)

// ReservationEvent is published after a lifecycle transition commits.  It
// carries enough for downstream consumers (activity log, live floor view,
// notifications) to act without querying the store.
type ReservationEvent struct {
	EventID       string `json:"event_id"`
	Type          string `json:"type"`
	ReservationID string `json:"reservation_id"`
	AuditID       int64  `json:"audit_id"`
	Status        string `json:"status"`
	CustomerID    string `json:"customer_id"`
	Date          string `json:"date"`
	Slot          string `json:"slot"`
	TableIDs      []int  `json:"table_ids"`
	PartySize     int    `json:"party_size"`
	PrevDate      string `json:"prev_date,omitempty"`
	PrevSlot      string `json:"prev_slot,omitempty"`
	PrevTableIDs  []int  `json:"prev_table_ids,omitempty"`
	Actor         string `json:"actor"`
	OccurredAt    string `json:"occurred_at"`
}
