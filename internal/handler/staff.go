package handler

import (
	"net/http"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-table-reservation/internal/model"
	"github.com/iliyamo/restaurant-table-reservation/internal/service"
)

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 1000
)

// StaffHandler serves the floor staff: the day view, seating and
// cancelling on behalf of guests, and the audit trail.
type StaffHandler struct {
	lc      *service.Lifecycle
	catalog *CatalogHandler
}

func NewStaffHandler(lc *service.Lifecycle) *StaffHandler {
	return &StaffHandler{lc: lc, catalog: NewCatalogHandler(lc)}
}

// List handles GET /v1/staff/reservations.  Either ?date= for a single day
// or ?from=&to= for a range; ?status= filters.
func (h *StaffHandler) List(c echo.Context) error {
	var from, to civil.Date
	var err error
	if raw := c.QueryParam("date"); raw != "" {
		if from, err = parseDate("date", raw); err != nil {
			return respondError(c, err)
		}
		to = from
	} else {
		if from, err = parseDate("from", c.QueryParam("from")); err != nil {
			return respondError(c, err)
		}
		if to, err = parseDate("to", c.QueryParam("to")); err != nil {
			return respondError(c, err)
		}
	}
	status := model.Status(strings.ToUpper(strings.TrimSpace(c.QueryParam("status"))))
	out, err := h.lc.ListReservations(c.Request().Context(), from, to, status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"from":         from.String(),
		"to":           to.String(),
		"reservations": toReservations(h.lc.Calendar(), out),
	})
}

// Seat handles POST /v1/staff/reservations/:id/seat.
func (h *StaffHandler) Seat(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}
	res, err := h.lc.Seat(c.Request().Context(), id, actorFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toReservation(h.lc.Calendar(), res))
}

// Cancel handles POST /v1/staff/reservations/:id/cancel.
func (h *StaffHandler) Cancel(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}
	res, err := h.lc.Cancel(c.Request().Context(), id, actorFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toReservation(h.lc.Calendar(), res))
}

// Availability is the staff variant of the public grid; it names the
// reservation holding each taken table.
func (h *StaffHandler) Availability(c echo.Context) error {
	return h.catalog.availability(c, true)
}

// AuditLog handles GET /v1/staff/audit-log?limit=, newest first.
func (h *StaffHandler) AuditLog(c echo.Context) error {
	limit := defaultAuditLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxAuditLimit {
			return respondError(c, invalid("limit", "must be between 1 and 1000"))
		}
		limit = n
	}
	entries, err := h.lc.ListAuditLog(c.Request().Context(), limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"entries": toAuditList(h.lc.Calendar(), entries)})
}

// ReservationAudit handles GET /v1/staff/reservations/:id/audit-log,
// oldest first.
func (h *StaffHandler) ReservationAudit(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}
	entries, err := h.lc.ListReservationAudit(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"reservation_id": id.String(),
		"entries":        toAuditList(h.lc.Calendar(), entries),
	})
}
