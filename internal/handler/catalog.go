package handler

import (
	"net/http"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-table-reservation/internal/service"
)

// CatalogHandler serves the read-only floor plan, the slot grid and the
// live per-slot availability.  None of its routes require a token.
type CatalogHandler struct {
	lc *service.Lifecycle
}

func NewCatalogHandler(lc *service.Lifecycle) *CatalogHandler {
	if lc == nil {
		panic("nil lifecycle passed to NewCatalogHandler")
	}
	return &CatalogHandler{lc: lc}
}

// ListTables handles GET /v1/tables.
func (h *CatalogHandler) ListTables(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"tables": h.lc.Tables().ListTables()})
}

// ListSlots handles GET /v1/slots.  With ?date= each slot is also flagged
// as past or bookable.
func (h *CatalogHandler) ListSlots(c echo.Context) error {
	raw := c.QueryParam("date")
	if raw == "" {
		return c.JSON(http.StatusOK, echo.Map{"slots": h.lc.ListSlots(civil.Date{})})
	}
	date, err := parseDate("date", raw)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"date": date.String(), "slots": h.lc.ListSlots(date)})
}

// Availability handles GET /v1/availability?date=&slot=[&exclude=].
// exclude is the caller's own reservation while editing it; its tables are
// reported as SELF_HELD instead of HELD.
func (h *CatalogHandler) Availability(c echo.Context) error {
	return h.availability(c, false)
}

func (h *CatalogHandler) availability(c echo.Context, withHolders bool) error {
	date, err := parseDate("date", c.QueryParam("date"))
	if err != nil {
		return respondError(c, err)
	}
	cal := h.lc.Calendar()
	slot, err := parseSlot(cal, c.QueryParam("slot"))
	if err != nil {
		return respondError(c, err)
	}
	var exclude *uuid.UUID
	if raw := strings.TrimSpace(c.QueryParam("exclude")); raw != "" {
		id, perr := uuid.Parse(raw)
		if perr != nil {
			return respondError(c, invalid("exclude", "must be a reservation id"))
		}
		exclude = &id
	}
	a, err := h.lc.Resolver().Resolve(c.Request().Context(), date, slot, exclude)
	if err != nil {
		return respondError(c, err)
	}
	past := h.lc.ListSlots(date)[int(slot)].Past
	return c.JSON(http.StatusOK, toAvailability(cal, a, past, withHolders))
}
