package handler

import (
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	pkgerrors "github.com/iliyamo/restaurant-table-reservation/internal/errors"
	"github.com/iliyamo/restaurant-table-reservation/internal/middleware"
	"github.com/iliyamo/restaurant-table-reservation/internal/model"
	"github.com/iliyamo/restaurant-table-reservation/internal/service"
)

// respondError writes err in the shared error shape.
func respondError(c echo.Context, err error) error {
	status, body := pkgerrors.ToResponse(err)
	return c.JSON(status, body)
}

func invalid(field, msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
		WithDetails(map[string]string{field: msg})
}

// actorFrom builds the lifecycle actor from the claims JWTAuth stored.
func actorFrom(c echo.Context) service.Actor {
	return service.Actor{ID: middleware.UserID(c), Role: service.Role(middleware.Role(c))}
}

func pathID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, invalid("id", "must be a reservation id")
	}
	return id, nil
}

func parseDate(field, raw string) (civil.Date, error) {
	d, err := civil.ParseDate(strings.TrimSpace(raw))
	if err != nil {
		return civil.Date{}, invalid(field, "must be a date like 2025-06-01")
	}
	return d, nil
}

// parseSlot accepts a "HH:MM" label or a slot index.
func parseSlot(cal *service.Calendar, raw string) (model.TimeSlot, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, invalid("slot", "is required")
	}
	if n, err := strconv.Atoi(raw); err == nil {
		if !cal.Valid(model.TimeSlot(n)) {
			return 0, invalid("slot", "is not a bookable slot")
		}
		return model.TimeSlot(n), nil
	}
	s, err := cal.Parse(raw)
	if err != nil {
		return 0, invalid("slot", "is not a bookable slot")
	}
	return s, nil
}

func bindBody(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body")
	}
	return nil
}
