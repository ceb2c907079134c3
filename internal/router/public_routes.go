package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-table-reservation/internal/handler"
	"github.com/iliyamo/restaurant-table-reservation/internal/middleware"
)

// RegisterPublic registers the unauthenticated browse endpoints.  Only
// the floor plan sits behind the response cache: the slot grid carries
// per-date past flags and availability must always be read live.
func RegisterPublic(e *echo.Echo, h *handler.CatalogHandler, d Deps) {
	limit := middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Logger)
	cache := middleware.NewRedisCache(d.Cache, d.Redis, d.Logger)

	e.GET("/v1/tables", h.ListTables, limit, cache)
	e.GET("/v1/slots", h.ListSlots, limit)
	e.GET("/v1/availability", h.Availability, limit)
}
