package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-table-reservation/internal/handler"
	"github.com/iliyamo/restaurant-table-reservation/internal/middleware"
	"github.com/iliyamo/restaurant-table-reservation/internal/service"
)

// RegisterCustomer registers the booking endpoints.  Staff tokens are
// accepted too so the floor can book and edit on a guest's behalf.
func RegisterCustomer(e *echo.Echo, h *handler.ReservationHandler, d Deps) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(string(service.RoleCustomer), string(service.RoleStaff)),
	)
	write := middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Logger)

	g.POST("/reservations", h.Create, write)
	g.GET("/reservations/:id", h.Get)
	g.PUT("/reservations/:id", h.Update, write)
	g.DELETE("/reservations/:id", h.Cancel, write)
	g.GET("/my-reservations", h.Mine)
}
