package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-table-reservation/internal/handler"
	"github.com/iliyamo/restaurant-table-reservation/internal/middleware"
	"github.com/iliyamo/restaurant-table-reservation/internal/service"
)

// RegisterStaff registers the floor endpoints under /v1/staff.  All of
// them require the STAFF role.  stream may be nil.
func RegisterStaff(e *echo.Echo, h *handler.StaffHandler, stream *handler.StreamHandler, d Deps) {
	g := e.Group(
		"/v1/staff",
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(string(service.RoleStaff)),
	)
	g.GET("/reservations", h.List)
	g.POST("/reservations/:id/seat", h.Seat)
	g.POST("/reservations/:id/cancel", h.Cancel)
	g.GET("/reservations/:id/audit-log", h.ReservationAudit)
	g.GET("/availability", h.Availability)
	g.GET("/audit-log", h.AuditLog)
	if stream != nil {
		g.GET("/stream", stream.Stream)
	}
}
