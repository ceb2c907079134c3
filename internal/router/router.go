// Package router wires handlers and middleware onto an echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/restaurant-table-reservation/internal/config"
	"github.com/iliyamo/restaurant-table-reservation/internal/handler"
	"github.com/iliyamo/restaurant-table-reservation/internal/logger"
	"github.com/iliyamo/restaurant-table-reservation/internal/realtime"
	"github.com/iliyamo/restaurant-table-reservation/internal/service"
)

// Deps carries everything the routes need.  Redis may be nil, which turns
// off caching and rate limiting; Hub may be nil, which drops the staff
// stream.
type Deps struct {
	Lifecycle     *service.Lifecycle
	Hub           *realtime.Hub
	JWTSecret     string
	Redis         *redis.Client
	Cache         config.CacheConfig
	RateLimit     config.RateLimitConfig
	Gatherer      prometheus.Gatherer
	Ready         map[string]handler.Check
	StreamOrigins []string
	Logger        *logger.Logger
}

// RegisterRoutes registers every route of the API.
func RegisterRoutes(e *echo.Echo, d Deps) {
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(d.Ready))
	if d.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	RegisterPublic(e, handler.NewCatalogHandler(d.Lifecycle), d)
	RegisterCustomer(e, handler.NewReservationHandler(d.Lifecycle), d)

	var stream *handler.StreamHandler
	if d.Hub != nil {
		stream = handler.NewStreamHandler(d.Hub, d.Logger, d.StreamOrigins...)
	}
	RegisterStaff(e, handler.NewStaffHandler(d.Lifecycle), stream, d)
}
