package handler

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-table-reservation/internal/logger"
	"github.com/iliyamo/restaurant-table-reservation/internal/middleware"
	"github.com/iliyamo/restaurant-table-reservation/internal/realtime"
)

// StreamHandler upgrades staff connections to a websocket that receives
// every committed reservation transition, optionally only for one date.
type StreamHandler struct {
	hub      *realtime.Hub
	upgrader websocket.Upgrader
	log      *logger.Logger
}

// NewStreamHandler accepts any origin when allowed is empty.
func NewStreamHandler(hub *realtime.Hub, log *logger.Logger, allowed ...string) *StreamHandler {
	if log == nil {
		log = logger.Nop()
	}
	origins := map[string]bool{}
	for _, o := range allowed {
		origins[o] = true
	}
	return &StreamHandler{
		hub: hub,
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return len(origins) == 0 || origins[r.Header.Get("Origin")]
			},
		},
	}
}

// Stream handles GET /v1/staff/stream[?date=YYYY-MM-DD].
func (h *StreamHandler) Stream(c echo.Context) error {
	topic := ""
	if raw := c.QueryParam("date"); raw != "" {
		date, err := parseDate("date", raw)
		if err != nil {
			return respondError(c, err)
		}
		topic = realtime.TopicFor(date.String())
	}
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the handshake error.
		h.log.WarnErr(c.Request().Context(), "websocket upgrade failed", err)
		return nil
	}
	client := realtime.NewClient(h.hub, conn, middleware.UserID(c), 64)
	h.hub.Attach(client, topic)
	go client.WritePump()
	go client.ReadPump()
	return nil
}
