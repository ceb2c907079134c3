package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-table-reservation/internal/middleware"
	"github.com/iliyamo/restaurant-table-reservation/internal/model"
	"github.com/iliyamo/restaurant-table-reservation/internal/service"
)

// ReservationHandler exposes the customer side of the lifecycle.  Routes
// assume JWTAuth already ran; the token subject becomes the customer id
// and the audit actor.
type ReservationHandler struct {
	lc *service.Lifecycle
}

func NewReservationHandler(lc *service.Lifecycle) *ReservationHandler {
	if lc == nil {
		panic("nil lifecycle passed to NewReservationHandler")
	}
	return &ReservationHandler{lc: lc}
}

// createRequest is the POST /v1/reservations body.  slot is a "HH:MM"
// label such as "19:00".
type createRequest struct {
	CustomerName  string          `json:"customer_name"`
	CustomerPhone string          `json:"customer_phone"`
	CustomerEmail string          `json:"customer_email"`
	PartySize     int             `json:"party_size"`
	Date          string          `json:"date"`
	Slot          string          `json:"slot"`
	TableIDs      []model.TableID `json:"table_ids"`
}

type updateRequest struct {
	Date      string          `json:"date"`
	Slot      string          `json:"slot"`
	TableIDs  []model.TableID `json:"table_ids"`
	PartySize *int            `json:"party_size"`
}

// Create handles POST /v1/reservations.  The e-mail defaults to the one in
// the token when the body leaves it empty.
func (h *ReservationHandler) Create(c echo.Context) error {
	var body createRequest
	if err := bindBody(c, &body); err != nil {
		return respondError(c, err)
	}
	date, err := parseDate("date", body.Date)
	if err != nil {
		return respondError(c, err)
	}
	slot, err := parseSlot(h.lc.Calendar(), body.Slot)
	if err != nil {
		return respondError(c, err)
	}
	email := strings.TrimSpace(body.CustomerEmail)
	if email == "" {
		email = middleware.Email(c)
	}
	in := service.CreateInput{
		CustomerName:  strings.TrimSpace(body.CustomerName),
		CustomerPhone: strings.TrimSpace(body.CustomerPhone),
		CustomerEmail: email,
		PartySize:     body.PartySize,
		Date:          date,
		Slot:          slot,
		TableIDs:      body.TableIDs,
	}
	res, err := h.lc.Create(c.Request().Context(), in, actorFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toReservation(h.lc.Calendar(), res))
}

// Get handles GET /v1/reservations/:id.
func (h *ReservationHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}
	res, err := h.lc.GetReservation(c.Request().Context(), id, actorFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toReservation(h.lc.Calendar(), res))
}

// Update handles PUT /v1/reservations/:id.  The body carries the full
// target placement; party_size may be omitted to keep the current one.
func (h *ReservationHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}
	var body updateRequest
	if err := bindBody(c, &body); err != nil {
		return respondError(c, err)
	}
	date, err := parseDate("date", body.Date)
	if err != nil {
		return respondError(c, err)
	}
	slot, err := parseSlot(h.lc.Calendar(), body.Slot)
	if err != nil {
		return respondError(c, err)
	}
	in := service.UpdateInput{Date: date, Slot: slot, TableIDs: body.TableIDs, PartySize: body.PartySize}
	res, err := h.lc.Update(c.Request().Context(), id, in, actorFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toReservation(h.lc.Calendar(), res))
}

// Cancel handles DELETE /v1/reservations/:id.  The reservation is kept
// with status CANCELLED and returned.
func (h *ReservationHandler) Cancel(c echo.Context) error {
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

// Mine handles GET /v1/my-reservations?scope=pending|past.
func (h *ReservationHandler) Mine(c echo.Context) error {
	ctx := c.Request().Context()
	customer := middleware.UserID(c)

	var (
		out []model.Reservation
		err error
	)
	scope := strings.ToLower(strings.TrimSpace(c.QueryParam("scope")))
	switch scope {
	case "", "pending":
		scope = "pending"
		out, err = h.lc.ListPendingForCustomer(ctx, customer)
	case "past":
		out, err = h.lc.ListPastForCustomer(ctx, customer)
	default:
		return respondError(c, invalid("scope", "must be pending or past"))
	}
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"scope":        scope,
		"reservations": toReservations(h.lc.Calendar(), out),
	})
}
