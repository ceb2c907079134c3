package middleware // middleware holds the echo middleware shared by all routes

import (
	"strings"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	pkgerrors "github.com/iliyamo/restaurant-table-reservation/internal/errors"
	"github.com/iliyamo/restaurant-table-reservation/internal/utils"
)

// Context keys populated by JWTAuth.
const (
	ContextUserID = "user_id"
	ContextRole   = "role"
	ContextEmail  = "email"
)

// JWTAuth validates a Bearer access token and stores its subject, role and
// email in the echo context.  Browsers cannot set headers on a websocket
// handshake, so upgrade requests may pass the token as ?access_token=.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := strings.CutPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
			if !ok && websocket.IsWebSocketUpgrade(c.Request()) {
				raw, ok = c.QueryParam("access_token"), true
			}
			raw = strings.TrimSpace(raw)
			if !ok || raw == "" {
				return abort(c, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing bearer token"))
			}

			claims, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return abort(c, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
			}

			c.Set(ContextUserID, claims.Subject)
			c.Set(ContextRole, claims.Role)
			c.Set(ContextEmail, claims.Email)
			return next(c)
		}
	}
}

// abort writes err as the JSON error body and stops the chain.
func abort(c echo.Context, err error) error {
	status, body := pkgerrors.ToResponse(err)
	return c.JSON(status, body)
}
