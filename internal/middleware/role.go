package middleware

import (
	"github.com/labstack/echo/v4"

	pkgerrors "github.com/iliyamo/restaurant-table-reservation/internal/errors"
)

// RequireRole lets the request through only when the role stored by
// JWTAuth is one of roles.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !allowed[Role(c)] {
				return abort(c, pkgerrors.New(pkgerrors.CodeForbidden, "forbidden"))
			}
			return next(c)
		}
	}
}
