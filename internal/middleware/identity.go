package middleware

import "github.com/labstack/echo/v4"

// UserID returns the authenticated subject, or "" for anonymous requests.
func UserID(c echo.Context) string {
	s, _ := c.Get(ContextUserID).(string)
	return s
}

func Role(c echo.Context) string {
	s, _ := c.Get(ContextRole).(string)
	return s
}

func Email(c echo.Context) string {
	s, _ := c.Get(ContextEmail).(string)
	return s
}

// principal names the caller for rate-limit and cache keys.
func principal(c echo.Context) string {
	if id := UserID(c); id != "" {
		return id
	}
	return "anon"
}
