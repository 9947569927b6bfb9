package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Eursukkul/guesthouse-booking/internal/auth"
)

const SessionKey = "admin_session"

// RequireAdmin rejects requests without a valid admin session. The token is
// read from "Authorization: Bearer <token>", or from the "token" query
// parameter for websocket upgrades where browsers cannot set headers.
func RequireAdmin(p auth.Provider) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := BearerToken(c)
			if token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing session token")
			}
			s, err := p.Validate(c.Request().Context(), token)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired session")
			}
			c.Set(SessionKey, s)
			return next(c)
		}
	}
}

func BearerToken(c echo.Context) string {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	if scheme, token, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return c.QueryParam("token")
}
