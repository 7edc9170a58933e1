package auth

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireCapability rejects requests whose session role lacks c.
func RequireCapability(c Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ec echo.Context) error {
			s, ok := SessionFromContext(ec.Request().Context())
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			if !s.Can(c) {
				return echo.NewHTTPError(http.StatusForbidden,
					fmt.Sprintf("role %s lacks capability %s", s.Role, c))
			}
			return next(ec)
		}
	}
}

// RequireAnyCapability passes when the role holds at least one of caps.
func RequireAnyCapability(caps ...Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ec echo.Context) error {
			s, ok := SessionFromContext(ec.Request().Context())
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			for _, c := range caps {
				if s.Can(c) {
					return next(ec)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("role %s lacks the required capability", s.Role))
		}
	}
}
