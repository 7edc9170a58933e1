package middleware

import (
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
)

type SecurityHeadersConfig struct {
	// HSTS is sent only when the server terminates TLS itself.
	HSTS bool
	// Public marks responses clients may cache for PublicMaxAge. Everything
	// else is no-store.
	Public       func(c echo.Context) bool
	PublicMaxAge time.Duration
}

// SecurityHeaders sets response headers suited to a JSON API that returns
// patient data.
func SecurityHeaders(cfg SecurityHeadersConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			h.Set("Referrer-Policy", "no-referrer")
			if cfg.HSTS {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}
			if cfg.Public != nil && cfg.PublicMaxAge > 0 && cfg.Public(c) {
				h.Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(cfg.PublicMaxAge.Seconds())))
			} else {
				h.Set("Cache-Control", "no-store")
			}
			return next(c)
		}
	}
}
