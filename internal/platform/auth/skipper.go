package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// publicPaths bypass authentication for every method.
var publicPaths = map[string]bool{
	"/health":    true,
	"/health/db": true,
	"/metrics":   true,
}

// publicReads bypass authentication for GET only. Hospital branding is shown
// on the login screen.
var publicReads = map[string]bool{
	"/api/settings": true,
}

// AuthSkipper returns true for requests that need no bearer token.
func AuthSkipper(c echo.Context) bool {
	return IsPublic(c.Request().Method, c.Path())
}

// IsPublic reports whether method+route is reachable without a session.
func IsPublic(method, path string) bool {
	if publicPaths[path] {
		return true
	}
	return method == http.MethodGet && publicReads[path]
}
