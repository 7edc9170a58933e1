package auth

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

type contextKey string

// Claims issued by the hospital identity provider.
type Claims struct {
	jwt.RegisteredClaims
	Role             string `json:"role"`
	AssignedPharmacy string `json:"assigned_pharmacy,omitempty"`
}

type JWTConfig struct {
	Issuer   string
	Audience string
	JWKSURL  string
	// SigningKey enables HS256 for development and tests.
	SigningKey []byte
	Skipper    echomw.Skipper
}

// JWTMiddleware validates the bearer token and stores the resulting Session
// in the request context.
func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	var keyfunc jwt.Keyfunc
	if len(cfg.SigningKey) > 0 {
		keyfunc = func(*jwt.Token) (interface{}, error) { return cfg.SigningKey, nil }
	} else {
		keyfunc = NewJWKSCache(cfg.JWKSURL, defaultJWKSTTL).keyfunc
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"RS256", "HS256"})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			tokenStr, err := bearerToken(c.Request())
			if err != nil {
				return err
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(tokenStr, claims, keyfunc, opts...)
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			session, err := sessionFromClaims(tokenStr, claims)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
			}

			c.SetRequest(c.Request().WithContext(WithSession(c.Request().Context(), session)))
			return next(c)
		}
	}
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
	}
	return strings.TrimSpace(token), nil
}

func sessionFromClaims(token string, claims *Claims) (Session, error) {
	role, err := ParseRole(claims.Role)
	if err != nil {
		return Session{}, err
	}
	s := Session{Token: token, UserID: claims.Subject, Role: role}
	if claims.AssignedPharmacy != "" {
		id, err := uuid.Parse(claims.AssignedPharmacy)
		if err != nil {
			return Session{}, err
		}
		s.AssignedPharmacy = &id
	}
	return s, nil
}

// Development header overrides accepted by DevAuthMiddleware.
const (
	DevRoleHeader     = "X-Dev-Role"
	DevPharmacyHeader = "X-Dev-Pharmacy"
)

// DevAuthMiddleware grants every request an admin session. X-Dev-Role and
// X-Dev-Pharmacy switch the role and assigned pharmacy for local testing.
func DevAuthMiddleware(skipper echomw.Skipper) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skipper != nil && skipper(c) {
				return next(c)
			}

			req := c.Request()
			s := Session{UserID: "dev-user", Role: RoleAdmin}
			if v := req.Header.Get(DevRoleHeader); v != "" {
				role, err := ParseRole(v)
				if err != nil {
					return echo.NewHTTPError(http.StatusBadRequest, err.Error())
				}
				s.Role = role
			}
			if v := req.Header.Get(DevPharmacyHeader); v != "" {
				id, err := uuid.Parse(v)
				if err != nil {
					return echo.NewHTTPError(http.StatusBadRequest, "invalid pharmacy id")
				}
				s.AssignedPharmacy = &id
			}
			if tok, err := bearerToken(req); err == nil {
				s.Token = tok
			}

			c.SetRequest(req.WithContext(WithSession(req.Context(), s)))
			return next(c)
		}
	}
}
