package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"shopmanager/internal/auth"
	"shopmanager/internal/model"
)

// identityKey is the echo context key under which JWTAuth stores the
// verified caller identity.
const identityKey = "identity"

// JWTAuth returns middleware that validates the Bearer access token on every
// request and attaches the decoded identity to the context. Verification
// happens on each request; trust is never cached across requests, so an
// expired token is rejected the moment it expires. The middleware does no
// database lookups: within its validity window the signed token is the
// source of truth for identity.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authz := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(authz, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(authz, "Bearer ")

			ident, err := auth.VerifyAccessToken(secret, raw)
			if err != nil {
				// Expired and malformed tokens get the same answer; the
				// client treats 401 as "attempt refresh".
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			c.Set(identityKey, ident)
			return next(c)
		}
	}
}

// CurrentIdentity returns the identity attached by JWTAuth, if any.
func CurrentIdentity(c echo.Context) (model.Identity, bool) {
	ident, ok := c.Get(identityKey).(model.Identity)
	return ident, ok
}
