package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireRole returns middleware enforcing that the caller's role is in the
// allowed set. It must run after JWTAuth: only the role verified out of the
// access token is consulted, never anything the client asserts. A missing
// identity yields 403 rather than 401 because by then JWTAuth has already
// admitted the request; 401 means "who are you", 403 means "I know who you
// are and you may not do this".
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ident, ok := CurrentIdentity(c)
			if !ok || !allowed[ident.Role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
