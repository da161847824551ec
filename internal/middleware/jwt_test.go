package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"shopmanager/internal/auth"
	"shopmanager/internal/model"
)

const testSecret = "unit-test-secret"

// echoHandler records the identity JWTAuth attached so tests can assert on it.
func identityEcho(got *model.Identity) echo.HandlerFunc {
	return func(c echo.Context) error {
		ident, ok := CurrentIdentity(c)
		if !ok {
			return c.NoContent(http.StatusInternalServerError)
		}
		*got = ident
		return c.NoContent(http.StatusOK)
	}
}

func doRequest(t *testing.T, h echo.HandlerFunc, mw echo.MiddlewareFunc, authz string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, mw(h)(c))
	return rec
}

func TestJWTAuth(t *testing.T) {
	mw := JWTAuth(testSecret)

	t.Run("valid token attaches identity", func(t *testing.T) {
		at, err := auth.NewAccessToken(testSecret, 42, "admin", model.RoleAdmin, time.Hour)
		require.NoError(t, err)

		var got model.Identity
		rec := doRequest(t, identityEcho(&got), mw, "Bearer "+at.Token)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, model.Identity{UserID: 42, Username: "admin", Role: model.RoleAdmin}, got)
	})

	t.Run("missing token", func(t *testing.T) {
		var got model.Identity
		rec := doRequest(t, identityEcho(&got), mw, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed token", func(t *testing.T) {
		var got model.Identity
		rec := doRequest(t, identityEcho(&got), mw, "Bearer garbage")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		at, err := auth.NewAccessToken(testSecret, 42, "admin", model.RoleAdmin, -time.Minute)
		require.NoError(t, err)

		var got model.Identity
		rec := doRequest(t, identityEcho(&got), mw, "Bearer "+at.Token)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong scheme", func(t *testing.T) {
		var got model.Identity
		rec := doRequest(t, identityEcho(&got), mw, "Basic dXNlcjpwYXNz")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
