package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"shopmanager/internal/model"
)

func statusServer(t *testing.T, status int, body interface{}) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if body != nil {
			_ = json.NewEncoder(w).Encode(body)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLoginDecodesResult(t *testing.T) {
	exp := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
	srv := statusServer(t, http.StatusOK, LoginResult{
		AccessToken:  "at",
		RefreshToken: "rt",
		AccessExpiry: exp,
		User:         model.Identity{UserID: 1, Username: "admin", Role: model.RoleAdmin},
	})

	res, err := New(srv.URL).Login(context.Background(), "admin", "correct")
	require.NoError(t, err)
	require.Equal(t, "at", res.AccessToken)
	require.Equal(t, "rt", res.RefreshToken)
	require.True(t, exp.Equal(res.AccessExpiry))
	require.Equal(t, model.RoleAdmin, res.User.Role)
}

func TestErrorMapping(t *testing.T) {
	unauthorized := statusServer(t, http.StatusUnauthorized, map[string]string{"error": "nope"})
	forbidden := statusServer(t, http.StatusForbidden, map[string]string{"error": "forbidden"})
	ctx := context.Background()

	t.Run("login 401", func(t *testing.T) {
		_, err := New(unauthorized.URL).Login(ctx, "admin", "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("refresh 401", func(t *testing.T) {
		_, err := New(unauthorized.URL).Refresh(ctx, "spent-token")
		require.ErrorIs(t, err, ErrRefreshRejected)
	})

	t.Run("me 401", func(t *testing.T) {
		_, err := New(unauthorized.URL).Me(ctx, "bad-access")
		require.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("me 403", func(t *testing.T) {
		_, err := New(forbidden.URL).Me(ctx, "sale-access")
		require.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("logout 401", func(t *testing.T) {
		err := New(unauthorized.URL).Logout(ctx, "bad-access", "rt")
		require.ErrorIs(t, err, ErrUnauthorized)
	})
}

func TestUnexpectedStatus(t *testing.T) {
	srv := statusServer(t, http.StatusBadGateway, nil)
	_, err := New(srv.URL).Login(context.Background(), "a", "b")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrInvalidCredentials)
}
