package handler

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"shopmanager/internal/auth"
	"shopmanager/internal/config"
	"shopmanager/internal/middleware"
	"shopmanager/internal/model"
	"shopmanager/internal/repository"
)

const testSecret = "unit-test-secret"

func newTestHandler(t *testing.T) (*AuthHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := config.Config{
		JWTSecret:  testSecret,
		AccessTTL:  time.Hour,
		RefreshTTL: 30 * 24 * time.Hour,
		BcryptCost: 4,
	}
	return NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db)), mock
}

func userRows(t *testing.T, id uint64, username, password, role string, active bool) *sqlmock.Rows {
	t.Helper()
	hash, err := auth.HashPassword(password, 4)
	require.NoError(t, err)
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{"id", "username", "password_hash", "role", "is_active", "created_at", "updated_at"}).
		AddRow(id, username, hash, role, active, now, now)
}

func postJSON(t *testing.T, h echo.HandlerFunc, path, body, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(req, rec)))
	return rec
}

func TestLoginSuccess(t *testing.T) {
	h, mock := newTestHandler(t)

	mock.ExpectQuery("SELECT id,username,password_hash").
		WithArgs("admin").
		WillReturnRows(userRows(t, 1, "admin", "correct", model.RoleAdmin, true))
	mock.ExpectExec("INSERT INTO refresh_tokens").
		WithArgs(uint64(1), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	rec := postJSON(t, h.Login, "/auth/login", `{"username":"admin","password":"correct"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		AccessToken  string         `json:"accessToken"`
		RefreshToken string         `json:"refreshToken"`
		User         model.Identity `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.RefreshToken)
	require.Equal(t, model.RoleAdmin, resp.User.Role)

	// The returned access token must decode to the stored role.
	ident, err := auth.VerifyAccessToken(testSecret, resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, model.RoleAdmin, ident.Role)
	require.Equal(t, uint64(1), ident.UserID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginRejections(t *testing.T) {
	// All rejection paths must produce the identical response so the
	// answer never reveals whether the username or the password was wrong.
	var bodies []string

	t.Run("unknown user", func(t *testing.T) {
		h, mock := newTestHandler(t)
		mock.ExpectQuery("SELECT id,username,password_hash").
			WithArgs("ghost").
			WillReturnError(sql.ErrNoRows)

		rec := postJSON(t, h.Login, "/auth/login", `{"username":"ghost","password":"x"}`, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		bodies = append(bodies, rec.Body.String())
	})

	t.Run("wrong password", func(t *testing.T) {
		h, mock := newTestHandler(t)
		mock.ExpectQuery("SELECT id,username,password_hash").
			WithArgs("admin").
			WillReturnRows(userRows(t, 1, "admin", "correct", model.RoleAdmin, true))

		rec := postJSON(t, h.Login, "/auth/login", `{"username":"admin","password":"wrong"}`, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		bodies = append(bodies, rec.Body.String())
	})

	t.Run("disabled user", func(t *testing.T) {
		h, mock := newTestHandler(t)
		mock.ExpectQuery("SELECT id,username,password_hash").
			WithArgs("admin").
			WillReturnRows(userRows(t, 1, "admin", "correct", model.RoleAdmin, false))

		rec := postJSON(t, h.Login, "/auth/login", `{"username":"admin","password":"correct"}`, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		bodies = append(bodies, rec.Body.String())
	})

	for _, b := range bodies[1:] {
		require.Equal(t, bodies[0], b)
	}
}

func TestRefreshSuccess(t *testing.T) {
	h, mock := newTestHandler(t)
	raw := strings.Repeat("ab", 48)
	hash := auth.HashRefresh(raw)

	mock.ExpectExec("UPDATE refresh_tokens SET revoked_at").
		WithArgs(hash).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT user_id FROM refresh_tokens").
		WithArgs(hash).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(5))
	mock.ExpectQuery("SELECT id,username,password_hash").
		WithArgs(uint64(5)).
		WillReturnRows(userRows(t, 5, "sale1", "pw", model.RoleSale, true))
	mock.ExpectExec("INSERT INTO refresh_tokens").
		WithArgs(uint64(5), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(2, 1))

	rec := postJSON(t, h.Refresh, "/auth/refresh", `{"refreshToken":"`+raw+`"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		RefreshToken string `json:"refreshToken"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEqual(t, raw, resp.RefreshToken) // rotated, never reissued

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshReplayRejected(t *testing.T) {
	h, mock := newTestHandler(t)
	raw := strings.Repeat("cd", 48)

	// The consuming UPDATE matches no live row on a replayed token.
	mock.ExpectExec("UPDATE refresh_tokens SET revoked_at").
		WithArgs(auth.HashRefresh(raw)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	rec := postJSON(t, h.Refresh, "/auth/refresh", `{"refreshToken":"`+raw+`"}`, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLogout(t *testing.T) {
	at, err := auth.NewAccessToken(testSecret, 9, "sale1", model.RoleSale, time.Hour)
	require.NoError(t, err)

	t.Run("specific token", func(t *testing.T) {
		h, mock := newTestHandler(t)
		raw := strings.Repeat("ef", 48)
		mock.ExpectExec("UPDATE refresh_tokens SET revoked_at").
			WithArgs(auth.HashRefresh(raw)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		protected := middleware.JWTAuth(testSecret)(h.Logout)
		rec := postJSON(t, protected, "/auth/logout", `{"refreshToken":"`+raw+`"}`, at.Token)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("idempotent on unknown token", func(t *testing.T) {
		h, mock := newTestHandler(t)
		raw := strings.Repeat("09", 48)
		mock.ExpectExec("UPDATE refresh_tokens SET revoked_at").
			WithArgs(auth.HashRefresh(raw)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		protected := middleware.JWTAuth(testSecret)(h.Logout)
		rec := postJSON(t, protected, "/auth/logout", `{"refreshToken":"`+raw+`"}`, at.Token)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("no body revokes all", func(t *testing.T) {
		h, mock := newTestHandler(t)
		mock.ExpectExec("UPDATE refresh_tokens SET revoked_at").
			WithArgs(uint64(9)).
			WillReturnResult(sqlmock.NewResult(0, 2))

		protected := middleware.JWTAuth(testSecret)(h.Logout)
		rec := postJSON(t, protected, "/auth/logout", ``, at.Token)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("no bearer", func(t *testing.T) {
		h, _ := newTestHandler(t)
		protected := middleware.JWTAuth(testSecret)(h.Logout)
		rec := postJSON(t, protected, "/auth/logout", ``, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestMe(t *testing.T) {
	h, _ := newTestHandler(t)
	at, err := auth.NewAccessToken(testSecret, 3, "admin", model.RoleAdmin, time.Hour)
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+at.Token)
	rec := httptest.NewRecorder()
	protected := middleware.JWTAuth(testSecret)(h.Me)
	require.NoError(t, protected(e.NewContext(req, rec)))

	require.Equal(t, http.StatusOK, rec.Code)
	var ident model.Identity
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ident))
	require.Equal(t, model.Identity{UserID: 3, Username: "admin", Role: model.RoleAdmin}, ident)
}
