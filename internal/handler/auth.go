package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"shopmanager/internal/auth"
	"shopmanager/internal/config"
	"shopmanager/internal/middleware"
	"shopmanager/internal/model"
	"shopmanager/internal/queue"
	"shopmanager/internal/repository"
	"shopmanager/internal/service/queue_publisher"
)

// AuthHandler bundles dependencies for the token-issuer endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Tokens *repository.TokenRepo
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t}
}

// ----- DTOs -----

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}
type authResp struct {
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
	AccessExpiry time.Time      `json:"accessExpiry"`
	User         model.Identity `json:"user"`
}

// issuePair mints an access/refresh pair for the user and stores the hash
// of the refresh token for later revocation.
func (h *AuthHandler) issuePair(ctx context.Context, u model.User) (authResp, error) {
	access, err := auth.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Username, u.Role, h.Cfg.AccessTTL)
	if err != nil {
		return authResp{}, err
	}
	refresh, err := auth.NewRefreshToken(h.Cfg.RefreshTTL)
	if err != nil {
		return authResp{}, err
	}
	if err := h.Tokens.Store(ctx, u.ID, auth.HashRefresh(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, err
	}
	return authResp{
		AccessToken:  access.Token,
		RefreshToken: refresh.Raw, // raw goes back to the client, only the hash is stored
		AccessExpiry: access.Exp,
		User:         model.Identity{UserID: u.ID, Username: u.Username, Role: u.Role},
	}, nil
}

// Login verifies credentials and returns a fresh token pair. Unknown user,
// disabled user and wrong password all answer the same 401 so the response
// never reveals which part was wrong.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !u.IsActive || !auth.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	resp, err := h.issuePair(ctx, u)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}

	h.publishAudit(queue.AuthLoggedIn, u, c.RealIP())
	return c.JSON(http.StatusOK, resp)
}

// Refresh exchanges a refresh token for a new pair. Tokens are single-use:
// the repository consumes the old token atomically with validating it, so a
// replayed token is rejected even if two refreshes race.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refreshToken required"})
	}
	hash := auth.HashRefresh(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	userID, err := h.Tokens.Consume(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrRefreshInvalid) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "refresh failed"})
	}

	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	if !u.IsActive {
		// Account disabled since the token was issued.
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
	}

	resp, err := h.issuePair(ctx, u)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}
	return c.JSON(http.StatusOK, resp)
}

// Logout revokes the caller's refresh token (or all of them when the body
// names none). Requires a valid bearer token; runs behind JWTAuth.
// Idempotent: revoking an unknown or already-revoked token still answers 200.
func (h *AuthHandler) Logout(c echo.Context) error {
	ident, ok := middleware.CurrentIdentity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req refreshReq
	_ = c.Bind(&req) // body is optional
	refreshToken := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	var err error
	if refreshToken != "" {
		err = h.Tokens.Revoke(ctx, auth.HashRefresh(refreshToken))
	} else {
		err = h.Tokens.RevokeAllForUser(ctx, ident.UserID)
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}

	h.publishAudit(queue.AuthLoggedOut, model.User{ID: ident.UserID, Username: ident.Username, Role: ident.Role}, c.RealIP())
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

// Me returns the identity carried by the verified access token. No database
// read: the token is the source of truth within its validity window.
func (h *AuthHandler) Me(c echo.Context) error {
	ident, ok := middleware.CurrentIdentity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return c.JSON(http.StatusOK, ident)
}

// publishAudit fires an audit event in the background. Failures are logged
// by the publisher and otherwise ignored; auditing never blocks auth.
func (h *AuthHandler) publishAudit(event string, u model.User, ip string) {
	ev := queue.AuthEvent{
		Event:    event,
		UserID:   u.ID,
		Username: u.Username,
		Role:     u.Role,
		RemoteIP: ip,
		At:       time.Now().UTC().Format(time.RFC3339),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = queue_publisher.PublishAuthEvent(ctx, ev)
	}()
}
