// Package api is the typed HTTP client for the shop-management auth
// endpoints. It translates HTTP status codes into the sentinel errors the
// session manager keys its state transitions on.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"shopmanager/internal/model"
)

// Sentinel errors mapped from server responses.
var (
	// ErrInvalidCredentials: login rejected; the server never says whether
	// the username or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized: a protected call was rejected (missing/invalid/
	// expired access token). The session manager treats it as "attempt
	// refresh".
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden: identity accepted, role insufficient. The session
	// stays live.
	ErrForbidden = errors.New("forbidden")
	// ErrRefreshRejected: the refresh token is invalid, expired, revoked
	// or replayed. Always forces logout.
	ErrRefreshRejected = errors.New("refresh rejected")
)

// LoginResult mirrors the server's token-pair response.
type LoginResult struct {
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
	AccessExpiry time.Time      `json:"accessExpiry"`
	User         model.Identity `json:"user"`
}

// Client calls the auth API of a single server.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) { cl.http.Timeout = d }
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	cl := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(cl)
	}
	return cl
}

// Login exchanges credentials for a token pair.
func (c *Client) Login(ctx context.Context, username, password string) (LoginResult, error) {
	var out LoginResult
	status, err := c.do(ctx, http.MethodPost, "/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	}, &out)
	if err != nil {
		return LoginResult{}, err
	}
	switch status {
	case http.StatusOK:
		return out, nil
	case http.StatusUnauthorized:
		return LoginResult{}, ErrInvalidCredentials
	default:
		return LoginResult{}, fmt.Errorf("login: unexpected status %d", status)
	}
}

// Refresh exchanges a refresh token for a new pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (LoginResult, error) {
	var out LoginResult
	status, err := c.do(ctx, http.MethodPost, "/auth/refresh", "", map[string]string{
		"refreshToken": refreshToken,
	}, &out)
	if err != nil {
		return LoginResult{}, err
	}
	switch status {
	case http.StatusOK:
		return out, nil
	case http.StatusUnauthorized:
		return LoginResult{}, ErrRefreshRejected
	default:
		return LoginResult{}, fmt.Errorf("refresh: unexpected status %d", status)
	}
}

// Logout revokes the refresh token server-side. The endpoint is idempotent.
func (c *Client) Logout(ctx context.Context, accessToken, refreshToken string) error {
	status, err := c.do(ctx, http.MethodPost, "/auth/logout", accessToken, map[string]string{
		"refreshToken": refreshToken,
	}, nil)
	if err != nil {
		return err
	}
	switch status {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized:
		return ErrUnauthorized
	default:
		return fmt.Errorf("logout: unexpected status %d", status)
	}
}

// Me returns the identity the server decodes from the access token.
func (c *Client) Me(ctx context.Context, accessToken string) (model.Identity, error) {
	var out model.Identity
	status, err := c.do(ctx, http.MethodGet, "/auth/me", accessToken, nil, &out)
	if err != nil {
		return model.Identity{}, err
	}
	switch status {
	case http.StatusOK:
		return out, nil
	case http.StatusUnauthorized:
		return model.Identity{}, ErrUnauthorized
	case http.StatusForbidden:
		return model.Identity{}, ErrForbidden
	default:
		return model.Identity{}, fmt.Errorf("me: unexpected status %d", status)
	}
}

// do issues one request and decodes a 200 body into out (when non-nil).
// Non-200 statuses are returned to the caller for mapping; the body is
// drained so connections can be reused.
func (c *Client) do(ctx context.Context, method, path, bearer string, body, out interface{}) (int, error) {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusOK && out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return 0, fmt.Errorf("decode response: %w", err)
		}
		return resp.StatusCode, nil
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}
