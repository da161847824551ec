// Package auth provides token creation and verification shared by the API
// server and the client-side session manager. Access tokens are HS256 JWTs
// carrying the caller's identity; refresh tokens are opaque random strings
// of which only a SHA-256 hash is ever persisted server-side.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"shopmanager/internal/model"
)

// ErrInvalidToken is returned when an access token fails signature or
// expiry verification, or does not carry a usable identity.
var ErrInvalidToken = errors.New("invalid access token")

// Claims is the access-token payload. Username and role ride alongside the
// registered claims so protected endpoints never need a database lookup to
// know who is calling.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// AccessToken is a signed JWT plus its expiry.
type AccessToken struct {
	Token string
	Exp   time.Time
}

// RefreshToken is the raw token handed to the client plus its expiry. Only
// HashRefresh(Raw) is stored in the database.
type RefreshToken struct {
	Raw string
	Exp time.Time
}

// NewAccessToken mints an HS256 JWT embedding the user's identity.
func NewAccessToken(secret string, userID uint64, username, role string, ttl time.Duration) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := Claims{
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(userID, 10),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// VerifyAccessToken checks signature and expiry and returns the embedded
// identity. Tokens signed with anything other than HMAC are rejected so a
// crafted "alg":"none" token can never pass.
func VerifyAccessToken(secret, raw string) (model.Identity, error) {
	var claims Claims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return model.Identity{}, ErrInvalidToken
	}
	return identityFromClaims(&claims)
}

// DecodeIdentity parses a token WITHOUT verifying its signature and returns
// the embedded identity and expiry. Client-side use only: the client trusts
// its own stored token enough to show a username, while every request is
// still verified server-side.
func DecodeIdentity(raw string) (model.Identity, time.Time, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return model.Identity{}, time.Time{}, ErrInvalidToken
	}
	ident, err := identityFromClaims(&claims)
	if err != nil {
		return model.Identity{}, time.Time{}, err
	}
	var exp time.Time
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	return ident, exp, nil
}

func identityFromClaims(claims *Claims) (model.Identity, error) {
	uid, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || uid == 0 {
		return model.Identity{}, ErrInvalidToken
	}
	if !model.ValidRole(claims.Role) {
		return model.Identity{}, ErrInvalidToken
	}
	return model.Identity{UserID: uid, Username: claims.Username, Role: claims.Role}, nil
}

// NewRefreshToken returns a cryptographically random token valid for ttl.
func NewRefreshToken(ttl time.Duration) (RefreshToken, error) {
	buf := make([]byte, 48)
	if _, err := rand.Read(buf); err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{
		Raw: hex.EncodeToString(buf),
		Exp: time.Now().UTC().Add(ttl),
	}, nil
}

// HashRefresh returns the SHA-256 hex digest of a raw refresh token. The
// database stores only this hash, so a leaked table cannot mint sessions.
func HashRefresh(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
