// Package vault stores the device's credential pair at rest. One credential
// set exists per device; saving always replaces the previous one whole. All
// backends follow the same degradation rule: a storage failure surfaces as
// "no credential" so the application falls back to the login screen instead
// of crashing.
package vault

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Load when no usable credential is stored. A
// partial credential (either token empty) counts as not found, never as a
// fallback.
var ErrNotFound = errors.New("no stored credential")

// TokenPair is the credential set persisted between application restarts.
type TokenPair struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	AccessExpiry time.Time `json:"accessExpiry"`
}

// complete reports whether both tokens are present.
func (p TokenPair) complete() bool {
	return p.AccessToken != "" && p.RefreshToken != ""
}

// Vault is the credential storage contract. Implementations must replace
// atomically on Save so a crash mid-save never leaves mixed old/new tokens.
type Vault interface {
	Save(ctx context.Context, pair TokenPair) error
	Load(ctx context.Context) (TokenPair, error)
	Clear(ctx context.Context) error
	HasSaved(ctx context.Context) bool
}
