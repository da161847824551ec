// Package repository defines sentinel errors shared across repositories so
// handlers can translate storage outcomes into HTTP responses without
// inspecting driver-specific errors.
package repository

import "errors"

// ErrUsernameExists is returned when creating a user with a taken username.
var ErrUsernameExists = errors.New("username already exists")

// ErrRefreshInvalid is returned when a refresh token hash is unknown,
// expired, already revoked, or replayed after a successful use.
var ErrRefreshInvalid = errors.New("refresh token invalid")
