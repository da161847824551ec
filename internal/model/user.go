package model

import "time"

// Roles form a closed set. Authorization decisions compare against these
// constants only; any other value found in a token counts as no role at all.
const (
	RoleAdmin = "ADMIN"
	RoleSale  = "SALE"
)

// ValidRole reports whether r is a member of the closed role set.
func ValidRole(r string) bool {
	return r == RoleAdmin || r == RoleSale
}

// User mirrors the `users` table.
type User struct {
	ID           uint64    // users.id
	Username     string    // users.username
	PasswordHash string    // users.password_hash
	Role         string    // users.role (ADMIN | SALE)
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// Identity is the authenticated caller as embedded in a verified access
// token. Immutable once issued; a fresh login re-derives it.
type Identity struct {
	UserID   uint64 `json:"userId"`
	Username string `json:"username"`
	Role     string `json:"role"`
}
