// Package queue defines message payloads exchanged over the message broker.
package queue

// AuthEvent is published when a session is opened or closed. Downstream
// consumers use it for audit trails and sign-in notifications without
// touching the primary database. No token material is ever included.
type AuthEvent struct {
	Event    string `json:"event"` // "auth.logged_in" | "auth.logged_out"
	UserID   uint64 `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	RemoteIP string `json:"remote_ip,omitempty"`
	At       string `json:"at"` // RFC 3339 UTC
}

// Queue names for auth events.
const (
	AuthLoggedIn  = "auth.logged_in"
	AuthLoggedOut = "auth.logged_out"
)
