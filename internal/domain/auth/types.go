package auth

// Package auth contains domain-level types for authentication and
// authorization decisions. It is pure and free of framework/adapter concerns.

import "time"

// Role represents an application's authorization role.
// Keep string form for easy persistence and logging.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// ValidRole reports whether s is a known role value.
func ValidRole(s string) bool {
	switch Role(s) {
	case RoleAdmin, RoleUser:
		return true
	default:
		return false
	}
}

// RoleSource tags where a role decision came from. Persisted records are
// authoritative; claims embedded in identity tokens are advisory only and
// may lag behind an operator-driven role change.
type RoleSource string

const (
	// RoleSourcePersisted means the role was read from the system of record.
	RoleSourcePersisted RoleSource = "persisted"
	// RoleSourceClaim means the role was derived from identity-token claims.
	RoleSourceClaim RoleSource = "claim"
	// RoleSourceDefault means no record was found or the lookup failed and
	// the role was defaulted (fail closed).
	RoleSourceDefault RoleSource = "default"
)

// RoleResolution pairs a role with its provenance so callers can tell an
// authoritative answer from an advisory or degraded one.
type RoleResolution struct {
	Role   Role
	Source RoleSource
}

// Authoritative reports whether the resolution may be used for
// authorization decisions. Only persisted records qualify.
func (r RoleResolution) Authoritative() bool { return r.Source == RoleSourcePersisted }

// Identity represents the verified principal carried by an identity token.
// Adapters map provider-specific claims into this shape.
type Identity struct {
	Subject       string // stable user identifier (sub)
	Email         string
	EmailVerified bool
	AdminClaim    bool     // advisory admin flag from custom claims
	Groups        []string // advisory group memberships
	ExpiresAt     time.Time
}

// User is the resolved, request-scoped authenticated user. It is derived
// fresh on every request from the session cookie plus a role lookup and is
// read-only to downstream handlers.
type User struct {
	ID            string
	Email         string
	EmailVerified bool
	Role          Role
	RoleSource    RoleSource
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }
