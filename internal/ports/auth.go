package ports

// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"
	"errors"
	"time"

	domainauth "github.com/calluna-labs/authgate/internal/domain/auth"
)

// IdentityVerifier is the capability boundary to an external identity
// provider. Two concrete variants exist (OIDC and a static dev verifier),
// selected by configuration; callers depend only on this interface.
type IdentityVerifier interface {
	// Verify checks a raw identity token (signature, issuer, audience,
	// expiry) and returns the verified identity.
	Verify(ctx context.Context, rawToken string) (domainauth.Identity, error)

	// ExchangeCode completes an authorization-code exchange and returns the
	// verified identity.
	ExchangeCode(ctx context.Context, code string) (domainauth.Identity, error)

	// RevokeSessions signs the subject out of the credential store where the
	// provider supports it. Providers without server-side revocation return nil.
	RevokeSessions(ctx context.Context, subject string) error
}

// ErrRoleNotFound is returned by RoleStore when no record exists for a subject.
var ErrRoleNotFound = errors.New("role record not found")

// RoleStore reads and writes persisted per-user role records. The persisted
// record is the authoritative source for authorization decisions.
type RoleStore interface {
	// Lookup returns the persisted role for a subject, or ErrRoleNotFound.
	Lookup(ctx context.Context, subject string) (domainauth.Role, error)

	// SetRole creates or replaces the role record for a subject.
	SetRole(ctx context.Context, subject string, role domainauth.Role) error
}

// RevocationList tracks session token IDs that were invalidated before
// their natural expiry. Optional; the base design is fully stateless.
type RevocationList interface {
	// Revoke marks a token ID as invalid until the given time.
	Revoke(ctx context.Context, tokenID string, until time.Time) error

	// IsRevoked reports whether a token ID has been revoked.
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// AuditEvent records a security-relevant action with coarse client metadata.
type AuditEvent struct {
	ID         string
	Subject    string
	Action     string
	RemoteAddr string
	UserAgent  string
	At         time.Time
}

// AuditSink records audit events. Emission is best-effort: callers must
// never fail a request because a sink returned an error.
type AuditSink interface {
	Record(ctx context.Context, ev AuditEvent) error
}
