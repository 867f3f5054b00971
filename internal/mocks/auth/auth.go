package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"errors"
	"sync"
	"time"

	domainauth "github.com/calluna-labs/authgate/internal/domain/auth"
	"github.com/calluna-labs/authgate/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.IdentityVerifier = (*MockIdentityVerifier)(nil)
	_ ports.RoleStore        = (*MemoryRoleStore)(nil)
	_ ports.RevocationList   = (*MemoryRevocationList)(nil)
	_ ports.AuditSink        = (*CapturingAuditSink)(nil)
)

// MockIdentityVerifier simulates an identity provider with deterministic
// verification. Func fields override individual behaviors.
type MockIdentityVerifier struct {
	VerifyFunc         func(ctx context.Context, rawToken string) (domainauth.Identity, error)
	ExchangeCodeFunc   func(ctx context.Context, code string) (domainauth.Identity, error)
	RevokeSessionsFunc func(ctx context.Context, subject string) error

	// DefaultIdentity is returned when no override is set and the input is
	// non-empty.
	DefaultIdentity domainauth.Identity

	mu             sync.Mutex
	verifyCalls    int
	revokedSubject string
}

// NewMockIdentityVerifier creates a MockIdentityVerifier with a sensible
// default identity.
func NewMockIdentityVerifier() *MockIdentityVerifier {
	return &MockIdentityVerifier{
		DefaultIdentity: domainauth.Identity{
			Subject:       "mock-user-1",
			Email:         "mock.user@example.com",
			EmailVerified: true,
			Groups:        []string{"users"},
			ExpiresAt:     time.Now().Add(time.Hour),
		},
	}
}

func (m *MockIdentityVerifier) Verify(ctx context.Context, rawToken string) (domainauth.Identity, error) {
	m.mu.Lock()
	m.verifyCalls++
	m.mu.Unlock()

	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, rawToken)
	}
	if rawToken == "" {
		return domainauth.Identity{}, errors.New("empty token")
	}
	return m.DefaultIdentity, nil
}

func (m *MockIdentityVerifier) ExchangeCode(ctx context.Context, code string) (domainauth.Identity, error) {
	if m.ExchangeCodeFunc != nil {
		return m.ExchangeCodeFunc(ctx, code)
	}
	if code == "" {
		return domainauth.Identity{}, errors.New("empty code")
	}
	return m.DefaultIdentity, nil
}

func (m *MockIdentityVerifier) RevokeSessions(ctx context.Context, subject string) error {
	m.mu.Lock()
	m.revokedSubject = subject
	m.mu.Unlock()

	if m.RevokeSessionsFunc != nil {
		return m.RevokeSessionsFunc(ctx, subject)
	}
	return nil
}

// VerifyCalls returns how many times Verify was invoked.
func (m *MockIdentityVerifier) VerifyCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.verifyCalls
}

// RevokedSubject returns the subject of the last RevokeSessions call.
func (m *MockIdentityVerifier) RevokedSubject() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revokedSubject
}

// MemoryRoleStore is an in-memory role record store. The Err field, when
// set, makes every call fail, simulating an unreachable system of record.
type MemoryRoleStore struct {
	Err error

	mu    sync.Mutex
	roles map[string]domainauth.Role
}

// NewMemoryRoleStore creates an empty MemoryRoleStore.
func NewMemoryRoleStore() *MemoryRoleStore {
	return &MemoryRoleStore{roles: make(map[string]domainauth.Role)}
}

func (s *MemoryRoleStore) Lookup(_ context.Context, subject string) (domainauth.Role, error) {
	if s.Err != nil {
		return "", s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	role, ok := s.roles[subject]
	if !ok {
		return "", ports.ErrRoleNotFound
	}
	return role, nil
}

func (s *MemoryRoleStore) SetRole(_ context.Context, subject string, role domainauth.Role) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[subject] = role
	return nil
}

// MemoryRevocationList is an in-memory revocation list honoring expiry
// deadlines. The Err field, when set, makes every call fail.
type MemoryRevocationList struct {
	Err error

	mu      sync.Mutex
	revoked map[string]time.Time
}

// NewMemoryRevocationList creates an empty MemoryRevocationList.
func NewMemoryRevocationList() *MemoryRevocationList {
	return &MemoryRevocationList{revoked: make(map[string]time.Time)}
}

func (l *MemoryRevocationList) Revoke(_ context.Context, tokenID string, until time.Time) error {
	if l.Err != nil {
		return l.Err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.revoked[tokenID] = until
	return nil
}

func (l *MemoryRevocationList) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	if l.Err != nil {
		return false, l.Err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	until, ok := l.revoked[tokenID]
	return ok && time.Now().Before(until), nil
}

// CapturingAuditSink records audit events in memory for assertions.
type CapturingAuditSink struct {
	Err error

	mu     sync.Mutex
	events []ports.AuditEvent
}

func (s *CapturingAuditSink) Record(_ context.Context, ev ports.AuditEvent) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

// Events returns a copy of the recorded events.
func (s *CapturingAuditSink) Events() []ports.AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ports.AuditEvent, len(s.events))
	copy(out, s.events)
	return out
}
