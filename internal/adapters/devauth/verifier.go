package devauth

// Package devauth provides a config-driven IdentityVerifier for local
// development: any non-empty token or code resolves to the configured
// identity, with no network calls.

import (
	"context"
	"errors"
	"sync"
	"time"

	domainauth "github.com/calluna-labs/authgate/internal/domain/auth"
	"github.com/calluna-labs/authgate/internal/ports"
)

// Config controls the dev verifier's identity.
type Config struct {
	Subject  string
	Email    string
	Admin    bool
	Groups   []string
	TokenTTL time.Duration // default 8h when zero
}

// Verifier implements ports.IdentityVerifier for local development. It
// tracks revoked subjects in memory so logout behaves like a real provider.
type Verifier struct {
	cfg Config

	mu      sync.Mutex
	revoked map[string]bool
}

var _ ports.IdentityVerifier = (*Verifier)(nil)

// New constructs a dev verifier from Config.
func New(cfg Config) (*Verifier, error) {
	if cfg.Subject == "" {
		return nil, errors.New("dev auth: Subject is required")
	}
	if cfg.Email == "" {
		return nil, errors.New("dev auth: Email is required")
	}
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = 8 * time.Hour
	}
	return &Verifier{cfg: cfg, revoked: map[string]bool{}}, nil
}

// Verify accepts any non-empty token and returns the configured identity,
// unless the subject has been revoked since.
func (v *Verifier) Verify(_ context.Context, rawToken string) (domainauth.Identity, error) {
	if rawToken == "" {
		return domainauth.Identity{}, errors.New("dev auth: empty token")
	}
	return v.identity()
}

// ExchangeCode accepts any non-empty code and returns the configured identity.
func (v *Verifier) ExchangeCode(_ context.Context, code string) (domainauth.Identity, error) {
	if code == "" {
		return domainauth.Identity{}, errors.New("dev auth: empty code")
	}
	return v.identity()
}

// RevokeSessions marks the subject revoked; subsequent Verify calls fail
// until ResetRevocations.
func (v *Verifier) RevokeSessions(_ context.Context, subject string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.revoked[subject] = true
	return nil
}

// ResetRevocations clears revoked subjects, simulating a fresh login.
func (v *Verifier) ResetRevocations() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.revoked = map[string]bool{}
}

func (v *Verifier) identity() (domainauth.Identity, error) {
	v.mu.Lock()
	revoked := v.revoked[v.cfg.Subject]
	v.mu.Unlock()
	if revoked {
		return domainauth.Identity{}, errors.New("dev auth: subject revoked")
	}

	return domainauth.Identity{
		Subject:       v.cfg.Subject,
		Email:         v.cfg.Email,
		EmailVerified: true,
		AdminClaim:    v.cfg.Admin,
		Groups:        append([]string(nil), v.cfg.Groups...),
		ExpiresAt:     time.Now().Add(v.cfg.TokenTTL),
	}, nil
}
