package config

import (
	"net/http"
	"strings"
	"time"
)

// SessionConfig contains signed session cookie configuration.
type SessionConfig struct {
	// SigningKeys are ordered "id:secret" entries. The first entry signs
	// new cookies; all entries verify, enabling key rotation.
	SigningKeys []string `env:"SESSION_SIGNING_KEYS,required" envSeparator:";"`

	// Issuer is stamped into and enforced on every cookie.
	Issuer string `env:"SESSION_ISSUER" envDefault:"authgate"`

	// CookieName is the session cookie name.
	CookieName string `env:"SESSION_COOKIE_NAME" envDefault:"ag_session"`

	// SameSite is the cookie SameSite policy: "lax" or "strict".
	SameSite string `env:"SESSION_SAMESITE" envDefault:"lax"`

	// TTL is the session lifetime from issuance.
	TTL time.Duration `env:"SESSION_TTL" envDefault:"12h"`

	// RefreshWindow: when a resolved cookie has less than this remaining,
	// it is transparently re-minted. Zero disables refresh.
	RefreshWindow time.Duration `env:"SESSION_REFRESH_WINDOW" envDefault:"15m"`

	// RoleLookupTimeout bounds the per-request persisted role lookup.
	RoleLookupTimeout time.Duration `env:"SESSION_ROLE_LOOKUP_TIMEOUT" envDefault:"2s"`

	// RevocationEnabled turns on the Redis-backed revocation list. Off by
	// default: the base design is fully stateless.
	RevocationEnabled bool `env:"SESSION_REVOCATION_ENABLED" envDefault:"false"`
}

// Sanitize applies guardrails to session configuration values.
func (s *SessionConfig) Sanitize() {
	if s.TTL <= 0 {
		s.TTL = 12 * time.Hour
	}
	if s.RefreshWindow < 0 {
		s.RefreshWindow = 0
	}
	if s.RefreshWindow >= s.TTL {
		// A window as large as the TTL would re-mint on every request.
		s.RefreshWindow = s.TTL / 4
	}
	if s.RoleLookupTimeout <= 0 {
		s.RoleLookupTimeout = 2 * time.Second
	}
	if s.CookieName == "" {
		s.CookieName = "ag_session"
	}
}

// SameSiteMode maps the configured policy onto the http package constant.
// Unknown values fall back to Lax.
func (s SessionConfig) SameSiteMode() http.SameSite {
	if strings.EqualFold(s.SameSite, "strict") {
		return http.SameSiteStrictMode
	}
	return http.SameSiteLaxMode
}
