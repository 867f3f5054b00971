package config

import (
	"strings"
	"time"
)

// HTTPConfig contains HTTP server and request-gate configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// BaseURL is the base URL of the application (e.g., "https://app.example.com").
	BaseURL string `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`

	// CookieDomain is the domain for session cookies.
	// Leave empty to use the request domain.
	CookieDomain string `env:"APP_COOKIE_DOMAIN" envDefault:""`

	// SignInPath is where unauthenticated browser requests are redirected.
	// Empty means browsers get the same 401 JSON as API clients.
	SignInPath string `env:"APP_SIGNIN_PATH" envDefault:""`

	// ProtectedPaths are ordered path prefixes that require a session.
	ProtectedPaths []string `env:"PROTECTED_PATHS" envDefault:"" envSeparator:";"`

	// AdminPaths are ordered path prefixes that require the admin role.
	// They are evaluated before ProtectedPaths (first match wins).
	AdminPaths []string `env:"ADMIN_PATHS" envDefault:"" envSeparator:";"`

	// CORSOrigins are allowed origins for the session bridge endpoints.
	CORSOrigins []string `env:"CORS_ORIGINS" envDefault:"" envSeparator:";"`

	// RateLimitGeneralRPM is the per-client request budget per minute.
	RateLimitGeneralRPM int `env:"RATE_LIMIT_GENERAL_RPM" envDefault:"300"`

	// RateLimitExchangeRPM is the per-client budget for /session-exchange.
	RateLimitExchangeRPM int `env:"RATE_LIMIT_EXCHANGE_RPM" envDefault:"10"`

	// ReadTimeout bounds reading the request including body.
	ReadTimeout time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"10s"`

	// WriteTimeout bounds writing the response.
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`

	// ShutdownTimeout bounds graceful shutdown on SIGTERM.
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	if h.RateLimitGeneralRPM < 1 {
		h.RateLimitGeneralRPM = 300
	}
	if h.RateLimitExchangeRPM < 1 {
		h.RateLimitExchangeRPM = 10
	}
	if h.ReadTimeout <= 0 {
		h.ReadTimeout = 10 * time.Second
	}
	if h.WriteTimeout <= 0 {
		h.WriteTimeout = 30 * time.Second
	}
	if h.ShutdownTimeout <= 0 {
		h.ShutdownTimeout = 15 * time.Second
	}
	h.ProtectedPaths = normalizePrefixes(h.ProtectedPaths)
	h.AdminPaths = normalizePrefixes(h.AdminPaths)
}

// normalizePrefixes drops empty entries and forces a leading slash,
// preserving order.
func normalizePrefixes(prefixes []string) []string {
	kept := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		kept = append(kept, p)
	}
	return kept
}
