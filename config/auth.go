package config

import (
	"fmt"
	"strings"
)

// VerifierMode selects the identity verifier back-end.
type VerifierMode string

const (
	// VerifierModeOIDC verifies identity tokens against an OIDC provider.
	VerifierModeOIDC VerifierMode = "oidc"
	// VerifierModeStatic uses a config-driven static verifier (development only).
	VerifierModeStatic VerifierMode = "static"
)

// UnmarshalText implements encoding.TextUnmarshaler for VerifierMode.
func (m *VerifierMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "oidc", "static":
		*m = VerifierMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AUTH_MODE: %q (valid options: oidc, static)", v)
	}
}

// OIDCConfig contains OIDC verifier configuration.
type OIDCConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL"  envDefault:"http://localhost:8080/callback"`
	Scope        string `env:"SCOPE"         envDefault:"openid profile email groups"`
	DiscoveryURL string `env:"DISCOVERY_URL"`
}

// StaticAuthConfig controls the static dev verifier identity.
// Used when AUTH_MODE=static for development and testing.
type StaticAuthConfig struct {
	Subject string   `env:"SUBJECT" envDefault:"dev-user"`
	Email   string   `env:"EMAIL"   envDefault:"dev@example.com"`
	Admin   bool     `env:"ADMIN"   envDefault:"true"`
	Groups  []string `env:"GROUPS"  envDefault:"admins"          envSeparator:";"`
}

// AuthConfig groups identity-verification configuration.
type AuthConfig struct {
	// Mode determines which identity verifier back-end to use.
	Mode VerifierMode `env:"AUTH_MODE" envDefault:"oidc"`

	// OIDC configuration (used when Mode=oidc).
	OIDC OIDCConfig `envPrefix:"OIDC_"`

	// Static verifier configuration (used when Mode=static).
	Static StaticAuthConfig `envPrefix:"DEV_AUTH_"`

	// AdminGroup is the directory group whose members get an advisory
	// admin role from token claims. Empty disables group-based claims.
	AdminGroup string `env:"ADMIN_GROUP"`
}

// Validate checks that the selected verifier mode has the settings it needs.
func (a AuthConfig) Validate() error {
	if a.Mode != VerifierModeOIDC {
		return nil
	}
	if a.OIDC.DiscoveryURL == "" {
		return fmt.Errorf("OIDC_DISCOVERY_URL is required when AUTH_MODE=oidc")
	}
	if a.OIDC.ClientID == "" {
		return fmt.Errorf("OIDC_CLIENT_ID is required when AUTH_MODE=oidc")
	}
	return nil
}
