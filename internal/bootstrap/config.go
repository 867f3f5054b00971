// Package bootstrap wires configuration, infrastructure connections, and
// service construction for the authgate binaries.
package bootstrap

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"golang.org/x/net/publicsuffix"

	"github.com/calluna-labs/authgate/config"
)

// InitLogger creates a structured JSON logger writing to stdout and installs
// it as the process default.
func InitLogger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	return logger
}

// LoadConfig loads application configuration from a .env file (if present)
// and the environment, then applies guardrails and validates the result.
func LoadConfig() (*config.AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		// A missing .env file is the normal case in production.
		var pathErr *fs.PathError
		if !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	cfg := &config.AppConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	cfg.Sanitize()

	if err := cfg.Auth.Validate(); err != nil {
		return nil, err
	}
	if err := validateCookieDomain(cfg.HTTP.CookieDomain); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validateCookieDomain rejects cookie domains that sit on a public suffix.
// A cookie scoped to "co.uk" or "github.io" would be sent to every site
// under that suffix, so browsers drop it silently and the gate appears
// broken in a way that is hard to diagnose from the server side.
func validateCookieDomain(domain string) error {
	d := strings.TrimPrefix(strings.TrimSpace(domain), ".")
	if d == "" {
		return nil
	}
	if suffix, _ := publicsuffix.PublicSuffix(d); suffix == d {
		return fmt.Errorf("APP_COOKIE_DOMAIN %q is a public suffix; browsers reject cookies scoped to it", domain)
	}
	return nil
}
