package oidcverify

// Package oidcverify implements ports.IdentityVerifier against an OIDC
// provider: ID-token verification for the session-exchange endpoint and
// code exchange for the callback flow.

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	domainauth "github.com/calluna-labs/authgate/internal/domain/auth"
	"github.com/calluna-labs/authgate/internal/ports"
)

// Config holds configuration for the OIDC verifier.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scope        string
	DiscoveryURL string
	HTTPClient   *http.Client // optional, defaults to a 30s-timeout client
}

// Verifier verifies identity tokens and exchanges authorization codes via
// a discovered OIDC provider.
type Verifier struct {
	oauth    *oauth2.Config
	provider *gooidc.Provider
	verifier *gooidc.IDTokenVerifier
}

var _ ports.IdentityVerifier = (*Verifier)(nil)

// New creates a Verifier from Config. It performs a single discovery fetch;
// failures here are startup failures, not request failures.
func New(ctx context.Context, cfg Config) (*Verifier, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if cfg.ClientSecret == "" {
		return nil, errors.New("client secret is required")
	}
	if cfg.DiscoveryURL == "" {
		return nil, errors.New("discovery URL is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)

	issuer := strings.TrimSuffix(cfg.DiscoveryURL, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	provider, err := gooidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery: %w", err)
	}

	return &Verifier{
		provider: provider,
		verifier: provider.Verifier(&gooidc.Config{ClientID: cfg.ClientID}),
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       strings.Fields(cfg.Scope),
			Endpoint:     provider.Endpoint(),
		},
	}, nil
}

// tokenClaims is the subset of ID-token claims the gate cares about. The
// admin flag and groups are advisory; authorization always re-checks the
// persisted role record.
type tokenClaims struct {
	Email         string   `json:"email"`
	EmailVerified bool     `json:"email_verified"`
	Admin         bool     `json:"admin"`
	Groups        []string `json:"groups"`
}

// Verify checks the raw ID token's signature, issuer, audience, and expiry.
func (v *Verifier) Verify(ctx context.Context, rawToken string) (domainauth.Identity, error) {
	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("verify id token: %w", err)
	}

	var claims tokenClaims
	if err := idToken.Claims(&claims); err != nil {
		return domainauth.Identity{}, fmt.Errorf("decode id token claims: %w", err)
	}

	return domainauth.Identity{
		Subject:       idToken.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		AdminClaim:    claims.Admin,
		Groups:        claims.Groups,
		ExpiresAt:     idToken.Expiry,
	}, nil
}

// ExchangeCode swaps an authorization code for tokens and verifies the
// returned ID token.
func (v *Verifier) ExchangeCode(ctx context.Context, code string) (domainauth.Identity, error) {
	if code == "" {
		return domainauth.Identity{}, errors.New("authorization code is required")
	}

	token, err := v.oauth.Exchange(ctx, code)
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("exchange authorization code: %w", err)
	}

	rawID, ok := token.Extra("id_token").(string)
	if !ok || rawID == "" {
		return domainauth.Identity{}, errors.New("token response missing id_token")
	}

	return v.Verify(ctx, rawID)
}

// RevokeSessions is a no-op: OIDC end-session is a browser-driven redirect
// and offers no server-side revocation for a bare subject. Cookie clearing
// and the optional revocation list carry the logout semantics.
func (v *Verifier) RevokeSessions(_ context.Context, _ string) error { return nil }
