package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/calluna-labs/authgate/config"
	"github.com/calluna-labs/authgate/internal/adapters/audit"
	"github.com/calluna-labs/authgate/internal/adapters/authroles"
	"github.com/calluna-labs/authgate/internal/adapters/devauth"
	"github.com/calluna-labs/authgate/internal/adapters/oidcverify"
	"github.com/calluna-labs/authgate/internal/adapters/postgres"
	redislist "github.com/calluna-labs/authgate/internal/adapters/redis"
	"github.com/calluna-labs/authgate/internal/ports"
	"github.com/calluna-labs/authgate/internal/service"
	"github.com/calluna-labs/authgate/internal/session"
)

// Infra carries the shared infrastructure handles the binaries open at
// startup. Nil fields mean the corresponding backend is disabled.
type Infra struct {
	DB    *sql.DB
	Redis goredis.UniversalClient
}

// BuildSessionService assembles the session service from configuration:
// identity verifier, cookie codec, role sources, and the optional
// revocation list. Misconfiguration is a startup error, never a silently
// degraded service.
func BuildSessionService(ctx context.Context, cfg *config.AppConfig, infra Infra, logger *slog.Logger) (*service.SessionService, error) {
	verifier, err := buildVerifier(ctx, cfg)
	if err != nil {
		return nil, err
	}

	codec, err := BuildCodec(cfg.Session)
	if err != nil {
		return nil, err
	}

	var roles ports.RoleStore
	if cfg.Postgres.Enabled {
		if infra.DB == nil {
			return nil, fmt.Errorf("role store enabled but no database connection provided")
		}
		roles = postgres.NewRoleStore(infra.DB)
	}

	var revocations ports.RevocationList
	if cfg.Session.RevocationEnabled {
		if infra.Redis == nil {
			return nil, fmt.Errorf("session revocation enabled but no redis connection provided")
		}
		revocations = redislist.NewRevocationList(infra.Redis)
	}

	return service.NewSessionService(service.SessionServiceOptions{
		Codec:         codec,
		Verifier:      verifier,
		Roles:         roles,
		ClaimRoles:    authroles.ClaimMapper{AdminGroup: cfg.Auth.AdminGroup},
		Revocations:   revocations,
		Audit:         audit.NewLogSink(logger),
		Logger:        logger,
		SessionTTL:    cfg.Session.TTL,
		RefreshWindow: cfg.Session.RefreshWindow,
		RoleTimeout:   cfg.Session.RoleLookupTimeout,
	})
}

// BuildCodec parses the configured signing keys into a rotating keyring and
// wraps it in a cookie codec.
func BuildCodec(cfg config.SessionConfig) (*session.Codec, error) {
	keys, err := session.ParseKeys(cfg.SigningKeys)
	if err != nil {
		return nil, fmt.Errorf("parse session signing keys: %w", err)
	}
	ring, err := session.NewKeyring(keys...)
	if err != nil {
		return nil, err
	}
	return session.NewCodec(ring, session.WithIssuer(cfg.Issuer)), nil
}

// buildVerifier constructs the identity verifier for the configured mode.
// The static verifier never leaves development mode.
func buildVerifier(ctx context.Context, cfg *config.AppConfig) (ports.IdentityVerifier, error) {
	switch cfg.Auth.Mode {
	case config.VerifierModeOIDC:
		return oidcverify.New(ctx, oidcverify.Config{
			ClientID:     cfg.Auth.OIDC.ClientID,
			ClientSecret: cfg.Auth.OIDC.ClientSecret,
			RedirectURL:  cfg.Auth.OIDC.RedirectURL,
			Scope:        cfg.Auth.OIDC.Scope,
			DiscoveryURL: cfg.Auth.OIDC.DiscoveryURL,
		})
	case config.VerifierModeStatic:
		if !cfg.IsDev {
			return nil, fmt.Errorf("AUTH_MODE=static requires development mode (set DEV=true)")
		}
		return devauth.New(devauth.Config{
			Subject: cfg.Auth.Static.Subject,
			Email:   cfg.Auth.Static.Email,
			Admin:   cfg.Auth.Static.Admin,
			Groups:  cfg.Auth.Static.Groups,
		})
	default:
		return nil, fmt.Errorf("unknown AUTH_MODE %q", cfg.Auth.Mode)
	}
}
