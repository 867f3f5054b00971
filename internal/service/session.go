package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	domainauth "github.com/calluna-labs/authgate/internal/domain/auth"
	apperrors "github.com/calluna-labs/authgate/internal/errors"
	"github.com/calluna-labs/authgate/internal/ports"
	"github.com/calluna-labs/authgate/internal/session"
)

// ClaimRoleMapper derives an advisory role from verified identity claims.
type ClaimRoleMapper interface {
	Map(id domainauth.Identity) domainauth.RoleResolution
}

// SessionServiceOptions groups dependencies for SessionService. Codec and
// Verifier are required; the rest are optional capabilities.
type SessionServiceOptions struct {
	Codec       *session.Codec
	Verifier    ports.IdentityVerifier
	Roles       ports.RoleStore       // nil: no persisted role records
	ClaimRoles  ClaimRoleMapper       // nil: token claims never grant roles
	Revocations ports.RevocationList  // nil: revocation disabled
	Audit       ports.AuditSink       // nil: no audit trail
	Logger      *slog.Logger

	SessionTTL    time.Duration
	RefreshWindow time.Duration // remaining lifetime below which Resolve re-mints the cookie; 0 disables
	RoleTimeout   time.Duration // upper bound on a persisted role lookup
	Now           func() time.Time
}

// SessionService orchestrates the session lifecycle: exchanging verified
// identity tokens for signed cookies, resolving cookies back into
// authenticated users on every request, and tearing sessions down.
type SessionService struct {
	codec       *session.Codec
	verifier    ports.IdentityVerifier
	roles       ports.RoleStore
	claimRoles  ClaimRoleMapper
	revocations ports.RevocationList
	audit       ports.AuditSink
	logger      *slog.Logger

	ttl           time.Duration
	refreshWindow time.Duration
	roleTimeout   time.Duration
	now           func() time.Time
}

const (
	defaultSessionTTL  = 12 * time.Hour
	defaultRoleTimeout = 2 * time.Second
)

// NewSessionService constructs a SessionService.
func NewSessionService(opts SessionServiceOptions) (*SessionService, error) {
	if opts.Codec == nil {
		return nil, errors.New("session codec is required")
	}
	if opts.Verifier == nil {
		return nil, errors.New("identity verifier is required")
	}
	s := &SessionService{
		codec:         opts.Codec,
		verifier:      opts.Verifier,
		roles:         opts.Roles,
		claimRoles:    opts.ClaimRoles,
		revocations:   opts.Revocations,
		audit:         opts.Audit,
		logger:        opts.Logger,
		ttl:           opts.SessionTTL,
		refreshWindow: opts.RefreshWindow,
		roleTimeout:   opts.RoleTimeout,
		now:           opts.Now,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.ttl <= 0 {
		s.ttl = defaultSessionTTL
	}
	if s.roleTimeout <= 0 {
		s.roleTimeout = defaultRoleTimeout
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// RequestMeta carries coarse client metadata for audit records.
type RequestMeta struct {
	RemoteAddr string
	UserAgent  string
}

// ExchangeResult contains the outcome of a successful token exchange.
type ExchangeResult struct {
	Cookie    string
	User      domainauth.User
	ExpiresAt time.Time
}

// Exchange verifies a raw identity token and mints a signed session cookie
// for its subject. Verification failures are uniformly classified as invalid
// token so responses never reveal which check failed.
func (s *SessionService) Exchange(ctx context.Context, rawToken string, meta RequestMeta) (*ExchangeResult, error) {
	if rawToken == "" {
		return nil, apperrors.InvalidToken("identity token is required")
	}

	identity, err := s.verifier.Verify(ctx, rawToken)
	if err != nil {
		s.logger.InfoContext(ctx, "identity token rejected", slog.String("error", err.Error()))
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInvalidToken, "identity token verification failed")
	}
	return s.establish(ctx, identity, meta)
}

// ExchangeCode completes an authorization-code exchange and mints a signed
// session cookie for the resulting identity.
func (s *SessionService) ExchangeCode(ctx context.Context, code string, meta RequestMeta) (*ExchangeResult, error) {
	if code == "" {
		return nil, apperrors.InvalidToken("authorization code is required")
	}

	identity, err := s.verifier.ExchangeCode(ctx, code)
	if err != nil {
		s.logger.InfoContext(ctx, "authorization code rejected", slog.String("error", err.Error()))
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInvalidToken, "authorization code exchange failed")
	}
	return s.establish(ctx, identity, meta)
}

func (s *SessionService) establish(ctx context.Context, identity domainauth.Identity, meta RequestMeta) (*ExchangeResult, error) {
	if identity.Subject == "" {
		return nil, apperrors.InvalidToken("identity token carries no subject")
	}

	resolution := s.resolveRole(ctx, identity)

	now := s.now()
	expiresAt := now.Add(s.ttl)
	// A session never outlives the identity token it was exchanged for.
	if !identity.ExpiresAt.IsZero() && identity.ExpiresAt.Before(expiresAt) {
		expiresAt = identity.ExpiresAt
	}

	cookie, err := s.codec.Encode(session.Claims{
		Email:         identity.Email,
		EmailVerified: identity.EmailVerified,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.Subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "sign session cookie")
	}

	s.recordAudit(ctx, identity.Subject, "session.exchange", meta)

	return &ExchangeResult{
		Cookie: cookie,
		User: domainauth.User{
			ID:            identity.Subject,
			Email:         identity.Email,
			EmailVerified: identity.EmailVerified,
			Role:          resolution.Role,
			RoleSource:    resolution.Source,
		},
		ExpiresAt: expiresAt,
	}, nil
}

// Resolution is the outcome of resolving a session cookie on a request.
type Resolution struct {
	User      domainauth.User
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time

	// RefreshedCookie is non-empty when the cookie entered its refresh
	// window and a replacement was minted; callers should re-set it.
	RefreshedCookie string
}

// Resolve validates a raw cookie value and derives the authenticated user.
// Failures surface as the codec's failure kinds (session.ErrAbsent,
// ErrMalformed, ErrSignatureInvalid, ErrExpired); a revoked token reports
// as expired. The role is re-resolved on every call, never trusted from the
// cookie, and defaults to the unprivileged role when the record store is
// unreachable.
func (s *SessionService) Resolve(ctx context.Context, rawCookie string) (*Resolution, error) {
	claims, err := s.codec.Decode(rawCookie)
	if err != nil {
		return nil, err
	}

	tokenID := claims.ID
	if s.revocations != nil && tokenID != "" {
		revoked, rerr := s.revocations.IsRevoked(ctx, tokenID)
		if rerr != nil {
			// The revocation list is an optional strictness layer; its
			// outage must not sign everyone out.
			s.logger.ErrorContext(ctx, "revocation check failed",
				slog.String("token_id", tokenID), slog.String("error", rerr.Error()))
		} else if revoked {
			return nil, session.ErrExpired
		}
	}

	resolution := s.lookupPersistedRole(ctx, claims.Subject)

	res := &Resolution{
		User: domainauth.User{
			ID:            claims.Subject,
			Email:         claims.Email,
			EmailVerified: claims.EmailVerified,
			Role:          resolution.Role,
			RoleSource:    resolution.Source,
		},
		TokenID: tokenID,
	}
	if claims.IssuedAt != nil {
		res.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		res.ExpiresAt = claims.ExpiresAt.Time
	}

	if s.refreshWindow > 0 && !res.ExpiresAt.IsZero() && res.ExpiresAt.Sub(s.now()) < s.refreshWindow {
		refreshed, rerr := s.refresh(claims)
		if rerr != nil {
			s.logger.ErrorContext(ctx, "session refresh failed",
				slog.String("subject", claims.Subject), slog.String("error", rerr.Error()))
		} else {
			res.RefreshedCookie = refreshed
		}
	}

	return res, nil
}

// refresh re-mints the cookie with a fresh expiry and token ID, keeping the
// identity fields as issued.
func (s *SessionService) refresh(claims session.Claims) (string, error) {
	now := s.now()
	return s.codec.Encode(session.Claims{
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	})
}

// Logout tears a session down. It is idempotent and best-effort: a missing
// or invalid cookie is not an error, and failures in the revocation list,
// provider sign-out, or audit trail are logged but never bubble up, so the
// caller always clears the cookie.
func (s *SessionService) Logout(ctx context.Context, rawCookie string, meta RequestMeta) {
	claims, err := s.codec.Decode(rawCookie)
	if err != nil {
		return
	}

	if s.revocations != nil && claims.ID != "" && claims.ExpiresAt != nil {
		if rerr := s.revocations.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); rerr != nil {
			s.logger.ErrorContext(ctx, "session revocation failed",
				slog.String("token_id", claims.ID), slog.String("error", rerr.Error()))
		}
	}

	if rerr := s.verifier.RevokeSessions(ctx, claims.Subject); rerr != nil {
		s.logger.ErrorContext(ctx, "provider sign-out failed",
			slog.String("subject", claims.Subject), slog.String("error", rerr.Error()))
	}

	s.recordAudit(ctx, claims.Subject, "session.logout", meta)
}

// resolveRole decides the role at exchange time, when the full verified
// identity is in hand. The persisted record wins; token claims fill in when
// no record exists; any lookup failure defaults to the unprivileged role.
func (s *SessionService) resolveRole(ctx context.Context, identity domainauth.Identity) domainauth.RoleResolution {
	claimed := domainauth.RoleResolution{Role: domainauth.RoleUser, Source: domainauth.RoleSourceClaim}
	if s.claimRoles != nil {
		claimed = s.claimRoles.Map(identity)
	}

	if s.roles == nil {
		return claimed
	}

	persisted, err := s.lookupWithTimeout(ctx, identity.Subject)
	switch {
	case err == nil:
		if persisted.Role != claimed.Role {
			s.logger.WarnContext(ctx, "role drift between record and token claims",
				slog.String("subject", identity.Subject),
				slog.String("persisted", string(persisted.Role)),
				slog.String("claimed", string(claimed.Role)))
		}
		return persisted
	case errors.Is(err, ports.ErrRoleNotFound):
		return claimed
	default:
		s.logger.ErrorContext(ctx, "role lookup failed, defaulting role",
			slog.String("subject", identity.Subject), slog.String("error", err.Error()))
		return domainauth.RoleResolution{Role: domainauth.RoleUser, Source: domainauth.RoleSourceDefault}
	}
}

// lookupPersistedRole decides the role at request time, when only the cookie
// is in hand. Cookies deliberately carry no role claims, so without a
// persisted record the role defaults.
func (s *SessionService) lookupPersistedRole(ctx context.Context, subject string) domainauth.RoleResolution {
	fallback := domainauth.RoleResolution{Role: domainauth.RoleUser, Source: domainauth.RoleSourceDefault}
	if s.roles == nil {
		return fallback
	}

	persisted, err := s.lookupWithTimeout(ctx, subject)
	switch {
	case err == nil:
		return persisted
	case errors.Is(err, ports.ErrRoleNotFound):
		return fallback
	default:
		s.logger.ErrorContext(ctx, "role lookup failed, defaulting role",
			slog.String("subject", subject), slog.String("error", err.Error()))
		return fallback
	}
}

func (s *SessionService) lookupWithTimeout(ctx context.Context, subject string) (domainauth.RoleResolution, error) {
	ctx, cancel := context.WithTimeout(ctx, s.roleTimeout)
	defer cancel()

	role, err := s.roles.Lookup(ctx, subject)
	if err != nil {
		return domainauth.RoleResolution{}, err
	}
	return domainauth.RoleResolution{Role: role, Source: domainauth.RoleSourcePersisted}, nil
}

func (s *SessionService) recordAudit(ctx context.Context, subject, action string, meta RequestMeta) {
	if s.audit == nil {
		return
	}
	ev := ports.AuditEvent{
		ID:         uuid.NewString(),
		Subject:    subject,
		Action:     action,
		RemoteAddr: meta.RemoteAddr,
		UserAgent:  meta.UserAgent,
		At:         s.now(),
	}
	if err := s.audit.Record(ctx, ev); err != nil {
		s.logger.ErrorContext(ctx, "audit record failed",
			slog.String("action", action), slog.String("error", err.Error()))
	}
}
