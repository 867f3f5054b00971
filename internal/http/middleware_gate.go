package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	domainauth "github.com/calluna-labs/authgate/internal/domain/auth"
	"github.com/calluna-labs/authgate/internal/service"
	"github.com/calluna-labs/authgate/internal/session"
)

// SessionResolver is the slice of the session service the gate depends on.
type SessionResolver interface {
	Resolve(ctx context.Context, rawCookie string) (*service.Resolution, error)
}

// GateConfig holds dependencies and policy for the request gate.
type GateConfig struct {
	Sessions SessionResolver
	Paths    domainauth.PathSet

	// CookieName is the session cookie to read and refresh.
	CookieName string
	// CookieDomain scopes refreshed and cleared cookies.
	CookieDomain string
	// SignInPath is where unauthenticated browser requests are sent. Empty
	// means browsers get the same 401 JSON as API clients.
	SignInPath string
	// SameSite is applied to refreshed and cleared cookies. Zero means Lax.
	SameSite http.SameSite
}

// Gate returns the request-gating middleware. Each request path is
// classified against the ordered protected-path rules: unmatched paths are
// forwarded unchanged with no session work at all, matched paths require a
// valid session, and rules with the admin bit additionally require the
// admin role. The resolved user is injected into the request context; a
// cookie inside its refresh window is transparently re-set on the response.
//
// Rejections are uniform: clients learn that authentication is required,
// never whether the cookie was absent, malformed, tampered, or expired.
func Gate(cfg GateConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rule, protected := cfg.Paths.Classify(r.URL.Path)
			if !protected {
				next.ServeHTTP(w, r)
				return
			}

			res, err := resolveSessionErr(r, cfg)
			if err != nil {
				// Drop cookies that can never become valid again.
				if !errors.Is(err, session.ErrAbsent) {
					clearCookie(w, r, cfg.CookieName, cfg.CookieDomain, cfg.SameSite)
				}
				rejectUnauthenticated(w, r, cfg.SignInPath)
				return
			}

			if rule.AdminOnly && !res.User.IsAdmin() {
				rejectForbidden(w, r)
				return
			}

			if res.RefreshedCookie != "" {
				setSessionCookie(w, r, sessionCookieParams{
					Name:      cfg.CookieName,
					Domain:    cfg.CookieDomain,
					SameSite:  cfg.SameSite,
					Value:     res.RefreshedCookie,
					ExpiresAt: res.ExpiresAt,
				})
			}

			ctx := SetUserInContext(r.Context(), &res.User)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth returns a middleware that rejects requests whose context
// carries no user. It guards individual routes registered behind the gate.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserFromContext(r.Context()); !ok {
			WriteError(w, ErrorParams{
				Code:    http.StatusUnauthorized,
				ErrCode: "authentication_required",
				Err:     errors.New("authentication required"),
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin returns a middleware that rejects requests unless the context
// carries an admin user.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			WriteError(w, ErrorParams{
				Code:    http.StatusUnauthorized,
				ErrCode: "authentication_required",
				Err:     errors.New("authentication required"),
			})
			return
		}
		if !user.IsAdmin() {
			WriteError(w, ErrorParams{
				Code:    http.StatusForbidden,
				ErrCode: "insufficient_permissions",
				Err:     errors.New("insufficient permissions"),
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func resolveSessionErr(r *http.Request, cfg GateConfig) (*service.Resolution, error) {
	raw := ""
	if cookie, err := r.Cookie(cfg.CookieName); err == nil {
		raw = cookie.Value
	}
	return cfg.Sessions.Resolve(r.Context(), raw)
}

func rejectUnauthenticated(w http.ResponseWriter, r *http.Request, signInPath string) {
	if signInPath != "" && isBrowserRequest(r) {
		redirectParam := url.QueryEscape(safeRedirectPath(r.URL.RequestURI()))
		http.Redirect(w, r, signInPath+"?redirect_uri="+redirectParam, http.StatusSeeOther)
		return
	}
	WriteError(w, ErrorParams{
		Code:    http.StatusUnauthorized,
		ErrCode: "authentication_required",
		Err:     errors.New("authentication required"),
	})
}

func rejectForbidden(w http.ResponseWriter, r *http.Request) {
	if isBrowserRequest(r) {
		http.Error(w, "Access Denied: You don't have permission to access this resource", http.StatusForbidden)
		return
	}
	WriteError(w, ErrorParams{
		Code:    http.StatusForbidden,
		ErrCode: "insufficient_permissions",
		Err:     errors.New("insufficient permissions"),
	})
}
