package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/calluna-labs/authgate/internal/errors"
	"github.com/calluna-labs/authgate/internal/service"
)

// SessionServiceInterface defines the interface for session service operations.
type SessionServiceInterface interface {
	Exchange(ctx context.Context, rawToken string, meta service.RequestMeta) (*service.ExchangeResult, error)
	ExchangeCode(ctx context.Context, code string, meta service.RequestMeta) (*service.ExchangeResult, error)
	Resolve(ctx context.Context, rawCookie string) (*service.Resolution, error)
	Logout(ctx context.Context, rawCookie string, meta service.RequestMeta)
}

// SessionHandlers provides HTTP handlers for the session lifecycle.
type SessionHandlers struct {
	Svc          SessionServiceInterface
	CookieName   string
	CookieDomain string
	// SameSite is applied to every session cookie write. Zero means Lax.
	SameSite http.SameSite
	Logger   *slog.Logger
}

func (h *SessionHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// exchangeRequest is the POST /session-exchange body.
type exchangeRequest struct {
	IDToken string `json:"idToken"`
}

// userPayload is the public identity shape returned to clients.
type userPayload struct {
	ID            string `json:"id"`
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified"`
	Role          string `json:"role"`
}

// Exchange handles the token exchange endpoint.
// POST /session-exchange with {"idToken": "..."} or an Authorization bearer header.
func (h *SessionHandlers) Exchange(w http.ResponseWriter, r *http.Request) {
	var req exchangeRequest
	if r.Body != nil && r.ContentLength != 0 {
		if !DecodeJSON(w, r, &req) {
			return
		}
	}
	if req.IDToken == "" {
		req.IDToken = bearerToken(r)
	}
	if req.IDToken == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_token",
			Err:     apperrors.Validation("identity token is required"),
		})
		return
	}

	result, err := h.Svc.Exchange(r.Context(), req.IDToken, requestMeta(r))
	if err != nil {
		WriteAppError(w, err)
		return
	}

	setSessionCookie(w, r, sessionCookieParams{
		Name:      h.CookieName,
		Domain:    h.CookieDomain,
		SameSite:  h.SameSite,
		Value:     result.Cookie,
		ExpiresAt: result.ExpiresAt,
	})

	WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user": userPayload{
			ID:            result.User.ID,
			Email:         result.User.Email,
			EmailVerified: result.User.EmailVerified,
			Role:          string(result.User.Role),
		},
		"expires_at": result.ExpiresAt.UTC(),
	})
}

// Callback handles the provider redirect after an authorization-code flow.
// GET /callback?code=<code>&redirect_uri=<optional>.
// A missing code just redirects; the provider already reported the error to
// the user and there is nothing to exchange.
func (h *SessionHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	redirectURI := safeRedirectPath(r.URL.Query().Get("redirect_uri"))

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Redirect(w, r, redirectURI, http.StatusFound)
		return
	}

	result, err := h.Svc.ExchangeCode(r.Context(), code, requestMeta(r))
	if err != nil {
		h.logger().WarnContext(r.Context(), "code exchange failed", "error", err)
		u := url.URL{Path: redirectURI, RawQuery: url.Values{"auth_error": {"1"}}.Encode()}
		http.Redirect(w, r, u.String(), http.StatusFound)
		return
	}

	setSessionCookie(w, r, sessionCookieParams{
		Name:      h.CookieName,
		Domain:    h.CookieDomain,
		SameSite:  h.SameSite,
		Value:     result.Cookie,
		ExpiresAt: result.ExpiresAt,
	})
	http.Redirect(w, r, redirectURI, http.StatusFound)
}

// Logout handles the session teardown endpoint.
// POST /logout. Always succeeds: the cookie is cleared whether or not a
// valid session existed.
func (h *SessionHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(h.CookieName); err == nil {
		h.Svc.Logout(r.Context(), cookie.Value, requestMeta(r))
	}

	clearCookie(w, r, h.CookieName, h.CookieDomain, h.SameSite)
	WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

// Session returns the current authentication status.
// GET /session.
func (h *SessionHandlers) Session(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(h.CookieName)
	if err != nil {
		WriteJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}

	res, err := h.Svc.Resolve(r.Context(), cookie.Value)
	if err != nil {
		// Invalid or expired: clear it so the browser stops sending garbage.
		clearCookie(w, r, h.CookieName, h.CookieDomain, h.SameSite)
		WriteJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}

	if res.RefreshedCookie != "" {
		setSessionCookie(w, r, sessionCookieParams{
			Name:      h.CookieName,
			Domain:    h.CookieDomain,
			SameSite:  h.SameSite,
			Value:     res.RefreshedCookie,
			ExpiresAt: res.ExpiresAt,
		})
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user": userPayload{
			ID:            res.User.ID,
			Email:         res.User.Email,
			EmailVerified: res.User.EmailVerified,
			Role:          string(res.User.Role),
		},
		"expires_at": res.ExpiresAt.UTC(),
	})
}

// bearerToken extracts a token from an Authorization: Bearer header.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
		return strings.TrimSpace(auth[len(prefix):])
	}
	return ""
}

func requestMeta(r *http.Request) service.RequestMeta {
	return service.RequestMeta{
		RemoteAddr: clientIP(r),
		UserAgent:  r.UserAgent(),
	}
}

// sessionCookieParams groups values needed to set the session cookie.
type sessionCookieParams struct {
	Name      string
	Domain    string
	SameSite  http.SameSite
	Value     string
	ExpiresAt time.Time
}

// sameSiteOrLax fills the zero value so callers that never set a policy get
// the Lax default.
func sameSiteOrLax(s http.SameSite) http.SameSite {
	if s == 0 {
		return http.SameSiteLaxMode
	}
	return s
}

// setSessionCookie writes the session cookie based on the session's expiry.
func setSessionCookie(w http.ResponseWriter, r *http.Request, p sessionCookieParams) {
	http.SetCookie(w, &http.Cookie{
		Name:     p.Name,
		Value:    p.Value,
		Path:     "/",
		Domain:   p.Domain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: sameSiteOrLax(p.SameSite),
		MaxAge:   int(time.Until(p.ExpiresAt).Seconds()),
	})
}

// clearCookie clears a cookie by setting it to expire immediately.
// It mirrors key attributes (Secure, Path, Domain, SameSite) used when setting cookies
// to maximize compatibility across browsers during deletion.
func clearCookie(w http.ResponseWriter, r *http.Request, name, domain string, sameSite http.SameSite) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   domain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		SameSite: sameSiteOrLax(sameSite),
	})
}
