package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/calluna-labs/authgate/internal/domain/auth"
	"github.com/calluna-labs/authgate/internal/service"
	"github.com/calluna-labs/authgate/internal/session"
)

// stubSessions implements the session operations with canned responses.
type stubSessions struct {
	resolveFunc  func(ctx context.Context, rawCookie string) (*service.Resolution, error)
	exchangeFunc func(ctx context.Context, rawToken string, meta service.RequestMeta) (*service.ExchangeResult, error)
	logoutCalls  []string
}

func (s *stubSessions) Resolve(ctx context.Context, rawCookie string) (*service.Resolution, error) {
	if s.resolveFunc != nil {
		return s.resolveFunc(ctx, rawCookie)
	}
	return nil, session.ErrAbsent
}

func (s *stubSessions) Exchange(ctx context.Context, rawToken string, meta service.RequestMeta) (*service.ExchangeResult, error) {
	if s.exchangeFunc != nil {
		return s.exchangeFunc(ctx, rawToken, meta)
	}
	return nil, session.ErrMalformed
}

func (s *stubSessions) ExchangeCode(ctx context.Context, code string, meta service.RequestMeta) (*service.ExchangeResult, error) {
	return s.Exchange(ctx, code, meta)
}

func (s *stubSessions) Logout(_ context.Context, rawCookie string, _ service.RequestMeta) {
	s.logoutCalls = append(s.logoutCalls, rawCookie)
}

func resolveAs(user domainauth.User) func(context.Context, string) (*service.Resolution, error) {
	return func(_ context.Context, rawCookie string) (*service.Resolution, error) {
		if rawCookie == "" {
			return nil, session.ErrAbsent
		}
		return &service.Resolution{
			User:      user,
			TokenID:   "jti-test",
			ExpiresAt: time.Now().Add(time.Hour),
		}, nil
	}
}

func testPaths() domainauth.PathSet {
	return domainauth.NewPathSet(
		domainauth.PathRule{Prefix: "/admin", AdminOnly: true},
		domainauth.PathRule{Prefix: "/app"},
	)
}

func gateHandler(sessions SessionResolver, signInPath string) http.Handler {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, ok := UserFromContext(r.Context()); ok {
			w.Header().Set("X-User", user.ID)
		}
		w.WriteHeader(http.StatusOK)
	})
	return Gate(GateConfig{
		Sessions:   sessions,
		Paths:      testPaths(),
		CookieName: "ag_session",
		SignInPath: signInPath,
	})(inner)
}

func TestGate_PathClassification(t *testing.T) {
	regular := domainauth.User{ID: "u1", Role: domainauth.RoleUser, RoleSource: domainauth.RoleSourcePersisted}
	admin := domainauth.User{ID: "a1", Role: domainauth.RoleAdmin, RoleSource: domainauth.RoleSourcePersisted}

	tests := []struct {
		name       string
		path       string
		user       *domainauth.User // nil: no valid cookie
		wantStatus int
	}{
		{name: "unprotected path no session", path: "/public/docs", user: nil, wantStatus: http.StatusOK},
		{name: "unprotected path with session", path: "/public/docs", user: &regular, wantStatus: http.StatusOK},
		{name: "protected path no session", path: "/app/home", user: nil, wantStatus: http.StatusUnauthorized},
		{name: "protected path with session", path: "/app/home", user: &regular, wantStatus: http.StatusOK},
		{name: "admin path regular user", path: "/admin/users", user: &regular, wantStatus: http.StatusForbidden},
		{name: "admin path admin user", path: "/admin/users", user: &admin, wantStatus: http.StatusOK},
		{name: "admin path no session", path: "/admin/users", user: nil, wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions := &stubSessions{}
			if tt.user != nil {
				sessions.resolveFunc = resolveAs(*tt.user)
			}

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.user != nil {
				req.AddCookie(&http.Cookie{Name: "ag_session", Value: "cookie-value"})
			}
			rec := httptest.NewRecorder()

			gateHandler(sessions, "").ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestGate_UnmatchedPathSkipsSessionWork(t *testing.T) {
	resolved := false
	sessions := &stubSessions{resolveFunc: func(context.Context, string) (*service.Resolution, error) {
		resolved = true
		return nil, session.ErrAbsent
	}}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.AddCookie(&http.Cookie{Name: "ag_session", Value: "cookie-value"})
	rec := httptest.NewRecorder()

	gateHandler(sessions, "").ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, resolved, "unmatched paths must be forwarded without resolving the session")
	assert.Empty(t, rec.Header().Get("X-User"))
}

func TestGate_FirstMatchWins(t *testing.T) {
	// /admin is listed before /app, so /admin/x under an /app-ish tree is
	// still admin-gated even for an authenticated regular user.
	sessions := &stubSessions{resolveFunc: resolveAs(domainauth.User{ID: "u1", Role: domainauth.RoleUser})}

	req := httptest.NewRequest(http.MethodGet, "/admin/settings", nil)
	req.AddCookie(&http.Cookie{Name: "ag_session", Value: "cookie-value"})
	rec := httptest.NewRecorder()

	gateHandler(sessions, "").ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGate_UniformRejection(t *testing.T) {
	// Absent, malformed, tampered, and expired cookies must produce the
	// same response body and status.
	kinds := map[string]error{
		"absent":    session.ErrAbsent,
		"malformed": session.ErrMalformed,
		"tampered":  session.ErrSignatureInvalid,
		"expired":   session.ErrExpired,
	}

	var bodies []string
	for name, kind := range kinds {
		t.Run(name, func(t *testing.T) {
			sessions := &stubSessions{resolveFunc: func(context.Context, string) (*service.Resolution, error) {
				return nil, kind
			}}

			req := httptest.NewRequest(http.MethodGet, "/app/home", nil)
			req.AddCookie(&http.Cookie{Name: "ag_session", Value: "whatever"})
			rec := httptest.NewRecorder()

			gateHandler(sessions, "").ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			bodies = append(bodies, rec.Body.String())
		})
	}

	for i := 1; i < len(bodies); i++ {
		assert.Equal(t, bodies[0], bodies[i], "rejection bodies must not vary by failure kind")
	}
}

func TestGate_BrowserRedirect(t *testing.T) {
	sessions := &stubSessions{}

	req := httptest.NewRequest(http.MethodGet, "/app/reports?q=1", nil)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	rec := httptest.NewRecorder()

	gateHandler(sessions, "/signin").ServeHTTP(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	loc := rec.Header().Get("Location")
	assert.Contains(t, loc, "/signin?redirect_uri=")
	assert.Contains(t, loc, "%2Fapp%2Freports")
}

func TestGate_APIRequestGetsJSONNotRedirect(t *testing.T) {
	sessions := &stubSessions{}

	req := httptest.NewRequest(http.MethodGet, "/app/reports", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()

	gateHandler(sessions, "/signin").ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Header().Get("Location"))
	assert.Contains(t, rec.Body.String(), "authentication_required")
}

func TestGate_InvalidCookieIsCleared(t *testing.T) {
	sessions := &stubSessions{resolveFunc: func(context.Context, string) (*service.Resolution, error) {
		return nil, session.ErrExpired
	}}

	req := httptest.NewRequest(http.MethodGet, "/app/home", nil)
	req.AddCookie(&http.Cookie{Name: "ag_session", Value: "stale"})
	rec := httptest.NewRecorder()

	gateHandler(sessions, "").ServeHTTP(rec, req)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "ag_session", cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestGate_AbsentCookieNotCleared(t *testing.T) {
	sessions := &stubSessions{}

	req := httptest.NewRequest(http.MethodGet, "/app/home", nil)
	rec := httptest.NewRecorder()

	gateHandler(sessions, "").ServeHTTP(rec, req)
	assert.Empty(t, rec.Result().Cookies())
}

func TestGate_RefreshedCookieIsSet(t *testing.T) {
	expiry := time.Now().Add(time.Hour)
	sessions := &stubSessions{resolveFunc: func(context.Context, string) (*service.Resolution, error) {
		return &service.Resolution{
			User:            domainauth.User{ID: "u1", Role: domainauth.RoleUser},
			ExpiresAt:       expiry,
			RefreshedCookie: "fresh-cookie-value",
		}, nil
	}}

	req := httptest.NewRequest(http.MethodGet, "/app/home", nil)
	req.AddCookie(&http.Cookie{Name: "ag_session", Value: "old-cookie-value"})
	rec := httptest.NewRecorder()

	gateHandler(sessions, "").ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "fresh-cookie-value", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.Positive(t, cookies[0].MaxAge)
}

func TestGate_UserInjectedIntoContext(t *testing.T) {
	sessions := &stubSessions{resolveFunc: resolveAs(domainauth.User{ID: "u42", Role: domainauth.RoleUser})}

	req := httptest.NewRequest(http.MethodGet, "/app/home", nil)
	req.AddCookie(&http.Cookie{Name: "ag_session", Value: "cookie-value"})
	rec := httptest.NewRecorder()

	gateHandler(sessions, "").ServeHTTP(rec, req)
	assert.Equal(t, "u42", rec.Header().Get("X-User"))
}

func TestRequireAuthAndRequireAdmin(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	t.Run("no user", func(t *testing.T) {
		rec := httptest.NewRecorder()
		RequireAuth(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		rec = httptest.NewRecorder()
		RequireAdmin(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("regular user", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req = req.WithContext(SetUserInContext(req.Context(), &domainauth.User{ID: "u1", Role: domainauth.RoleUser}))

		rec := httptest.NewRecorder()
		RequireAuth(ok).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = httptest.NewRecorder()
		RequireAdmin(ok).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin user", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req = req.WithContext(SetUserInContext(req.Context(), &domainauth.User{ID: "a1", Role: domainauth.RoleAdmin}))

		rec := httptest.NewRecorder()
		RequireAdmin(ok).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
