package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/calluna-labs/authgate/internal/domain/auth"
	apperrors "github.com/calluna-labs/authgate/internal/errors"
	"github.com/calluna-labs/authgate/internal/service"
)

func newSessionHandlers(sessions SessionServiceInterface) *SessionHandlers {
	return &SessionHandlers{Svc: sessions, CookieName: "ag_session"}
}

func exchangeOK(user domainauth.User) func(context.Context, string, service.RequestMeta) (*service.ExchangeResult, error) {
	return func(_ context.Context, rawToken string, _ service.RequestMeta) (*service.ExchangeResult, error) {
		if rawToken != "good-token" {
			return nil, apperrors.InvalidToken("identity token verification failed")
		}
		return &service.ExchangeResult{
			Cookie:    "signed-session-cookie",
			User:      user,
			ExpiresAt: time.Now().Add(time.Hour),
		}, nil
	}
}

func TestExchange_Success(t *testing.T) {
	sessions := &stubSessions{exchangeFunc: exchangeOK(domainauth.User{
		ID: "u1", Email: "u1@example.com", EmailVerified: true,
		Role: domainauth.RoleUser, RoleSource: domainauth.RoleSourceClaim,
	})}
	h := newSessionHandlers(sessions)

	req := httptest.NewRequest(http.MethodPost, "/session-exchange",
		strings.NewReader(`{"idToken":"good-token"}`))
	rec := httptest.NewRecorder()
	h.Exchange(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool        `json:"success"`
		User    userPayload `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "u1", body.User.ID)
	assert.Equal(t, "u1@example.com", body.User.Email)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "ag_session", cookies[0].Name)
	assert.Equal(t, "signed-session-cookie", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, "/", cookies[0].Path)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
	assert.Positive(t, cookies[0].MaxAge)
}

func TestSessionHandlers_SameSiteStrictHonored(t *testing.T) {
	sessions := &stubSessions{exchangeFunc: exchangeOK(domainauth.User{ID: "u1"})}
	h := newSessionHandlers(sessions)
	h.SameSite = http.SameSiteStrictMode

	req := httptest.NewRequest(http.MethodPost, "/session-exchange",
		strings.NewReader(`{"idToken":"good-token"}`))
	rec := httptest.NewRecorder()
	h.Exchange(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, http.SameSiteStrictMode, cookies[0].SameSite)

	// The clearing write on logout carries the same policy.
	req = httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: "ag_session", Value: "signed-session-cookie"})
	rec = httptest.NewRecorder()
	h.Logout(rec, req)

	cookies = rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, http.SameSiteStrictMode, cookies[0].SameSite)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestExchange_BearerHeaderFallback(t *testing.T) {
	sessions := &stubSessions{exchangeFunc: exchangeOK(domainauth.User{ID: "u1"})}
	h := newSessionHandlers(sessions)

	req := httptest.NewRequest(http.MethodPost, "/session-exchange", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	h.Exchange(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestExchange_MissingToken(t *testing.T) {
	h := newSessionHandlers(&stubSessions{})

	req := httptest.NewRequest(http.MethodPost, "/session-exchange", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.Exchange(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing_token")
	assert.Empty(t, rec.Result().Cookies())
}

func TestExchange_InvalidToken(t *testing.T) {
	sessions := &stubSessions{exchangeFunc: exchangeOK(domainauth.User{ID: "u1"})}
	h := newSessionHandlers(sessions)

	req := httptest.NewRequest(http.MethodPost, "/session-exchange",
		strings.NewReader(`{"idToken":"forged-token"}`))
	rec := httptest.NewRecorder()
	h.Exchange(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_token")
	assert.Empty(t, rec.Result().Cookies())
}

func TestExchange_UpstreamUnavailable(t *testing.T) {
	sessions := &stubSessions{exchangeFunc: func(context.Context, string, service.RequestMeta) (*service.ExchangeResult, error) {
		return nil, apperrors.UpstreamUnavailable("identity provider unreachable")
	}}
	h := newSessionHandlers(sessions)

	req := httptest.NewRequest(http.MethodPost, "/session-exchange",
		strings.NewReader(`{"idToken":"good-token"}`))
	rec := httptest.NewRecorder()
	h.Exchange(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLogout_ClearsCookieAndTearsDown(t *testing.T) {
	sessions := &stubSessions{}
	h := newSessionHandlers(sessions)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: "ag_session", Value: "the-cookie"})
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":true`)
	assert.Equal(t, []string{"the-cookie"}, sessions.logoutCalls)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestLogout_IdempotentWithoutCookie(t *testing.T) {
	sessions := &stubSessions{}
	h := newSessionHandlers(sessions)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, sessions.logoutCalls)
	// The clear still happens so stray client state is wiped.
	require.Len(t, rec.Result().Cookies(), 1)
}

func TestSession_Status(t *testing.T) {
	t.Run("authenticated", func(t *testing.T) {
		sessions := &stubSessions{resolveFunc: resolveAs(domainauth.User{
			ID: "u1", Email: "u1@example.com", Role: domainauth.RoleUser,
		})}
		h := newSessionHandlers(sessions)

		req := httptest.NewRequest(http.MethodGet, "/session", nil)
		req.AddCookie(&http.Cookie{Name: "ag_session", Value: "valid"})
		rec := httptest.NewRecorder()
		h.Session(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"authenticated":true`)
		assert.Contains(t, rec.Body.String(), `"u1"`)
	})

	t.Run("no cookie", func(t *testing.T) {
		h := newSessionHandlers(&stubSessions{})

		rec := httptest.NewRecorder()
		h.Session(rec, httptest.NewRequest(http.MethodGet, "/session", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"authenticated":false`)
	})

	t.Run("stale cookie cleared", func(t *testing.T) {
		sessions := &stubSessions{} // Resolve returns ErrAbsent for stub default on empty; non-empty hits default too
		h := newSessionHandlers(sessions)

		req := httptest.NewRequest(http.MethodGet, "/session", nil)
		req.AddCookie(&http.Cookie{Name: "ag_session", Value: "stale"})
		rec := httptest.NewRecorder()
		h.Session(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"authenticated":false`)
		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Negative(t, cookies[0].MaxAge)
	})
}

func TestCallback(t *testing.T) {
	t.Run("missing code redirects without exchange", func(t *testing.T) {
		h := newSessionHandlers(&stubSessions{})

		req := httptest.NewRequest(http.MethodGet, "/callback?redirect_uri=%2Fapp", nil)
		rec := httptest.NewRecorder()
		h.Callback(rec, req)

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/app", rec.Header().Get("Location"))
		assert.Empty(t, rec.Result().Cookies())
	})

	t.Run("successful exchange sets cookie and redirects", func(t *testing.T) {
		sessions := &stubSessions{exchangeFunc: exchangeOK(domainauth.User{ID: "u1"})}
		h := newSessionHandlers(sessions)

		req := httptest.NewRequest(http.MethodGet, "/callback?code=good-token&redirect_uri=%2Fapp", nil)
		rec := httptest.NewRecorder()
		h.Callback(rec, req)

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/app", rec.Header().Get("Location"))
		require.Len(t, rec.Result().Cookies(), 1)
	})

	t.Run("failed exchange redirects with error flag", func(t *testing.T) {
		sessions := &stubSessions{exchangeFunc: exchangeOK(domainauth.User{ID: "u1"})}
		h := newSessionHandlers(sessions)

		req := httptest.NewRequest(http.MethodGet, "/callback?code=bad-code", nil)
		rec := httptest.NewRecorder()
		h.Callback(rec, req)

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Contains(t, rec.Header().Get("Location"), "auth_error=1")
		assert.Empty(t, rec.Result().Cookies())
	})

	t.Run("absolute redirect target is rejected", func(t *testing.T) {
		h := newSessionHandlers(&stubSessions{})

		req := httptest.NewRequest(http.MethodGet, "/callback?redirect_uri=https%3A%2F%2Fevil.example", nil)
		rec := httptest.NewRecorder()
		h.Callback(rec, req)

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/", rec.Header().Get("Location"))
	})
}
