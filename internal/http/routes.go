package httpx

import (
	"log/slog"
	"net/http"

	domainauth "github.com/calluna-labs/authgate/internal/domain/auth"
)

// RouterServices holds all the services and policy needed by the HTTP router.
type RouterServices struct {
	Sessions SessionServiceInterface
	Paths    domainauth.PathSet

	CookieName   string
	CookieDomain string
	// SameSite is the cookie SameSite policy. Zero means Lax.
	SameSite http.SameSite
	// SignInPath is where unauthenticated browser requests are redirected.
	SignInPath string
	Logger     *slog.Logger // Logger for handler warnings (optional)
}

// NewRouter creates and configures the HTTP router with the request gate
// applied around every route.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	sessionHandlers := &SessionHandlers{
		Svc:          services.Sessions,
		CookieName:   services.CookieName,
		CookieDomain: services.CookieDomain,
		SameSite:     services.SameSite,
		Logger:       services.Logger,
	}

	mux.Handle("POST /session-exchange", http.HandlerFunc(sessionHandlers.Exchange))
	mux.Handle("POST /logout", http.HandlerFunc(sessionHandlers.Logout))
	mux.Handle("GET /callback", http.HandlerFunc(sessionHandlers.Callback))
	mux.Handle("GET /session", http.HandlerFunc(sessionHandlers.Session))
	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	gate := Gate(GateConfig{
		Sessions:     services.Sessions,
		Paths:        services.Paths,
		CookieName:   services.CookieName,
		CookieDomain: services.CookieDomain,
		SameSite:     services.SameSite,
		SignInPath:   services.SignInPath,
	})

	return gate(mux)
}
