package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"github.com/calluna-labs/authgate/config"
	domainauth "github.com/calluna-labs/authgate/internal/domain/auth"
	httpx "github.com/calluna-labs/authgate/internal/http"
	"github.com/calluna-labs/authgate/internal/service"
)

// exchangePath is the token exchange endpoint. It gets a tighter rate
// budget and a CSRF exemption: the request carries no session cookie yet
// and the identity token itself proves intent.
const (
	exchangePath = "/session-exchange"
	logoutPath   = "/logout"
)

// BuildHTTPHandler assembles the full middleware chain around the gated
// router: panic recovery, request logging, CORS, rate limiting, CSRF
// protection, then the session gate and routes.
func BuildHTTPHandler(cfg *config.AppConfig, sessions *service.SessionService, logger *slog.Logger) http.Handler {
	router := httpx.NewRouter(httpx.RouterServices{
		Sessions:     sessions,
		Paths:        BuildPathSet(cfg.HTTP),
		CookieName:   cfg.Session.CookieName,
		CookieDomain: cfg.HTTP.CookieDomain,
		SameSite:     cfg.Session.SameSiteMode(),
		SignInPath:   cfg.HTTP.SignInPath,
		Logger:       logger,
	})

	// Logout is also exempt: it is idempotent and only ever clears the
	// victim's cookie, while requiring a CSRF echo would turn a bare
	// POST /logout into a 403.
	handler := httpx.CSRFProtection(httpx.CSRFConfig{
		CookieDomain: cfg.HTTP.CookieDomain,
		ExemptPaths:  []string{exchangePath, logoutPath},
	})(router)

	limiter := httpx.NewRateLimiter(httpx.RateLimitConfig{
		GeneralRPM:   cfg.HTTP.RateLimitGeneralRPM,
		ExchangeRPM:  cfg.HTTP.RateLimitExchangeRPM,
		ExchangePath: exchangePath,
	})
	handler = limiter.Handler(handler)

	if len(cfg.HTTP.CORSOrigins) > 0 {
		handler = cors.New(cors.Options{
			AllowedOrigins:   cfg.HTTP.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodHead},
			AllowedHeaders:   []string{"Authorization", "Content-Type", httpx.DefaultCSRFHeaderName},
			AllowCredentials: true,
		}).Handler(handler)
	}

	handler = httpx.Logging(logger)(handler)
	handler = httpx.Recover(logger)(handler)
	return handler
}

// BuildPathSet converts configured prefix lists into the ordered gating
// rules. Admin prefixes come first so an admin path nested under a broader
// protected prefix still gets the stricter rule.
func BuildPathSet(cfg config.HTTPConfig) domainauth.PathSet {
	rules := make([]domainauth.PathRule, 0, len(cfg.AdminPaths)+len(cfg.ProtectedPaths))
	for _, p := range cfg.AdminPaths {
		rules = append(rules, domainauth.PathRule{Prefix: p, AdminOnly: true})
	}
	for _, p := range cfg.ProtectedPaths {
		rules = append(rules, domainauth.PathRule{Prefix: p})
	}
	return domainauth.NewPathSet(rules...)
}

// RunHTTPServer serves until ctx is cancelled, then drains in-flight
// requests within the configured shutdown timeout.
func RunHTTPServer(ctx context.Context, cfg config.HTTPConfig, handler http.Handler, logger *slog.Logger) error {
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down http server", "timeout", cfg.ShutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
