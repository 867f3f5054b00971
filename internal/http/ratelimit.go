package httpx

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig holds per-client token-bucket settings.
type RateLimitConfig struct {
	// GeneralRPM is the per-client budget for ordinary requests.
	GeneralRPM int
	// ExchangeRPM is the tighter budget for the token exchange endpoint,
	// which fronts credential verification.
	ExchangeRPM int
	// ExchangePath selects requests that fall under ExchangeRPM.
	ExchangePath string
}

type clientLimiter struct {
	general  *rate.Limiter
	exchange *rate.Limiter
	lastSeen time.Time
}

// RateLimiter applies per-client request budgets keyed by originating IP.
// Stale client entries are collected opportunistically once the table grows.
type RateLimiter struct {
	cfg     RateLimitConfig
	mu      sync.Mutex
	clients map[string]*clientLimiter
}

// NewRateLimiter creates a RateLimiter with sane defaults for zero values.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.GeneralRPM <= 0 {
		cfg.GeneralRPM = 300
	}
	if cfg.ExchangeRPM <= 0 {
		cfg.ExchangeRPM = 10
	}
	return &RateLimiter{
		cfg:     cfg,
		clients: map[string]*clientLimiter{},
	}
}

// Handler wraps next with rate limiting.
func (m *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limiter := m.limiterFor(clientIP(r))

		target := limiter.general
		if m.cfg.ExchangePath != "" && r.URL.Path == m.cfg.ExchangePath {
			target = limiter.exchange
		}

		if !target.Allow() {
			w.Header().Set("Retry-After", "60")
			WriteError(w, ErrorParams{
				Code:    http.StatusTooManyRequests,
				ErrCode: "rate_limited",
				Err:     errors.New("too many requests"),
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *RateLimiter) limiterFor(ip string) *clientLimiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limiter, exists := m.clients[ip]; exists {
		limiter.lastSeen = time.Now()
		m.gcLocked()
		return limiter
	}

	created := &clientLimiter{
		general:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(m.cfg.GeneralRPM)), m.cfg.GeneralRPM),
		exchange: rate.NewLimiter(rate.Every(time.Minute/time.Duration(m.cfg.ExchangeRPM)), m.cfg.ExchangeRPM),
		lastSeen: time.Now(),
	}
	m.clients[ip] = created
	m.gcLocked()
	return created
}

func (m *RateLimiter) gcLocked() {
	if len(m.clients) < 1000 {
		return
	}

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, limiter := range m.clients {
		if limiter.lastSeen.Before(cutoff) {
			delete(m.clients, ip)
		}
	}
}
