package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/securedrop/trustchain/shared/http/util"
)

// RateLimiterConfig holds configuration for the submission rate limiter
type RateLimiterConfig struct {
	// RequestsPerMinute defines the rate at which tokens are replenished
	RequestsPerMinute float64
	// Burst defines the maximum number of requests that can be made in a burst
	Burst int
	// CleanupInterval defines how often idle clients are dropped
	CleanupInterval time.Duration
	// LimiterTTL defines how long a client is remembered after its last request
	LimiterTTL time.Duration
	// TrustForwardedFor takes the client address from the first X-Forwarded-For entry.
	// Only enable it behind a proxy that overwrites the header.
	TrustForwardedFor bool
}

// DefaultRateLimiterConfig returns a default configuration
func DefaultRateLimiterConfig() *RateLimiterConfig {
	return &RateLimiterConfig{
		RequestsPerMinute: 60,
		Burst:             20,
		CleanupInterval:   5 * time.Minute,
		LimiterTTL:        10 * time.Minute,
	}
}

// RateLimiter limits submissions per client address
type RateLimiter struct {
	config *RateLimiterConfig
	limit  rate.Limit

	// mu makes lookup and creation of a client's limiter atomic
	mu      sync.Mutex
	clients *cache.Cache
}

// NewRateLimiter creates a rate limiter. Idle clients expire after LimiterTTL.
func NewRateLimiter(config *RateLimiterConfig) *RateLimiter {
	if config == nil {
		config = DefaultRateLimiterConfig()
	}

	return &RateLimiter{
		config:  config,
		limit:   rate.Limit(config.RequestsPerMinute / 60.0),
		clients: cache.New(config.LimiterTTL, config.CleanupInterval),
	}
}

// Allow reports whether a request for key may proceed now
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, ok := rl.clients.Get(key)
	if !ok {
		limiter = rate.NewLimiter(rl.limit, rl.config.Burst)
	}
	// refresh the expiry on every request
	rl.clients.SetDefault(key, limiter)

	return limiter.(*rate.Limiter)
}

// Clients returns the number of client addresses currently tracked
func (rl *RateLimiter) Clients() int {
	return rl.clients.ItemCount()
}

// Middleware answers KO without calling next once a client exceeds its rate
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := rl.clientIP(r)
		if !rl.Allow(clientIP) {
			log.WithContext(r.Context()).Warnf("submission rate limit exceeded for %s", clientIP)
			util.WriteStatus(r.Context(), w, false)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) clientIP(r *http.Request) string {
	if rl.config.TrustForwardedFor {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
