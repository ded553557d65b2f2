// internal/middleware/ratelimit.go
//
// Per-client token-bucket limiter.
//
// Context
// -------
// The booking endpoints send two emails per accepted POST, so they are the
// one place a scripted client can cost real money.  RateLimit keeps one
// golang.org/x/time/rate limiter per client IP and answers 429 with a JSON
// body once the bucket is empty.
//
// Limiters live in a bounded, TTL'd LRU (internal/cache) so a flood of
// distinct addresses cannot grow memory without limit.  An evicted client
// simply starts with a full bucket.
//
// Notes
// -----
// • Client IP comes from requestinfo.ClientIP, the same value logged and
//   shown to staff.
// • Oxford commas, two spaces after periods.

package middleware

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/yanizio/tradesite/internal/cache"
	"github.com/yanizio/tradesite/internal/metrics"
	"github.com/yanizio/tradesite/internal/requestinfo"
)

const (
	limiterClients = 10_000
	limiterIdle    = 30 * time.Minute
)

// Limiter hands out one rate.Limiter per key.
type Limiter struct {
	rps   rate.Limit
	burst int

	mu  sync.Mutex
	lru *cache.LRU[string, *rate.Limiter]
}

// NewLimiter allows rps sustained requests per client with the given burst.
// rps ≤ 0 returns nil, which RateLimit treats as disabled.
func NewLimiter(rps float64, burst int) *Limiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = int(math.Max(1, math.Ceil(rps)))
	}
	return &Limiter{
		rps:   rate.Limit(rps),
		burst: burst,
		lru:   cache.New[string, *rate.Limiter](limiterClients, limiterIdle),
	}
}

// get returns the limiter for key, creating one if needed.
func (l *Limiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok := l.lru.Get(key); ok {
		return lim
	}
	lim := rate.NewLimiter(l.rps, l.burst)
	l.lru.Add(key, lim)
	return lim
}

// Allow reports whether key may proceed now.
func (l *Limiter) Allow(key string) bool { return l.get(key).Allow() }

// RateLimit wraps next with l.  A nil l is a no-op.
func RateLimit(l *Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := "unknown"
			if addr := requestinfo.ClientIP(r); addr != nil {
				ip = addr.String()
			}
			if l.Allow(ip) {
				next.ServeHTTP(w, r)
				return
			}

			metrics.RateLimited.Inc()
			zap.S().Warnw("rate limit exceeded", "ip", ip, "path", r.URL.Path)

			retry := int(math.Ceil(1 / float64(l.rps)))
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success": false,
				"error":   "Too many requests. Please try again shortly.",
			})
		})
	}
}
