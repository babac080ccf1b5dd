package httpapi

import (
	"errors"
	"net"
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"github.com/habitloop/habitd/pkg/logger"
)

const (
	defaultRateLimitRPS   = 20
	defaultRateLimitBurst = 40
)

// rateLimiter keeps one token bucket per source IP. It runs ahead of routing
// so the unauthenticated endpoints (login, registration, profiles) are
// covered too.
type rateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
	log      *logger.Logger
}

func newRateLimiter(rps, burst int, log *logger.Logger) *rateLimiter {
	if rps <= 0 {
		rps = defaultRateLimitRPS
	}
	if burst <= 0 {
		burst = defaultRateLimitBurst
	}
	return &rateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(rps),
		burst:    burst,
		log:      log,
	}
}

func (rl *rateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Bound memory under key churn.
	if len(rl.limiters) > 10000 {
		rl.limiters = make(map[string]*rate.Limiter)
	}

	limiter, ok := rl.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = limiter
	}
	return limiter
}

func (rl *rateLimiter) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			key = r.RemoteAddr
		}

		if !rl.limiter(key).Allow() {
			rl.log.WithField("key", key).WithField("path", r.URL.Path).Warn("rate limit exceeded")
			writeError(w, http.StatusTooManyRequests, errors.New("rate limit exceeded"))
			return
		}

		next.ServeHTTP(w, r)
	})
}
