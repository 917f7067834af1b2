package api

import (
	"net/http"
	"sync"

	"github.com/Harvey-AU/salesforce-account-updater/internal/util"
	"golang.org/x/time/rate"
)

// RateLimiter hands out one token bucket per client IP.
type RateLimiter struct {
	mu       sync.Mutex
	limits   map[string]*rate.Limiter
	rate     rate.Limit
	capacity int
}

// NewRateLimiter creates a limiter allowing r events per second with the given burst.
func NewRateLimiter(r rate.Limit, burst int) *RateLimiter {
	return &RateLimiter{
		limits:   make(map[string]*rate.Limiter),
		rate:     r,
		capacity: burst,
	}
}

func (rl *RateLimiter) getLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, exists := rl.limits[ip]
	if !exists {
		limiter = rate.NewLimiter(rl.rate, rl.capacity)
		rl.limits[ip] = limiter
	}
	return limiter
}

// Middleware rejects requests over the client's budget with 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := rl.getLimiter(util.GetClientIP(r)).Reserve()
		if !res.OK() {
			TooManyRequests(w, r, "Too many requests", 0)
			return
		}
		delay := res.Delay()
		if delay == rate.InfDuration {
			// Zero rate: the bucket never refills, so there is no meaningful retry time
			res.Cancel()
			TooManyRequests(w, r, "Too many requests", 0)
			return
		}
		if delay > 0 {
			res.Cancel()
			TooManyRequests(w, r, "Too many requests", delay)
			return
		}
		next.ServeHTTP(w, r)
	})
}
