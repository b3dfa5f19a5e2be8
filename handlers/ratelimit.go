package handlers

import (
	"net"
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// Submission endpoints are rate limited per client address: a small
// burst, refilling at one request per second. Entries are kept for the
// life of the process; the respondent population of a single service
// instance stays small enough that eviction isn't worth the bookkeeping.
type rateLimiter struct {
	mu      sync.Mutex
	clients map[string]*rate.Limiter
	limit   rate.Limit
	burst   int
}

func newRateLimiter(limit rate.Limit, burst int) *rateLimiter {
	return &rateLimiter{
		clients: make(map[string]*rate.Limiter),
		limit:   limit,
		burst:   burst,
	}
}

func (rl *rateLimiter) limiter(addr string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	l, ok := rl.clients[addr]
	if !ok {
		l = rate.NewLimiter(rl.limit, rl.burst)
		rl.clients[addr] = l
	}
	return l
}

var submitLimiter = newRateLimiter(1, 5)

// RateLimit guards a handler with the per-client submission limiter.
func RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if !submitLimiter.limiter(host).Allow() {
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	}
}
