package httputil

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// staleLimiterAge is how long a client limiter may sit idle before the
// cleanup pass drops it.
const staleLimiterAge = 10 * time.Minute

// RateLimiter applies a per-client token bucket to incoming requests.
// Clients are keyed by remote IP, so it should be installed after
// middleware.RealIP when running behind a proxy.
type RateLimiter struct {
	rps   rate.Limit
	burst int

	mu       sync.Mutex
	clients  map[string]*clientLimiter
	lastSeen func() time.Time
}

type clientLimiter struct {
	limiter *rate.Limiter
	seen    time.Time
}

// NewRateLimiter creates a rate limiter allowing rps requests per second with
// the given burst per client.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		clients:  make(map[string]*clientLimiter),
		lastSeen: time.Now,
	}
}

// Middleware rejects requests exceeding the client's rate with 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(clientKey(r)) {
			w.Header().Set("Retry-After", "1")
			Error(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.lastSeen()

	c, ok := rl.clients[key]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.clients[key] = c
		rl.evictStale(now)
	}
	c.seen = now

	return c.limiter.Allow()
}

// evictStale drops limiters idle longer than staleLimiterAge. Called with the
// mutex held, only when a new client appears, to keep the map bounded.
func (rl *RateLimiter) evictStale(now time.Time) {
	for key, c := range rl.clients {
		if now.Sub(c.seen) > staleLimiterAge {
			delete(rl.clients, key)
		}
	}
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
