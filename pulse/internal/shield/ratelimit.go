package shield

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ClientLimiter rate-limits requests per client IP with a token bucket.
// Idle buckets are dropped by GC.
type ClientLimiter struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	mu      sync.Mutex
	clients map[string]*client
}

type client struct {
	lim  *rate.Limiter
	seen time.Time
}

// NewClientLimiter allows burst requests at once and then one request per
// interval for each client.
func NewClientLimiter(interval time.Duration, burst int) *ClientLimiter {
	return &ClientLimiter{
		limit:   rate.Every(interval),
		burst:   burst,
		now:     time.Now,
		clients: make(map[string]*client),
	}
}

// Allow reports whether the client at key may proceed now.
func (l *ClientLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	c, ok := l.clients[key]
	if !ok {
		c = &client{lim: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = c
	}
	c.seen = now
	return c.lim.AllowN(now, 1)
}

// GC drops clients idle for longer than idle.
func (l *ClientLimiter) GC(idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-idle)
	n := 0
	for k, c := range l.clients {
		if c.seen.Before(cutoff) {
			delete(l.clients, k)
			n++
		}
	}
	return n
}

// Middleware rejects over-limit clients with 429.
func (l *ClientLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(clientIP(r)) {
			retry := time.Duration(float64(time.Second) / float64(l.limit))
			w.Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds()+0.5)))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]string{"error": "too many requests"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP is the host part of RemoteAddr. The API binds to loopback by
// default, so forwarding headers are not trusted.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
