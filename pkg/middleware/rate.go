package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/shashiranjanraj/aquaportal/pkg/response"
)

// bucket is a fixed-window counter for one client.
type bucket struct {
	count   int
	resetAt time.Time
}

// Limiter caps requests per client address per window. The web UI puts one in
// front of the login, signup and password forms so a stuck browser tab cannot
// hammer the backend.
type Limiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

func NewLimiter(limit int, window time.Duration) *Limiter {
	return &Limiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// Allow counts one request for key and reports whether it is within the cap.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.evict(now)

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{resetAt: now.Add(l.window)}
		l.buckets[key] = b
	}
	b.count++
	return b.count <= l.limit
}

// evict drops expired buckets. Callers hold mu.
func (l *Limiter) evict(now time.Time) {
	for key, b := range l.buckets {
		if now.After(b.resetAt) {
			delete(l.buckets, key)
		}
	}
}

// Middleware rejects requests over the cap with 429.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(clientIP(r)) {
			response.Error(w, http.StatusTooManyRequests, "Too many attempts. Please wait a minute and try again.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
