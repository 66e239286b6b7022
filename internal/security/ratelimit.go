package security

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// RateLimiter allows each client a fixed number of requests per window.
// Clients are keyed by IP; chi's RealIP middleware has already resolved it.
type RateLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	clients map[string]*clientWindow

	stop     chan struct{}
	stopOnce sync.Once
}

type clientWindow struct {
	start time.Time
	used  int
}

// NewRateLimiter creates a limiter allowing limit requests per window and
// starts a janitor that forgets idle clients. Close stops the janitor.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		clients: make(map[string]*clientWindow),
		stop:    make(chan struct{}),
	}
	go rl.janitor()
	return rl
}

// Middleware answers with onLimited once a client has used up its window
func (rl *RateLimiter) Middleware(onLimited http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.Allow(GetClientIP(r)) {
				onLimited(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Allow records a request from key and reports whether it fits the window
func (rl *RateLimiter) Allow(key string) bool {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	cw, ok := rl.clients[key]
	if !ok || now.Sub(cw.start) >= rl.window {
		cw = &clientWindow{start: now}
		rl.clients[key] = cw
	}
	if cw.used >= rl.limit {
		return false
	}
	cw.used++
	return true
}

// Close stops the janitor goroutine
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) janitor() {
	ticker := time.NewTicker(rl.window * 2)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.sweep()
		}
	}
}

// sweep drops clients whose window ended more than a window ago
func (rl *RateLimiter) sweep() {
	cutoff := rl.now().Add(-2 * rl.window)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, cw := range rl.clients {
		if cw.start.Before(cutoff) {
			delete(rl.clients, key)
		}
	}
}

// GetClientIP returns the host part of RemoteAddr
func GetClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
