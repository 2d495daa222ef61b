// -----------------------------------------------------------------------
// Rate Limiting - Per-Client Token Bucket
// -----------------------------------------------------------------------
//
// Package ratelimit provides optional per-client rate limiting for the
// telemetry path. Every scrape runs a full collection, so a misbehaving
// client hammering the endpoint can be throttled without affecting other
// scrapers. Idle client entries are cleaned up periodically.
//
// -----------------------------------------------------------------------

package ratelimit

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

func logr() *slog.Logger { return slog.Default().With("component", "ratelimit") }

// -----------------------------------------------------------------------
// Types
// -----------------------------------------------------------------------

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Manager coordinates per-client rate limiters and cleanup.
type Manager struct {
	mu               sync.Mutex
	limiters         map[string]*clientLimiter
	requestsPerSec   float64
	burstSize        int
	cleanupIdleAfter time.Duration

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// -----------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------

// New creates a rate limit manager and starts its cleanup goroutine.
// Call Stop to release the goroutine.
//
// Example: New(1, 5) = 1 scrape/sec per client, burst of 5
func New(requestsPerSec float64, burstSize int) *Manager {
	return newManager(requestsPerSec, burstSize, 5*time.Minute, 10*time.Minute)
}

func newManager(requestsPerSec float64, burstSize int, cleanupInterval, idleAfter time.Duration) *Manager {
	m := &Manager{
		limiters:         make(map[string]*clientLimiter),
		requestsPerSec:   requestsPerSec,
		burstSize:        burstSize,
		cleanupIdleAfter: idleAfter,
		stop:             make(chan struct{}),
		done:             make(chan struct{}),
	}

	go m.cleanupLoop(cleanupInterval)

	return m
}

// Stop terminates the cleanup goroutine. It is safe to call more than once.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
	<-m.done
}

// -----------------------------------------------------------------------
// Rate Limit Check
// -----------------------------------------------------------------------

// Allow reports whether a request from client is within its limit.
func (m *Manager) Allow(client string) bool {
	return m.getLimiter(client).Allow()
}

// getLimiter returns the limiter for client, creating one on first sight.
func (m *Manager) getLimiter(client string) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cl, ok := m.limiters[client]; ok {
		cl.lastSeen = time.Now()
		return cl.limiter
	}

	l := rate.NewLimiter(rate.Limit(m.requestsPerSec), m.burstSize)
	m.limiters[client] = &clientLimiter{limiter: l, lastSeen: time.Now()}

	logr().Debug("created limiter for client",
		"client", client,
		"rate", fmt.Sprintf("%g/sec", m.requestsPerSec),
		"burst", m.burstSize,
	)

	return l
}

// Clients returns the number of tracked clients.
func (m *Manager) Clients() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.limiters)
}

// -----------------------------------------------------------------------
// Cleanup
// -----------------------------------------------------------------------

func (m *Manager) cleanupLoop(interval time.Duration) {
	defer close(m.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanup(time.Now())
		case <-m.stop:
			return
		}
	}
}

// cleanup removes clients not seen since cleanupIdleAfter before now.
func (m *Manager) cleanup(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for client, entry := range m.limiters {
		if now.Sub(entry.lastSeen) > m.cleanupIdleAfter {
			delete(m.limiters, client)
			removed++
		}
	}

	if removed > 0 {
		logr().Debug("cleanup: removed idle clients",
			"count", removed,
			"remaining", len(m.limiters),
		)
	}
}

// -----------------------------------------------------------------------
// HTTP Middleware
// -----------------------------------------------------------------------

// Middleware rejects requests over the client's limit with 429.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := ClientKey(r)

		if !m.Allow(client) {
			w.Header().Set("Retry-After", "1")

			logr().Warn("rate limit exceeded",
				"client", client,
				"method", r.Method,
				"path", r.URL.Path,
			)

			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ClientKey identifies the client by the host part of RemoteAddr.
// Forwarding headers are not trusted; run chi's RealIP in front if the
// exporter sits behind a proxy.
func ClientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
