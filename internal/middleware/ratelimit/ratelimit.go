// Package ratelimit caps requests per client in one-minute windows. Reads and
// writes have separate budgets because every write reloads and republishes the
// owner's snapshot.
package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

const (
	window     = time.Minute
	staleAfter = 10 * time.Minute
)

// Limiter tracks a read and a write budget per client.
type Limiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
	now          func() time.Time

	readHits  int64
	writeHits int64

	readsPerMinute  int
	writesPerMinute int
	cleanupInterval time.Duration
}

type clientInfo struct {
	windowStart time.Time
	lastRequest time.Time
	reads       int
	writes      int
}

// Config holds rate limiter configuration. RequestsPerMinute is the read budget.
type Config struct {
	RequestsPerMinute int
	WritesPerMinute   int
	CleanupInterval   time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 120,
		WritesPerMinute:   30,
		CleanupInterval:   5 * time.Minute,
	}
}

// Metrics for monitoring rate limit performance
type Metrics struct {
	TotalHits   int64 `json:"total_hits"`
	WriteHits   int64 `json:"write_hits"`
	ClientCount int64 `json:"client_count"`
}

// NewLimiter creates a limiter and starts its cleanup goroutine; call Stop to end it.
func NewLimiter(config Config) *Limiter {
	def := DefaultConfig()
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = def.RequestsPerMinute
	}
	if config.WritesPerMinute <= 0 {
		config.WritesPerMinute = def.WritesPerMinute
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = def.CleanupInterval
	}

	rl := &Limiter{
		clients:         make(map[string]*clientInfo),
		stopCleanup:     make(chan struct{}),
		now:             time.Now,
		readsPerMinute:  config.RequestsPerMinute,
		writesPerMinute: config.WritesPerMinute,
		cleanupInterval: config.CleanupInterval,
	}
	go rl.startCleanup()
	return rl
}

// Allow reports whether a read from clientIP fits its budget.
func (rl *Limiter) Allow(clientIP string) bool {
	ok, _ := rl.take(clientIP, false)
	return ok
}

// AllowWrite reports whether a write from clientIP fits its budget.
func (rl *Limiter) AllowWrite(clientIP string) bool {
	ok, _ := rl.take(clientIP, true)
	return ok
}

// take counts one request and, when refused, returns how long until the
// client's window resets.
func (rl *Limiter) take(clientIP string, write bool) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	client, exists := rl.clients[clientIP]
	if !exists {
		client = &clientInfo{windowStart: now}
		rl.clients[clientIP] = client
	}
	if now.Sub(client.windowStart) >= window {
		client.windowStart = now
		client.reads, client.writes = 0, 0
	}
	client.lastRequest = now

	if write {
		client.writes++
		if client.writes > rl.writesPerMinute {
			atomic.AddInt64(&rl.writeHits, 1)
			return false, client.windowStart.Add(window).Sub(now)
		}
		return true, 0
	}
	client.reads++
	if client.reads > rl.readsPerMinute {
		atomic.AddInt64(&rl.readHits, 1)
		return false, client.windowStart.Add(window).Sub(now)
	}
	return true, 0
}

func (rl *Limiter) startCleanup() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries forgets clients idle for longer than staleAfter.
func (rl *Limiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-staleAfter)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

// ActiveClients returns the number of currently tracked clients
func (rl *Limiter) ActiveClients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// Stop ends the cleanup goroutine. Safe to call more than once.
func (rl *Limiter) Stop() {
	rl.shutdownOnce.Do(func() {
		close(rl.stopCleanup)
	})
}

// GetMetrics returns current rate limiting metrics
func (rl *Limiter) GetMetrics() Metrics {
	writes := atomic.LoadInt64(&rl.writeHits)
	return Metrics{
		TotalHits:   atomic.LoadInt64(&rl.readHits) + writes,
		WriteHits:   writes,
		ClientCount: int64(rl.ActiveClients()),
	}
}

// Middleware refuses requests over budget with 429 and a Retry-After header.
// POST, PUT, PATCH and DELETE draw on the write budget.
func (rl *Limiter) Middleware(extractIP func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, retry := rl.take(extractIP(r), isWrite(r.Method))
			if !ok {
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
				if onLimit != nil {
					onLimit(w, r)
				} else {
					http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				}
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
