package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func fixedLimiter(perMinute int, now *time.Time) *Limiter {
	rl := NewLimiter(Config{RequestsPerMinute: perMinute, CleanupInterval: time.Hour})
	rl.now = func() time.Time { return *now }
	return rl
}

func TestAllowEnforcesLimitPerClient(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := fixedLimiter(3, &now)
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		if !rl.Allow("a") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("a") {
		t.Fatal("4th request should be limited")
	}
	if !rl.Allow("b") {
		t.Fatal("other clients are unaffected")
	}

	now = now.Add(61 * time.Second)
	if !rl.Allow("a") {
		t.Fatal("a quiet minute should reset the counter")
	}
	if got := rl.GetMetrics(); got.TotalHits != 1 || got.ClientCount != 2 {
		t.Fatalf("metrics = %+v", got)
	}
}

func TestCleanupDropsStaleClients(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := fixedLimiter(10, &now)
	defer rl.Stop()

	rl.Allow("old")
	now = now.Add(11 * time.Minute)
	rl.Allow("fresh")
	rl.cleanupStaleEntries()

	if rl.ActiveClients() != 1 {
		t.Fatalf("active clients = %d, want 1", rl.ActiveClients())
	}
}

func TestMiddlewareRejectsOverLimit(t *testing.T) {
	now := time.Now()
	rl := fixedLimiter(1, &now)
	defer rl.Stop()
	rl.Stop()

	h := rl.Middleware(func(*http.Request) string { return "ip" }, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	codes := []int{}
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusNoContent || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}
}

func TestWritesHaveTheirOwnBudget(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewLimiter(Config{RequestsPerMinute: 5, WritesPerMinute: 2, CleanupInterval: time.Hour})
	rl.now = func() time.Time { return now }
	defer rl.Stop()

	if !rl.AllowWrite("a") || !rl.AllowWrite("a") {
		t.Fatal("first two writes should be allowed")
	}
	if rl.AllowWrite("a") {
		t.Fatal("3rd write should be limited")
	}
	if !rl.Allow("a") {
		t.Fatal("reads are not charged for writes")
	}
	if got := rl.GetMetrics(); got.WriteHits != 1 || got.TotalHits != 1 {
		t.Fatalf("metrics = %+v", got)
	}
}

func TestRetryAfterCountsDownTheWindow(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := fixedLimiter(1, &now)
	defer rl.Stop()

	h := rl.Middleware(func(*http.Request) string { return "ip" }, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	now = now.Add(45 * time.Second)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("code = %d, want 429", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "15" {
		t.Fatalf("Retry-After = %q, want 15", got)
	}
}
