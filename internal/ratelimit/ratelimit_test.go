package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestStore_GetSameKeyReturnsSameLimiter(t *testing.T) {
	s := NewStore(10, 1, time.Minute)

	if s.Get("k") != s.Get("k") {
		t.Fatalf("expected same limiter pointer for same key")
	}
	if s.Get("k") == s.Get("other") {
		t.Fatalf("expected distinct limiters per key")
	}
}

func TestStore_LowBurstRejectsSecondImmediateAllow(t *testing.T) {
	s := NewStore(0.02, 1, time.Minute)

	lim := s.Get("k")
	if !lim.Allow() {
		t.Fatalf("expected first Allow to be true")
	}
	if lim.Allow() {
		t.Fatalf("expected second immediate Allow to be false (burst=1)")
	}
}

func TestStore_CleanupRemovesIdleEntries(t *testing.T) {
	s := NewStore(10, 1, 2*time.Millisecond)

	before := s.Get("k")
	time.Sleep(5 * time.Millisecond)
	s.Cleanup()

	if s.Len() != 0 {
		t.Fatalf("expected idle entry removed, have %d", s.Len())
	}
	if after := s.Get("k"); before == after {
		t.Fatalf("expected limiter to be recreated after cleanup")
	}
}

func TestStartJanitor_StopsWithContext(t *testing.T) {
	s := NewStore(10, 1, time.Millisecond)
	s.Get("k")

	ctx, cancel := context.WithCancel(context.Background())
	done := s.StartJanitor(ctx, 2*time.Millisecond)

	deadline := time.Now().Add(time.Second)
	for s.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	if s.Len() != 0 {
		t.Fatalf("janitor did not clean idle entries")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("janitor did not stop")
	}
}

func TestMiddleware_AllowsThenRejectsSameKey(t *testing.T) {
	calls := 0
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	})
	h := Middleware(NewStore(0.02, 1, time.Minute), nil, 2500*time.Millisecond, nil)(next)

	r1 := httptest.NewRequest(http.MethodPost, "http://example/v1/applications", nil)
	r1.RemoteAddr = "10.0.0.1:1234"
	w1 := httptest.NewRecorder()
	h.ServeHTTP(w1, r1)
	if w1.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w1.Code)
	}

	r2 := httptest.NewRequest(http.MethodPost, "http://example/v1/applications", nil)
	r2.RemoteAddr = "10.0.0.1:4321"
	w2 := httptest.NewRecorder()
	h.ServeHTTP(w2, r2)
	if w2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w2.Code)
	}
	if got := w2.Header().Get("Retry-After"); got != "2" {
		t.Fatalf("expected Retry-After=2, got %q", got)
	}

	r3 := httptest.NewRequest(http.MethodPost, "http://example/v1/applications", nil)
	r3.RemoteAddr = "10.0.0.2:1234"
	w3 := httptest.NewRecorder()
	h.ServeHTTP(w3, r3)
	if w3.Code != http.StatusOK {
		t.Fatalf("expected other client allowed, got %d", w3.Code)
	}

	if calls != 2 {
		t.Fatalf("expected next handler to be called twice, got %d", calls)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name     string
		trustXFF bool
		remote   string
		xff      string
		want     string
	}{
		{"RemoteHost", false, "10.0.0.9:5555", "", "10.0.0.9"},
		{"IgnoreXFFWhenUntrusted", false, "10.0.0.9:5555", "1.2.3.4", "10.0.0.9"},
		{"FirstXFF", true, "10.0.0.9:5555", "1.2.3.4, 5.6.7.8", "1.2.3.4"},
		{"EmptyXFFFallsBack", true, "10.0.0.9:5555", " ", "10.0.0.9"},
		{"NoPort", false, "10.0.0.9", "", "10.0.0.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := ClientIP(tt.trustXFF)(r); got != tt.want {
				t.Fatalf("got %q want %q", got, tt.want)
			}
		})
	}
}
