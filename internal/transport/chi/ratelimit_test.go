package chi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func doLimited(h http.Handler, remote, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/generate", http.NoBody)
	req.RemoteAddr = remote
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRateLimitMiddleware_Disabled(t *testing.T) {
	h := RateLimitMiddleware(0, 0)(okHandler())
	for range 20 {
		if rr := doLimited(h, "10.0.0.1:1234", ""); rr.Code != http.StatusOK {
			t.Fatalf("got %d, want 200", rr.Code)
		}
	}
}

func TestRateLimitMiddleware_Burst(t *testing.T) {
	// One token per hour: only the burst gets through.
	h := RateLimitMiddleware(1.0/3600, 2)(okHandler())

	for i := range 2 {
		if rr := doLimited(h, "10.0.0.1:1234", ""); rr.Code != http.StatusOK {
			t.Fatalf("request %d: got %d, want 200", i, rr.Code)
		}
	}

	rr := doLimited(h, "10.0.0.1:5678", "")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("got %d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
	var errResp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if errResp.Code != ErrorCodeRateLimited {
		t.Errorf("code: got %s, want %s", errResp.Code, ErrorCodeRateLimited)
	}

	// Other clients have their own bucket.
	if rr := doLimited(h, "10.0.0.2:1234", ""); rr.Code != http.StatusOK {
		t.Errorf("other ip: got %d, want 200", rr.Code)
	}
	// A verified key gets its own bucket.
	keyed := BearerAuthMiddleware([]string{"k1"})(h)
	if rr := doLimited(keyed, "10.0.0.1:1234", "Bearer k1"); rr.Code != http.StatusOK {
		t.Errorf("api key client: got %d, want 200", rr.Code)
	}
}

func TestRateLimitMiddleware_UnverifiedTokensShareIPBucket(t *testing.T) {
	// Auth disabled: Authorization headers are not verified.
	h := BearerAuthMiddleware(nil)(RateLimitMiddleware(1.0/3600, 1)(okHandler()))

	allowed := 0
	for i := range 50 {
		if rr := doLimited(h, "10.0.0.1:1234", fmt.Sprintf("Bearer fake-%d", i)); rr.Code == http.StatusOK {
			allowed++
		}
	}
	if allowed != 1 {
		t.Errorf("rotating tokens: %d/50 allowed, want 1", allowed)
	}
}

func TestRateLimitMiddleware_SingleBucketPerIP(t *testing.T) {
	l := newRateLimiter(1, 1)
	h := BearerAuthMiddleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l.allow(clientKey(r))
		w.WriteHeader(http.StatusOK)
	}))
	for i := range 20 {
		doLimited(h, "10.0.0.1:1234", fmt.Sprintf("Bearer fake-%d", i))
	}
	if len(l.visitors) != 1 {
		t.Errorf("expected 1 visitor, got %d", len(l.visitors))
	}
}

func TestClientKey(t *testing.T) {
	tests := []struct {
		name     string
		remote   string
		auth     string
		verified string
		want     string
	}{
		{"ip with port", "192.168.1.5:4000", "", "", "ip:192.168.1.5"},
		{"ip without port", "192.168.1.5", "", "", "ip:192.168.1.5"},
		{"verified key", "192.168.1.5:4000", "Bearer abc", "abc", "key:abc"},
		{"unverified bearer falls back to ip", "192.168.1.5:4000", "Bearer abc", "", "ip:192.168.1.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			req.RemoteAddr = tt.remote
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			if tt.verified != "" {
				req = req.WithContext(context.WithValue(req.Context(), apiKeyCtxKey{}, tt.verified))
			}
			if got := clientKey(req); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRateLimiter_EvictsIdleVisitors(t *testing.T) {
	l := newRateLimiter(1, 1)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.allow("a")
	l.allow("b")
	if len(l.visitors) != 2 {
		t.Fatalf("expected 2 visitors, got %d", len(l.visitors))
	}

	now = now.Add(visitorIdleTTL + 2*time.Minute)
	l.allow("c")
	if len(l.visitors) != 1 {
		t.Errorf("idle visitors not evicted, got %d", len(l.visitors))
	}
}
