package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrSnakeDoc/dockmetrics/internal/logger"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func TestRateLimit(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	h := RateLimit(RateLimitConfig{
		Burst:             2,
		RefillPerIPPerMin: 60,
		Now:               func() time.Time { return now },
	})(ok)

	do := func(remote string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/", nil)
		r.RemoteAddr = remote
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w
	}

	for i := 0; i < 2; i++ {
		if w := do("192.0.2.1:1000"); w.Code != http.StatusNoContent {
			t.Fatalf("request %d status = %d", i, w.Code)
		}
	}
	w := do("192.0.2.1:1000")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("third request status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") != "1" {
		t.Errorf("Retry-After = %q, want 1", w.Header().Get("Retry-After"))
	}

	// other clients have their own bucket
	if w := do("192.0.2.2:1000"); w.Code != http.StatusNoContent {
		t.Errorf("other client status = %d", w.Code)
	}

	now = now.Add(time.Second)
	if w := do("192.0.2.1:1000"); w.Code != http.StatusNoContent {
		t.Errorf("status after refill = %d", w.Code)
	}
}

func TestAllowOnlyCIDRS(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		remote  string
		want    int
	}{
		{name: "empty list passes", allowed: nil, remote: "203.0.113.1:1", want: http.StatusNoContent},
		{name: "inside prefix", allowed: []string{"10.0.0.0/8"}, remote: "10.1.2.3:1", want: http.StatusNoContent},
		{name: "outside prefix", allowed: []string{"10.0.0.0/8"}, remote: "203.0.113.1:1", want: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := AllowOnlyCIDRS(tt.allowed, false, logger.NewNop())(ok)
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestEnforceHost(t *testing.T) {
	tests := []struct {
		host string
		want int
	}{
		{"metrics.example.org", http.StatusNoContent},
		{"metrics.example.org:8443", http.StatusNoContent},
		{"api.internal.example.net", http.StatusNoContent},
		{"internal.example.net", http.StatusForbidden},
		{"evil.org", http.StatusForbidden},
	}

	h := EnforceHost([]string{"metrics.example.org", "*.internal.example.net"}, logger.NewNop())(ok)
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Host = tt.host
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}
