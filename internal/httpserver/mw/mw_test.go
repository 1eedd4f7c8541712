package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrSnakeDoc/medic/internal/logger"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func TestMatchHost(t *testing.T) {
	tests := []struct {
		host, pattern string
		want          bool
	}{
		{"medic.local", "medic.local", true},
		{"medic.local:8080", "medic.local", true},
		{"Medic.Local", "medic.local", true},
		{"a.example.com", "*.example.com", true},
		{"example.com", "*.example.com", false},
		{"evilexample.com", "*.example.com", false},
		{"other.local", "medic.local", false},
	}
	for _, tt := range tests {
		if got := matchHost(tt.host, tt.pattern); got != tt.want {
			t.Errorf("matchHost(%q, %q) = %v, want %v", tt.host, tt.pattern, got, tt.want)
		}
	}
}

func TestGuard(t *testing.T) {
	tests := []struct {
		name   string
		access Access
		remote string
		host   string
		want   int
	}{
		{"no rules", Access{}, "192.0.2.1:1000", "x", http.StatusNoContent},
		{"ip allowed", Access{CIDRs: []string{"10.0.0.0/8"}}, "10.1.1.1:1000", "x", http.StatusNoContent},
		{"ip rejected", Access{CIDRs: []string{"10.0.0.0/8"}}, "192.0.2.1:1000", "x", http.StatusForbidden},
		{"host rejected", Access{Hosts: []string{"medic.local"}}, "10.1.1.1:1000", "other", http.StatusForbidden},
		{"both pass", Access{CIDRs: []string{"10.0.0.0/8"}, Hosts: []string{"*.local"}}, "10.1.1.1:1000", "medic.local", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/runs", nil)
			r.RemoteAddr = tt.remote
			r.Host = tt.host
			rec := httptest.NewRecorder()
			Guard(tt.access, logger.NewNop())(ok).ServeHTTP(rec, r)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRateLimit_RefillsOverTime(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var rejected []string
	h := RateLimit(RateLimitConfig{
		Burst:        2,
		RefillPerMin: 6, // one token every 10s
		OnReject:     func(ip string) { rejected = append(rejected, ip) },
		now:          func() time.Time { return now },
	})(ok)

	call := func(remote string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/webhook", nil)
		r.RemoteAddr = remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := call("10.0.0.1:1"); rec.Code != http.StatusNoContent {
			t.Fatalf("call %d: status = %d", i, rec.Code)
		}
	}
	rec := call("10.0.0.1:1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third call: status = %d, want 429", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "10" {
		t.Errorf("Retry-After = %q, want 10", got)
	}
	if len(rejected) != 1 || rejected[0] != "10.0.0.1" {
		t.Errorf("rejected = %v", rejected)
	}

	if rec := call("10.0.0.2:1"); rec.Code != http.StatusNoContent {
		t.Errorf("other client: status = %d, want 204", rec.Code)
	}

	now = now.Add(10 * time.Second)
	if rec := call("10.0.0.1:1"); rec.Code != http.StatusNoContent {
		t.Errorf("after refill: status = %d, want 204", rec.Code)
	}
}

func TestLimiter_DropsIdleBuckets(t *testing.T) {
	start := time.Now()
	l := newLimiter(RateLimitConfig{Burst: 1, RefillPerMin: 1, IdleTTL: time.Minute}, start)
	l.take("a", start)
	l.take("b", start.Add(2*time.Minute))
	if _, found := l.buckets["a"]; found {
		t.Error("idle bucket should be swept")
	}
	if len(l.buckets) != 1 {
		t.Errorf("buckets = %d, want 1", len(l.buckets))
	}
}
