package mw

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/MrSnakeDoc/medic/internal/utils"
)

// RateLimitConfig is a per-client token bucket: Burst requests at once, then
// RefillPerMin requests per minute.
type RateLimitConfig struct {
	Burst        int
	RefillPerMin int
	IdleTTL      time.Duration // buckets unused this long are dropped
	TrustProxy   bool
	OnReject     func(ip string) // optional

	now func() time.Time
}

type tokenBucket struct {
	tokens  float64
	updated time.Time
}

type limiter struct {
	mu        sync.Mutex
	rate      float64 // tokens per second
	capacity  float64
	idle      time.Duration
	buckets   map[string]*tokenBucket
	lastSweep time.Time
}

func newLimiter(cfg RateLimitConfig, now time.Time) *limiter {
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.RefillPerMin < 1 {
		cfg.RefillPerMin = 1
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 15 * time.Minute
	}
	return &limiter{
		rate:      float64(cfg.RefillPerMin) / 60.0,
		capacity:  float64(cfg.Burst),
		idle:      cfg.IdleTTL,
		buckets:   make(map[string]*tokenBucket),
		lastSweep: now,
	}
}

// take consumes one token for key. When none is left it reports how long
// until the next one.
func (l *limiter) take(key string, now time.Time) (remaining int, wait time.Duration, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= l.idle {
		for k, b := range l.buckets {
			if now.Sub(b.updated) > l.idle {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	b := l.buckets[key]
	if b == nil {
		b = &tokenBucket{tokens: l.capacity, updated: now}
		l.buckets[key] = b
	}
	if elapsed := now.Sub(b.updated).Seconds(); elapsed > 0 {
		b.tokens = math.Min(l.capacity, b.tokens+elapsed*l.rate)
		b.updated = now
	}

	if b.tokens >= 1 {
		b.tokens--
		return int(b.tokens), 0, true
	}
	return 0, time.Duration((1 - b.tokens) / l.rate * float64(time.Second)), false
}

// RateLimit answers 429 with Retry-After once a client has drained its bucket.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	now := cfg.now
	if now == nil {
		now = time.Now
	}
	l := newLimiter(cfg, now())
	limit := strconv.Itoa(int(l.capacity))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := utils.ClientIP(r, cfg.TrustProxy)
			remaining, wait, ok := l.take(ip, now())

			w.Header().Set("X-RateLimit-Limit", limit)
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			if !ok {
				retry := int(math.Ceil(wait.Seconds()))
				if retry < 1 {
					retry = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				if cfg.OnReject != nil {
					cfg.OnReject(ip)
				}
				writeError(w, http.StatusTooManyRequests, "rate limited")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
