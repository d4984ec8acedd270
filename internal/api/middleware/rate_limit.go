package middleware

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"attendr/internal/pkg/errors"
	"attendr/internal/platform/config"
)

type RateLimiter struct {
	store *sync.Map // map[string]*Bucket
}

type Bucket struct {
	tokens     int
	lastRefill time.Time
	mu         sync.Mutex
	lastAccess time.Time
}

// Requests per minute per client IP.
var rateLimits = map[string]int{
	"login":     10,
	"scan":      120,
	"card":      30,
	"api_write": 100,
}

var limitsMu sync.RWMutex

// ConfigureRateLimits overrides the per-minute limits with the positive
// values of cfg.
func ConfigureRateLimits(cfg config.RateLimitConfig) {
	limitsMu.Lock()
	defer limitsMu.Unlock()
	for name, v := range map[string]int{
		"login":     cfg.LoginPerMinute,
		"scan":      cfg.ScanPerMinute,
		"card":      cfg.CardPerMinute,
		"api_write": cfg.APIWritePerMinute,
	} {
		if v > 0 {
			rateLimits[name] = v
		}
	}
}

func limitFor(limitType string) int {
	limitsMu.RLock()
	defer limitsMu.RUnlock()
	if limit, ok := rateLimits[limitType]; ok {
		return limit
	}
	return 100
}

func NewRateLimiter() *RateLimiter {
	rl := &RateLimiter{
		store: &sync.Map{},
	}

	go rl.cleanupLoop()

	return rl
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		rl.store.Range(func(key, value interface{}) bool {
			bucket := value.(*Bucket)
			bucket.mu.Lock()
			if now.Sub(bucket.lastAccess) > 10*time.Minute {
				rl.store.Delete(key)
			}
			bucket.mu.Unlock()
			return true
		})
	}
}

func (rl *RateLimiter) Allow(key string, limit int) bool {
	now := time.Now()

	val, _ := rl.store.LoadOrStore(key, &Bucket{
		tokens:     limit,
		lastRefill: now,
		lastAccess: now,
	})

	bucket := val.(*Bucket)
	bucket.mu.Lock()
	defer bucket.mu.Unlock()

	bucket.lastAccess = now

	// refill at limit per 60 seconds
	elapsed := now.Sub(bucket.lastRefill)
	refillTokens := int(elapsed.Seconds() * float64(limit) / 60.0)

	if refillTokens > 0 {
		if bucket.tokens+refillTokens > limit {
			bucket.tokens = limit
		} else {
			bucket.tokens += refillTokens
		}
		bucket.lastRefill = now
	}

	if bucket.tokens > 0 {
		bucket.tokens--
		return true
	}

	return false
}

var GlobalRateLimiter = NewRateLimiter()

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func RateLimit(limitType string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			key := fmt.Sprintf("%s:%s", clientIP(r), limitType)

			if !GlobalRateLimiter.Allow(key, limitFor(limitType)) {
				w.Header().Set("Retry-After", "60")
				errors.WriteError(w, http.StatusTooManyRequests, errors.ErrCodeRateLimitExceeded, "Rate limit exceeded", nil)
				return
			}

			next(w, r)
		}
	}
}
