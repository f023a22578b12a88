package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/HammerMeetNail/campusconnect/internal/handlers"
	"github.com/HammerMeetNail/campusconnect/internal/logging"
)

// windowCounter increments the counter for key and returns the new count.
// Keys are already scoped to one window; window is how long the key may live.
type windowCounter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

type redisCounter struct {
	client *redis.Client
}

func (c redisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := c.client.Pipeline()
	incrCmd := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incrCmd.Val(), nil
}

type RateLimiter struct {
	counter  windowCounter
	limit    int
	window   time.Duration
	prefix   string
	keyFunc  func(*http.Request) string
	failOpen bool
	now      func() time.Time
}

// NewRateLimiter builds a fixed-window limiter. A nil redisClient disables
// counting; failOpen decides whether requests then pass or get a 503.
func NewRateLimiter(redisClient *redis.Client, limit int, window time.Duration, prefix string, keyFunc func(*http.Request) string, failOpen bool) *RateLimiter {
	rl := &RateLimiter{
		limit:    limit,
		window:   window,
		prefix:   prefix,
		keyFunc:  keyFunc,
		failOpen: failOpen,
		now:      time.Now,
	}
	if redisClient != nil {
		rl.counter = redisCounter{client: redisClient}
	}
	if rl.keyFunc == nil {
		rl.keyFunc = GetClientIP
	}
	return rl
}

// NewSendRateLimiter limits how many connection requests one party may send.
func NewSendRateLimiter(redisClient *redis.Client, limit int, window time.Duration) *RateLimiter {
	return NewRateLimiter(redisClient, limit, window, "ratelimit:send:", PartyKey, true)
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.counter == nil {
			rl.unavailable(w, r, next, nil)
			return
		}

		key := rl.prefix + rl.keyFunc(r)
		allowed, remaining, resetTime, err := rl.isAllowed(r.Context(), key)
		if err != nil {
			rl.unavailable(w, r, next, err)
			return
		}

		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", rl.limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", resetTime))

		if !allowed {
			retryAfter := resetTime - rl.now().Unix()
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
			writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) unavailable(w http.ResponseWriter, r *http.Request, next http.Handler, err error) {
	if err != nil {
		logging.Warn("Rate limiter unavailable", map[string]interface{}{
			"prefix":    rl.prefix,
			"path":      r.URL.Path,
			"error":     err.Error(),
			"fail_open": rl.failOpen,
		})
	}
	if rl.failOpen {
		next.ServeHTTP(w, r)
		return
	}
	writeError(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
}

func (rl *RateLimiter) isAllowed(ctx context.Context, key string) (allowed bool, remaining int, resetTime int64, err error) {
	windowStart := rl.now().Truncate(rl.window)
	windowEnd := windowStart.Add(rl.window)

	count, err := rl.counter.Incr(ctx, windowKey(key, windowStart), rl.window)
	if err != nil {
		return true, rl.limit, windowEnd.Unix(), err
	}

	remaining = rl.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return int(count) <= rl.limit, remaining, windowEnd.Unix(), nil
}

// windowKey buckets key by window so each window starts from zero no matter
// how often a limited caller retries.
func windowKey(key string, windowStart time.Time) string {
	return key + ":" + strconv.FormatInt(windowStart.Unix(), 10)
}

// PartyKey keys limits by the authenticated caller, falling back to the
// client IP.
func PartyKey(r *http.Request) string {
	if party, ok := handlers.GetPartyFromContext(r.Context()); ok {
		return party.Key()
	}
	return "ip:" + GetClientIP(r)
}

func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if ip, _, err := net.SplitHostPort(first); err == nil {
			return ip
		}
		return first
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
