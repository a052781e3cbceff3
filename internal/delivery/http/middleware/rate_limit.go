package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"cv-platform-backend/config"
	"cv-platform-backend/pkg/apperror"
	"cv-platform-backend/pkg/logger"
	"cv-platform-backend/pkg/redis"
	"cv-platform-backend/pkg/security"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
)

// RateLimitConfig is a fixed-window limit of Limit requests per Window for each key.
type RateLimitConfig struct {
	Limit     int
	Window    time.Duration
	KeyPrefix string
	// KeyFunc picks the bucket for a request; the client IP when nil.
	KeyFunc func(*gin.Context) string
	// Client supplies the Redis client per request; nil results use the in-process window.
	// Defaults to the shared pkg/redis client.
	Client func() *goredis.Client
	// FailClosed answers 503 instead of falling back to the in-process window when Redis errors.
	FailClosed bool
	Events     *security.SecurityLogger
}

func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Limit:     100,
		Window:    time.Minute,
		KeyPrefix: "cvp:rl:ip:",
	}
}

// AuthRateLimitConfig is the per-IP limit on the public /auth routes.
func AuthRateLimitConfig(cfg *config.Config) RateLimitConfig {
	rl := DefaultRateLimitConfig()
	rl.KeyPrefix = "cvp:rl:auth:"
	rl.Limit = 10
	rl.FailClosed = true
	if cfg != nil {
		if cfg.RateLimitAuthThreshold > 0 {
			rl.Limit = cfg.RateLimitAuthThreshold
		}
		if w := cfg.RateLimitWindow(); w > 0 {
			rl.Window = w
		}
	}
	return rl
}

// windowScript increments a window counter and returns {count, ms until reset}.
var windowScript = goredis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return {n, redis.call('PTTL', KEYS[1])}
`)

func redisWindowHit(ctx context.Context, client *goredis.Client, key string, size time.Duration, now time.Time) (int, time.Time, error) {
	res, err := windowScript.Run(ctx, client, []string{key}, size.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("rate limit script: %w", err)
	}
	if len(res) != 2 {
		return 0, time.Time{}, fmt.Errorf("rate limit script: unexpected reply %v", res)
	}
	ttl := time.Duration(res[1]) * time.Millisecond
	if ttl < 0 {
		ttl = size
	}
	return int(res[0]), now.Add(ttl), nil
}

const sweepInterval = 5 * time.Minute

type window struct {
	mu      sync.Mutex
	count   int
	resetAt time.Time
}

// localWindows is the in-process counter, one per middleware instance.
type localWindows struct {
	byKey     sync.Map // string -> *window
	lastSweep atomic.Int64
}

func (l *localWindows) hit(key string, size time.Duration, now time.Time) (int, time.Time) {
	l.sweep(now)

	v, _ := l.byKey.LoadOrStore(key, &window{resetAt: now.Add(size)})
	w := v.(*window)

	w.mu.Lock()
	defer w.mu.Unlock()
	if !now.Before(w.resetAt) {
		w.count, w.resetAt = 0, now.Add(size)
	}
	w.count++
	return w.count, w.resetAt
}

// sweep drops expired windows, at most once per sweepInterval.
func (l *localWindows) sweep(now time.Time) {
	last := l.lastSweep.Load()
	if now.UnixNano()-last < int64(sweepInterval) || !l.lastSweep.CompareAndSwap(last, now.UnixNano()) {
		return
	}
	l.byKey.Range(func(k, v any) bool {
		w := v.(*window)
		w.mu.Lock()
		if !now.Before(w.resetAt) {
			l.byKey.Delete(k)
		}
		w.mu.Unlock()
		return true
	})
}

// RateLimitMiddleware enforces cfg with Redis when a client is available, otherwise in process.
func RateLimitMiddleware(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}
	if cfg.Client == nil {
		cfg.Client = redis.Client
	}
	if cfg.Events == nil {
		cfg.Events = security.NopLogger()
	}
	local := &localWindows{}

	return func(c *gin.Context) {
		key := cfg.KeyPrefix + cfg.KeyFunc(c)
		now := time.Now()

		var (
			count   int
			resetAt time.Time
			err     error
		)
		if client := cfg.Client(); client != nil {
			count, resetAt, err = redisWindowHit(c.Request.Context(), client, key, cfg.Window, now)
		}
		switch {
		case err != nil && cfg.FailClosed:
			logger.Log.Error("Rate limit backend unavailable", "error", err)
			_ = c.Error(apperror.New(http.StatusServiceUnavailable, "Service temporarily unavailable. Please try again.", err))
			c.Abort()
			return
		case err != nil:
			logger.Log.Warn("Rate limit falling back to local window", "error", err)
			fallthrough
		case count == 0:
			count, resetAt = local.hit(key, cfg.Window, now)
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
		c.Header("X-RateLimit-Reset", resetAt.Format(time.RFC3339))

		if count <= cfg.Limit {
			c.Header("X-RateLimit-Remaining", strconv.Itoa(cfg.Limit-count))
			c.Next()
			return
		}

		retryAfter := max(int(resetAt.Sub(now).Seconds()), 1)
		c.Header("X-RateLimit-Remaining", "0")
		c.Header("Retry-After", strconv.Itoa(retryAfter))

		cfg.Events.LogRateLimitTriggered(c.Request.Context(), c.ClientIP(), c.GetHeader("User-Agent"), requestID(c), c.FullPath())
		_ = c.Error(apperror.TooManyRequests("Rate limit exceeded. Please try again later."))
		c.Abort()
	}
}
