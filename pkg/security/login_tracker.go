package security

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cv-platform-backend/pkg/redis"

	goredis "github.com/redis/go-redis/v9"
)

// ErrTrackerUnavailable is returned when attempts cannot be recorded because Redis is not connected.
var ErrTrackerUnavailable = errors.New("redis not available for login tracking")

// LockoutConfig controls failed-login counting. Attempts are counted per e-mail and per client IP;
// a subject that reaches its limit within Window is locked out for BlockDuration.
type LockoutConfig struct {
	MaxAttempts   int
	IPMaxAttempts int // 0 disables the per-IP lockout
	Window        time.Duration
	BlockDuration time.Duration
}

// DefaultLockoutConfig allows 5 failures per e-mail and 20 per IP in 15 minutes.
func DefaultLockoutConfig() LockoutConfig {
	return LockoutConfig{
		MaxAttempts:   5,
		IPMaxAttempts: 20,
		Window:        15 * time.Minute,
		BlockDuration: 15 * time.Minute,
	}
}

// LoginTracker implements domain.LoginGuard on Redis.
// Without a connected client it never blocks anyone.
type LoginTracker struct {
	cfg    LockoutConfig
	events *SecurityLogger
	client func() *goredis.Client
}

type TrackerOption func(*LoginTracker)

// WithRedisClient overrides the client provider, which defaults to the shared pkg/redis client.
func WithRedisClient(provider func() *goredis.Client) TrackerOption {
	return func(lt *LoginTracker) { lt.client = provider }
}

func NewLoginTracker(cfg LockoutConfig, events *SecurityLogger, opts ...TrackerOption) *LoginTracker {
	if events == nil {
		events = NopLogger()
	}
	lt := &LoginTracker{cfg: cfg, events: events, client: redis.Client}
	for _, opt := range opts {
		opt(lt)
	}
	return lt
}

// lockoutScript counts one failure and, once the limit is hit, swaps the counter for a lock.
//
//	KEYS[1] attempt counter, KEYS[2] lock
//	ARGV[1] window ms, ARGV[2] limit, ARGV[3] lock ms
//	returns {attempts, locked}
var lockoutScript = goredis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
if n >= tonumber(ARGV[2]) then
	redis.call('SET', KEYS[2], '1', 'PX', ARGV[3])
	redis.call('DEL', KEYS[1])
	return {n, 1}
end
return {n, 0}
`)

const keyPrefix = "cvp:login:"

// subject is one dimension attempts are counted on.
type subject struct {
	kind  string // "email" or "ip"
	value string
	limit int
}

func (s subject) attemptsKey() string { return keyPrefix + "attempts:" + s.kind + ":" + s.value }
func (s subject) lockKey() string     { return keyPrefix + "lock:" + s.kind + ":" + s.value }

func (lt *LoginTracker) subjects(email, ip string) []subject {
	subs := []subject{{kind: "email", value: email, limit: lt.cfg.MaxAttempts}}
	if ip != "" && lt.cfg.IPMaxAttempts > 0 {
		subs = append(subs, subject{kind: "ip", value: ip, limit: lt.cfg.IPMaxAttempts})
	}
	return subs
}

// IsBlocked reports whether the e-mail or the IP is locked out.
func (lt *LoginTracker) IsBlocked(ctx context.Context, email, ip string) (bool, error) {
	client := lt.client()
	if client == nil {
		return false, nil
	}

	subs := lt.subjects(email, ip)
	keys := make([]string, 0, len(subs))
	for _, s := range subs {
		keys = append(keys, s.lockKey())
	}
	n, err := client.Exists(ctx, keys...).Result()
	if err != nil {
		return false, fmt.Errorf("check login lock: %w", err)
	}
	return n > 0, nil
}

// RecordFailedAttempt counts a failure against the e-mail and the IP.
// It returns whether either is now locked and the e-mail's attempt count.
func (lt *LoginTracker) RecordFailedAttempt(ctx context.Context, email, ip, userAgent, requestID string) (bool, int, error) {
	lt.events.LogLoginFailed(ctx, email, ip, userAgent, requestID, "invalid_credentials")

	client := lt.client()
	if client == nil {
		return false, 0, ErrTrackerUnavailable
	}

	var (
		locked   bool
		attempts int
	)
	for _, s := range lt.subjects(email, ip) {
		res, err := lockoutScript.Run(ctx, client,
			[]string{s.attemptsKey(), s.lockKey()},
			lt.cfg.Window.Milliseconds(), s.limit, lt.cfg.BlockDuration.Milliseconds(),
		).Int64Slice()
		if err != nil {
			return locked, attempts, fmt.Errorf("record %s attempt: %w", s.kind, err)
		}
		if len(res) != 2 {
			return locked, attempts, fmt.Errorf("record %s attempt: unexpected reply %v", s.kind, res)
		}

		if s.kind == "email" {
			attempts = int(res[0])
		}
		if res[1] == 1 {
			locked = true
			lt.events.LogBlockCreated(ctx, s.kind, s.value, ip, requestID, int(lt.cfg.BlockDuration.Minutes()))
		}
	}
	return locked, attempts, nil
}

// ClearAttempts resets the e-mail counter after a successful login. The IP counter is left to expire.
func (lt *LoginTracker) ClearAttempts(ctx context.Context, email, _ string) error {
	client := lt.client()
	if client == nil {
		return nil
	}
	if err := client.Del(ctx, lt.subjects(email, "")[0].attemptsKey()).Err(); err != nil {
		return fmt.Errorf("clear login attempts: %w", err)
	}
	return nil
}
