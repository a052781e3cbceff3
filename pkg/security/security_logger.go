package security

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type EventType string

const (
	EventUserRegistered     EventType = "user_registered"
	EventLoginFailed        EventType = "login_failed"
	EventLoginBlocked       EventType = "login_blocked"
	EventLoginSuccess       EventType = "login_success"
	EventRateLimitTriggered EventType = "rate_limit_triggered"
	EventUnauthorizedAccess EventType = "unauthorized_access"
	EventForbiddenAccess    EventType = "forbidden_access"
	EventBlockCreated       EventType = "block_created"
)

// level is the severity each event is written at; unlisted events are warnings.
var level = map[EventType]zapcore.Level{
	EventUserRegistered: zapcore.InfoLevel,
	EventLoginSuccess:   zapcore.InfoLevel,
	EventLoginBlocked:   zapcore.ErrorLevel,
	EventBlockCreated:   zapcore.ErrorLevel,
}

// Subject identifies who an event is about. Values are masked or hashed before they are written.
type Subject struct {
	Kind  string // "email", "ip" or "user_id"
	Value string
}

func (s Subject) masked() string {
	switch s.Kind {
	case "email":
		return MaskEmail(s.Value)
	case "ip":
		return s.Value
	default:
		return HashValue(s.Value)
	}
}

// Request carries the per-request fields shared by most events.
type Request struct {
	IP        string
	UserAgent string
	ID        string
}

func (r Request) fields() []zap.Field {
	var fs []zap.Field
	if r.IP != "" {
		fs = append(fs, zap.String("ip", r.IP))
	}
	if r.UserAgent != "" {
		fs = append(fs, zap.String("user_agent", r.UserAgent))
	}
	if r.ID != "" {
		fs = append(fs, zap.String("request_id", r.ID))
	}
	return fs
}

// SecurityLogger writes auth and abuse events as structured zap entries, separate from the application log.
type SecurityLogger struct {
	zap *zap.Logger
}

// InitSecurityLogger builds the production JSON logger used for security events.
func InitSecurityLogger(serviceName, environment string) *SecurityLogger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.MessageKey = "event"
	cfg.OutputPaths = []string{"stdout"}

	l, err := cfg.Build()
	if err != nil {
		l = zap.NewExample()
	}
	return NewSecurityLogger(l, serviceName, environment)
}

func NewSecurityLogger(l *zap.Logger, serviceName, environment string) *SecurityLogger {
	return &SecurityLogger{zap: l.With(zap.String("service", serviceName), zap.String("env", environment))}
}

// NopLogger discards every event.
func NopLogger() *SecurityLogger {
	return &SecurityLogger{zap: zap.NewNop()}
}

func (sl *SecurityLogger) emit(_ context.Context, event EventType, who Subject, req Request, extra ...zap.Field) {
	lvl, ok := level[event]
	if !ok {
		lvl = zapcore.WarnLevel
	}
	ce := sl.zap.Check(lvl, string(event))
	if ce == nil {
		return
	}

	fields := make([]zap.Field, 0, 6+len(extra))
	if who.Kind != "" {
		fields = append(fields, zap.String("subject_type", who.Kind), zap.String("subject_value", who.masked()))
	}
	fields = append(fields, req.fields()...)
	ce.Write(append(fields, extra...)...)
}

func (sl *SecurityLogger) LogUserRegistered(ctx context.Context, userID, email, role string) {
	sl.emit(ctx, EventUserRegistered, Subject{"email", email}, Request{},
		zap.String("user_id", userID), zap.String("role", role))
}

func (sl *SecurityLogger) LogLoginSuccess(ctx context.Context, userID, email, ip, requestID string) {
	sl.emit(ctx, EventLoginSuccess, Subject{"email", email}, Request{IP: ip, ID: requestID},
		zap.String("user_id", userID))
}

func (sl *SecurityLogger) LogLoginFailed(ctx context.Context, email, ip, userAgent, requestID, reason string) {
	sl.emit(ctx, EventLoginFailed, Subject{"email", email}, Request{ip, userAgent, requestID},
		zap.String("reason", reason))
}

// LogLoginBlocked records a login refused because the e-mail or IP is locked out.
func (sl *SecurityLogger) LogLoginBlocked(ctx context.Context, email, ip, userAgent, requestID string) {
	sl.emit(ctx, EventLoginBlocked, Subject{"email", email}, Request{ip, userAgent, requestID})
}

func (sl *SecurityLogger) LogRateLimitTriggered(ctx context.Context, ip, userAgent, requestID, endpoint string) {
	sl.emit(ctx, EventRateLimitTriggered, Subject{"ip", ip}, Request{ip, userAgent, requestID},
		zap.String("endpoint", endpoint))
}

// LogAccessDenied records a 401 or 403 on a protected route. userID is empty when no one authenticated.
func (sl *SecurityLogger) LogAccessDenied(ctx context.Context, event EventType, userID, ip, requestID, endpoint, reason string) {
	who := Subject{"ip", ip}
	if userID != "" {
		who = Subject{"user_id", userID}
	}
	sl.emit(ctx, event, who, Request{IP: ip, ID: requestID},
		zap.String("endpoint", endpoint), zap.String("reason", reason))
}

func (sl *SecurityLogger) LogBlockCreated(ctx context.Context, kind, value, ip, requestID string, minutes int) {
	sl.emit(ctx, EventBlockCreated, Subject{kind, value}, Request{IP: ip, ID: requestID},
		zap.Int("duration_minutes", minutes))
}

func (sl *SecurityLogger) Sync() error {
	return sl.zap.Sync()
}

// MaskEmail keeps the first character of the local part: "jane@example.com" becomes "j***@example.com".
func MaskEmail(email string) string {
	at := strings.IndexByte(email, '@')
	switch {
	case at < 0 || len(email) < 3:
		return "***"
	case at <= 1:
		return "***" + email[at:]
	default:
		return email[:1] + "***" + email[at:]
	}
}

// HashValue returns a short stable digest for identifiers that must not be logged verbatim.
func HashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:8])
}
