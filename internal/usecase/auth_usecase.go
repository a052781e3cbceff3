package usecase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"sync"
	"time"

	"cv-platform-backend/internal/domain"
	"cv-platform-backend/pkg/apperror"
	"cv-platform-backend/pkg/auth"
	"cv-platform-backend/pkg/logger"
	"cv-platform-backend/pkg/security"

	"github.com/google/uuid"
)

const (
	msgInvalidCredentials = "Invalid credentials"
	msgSecretMissing      = "JWT secret not configured"
)

type authUsecase struct {
	userRepo domain.UserRepository
	tokens   *auth.TokenService
	hasher   *auth.PasswordHasher
	guard    domain.LoginGuard
	events   *security.SecurityLogger
	now      func() time.Time

	// dummyHash is compared against on unknown e-mails so both login failure paths cost one bcrypt compare.
	dummyOnce sync.Once
	dummyHash string
}

// NewAuthUsecase wires the auth flow. guard and events may be nil.
func NewAuthUsecase(
	userRepo domain.UserRepository,
	tokens *auth.TokenService,
	hasher *auth.PasswordHasher,
	guard domain.LoginGuard,
	events *security.SecurityLogger,
) domain.AuthUsecase {
	if guard == nil {
		guard = noopGuard{}
	}
	if events == nil {
		events = security.NopLogger()
	}
	return &authUsecase{
		userRepo: userRepo,
		tokens:   tokens,
		hasher:   hasher,
		guard:    guard,
		events:   events,
		now:      time.Now,
	}
}

func (u *authUsecase) Register(ctx context.Context, in domain.RegisterInput) (*domain.AuthResult, error) {
	email := domain.NormalizeEmail(in.Email)
	if !in.Role.CanSelfRegister() {
		return nil, apperror.Validation([]string{"role: must be one of: CANDIDATE, RECRUITER"})
	}
	// Checked before anything is persisted so a misconfigured server never creates accounts it cannot log into.
	if !u.tokens.Configured() {
		return nil, secretMissing(auth.ErrSecretNotConfigured)
	}

	_, err := u.userRepo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, apperror.Conflict("User already exists")
	case !errors.Is(err, domain.ErrUserNotFound):
		return nil, apperror.Internal(err)
	}

	hash, err := u.hasher.Hash(in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, apperror.Validation([]string{"password: must be at most 72 bytes"})
		}
		return nil, apperror.Internal(err)
	}

	now := u.now().UTC()
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Role:         in.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := u.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return nil, apperror.Conflict("User already exists")
		}
		return nil, apperror.Internal(err)
	}

	token, err := u.issueToken(user)
	if err != nil {
		return nil, err
	}

	u.events.LogUserRegistered(ctx, user.ID, user.Email, string(user.Role))
	logger.Log.Info("New user registered", "user_id", user.ID, "email", security.MaskEmail(email), "role", user.Role)

	return &domain.AuthResult{User: user, Token: token}, nil
}

func (u *authUsecase) Login(ctx context.Context, in domain.LoginInput) (*domain.AuthResult, error) {
	email := domain.NormalizeEmail(in.Email)

	blocked, err := u.guard.IsBlocked(ctx, email, in.IP)
	if err != nil {
		logger.Log.Warn("Login block check failed", "error", err)
	}
	if blocked {
		u.events.LogLoginBlocked(ctx, email, in.IP, in.UserAgent, in.RequestID)
		return nil, apperror.Unauthorized(msgInvalidCredentials)
	}

	user, err := u.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			return nil, apperror.Internal(err)
		}
		u.hasher.Compare(u.fallbackHash(), in.Password)
		u.recordFailure(ctx, email, in)
		return nil, apperror.Unauthorized(msgInvalidCredentials)
	}

	if !u.hasher.Compare(user.PasswordHash, in.Password) {
		u.recordFailure(ctx, email, in)
		return nil, apperror.Unauthorized(msgInvalidCredentials)
	}

	token, err := u.issueToken(user)
	if err != nil {
		return nil, err
	}

	if err := u.guard.ClearAttempts(ctx, email, in.IP); err != nil {
		logger.Log.Warn("Failed to clear login attempts", "error", err)
	}
	u.events.LogLoginSuccess(ctx, user.ID, email, in.IP, in.RequestID)
	logger.Log.Info("User logged in", "user_id", user.ID)

	return &domain.AuthResult{User: user, Token: token}, nil
}

func (u *authUsecase) VerifyToken(ctx context.Context, token string) (*domain.TokenClaims, error) {
	claims, err := u.tokens.Parse(token)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrSecretNotConfigured):
			return nil, secretMissing(err)
		case errors.Is(err, auth.ErrTokenExpired):
			return nil, apperror.New(http.StatusUnauthorized, "Token expired", err)
		default:
			return nil, apperror.New(http.StatusUnauthorized, "Invalid token", err)
		}
	}

	tc := &domain.TokenClaims{
		UserID: claims.UserID,
		Email:  claims.Email,
		Role:   domain.Role(claims.Role),
	}
	if claims.IssuedAt != nil {
		tc.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		tc.ExpiresAt = claims.ExpiresAt.Time
	}
	return tc, nil
}

func (u *authUsecase) Authenticate(ctx context.Context, token string) (*domain.AuthUser, error) {
	claims, err := u.VerifyToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(claims.UserID); err != nil {
		return nil, apperror.New(http.StatusUnauthorized, "Invalid token", err)
	}

	// The role comes from the stored row, not the token, so role changes apply immediately.
	user, err := u.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, apperror.Unauthorized("User not found")
		}
		return nil, apperror.Internal(err)
	}

	authUser := user.AuthUser()
	return &authUser, nil
}

func (u *authUsecase) GetCurrentUser(ctx context.Context, id string) (*domain.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errors.Join(domain.ErrMalformedID, err)
	}

	user, err := u.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, apperror.NotFound("User not found")
		}
		return nil, apperror.Internal(err)
	}

	profile, err := u.userRepo.GetProfile(ctx, id)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	user.Profile = profile
	return user, nil
}

func (u *authUsecase) issueToken(user *domain.User) (string, error) {
	token, err := u.tokens.Issue(user.ID, user.Email, string(user.Role))
	if err != nil {
		if errors.Is(err, auth.ErrSecretNotConfigured) {
			return "", secretMissing(err)
		}
		return "", apperror.Internal(err)
	}
	return token, nil
}

func (u *authUsecase) recordFailure(ctx context.Context, email string, in domain.LoginInput) {
	blocked, attempts, err := u.guard.RecordFailedAttempt(ctx, email, in.IP, in.UserAgent, in.RequestID)
	if err != nil && !errors.Is(err, security.ErrTrackerUnavailable) {
		logger.Log.Warn("Failed to record login attempt", "error", err)
	}
	if blocked {
		logger.Log.Warn("Login blocked after repeated failures", "email", security.MaskEmail(email), "attempts", attempts)
	}
}

func (u *authUsecase) fallbackHash() string {
	u.dummyOnce.Do(func() {
		buf := make([]byte, 16)
		_, _ = rand.Read(buf)
		u.dummyHash, _ = u.hasher.Hash(hex.EncodeToString(buf))
	})
	return u.dummyHash
}

func secretMissing(err error) *apperror.AppError {
	return apperror.New(http.StatusInternalServerError, msgSecretMissing, err)
}

type noopGuard struct{}

func (noopGuard) IsBlocked(context.Context, string, string) (bool, error) { return false, nil }

func (noopGuard) RecordFailedAttempt(context.Context, string, string, string, string) (bool, int, error) {
	return false, 0, nil
}

func (noopGuard) ClearAttempts(context.Context, string, string) error { return nil }
