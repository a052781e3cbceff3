package domain

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
	ErrMalformedID  = errors.New("malformed identifier")
)

type Role string

const (
	RoleCandidate Role = "CANDIDATE"
	RoleRecruiter Role = "RECRUITER"
	RoleAdmin     Role = "ADMIN"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCandidate, RoleRecruiter, RoleAdmin:
		return true
	}
	return false
}

// CanSelfRegister reports whether the role may be chosen at registration. ADMIN accounts are seeded.
func (r Role) CanSelfRegister() bool {
	return r == RoleCandidate || r == RoleRecruiter
}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Profile      *Profile  `json:"profile"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Profile is the optional public profile attached to a user.
type Profile struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	FullName  string    `json:"fullName"`
	Phone     string    `json:"phone,omitempty"`
	Location  string    `json:"location,omitempty"`
	Headline  string    `json:"headline,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AuthUser is the trimmed user record attached to an authenticated request.
type AuthUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

func (u *User) AuthUser() AuthUser {
	return AuthUser{ID: u.ID, Email: u.Email, Role: u.Role}
}

type TokenClaims struct {
	UserID    string
	Email     string
	Role      Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// NormalizeEmail trims and lower-cases an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type RegisterInput struct {
	Email    string
	Password string
	Role     Role
}

type LoginInput struct {
	Email     string
	Password  string
	IP        string
	UserAgent string
	RequestID string
}

type AuthResult struct {
	User  *User
	Token string
}

// UserRepository returns ErrUserNotFound for missing rows and ErrEmailTaken on duplicate email.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	// GetProfile returns nil, nil when the user has no profile.
	GetProfile(ctx context.Context, userID string) (*Profile, error)
}

// LoginGuard tracks failed logins and reports temporary blocks.
type LoginGuard interface {
	IsBlocked(ctx context.Context, email, ip string) (bool, error)
	RecordFailedAttempt(ctx context.Context, email, ip, userAgent, requestID string) (bool, int, error)
	ClearAttempts(ctx context.Context, email, ip string) error
}

type AuthUsecase interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, in LoginInput) (*AuthResult, error)
	// VerifyToken checks signature and expiry only.
	VerifyToken(ctx context.Context, token string) (*TokenClaims, error)
	// Authenticate verifies the token and resolves the user it references.
	Authenticate(ctx context.Context, token string) (*AuthUser, error)
	GetCurrentUser(ctx context.Context, id string) (*User, error)
}
