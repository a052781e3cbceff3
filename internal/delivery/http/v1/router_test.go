package v1_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"cv-platform-backend/config"
	v1 "cv-platform-backend/internal/delivery/http/v1"
	"cv-platform-backend/internal/domain"
	"cv-platform-backend/internal/usecase"
	"cv-platform-backend/pkg/auth"
	"cv-platform-backend/pkg/logger"
	"cv-platform-backend/pkg/security"
	"cv-platform-backend/pkg/validation"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logger.Log = slog.New(slog.NewJSONHandler(io.Discard, nil))
	os.Exit(m.Run())
}

// memoryUserRepo is an in-process domain.UserRepository.
type memoryUserRepo struct {
	mu       sync.Mutex
	byID     map[string]*domain.User
	profiles map[string]*domain.Profile
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{byID: map[string]*domain.User{}, profiles: map[string]*domain.Profile{}}
}

func (r *memoryUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Email == user.Email {
			return domain.ErrEmailTaken
		}
	}
	cp := *user
	r.byID[user.ID] = &cp
	return nil
}

func (r *memoryUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memoryUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *memoryUserRepo) GetProfile(_ context.Context, userID string) (*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.profiles[userID], nil
}

func (r *memoryUserRepo) delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
}

func (r *memoryUserRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

type testServer struct {
	router *gin.Engine
	repo   *memoryUserRepo
}

func newTestServer(t *testing.T, secret string, authLimit int) *testServer {
	t.Helper()
	return newGuardedTestServer(t, secret, authLimit, nil)
}

func newGuardedTestServer(t *testing.T, secret string, authLimit int, guard domain.LoginGuard) *testServer {
	t.Helper()
	cfg := &config.Config{
		Environment:            config.EnvTest,
		JWTSecret:              secret,
		JWTExpiresIn:           24 * time.Hour,
		AllowedOrigins:         []string{"http://localhost:3000"},
		RateLimitWindowSeconds: 60,
		RateLimitAuthThreshold: authLimit,
	}
	repo := newMemoryUserRepo()
	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.JWTExpiresIn)
	hasher := auth.NewPasswordHasher(bcrypt.MinCost)

	router := v1.NewRouter(v1.RouterDeps{
		AuthUC:   usecase.NewAuthUsecase(repo, tokens, hasher, guard, nil),
		CVUC:     usecase.NewCVUsecase(validation.New()),
		HealthUC: usecase.NewHealthUsecase(okPinger{}, nil),
		Config:   cfg,
	})
	return &testServer{router: router, repo: repo}
}

type result struct {
	code int
	body map[string]any
	raw  string
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) result {
	t.Helper()
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = strings.NewReader(b)
		default:
			buf, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewReader(buf)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	res := result{code: w.Code, raw: w.Body.String()}
	_ = json.Unmarshal(w.Body.Bytes(), &res.body)
	return res
}

func (r result) errorMessage() string {
	e, _ := r.body["error"].(map[string]any)
	msg, _ := e["message"].(string)
	return msg
}

func (r result) message() string {
	msg, _ := r.body["message"].(string)
	return msg
}

func (r result) user() map[string]any {
	u, _ := r.body["user"].(map[string]any)
	return u
}

func (s *testServer) register(t *testing.T, email, password string, role domain.Role) result {
	t.Helper()
	return s.do(t, http.MethodPost, "/auth/register", "", map[string]any{"email": email, "password": password, "role": role})
}

func (s *testServer) login(t *testing.T, email, password string) result {
	t.Helper()
	return s.do(t, http.MethodPost, "/auth/login", "", map[string]any{"email": email, "password": password})
}

func tokenOf(t *testing.T, r result) string {
	t.Helper()
	token, _ := r.body["token"].(string)
	require.NotEmpty(t, token, r.raw)
	return token
}

const secret = "router-test-secret"

func TestCandidateScenario(t *testing.T) {
	s := newTestServer(t, secret, 100)

	reg := s.register(t, "cand@example.com", "secret1", domain.RoleCandidate)
	require.Equal(t, http.StatusCreated, reg.code, reg.raw)
	assert.Equal(t, "User created successfully", reg.message())
	assert.Equal(t, "CANDIDATE", reg.user()["role"])
	assert.NotEmpty(t, reg.user()["createdAt"])
	token := tokenOf(t, reg)

	cv := s.do(t, http.MethodGet, "/cv", token, nil)
	assert.Equal(t, http.StatusOK, cv.code)
	assert.Equal(t, "Get CV endpoint - to be implemented", cv.message())

	search := s.do(t, http.MethodPost, "/search", token, nil)
	assert.Equal(t, http.StatusForbidden, search.code)
	assert.Equal(t, "Insufficient permissions", search.errorMessage())
}

func TestMissingTokenOnProtectedRoutes(t *testing.T) {
	s := newTestServer(t, secret, 100)

	routes := []struct{ method, path string }{
		{http.MethodGet, "/cv"},
		{http.MethodPost, "/cv"},
		{http.MethodPost, "/cv/upload"},
		{http.MethodPost, "/cv/validate"},
		{http.MethodPost, "/search"},
		{http.MethodGet, "/search/saved"},
		{http.MethodPost, "/search/saved"},
		{http.MethodGet, "/users/profile"},
		{http.MethodPut, "/users/profile"},
		{http.MethodGet, "/auth/me"},
	}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			res := s.do(t, rt.method, rt.path, "", nil)
			assert.Equal(t, http.StatusUnauthorized, res.code)
			assert.Equal(t, "Access token required", res.errorMessage())
		})
	}
}

func TestPlaceholderEndpoints(t *testing.T) {
	s := newTestServer(t, secret, 100)
	candidate := tokenOf(t, s.register(t, "c@example.com", "secret1", domain.RoleCandidate))
	recruiter := tokenOf(t, s.register(t, "r@example.com", "secret1", domain.RoleRecruiter))

	cases := []struct {
		method, path, token, message string
	}{
		{http.MethodGet, "/cv", candidate, "Get CV endpoint - to be implemented"},
		{http.MethodPost, "/cv", candidate, "Create/Update CV endpoint - to be implemented"},
		{http.MethodPost, "/cv/upload", candidate, "Upload CV for parsing endpoint - to be implemented"},
		{http.MethodPost, "/search", recruiter, "Search candidates endpoint - to be implemented"},
		{http.MethodGet, "/search/saved", recruiter, "Get saved searches endpoint - to be implemented"},
		{http.MethodPost, "/search/saved", recruiter, "Save search endpoint - to be implemented"},
		{http.MethodGet, "/users/profile", candidate, "User profile endpoint - to be implemented"},
		{http.MethodPut, "/users/profile", recruiter, "Update user profile endpoint - to be implemented"},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			res := s.do(t, tc.method, tc.path, tc.token, nil)
			assert.Equal(t, http.StatusOK, res.code)
			assert.Equal(t, tc.message, res.message())
		})
	}

	t.Run("recruiter cannot reach cv", func(t *testing.T) {
		res := s.do(t, http.MethodGet, "/cv", recruiter, nil)
		assert.Equal(t, http.StatusForbidden, res.code)
	})
}

func TestDeletedUserToken(t *testing.T) {
	s := newTestServer(t, secret, 100)
	reg := s.register(t, "gone@example.com", "secret1", domain.RoleCandidate)
	token := tokenOf(t, reg)
	s.repo.delete(reg.user()["id"].(string))

	res := s.do(t, http.MethodGet, "/cv", token, nil)
	assert.Equal(t, http.StatusUnauthorized, res.code)
	assert.Equal(t, "User not found", res.errorMessage())

	me := s.do(t, http.MethodGet, "/auth/me", token, nil)
	assert.Equal(t, http.StatusNotFound, me.code)
	assert.Equal(t, "User not found", me.errorMessage())
}

func TestDuplicateRegistration(t *testing.T) {
	s := newTestServer(t, secret, 100)
	require.Equal(t, http.StatusCreated, s.register(t, "dup@example.com", "secret1", domain.RoleCandidate).code)

	res := s.register(t, "dup@example.com", "another-pass", domain.RoleRecruiter)
	assert.Equal(t, http.StatusConflict, res.code)
	assert.Equal(t, "User already exists", res.errorMessage())

	res = s.register(t, "  DUP@example.com ", "secret1", domain.RoleCandidate)
	assert.Equal(t, http.StatusConflict, res.code)
	assert.Equal(t, 1, s.repo.count())
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	s := newTestServer(t, secret, 100)
	require.Equal(t, http.StatusCreated, s.register(t, "jane@example.com", "secret1", domain.RoleCandidate).code)

	wrong := s.login(t, "jane@example.com", "wrong-pass")
	unknown := s.login(t, "nobody@example.com", "wrong-pass")

	assert.Equal(t, http.StatusUnauthorized, wrong.code)
	assert.Equal(t, wrong.code, unknown.code)
	assert.Equal(t, "Invalid credentials", wrong.errorMessage())
	assert.JSONEq(t, wrong.raw, unknown.raw)
}

func TestLoginMeRoundTrip(t *testing.T) {
	s := newTestServer(t, secret, 100)
	reg := s.register(t, "Round@Example.com", "secret1", domain.RoleRecruiter)
	require.Equal(t, http.StatusCreated, reg.code, reg.raw)

	login := s.login(t, "round@example.com", "secret1")
	require.Equal(t, http.StatusOK, login.code, login.raw)
	assert.Equal(t, "Login successful", login.message())
	assert.Equal(t, reg.user()["id"], login.user()["id"])

	me := s.do(t, http.MethodGet, "/auth/me", tokenOf(t, login), nil)
	require.Equal(t, http.StatusOK, me.code, me.raw)
	assert.Equal(t, reg.user()["id"], me.user()["id"])
	assert.Equal(t, "RECRUITER", me.user()["role"])
	assert.Equal(t, "round@example.com", me.user()["email"])
	assert.Contains(t, me.user(), "profile")
	assert.Nil(t, me.user()["profile"])
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t, secret, 100)

	t.Run("six character password passes", func(t *testing.T) {
		res := s.register(t, "six@example.com", "abcdef", domain.RoleCandidate)
		assert.Equal(t, http.StatusCreated, res.code, res.raw)
	})

	t.Run("five character password fails", func(t *testing.T) {
		res := s.register(t, "five@example.com", "abcde", domain.RoleCandidate)
		assert.Equal(t, http.StatusBadRequest, res.code)
		assert.Equal(t, "Validation failed", res.errorMessage())
	})

	t.Run("bad email", func(t *testing.T) {
		res := s.register(t, "not-an-email", "secret1", domain.RoleCandidate)
		assert.Equal(t, http.StatusBadRequest, res.code)
		assert.Equal(t, "Validation failed", res.errorMessage())
	})

	t.Run("admin role rejected", func(t *testing.T) {
		res := s.register(t, "boss@example.com", "secret1", domain.RoleAdmin)
		assert.Equal(t, http.StatusBadRequest, res.code)
		assert.Equal(t, "Validation failed", res.errorMessage())
	})

	t.Run("lower-case role rejected", func(t *testing.T) {
		res := s.register(t, "lc@example.com", "secret1", "candidate")
		assert.Equal(t, http.StatusBadRequest, res.code)
	})

	t.Run("malformed body", func(t *testing.T) {
		res := s.do(t, http.MethodPost, "/auth/register", "", "{not json")
		assert.Equal(t, http.StatusBadRequest, res.code)
		assert.Equal(t, "Validation failed", res.errorMessage())
	})

	t.Run("password limit counts bytes", func(t *testing.T) {
		res := s.register(t, "ru@example.com", strings.Repeat("пароль", 7), domain.RoleCandidate)
		assert.Equal(t, http.StatusBadRequest, res.code, res.raw)
		assert.Equal(t, "Validation failed", res.errorMessage())
		assert.Equal(t, []any{"password: must be at most 72 bytes"}, res.body["error"].(map[string]any)["details"])

		res = s.register(t, "ru@example.com", strings.Repeat("пароль", 6), domain.RoleCandidate)
		assert.Equal(t, http.StatusCreated, res.code, res.raw)
	})

	t.Run("trailing data after the body", func(t *testing.T) {
		res := s.do(t, http.MethodPost, "/auth/register", "",
			`{"email":"tail@example.com","password":"secret1","role":"CANDIDATE"} trailing`)
		assert.Equal(t, http.StatusBadRequest, res.code)
		assert.Equal(t, "Validation failed", res.errorMessage())

		res = s.do(t, http.MethodPost, "/auth/login", "", `{"email":"six@example.com","password":"abcdef"}{}`)
		assert.Equal(t, http.StatusBadRequest, res.code)
		_, err := s.repo.GetByEmail(context.Background(), "tail@example.com")
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("login without password", func(t *testing.T) {
		res := s.login(t, "six@example.com", "")
		assert.Equal(t, http.StatusBadRequest, res.code)
		assert.Equal(t, "Validation failed", res.errorMessage())
	})
}

func TestSecretNotConfigured(t *testing.T) {
	s := newTestServer(t, "", 100)

	reg := s.register(t, "a@example.com", "secret1", domain.RoleCandidate)
	assert.Equal(t, http.StatusInternalServerError, reg.code)
	assert.Equal(t, "JWT secret not configured", reg.errorMessage())
	assert.Equal(t, 0, s.repo.count())

	res := s.do(t, http.MethodGet, "/cv", "some-token", nil)
	assert.Equal(t, http.StatusInternalServerError, res.code)
	assert.Equal(t, "JWT secret not configured", res.errorMessage())
}

func TestInvalidAndExpiredTokens(t *testing.T) {
	s := newTestServer(t, secret, 100)
	reg := s.register(t, "exp@example.com", "secret1", domain.RoleCandidate)
	id := reg.user()["id"].(string)

	expired, err := auth.NewTokenService(secret, time.Hour).
		WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) }).
		Issue(id, "exp@example.com", "CANDIDATE")
	require.NoError(t, err)

	res := s.do(t, http.MethodGet, "/cv", expired, nil)
	assert.Equal(t, http.StatusUnauthorized, res.code)
	assert.Equal(t, "Token expired", res.errorMessage())

	foreign, err := auth.NewTokenService("other-secret", time.Hour).Issue(id, "exp@example.com", "CANDIDATE")
	require.NoError(t, err)

	res = s.do(t, http.MethodGet, "/cv", foreign, nil)
	assert.Equal(t, http.StatusUnauthorized, res.code)
	assert.Equal(t, "Invalid token", res.errorMessage())
}

func TestValidateCV(t *testing.T) {
	s := newTestServer(t, secret, 100)
	token := tokenOf(t, s.register(t, "builder@example.com", "secret1", domain.RoleCandidate))

	t.Run("valid document is normalized", func(t *testing.T) {
		res := s.do(t, http.MethodPost, "/cv/validate", token, map[string]any{
			"personalDetails": map[string]any{"fullName": " Jane Doe ", "email": "jane@example.com"},
			"education": []map[string]any{
				{"institution": "ITB", "degree": "BSc", "startDate": "2018-08", "gpa": 3.6},
			},
		})
		require.Equal(t, http.StatusOK, res.code, res.raw)
		assert.Equal(t, "CV is valid", res.message())

		cv := res.body["cv"].(map[string]any)
		assert.Equal(t, "DRAFT", cv["status"])
		assert.Equal(t, "Jane Doe", cv["personalDetails"].(map[string]any)["fullName"])
		assert.Equal(t, []any{}, cv["skills"])
	})

	t.Run("free-form fields are accepted as typed", func(t *testing.T) {
		res := s.do(t, http.MethodPost, "/cv/validate", token, map[string]any{
			"personalDetails": map[string]any{
				"fullName":    "Jane Doe 3rd",
				"email":       "jane@example.com",
				"phone":       "+1 555 123 4567 ext 2",
				"linkedinUrl": "linkedin.com/in/jane",
			},
		})
		require.Equal(t, http.StatusOK, res.code, res.raw)

		res = s.do(t, http.MethodPost, "/cv/validate", token, map[string]any{
			"personalDetails": map[string]any{"fullName": "𠀋𠀌 Tan", "email": "tan@example.com"},
		})
		assert.Equal(t, http.StatusOK, res.code, res.raw)
	})

	t.Run("trailing data after the document", func(t *testing.T) {
		res := s.do(t, http.MethodPost, "/cv/validate", token,
			`{"personalDetails":{"fullName":"Jane","email":"jane@example.com"}} {"x":1}`)
		assert.Equal(t, http.StatusBadRequest, res.code)
		assert.Equal(t, "Validation failed", res.errorMessage())
	})

	t.Run("invalid document lists details", func(t *testing.T) {
		res := s.do(t, http.MethodPost, "/cv/validate", token, map[string]any{
			"personalDetails": map[string]any{"fullName": "Jane Doe", "email": "jane@example.com"},
			"education": []map[string]any{
				{"institution": "ITB", "degree": "BSc", "startDate": "2018-08", "gpa": 4.5},
			},
		})
		assert.Equal(t, http.StatusBadRequest, res.code)
		assert.Equal(t, "Validation failed", res.errorMessage())

		details := res.body["error"].(map[string]any)["details"].([]any)
		assert.Equal(t, []any{"education[0].gpa: must be at most 4"}, details)
	})
}

func TestAuthRateLimit(t *testing.T) {
	s := newTestServer(t, secret, 3)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusUnauthorized, s.login(t, "x@example.com", "nope").code)
	}
	res := s.login(t, "x@example.com", "nope")
	assert.Equal(t, http.StatusTooManyRequests, res.code)
	assert.Equal(t, "Rate limit exceeded. Please try again later.", res.errorMessage())
}

func TestLoginLockout(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	tracker := security.NewLoginTracker(security.LockoutConfig{
		MaxAttempts:   3,
		Window:        15 * time.Minute,
		BlockDuration: 15 * time.Minute,
	}, nil, security.WithRedisClient(func() *goredis.Client { return client }))
	s := newGuardedTestServer(t, secret, 100, tracker)
	require.Equal(t, http.StatusCreated, s.register(t, "jane@example.com", "secret1", domain.RoleCandidate).code)

	// A success in between resets the count, so four failures never lock.
	for round := 0; round < 2; round++ {
		for i := 0; i < 2; i++ {
			require.Equal(t, http.StatusUnauthorized, s.login(t, "jane@example.com", "wrong-pass").code)
		}
		require.Equal(t, http.StatusOK, s.login(t, "jane@example.com", "secret1").code)
	}

	var wrong result
	for i := 0; i < 3; i++ {
		wrong = s.login(t, "jane@example.com", "wrong-pass")
		require.Equal(t, http.StatusUnauthorized, wrong.code)
	}

	locked := s.login(t, "JANE@example.com", "secret1")
	assert.Equal(t, http.StatusUnauthorized, locked.code)
	assert.JSONEq(t, wrong.raw, locked.raw)

	mr.FastForward(15*time.Minute + time.Second)
	assert.Equal(t, http.StatusOK, s.login(t, "jane@example.com", "secret1").code)
}

func TestHealthAndUnknownRoute(t *testing.T) {
	s := newTestServer(t, secret, 100)

	health := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, health.code)
	assert.JSONEq(t, `{"status":"ok","database":"up","redis":"disabled"}`, health.raw)

	missing := s.do(t, http.MethodGet, "/does-not-exist", "", nil)
	assert.Equal(t, http.StatusNotFound, missing.code)
	assert.Equal(t, "Route not found", missing.errorMessage())
}
