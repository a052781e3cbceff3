package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

type Config struct {
	Port        string
	Environment string
	ServiceName string
	DBUrl       string
	// Token signing. An empty secret is allowed at startup; protected routes then fail with 500.
	JWTSecret    string
	JWTExpiresIn time.Duration
	BcryptCost   int
	// CORS
	FrontendURL    string
	AllowedOrigins []string
	// Redis Configuration (optional)
	RedisURL      string
	RedisPassword string
	// Rate Limiting Configuration
	RateLimitWindowSeconds int
	RateLimitAuthThreshold int
	// Failed-login lockout (needs Redis)
	FailedLoginMaxAttempts   int
	FailedLoginIPMaxAttempts int
	FailedLoginWindowMinutes int
	FailedLoginBlockMinutes  int
	// HTTP server
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
}

func LoadConfig() (*Config, error) {
	// .env is only present locally; missing file is not an error.
	_ = godotenv.Load()

	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		Environment:  strings.ToLower(getEnv("APP_ENV", EnvDevelopment)),
		ServiceName:  getEnv("SERVICE_NAME", "cv-platform-backend"),
		DBUrl:        getEnv("DATABASE_URL", ""),
		JWTSecret:    getEnv("JWT_SECRET", ""),
		JWTExpiresIn: time.Duration(getEnvInt("JWT_EXPIRES_IN_HOURS", 24)) * time.Hour,
		BcryptCost:   getEnvInt("BCRYPT_COST", 12),
		FrontendURL:  strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:3000"), "/"),
		// Redis Configuration
		RedisURL:      getEnv("REDIS_URL", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		// Rate Limiting Configuration
		RateLimitWindowSeconds: getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60),
		RateLimitAuthThreshold: getEnvInt("RATE_LIMIT_AUTH_THRESHOLD", 10),
		// Failed-login lockout
		FailedLoginMaxAttempts:   getEnvInt("FAILED_LOGIN_MAX_ATTEMPTS", 5),
		FailedLoginIPMaxAttempts: getEnvInt("FAILED_LOGIN_IP_MAX_ATTEMPTS", 20),
		FailedLoginWindowMinutes: getEnvInt("FAILED_LOGIN_WINDOW_MINUTES", 15),
		FailedLoginBlockMinutes:  getEnvInt("FAILED_LOGIN_BLOCK_MINUTES", 15),
		HTTPReadTimeout:          time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 10)) * time.Second,
		HTTPWriteTimeout:         time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 15)) * time.Second,
	}
	cfg.AllowedOrigins = splitOrigins(cfg.FrontendURL)

	switch cfg.Environment {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		return nil, fmt.Errorf("config: unsupported APP_ENV %q", cfg.Environment)
	}

	if cfg.DBUrl == "" {
		log.Println("WARNING: DATABASE_URL is missing. Application may fail to connect.")
	}
	if cfg.JWTSecret == "" {
		log.Println("WARNING: JWT_SECRET is missing. Token issuance and protected routes will fail with 500.")
	}
	if cfg.RedisURL == "" {
		log.Println("WARNING: REDIS_URL not configured. Rate limiting will use in-memory fallback, login lockout is disabled.")
	}

	return cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// FailedLoginWindow is how long failed attempts count towards a lockout.
func (c *Config) FailedLoginWindow() time.Duration {
	return time.Duration(c.FailedLoginWindowMinutes) * time.Minute
}

func (c *Config) FailedLoginBlock() time.Duration {
	return time.Duration(c.FailedLoginBlockMinutes) * time.Minute
}

// RateLimitWindow returns the rate limit window as a duration.
func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt returns an integer environment variable or fallback if not set/invalid
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// splitOrigins turns a comma separated origin list into trimmed entries without trailing slashes.
func splitOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
