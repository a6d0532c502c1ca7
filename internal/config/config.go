package config // package config loads application configuration from environment variables

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// Fallbacks used when the corresponding variables are unset.  Both are
// unsafe outside a developer machine; Load records a warning for each one
// it applies and refuses them outright in production.
const (
	FallbackJWTSecret   = "ev-platform-insecure-dev-secret"
	FallbackDatabaseURL = "root@tcp(127.0.0.1:3306)/ev_platform?charset=utf8mb4&parseTime=true&loc=UTC"
)

// ErrInsecureProduction is returned when production would start on a
// hardcoded secret or connection string.
var ErrInsecureProduction = errors.New("insecure fallback configuration in production")

// Config holds all runtime configuration values.
type Config struct {
	Env         string        // APP_ENV: development, staging, production
	Port        string        // APP_PORT
	LogLevel    string        // LOG_LEVEL
	DatabaseURL string        // DATABASE_URL, MySQL DSN
	JWTSecret   string        // JWT_SECRET, HS256 signing key
	JWTIssuer   string        // JWT_ISSUER
	SessionTTL  time.Duration // SESSION_TTL, token lifetime and cookie max-age
	BcryptCost  int           // BCRYPT_COST
	CookieName  string        // COOKIE_NAME
	AMQPURL     string        // AMQP_URL, empty disables event publishing

	AuditConsumerEnabled bool   // AUDIT_CONSUMER_ENABLED
	AuditLogPath         string // AUDIT_LOG_PATH

	RateLimit RateLimitConfig

	// Warnings lists every insecure fallback that was applied.
	Warnings []string
}

// Production reports whether the process runs in production mode, which
// also drives the Secure attribute of the session cookie.
func (c Config) Production() bool { return c.Env == "production" }

// Load reads an optional .env file and then the environment.  Variables
// already present in the environment win over the file.
func Load() (Config, error) {
	_ = godotenv.Load() // a missing .env is fine

	cfg := Config{
		Env:                  envStr("APP_ENV", "development"),
		Port:                 envStr("APP_PORT", "8080"),
		LogLevel:             envStr("LOG_LEVEL", "info"),
		DatabaseURL:          envStr("DATABASE_URL", ""),
		JWTSecret:            envStr("JWT_SECRET", ""),
		JWTIssuer:            envStr("JWT_ISSUER", "ev-platform"),
		SessionTTL:           envDur("SESSION_TTL", 24*time.Hour),
		BcryptCost:           envInt("BCRYPT_COST", 10),
		CookieName:           envStr("COOKIE_NAME", "auth_token"),
		AMQPURL:              envStr("AMQP_URL", envStr("RABBITMQ_URL", "")),
		AuditConsumerEnabled: envBool("AUDIT_CONSUMER_ENABLED", false),
		AuditLogPath:         envStr("AUDIT_LOG_PATH", "logs/auth.log"),
		RateLimit:            LoadRateLimitConfig(),
	}

	if cfg.JWTSecret == "" {
		cfg.JWTSecret = FallbackJWTSecret
		cfg.Warnings = append(cfg.Warnings, "JWT_SECRET unset: signing with the hardcoded development secret")
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = FallbackDatabaseURL
		cfg.Warnings = append(cfg.Warnings, "DATABASE_URL unset: using the hardcoded local connection string")
	}
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		return Config{}, fmt.Errorf("invalid BCRYPT_COST %d", cfg.BcryptCost)
	}
	if cfg.SessionTTL <= 0 {
		return Config{}, fmt.Errorf("invalid SESSION_TTL %s", cfg.SessionTTL)
	}
	if cfg.Production() && len(cfg.Warnings) > 0 {
		return Config{}, fmt.Errorf("%w: %v", ErrInsecureProduction, cfg.Warnings)
	}
	return cfg, nil
}
