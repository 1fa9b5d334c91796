package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

type Config struct {
	App          AppConfig          `envPrefix:"APP_"`
	Server       ServerConfig       `envPrefix:"SERVER_"`
	Log          LogConfig          `envPrefix:"LOG_"`
	Database     DatabaseConfig     `envPrefix:"DATABASE_"`
	Redis        RedisConfig        `envPrefix:"REDIS_"`
	Auth         AuthConfig         `envPrefix:"AUTH_"`
	JWT          JWTConfig          `envPrefix:"JWT_"`
	RefreshToken RefreshTokenConfig `envPrefix:"REFRESH_TOKEN_"`
	Revocation   RevocationConfig   `envPrefix:"REVOCATION_"`
	Session      SessionConfig      `envPrefix:"SESSION_"`
	RateLimit    RateLimitConfig    `envPrefix:"RATE_LIMIT_"`
	Metrics      MetricsConfig      `envPrefix:"METRICS_"`
	Docs         DocsConfig         `envPrefix:"DOCS_"`
}

type AppConfig struct {
	Name string `env:"NAME" envDefault:"authsession"`
}

type ServerConfig struct {
	Port            string        `env:"PORT" envDefault:"8080"`
	Host            string        `env:"HOST" envDefault:"localhost"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"5s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
	TrustedProxies  []string      `env:"TRUSTED_PROXIES" envSeparator:","`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
	Output string `env:"OUTPUT" envDefault:"stdout"`
}

type DatabaseConfig struct {
	Driver      string `env:"DRIVER" envDefault:"sqlite"`
	DSN         string `env:"DSN" envDefault:"authsession.db"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"true"`
}

type RedisConfig struct {
	Addr     string `env:"ADDR" envDefault:"localhost:6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

type AuthConfig struct {
	BcryptCost    int    `env:"BCRYPT_COST" envDefault:"10"`
	AdminUsername string `env:"ADMIN_USERNAME"`
	AdminPassword string `env:"ADMIN_PASSWORD"`
}

type JWTConfig struct {
	SecretKey    string        `env:"SECRET_KEY,required"`
	Algorithm    string        `env:"ALGORITHM" envDefault:"HS256"`
	AccessExpiry time.Duration `env:"ACCESS_EXPIRY" envDefault:"15m"`
	Issuer       string        `env:"ISSUER" envDefault:"authsession"`
}

type RefreshTokenConfig struct {
	TokenLength int           `env:"TOKEN_LENGTH" envDefault:"32"`
	Expiry      time.Duration `env:"EXPIRY" envDefault:"720h"`
}

type RevocationConfig struct {
	Store         string        `env:"STORE" envDefault:"database"`
	RedisKey      string        `env:"REDIS_KEY" envDefault:"authsession:revoked"`
	SweepSchedule string        `env:"SWEEP_SCHEDULE" envDefault:"@daily"`
	SweepTimeout  time.Duration `env:"SWEEP_TIMEOUT" envDefault:"30s"`
}

type SessionConfig struct {
	Header            string `env:"HEADER" envDefault:"X-Session-Id"`
	AccessCookiePath  string `env:"ACCESS_COOKIE_PATH" envDefault:"/"`
	RefreshCookiePath string `env:"REFRESH_COOKIE_PATH" envDefault:"/api/auth"`
	CookieDomain      string `env:"COOKIE_DOMAIN"`
	CookieSecure      bool   `env:"COOKIE_SECURE" envDefault:"true"`
	CookieSameSite    string `env:"COOKIE_SAME_SITE" envDefault:"lax"`
}

type CountingMode string

const (
	CountAll      CountingMode = "all"
	CountFailures CountingMode = "failures"
	CountSuccess  CountingMode = "success"
)

// RateLimitConfig guards the unauthenticated credential endpoints.
type RateLimitConfig struct {
	Enabled   bool          `env:"ENABLED" envDefault:"true"`
	Store     string        `env:"STORE" envDefault:"memory"`
	Rate      int           `env:"RATE" envDefault:"10"`
	Period    time.Duration `env:"PERIOD" envDefault:"1m"`
	CountMode CountingMode  `env:"COUNT_MODE" envDefault:"failures"`
	KeyPrefix string        `env:"KEY_PREFIX" envDefault:"authsession:ratelimit:"`
}

type MetricsConfig struct {
	Enabled bool   `env:"ENABLED" envDefault:"true"`
	Path    string `env:"PATH" envDefault:"/metrics"`
}

// DocsConfig controls the OpenAPI description, served as Path.json and Path.yaml.
type DocsConfig struct {
	Enabled bool   `env:"ENABLED" envDefault:"true"`
	Path    string `env:"PATH" envDefault:"/api/openapi"`
}

const (
	RateLimitStoreMemory = "memory"
	RateLimitStoreRedis  = "redis"
)

const (
	RevocationStoreDatabase = "database"
	RevocationStoreRedis    = "redis"
	RevocationStoreMemory   = "memory"
)

func LoadConfig(cfg any) error {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	if err := env.Parse(cfg); err != nil {
		return err
	}

	if c, ok := cfg.(*Config); ok {
		return c.Validate()
	}

	return nil
}

func (c *Config) Validate() error {
	if err := validateJWTConfig(&c.JWT); err != nil {
		return err
	}
	if err := validateRefreshTokenConfig(&c.RefreshToken); err != nil {
		return err
	}
	if err := validateRevocationConfig(&c.Revocation); err != nil {
		return err
	}
	if err := validateRateLimitConfig(&c.RateLimit); err != nil {
		return err
	}
	return validateSessionConfig(&c.Session)
}

var weakSecretPatterns = []string{"password", "secret", "test", "example", "default", "change"}

func validateJWTConfig(cfg *JWTConfig) error {
	if len(cfg.SecretKey) < 32 {
		return errors.New("JWT secret key must be at least 32 characters long")
	}

	lower := strings.ToLower(cfg.SecretKey)
	for _, pattern := range weakSecretPatterns {
		if strings.Contains(lower, pattern) {
			return fmt.Errorf("JWT secret key contains weak patterns (%q)", pattern)
		}
	}

	if cfg.Algorithm != "" && cfg.Algorithm != "HS256" {
		return fmt.Errorf("unsupported JWT algorithm: %s (supported: HS256)", cfg.Algorithm)
	}

	if cfg.AccessExpiry < 0 {
		return errors.New("JWT access expiry cannot be negative")
	}

	return nil
}

func validateRefreshTokenConfig(cfg *RefreshTokenConfig) error {
	if cfg.TokenLength < 16 {
		return errors.New("refresh token length must be at least 16 bytes")
	}
	if cfg.TokenLength > 128 {
		return errors.New("refresh token length cannot exceed 128 bytes")
	}
	if cfg.Expiry < 0 {
		return errors.New("refresh token expiry cannot be negative")
	}
	return nil
}

func validateRevocationConfig(cfg *RevocationConfig) error {
	switch cfg.Store {
	case RevocationStoreDatabase, RevocationStoreRedis, RevocationStoreMemory:
	default:
		return fmt.Errorf("revocation store must be: %s, %s, or %s",
			RevocationStoreDatabase, RevocationStoreRedis, RevocationStoreMemory)
	}

	if _, err := cron.ParseStandard(cfg.SweepSchedule); err != nil {
		return fmt.Errorf("invalid revocation sweep schedule %q: %w", cfg.SweepSchedule, err)
	}

	return nil
}

func validateSessionConfig(cfg *SessionConfig) error {
	switch strings.ToLower(cfg.CookieSameSite) {
	case "", "lax", "strict", "none":
	default:
		return errors.New("session cookie same-site must be: lax, strict, or none")
	}
	if strings.EqualFold(cfg.CookieSameSite, "none") && !cfg.CookieSecure {
		return errors.New("session cookie same-site none requires secure cookies")
	}
	return nil
}

func validateRateLimitConfig(cfg *RateLimitConfig) error {
	if !cfg.Enabled {
		return nil
	}

	switch cfg.Store {
	case RateLimitStoreMemory, RateLimitStoreRedis:
	default:
		return fmt.Errorf("rate limit store must be: %s or %s", RateLimitStoreMemory, RateLimitStoreRedis)
	}

	switch cfg.CountMode {
	case "", CountAll, CountFailures, CountSuccess:
	default:
		return fmt.Errorf("unknown rate limit count mode: %s", cfg.CountMode)
	}

	if cfg.Rate < 0 || cfg.Period < 0 {
		return errors.New("rate limit rate and period cannot be negative")
	}
	return nil
}
