package testutils

import (
	"time"

	"github.com/tech-arch1tect/authsession/config"
	"golang.org/x/crypto/bcrypt"
)

const TestSigningKey = "k7Qm2Vx9Lp4Rt8Wz1Nb6Hc3Jd5Fg0Ysa9Ue2Mo4"

func GetTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name: "authsession-test",
		},
		Server: config.ServerConfig{
			Host:            "127.0.0.1",
			Port:            "0",
			RequestTimeout:  2 * time.Second,
			ShutdownTimeout: 2 * time.Second,
		},
		Log: config.LogConfig{
			Level:  "error",
			Format: "json",
			Output: "stdout",
		},
		Database: config.DatabaseConfig{
			Driver:      "sqlite",
			DSN:         ":memory:",
			AutoMigrate: true,
		},
		Auth: config.AuthConfig{
			BcryptCost: bcrypt.MinCost,
		},
		JWT: config.JWTConfig{
			SecretKey:    TestSigningKey,
			Algorithm:    "HS256",
			AccessExpiry: time.Hour,
			Issuer:       "authsession-test",
		},
		RefreshToken: config.RefreshTokenConfig{
			TokenLength: 32,
			Expiry:      24 * time.Hour,
		},
		Revocation: config.RevocationConfig{
			Store:         config.RevocationStoreMemory,
			RedisKey:      "authsession:test:revoked",
			SweepSchedule: "@daily",
			SweepTimeout:  time.Second,
		},
		Session: config.SessionConfig{
			Header:            "X-Session-Id",
			AccessCookiePath:  "/",
			RefreshCookiePath: "/api/auth",
			CookieSecure:      true,
			CookieSameSite:    "lax",
		},
		RateLimit: config.RateLimitConfig{
			Enabled:   true,
			Store:     config.RateLimitStoreMemory,
			Rate:      100,
			Period:    time.Minute,
			CountMode: config.CountFailures,
			KeyPrefix: "authsession:test:ratelimit:",
		},
		Metrics: config.MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Docs: config.DocsConfig{
			Enabled: true,
			Path:    "/api/openapi",
		},
	}
}

var TestUsers = struct {
	Alice struct {
		Username string
		Password string
		Email    string
	}
	Bob struct {
		Username string
		Password string
		Email    string
	}
}{
	Alice: struct {
		Username string
		Password string
		Email    string
	}{Username: "alice", Password: "Wonderland123", Email: "alice@example.com"},
	Bob: struct {
		Username string
		Password string
		Email    string
	}{Username: "bob", Password: "Builder456", Email: "bob@example.com"},
}
