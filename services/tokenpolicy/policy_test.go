package tokenpolicy

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tech-arch1tect/authsession/config"
)

func testConfig() *config.Config {
	return &config.Config{
		JWT:          config.JWTConfig{AccessExpiry: 15 * time.Minute},
		RefreshToken: config.RefreshTokenConfig{Expiry: 30 * 24 * time.Hour},
		Session: config.SessionConfig{
			Header:            "X-Session-Id",
			AccessCookiePath:  "/",
			RefreshCookiePath: "/api/auth",
			CookieSecure:      true,
			CookieSameSite:    "strict",
		},
	}
}

func TestNew(t *testing.T) {
	policies := New(testConfig())

	assert.Equal(t, Access, policies.Access.Kind)
	assert.Equal(t, 15*time.Minute, policies.Access.Lifetime)
	assert.Equal(t, "/", policies.Access.Path)

	assert.Equal(t, Refresh, policies.Refresh.Kind)
	assert.Equal(t, 30*24*time.Hour, policies.Refresh.Lifetime)
	assert.Equal(t, "/api/auth", policies.Refresh.Path)

	assert.True(t, policies.Cookie.Secure)
	assert.Equal(t, http.SameSiteStrictMode, policies.Cookie.SameSite)
	assert.Equal(t, "X-Session-Id", policies.SessionHeader)
}

func TestNew_DefaultsEmptyPath(t *testing.T) {
	cfg := testConfig()
	cfg.Session.RefreshCookiePath = ""

	policies := New(cfg)

	assert.Equal(t, "/", policies.Refresh.Path)
}

func TestPolicy_ExpiresAt(t *testing.T) {
	issuedAt := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	policy := Policy{Kind: Access, Lifetime: time.Hour}

	assert.Equal(t, issuedAt.Add(time.Hour), policy.ExpiresAt(issuedAt))
}

func TestPolicies_For(t *testing.T) {
	policies := New(testConfig())

	assert.Equal(t, policies.Access, policies.For(Access))
	assert.Equal(t, policies.Refresh, policies.For(Refresh))
}

func TestParseSameSite(t *testing.T) {
	assert.Equal(t, http.SameSiteLaxMode, parseSameSite("Lax"))
	assert.Equal(t, http.SameSiteNoneMode, parseSameSite("none"))
	assert.Equal(t, http.SameSiteDefaultMode, parseSameSite(""))
}
