package tokenpolicy

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentifierFor(t *testing.T) {
	assert.Equal(t, "accessToken", IdentifierFor(Access, ""))
	assert.Equal(t, "refreshToken", IdentifierFor(Refresh, ""))
	assert.Equal(t, "accessTokenlaptop", IdentifierFor(Access, "laptop"))
	assert.Equal(t, "refreshTokenphone-2", IdentifierFor(Refresh, "phone-2"))
	assert.NotEqual(t, IdentifierFor(Refresh, "a"), IdentifierFor(Refresh, "b"))
}

func TestExtractToken(t *testing.T) {
	cookies := []*http.Cookie{
		{Name: "theme", Value: "dark"},
		{Name: "refreshToken", Value: "default-session"},
		{Name: "refreshTokenphone", Value: "phone-session"},
		{Name: "accessTokenphone", Value: ""},
	}

	t.Run("default session", func(t *testing.T) {
		token, ok := ExtractToken(cookies, IdentifierFor(Refresh, ""))

		assert.True(t, ok)
		assert.Equal(t, "default-session", token)
	})

	t.Run("discriminated session", func(t *testing.T) {
		token, ok := ExtractToken(cookies, IdentifierFor(Refresh, "phone"))

		assert.True(t, ok)
		assert.Equal(t, "phone-session", token)
	})

	t.Run("absent cookie", func(t *testing.T) {
		token, ok := ExtractToken(cookies, IdentifierFor(Access, ""))

		assert.False(t, ok)
		assert.Empty(t, token)
	})

	t.Run("empty value treated as absent", func(t *testing.T) {
		_, ok := ExtractToken(cookies, IdentifierFor(Access, "phone"))

		assert.False(t, ok)
	})

	t.Run("no cookies", func(t *testing.T) {
		_, ok := ExtractToken(nil, "accessToken")

		assert.False(t, ok)
	})
}

func TestExtractFromRequest(t *testing.T) {
	t.Run("cookie wins over header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "accessTokentablet", Value: "from-cookie"})
		req.Header.Set("Authorization", "Bearer from-header")

		token, ok := ExtractFromRequest(req, Access, "tablet")

		assert.True(t, ok)
		assert.Equal(t, "from-cookie", token)
	})

	t.Run("bearer fallback for access token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer from-header")

		token, ok := ExtractFromRequest(req, Access, "")

		assert.True(t, ok)
		assert.Equal(t, "from-header", token)
	})

	t.Run("refresh header fallback", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
		req.Header.Set(RefreshTokenHeader, "opaque-value")

		token, ok := ExtractFromRequest(req, Refresh, "")

		assert.True(t, ok)
		assert.Equal(t, "opaque-value", token)
	})

	t.Run("bearer header is not a refresh token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
		req.Header.Set("Authorization", "Bearer access")

		_, ok := ExtractFromRequest(req, Refresh, "")

		assert.False(t, ok)
	})

	t.Run("other session cookie ignored", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
		req.AddCookie(&http.Cookie{Name: "refreshTokenphone", Value: "phone-session"})

		_, ok := ExtractFromRequest(req, Refresh, "laptop")

		assert.False(t, ok)
	})
}

func TestPolicies_Discriminator(t *testing.T) {
	policies := New(testConfig())

	t.Run("absent header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)

		discriminator, err := policies.Discriminator(req)

		require.NoError(t, err)
		assert.Empty(t, discriminator)
	})

	t.Run("trimmed value", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Session-Id", " laptop ")

		discriminator, err := policies.Discriminator(req)

		require.NoError(t, err)
		assert.Equal(t, "laptop", discriminator)
	})

	invalid := []string{"my phone", "a;b", "a,b", "a=b", "tab\"1\"", "téléphone", strings.Repeat("x", 65)}
	for _, value := range invalid {
		t.Run("rejects "+value, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("X-Session-Id", value)

			_, err := policies.Discriminator(req)

			assert.ErrorIs(t, err, ErrInvalidDiscriminator)
		})
	}
}

func TestValidateDiscriminator_CookieNamesSurvive(t *testing.T) {
	policies := New(testConfig())

	for _, value := range []string{"", "laptop", "phone-2", "tab_1.b", strings.Repeat("x", 64)} {
		require.NoError(t, ValidateDiscriminator(value), value)

		rec := httptest.NewRecorder()
		http.SetCookie(rec, policies.NewCookie(Refresh, value, "opaque", time.Now().Add(time.Hour)))

		assert.NotEmpty(t, rec.Header().Get("Set-Cookie"), value)
	}
}

func TestPolicies_NewCookie(t *testing.T) {
	policies := New(testConfig())
	expiresAt := time.Now().Add(time.Hour)

	cookie := policies.NewCookie(Refresh, "phone", "opaque", expiresAt)

	require.NotNil(t, cookie)
	assert.Equal(t, "refreshTokenphone", cookie.Name)
	assert.Equal(t, "opaque", cookie.Value)
	assert.Equal(t, "/api/auth", cookie.Path)
	assert.Equal(t, expiresAt, cookie.Expires)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.Greater(t, cookie.MaxAge, 0)
}

func TestPolicies_ExpireCookie(t *testing.T) {
	policies := New(testConfig())

	cookie := policies.ExpireCookie(Access, "")

	assert.Equal(t, "accessToken", cookie.Name)
	assert.Empty(t, cookie.Value)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, -1, cookie.MaxAge)
}
