package tokenpolicy

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

const (
	// RefreshTokenHeader carries the refresh token for clients without a cookie jar.
	RefreshTokenHeader = "X-Refresh-Token"

	bearerPrefix = "Bearer "

	maxDiscriminatorLength = 64
)

// ErrInvalidDiscriminator is returned for session discriminators that cannot
// be part of a cookie name.
var ErrInvalidDiscriminator = errors.New("invalid session discriminator")

// IdentifierFor returns the storage and cookie key for a token kind. An empty
// discriminator selects the implicit default session.
func IdentifierFor(kind Kind, discriminator string) string {
	if discriminator == "" {
		return string(kind)
	}
	return string(kind) + discriminator
}

// ExtractToken scans cookies for an exact name match. A missing or empty cookie
// is reported as not found.
func ExtractToken(cookies []*http.Cookie, name string) (string, bool) {
	for _, cookie := range cookies {
		if cookie.Name == name && cookie.Value != "" {
			return cookie.Value, true
		}
	}
	return "", false
}

// Discriminator reads the session discriminator header from the request.
// Values are limited to ASCII letters, digits, '-', '_' and '.' so the cookie
// names derived from them stay valid.
func (p Policies) Discriminator(r *http.Request) (string, error) {
	if p.SessionHeader == "" {
		return "", nil
	}
	discriminator := strings.TrimSpace(r.Header.Get(p.SessionHeader))
	if err := ValidateDiscriminator(discriminator); err != nil {
		return "", err
	}
	return discriminator, nil
}

func ValidateDiscriminator(discriminator string) error {
	if len(discriminator) > maxDiscriminatorLength {
		return ErrInvalidDiscriminator
	}
	for i := 0; i < len(discriminator); i++ {
		switch ch := discriminator[i]; {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
		case ch == '-', ch == '_', ch == '.':
		default:
			return ErrInvalidDiscriminator
		}
	}
	return nil
}

// ExtractFromRequest looks for a token of the given kind in the session-keyed
// cookie first and falls back to the header used by non-browser clients.
func ExtractFromRequest(r *http.Request, kind Kind, discriminator string) (string, bool) {
	if token, ok := ExtractToken(r.Cookies(), IdentifierFor(kind, discriminator)); ok {
		return token, true
	}

	switch kind {
	case Access:
		header := r.Header.Get("Authorization")
		if strings.HasPrefix(header, bearerPrefix) {
			if token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix)); token != "" {
				return token, true
			}
		}
	case Refresh:
		if token := strings.TrimSpace(r.Header.Get(RefreshTokenHeader)); token != "" {
			return token, true
		}
	}

	return "", false
}

func (p Policies) NewCookie(kind Kind, discriminator, value string, expiresAt time.Time) *http.Cookie {
	policy := p.For(kind)
	return &http.Cookie{
		Name:     IdentifierFor(kind, discriminator),
		Value:    value,
		Path:     policy.Path,
		Domain:   p.Cookie.Domain,
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		Secure:   p.Cookie.Secure,
		HttpOnly: true,
		SameSite: p.Cookie.SameSite,
	}
}

// ExpireCookie returns a cookie that instructs the client to drop the token for
// the given kind and session.
func (p Policies) ExpireCookie(kind Kind, discriminator string) *http.Cookie {
	policy := p.For(kind)
	return &http.Cookie{
		Name:     IdentifierFor(kind, discriminator),
		Value:    "",
		Path:     policy.Path,
		Domain:   p.Cookie.Domain,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		Secure:   p.Cookie.Secure,
		HttpOnly: true,
		SameSite: p.Cookie.SameSite,
	}
}
