// Package tokenpolicy describes the two token kinds issued by the service and
// derives the per-session keys used to carry them in cookies and headers.
package tokenpolicy

import (
	"net/http"
	"strings"
	"time"

	"github.com/tech-arch1tect/authsession/config"
)

type Kind string

const (
	Access  Kind = "accessToken"
	Refresh Kind = "refreshToken"
)

type Policy struct {
	Kind     Kind
	Lifetime time.Duration
	Path     string
}

func (p Policy) ExpiresAt(issuedAt time.Time) time.Time {
	return issuedAt.Add(p.Lifetime)
}

type CookieOptions struct {
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

// Policies bundles the access and refresh policies built once at startup.
type Policies struct {
	Access  Policy
	Refresh Policy
	Cookie  CookieOptions
	// SessionHeader names the request header carrying the session discriminator.
	SessionHeader string
}

func New(cfg *config.Config) Policies {
	return Policies{
		Access: Policy{
			Kind:     Access,
			Lifetime: cfg.JWT.AccessExpiry,
			Path:     defaultPath(cfg.Session.AccessCookiePath),
		},
		Refresh: Policy{
			Kind:     Refresh,
			Lifetime: cfg.RefreshToken.Expiry,
			Path:     defaultPath(cfg.Session.RefreshCookiePath),
		},
		Cookie: CookieOptions{
			Domain:   cfg.Session.CookieDomain,
			Secure:   cfg.Session.CookieSecure,
			SameSite: parseSameSite(cfg.Session.CookieSameSite),
		},
		SessionHeader: cfg.Session.Header,
	}
}

func (p Policies) For(kind Kind) Policy {
	if kind == Refresh {
		return p.Refresh
	}
	return p.Access
}

func defaultPath(path string) string {
	if path == "" {
		return "/"
	}
	return path
}

func parseSameSite(value string) http.SameSite {
	switch strings.ToLower(value) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	case "lax":
		return http.SameSiteLaxMode
	default:
		return http.SameSiteDefaultMode
	}
}
