package jwt

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/authsession/services/jwt"
	"github.com/tech-arch1tect/authsession/services/logging"
	"github.com/tech-arch1tect/authsession/services/tokenpolicy"
	"go.uber.org/zap"
)

const (
	ClaimsKey        = "_jwt_claims"
	TokenKey         = "_jwt_token"
	DiscriminatorKey = "_session_discriminator"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*jwt.Claims, error)
}

// RequireAccessToken admits requests carrying a usable access token for the
// caller's session. Expired, revoked and forged tokens are rejected alike. A
// positive timeout bounds the revocation lookup.
func RequireAccessToken(auth Authenticator, policies tokenpolicy.Policies, timeout time.Duration, logger *logging.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			discriminator, err := policies.Discriminator(c.Request())
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "Invalid session identifier")
			}

			tokenString, ok := tokenpolicy.ExtractFromRequest(c.Request(), tokenpolicy.Access, discriminator)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "Access token required")
			}

			ctx, cancel := requestContext(c.Request().Context(), timeout)
			defer cancel()

			claims, err := auth.Authenticate(ctx, tokenString)
			if err != nil {
				switch {
				case errors.Is(err, jwt.ErrExpiredToken),
					errors.Is(err, jwt.ErrTokenRevoked),
					errors.Is(err, jwt.ErrMalformedToken),
					errors.Is(err, jwt.ErrInvalidSignature),
					errors.Is(err, jwt.ErrInvalidToken):
					return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired access token")
				default:
					logger.Error("access token check unavailable",
						zap.String("path", c.Path()),
						zap.Error(err))
					return echo.NewHTTPError(http.StatusServiceUnavailable, "Authentication temporarily unavailable")
				}
			}

			c.Set(ClaimsKey, claims)
			c.Set(TokenKey, tokenString)
			c.Set(DiscriminatorKey, discriminator)

			return next(c)
		}
	}
}

func requestContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}

func GetClaims(c echo.Context) *jwt.Claims {
	if claims, ok := c.Get(ClaimsKey).(*jwt.Claims); ok {
		return claims
	}
	return nil
}

func GetSubject(c echo.Context) string {
	if claims := GetClaims(c); claims != nil {
		return claims.Subject
	}
	return ""
}

func GetToken(c echo.Context) string {
	if token, ok := c.Get(TokenKey).(string); ok {
		return token
	}
	return ""
}

func GetDiscriminator(c echo.Context) string {
	if discriminator, ok := c.Get(DiscriminatorKey).(string); ok {
		return discriminator
	}
	return ""
}
