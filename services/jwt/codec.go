package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tech-arch1tect/authsession/services/identity"
	"github.com/tech-arch1tect/authsession/services/tokenpolicy"
)

var (
	ErrInvalidToken     = errors.New("invalid JWT token")
	ErrExpiredToken     = errors.New("JWT token has expired")
	ErrMalformedToken   = errors.New("malformed JWT token")
	ErrInvalidSignature = errors.New("invalid JWT token signature")
	ErrTokenRevoked     = errors.New("JWT token has been revoked")
)

const signingAlgorithm = "HS256"

// Claims is the fixed payload schema of an access token.
type Claims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	identity.Profile
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// Codec signs and verifies claims with a symmetric key. It holds no state
// besides the key, the expected issuer and a clock.
type Codec struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewCodec(secret, issuer string) *Codec {
	return &Codec{
		secret: []byte(secret),
		issuer: issuer,
		now:    time.Now,
	}
}

func (c *Codec) SetClock(now func() time.Time) {
	c.now = now
}

// Encode signs a token for subject under the given policy. The output depends
// only on its arguments and the signing key.
func (c *Codec) Encode(tokenID string, subject *identity.Identity, policy tokenpolicy.Policy, issuedAt time.Time) (string, error) {
	claims := Claims{
		UserID:    subject.ID,
		Username:  subject.Username,
		Profile:   subject.Profile,
		TokenType: string(policy.Kind),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Issuer:    c.issuer,
			Subject:   subject.Username,
			Audience:  []string{c.issuer},
			ExpiresAt: jwt.NewNumericDate(policy.ExpiresAt(issuedAt)),
			NotBefore: jwt.NewNumericDate(issuedAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT token: %w", err)
	}
	return signed, nil
}

// Decode verifies structure and signature, then expiry. An expired token is
// returned together with ErrExpiredToken so callers can still read its claims.
func (c *Codec) Decode(tokenString string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{signingAlgorithm}),
		jwt.WithoutClaimsValidation(),
	)

	claims := &Claims{}
	_, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("invalid algorithm family: %v", token.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrMalformedToken
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrInvalidSignature
		default:
			return nil, ErrInvalidToken
		}
	}

	if claims.ExpiresAt == nil || claims.Subject == "" {
		return nil, ErrMalformedToken
	}
	if claims.Issuer != c.issuer {
		return nil, ErrInvalidToken
	}

	if !c.now().Before(claims.ExpiresAt.Time) {
		return claims, ErrExpiredToken
	}

	return claims, nil
}

// DecodeClaim decodes a token and extracts a single value from its claims.
// It fails the same way Decode does, including on expiry.
func DecodeClaim[T any](c *Codec, tokenString string, selector func(*Claims) T) (T, error) {
	var zero T
	claims, err := c.Decode(tokenString)
	if err != nil {
		return zero, err
	}
	return selector(claims), nil
}
