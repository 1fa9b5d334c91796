package jwt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tech-arch1tect/authsession/services/identity"
	"github.com/tech-arch1tect/authsession/services/logging"
	"github.com/tech-arch1tect/authsession/services/metrics"
	"github.com/tech-arch1tect/authsession/services/revocation"
	"github.com/tech-arch1tect/authsession/services/tokenpolicy"
	"go.uber.org/zap"
)

type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
}

// Service issues, authenticates and revokes access tokens.
type Service struct {
	codec       *Codec
	policy      tokenpolicy.Policy
	identities  identity.Lookup
	revocations revocation.Store
	logger      *logging.Service
	metrics     *metrics.Collector
	now         func() time.Time
}

func NewService(codec *Codec, policy tokenpolicy.Policy, identities identity.Lookup, revocations revocation.Store, logger *logging.Service, collector *metrics.Collector) *Service {
	return &Service{
		codec:       codec,
		policy:      policy,
		identities:  identities,
		revocations: revocations,
		logger:      logger,
		metrics:     collector,
		now:         time.Now,
	}
}

// SetClock replaces the time source of the service and its codec.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
	s.codec.SetClock(now)
}

func (s *Service) Policy() tokenpolicy.Policy {
	return s.policy
}

// Issue looks up the identity's profile and signs a fresh access token for it.
func (s *Service) Issue(ctx context.Context, username string) (*IssuedToken, error) {
	ident, err := s.identities.FindIdentity(ctx, username)
	if err != nil {
		s.logger.Warn("access token issue failed - identity lookup error",
			zap.String("username", username),
			zap.Error(err))
		return nil, err
	}
	return s.IssueForIdentity(ident)
}

func (s *Service) IssueForIdentity(ident *identity.Identity) (*IssuedToken, error) {
	issuedAt := s.now()

	token, err := s.codec.Encode(uuid.NewString(), ident, s.policy, issuedAt)
	if err != nil {
		s.logger.Error("failed to sign access token", zap.String("username", ident.Username), zap.Error(err))
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	s.metrics.TokenIssued(string(s.policy.Kind))
	s.logger.Debug("access token issued",
		zap.String("username", ident.Username),
		logging.TokenField("token", token))

	return &IssuedToken{
		Token:     token,
		ExpiresAt: s.policy.ExpiresAt(issuedAt).Truncate(time.Second),
	}, nil
}

// Authenticate verifies signature, expiry, token kind and revocation status and
// returns the claims of a usable token.
func (s *Service) Authenticate(ctx context.Context, tokenString string) (*Claims, error) {
	claims, err := s.codec.Decode(tokenString)
	if err != nil {
		if errors.Is(err, ErrExpiredToken) {
			s.metrics.AccessValidation(metrics.OutcomeExpired)
		} else {
			s.metrics.AccessValidation(metrics.OutcomeMalformed)
			s.logger.Warn("access token validation failed", zap.Error(err))
		}
		return nil, err
	}

	if claims.TokenType != string(s.policy.Kind) {
		s.metrics.AccessValidation(metrics.OutcomeMalformed)
		return nil, ErrInvalidToken
	}

	revoked, err := s.revocations.IsRevoked(ctx, tokenString)
	if err != nil {
		s.metrics.AccessValidation(metrics.OutcomeError)
		s.logger.Error("failed to check token revocation status", zap.Error(err))
		return nil, fmt.Errorf("token validation failed: %w", err)
	}
	if revoked {
		s.metrics.AccessValidation(metrics.OutcomeRevoked)
		s.logger.Debug("access token rejected - revoked",
			zap.String("username", claims.Subject),
			logging.TokenField("token", tokenString))
		return nil, ErrTokenRevoked
	}

	s.metrics.AccessValidation(metrics.OutcomeValid)
	return claims, nil
}

// Validate reports whether tokenString is a usable access token for
// expectedSubject. Expired, revoked or foreign tokens yield false without an
// error; malformed input and storage failures are returned as errors.
func (s *Service) Validate(ctx context.Context, tokenString, expectedSubject string) (bool, error) {
	claims, err := s.Authenticate(ctx, tokenString)
	switch {
	case err == nil:
	case errors.Is(err, ErrExpiredToken), errors.Is(err, ErrTokenRevoked):
		return false, nil
	default:
		return false, err
	}

	if claims.Subject != expectedSubject {
		s.metrics.AccessValidation(metrics.OutcomeSubjectMismatch)
		return false, nil
	}
	return true, nil
}

// Invalidate records the token as revoked until its natural expiry. Calling it
// more than once for the same token is harmless.
func (s *Service) Invalidate(ctx context.Context, tokenString string) error {
	claims, err := s.codec.Decode(tokenString)
	if err != nil && !errors.Is(err, ErrExpiredToken) {
		s.logger.Warn("refusing to revoke unverifiable token", zap.Error(err))
		return err
	}
	expiresAt := claims.ExpiresAt.Time

	if err := s.revocations.Revoke(ctx, tokenString, expiresAt); err != nil {
		s.logger.Error("failed to revoke token", zap.Error(err))
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	s.metrics.TokenRevoked()
	s.logger.Info("access token revoked",
		zap.String("username", claims.Subject),
		zap.Time("expires_at", expiresAt))

	return nil
}
