package refreshtoken

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/tech-arch1tect/authsession/services/identity"
	"github.com/tech-arch1tect/authsession/services/jwt"
	"github.com/tech-arch1tect/authsession/services/logging"
	"github.com/tech-arch1tect/authsession/services/metrics"
	"github.com/tech-arch1tect/authsession/services/tokenpolicy"
	"go.uber.org/zap"
)

var (
	ErrInvalidRefreshToken   = errors.New("invalid refresh token")
	ErrRefreshTokenExpired   = errors.New("refresh token expired")
	ErrUserNotFound          = errors.New("refresh token owner not found")
	ErrTokenGenerationFailed = errors.New("failed to generate secure token")
)

type AccessTokenIssuer interface {
	IssueForIdentity(ident *identity.Identity) (*jwt.IssuedToken, error)
}

type Service struct {
	store       Store
	policies    tokenpolicy.Policies
	access      AccessTokenIssuer
	identities  identity.Lookup
	tokenLength int
	logger      *logging.Service
	metrics     *metrics.Collector
	now         func() time.Time
}

func NewService(store Store, policies tokenpolicy.Policies, access AccessTokenIssuer, identities identity.Lookup, tokenLength int, logger *logging.Service, collector *metrics.Collector) *Service {
	logger.Info("initializing refresh token service",
		zap.Duration("token_expiry", policies.Refresh.Lifetime),
		zap.Int("token_length", tokenLength))

	return &Service{
		store:       store,
		policies:    policies,
		access:      access,
		identities:  identities,
		tokenLength: tokenLength,
		logger:      logger,
		metrics:     collector,
		now:         time.Now,
	}
}

func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) Policy() tokenpolicy.Policy {
	return s.policies.Refresh
}

func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

func (s *Service) generateSecureToken() (string, error) {
	tokenBytes := make([]byte, s.tokenLength)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(tokenBytes), nil
}

// CreateRefreshToken stores a new record for owner and returns its raw value.
// The value itself is never persisted.
func (s *Service) CreateRefreshToken(ctx context.Context, owner string, info SessionInfo) (*IssuedRefreshToken, error) {
	return s.create(ctx, owner, encodeDeviceInfo(info))
}

func (s *Service) create(ctx context.Context, owner, deviceInfo string) (*IssuedRefreshToken, error) {
	value, err := s.generateSecureToken()
	if err != nil {
		s.logger.Error("failed to generate secure refresh token", zap.Error(err))
		return nil, ErrTokenGenerationFailed
	}

	now := s.now()
	record := &RefreshToken{
		ID:         uuid.NewString(),
		Owner:      owner,
		TokenHash:  HashToken(value),
		ExpiresAt:  s.policies.Refresh.ExpiresAt(now),
		CreatedAt:  now,
		DeviceInfo: deviceInfo,
	}

	if err := s.store.Create(ctx, record); err != nil {
		s.logger.Error("failed to store refresh token", zap.String("owner", owner), zap.Error(err))
		return nil, err
	}

	s.metrics.TokenIssued(string(tokenpolicy.Refresh))
	s.logger.Debug("refresh token created",
		zap.String("owner", owner),
		zap.String("token_id", record.ID),
		zap.Time("expires_at", record.ExpiresAt))

	return &IssuedRefreshToken{Value: value, Record: record}, nil
}

func (s *Service) FindByToken(ctx context.Context, value string) (*RefreshToken, error) {
	if value == "" {
		return nil, ErrInvalidRefreshToken
	}

	record, err := s.store.FindByHash(ctx, HashToken(value))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		s.logger.Error("refresh token lookup failed", zap.Error(err))
		return nil, err
	}
	return record, nil
}

func (s *Service) FindByOwner(ctx context.Context, owner string) ([]RefreshToken, error) {
	return s.store.FindByOwner(ctx, owner)
}

// VerifyExpiration retires a record whose expiry has passed.
func (s *Service) VerifyExpiration(ctx context.Context, record *RefreshToken) (*RefreshToken, error) {
	if !record.ExpiresAt.Before(s.now()) {
		return record, nil
	}

	s.logger.Warn("refresh token expired",
		zap.String("token_id", record.ID),
		zap.String("owner", record.Owner),
		zap.Time("expired_at", record.ExpiresAt))

	if _, err := s.store.Delete(ctx, record.ID); err != nil {
		s.logger.Warn("failed to delete expired refresh token", zap.String("token_id", record.ID), zap.Error(err))
	}
	return nil, ErrRefreshTokenExpired
}

// Refresh exchanges a refresh token value for a new access and refresh token
// pair. The presented value can succeed at most once.
func (s *Service) Refresh(ctx context.Context, value, discriminator string, info SessionInfo) (*RotationResult, error) {
	result, err := s.rotate(ctx, value, discriminator, info)
	switch {
	case err == nil:
		s.metrics.RefreshOutcome(metrics.OutcomeRotated)
	case errors.Is(err, ErrInvalidRefreshToken):
		s.metrics.RefreshOutcome(metrics.OutcomeInvalid)
	case errors.Is(err, ErrRefreshTokenExpired):
		s.metrics.RefreshOutcome(metrics.OutcomeExpired)
	case errors.Is(err, ErrUserNotFound):
		s.metrics.RefreshOutcome(metrics.OutcomeUserNotFound)
	default:
		s.metrics.RefreshOutcome(metrics.OutcomeError)
	}
	return result, err
}

func (s *Service) rotate(ctx context.Context, value, discriminator string, info SessionInfo) (*RotationResult, error) {
	record, err := s.FindByToken(ctx, value)
	if err != nil {
		return nil, err
	}

	record, err = s.VerifyExpiration(ctx, record)
	if err != nil {
		return nil, err
	}

	ident, err := s.identities.FindIdentity(ctx, record.Owner)
	if err != nil {
		if errors.Is(err, identity.ErrIdentityNotFound) {
			s.logger.Error("refresh token owner no longer exists",
				zap.String("owner", record.Owner),
				zap.String("token_id", record.ID))
			return nil, fmt.Errorf("%w: %w", ErrUserNotFound, err)
		}
		return nil, err
	}

	deleted, err := s.store.Delete(ctx, record.ID)
	if err != nil {
		s.logger.Error("failed to retire refresh token", zap.String("token_id", record.ID), zap.Error(err))
		return nil, err
	}
	if deleted != 1 {
		s.logger.Warn("refresh token already retired by a concurrent rotation",
			zap.String("owner", record.Owner),
			zap.String("token_id", record.ID))
		return nil, ErrInvalidRefreshToken
	}

	access, err := s.access.IssueForIdentity(ident)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	deviceInfo := record.DeviceInfo
	if info.UserAgent != "" {
		deviceInfo = encodeDeviceInfo(info)
	}
	refresh, err := s.create(ctx, record.Owner, deviceInfo)
	if err != nil {
		return nil, fmt.Errorf("failed to issue refresh token: %w", err)
	}

	s.logger.Info("refresh token rotated",
		zap.String("owner", record.Owner),
		zap.String("old_token_id", record.ID),
		zap.String("new_token_id", refresh.Record.ID))

	return &RotationResult{
		AccessToken:           access.Token,
		AccessTokenExpiresAt:  access.ExpiresAt,
		RefreshToken:          refresh.Value,
		RefreshTokenExpiresAt: refresh.Record.ExpiresAt,
		Identity:              ident,
		Cookies:               s.SessionCookies(discriminator, access, refresh),
	}, nil
}

// SessionCookies keys both tokens to the session discriminator.
func (s *Service) SessionCookies(discriminator string, access *jwt.IssuedToken, refresh *IssuedRefreshToken) []*http.Cookie {
	return []*http.Cookie{
		s.policies.NewCookie(tokenpolicy.Access, discriminator, access.Token, access.ExpiresAt),
		s.policies.NewCookie(tokenpolicy.Refresh, discriminator, refresh.Value, refresh.Record.ExpiresAt),
	}
}

// InvalidateToken deletes the record for value if one exists.
func (s *Service) InvalidateToken(ctx context.Context, value string) error {
	if value == "" {
		return nil
	}

	deleted, err := s.store.DeleteByHash(ctx, HashToken(value))
	if err != nil {
		s.logger.Error("failed to invalidate refresh token", zap.Error(err))
		return err
	}

	s.logger.Info("refresh token invalidated", zap.Int64("affected_rows", deleted))
	return nil
}

func (s *Service) RevokeAllForOwner(ctx context.Context, owner string) (int64, error) {
	deleted, err := s.store.DeleteByOwner(ctx, owner)
	if err != nil {
		s.logger.Error("failed to revoke refresh tokens for owner", zap.String("owner", owner), zap.Error(err))
		return 0, err
	}

	s.logger.Info("all refresh tokens revoked for owner",
		zap.String("owner", owner),
		zap.Int64("count", deleted))
	return deleted, nil
}

func (s *Service) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	return s.store.PurgeExpired(ctx, before)
}
