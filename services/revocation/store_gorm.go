package revocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tech-arch1tect/authsession/services/logging"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RevokedToken struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	TokenHash string    `json:"-" gorm:"uniqueIndex;size:64;not null"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null;index"`
	CreatedAt time.Time `json:"created_at"`
}

func (RevokedToken) TableName() string {
	return "revoked_tokens"
}

type GormStore struct {
	db     *gorm.DB
	logger *logging.Service
}

func NewGormStore(db *gorm.DB, logger *logging.Service) *GormStore {
	return &GormStore{db: db, logger: logger}
}

func (s *GormStore) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	record := RevokedToken{
		TokenHash: Fingerprint(token),
		ExpiresAt: expiresAt.UTC(),
	}

	// A second revocation of the same token is a no-op.
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "token_hash"}}, DoNothing: true}).
		Create(&record).Error
	if err != nil {
		s.logger.Error("failed to persist revoked token",
			zap.String("token_hash", record.TokenHash[:16]),
			zap.Error(err))
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}

	return nil
}

func (s *GormStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	var record RevokedToken
	err := s.db.WithContext(ctx).
		Select("id").
		Where("token_hash = ?", Fingerprint(token)).
		Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		s.logger.Error("revocation lookup failed", zap.Error(err))
		return false, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return true, nil
}

func (s *GormStore) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("expires_at < ?", before.UTC()).
		Delete(&RevokedToken{})
	if result.Error != nil {
		return 0, fmt.Errorf("%w: %v", ErrStorage, result.Error)
	}
	return result.RowsAffected, nil
}
