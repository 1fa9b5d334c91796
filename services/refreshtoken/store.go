package refreshtoken

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("refresh token record not found")
	ErrStorage  = errors.New("refresh token storage failure")
)

// Store persists refresh token records by the digest of their value. Delete
// variants report how many rows they removed so callers can detect a lost race.
type Store interface {
	Create(ctx context.Context, record *RefreshToken) error
	FindByHash(ctx context.Context, hash string) (*RefreshToken, error)
	FindByOwner(ctx context.Context, owner string) ([]RefreshToken, error)
	Delete(ctx context.Context, id string) (int64, error)
	DeleteByHash(ctx context.Context, hash string) (int64, error)
	DeleteByOwner(ctx context.Context, owner string) (int64, error)
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorage, op, err)
}

func (s *GormStore) Create(ctx context.Context, record *RefreshToken) error {
	record.ExpiresAt = record.ExpiresAt.UTC()
	record.CreatedAt = record.CreatedAt.UTC()
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return storageError("create", err)
	}
	return nil
}

func (s *GormStore) FindByHash(ctx context.Context, hash string) (*RefreshToken, error) {
	var record RefreshToken
	err := s.db.WithContext(ctx).Where("token_hash = ?", hash).Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageError("find by hash", err)
	}
	return &record, nil
}

func (s *GormStore) FindByOwner(ctx context.Context, owner string) ([]RefreshToken, error) {
	var records []RefreshToken
	err := s.db.WithContext(ctx).
		Where("owner = ?", owner).
		Order("created_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, storageError("find by owner", err)
	}
	return records, nil
}

func (s *GormStore) Delete(ctx context.Context, id string) (int64, error) {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&RefreshToken{})
	if result.Error != nil {
		return 0, storageError("delete", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *GormStore) DeleteByHash(ctx context.Context, hash string) (int64, error) {
	result := s.db.WithContext(ctx).Where("token_hash = ?", hash).Delete(&RefreshToken{})
	if result.Error != nil {
		return 0, storageError("delete by hash", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *GormStore) DeleteByOwner(ctx context.Context, owner string) (int64, error) {
	result := s.db.WithContext(ctx).Where("owner = ?", owner).Delete(&RefreshToken{})
	if result.Error != nil {
		return 0, storageError("delete by owner", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *GormStore) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("expires_at < ?", before.UTC()).Delete(&RefreshToken{})
	if result.Error != nil {
		return 0, storageError("purge expired", result.Error)
	}
	return result.RowsAffected, nil
}
