package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tech-arch1tect/authsession/services/logging"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type User struct {
	ID           uint      `gorm:"primaryKey"`
	Username     string    `gorm:"uniqueIndex;size:255;not null"`
	Email        string    `gorm:"size:255"`
	FullName     string    `gorm:"size:255"`
	Role         string    `gorm:"size:64"`
	PasswordHash string    `gorm:"size:255;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (User) TableName() string {
	return "users"
}

func (u *User) toIdentity() *Identity {
	return &Identity{
		ID:       u.ID,
		Username: u.Username,
		Profile: Profile{
			Email:    u.Email,
			FullName: u.FullName,
			Role:     u.Role,
		},
	}
}

// Directory is a gorm-backed user table implementing Lookup and Verifier.
type Directory struct {
	db         *gorm.DB
	bcryptCost int
	logger     *logging.Service
	// dummyHash is compared against when the user does not exist so both
	// paths cost one bcrypt comparison.
	dummyHash []byte
}

func NewDirectory(db *gorm.DB, bcryptCost int, logger *logging.Service) *Directory {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}

	dummy, _ := bcrypt.GenerateFromPassword([]byte("authsession-dummy"), bcryptCost)

	return &Directory{
		db:         db,
		bcryptCost: bcryptCost,
		logger:     logger,
		dummyHash:  dummy,
	}
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func (d *Directory) CreateUser(ctx context.Context, username, password string, profile Profile) (*Identity, error) {
	username = normalizeUsername(username)
	if username == "" {
		return nil, errors.New("username is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), d.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := User{
		Username:     username,
		Email:        profile.Email,
		FullName:     profile.FullName,
		Role:         profile.Role,
		PasswordHash: string(hash),
	}
	if err := d.db.WithContext(ctx).Create(&user).Error; err != nil {
		d.logger.Error("failed to create user", zap.String("username", username), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	d.logger.Info("user created", zap.String("username", username), zap.Uint("user_id", user.ID))

	return user.toIdentity(), nil
}

// EnsureUser creates username unless it already exists. It reports whether a
// user was created.
func (d *Directory) EnsureUser(ctx context.Context, username, password string, profile Profile) (bool, error) {
	if _, err := d.findUser(ctx, username); err == nil {
		return false, nil
	} else if !errors.Is(err, ErrIdentityNotFound) {
		return false, err
	}

	if _, err := d.CreateUser(ctx, username, password, profile); err != nil {
		return false, err
	}
	return true, nil
}

func (d *Directory) DeleteUser(ctx context.Context, username string) error {
	result := d.db.WithContext(ctx).Where("username = ?", normalizeUsername(username)).Delete(&User{})
	if result.Error != nil {
		return fmt.Errorf("%w: %v", ErrStorage, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrIdentityNotFound
	}
	return nil
}

func (d *Directory) findUser(ctx context.Context, username string) (*User, error) {
	var user User
	err := d.db.WithContext(ctx).Where("username = ?", normalizeUsername(username)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIdentityNotFound
		}
		d.logger.Error("identity lookup failed", zap.String("username", username), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return &user, nil
}

func (d *Directory) FindIdentity(ctx context.Context, username string) (*Identity, error) {
	user, err := d.findUser(ctx, username)
	if err != nil {
		return nil, err
	}
	return user.toIdentity(), nil
}

func (d *Directory) VerifyCredentials(ctx context.Context, username, password string) (*Identity, error) {
	user, err := d.findUser(ctx, username)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			_ = bcrypt.CompareHashAndPassword(d.dummyHash, []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		d.logger.Warn("credential verification failed", zap.String("username", user.Username))
		return nil, ErrInvalidCredentials
	}

	return user.toIdentity(), nil
}
