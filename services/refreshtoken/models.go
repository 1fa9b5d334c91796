package refreshtoken

import (
	"net/http"
	"time"

	"github.com/tech-arch1tect/authsession/services/identity"
)

// RefreshToken is one renewal credential. An owner holds one row per session.
type RefreshToken struct {
	ID         string    `json:"id" gorm:"primaryKey;size:36"`
	Owner      string    `json:"owner" gorm:"not null;index;size:255"`
	TokenHash  string    `json:"-" gorm:"uniqueIndex;size:64;not null"`
	ExpiresAt  time.Time `json:"expires_at" gorm:"not null;index"`
	CreatedAt  time.Time `json:"created_at"`
	DeviceInfo string    `json:"device_info" gorm:"size:500"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

// SessionInfo describes the client a refresh token is being issued to.
type SessionInfo struct {
	IPAddress string
	UserAgent string
}

type IssuedRefreshToken struct {
	Value  string
	Record *RefreshToken
}

// RotationResult carries a freshly issued credential pair. The raw values are
// also present in Cookies, keyed by the session discriminator of the request.
type RotationResult struct {
	AccessToken           string
	AccessTokenExpiresAt  time.Time
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
	Identity              *identity.Identity
	Cookies               []*http.Cookie
}
