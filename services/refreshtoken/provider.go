package refreshtoken

import (
	"github.com/tech-arch1tect/authsession/config"
	"github.com/tech-arch1tect/authsession/services/identity"
	"github.com/tech-arch1tect/authsession/services/jwt"
	"github.com/tech-arch1tect/authsession/services/logging"
	"github.com/tech-arch1tect/authsession/services/metrics"
	"github.com/tech-arch1tect/authsession/services/tokenpolicy"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func ProvideStore(db *gorm.DB) Store {
	return NewGormStore(db)
}

func ProvideRefreshTokenService(store Store, cfg *config.Config, policies tokenpolicy.Policies, access *jwt.Service, identities identity.Lookup, logger *logging.Service, collector *metrics.Collector) *Service {
	return NewService(store, policies, access, identities, cfg.RefreshToken.TokenLength, logger.Named("refreshtoken"), collector)
}

var Module = fx.Options(
	fx.Provide(ProvideStore),
	fx.Provide(ProvideRefreshTokenService),
)
