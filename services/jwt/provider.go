package jwt

import (
	"github.com/tech-arch1tect/authsession/config"
	"github.com/tech-arch1tect/authsession/services/identity"
	"github.com/tech-arch1tect/authsession/services/logging"
	"github.com/tech-arch1tect/authsession/services/metrics"
	"github.com/tech-arch1tect/authsession/services/revocation"
	"github.com/tech-arch1tect/authsession/services/tokenpolicy"
	"go.uber.org/fx"
)

func NewCodecFromConfig(cfg *config.Config) *Codec {
	return NewCodec(cfg.JWT.SecretKey, cfg.JWT.Issuer)
}

func NewJWTService(codec *Codec, policies tokenpolicy.Policies, identities identity.Lookup, revocations revocation.Store, logger *logging.Service, collector *metrics.Collector) *Service {
	return NewService(codec, policies.Access, identities, revocations, logger.Named("jwt"), collector)
}

var Module = fx.Options(
	fx.Provide(NewCodecFromConfig),
	fx.Provide(NewJWTService),
)
