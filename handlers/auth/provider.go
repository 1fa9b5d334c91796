package auth

import (
	"github.com/tech-arch1tect/authsession/config"
	"github.com/tech-arch1tect/authsession/services/identity"
	"github.com/tech-arch1tect/authsession/services/jwt"
	"github.com/tech-arch1tect/authsession/services/logging"
	"github.com/tech-arch1tect/authsession/services/refreshtoken"
	"github.com/tech-arch1tect/authsession/services/tokenpolicy"
	"go.uber.org/fx"
)

func ProvideHandler(cfg *config.Config, verifier identity.Verifier, access *jwt.Service, refresh *refreshtoken.Service, policies tokenpolicy.Policies, logger *logging.Service) *Handler {
	return NewHandler(verifier, access, refresh, policies, cfg.Server.RequestTimeout, logger.Named("auth"))
}

var Module = fx.Options(
	fx.Provide(ProvideHandler),
)
