package identity

import (
	"context"

	"github.com/tech-arch1tect/authsession/config"
	"github.com/tech-arch1tect/authsession/services/logging"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func ProvideDirectory(db *gorm.DB, cfg *config.Config, logger *logging.Service) *Directory {
	return NewDirectory(db, cfg.Auth.BcryptCost, logger.Named("identity"))
}

// bootstrapAdmin creates the configured administrator on first start.
func bootstrapAdmin(lc fx.Lifecycle, cfg *config.Config, dir *Directory, logger *logging.Service) {
	if cfg.Auth.AdminUsername == "" || cfg.Auth.AdminPassword == "" {
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			created, err := dir.EnsureUser(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword, Profile{Role: "admin"})
			if err != nil {
				return err
			}
			if created {
				logger.Info("bootstrap administrator created", zap.String("username", cfg.Auth.AdminUsername))
			}
			return nil
		},
	})
}

var Module = fx.Options(
	fx.Provide(ProvideDirectory),
	fx.Invoke(bootstrapAdmin),
	fx.Provide(func(d *Directory) Lookup { return d }),
	fx.Provide(func(d *Directory) Verifier { return d }),
)
