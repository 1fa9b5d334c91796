package database

import (
	"context"

	"github.com/tech-arch1tect/authsession/config"
	"github.com/tech-arch1tect/authsession/services/logging"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Options(
	fx.Provide(ProvideDatabaseFx),
)

func ProvideDatabaseFx(lc fx.Lifecycle, cfg *config.Config, logger *logging.Service) (*gorm.DB, error) {
	logger = logger.Named("database")

	db, err := ProvideDatabase(*cfg, logger)
	if err != nil {
		return nil, err
	}

	if cfg.Database.AutoMigrate {
		if err := Migrate(context.Background(), db, cfg.Database.Driver); err != nil {
			return nil, err
		}
		version, _ := SchemaVersion(context.Background(), db)
		logger.Info("database schema up to date", zap.Int64("version", version))
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return db, nil
}
