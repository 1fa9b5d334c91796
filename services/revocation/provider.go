package revocation

import (
	"context"
	"fmt"

	"github.com/tech-arch1tect/authsession/config"
	"github.com/tech-arch1tect/authsession/services/redisclient"
	"github.com/tech-arch1tect/authsession/services/logging"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func ProvideStore(lc fx.Lifecycle, cfg *config.Config, logger *logging.Service, db *gorm.DB, redisConn *redisclient.Connector) (Store, error) {
	logger = logger.Named("revocation")
	logger.Info("initializing access token revocation store",
		zap.String("store_type", cfg.Revocation.Store))

	switch cfg.Revocation.Store {
	case config.RevocationStoreDatabase:
		return NewGormStore(db, logger), nil
	case config.RevocationStoreRedis:
		client := redisConn.Client()
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				if err := client.Ping(ctx).Err(); err != nil {
					return fmt.Errorf("redis revocation store unreachable at %s: %w", redisConn.Addr(), err)
				}
				return nil
			},
		})
		return NewRedisStore(client, cfg.Revocation.RedisKey), nil
	case config.RevocationStoreMemory:
		logger.Warn("memory revocation store does not survive restarts")
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported revocation store type: %s", cfg.Revocation.Store)
	}
}

var Module = fx.Options(
	fx.Provide(ProvideStore),
)
