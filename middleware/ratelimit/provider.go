package ratelimit

import (
	"context"
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/authsession/config"
	"github.com/tech-arch1tect/authsession/services/logging"
	"github.com/tech-arch1tect/authsession/services/redisclient"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Limiter is the middleware applied to credential endpoints. A nil Limiter
// disables limiting.
type Limiter echo.MiddlewareFunc

func ProvideStore(lc fx.Lifecycle, cfg *config.Config, logger *logging.Service, redisConn *redisclient.Connector) (Store, error) {
	switch cfg.RateLimit.Store {
	case config.RateLimitStoreMemory, "":
		return NewMemoryStore(), nil
	case config.RateLimitStoreRedis:
		client := redisConn.Client()
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				if err := client.Ping(ctx).Err(); err != nil {
					logger.Warn("redis rate limit store unreachable, requests will not be limited",
						zap.String("addr", redisConn.Addr()),
						zap.Error(err))
				}
				return nil
			},
		})
		return NewRedisStore(client, cfg.RateLimit.KeyPrefix), nil
	default:
		return nil, fmt.Errorf("unsupported rate limit store type: %s", cfg.RateLimit.Store)
	}
}

func ProvideLimiter(cfg *config.Config, store Store, logger *logging.Service) Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}

	return Limiter(Middleware(&Config{
		Store:     store,
		Rate:      cfg.RateLimit.Rate,
		Period:    cfg.RateLimit.Period,
		CountMode: cfg.RateLimit.CountMode,
		Logger:    logger.Named("ratelimit"),
	}))
}

var Module = fx.Options(
	fx.Provide(ProvideStore),
	fx.Provide(ProvideLimiter),
)
