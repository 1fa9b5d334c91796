package redisclient

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/tech-arch1tect/authsession/config"
	"github.com/tech-arch1tect/authsession/services/logging"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Connector hands out a single redis client shared by every redis-backed
// store. The client is created on first use.
type Connector struct {
	cfg    config.RedisConfig
	logger *logging.Service

	mu     sync.Mutex
	client *redis.Client
}

func New(cfg config.RedisConfig, logger *logging.Service) *Connector {
	return &Connector{cfg: cfg, logger: logger}
}

func (c *Connector) Client() redis.UniversalClient {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		c.client = redis.NewClient(&redis.Options{
			Addr:     c.cfg.Addr,
			Password: c.cfg.Password,
			DB:       c.cfg.DB,
		})
		c.logger.Info("redis client created", zap.String("addr", c.cfg.Addr))
	}
	return c.client
}

func (c *Connector) Addr() string {
	return c.cfg.Addr
}

// Close releases the client if one was created.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}

func ProvideConnector(lc fx.Lifecycle, cfg *config.Config, logger *logging.Service) *Connector {
	conn := New(cfg.Redis, logger.Named("redis"))
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return conn.Close()
		},
	})
	return conn
}

var Module = fx.Options(
	fx.Provide(ProvideConnector),
)
