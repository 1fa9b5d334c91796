package sweeper

import (
	"context"

	"github.com/tech-arch1tect/authsession/config"
	"github.com/tech-arch1tect/authsession/middleware/ratelimit"
	"github.com/tech-arch1tect/authsession/services/logging"
	"github.com/tech-arch1tect/authsession/services/metrics"
	"github.com/tech-arch1tect/authsession/services/refreshtoken"
	"github.com/tech-arch1tect/authsession/services/revocation"
	"go.uber.org/fx"
)

const (
	TargetRevokedAccessTokens = "revoked_access_tokens"
	TargetRefreshTokens       = "refresh_tokens"
	TargetRateLimitWindows    = "rate_limit_windows"
)

func ProvideSweeper(lc fx.Lifecycle, cfg *config.Config, revocations revocation.Store, refreshTokens *refreshtoken.Service, limits ratelimit.Store, logger *logging.Service, collector *metrics.Collector) (*Sweeper, error) {
	targets := []Target{
		{Name: TargetRevokedAccessTokens, Purger: revocations},
		{Name: TargetRefreshTokens, Purger: refreshTokens},
	}
	// Redis expires its own windows.
	if p, ok := limits.(Purger); ok {
		targets = append(targets, Target{Name: TargetRateLimitWindows, Purger: p})
	}

	s, err := New(cfg.Revocation.SweepSchedule, cfg.Revocation.SweepTimeout, logger.Named("sweeper"), collector, targets...)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return s.Start()
		},
		OnStop: func(ctx context.Context) error {
			return s.Stop(ctx)
		},
	})

	return s, nil
}

var Module = fx.Options(
	fx.Provide(ProvideSweeper),
	fx.Invoke(func(*Sweeper) {}),
)
