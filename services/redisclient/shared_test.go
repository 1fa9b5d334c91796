package redisclient_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/authsession/config"
	"github.com/tech-arch1tect/authsession/middleware/ratelimit"
	"github.com/tech-arch1tect/authsession/services/logging"
	"github.com/tech-arch1tect/authsession/services/redisclient"
	"github.com/tech-arch1tect/authsession/services/revocation"
	"github.com/tech-arch1tect/authsession/testutils"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"gorm.io/gorm"
)

func TestStoresShareOneClient(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := testutils.GetTestConfig()
	cfg.Redis.Addr = mr.Addr()
	cfg.Revocation.Store = config.RevocationStoreRedis
	cfg.RateLimit.Store = config.RateLimitStoreRedis

	var (
		revocations revocation.Store
		limits      ratelimit.Store
	)
	app := fxtest.New(t,
		fx.Supply(cfg),
		fx.Provide(func() *logging.Service { return nil }),
		fx.Provide(func() *gorm.DB { return nil }),
		redisclient.Module,
		revocation.Module,
		fx.Provide(ratelimit.ProvideStore),
		fx.Populate(&revocations, &limits),
	)
	app.RequireStart()

	ctx := context.Background()
	require.NoError(t, revocations.Revoke(ctx, "tok", time.Now().Add(time.Hour)))
	_, err := limits.Increment(ctx, "127.0.0.1:/api/auth/login", time.Now().Add(time.Minute))
	require.NoError(t, err)

	revoked, err := revocations.IsRevoked(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, revoked)

	assert.Equal(t, 1, mr.TotalConnectionCount(), "both stores use the same connection pool")

	app.RequireStop()
}
