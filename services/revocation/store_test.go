package revocation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/authsession/testutils"
)

func newRedisStore(t *testing.T) Store {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, "test:revoked")
}

var backends = map[string]func(t *testing.T) Store{
	"memory": func(t *testing.T) Store { return NewMemoryStore() },
	"gorm": func(t *testing.T) Store {
		return NewGormStore(testutils.SetupTestDB(t, &RevokedToken{}), nil)
	},
	"redis": newRedisStore,
}

func TestStore_RevokeAndCheck(t *testing.T) {
	for name, newStore := range backends {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			ctx := context.Background()

			revoked, err := store.IsRevoked(ctx, "header.payload.sig")
			require.NoError(t, err)
			assert.False(t, revoked)

			require.NoError(t, store.Revoke(ctx, "header.payload.sig", time.Now().Add(time.Hour)))

			revoked, err = store.IsRevoked(ctx, "header.payload.sig")
			require.NoError(t, err)
			assert.True(t, revoked)

			revoked, err = store.IsRevoked(ctx, "header.payload.other")
			require.NoError(t, err)
			assert.False(t, revoked)
		})
	}
}

func TestStore_RevokeIsIdempotent(t *testing.T) {
	for name, newStore := range backends {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			ctx := context.Background()
			expiresAt := time.Now().Add(time.Hour)

			require.NoError(t, store.Revoke(ctx, "tok", expiresAt))
			require.NoError(t, store.Revoke(ctx, "tok", expiresAt))

			revoked, err := store.IsRevoked(ctx, "tok")
			require.NoError(t, err)
			assert.True(t, revoked)

			purged, err := store.PurgeExpired(ctx, expiresAt.Add(time.Second))
			require.NoError(t, err)
			assert.Equal(t, int64(1), purged)
		})
	}
}

func TestStore_PurgeExpired(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for name, newStore := range backends {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			ctx := context.Background()

			require.NoError(t, store.Revoke(ctx, "stale", t0.Add(-time.Second)))
			require.NoError(t, store.Revoke(ctx, "live", t0.Add(time.Hour)))

			purged, err := store.PurgeExpired(ctx, t0)
			require.NoError(t, err)
			assert.Equal(t, int64(1), purged)

			revoked, err := store.IsRevoked(ctx, "stale")
			require.NoError(t, err)
			assert.False(t, revoked, "stale record should be removed")

			revoked, err = store.IsRevoked(ctx, "live")
			require.NoError(t, err)
			assert.True(t, revoked, "unexpired record should be retained")

			purged, err = store.PurgeExpired(ctx, t0)
			require.NoError(t, err)
			assert.Zero(t, purged)
		})
	}
}

func TestStore_PurgeBoundaryIsExclusive(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for name, newStore := range backends {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			ctx := context.Background()

			require.NoError(t, store.Revoke(ctx, "edge", t0))

			purged, err := store.PurgeExpired(ctx, t0)
			require.NoError(t, err)
			assert.Zero(t, purged)
		})
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	expiresAt := time.Now().Add(time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = store.Revoke(ctx, "shared", expiresAt)
		}()
		go func() {
			defer wg.Done()
			_, _ = store.PurgeExpired(ctx, time.Now())
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, store.Len())
}

func TestGormStore_StorageFailure(t *testing.T) {
	db := testutils.SetupTestDB(t)
	store := NewGormStore(db, nil)
	ctx := context.Background()

	err := store.Revoke(ctx, "tok", time.Now().Add(time.Hour))
	testutils.AssertErrorType(t, ErrStorage, err)

	_, err = store.IsRevoked(ctx, "tok")
	testutils.AssertErrorType(t, ErrStorage, err)

	_, err = store.PurgeExpired(ctx, time.Now())
	testutils.AssertErrorType(t, ErrStorage, err)
}

func TestRedisStore_StorageFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	store := NewRedisStore(client, "test:revoked")
	mr.Close()

	_, err := store.IsRevoked(context.Background(), "tok")
	testutils.AssertErrorType(t, ErrStorage, err)
}

func TestFingerprint(t *testing.T) {
	assert.Len(t, Fingerprint("abc"), 64)
	assert.Equal(t, Fingerprint("abc"), Fingerprint("abc"))
	assert.NotEqual(t, Fingerprint("abc"), Fingerprint("abd"))
}
