package revocation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps revoked tokens in a single sorted set scored by expiry in
// Unix milliseconds, so purging is one range delete.
type RedisStore struct {
	client redis.UniversalClient
	key    string
}

func NewRedisStore(client redis.UniversalClient, key string) *RedisStore {
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	err := s.client.ZAddNX(ctx, s.key, redis.Z{
		Score:  float64(expiresAt.UnixMilli()),
		Member: Fingerprint(token),
	}).Err()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}

func (s *RedisStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	_, err := s.client.ZScore(ctx, s.key, Fingerprint(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return true, nil
}

func (s *RedisStore) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	upper := "(" + strconv.FormatInt(before.UnixMilli(), 10)
	purged, err := s.client.ZRemRangeByScore(ctx, s.key, "-inf", upper).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return purged, nil
}
