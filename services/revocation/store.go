package revocation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"time"
)

var ErrStorage = errors.New("revocation storage failure")

// Store is the set of revoked access tokens that have not expired yet. Entries
// are keyed by Fingerprint(token).
type Store interface {
	Revoke(ctx context.Context, token string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, token string) (bool, error)
	// PurgeExpired deletes every entry whose expiry is strictly before the
	// given instant and reports how many were removed.
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}

// Fingerprint is the storage key for a token string.
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

type MemoryStore struct {
	mu     sync.RWMutex
	tokens map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tokens: make(map[string]time.Time),
	}
}

func (m *MemoryStore) Revoke(_ context.Context, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := Fingerprint(token)
	if _, exists := m.tokens[key]; !exists {
		m.tokens[key] = expiresAt
	}
	return nil
}

func (m *MemoryStore) IsRevoked(_ context.Context, token string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.tokens[Fingerprint(token)]
	return exists, nil
}

func (m *MemoryStore) PurgeExpired(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var purged int64
	for key, expiresAt := range m.tokens {
		if expiresAt.Before(before) {
			delete(m.tokens, key)
			purged++
		}
	}
	return purged, nil
}

func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tokens)
}
