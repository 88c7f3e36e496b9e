package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tobenna/symptom-assist/backend/internal/domain/providers"
	redisclient "github.com/tobenna/symptom-assist/backend/internal/infrastructure/clients/redis"
)

const upgradeLockPrefix = "triage:upgrade_lock:"

// RedisSessionStore implements SessionStateProvider on Redis. SETNX keeps the
// lock write atomic per identity, so two concurrent turns cannot both pass
// the entitlement gate before either sees the lock.
type RedisSessionStore struct {
	client *redisclient.Client
	ttl    time.Duration
}

// NewRedisSessionStore creates a new Redis-backed session store.
func NewRedisSessionStore(client *redisclient.Client, ttl time.Duration) providers.SessionStateProvider {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisSessionStore{
		client: client,
		ttl:    ttl,
	}
}

// SetUpgradeLock marks the identity as upgrade-locked.
func (s *RedisSessionStore) SetUpgradeLock(ctx context.Context, identityKey string) error {
	if err := s.client.Client().SetNX(ctx, upgradeLockPrefix+identityKey, "1", s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set upgrade lock: %w", err)
	}
	return nil
}

// IsUpgradeLocked reports whether the identity is upgrade-locked.
func (s *RedisSessionStore) IsUpgradeLocked(ctx context.Context, identityKey string) (bool, error) {
	_, err := s.client.Client().Get(ctx, upgradeLockPrefix+identityKey).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read upgrade lock: %w", err)
	}
	return true, nil
}

// ClearUpgradeLock removes the lock for the identity.
func (s *RedisSessionStore) ClearUpgradeLock(ctx context.Context, identityKey string) error {
	if err := s.client.Client().Del(ctx, upgradeLockPrefix+identityKey).Err(); err != nil {
		return fmt.Errorf("failed to clear upgrade lock: %w", err)
	}
	return nil
}
