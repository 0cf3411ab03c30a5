package store

import (
	"context"
	"fmt"
	"time"

	"github.com/layer-3/rangda/core"
	"github.com/layer-3/rangda/ports"
	"github.com/redis/go-redis/v9"
)

// RedisStore is a Redis implementation of the NonceStore interface.
// Records are prefixed keys whose value is the expiration instant;
// redis TTLs reap them shortly after expiry as a backstop, but the
// expiration check is always made against the stored value so the
// strict cutoff does not depend on redis clock behavior.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a new Redis store
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "rangda:nonce:",
	}
}

var _ ports.NonceStore = (*RedisStore)(nil)

// Create stores a record for the token
func (s *RedisStore) Create(ctx context.Context, token string, expiresAt time.Time) error {
	key := s.prefix + token

	// TTL slack keeps the key readable at the exact cutoff instant;
	// the value comparison decides actual validity.
	ttl := time.Until(expiresAt) + time.Minute
	if err := s.client.Set(ctx, key, expiresAt.Format(time.RFC3339Nano), ttl).Err(); err != nil {
		return fmt.Errorf("failed to create nonce record: %w", err)
	}

	return nil
}

// FindUnexpired returns the record for the token if it has not expired
func (s *RedisStore) FindUnexpired(ctx context.Context, token string, now time.Time) (*core.NonceRecord, error) {
	key := s.prefix + token

	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find nonce record: %w", err)
	}

	expiresAt, err := time.Parse(time.RFC3339Nano, val)
	if err != nil {
		return nil, fmt.Errorf("corrupt nonce record %q: %w", token, err)
	}
	if !expiresAt.After(now) {
		return nil, nil
	}

	return &core.NonceRecord{Token: token, ExpiresAt: expiresAt}, nil
}

// Consume claims the token's record with GETDEL, so exactly one of any
// number of concurrent consumers observes the value. An expired value
// claimed here was unusable by every consumer, so discarding it is
// safe.
func (s *RedisStore) Consume(ctx context.Context, token string, now time.Time) (bool, error) {
	key := s.prefix + token

	val, err := s.client.GetDel(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to consume nonce record: %w", err)
	}

	expiresAt, err := time.Parse(time.RFC3339Nano, val)
	if err != nil {
		return false, fmt.Errorf("corrupt nonce record %q: %w", token, err)
	}

	return expiresAt.After(now), nil
}

// DeleteIfPresent removes the token's record regardless of expiry
func (s *RedisStore) DeleteIfPresent(ctx context.Context, token string) (bool, error) {
	key := s.prefix + token

	n, err := s.client.Del(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to delete nonce record: %w", err)
	}

	return n > 0, nil
}

// DeleteAllExpired scans the key space and removes records expired at
// now. Redis TTLs already reap most of these; the scan catches the
// slack window left by Create.
func (s *RedisStore) DeleteAllExpired(ctx context.Context, now time.Time) (int, error) {
	var count int

	iter := s.client.Scan(ctx, 0, s.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		val, err := s.client.Get(ctx, key).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return count, fmt.Errorf("failed to sweep nonce records: %w", err)
		}

		expiresAt, err := time.Parse(time.RFC3339Nano, val)
		if err != nil || expiresAt.After(now) {
			continue
		}

		n, err := s.client.Del(ctx, key).Result()
		if err != nil {
			return count, fmt.Errorf("failed to sweep nonce records: %w", err)
		}
		count += int(n)
	}
	if err := iter.Err(); err != nil {
		return count, fmt.Errorf("failed to sweep nonce records: %w", err)
	}

	return count, nil
}
