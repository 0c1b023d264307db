package payloadstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKeyPrefix namespaces claim-check entries.
const DefaultRedisKeyPrefix = "claimcheck:"

// RedisStore persists payloads in Redis with optional TTL-based eviction.
type RedisStore struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithKeyPrefix overrides the key prefix. An empty prefix stores keys verbatim,
// which matches workers that write bare UUID keys.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// WithTTL sets the expiry applied to each written entry. Zero keeps entries forever.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// NewRedisStore constructs a Redis-backed payload store.
func NewRedisStore(client redis.Cmdable, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client: client,
		prefix: DefaultRedisKeyPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put writes the value with SET, overwriting any existing entry.
func (s *RedisStore) Put(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.prefix+key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Get loads the value with GET; redis.Nil maps to ErrNotFound.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, nil
}

var _ Store = (*RedisStore)(nil)
