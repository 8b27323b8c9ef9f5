package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/Davidgwa1996/unidigitalcom/pkg/errors"

	"github.com/Davidgwa1996/unidigitalcom/internal/storage"
)

const keyPrefix = "storefront:session:"

// SessionKey returns the Redis hash holding one session's storage.
func SessionKey(sessionID string) string {
	return keyPrefix + sessionID
}

// Provider stores each session as a Redis hash whose fields are storage
// keys. Every write refreshes the hash TTL, so idle sessions expire.
type Provider struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewProvider creates a Redis-backed provider. A zero ttl keeps sessions forever.
func NewProvider(client redis.UniversalClient, ttl time.Duration) *Provider {
	return &Provider{client: client, ttl: ttl}
}

// ForSession returns the storage of sessionID.
func (p *Provider) ForSession(sessionID string) storage.Storage {
	return &Storage{client: p.client, key: SessionKey(sessionID), ttl: p.ttl}
}

// Ping checks the Redis connection.
func (p *Provider) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Storage is one session's hash.
type Storage struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
}

// GetItem reads field key of the session hash.
func (s *Storage) GetItem(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.HGet(ctx, s.key, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFound("storage key", key)
		}
		return nil, fmt.Errorf("redis hget %s: %w", key, err)
	}
	return data, nil
}

// SetItem writes field key and slides the session TTL in one round trip.
func (s *Storage) SetItem(ctx context.Context, key string, value []byte) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.key, key, value)
		if s.ttl > 0 {
			pipe.Expire(ctx, s.key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis hset %s: %w", key, err)
	}
	return nil
}

// RemoveItem deletes field key. Removing an absent key is not an error.
func (s *Storage) RemoveItem(ctx context.Context, key string) error {
	if err := s.client.HDel(ctx, s.key, key).Err(); err != nil {
		return fmt.Errorf("redis hdel %s: %w", key, err)
	}
	return nil
}
