package session

import (
	"auction-market/internal/auctionerrors"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "session:"

// RedisStore keeps sessions in Redis with a native key TTL
type RedisStore struct {
	Client *redis.Client
}

// NewRedisClient connects to Redis and verifies the connection with a ping
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// NewRedisStore wraps an existing client
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{Client: client}
}

// Close releases the client connection pool
func (s *RedisStore) Close() error {
	if s.Client != nil {
		return s.Client.Close()
	}
	return nil
}

// Save stores a session that expires after ttl
func (s *RedisStore) Save(ctx context.Context, token, accountID string, ttl time.Duration) error {
	if err := s.Client.Set(ctx, keyPrefix+token, accountID, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w: %w", auctionerrors.ErrStoreUnavailable, err)
	}
	return nil
}

// Lookup returns the account of a live session
func (s *RedisStore) Lookup(ctx context.Context, token string) (string, error) {
	accountID, err := s.Client.Get(ctx, keyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("lookup session: %w", auctionerrors.ErrUnauthenticated)
	}
	if err != nil {
		return "", fmt.Errorf("lookup session: %w: %w", auctionerrors.ErrStoreUnavailable, err)
	}
	return accountID, nil
}

// Delete ends a session; unknown tokens are ignored
func (s *RedisStore) Delete(ctx context.Context, token string) error {
	if err := s.Client.Del(ctx, keyPrefix+token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("delete session: %w: %w", auctionerrors.ErrStoreUnavailable, err)
	}
	return nil
}
