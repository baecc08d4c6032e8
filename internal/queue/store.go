package queue

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// Store is the durable KV engine underneath the queue: FIFO lists plus
// expirable strings. Kept narrow so tests can substitute an in-memory
// implementation the same way external commands are stubbed elsewhere.
type Store interface {
	// Push appends a payload to the head of the named list.
	Push(ctx context.Context, key string, value []byte) error
	// Pop removes and returns the oldest payload of the named list.
	// Returns (nil, common.ErrNotFound) when the list is empty. The pop is
	// exclusive across concurrent callers.
	Pop(ctx context.Context, key string) ([]byte, error)
	// Set stores a value; ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Get returns (nil, common.ErrNotFound) for missing or expired keys.
	Get(ctx context.Context, key string) ([]byte, error)
	Close() error
}

// RedisStore implements Store on go-redis. RPOP supplies the atomic,
// exclusive dequeue the worker model relies on.
type RedisStore struct {
	client *redis.Client
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

// NewRedisStore connects and verifies the connection with a ping.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, common.NewAppError("BACKEND_ERROR", "redis ping failed", errors.Join(common.ErrBackend, err))
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Push(ctx context.Context, key string, value []byte) error {
	if err := s.client.LPush(ctx, key, value).Err(); err != nil {
		return backendErr("redis lpush", err)
	}
	return nil
}

func (s *RedisStore) Pop(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.RPop(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, backendErr("redis rpop", err)
	}
	return val, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return backendErr("redis set", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, backendErr("redis get", err)
	}
	return val, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func backendErr(op string, err error) error {
	return common.NewAppError("BACKEND_ERROR", op, errors.Join(common.ErrBackend, err))
}
