// Package redis implements the Redis blob backend and the Redis pub/sub
// transport used to fan progress events out to other processes.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gd-practice/gd-coach/internal/infrastructure/persistence/kv"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config holds Redis connection configuration.
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int

	// KeyPrefix namespaces every key this install writes.
	KeyPrefix string

	PoolSize     int
	MinIdleConns int
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolTimeout  time.Duration
}

// DefaultConfig returns a local single-node configuration.
func DefaultConfig() Config {
	return Config{
		Host:         "localhost",
		Port:         6379,
		KeyPrefix:    "gd:",
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
	}
}

// Addr returns the Redis address in "host:port" format.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Options converts the config to go-redis client options.
func (c Config) Options() *redis.Options {
	return &redis.Options{
		Addr:         c.Addr(),
		Password:     c.Password,
		DB:           c.DB,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
		MaxRetries:   c.MaxRetries,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
		PoolTimeout:  c.PoolTimeout,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrConnection is returned when Redis cannot be reached at startup.
	ErrConnection = errors.New("redis: connection failed")

	// ErrKeyEmpty is returned when an empty key is provided.
	ErrKeyEmpty = errors.New("redis: key cannot be empty")
)

// ══════════════════════════════════════════════════════════════════════════════
// BLOB STORE
// ══════════════════════════════════════════════════════════════════════════════

// Store is a kv.Store over plain Redis strings without expiry.
type Store struct {
	client *redis.Client
	prefix string
}

// Dial connects and pings within cfg.DialTimeout.
func Dial(cfg Config) (*Store, error) {
	client := redis.NewClient(cfg.Options())

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	return NewStore(client, cfg.KeyPrefix), nil
}

// NewStore wraps an existing client.
func NewStore(client *redis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

// Client returns the underlying client, shared with the event transport.
func (s *Store) Client() *redis.Client {
	return s.client
}

func (s *Store) key(k string) string {
	return s.prefix + k
}

// Get implements kv.Store.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrKeyEmpty
	}
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, kv.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Set implements kv.Store.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return ErrKeyEmpty
	}
	return s.client.Set(ctx, s.key(key), value, 0).Err()
}

// Delete implements kv.Store.
func (s *Store) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrKeyEmpty
	}
	return s.client.Del(ctx, s.key(key)).Err()
}

// Ping implements kv.Pinger.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close implements kv.Store.
func (s *Store) Close() error {
	return s.client.Close()
}
