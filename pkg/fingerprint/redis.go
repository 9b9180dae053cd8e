package fingerprint

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix prefixes every hash key.
const DefaultRedisPrefix = "titleplot:fp:"

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// RedisBackend stores the records of a directory in one Redis hash. The
// field is the artifact name and the value the base64 record payload, the
// same payload the file backend writes after its separator.
type RedisBackend struct {
	client *redis.Client
	prefix string
	logger *log.Logger
}

// NewRedisBackend connects to Redis and verifies the connection.
func NewRedisBackend(ctx context.Context, cfg RedisConfig, logger *log.Logger) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Addr, err)
	}
	return NewRedisBackendWithClient(client, cfg.Prefix, logger), nil
}

// NewRedisBackendWithClient wraps an existing client.
func NewRedisBackendWithClient(client *redis.Client, prefix string, logger *log.Logger) *RedisBackend {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	if logger == nil {
		logger = log.Default()
	}
	return &RedisBackend{client: client, prefix: prefix, logger: logger}
}

// Key returns the hash key for dir. Directories are made absolute first so
// the same folder maps to one key regardless of the working directory.
func (b *RedisBackend) Key(dir string) string {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return b.prefix + Hash([]byte(filepath.Clean(dir)))
}

// Location returns the redis address and key for dir.
func (b *RedisBackend) Location(dir string) string {
	return fmt.Sprintf("redis://%s/%s", b.client.Options().Addr, b.Key(dir))
}

// Load reads the hash for dir. Malformed fields are skipped.
func (b *RedisBackend) Load(ctx context.Context, dir string) (map[string]Record, error) {
	key := b.Key(dir)
	fields, err := b.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	recs := make(map[string]Record, len(fields))
	for name, payload := range fields {
		r, err := decodePayload(payload)
		if err != nil {
			b.logger.Warn("skipping malformed fingerprint field", "key", key, "field", name, "err", err)
			continue
		}
		recs[name] = r
	}
	return recs, nil
}

// Save replaces the hash for dir in one transaction.
func (b *RedisBackend) Save(ctx context.Context, dir string, recs map[string]Record) error {
	key := b.Key(dir)
	values := make(map[string]any, len(recs))
	for name, r := range recs {
		payload, err := encodePayload(r)
		if err != nil {
			return err
		}
		values[name] = payload
	}

	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(values) > 0 {
			pipe.HSet(ctx, key, values)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Close closes the Redis client.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}

var _ Backend = (*RedisBackend)(nil)
