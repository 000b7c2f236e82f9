package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/example/wardrobe-dedup/internal/engine"
	"github.com/example/wardrobe-dedup/internal/logging"
)

// RedisFingerprintCache stores computed fingerprints in Redis so repeated
// runs over a mostly unchanged collection skip the download and decode work.
// It satisfies engine.Cache; the engine treats every error here as a miss.
type RedisFingerprintCache struct {
	client         *redis.Client
	logger         *zap.Logger
	retryAttempts  int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// NewRedisFingerprintCache constructs a Redis-backed fingerprint cache.
func NewRedisFingerprintCache(client *redis.Client, logger *zap.Logger) *RedisFingerprintCache {
	return &RedisFingerprintCache{
		client:         client,
		logger:         logger.Named("fingerprint_cache"),
		retryAttempts:  3,
		initialBackoff: 50 * time.Millisecond,
		maxBackoff:     time.Second,
	}
}

// Get looks a fingerprint up by cache key. A missing key is (0, false, nil).
func (c *RedisFingerprintCache) Get(ctx context.Context, key string) (engine.Fingerprint, bool, error) {
	var value string
	err := c.withRetry(ctx, "cache.get_fingerprint", key, func() error {
		v, err := c.client.Get(ctx, key).Result()
		if err != nil {
			return err
		}
		value = v
		return nil
	})
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, err
	}

	fp, err := decodeFingerprint(value)
	if err != nil {
		// A corrupt entry behaves like a miss; the engine recomputes and the
		// following Set overwrites it.
		c.logger.Warn("discarding corrupt cache entry", zap.String("key", key), zap.Error(err))
		return 0, false, nil
	}
	return fp, true, nil
}

// Set stores a fingerprint under the given key with a TTL.
func (c *RedisFingerprintCache) Set(ctx context.Context, key string, fp engine.Fingerprint, ttl time.Duration) error {
	return c.withRetry(ctx, "cache.set_fingerprint", key, func() error {
		return c.client.Set(ctx, key, fp.String(), ttl).Err()
	})
}

func decodeFingerprint(value string) (engine.Fingerprint, error) {
	raw, err := strconv.ParseUint(value, 16, 64)
	if err != nil {
		return 0, err
	}
	return engine.Fingerprint(raw), nil
}

func (c *RedisFingerprintCache) withRetry(ctx context.Context, operation, ref string, fn func() error) error {
	backoff := c.initialBackoff
	opLogger := logging.WithOperation(c.logger, operation, ref)
	var err error
	for attempt := 0; attempt < c.retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return logging.NewOperationError(operation, ref, ctx.Err())
			case <-time.After(backoff):
			}
			if next := backoff * 2; next <= c.maxBackoff {
				backoff = next
			}
		}

		err = fn()
		if err == nil {
			if attempt > 0 {
				opLogger.Info("redis operation succeeded after retry", zap.Int("attempt", attempt+1))
			}
			return nil
		}
		if errors.Is(err, redis.Nil) {
			// A miss is an answer, not a failure.
			return err
		}

		if !isTransientError(err) || attempt == c.retryAttempts-1 {
			opLogger.Warn("redis operation failed", zap.Error(err), zap.Int("attempt", attempt+1))
			return logging.NewOperationError(operation, ref, err)
		}

		opLogger.Warn("transient redis error", zap.Error(err), zap.Int("attempt", attempt+1))
	}
	return logging.NewOperationError(operation, ref, err)
}

func isTransientError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var temporary interface{ Temporary() bool }
	if errors.As(err, &temporary) && temporary.Temporary() {
		return true
	}

	return false
}
