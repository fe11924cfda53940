package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/clubledger/backend/internal/domain/shared"
	"github.com/clubledger/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const pingTimeout = 5 * time.Second

// NewIdempotencyStore returns a Redis-backed store when Redis is enabled and
// reachable. When Redis is disabled the in-memory store is used. An
// unreachable Redis falls back to memory unless requireRedis is set.
func NewIdempotencyStore(ctx context.Context, cfg config.RedisConfig, requireRedis bool, logger *zap.Logger) (shared.IdempotencyStore, error) {
	if !cfg.Enabled {
		if requireRedis {
			return nil, fmt.Errorf("redis is required for settlement idempotency but disabled")
		}
		logger.Info("Using in-memory idempotency store")
		return NewInMemoryIdempotencyStore(5 * time.Minute), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		if requireRedis {
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Addr(), err)
		}
		logger.Warn("Redis unavailable, falling back to in-memory idempotency store",
			zap.String("addr", cfg.Addr()),
			zap.Error(err),
		)
		return NewInMemoryIdempotencyStore(5 * time.Minute), nil
	}

	logger.Info("Using Redis idempotency store", zap.String("addr", cfg.Addr()))
	return NewRedisIdempotencyStore(client, ""), nil
}
