package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"rentpay-workers/internal/common/logger"
)

const (
	systemStatusKey = "rentpay:settings:system_status"

	// Short TTL: flipping the system between sandbox and live must take
	// effect within a minute.
	settingsCacheTTL = 60 * time.Second
)

// statusSource is the uncached settings read, normally *SettingsStore.
type statusSource interface {
	SystemStatus(ctx context.Context) (string, error)
}

// CachedSettings fronts the settings table with Redis. Cache problems fall
// through to the database; only a database failure surfaces an error.
type CachedSettings struct {
	source statusSource
	redis  *redis.Client
	logger logger.Logger
	ttl    time.Duration
}

func NewCachedSettings(source statusSource, rdb *redis.Client, log logger.Logger) *CachedSettings {
	return &CachedSettings{source: source, redis: rdb, logger: log, ttl: settingsCacheTTL}
}

func (c *CachedSettings) SystemStatus(ctx context.Context) (string, error) {
	val, err := c.redis.Get(ctx, systemStatusKey).Result()
	if err == nil {
		return val, nil
	}
	if err != redis.Nil {
		c.logger.Warn("settings cache read failed, falling through", map[string]interface{}{
			"error": err.Error(),
		})
	}

	status, err := c.source.SystemStatus(ctx)
	if err != nil {
		return "", err
	}

	if err := c.redis.Set(ctx, systemStatusKey, status, c.ttl).Err(); err != nil {
		c.logger.Warn("settings cache write failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return status, nil
}
