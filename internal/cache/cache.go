/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package cache provides a Redis-backed cache for resolved timetables.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/friendsincode/eventdesk/internal/config"
	"github.com/friendsincode/eventdesk/internal/telemetry"
	"github.com/friendsincode/eventdesk/internal/timetable"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	DefaultTimetableTTL = 5 * time.Minute
	DefaultRetryAfter   = 30 * time.Second
)

// Key prefixes for Redis cache
const (
	keyPrefix    = "eventdesk:cache:"
	KeyTimetable = keyPrefix + "timetable:" // + project_id + ":v" + version
)

// Config contains cache configuration.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	TimetableTTL time.Duration

	// DisableOnError trips the breaker on Redis errors. The cache probes
	// Redis again after RetryAfter.
	DisableOnError bool
	RetryAfter     time.Duration
}

// DefaultConfig returns default cache configuration.
func DefaultConfig() Config {
	return Config{
		RedisAddr:      "localhost:6379",
		TimetableTTL:   DefaultTimetableTTL,
		DisableOnError: true,
		RetryAfter:     DefaultRetryAfter,
	}
}

// Cache provides Redis-backed caching with graceful fallback. A nil *Cache is
// valid and never hits.
type Cache struct {
	client *redis.Client
	logger zerolog.Logger
	config Config

	mu            sync.RWMutex
	disabled      bool
	disabledSince time.Time
}

// New creates a cache. An unreachable Redis is not an error: the cache starts
// disabled and retries later.
func New(cfg Config, logger zerolog.Logger) *Cache {
	if cfg.TimetableTTL <= 0 {
		cfg.TimetableTTL = DefaultTimetableTTL
	}
	if cfg.RetryAfter <= 0 {
		cfg.RetryAfter = DefaultRetryAfter
	}

	c := &Cache{
		client: redis.NewClient(&redis.Options{
			Addr:         cfg.RedisAddr,
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
			PoolSize:     10,
			MinIdleConns: 1,
		}),
		logger: logger.With().Str("component", "cache").Logger(),
		config: cfg,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := c.client.Ping(ctx).Err(); err != nil {
		c.logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis cache unavailable, running without caching")
		c.trip()
		return c
	}

	telemetry.CacheConnectionStatus.Set(1)
	c.logger.Info().Str("addr", cfg.RedisAddr).Msg("Redis cache initialized")
	return c
}

// FromConfig builds a cache from process configuration. It returns nil when
// caching is disabled.
func FromConfig(cfg *config.Config, logger zerolog.Logger) *Cache {
	if !cfg.CacheEnabled {
		return nil
	}
	cacheCfg := DefaultConfig()
	cacheCfg.RedisAddr = cfg.RedisAddr
	cacheCfg.RedisPassword = cfg.RedisPassword
	cacheCfg.RedisDB = cfg.RedisDB
	if cfg.CacheTTL > 0 {
		cacheCfg.TimetableTTL = cfg.CacheTTL
	}
	return New(cacheCfg, logger)
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// IsAvailable reports whether the breaker is closed.
func (c *Cache) IsAvailable() bool {
	if c == nil || c.client == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.disabled
}

func (c *Cache) trip() {
	c.mu.Lock()
	c.disabled = true
	c.disabledSince = time.Now()
	c.mu.Unlock()
	telemetry.CacheConnectionStatus.Set(0)
}

// ready reports whether an operation may use Redis, probing once the retry
// window has passed.
func (c *Cache) ready(ctx context.Context) bool {
	if c == nil || c.client == nil {
		return false
	}

	c.mu.RLock()
	disabled, since := c.disabled, c.disabledSince
	c.mu.RUnlock()
	if !disabled {
		return true
	}
	if time.Since(since) < c.config.RetryAfter {
		return false
	}

	if err := c.client.Ping(ctx).Err(); err != nil {
		c.trip()
		return false
	}

	c.mu.Lock()
	c.disabled = false
	c.mu.Unlock()
	telemetry.CacheConnectionStatus.Set(1)
	c.logger.Info().Msg("Redis cache reachable again")
	return true
}

// handleError handles Redis errors with circuit breaker logic.
func (c *Cache) handleError(err error, operation string) {
	if err == nil || errors.Is(err, redis.Nil) {
		return
	}

	c.logger.Debug().Err(err).Str("operation", operation).Msg("cache operation failed")

	if c.config.DisableOnError {
		c.trip()
		c.logger.Warn().Dur("retry_after", c.config.RetryAfter).Msg("disabling cache due to Redis error")
	}
}

func (c *Cache) get(ctx context.Context, key string, dest any) (bool, error) {
	if !c.ready(ctx) {
		return false, nil
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		c.handleError(err, "get")
		return false, err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("failed to unmarshal cached value")
		return false, nil
	}
	return true, nil
}

func (c *Cache) set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !c.ready(ctx) {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.handleError(err, "set")
		return err
	}
	return nil
}

// deletePattern deletes all keys matching a pattern.
func (c *Cache) deletePattern(ctx context.Context, pattern string) error {
	if !c.ready(ctx) {
		return nil
	}

	// SCAN rather than KEYS so large keyspaces do not block Redis.
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			c.handleError(err, "scan")
			return err
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				c.handleError(err, "delete_batch")
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// TimetableKey returns the cache key for a project version.
func TimetableKey(projectID string, version int) string {
	return fmt.Sprintf("%s%s:v%d", KeyTimetable, projectID, version)
}

// GetTimetable returns the cached rows for a project version.
func (c *Cache) GetTimetable(ctx context.Context, projectID string, version int) ([]timetable.Row, bool) {
	var rows []timetable.Row
	found, err := c.get(ctx, TimetableKey(projectID, version), &rows)
	if err != nil || !found {
		telemetry.TimetableCacheTotal.WithLabelValues("miss").Inc()
		return nil, false
	}
	telemetry.TimetableCacheTotal.WithLabelValues("hit").Inc()
	c.logger.Debug().Str("project_id", projectID).Int("version", version).Int("rows", len(rows)).Msg("timetable cache hit")
	return rows, true
}

// SetTimetable caches the resolved rows for a project version.
func (c *Cache) SetTimetable(ctx context.Context, projectID string, version int, rows []timetable.Row) error {
	if c == nil {
		return nil
	}
	return c.set(ctx, TimetableKey(projectID, version), rows, c.config.TimetableTTL)
}

// InvalidateProject drops every cached version of a project's timetable.
func (c *Cache) InvalidateProject(ctx context.Context, projectID string) error {
	if !c.ready(ctx) {
		return nil
	}
	c.logger.Debug().Str("project_id", projectID).Msg("invalidating timetable cache")
	return c.deletePattern(ctx, KeyTimetable+projectID+":*")
}

// FlushTimetables drops every cached timetable of every project.
func (c *Cache) FlushTimetables(ctx context.Context) error {
	if !c.ready(ctx) {
		return nil
	}
	c.logger.Info().Msg("flushing cached timetables")
	return c.deletePattern(ctx, KeyTimetable+"*")
}
