// Package cache keeps generated reports in Redis for a short time.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rubyocorrencia-DRACO/Ruby-assistente-de-ocorrencia/internal/metrics"
)

// DefaultTTL is how long a cached report stays valid.
const DefaultTTL = 5 * time.Minute

const keyPrefix = "ruby:report:"

// NewRedisClient connects to addr and verifies the connection with a ping.
func NewRedisClient(ctx context.Context, addr string, timeout time.Duration) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}
	return client, nil
}

// ReportCache stores report workbooks per language. A ReportCache without a client is
// disabled: Get always misses and Set and Invalidate do nothing.
type ReportCache struct {
	client  *redis.Client
	log     *slog.Logger
	metrics *metrics.Metrics
	ttl     time.Duration
}

// NewReportCache creates a cache over client. client may be nil.
func NewReportCache(log *slog.Logger, client *redis.Client, metrics *metrics.Metrics, ttl time.Duration) *ReportCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ReportCache{client: client, log: log, metrics: metrics, ttl: ttl}
}

// Enabled reports whether a Redis client is configured.
func (c *ReportCache) Enabled() bool {
	return c != nil && c.client != nil
}

// Get returns the cached report for lang.
func (c *ReportCache) Get(ctx context.Context, lang string) ([]byte, bool) {
	if !c.Enabled() {
		return nil, false
	}

	data, err := c.client.Get(ctx, keyPrefix+lang).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.metrics.CacheOps.WithLabelValues("get", "error").Inc()
			c.log.ErrorContext(ctx, "Failed to get report from cache", "error", err, "lang", lang)
			return nil, false
		}
		c.metrics.CacheOps.WithLabelValues("get", "miss").Inc()
		return nil, false
	}

	c.metrics.CacheOps.WithLabelValues("get", "hit").Inc()
	return data, true
}

// Set caches the report for lang. Failures are logged and otherwise ignored.
func (c *ReportCache) Set(ctx context.Context, lang string, data []byte) {
	if !c.Enabled() {
		return
	}

	if err := c.client.Set(ctx, keyPrefix+lang, data, c.ttl).Err(); err != nil {
		c.metrics.CacheOps.WithLabelValues("set", "error").Inc()
		c.log.ErrorContext(ctx, "Failed to save report to cache", "error", err, "lang", lang)
		return
	}
	c.metrics.CacheOps.WithLabelValues("set", "success").Inc()
}

// Invalidate drops the cached reports of every language in langs.
func (c *ReportCache) Invalidate(ctx context.Context, langs ...string) {
	if !c.Enabled() || len(langs) == 0 {
		return
	}

	keys := make([]string, 0, len(langs))
	for _, lang := range langs {
		keys = append(keys, keyPrefix+lang)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.metrics.CacheOps.WithLabelValues("del", "error").Inc()
		c.log.ErrorContext(ctx, "Failed to invalidate cached reports", "error", err)
		return
	}
	c.metrics.CacheOps.WithLabelValues("del", "success").Inc()
}

// Ping checks that Redis answers. A disabled cache is always healthy.
func (c *ReportCache) Ping(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Ping(ctx).Err()
}
