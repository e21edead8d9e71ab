// Package cache shares solved reports between service instances.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"cvrp-router/internal/metrics"
	"cvrp-router/internal/models"
)

const keyPrefix = "cvrp:solution:"

// SolutionCache stores solution reports keyed by instance content and solve options
type SolutionCache interface {
	Get(ctx context.Context, key string) (*models.SolutionReport, error)
	Set(ctx context.Context, key string, rep *models.SolutionReport) error
	Close() error
}

// Key identifies a solve: the same instance solved with the same options
// always produces the same report.
func Key(inst *models.Instance, strategy string, improve bool) string {
	return keyPrefix + inst.Fingerprint() + ":" + strategy + ":" + strconv.FormatBool(improve)
}

// RedisSolutionCache keeps reports in Redis with a fixed TTL
type RedisSolutionCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisSolutionCache connects to the Redis server at url
func NewRedisSolutionCache(ctx context.Context, url string, ttl time.Duration) (*RedisSolutionCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}
	log.Printf("[CACHE] Redis solution cache ready: addr=%s ttl=%s", opt.Addr, ttl)
	return &RedisSolutionCache{rdb: rdb, ttl: ttl}, nil
}

// Get returns the cached report for key, or nil on a miss
func (c *RedisSolutionCache) Get(ctx context.Context, key string) (*models.SolutionReport, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, nil
	}
	if err != nil {
		metrics.CacheLookups.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to read cached solution: %w", err)
	}

	var rep models.SolutionReport
	if err := json.Unmarshal(data, &rep); err != nil {
		metrics.CacheLookups.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to decode cached solution: %w", err)
	}
	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return &rep, nil
}

// Set stores a report under key until the TTL expires
func (c *RedisSolutionCache) Set(ctx context.Context, key string, rep *models.SolutionReport) error {
	data, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("failed to encode solution: %w", err)
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache solution: %w", err)
	}
	return nil
}

// Close releases the Redis connection pool
func (c *RedisSolutionCache) Close() error {
	return c.rdb.Close()
}
