package redis

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"wealth/internal/platform/config"
)

// PoolMetrics exports go-redis pool statistics.
type PoolMetrics struct {
	hits       prometheus.Counter
	misses     prometheus.Counter
	timeouts   prometheus.Counter
	staleConns prometheus.Counter
	totalConns prometheus.Gauge
	idleConns  prometheus.Gauge
}

// NewPoolMetrics registers pool metrics on reg. A nil reg uses the default registerer.
func NewPoolMetrics(reg prometheus.Registerer) *PoolMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &PoolMetrics{
		hits: f.NewCounter(prometheus.CounterOpts{
			Name: "wealth_redis_pool_hits_total",
			Help: "Number of times a connection was found in the pool",
		}),
		misses: f.NewCounter(prometheus.CounterOpts{
			Name: "wealth_redis_pool_misses_total",
			Help: "Number of times a connection was not found in the pool",
		}),
		timeouts: f.NewCounter(prometheus.CounterOpts{
			Name: "wealth_redis_pool_timeouts_total",
			Help: "Number of times a connection was not obtained due to timeout",
		}),
		staleConns: f.NewCounter(prometheus.CounterOpts{
			Name: "wealth_redis_pool_stale_conns_total",
			Help: "Number of stale connections removed from the pool",
		}),
		totalConns: f.NewGauge(prometheus.GaugeOpts{
			Name: "wealth_redis_pool_total_conns",
			Help: "Number of total connections in the pool",
		}),
		idleConns: f.NewGauge(prometheus.GaugeOpts{
			Name: "wealth_redis_pool_idle_conns",
			Help: "Number of idle connections in the pool",
		}),
	}
}

// Client wraps the go-redis client with health checking capabilities.
type Client struct {
	*redis.Client
	metrics   *PoolMetrics
	lastStats *redis.PoolStats
}

// New connects to the Redis server named by cfg and pings it.
func New(ctx context.Context, cfg config.RedisConfig, metrics *PoolMetrics) (*Client, error) {
	opts, err := redis.ParseURL(cfg.Address())
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	opts.MinIdleConns = cfg.MinIdleConns
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close() //nolint:errcheck // best-effort cleanup on init failure
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{Client: client, metrics: metrics}, nil
}

// Health checks if the Redis connection is healthy.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.Client.Close()
}

// RecordPoolStats updates Prometheus metrics with current pool statistics.
// Call this periodically from a background goroutine.
func (c *Client) RecordPoolStats() {
	if c.metrics == nil {
		return
	}
	stats := c.PoolStats()
	m := c.metrics

	m.totalConns.Set(float64(stats.TotalConns))
	m.idleConns.Set(float64(stats.IdleConns))

	var prev redis.PoolStats
	if c.lastStats != nil {
		prev = *c.lastStats
	}
	if stats.Hits > prev.Hits {
		m.hits.Add(float64(stats.Hits - prev.Hits))
	}
	if stats.Misses > prev.Misses {
		m.misses.Add(float64(stats.Misses - prev.Misses))
	}
	if stats.Timeouts > prev.Timeouts {
		m.timeouts.Add(float64(stats.Timeouts - prev.Timeouts))
	}
	if stats.StaleConns > prev.StaleConns {
		m.staleConns.Add(float64(stats.StaleConns - prev.StaleConns))
	}

	c.lastStats = stats
}
