package temporal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"wealth/internal/claimcheck"
	"wealth/internal/payloadstore"
	"wealth/internal/platform/config"
	"wealth/internal/platform/database"
	"wealth/internal/platform/redis"
	"wealth/migrations"
)

// ClaimCheck is the codec plus the resources backing its store.
type ClaimCheck struct {
	Codec   *claimcheck.Codec
	Backend string
	Checks  map[string]func(context.Context) error

	closers []func() error
}

// Close releases the store connections.
func (c *ClaimCheck) Close() error {
	var first error
	for _, fn := range c.closers {
		if err := fn(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// NewClaimCheck opens the store selected by cfg.ClaimCheck.Store and builds the codec.
func NewClaimCheck(ctx context.Context, cfg config.Config, reg prometheus.Registerer, logger *slog.Logger) (*ClaimCheck, error) {
	cc := &ClaimCheck{
		Backend: cfg.ClaimCheck.Store,
		Checks:  map[string]func(context.Context) error{},
	}

	var store payloadstore.Store
	switch cfg.ClaimCheck.Store {
	case "memory":
		store = payloadstore.NewMemoryStore()
	case "redis":
		rc, err := redis.New(ctx, cfg.Redis, redis.NewPoolMetrics(reg))
		if err != nil {
			return nil, err
		}
		cc.closers = append(cc.closers, rc.Close)
		cc.Checks["redis"] = rc.Health
		store = payloadstore.NewRedisStore(rc.Client,
			payloadstore.WithKeyPrefix(cfg.ClaimCheck.RedisPrefix),
			payloadstore.WithTTL(cfg.ClaimCheck.TTL),
		)
	case "postgres":
		pool, err := database.Open(ctx, cfg.Database.URL, database.WithSchema(migrations.FS))
		if err != nil {
			return nil, err
		}
		if reg != nil {
			if err := reg.Register(pool.Collector("claim_check")); err != nil {
				_ = pool.Close()
				return nil, fmt.Errorf("register database metrics: %w", err)
			}
		}
		cc.closers = append(cc.closers, pool.Close)
		cc.Checks["postgres"] = pool.Health
		store = payloadstore.NewPostgresStore(pool.DB(), cfg.ClaimCheck.TTL)
	default:
		return nil, fmt.Errorf("unknown claim-check store %q", cfg.ClaimCheck.Store)
	}

	cc.Codec = claimcheck.NewCodec(
		payloadstore.NewTraced(store, cfg.ClaimCheck.Store),
		claimcheck.WithPolicy(claimcheck.PolicyForThreshold(cfg.ClaimCheck.ThresholdBytes)),
		claimcheck.WithTimeout(cfg.ClaimCheck.Timeout),
		claimcheck.WithMetrics(claimcheck.NewMetrics(reg)),
	)

	logger.Info("claim-check codec enabled",
		"store", cfg.ClaimCheck.Store,
		"threshold_bytes", cfg.ClaimCheck.ThresholdBytes,
		"ttl", cfg.ClaimCheck.TTL,
	)
	return cc, nil
}
