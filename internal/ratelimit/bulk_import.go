package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/crm/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	keyBulkImportClient = "crm:bulk:client:%s"
	keyBulkImportLock   = "crm:bulk:lock:%s"

	bulkImportLockTTL = 2 * time.Minute
)

// BulkImportLimiter throttles bulk customer imports per client and keeps a
// client from running two imports at once. Without redis every call is
// allowed.
type BulkImportLimiter struct {
	enabled bool

	bucket *TokenBucket
	locker *Locker

	policy  Policy
	lockTTL time.Duration
}

func NewBulkImportLimiter(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (*BulkImportLimiter, error) {
	log = log.Named("ratelimit")

	addr := strings.TrimSpace(cfg.Redis.Addr)
	if addr == "" || cfg.RateLimit.BulkRatePerSecond <= 0 {
		log.Info("bulk import rate limiting disabled")
		return &BulkImportLimiter{}, nil
	}
	if cfg.RateLimit.BulkBurst <= 0 {
		return nil, errors.New("bulk import burst must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.Redis.Password),
		DB:       cfg.Redis.DB,
	})
	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error {
				return client.Close()
			},
		})
	}

	log.Info("bulk import rate limiting enabled",
		zap.String("redis", addr),
		zap.Float64("rate", cfg.RateLimit.BulkRatePerSecond),
		zap.Int("burst", cfg.RateLimit.BulkBurst),
	)
	return &BulkImportLimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
		locker:  NewLocker(client),
		policy: Policy{
			Rate:  cfg.RateLimit.BulkRatePerSecond,
			Burst: cfg.RateLimit.BulkBurst,
		},
		lockTTL: bulkImportLockTTL,
	}, nil
}

func (l *BulkImportLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *BulkImportLimiter) Allow(ctx context.Context, client string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyBulkImportClient, strings.TrimSpace(client)), l.policy)
}

// Claim takes the client's single import slot. It returns ErrLockHeld while
// another import from the same client is running. With limiting disabled
// the returned lease is nil.
func (l *BulkImportLimiter) Claim(ctx context.Context, client string) (*Lease, error) {
	if !l.Enabled() {
		return nil, nil
	}
	return l.locker.Acquire(ctx, fmt.Sprintf(keyBulkImportLock, strings.TrimSpace(client)), l.lockTTL)
}
