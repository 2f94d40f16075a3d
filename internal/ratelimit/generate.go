package ratelimit

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/recipeverse/internal/config"
	"go.uber.org/zap"
)

const keyGenerateUser = "generate:user:%s"

// Decision is the throttle verdict for one request.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// GenerateLimiter throttles generation requests per user.
type GenerateLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
	log    *zap.Logger
}

func NewGenerateLimiter(cfg config.Config, client *redis.Client, log *zap.Logger) *GenerateLimiter {
	limitCfg := cfg.RateLimit
	if client == nil || limitCfg.GenerateRate <= 0 || limitCfg.GenerateBurst <= 0 {
		return nil
	}
	return &GenerateLimiter{
		bucket: NewTokenBucket(client),
		rate:   limitCfg.GenerateRate,
		burst:  limitCfg.GenerateBurst,
		log:    log.Named("ratelimit.generate"),
	}
}

// Allow never fails closed: redis errors admit the request.
func (l *GenerateLimiter) Allow(ctx context.Context, userID string) Decision {
	if l == nil || userID == "" {
		return Decision{Allowed: true}
	}

	res, err := l.bucket.Allow(ctx, fmt.Sprintf(keyGenerateUser, userID), l.rate, l.burst)
	if err != nil {
		l.log.Warn("generate throttle unavailable, allowing request", zap.Error(err))
		return Decision{Allowed: true, Limit: l.burst}
	}
	return Decision{
		Allowed:    res.Allowed,
		Limit:      res.Limit,
		Remaining:  res.Remaining,
		RetryAfter: res.RetryAfter,
	}
}
