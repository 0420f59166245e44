package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/genstudio/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	keyGenerationCaller = "genstudio:gen:caller:%s"
	keyGenerationLock   = "genstudio:gen:lock:%s"

	// ReasonCallerRate and ReasonCallerConcurrency label denials.
	ReasonCallerRate        = "caller-rate"
	ReasonCallerConcurrency = "caller-concurrency"

	lockGrace = 30 * time.Second
)

// GenerationLimiter throttles generation requests per caller and allows one
// in-flight generation per caller. A nil limiter allows everything.
type GenerationLimiter struct {
	client  redis.UniversalClient
	bucket  *TokenBucket
	locker  *Locker
	rate    float64
	burst   int
	lockTTL time.Duration
}

func NewGenerationLimiter(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (*GenerationLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if limitCfg.GenerationRate <= 0 || limitCfg.GenerationBurst <= 0 {
		return nil, errors.New("generation rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})

	limiter := newGenerationLimiter(client, limitCfg.GenerationRate, limitCfg.GenerationBurst, cfg.Generation.Timeout)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				log.Warn("rate limit redis unreachable", zap.String("addr", addr), zap.Error(err))
			}
			return nil
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return limiter, nil
}

func newGenerationLimiter(client redis.UniversalClient, rate float64, burst int, generationTimeout time.Duration) *GenerationLimiter {
	return &GenerationLimiter{
		client:  client,
		bucket:  NewTokenBucket(client),
		locker:  NewLocker(client),
		rate:    rate,
		burst:   burst,
		lockTTL: lockTTL(generationTimeout),
	}
}

func (l *GenerationLimiter) Enabled() bool {
	return l != nil && l.client != nil
}

func (l *GenerationLimiter) Allow(ctx context.Context, callerID string) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, callerKey(callerID), l.rate, l.burst)
}

// TryLockCaller claims the caller's single generation slot. The returned
// token must be passed to ReleaseCaller.
func (l *GenerationLimiter) TryLockCaller(ctx context.Context, callerID string) (string, bool, error) {
	if !l.Enabled() {
		return "", true, nil
	}
	return l.locker.TryLock(ctx, lockKey(callerID), l.lockTTL)
}

func (l *GenerationLimiter) ReleaseCaller(ctx context.Context, callerID, token string) error {
	if !l.Enabled() {
		return nil
	}
	return l.locker.Release(ctx, lockKey(callerID), token)
}

func callerKey(callerID string) string {
	return fmt.Sprintf(keyGenerationCaller, strings.TrimSpace(callerID))
}

func lockKey(callerID string) string {
	return fmt.Sprintf(keyGenerationLock, strings.TrimSpace(callerID))
}

// lockTTL outlives the longest provider call so a crashed holder eventually
// frees the slot.
func lockTTL(generationTimeout time.Duration) time.Duration {
	if generationTimeout <= 0 {
		generationTimeout = 5 * time.Minute
	}
	return generationTimeout + lockGrace
}
