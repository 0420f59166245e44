package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/genstudio/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
)

func TestParseScriptResult(t *testing.T) {
	res, err := parseScriptResult([]interface{}{int64(1), "2.5", int64(1700000000000)}, 0.5, 3)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 3, res.Limit)
	assert.Equal(t, 2, res.Remaining)
	assert.Zero(t, res.RetryAfter)

	res, err = parseScriptResult([]interface{}{int64(0), "0.5", int64(1700000000000)}, 0.5, 3)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, time.Second, res.RetryAfter)

	_, err = parseScriptResult([]interface{}{int64(1)}, 1, 1)
	assert.ErrorIs(t, err, errBadResponse)
}

func TestRetryAfter(t *testing.T) {
	assert.Equal(t, 5*time.Second, retryAfter(0, 0.2))
	assert.Equal(t, time.Duration(0), retryAfter(1, 0.2))
	assert.Equal(t, time.Duration(0), retryAfter(0, 0))
}

func TestBucketTTL(t *testing.T) {
	assert.Equal(t, 30*time.Second, bucketTTL(0.2, 3))
	assert.Equal(t, time.Second, bucketTTL(100, 1))
	assert.Equal(t, time.Second, bucketTTL(0, 1))
}

func TestCasts(t *testing.T) {
	assert.Equal(t, int64(7), castToInt("7"))
	assert.Equal(t, int64(7), castToInt(7.9))
	assert.Equal(t, int64(0), castToInt(nil))
	assert.Equal(t, 1.25, castToFloat("1.25"))
	assert.Equal(t, 3.0, castToFloat(int64(3)))
	assert.Equal(t, 0.0, castToFloat(struct{}{}))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "genstudio:gen:caller:u1", callerKey(" u1 "))
	assert.Equal(t, "genstudio:gen:lock:u1", lockKey("u1"))
	assert.Equal(t, 5*time.Minute+lockGrace, lockTTL(0))
	assert.Equal(t, time.Minute+lockGrace, lockTTL(time.Minute))
}

func TestNilLimiterAllows(t *testing.T) {
	var l *GenerationLimiter
	assert.False(t, l.Enabled())

	res, err := l.Allow(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	token, ok, err := l.TryLockCaller(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, token)
	assert.NoError(t, l.ReleaseCaller(context.Background(), "u1", token))
}

func TestNewGenerationLimiter_Disabled(t *testing.T) {
	l, err := NewGenerationLimiter(fxtest.NewLifecycle(t), config.Config{}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, l)
}

func TestNewGenerationLimiter_RejectsBadConfig(t *testing.T) {
	cfg := config.Config{RateLimit: config.RateLimitConfig{Enabled: true, RedisAddr: "localhost:6379"}}
	_, err := NewGenerationLimiter(fxtest.NewLifecycle(t), cfg, zap.NewNop())
	assert.Error(t, err)

	cfg.RateLimit.RedisAddr = " "
	cfg.RateLimit.GenerationRate = 1
	cfg.RateLimit.GenerationBurst = 1
	_, err = NewGenerationLimiter(fxtest.NewLifecycle(t), cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestTokenBucketGuards(t *testing.T) {
	var tb *TokenBucket
	_, err := tb.Allow(context.Background(), "k", 1, 1)
	assert.ErrorIs(t, err, errNotConfigured)
	assert.Nil(t, NewTokenBucket(nil))
	assert.Nil(t, NewLocker(nil))
}

func TestLockerGuards(t *testing.T) {
	var l *Locker
	_, ok, err := l.TryLock(context.Background(), "k", time.Second)
	assert.False(t, ok)
	assert.ErrorIs(t, err, errLockNotConfigured)
	assert.NoError(t, l.Release(context.Background(), "k", "token"))
}
