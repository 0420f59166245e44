package server

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/genstudio/internal/observability/logger"
	"github.com/smallbiznis/genstudio/internal/ratelimit"
	"go.uber.org/zap"
)

// GenerationRateLimit throttles generations per caller and holds the
// caller's single in-flight slot until the handler returns.
func (s *Server) GenerationRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Enabled() {
			c.Next()
			return
		}

		caller, ok := callerID(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		endpoint := normalizeRateLimitEndpoint(c)
		ctx := c.Request.Context()

		res, err := s.limiter.Allow(ctx, caller)
		if err != nil {
			logger.FromContext(ctx).Warn("generation rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !res.Allowed {
			s.denyRateLimit(c, endpoint, ratelimit.ReasonCallerRate, res.RetryAfter)
			return
		}

		token, ok, err := s.limiter.TryLockCaller(ctx, caller)
		if err != nil {
			logger.FromContext(ctx).Warn("generation concurrency lock failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !ok {
			s.denyRateLimit(c, endpoint, ratelimit.ReasonCallerConcurrency, 0)
			return
		}
		defer func() {
			releaseCtx := context.WithoutCancel(ctx)
			err := s.limiter.ReleaseCaller(releaseCtx, caller, token)
			switch {
			case err == nil:
			case errors.Is(err, ratelimit.ErrLockExpired):
				logger.FromContext(ctx).Warn("generation outlived its concurrency slot")
			default:
				logger.FromContext(ctx).Warn("generation concurrency unlock failed", zap.Error(err))
			}
		}()

		s.obsMetrics.RecordRateLimitAllowed(ctx, endpoint)
		c.Next()
	}
}

func (s *Server) denyRateLimit(c *gin.Context, endpoint, reason string, retryAfter time.Duration) {
	ctx := c.Request.Context()
	logger.FromContext(ctx).Warn("generation rate limit exceeded",
		zap.String("reason", reason),
		zap.String("endpoint", endpoint),
	)
	s.obsMetrics.RecordRateLimitDenied(ctx, endpoint, reason)

	c.Header("Retry-After", retryAfterSeconds(retryAfter))
	c.Header("X-Rate-Limited-Reason", reason)
	AbortWithError(c, ErrRateLimited)
}

func retryAfterSeconds(d time.Duration) string {
	seconds := int64(math.Ceil(d.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	return strconv.FormatInt(seconds, 10)
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	if c == nil {
		return "unknown"
	}
	endpoint := strings.TrimSpace(c.FullPath())
	if endpoint == "" {
		endpoint = strings.TrimSpace(c.Request.URL.Path)
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}
