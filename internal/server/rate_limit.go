package server

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/crm/internal/observability/logger"
	"github.com/smallbiznis/crm/internal/ratelimit"
	"go.uber.org/zap"
)

const (
	rateLimitReasonClientRate  = "client-rate"
	rateLimitReasonConcurrency = "client-concurrency"
)

// BulkImportRateLimit throttles bulk imports per client address and allows
// one running import per client.
func (s *Server) BulkImportRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.bulkLimiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		endpoint := normalizeRateLimitEndpoint(c)
		client := c.ClientIP()

		res, err := s.bulkLimiter.Allow(ctx, client)
		if err != nil {
			logger.FromContext(ctx).Warn("bulk import rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !res.Allowed {
			retryAfter := int(math.Ceil(res.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			s.denyRateLimit(c, endpoint, rateLimitReasonClientRate, retryAfter)
			return
		}

		lease, err := s.bulkLimiter.Claim(ctx, client)
		if errors.Is(err, ratelimit.ErrLockHeld) {
			s.denyRateLimit(c, endpoint, rateLimitReasonConcurrency, 1)
			return
		}
		if err != nil {
			logger.FromContext(ctx).Warn("bulk import concurrency lock failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		defer func() {
			if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
				logger.FromContext(ctx).Warn("bulk import concurrency unlock failed", zap.Error(err))
			}
		}()

		s.obsMetrics.RecordRateLimitAllowed(ctx, endpoint)
		c.Next()
	}
}

func (s *Server) denyRateLimit(c *gin.Context, endpoint, reason string, retryAfter int) {
	ctx := c.Request.Context()
	logger.FromContext(ctx).Warn("bulk import rate limit exceeded",
		zap.String("reason", reason),
		zap.String("endpoint", endpoint),
	)
	s.obsMetrics.RecordRateLimitDenied(ctx, endpoint, reason)

	c.Header("Retry-After", strconv.Itoa(retryAfter))
	c.Header("X-Rate-Limited-Reason", reason)
	AbortWithError(c, ErrRateLimited)
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	endpoint := strings.TrimSpace(c.FullPath())
	if endpoint == "" {
		endpoint = strings.TrimSpace(c.Request.URL.Path)
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}
