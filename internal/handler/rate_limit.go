package handler

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/identity-service/internal/domain"
	"github.com/prperemyshlev/identity-service/internal/dto"
	"github.com/prperemyshlev/identity-service/internal/service"
	"github.com/prperemyshlev/identity-service/pkg/observability"
	"go.uber.org/zap"
)

// RateLimit configures one rate limited route
type RateLimit struct {
	Limit   int
	Window  time.Duration
	KeyFunc func(*gin.Context) string
}

// RateLimitMiddleware creates a rate limiting middleware. Requests pass when
// Redis cannot be consulted.
func RateLimitMiddleware(rateLimiter *service.RateLimiter, rl RateLimit, logger *zap.Logger, metrics *observability.AuthMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		key := fmt.Sprintf("%s:%s", route, rl.KeyFunc(c))

		decision, err := rateLimiter.Allow(c.Request.Context(), key, rl.Limit, rl.Window)
		if err != nil {
			logger.Warn("rate limiter unavailable",
				zap.String("route", route),
				zap.Error(err),
			)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

		if !decision.Allowed {
			metrics.RateLimitDenied(c.Request.Context(), route)
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(decision.RetryAfter.Seconds()))))
			c.AbortWithStatusJSON(domain.ErrTooManyRequests.Status(), dto.NewErrorResponse(domain.ErrTooManyRequests))
			return
		}

		c.Next()
	}
}

// IPBasedKey extracts rate limit key from client IP
func IPBasedKey(c *gin.Context) string {
	return c.ClientIP()
}
