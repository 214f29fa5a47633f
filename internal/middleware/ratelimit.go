package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/guardpost/internal/cache"
	"go.uber.org/zap"
)

// Counter is the slice of the Redis cache the limiter needs.
type Counter interface {
	Increment(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// RateLimit allows each authenticated user limit requests per window on
// the routes it guards. When Redis is unreachable the request goes
// through.
//
// Windows are fixed: the TTL is set once, by the request that creates the
// counter, so steady traffic under the limit never carries a count over
// into the next window.
func RateLimit(counter Counter, scope string, limit int, window time.Duration, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := GetUserID(c)
		if limit <= 0 || counter == nil {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		key := cache.RateLimitKey(scope, userID.String())
		count, err := counter.Increment(ctx, key)
		if err == nil && count == 1 {
			err = counter.Expire(ctx, key, window)
		}
		if err != nil {
			logger.Error("failed to check rate limit",
				zap.String("user_id", userID.String()),
				zap.Error(err),
			)
			c.Next()
			return
		}

		if count > int64(limit) {
			logger.Warn("rate limit exceeded",
				zap.String("user_id", userID.String()),
				zap.String("scope", scope),
				zap.Int64("count", count),
			)
			c.Header("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": fmt.Sprintf("rate limit exceeded: at most %d per %s", limit, window),
				"code":  "rate_limited",
			})
			return
		}
		c.Next()
	}
}
