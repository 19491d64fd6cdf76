package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tradepost.com/pkg/common"
	"tradepost.com/pkg/logger"
	"tradepost.com/pkg/ratelimit"
)

// RateLimit 按 key 限流，keyFn 为空时用 ip + route
func RateLimit(store *ratelimit.Store, keyFn func(c *gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		key := c.ClientIP() + ":" + route
		if keyFn != nil {
			if k := keyFn(c); k != "" {
				key = k + ":" + route
			}
		}

		if !store.Allow(key) {
			// 限流属于可控拒绝，不打堆栈
			logger.Warn(c.Request.Context(), "http rate limited",
				zap.String("key", key),
				zap.String("route", route),
			)
			common.Fail(c, http.StatusTooManyRequests, 1003001, "too many requests")
			c.Abort()
			return
		}
		c.Next()
	}
}
