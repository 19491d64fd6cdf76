package middleware

import (
	"net/http"

	sentinels "github.com/alibaba/sentinel-golang/api"
	"github.com/alibaba/sentinel-golang/core/base"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tradepost.com/pkg/common"
	"tradepost.com/pkg/logger"
)

// Sentinel 按路由做流控和熔断，资源名为 "METHOD /route"。
// 只有 5xx 计入熔断统计，业务拒绝 (4xx) 不算依赖故障。
func Sentinel() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		resource := c.Request.Method + " " + route

		entry, blockErr := sentinels.Entry(resource, sentinels.WithTrafficType(base.Inbound))
		if blockErr != nil {
			logger.Warn(c.Request.Context(), "request blocked by sentinel",
				zap.String("resource", resource),
				zap.String("blockType", blockErr.BlockType().String()),
				zap.String("blockMsg", blockErr.Error()),
			)
			common.Fail(c, http.StatusTooManyRequests, http.StatusTooManyRequests, "service is busy, please try again later")
			c.Abort()
			return
		}
		defer entry.Exit()

		c.Next()

		if c.Writer.Status() >= http.StatusInternalServerError {
			sentinels.TraceError(entry, errServerStatus(c.Writer.Status()))
		}
	}
}

type errServerStatus int

func (e errServerStatus) Error() string { return http.StatusText(int(e)) }
