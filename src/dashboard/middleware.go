// middleware.go
package dashboard

import (
	"net/http"
	"runtime/debug"
	"time"

	"EcomInsight/src/metrics"
	"EcomInsight/src/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Recovery 捕获 panic 并返回 500
func Recovery(logger *storage.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic recovered",
					zap.Any("error", err),
					zap.String("path", c.Request.URL.Path),
					zap.ByteString("stack", debug.Stack()),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					ErrorResponse{Code: "INTERNAL_ERROR", Message: "internal error"})
			}
		}()
		c.Next()
	}
}

// AccessLog 请求日志与指标
func AccessLog(logger *storage.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 日志流自身不记录，否则每次写日志都会回流
		if c.Request.URL.Path == "/logs" {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		// 模板路径避免高基数
		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		status := c.Writer.Status()
		metrics.RecordHTTPRequest(route, status)

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("query", c.Request.URL.RawQuery),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("error", c.Errors.String()))
		}
		switch {
		case status >= 500:
			logger.Error("request", fields...)
		case status >= 400:
			logger.Warning("request", fields...)
		default:
			logger.Debug("request", fields...)
		}
	}
}
