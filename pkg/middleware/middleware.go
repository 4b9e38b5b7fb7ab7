// Package middleware 提供 Gin 通用中间件（日志、trace、panic recover、CORS）
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/wyfcoding/exchangecore/pkg/logger"
	"github.com/wyfcoding/exchangecore/pkg/metrics"
)

// RequestIDKey gin context 中 request ID 的键
const RequestIDKey = "request_id"

// GinLogging Gin 日志中间件，注入 request/trace ID 并记录请求耗时
func GinLogging(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.New().String()
		traceID := c.GetHeader("X-Trace-ID")
		if traceID == "" {
			traceID = uuid.New().String()
		}
		spanID := uuid.New().String()

		c.Set(RequestIDKey, requestID)

		ctx := logger.ContextWithTrace(c.Request.Context(), traceID, spanID)
		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		if m != nil {
			m.HTTPRequestsTotal.Inc()
			m.HTTPRequestDuration.Observe(duration.Seconds())
		}

		logger.Info(ctx, "HTTP request completed",
			"request_id", requestID,
			"method", method,
			"path", path,
			"status_code", statusCode,
			"client_ip", c.ClientIP(),
			"duration", duration,
		)
	}
}

// GinRecovery Gin panic 恢复中间件
func GinRecovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				requestID, _ := c.Get(RequestIDKey)

				logger.Error(c.Request.Context(), "HTTP request panicked",
					"request_id", requestID,
					"panic", err,
				)

				c.AbortWithStatusJSON(500, gin.H{
					"error":      "Internal server error",
					"request_id": requestID,
				})
			}
		}()
		c.Next()
	}
}

// GinCORS Gin CORS 中间件
func GinCORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Trace-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
