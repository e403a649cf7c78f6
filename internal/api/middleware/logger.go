package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"buildbuddy-admin/internal/pkg/logger"
	"buildbuddy-admin/pkg/constants"
)

// LoggerMiddleware 访问日志
// 沿用客户端传入的 X-Request-ID, 没有时生成一个; 下游中间件挂到 context 上的字段一并输出
func LoggerMiddleware(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		requestID := c.GetHeader(constants.HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(constants.HeaderRequestID, requestID)
		c.Request = c.Request.WithContext(logger.WithFields(c.Request.Context(), logger.RequestFields(requestID)...))

		c.Next()

		cost := time.Since(start)
		fields := []zap.Field{
			zap.String("ip", c.ClientIP()),
			zap.String("user-agent", c.Request.UserAgent()),
		}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate).String(); errs != "" {
			fields = append(fields, zap.String("errors", errs))
		}

		logger.Ctx(c.Request.Context(), log).Info(
			fmt.Sprintf("%s %s %s %v %.2fs %v", c.Request.Proto, c.Request.Method, path, c.Writer.Status(), cost.Seconds(), query),
			fields...)
	}
}
