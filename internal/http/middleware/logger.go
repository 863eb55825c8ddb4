package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderDeviceID  = "X-Device-ID"

	ginRequestIDKey = "request_id"
	ginLoggerKey    = "request_logger"
)

// RequestLogger tags every request with a request id, exposes a request-scoped
// logger to handlers and writes one access line when the request completes.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.L()
	}

	return func(c *gin.Context) {
		start := time.Now()

		requestID := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		deviceID := strings.TrimSpace(c.GetHeader(HeaderDeviceID))
		if deviceID == "" {
			deviceID = "-"
		}

		scoped := logger.With(zap.String("request_id", requestID), zap.String("device_id", deviceID))
		c.Set(ginRequestIDKey, requestID)
		c.Set(ginLoggerKey, scoped)
		c.Writer.Header().Set(HeaderRequestID, requestID)

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			// query strings are not logged
			zap.String("path", c.Request.URL.Path),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
		}
		if identity, ok := GetIdentity(c); ok {
			fields = append(fields, zap.Int64("user_id", identity.UserID))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		if ce := scoped.Check(levelFor(status), "http_request"); ce != nil {
			ce.Write(fields...)
		}
	}
}

// Logger returns the request-scoped logger, or fallback outside RequestLogger.
func Logger(c *gin.Context, fallback *zap.Logger) *zap.Logger {
	if value, ok := c.Get(ginLoggerKey); ok {
		if scoped, ok := value.(*zap.Logger); ok {
			return scoped
		}
	}
	if fallback != nil {
		return fallback
	}
	return zap.L()
}

func levelFor(status int) zapcore.Level {
	switch {
	case status >= 500:
		return zapcore.ErrorLevel
	case status >= 400:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}
