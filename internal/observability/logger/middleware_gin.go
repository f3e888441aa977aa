package logger

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	auditcontext "github.com/smallbiznis/woyofal/internal/auditcontext"
	obscontext "github.com/smallbiznis/woyofal/internal/observability/context"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const RequestIDHeader = "X-Request-Id"

// MiddlewareConfig controls request logging behavior.
type MiddlewareConfig struct {
	Debug           bool
	ErrorClassifier func(err error) (string, string)
	// QuietRoutes are logged at debug level: health checks and scrapes.
	QuietRoutes []string
	// ExpectedRejections are routes whose 4xx validation failures are
	// logged at debug level. The audit trail already keeps them.
	ExpectedRejections []string
}

// GinMiddleware assigns the request id, seeds the audit request metadata
// and writes one access log entry per request.
func GinMiddleware(cfg MiddlewareConfig) gin.HandlerFunc {
	quiet := routeSet(cfg.QuietRoutes)
	rejections := routeSet(cfg.ExpectedRejections)

	return func(c *gin.Context) {
		start := time.Now()
		requestID := ensureRequestID(c)

		ctx := obscontext.WithRequestID(c.Request.Context(), requestID)
		ctx = auditcontext.WithRequestID(ctx, requestID)
		ctx = auditcontext.WithIPAddress(ctx, c.ClientIP())
		ctx = auditcontext.WithUserAgent(ctx, c.Request.UserAgent())
		ctx = auditcontext.WithEndpoint(ctx, c.Request.Method, c.Request.URL.Path)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.Int64("bytes_in", max(c.Request.ContentLength, 0)),
			zap.Int("bytes_out", max(c.Writer.Size(), 0)),
		}

		var errorType string
		if lastErr := c.Errors.Last(); lastErr != nil {
			var errorCode string
			if cfg.ErrorClassifier != nil {
				errorType, errorCode = cfg.ErrorClassifier(lastErr.Err)
			}
			fields = append(fields,
				zap.String("error_type", errorType),
				zap.String("error_code", errorCode),
			)
			if cfg.Debug {
				fields = append(fields, zap.Stack("stack"))
			}
		}

		level := zapcore.InfoLevel
		switch {
		case status >= http.StatusInternalServerError:
			level = zapcore.ErrorLevel
		case quiet[route]:
			level = zapcore.DebugLevel
		case rejections[route] && status >= http.StatusBadRequest && errorType == "validation_error":
			level = zapcore.DebugLevel
		}

		// FromContext picks up the meter number bound by the purchase handlers
		if ce := FromContext(c.Request.Context()).Check(level, "http_request"); ce != nil {
			ce.Write(fields...)
		}
	}
}

func ensureRequestID(c *gin.Context) string {
	requestID := strings.TrimSpace(c.GetHeader(RequestIDHeader))
	if requestID == "" {
		requestID = strings.TrimSpace(c.GetString("request_id"))
	}
	if requestID == "" {
		requestID = uuid.NewString()
	}

	c.Set("request_id", requestID)
	c.Header(RequestIDHeader, requestID)
	return requestID
}

func routeSet(routes []string) map[string]bool {
	set := make(map[string]bool, len(routes))
	for _, route := range routes {
		if route = strings.TrimSpace(route); route != "" {
			set[route] = true
		}
	}
	return set
}
