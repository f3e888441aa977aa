package server

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/woyofal/internal/audit/domain"
	"github.com/smallbiznis/woyofal/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/woyofal/internal/observability/metrics"
	"github.com/smallbiznis/woyofal/internal/ratelimit"
	"go.uber.org/zap"
)

const rateLimitReasonMeterRate = "meter-rate"

// PurchaseRateLimit throttles purchases per meter number. Redis failures let
// the request through.
func (s *Server) PurchaseRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		endpoint := normalizeRateLimitEndpoint(c)
		req, _ := purchaseRequestFrom(c)

		result, err := s.limiter.AllowMeter(ctx, req.Compteur)
		if err != nil {
			logger.WithContext(ctx, s.log).Warn("purchase rate limit check failed", zap.Error(err))
			c.Next()
			return
		}
		setRateLimitHeaders(c, result)
		if !result.Allowed {
			s.denyPurchaseRateLimit(c, endpoint, req.Compteur, result)
			return
		}

		recordRateLimitAllowed(ctx, endpoint, s.obsMetrics)
		c.Next()
	}
}

func (s *Server) denyPurchaseRateLimit(c *gin.Context, endpoint, numero string, result *ratelimit.Result) {
	ctx := c.Request.Context()
	logger.WithContext(ctx, s.log).Warn("purchase rate limit exceeded",
		zap.String("reason", rateLimitReasonMeterRate),
		zap.String("endpoint", endpoint),
	)
	recordRateLimitDenied(ctx, endpoint, rateLimitReasonMeterRate, s.obsMetrics)

	rec := auditdomain.Record{
		NumeroCompteur: numero,
		Statut:         auditdomain.StatusError,
		RequestData:    map[string]any{"compteur": numero},
		ErrorMessage:   msgRateLimited,
	}
	if req, ok := purchaseRequestFrom(c); ok {
		amount := req.Montant
		rec.Montant = &amount
	}
	if err := s.auditSvc.Record(ctx, rec); err != nil {
		logger.WithContext(ctx, s.log).Warn("audit of rate limited purchase failed", zap.Error(err))
	}

	c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(result.RetryAfter)))
	c.Header("X-Rate-Limited-Reason", rateLimitReasonMeterRate)
	respondError(c, ErrRateLimited)
}

func setRateLimitHeaders(c *gin.Context, result *ratelimit.Result) {
	if result == nil || result.Limit <= 0 {
		return
	}
	c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	if !result.ResetTime.IsZero() {
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetTime.Unix(), 10))
	}
}

func retryAfterSeconds(d time.Duration) int {
	seconds := int(math.Ceil(d.Seconds()))
	if seconds < 1 {
		return 1
	}
	return seconds
}

func recordRateLimitAllowed(ctx context.Context, endpoint string, metrics *obsmetrics.Metrics) {
	if metrics == nil {
		return
	}
	metrics.RecordRateLimitAllowed(ctx, endpoint)
}

func recordRateLimitDenied(ctx context.Context, endpoint, reason string, metrics *obsmetrics.Metrics) {
	if metrics == nil {
		return
	}
	metrics.RecordRateLimitDenied(ctx, endpoint, reason)
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	if c == nil {
		return "unknown"
	}
	endpoint := strings.TrimSpace(c.FullPath())
	if endpoint == "" {
		endpoint = strings.TrimSpace(c.Request.URL.Path)
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}
