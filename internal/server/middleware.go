package server

import (
	"bytes"
	"io"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/woyofal/internal/audit/domain"
	obscontext "github.com/smallbiznis/woyofal/internal/observability/context"
	obslogger "github.com/smallbiznis/woyofal/internal/observability/logger"
	purchasedomain "github.com/smallbiznis/woyofal/internal/purchase/domain"
	"go.uber.org/zap"
)

const (
	contextPurchaseKey = "purchase_request"
	contextMeterKey    = "compteur"
	maxRawBodyLogged   = 1024
)

// bindPurchaseRequest decodes the purchase body once for the rest of the
// chain. Malformed bodies stop here with a 400; when audited is set the
// rejected body is written to the purchase log.
func (s *Server) bindPurchaseRequest(audited bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			body = nil
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		var req purchasedomain.PurchaseRequest
		if len(bytes.TrimSpace(body)) == 0 || c.ShouldBindJSON(&req) != nil {
			if audited {
				s.auditInvalidJSON(c, body, time.Since(start))
			}
			respondError(c, ErrInvalidJSON)
			return
		}

		req.Compteur = strings.TrimSpace(req.Compteur)
		c.Set(contextPurchaseKey, req)
		if req.Compteur != "" {
			c.Set(contextMeterKey, req.Compteur)
			c.Request = c.Request.WithContext(obscontext.WithMeterNumber(c.Request.Context(), req.Compteur))
		}
		c.Next()
	}
}

func purchaseRequestFrom(c *gin.Context) (purchasedomain.PurchaseRequest, bool) {
	value, ok := c.Get(contextPurchaseKey)
	if !ok {
		return purchasedomain.PurchaseRequest{}, false
	}
	req, ok := value.(purchasedomain.PurchaseRequest)
	return req, ok
}

func (s *Server) auditInvalidJSON(c *gin.Context, body []byte, elapsed time.Duration) {
	raw := string(body)
	if len(raw) > maxRawBodyLogged {
		raw = raw[:maxRawBodyLogged]
	}
	err := s.auditSvc.Record(c.Request.Context(), auditdomain.Record{
		Statut:        auditdomain.StatusValidationError,
		RequestData:   map[string]any{"raw_body": raw},
		ErrorMessage:  msgInvalidJSON,
		ExecutionTime: elapsed,
	})
	if err != nil {
		obslogger.WithContext(c.Request.Context(), s.log).Warn("audit of malformed purchase body failed", zap.Error(err))
	}
}
