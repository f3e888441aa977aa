package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/woyofal/internal/audit/domain"
	"github.com/smallbiznis/woyofal/pkg/db/pagination"
)

type listAuditLogsQuery struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size"`
	Compteur  string `form:"compteur"`
	Statut    string `form:"statut"`
	StartAt   string `form:"start_at"`
	EndAt     string `form:"end_at"`
}

func (s *Server) ListAuditLogs(c *gin.Context) {
	var query listAuditLogsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequest(msgInvalidQuery))
		return
	}

	startAt, err := parseOptionalTime(query.StartAt, false, s.loc)
	if err != nil {
		AbortWithError(c, invalidRequest("Format de date de début invalide (attendu: YYYY-MM-DD)"))
		return
	}
	endAt, err := parseOptionalTime(query.EndAt, true, s.loc)
	if err != nil {
		AbortWithError(c, invalidRequest("Format de date de fin invalide (attendu: YYYY-MM-DD)"))
		return
	}
	if query.PageSize < 0 || query.PageSize > 1000 {
		AbortWithError(c, invalidRequest("La limite doit être entre 1 et 1000"))
		return
	}

	resp, err := s.auditSvc.List(c.Request.Context(), auditdomain.ListAuditLogRequest{
		Pagination: pagination.Pagination{
			PageToken: strings.TrimSpace(query.PageToken),
			PageSize:  query.PageSize,
		},
		NumeroCompteur: strings.TrimSpace(query.Compteur),
		Statut:         strings.TrimSpace(query.Statut),
		StartAt:        startAt,
		EndAt:          endAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondOK(c, msgOK, resp)
}

func (s *Server) GetDailyStats(c *gin.Context) {
	day, err := parseDay(c.Query("date"), s.clock.Now(), s.loc)
	if err != nil {
		AbortWithError(c, invalidRequest("Format de date invalide (attendu: YYYY-MM-DD)"))
		return
	}

	resp, err := s.auditSvc.DailyStats(c.Request.Context(), day)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondOK(c, msgOK, resp)
}
