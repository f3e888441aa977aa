package server

import (
	"github.com/gin-gonic/gin"
)

func (s *Server) ListTranches(c *gin.Context) {
	resp, err := s.tariffSvc.Summaries(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondOK(c, "Tranches tarifaires actives", resp)
}
