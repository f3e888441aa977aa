package server

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// GetConsumption reports the current-period counter of a meter's client. It
// never creates the period row.
func (s *Server) GetConsumption(c *gin.Context) {
	numero := strings.TrimSpace(c.Param("numero"))
	c.Set(contextMeterKey, numero)

	resp, err := s.purchaseSvc.Consumption(c.Request.Context(), numero)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondOK(c, msgOK, resp)
}
