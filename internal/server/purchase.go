package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/woyofal/internal/receipt"
)

func (s *Server) Purchase(c *gin.Context) {
	req, ok := purchaseRequestFrom(c)
	if !ok {
		AbortWithError(c, ErrInvalidJSON)
		return
	}

	resp, err := s.purchaseSvc.Purchase(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondOK(c, msgPurchaseOK, resp)
}

func (s *Server) Simulate(c *gin.Context) {
	req, ok := purchaseRequestFrom(c)
	if !ok {
		AbortWithError(c, ErrInvalidJSON)
		return
	}

	resp, err := s.purchaseSvc.Simulate(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, statutSimulation, msgSimulationOK, resp)
}

func (s *Server) GetPurchase(c *gin.Context) {
	reference := strings.TrimSpace(c.Param("reference"))
	resp, err := s.purchaseSvc.GetByReference(c.Request.Context(), reference)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondOK(c, msgOK, resp)
}

func (s *Server) GetPurchaseReceipt(c *gin.Context) {
	ctx := c.Request.Context()
	reference := strings.TrimSpace(c.Param("reference"))
	detail, err := s.purchaseSvc.GetByReference(ctx, reference)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	doc, err := s.receipts.Render(ctx, detail)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `inline; filename="recu-`+detail.Receipt.Reference+`.pdf"`)
	c.Data(http.StatusOK, receipt.ContentType, doc)
}
