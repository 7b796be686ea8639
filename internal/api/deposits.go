package api

import (
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type DepositRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// CreateDeposit records a pending deposit of the caller. Nothing is
// credited until an operator approves it.
// POST /api/v1/deposits
func (s *Server) CreateDeposit(c *gin.Context) {
	var req DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		paramError(c, "invalid request: "+err.Error())
		return
	}

	tx, err := s.workflow.CreateDeposit(c.Request.Context(), callerUser(c).Id, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	success(c, tx)
}
