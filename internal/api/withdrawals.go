package api

import (
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type WithdrawalRequest struct {
	Amount             decimal.Decimal `json:"amount"`
	Network            string          `json:"network" binding:"required"`
	DestinationAddress string          `json:"destination_address" binding:"required"`
}

// CreateWithdrawal reserves the amount from the caller's withdrawable
// profit and records a pending withdrawal.
// POST /api/v1/withdrawals
func (s *Server) CreateWithdrawal(c *gin.Context) {
	var req WithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		paramError(c, "invalid request: "+err.Error())
		return
	}

	tx, err := s.workflow.CreateWithdrawal(c.Request.Context(), callerUser(c).Id, req.Amount, req.Network, req.DestinationAddress)
	if err != nil {
		respondError(c, err)
		return
	}
	success(c, tx)
}

// Networks lists the accepted withdrawal networks and the minimum amount.
// GET /api/v1/withdrawals/networks
func (s *Server) Networks(c *gin.Context) {
	catalog := s.ledger.Catalog()
	names := make([]string, 0, len(catalog.Networks))
	for _, n := range catalog.Networks {
		names = append(names, n.Name)
	}
	success(c, gin.H{
		"networks":        names,
		"minimum":         catalog.MinWithdrawal,
		"deposit_network": catalog.DepositNetwork,
	})
}
