package api

import (
	"tier-rewards-go/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type ResolveRequest struct {
	Status models.TransactionStatus `json:"status" binding:"required"`
}

type AdjustRequest struct {
	Delta decimal.Decimal `json:"delta"`
}

// GET /api/v1/admin/transactions
func (s *Server) ListTransactions(c *gin.Context) {
	txs, err := s.admin.ListTransactions(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	success(c, txs)
}

// ResolveTransaction approves or rejects a pending request.
// POST /api/v1/admin/transactions/:id/resolve
func (s *Server) ResolveTransaction(c *gin.Context) {
	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		paramError(c, "invalid request: "+err.Error())
		return
	}

	tx, err := s.admin.Resolve(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	success(c, tx)
}

// GET /api/v1/admin/users
func (s *Server) ListUsers(c *gin.Context) {
	users, err := s.admin.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	success(c, users)
}

// AdjustBalance applies a signed manual balance change.
// POST /api/v1/admin/users/:id/balance
func (s *Server) AdjustBalance(c *gin.Context) {
	var req AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		paramError(c, "invalid request: "+err.Error())
		return
	}

	user, err := s.admin.AdjustBalanceManual(c.Request.Context(), c.Param("id"), req.Delta)
	if err != nil {
		respondError(c, err)
		return
	}
	success(c, user)
}

// AdjustWithdrawable applies a signed manual withdrawable profit change.
// POST /api/v1/admin/users/:id/withdrawable
func (s *Server) AdjustWithdrawable(c *gin.Context) {
	var req AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		paramError(c, "invalid request: "+err.Error())
		return
	}

	user, err := s.admin.AdjustWithdrawableManual(c.Request.Context(), c.Param("id"), req.Delta)
	if err != nil {
		respondError(c, err)
		return
	}
	success(c, user)
}

// POST /api/v1/admin/users/:id/promote
func (s *Server) PromoteAdmin(c *gin.Context) {
	user, err := s.accounts.PromoteAdmin(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	success(c, user)
}
