package api

import (
	"github.com/gin-gonic/gin"
)

// Dashboard
// GET /api/v1/dashboard
func (s *Server) Dashboard(c *gin.Context) {
	summary, err := s.rewards.Summary(c.Request.Context(), callerUser(c).Id, s.ledger.Today())
	if err != nil {
		respondError(c, err)
		return
	}
	success(c, summary)
}

// Tiers lists the catalog with the caller's unlock state and progress.
// GET /api/v1/tiers
func (s *Server) Tiers(c *gin.Context) {
	statuses, err := s.rewards.Tiers(c.Request.Context(), callerUser(c).Id)
	if err != nil {
		respondError(c, err)
		return
	}
	success(c, statuses)
}

// Claim collects every payout eligible today.
// POST /api/v1/claim
func (s *Server) Claim(c *gin.Context) {
	result, err := s.rewards.Collect(c.Request.Context(), callerUser(c).Id, s.ledger.Today())
	if err != nil {
		respondError(c, err)
		return
	}
	success(c, result)
}

// Spin
// POST /api/v1/spin
func (s *Server) Spin(c *gin.Context) {
	result, err := s.promo.Spin(c.Request.Context(), callerUser(c).Id, s.ledger.Today())
	if err != nil {
		respondError(c, err)
		return
	}
	success(c, result)
}

// MyTransactions lists the caller's deposits and withdrawals, newest first.
// GET /api/v1/transactions
func (s *Server) MyTransactions(c *gin.Context) {
	txs, err := s.records.GetUserTransactions(c.Request.Context(), callerUser(c).Id)
	if err != nil {
		respondError(c, err)
		return
	}
	success(c, txs)
}
