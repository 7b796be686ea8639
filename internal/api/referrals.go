package api

import (
	"tier-rewards-go/internal/referral"

	"github.com/gin-gonic/gin"
)

// Referrals returns the caller's code, link and three-level network.
// GET /api/v1/referrals
func (s *Server) Referrals(c *gin.Context) {
	user := callerUser(c)
	levels, err := referral.Network(c.Request.Context(), s.records, s.ledger.Catalog(), user.Id)
	if err != nil {
		respondError(c, err)
		return
	}
	success(c, gin.H{
		"code":   user.ReferralCode,
		"link":   referral.Link(s.baseURL, user.ReferralCode),
		"levels": levels,
	})
}
