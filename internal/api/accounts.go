package api

import (
	"tier-rewards-go/internal/referral"
	"tier-rewards-go/internal/session"

	"github.com/gin-gonic/gin"
)

type RegisterRequest struct {
	Username     string `json:"username" binding:"required"`
	Password     string `json:"password" binding:"required"`
	Confirm      string `json:"confirm"`
	ReferralCode string `json:"referral_code"`
	ReferralLink string `json:"referral_link"` // alternative to referral_code
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register creates an account and signs it in.
// POST /api/v1/auth/register
func (s *Server) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		paramError(c, "invalid request: "+err.Error())
		return
	}

	code := req.ReferralCode
	if code == "" && req.ReferralLink != "" {
		parsed, err := referral.ParseLink(req.ReferralLink)
		if err != nil {
			paramError(c, err.Error())
			return
		}
		code = parsed
	}

	grant, err := s.accounts.Register(c.Request.Context(), req.Username, req.Password, req.Confirm, code)
	if err != nil {
		respondError(c, err)
		return
	}
	success(c, grant)
}

// Login
// POST /api/v1/auth/login
func (s *Server) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		paramError(c, "invalid request: "+err.Error())
		return
	}

	grant, err := s.accounts.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	success(c, grant)
}

// Logout drops the cached session snapshot. Tokens stay valid until they expire.
// POST /api/v1/auth/logout
func (s *Server) Logout(c *gin.Context) {
	if sess := session.FromContext(c.Request.Context()); sess != nil {
		if err := sess.End(c.Request.Context()); err != nil {
			respondError(c, err)
			return
		}
	}
	success(c, nil)
}

// Me returns the caller's current account together with their referral link.
// GET /api/v1/me
func (s *Server) Me(c *gin.Context) {
	sess := session.FromContext(c.Request.Context())
	s.refresher.RefreshOnce(c.Request.Context(), sess)
	user := sess.Snapshot()

	success(c, gin.H{
		"user":          user,
		"role":          callerClaims(c).Role,
		"referral_link": referral.Link(s.baseURL, user.ReferralCode),
	})
}
