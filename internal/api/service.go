/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */


package api

import (
	"context"
	"fmt"

	"tier-rewards-go/internal/admin"
	"tier-rewards-go/internal/auth"
	"tier-rewards-go/internal/ledger"
	"tier-rewards-go/internal/promo"
	"tier-rewards-go/internal/rewards"
	"tier-rewards-go/internal/session"
	"tier-rewards-go/internal/store"
	"tier-rewards-go/internal/workflow"

	"github.com/gin-gonic/gin"
)

// Deps are the engine services the HTTP layer exposes.
type Deps struct {
	Ledger       *ledger.Ledger
	Accounts     *auth.Service
	Rewards      *rewards.Service
	Workflow     *workflow.Workflow
	Promo        *promo.Granter
	Admin        *admin.Service
	Sessions     session.Cache
	BaseURL      string
	AllowOrigins []string
}

// Server serves the member and admin API
type Server struct {
	ledger       *ledger.Ledger
	records      store.RecordStore
	accounts     *auth.Service
	rewards      *rewards.Service
	workflow     *workflow.Workflow
	promo        *promo.Granter
	admin        *admin.Service
	sessions     session.Cache
	refresher    *session.Refresher
	baseURL      string
	allowOrigins []string
}

func NewServer(deps Deps) *Server {
	sessions := deps.Sessions
	if sessions == nil {
		sessions = session.NewMemoryCache()
	}
	return &Server{
		ledger:       deps.Ledger,
		records:      deps.Ledger.Records(),
		accounts:     deps.Accounts,
		rewards:      deps.Rewards,
		workflow:     deps.Workflow,
		promo:        deps.Promo,
		admin:        deps.Admin,
		sessions:     sessions,
		refresher:    session.NewRefresher(deps.Ledger.Records(), 0),
		baseURL:      deps.BaseURL,
		allowOrigins: deps.AllowOrigins,
	}
}

func (s *Server) HealthCheck(ctx context.Context) error {
	if err := s.records.Ping(ctx); err != nil {
		return fmt.Errorf("record store health check failed: %w", err)
	}
	return nil
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware(s.allowOrigins))

	api := r.Group("/api/v1")
	{
		accounts := api.Group("/auth")
		{
			accounts.POST("/register", s.Register)
			accounts.POST("/login", s.Login)
			accounts.POST("/logout", s.AuthMiddleware(), s.Logout)
		}

		member := api.Group("", s.AuthMiddleware())
		{
			member.GET("/me", s.Me)
			member.GET("/dashboard", s.Dashboard)
			member.GET("/tiers", s.Tiers)
			member.POST("/claim", s.Claim)
			member.POST("/spin", s.Spin)
			member.GET("/transactions", s.MyTransactions)
			member.POST("/deposits", s.CreateDeposit)
			member.GET("/withdrawals/networks", s.Networks)
			member.POST("/withdrawals", s.CreateWithdrawal)
			member.GET("/referrals", s.Referrals)
		}

		ops := api.Group("/admin", s.AuthMiddleware(), s.AdminOnly())
		{
			ops.GET("/transactions", s.ListTransactions)
			ops.POST("/transactions/:id/resolve", s.ResolveTransaction)
			ops.GET("/users", s.ListUsers)
			ops.POST("/users/:id/balance", s.AdjustBalance)
			ops.POST("/users/:id/withdrawable", s.AdjustWithdrawable)
			ops.POST("/users/:id/promote", s.PromoteAdmin)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		if err := s.HealthCheck(c.Request.Context()); err != nil {
			respondError(c, err)
			return
		}
		success(c, gin.H{"status": "ok"})
	})
	return r
}
