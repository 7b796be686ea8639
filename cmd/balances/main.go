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


package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tier-rewards-go/internal/common"
	"tier-rewards-go/internal/config"
	"tier-rewards-go/internal/models"
	"tier-rewards-go/internal/session"
	"tier-rewards-go/internal/tiers"

	"go.uber.org/zap"
)

type balanceStats struct {
	totalUsers      int
	usersWithTiers  int
	usersWithProfit int
}

func printUser(user *models.User, catalog *models.Catalog, today models.Date) {
	eligible, payout := tiers.Eligible(catalog, user, today)

	fmt.Printf("\n┌─ User: %s (%s)\n", user.Username, common.ShortId(user.Id))
	fmt.Printf("│  Referral code: %s  Referred by: %s  Admin: %t\n", user.ReferralCode, orNone(user.ReferredBy), user.IsAdmin)
	common.PrintBoxSeparator(78)
	fmt.Printf("%s %-20s: %20s\n", common.BoxPrefix(false), "Balance", user.Balance.String())
	fmt.Printf("%s %-20s: %20s\n", common.BoxPrefix(false), "Withdrawable profit", user.WithdrawableProfit.String())
	fmt.Printf("%s %-20s: %20s\n", common.BoxPrefix(false), "Unlocked tiers", common.FormatTiers(user.UnlockedTiers))
	fmt.Printf("%s %-20s: %20s (payout %s)\n", common.BoxPrefix(true), "Claimable today", common.FormatTiers(eligible), payout.String())
	fmt.Printf("%s last claim: %s, last spin: %s, v%d\n", common.BoxDetailPrefix(true), orNone(string(user.LastClaimDate)), orNone(string(user.LastSpinDate)), user.Version)
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

func generateReport(users []*models.User, catalog *models.Catalog, today models.Date) balanceStats {
	stats := balanceStats{}
	for _, user := range users {
		stats.totalUsers++
		if len(user.UnlockedTiers) > 0 {
			stats.usersWithTiers++
		}
		if user.WithdrawableProfit.IsPositive() {
			stats.usersWithProfit++
		}
		printUser(user, catalog, today)
	}
	return stats
}

// watch prints the user's snapshot every interval, the way a signed-in
// dashboard would see it, until interrupted.
func watch(ctx context.Context, records session.UserGetter, user *models.User, catalog *models.Catalog, interval time.Duration) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess := session.New(user.Id, user, session.NewMemoryCache())
	go session.NewRefresher(records, interval).Run(ctx, sess)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		printUser(sess.Snapshot(), catalog, models.Today())
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	usernameFlag := flag.String("username", "", "Filter by specific username (optional)")
	watchFlag := flag.Bool("watch", false, "Keep refreshing the selected user (requires --username)")
	flag.Parse()

	logger.Info("Starting balance query")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	catalog, err := common.LoadCatalog(cfg.Rewards.CatalogFile)
	if err != nil {
		logger.Fatal("Failed to load catalog", zap.Error(err))
	}

	// Read-only, so only the record store is needed.
	logger.Info("Connecting to record store", zap.String("backend", cfg.Database.Backend))
	records, err := common.InitializeStoreOnly(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize record store", zap.Error(err))
	}
	defer records.Close()

	users, err := common.SelectUsers(ctx, records, *usernameFlag, logger)
	if err != nil {
		logger.Fatal("Failed to select users", zap.Error(err))
	}

	if *watchFlag {
		if *usernameFlag == "" || len(users) != 1 {
			logger.Fatal("--watch requires --username")
		}
		watch(ctx, records, users[0], catalog, cfg.Rewards.RefreshInterval)
		return
	}

	common.PrintHeader("USER BALANCE REPORT", common.DefaultWidth)
	stats := generateReport(users, catalog, models.Today())

	summary := fmt.Sprintf("SUMMARY: %d users, %d with unlocked tiers, %d with withdrawable profit",
		stats.totalUsers, stats.usersWithTiers, stats.usersWithProfit)
	common.PrintFooter(summary, common.DefaultWidth)

	logger.Info("Balance query completed",
		zap.Int("users_queried", stats.totalUsers),
		zap.Int("users_with_tiers", stats.usersWithTiers),
		zap.Int("users_with_profit", stats.usersWithProfit))
}
