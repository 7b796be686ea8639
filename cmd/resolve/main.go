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
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"tier-rewards-go/internal/common"
	"tier-rewards-go/internal/config"
	"tier-rewards-go/internal/models"
	"tier-rewards-go/internal/workflow"

	"go.uber.org/zap"
)

type resolveRequest struct {
	transactionId string
	outcome       models.TransactionStatus
}

func parseAndValidateFlags() (*resolveRequest, bool, error) {
	idFlag := flag.String("id", "", "Transaction id to resolve")
	outcomeFlag := flag.String("outcome", "", "APPROVED or REJECTED")
	listFlag := flag.Bool("pending", false, "List pending transactions and exit")
	flag.Parse()

	if *listFlag {
		return nil, true, nil
	}
	if *idFlag == "" || *outcomeFlag == "" {
		return nil, false, fmt.Errorf("flags --id and --outcome are required (or use --pending)")
	}

	outcome := models.TransactionStatus(strings.ToUpper(*outcomeFlag))
	if !outcome.Terminal() {
		return nil, false, fmt.Errorf("invalid outcome %q: want APPROVED or REJECTED", *outcomeFlag)
	}
	return &resolveRequest{transactionId: *idFlag, outcome: outcome}, false, nil
}

func printPending(ctx context.Context, services *common.Services) error {
	txs, err := services.Admin.ListTransactions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list transactions: %w", err)
	}

	common.PrintHeader("PENDING TRANSACTIONS", common.WideWidth)
	count := 0
	for _, tx := range txs {
		if tx.Status != models.StatusPending {
			continue
		}
		count++
		fmt.Printf("%-36s  %-8s  %-16s  %12s  %-7s  %s\n",
			tx.Id, tx.Kind, tx.Username, tx.Amount.String(), tx.Network,
			tx.Timestamp.Format("2006-01-02 15:04:05"))
	}
	common.PrintFooter(fmt.Sprintf("%d pending of %d total", count, len(txs)), common.WideWidth)
	return nil
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	req, listOnly, err := parseAndValidateFlags()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	if listOnly {
		if err := printPending(ctx, services); err != nil {
			logger.Fatal("Failed to list pending transactions", zap.Error(err))
		}
		return
	}

	tx, err := services.Admin.Resolve(ctx, req.transactionId, req.outcome)
	switch {
	case errors.Is(err, workflow.ErrAlreadyResolved):
		fmt.Printf("Transaction %s was already resolved - nothing to do\n", req.transactionId)
		return
	case err != nil && tx != nil:
		// Status was written but a follow-up effect failed.
		logger.Error("Transaction resolved with incomplete side effects",
			zap.String("transaction_id", tx.Id),
			zap.Error(err))
		os.Exit(1)
	case err != nil:
		logger.Fatal("Failed to resolve transaction",
			zap.String("transaction_id", req.transactionId),
			zap.Error(err))
	}

	fmt.Printf("\nTransaction %s is now %s\n", tx.Id, tx.Status)
	fmt.Printf("   Kind:   %s\n", tx.Kind)
	fmt.Printf("   User:   %s (%s)\n", tx.Username, tx.UserId)
	fmt.Printf("   Amount: %s\n\n", tx.Amount.String())
}
