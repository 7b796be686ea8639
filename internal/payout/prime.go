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

package payout

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"tier-rewards-go/internal/models"

	"github.com/coinbase-samples/prime-sdk-go/client"
	"github.com/coinbase-samples/prime-sdk-go/credentials"
	"github.com/coinbase-samples/prime-sdk-go/model"
	"github.com/coinbase-samples/prime-sdk-go/transactions"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
)

// Prime pays withdrawals from a Coinbase Prime wallet.
type Prime struct {
	transactionsSvc transactions.TransactionsService
	portfolioId     string
	walletId        string
	catalog         *models.Catalog
}

func NewPrime(cfg models.PrimeConfig, catalog *models.Catalog) (*Prime, error) {
	if cfg.AccessKey == "" || cfg.Passphrase == "" || cfg.SigningKey == "" {
		return nil, fmt.Errorf("missing required Prime API credentials: PRIME_ACCESS_KEY, PRIME_PASSPHRASE, PRIME_SIGNING_KEY")
	}
	if cfg.PortfolioId == "" || cfg.WalletId == "" {
		return nil, fmt.Errorf("prime payout requires PRIME_PORTFOLIO_ID and PRIME_WALLET_ID")
	}

	httpClient, err := createCustomHttpClient()
	if err != nil {
		return nil, fmt.Errorf("unable to create custom http client: %w", err)
	}

	creds := &credentials.Credentials{
		AccessKey:  cfg.AccessKey,
		Passphrase: cfg.Passphrase,
		SigningKey: cfg.SigningKey,
	}
	restClient := client.NewRestClient(creds, httpClient)

	return &Prime{
		transactionsSvc: transactions.NewTransactionsService(restClient),
		portfolioId:     cfg.PortfolioId,
		walletId:        cfg.WalletId,
		catalog:         catalog,
	}, nil
}

func createCustomHttpClient() (http.Client, error) {
	tr := &http.Transport{
		ResponseHeaderTimeout: 30 * time.Second,
		Proxy:                 http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			KeepAlive: 30 * time.Second,
			Timeout:   15 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConnsPerHost:   5,
		ExpectContinueTimeout: 5 * time.Second,
	}

	if err := http2.ConfigureTransport(tr); err != nil {
		return http.Client{}, err
	}

	return http.Client{
		Transport: tr,
		Timeout:   60 * time.Second,
	}, nil
}

// Dispatch creates a blockchain withdrawal keyed by the transaction id, so a
// retried resolution never pays twice.
func (p *Prime) Dispatch(ctx context.Context, tx *models.Transaction) error {
	request, err := p.withdrawalRequest(tx)
	if err != nil {
		return err
	}

	zap.L().Info("Creating withdrawal via Prime API",
		zap.String("transaction_id", tx.Id),
		zap.String("portfolio_id", request.PortfolioId),
		zap.String("wallet_id", request.SourceWalletId),
		zap.String("symbol", request.Symbol),
		zap.String("amount", request.Amount),
		zap.String("destination", tx.DestinationAddress))

	response, err := p.transactionsSvc.CreateWalletWithdrawal(ctx, request)
	if err != nil {
		zap.L().Error("Failed to create withdrawal",
			zap.String("transaction_id", tx.Id),
			zap.Error(err))
		return fmt.Errorf("unable to create withdrawal: %w", err)
	}

	zap.L().Info("Withdrawal created successfully",
		zap.String("transaction_id", tx.Id),
		zap.String("activity_id", response.ActivityId))
	return nil
}

func (p *Prime) withdrawalRequest(tx *models.Transaction) (*transactions.CreateWalletWithdrawalRequest, error) {
	if tx.Kind != models.KindWithdraw {
		return nil, fmt.Errorf("transaction %s is not a withdrawal", tx.Id)
	}
	network, ok := p.catalog.Network(tx.Network)
	if !ok || network.PrimeSymbol == "" {
		return nil, fmt.Errorf("no Prime mapping for network %q", tx.Network)
	}

	address := &model.BlockchainAddress{Address: tx.DestinationAddress}
	if network.PrimeNetworkId != "" {
		address.Network = &model.NetworkDetails{
			Id:   network.PrimeNetworkId,
			Type: network.PrimeNetworkType,
		}
	}

	return &transactions.CreateWalletWithdrawalRequest{
		PortfolioId:       p.portfolioId,
		SourceWalletId:    p.walletId,
		Amount:            tx.Amount.String(),
		IdempotencyKey:    tx.Id,
		Symbol:            network.PrimeSymbol,
		DestinationType:   "DESTINATION_BLOCKCHAIN",
		BlockchainAddress: address,
	}, nil
}
