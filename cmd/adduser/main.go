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

	"tier-rewards-go/internal/common"
	"tier-rewards-go/internal/config"
	"tier-rewards-go/internal/referral"

	"go.uber.org/zap"
)

type addUserRequest struct {
	username string
	password string
	referral string
	admin    bool
}

func parseAndValidateFlags() (*addUserRequest, error) {
	usernameFlag := flag.String("username", "", "Username, at least 3 characters (required)")
	passwordFlag := flag.String("password", "", "Password (required)")
	referralFlag := flag.String("referral", "", "Referral code or registration link of the referrer (optional)")
	adminFlag := flag.Bool("admin", false, "Grant the admin role")
	flag.Parse()

	if *usernameFlag == "" || *passwordFlag == "" {
		return nil, fmt.Errorf("flags --username and --password are required")
	}

	code := *referralFlag
	if parsed, err := referral.ParseLink(code); err == nil {
		code = parsed
	}
	return &addUserRequest{
		username: *usernameFlag,
		password: *passwordFlag,
		referral: code,
		admin:    *adminFlag,
	}, nil
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	req, err := parseAndValidateFlags()
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

	grant, err := services.Accounts.Register(ctx, req.username, req.password, req.password, req.referral)
	if err != nil {
		logger.Fatal("Failed to register user", zap.String("username", req.username), zap.Error(err))
	}
	user := grant.User

	if req.admin && !user.IsAdmin {
		if user, err = services.Accounts.PromoteAdmin(ctx, user.Id); err != nil {
			logger.Fatal("Failed to grant admin role", zap.String("user_id", grant.User.Id), zap.Error(err))
		}
	}

	common.PrintHeader("USER CREATED", common.DefaultWidth)
	fmt.Printf("   ID:            %s\n", user.Id)
	fmt.Printf("   Username:      %s\n", user.Username)
	fmt.Printf("   Referral code: %s\n", user.ReferralCode)
	fmt.Printf("   Referral link: %s\n", referral.Link(cfg.Server.BaseURL, user.ReferralCode))
	fmt.Printf("   Admin:         %t\n", user.IsAdmin)
	common.PrintFooter("Done", common.DefaultWidth)
}
