package common

import (
	"fmt"
	"os"
	"path/filepath"

	"tier-rewards-go/internal/models"
	"tier-rewards-go/internal/tiers"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

// Amounts are strings in the file so they parse exactly.
type TierConfig struct {
	Id                 int    `yaml:"id"`
	UnlockPrice        string `yaml:"unlock_price"`
	DailyPayoutPercent string `yaml:"daily_payout_percent"`
}

type PrizeConfig struct {
	Amount string `yaml:"amount"`
	Weight int    `yaml:"weight"`
}

type NetworkConfig struct {
	Name             string `yaml:"name"`
	PrimeNetworkId   string `yaml:"prime_network_id"`
	PrimeNetworkType string `yaml:"prime_network_type"`
	PrimeSymbol      string `yaml:"prime_symbol"`
}

type CatalogConfig struct {
	Tiers          []TierConfig    `yaml:"tiers"`
	Prizes         []PrizeConfig   `yaml:"prizes"`
	ReferralRates  []string        `yaml:"referral_rates"`
	MinWithdrawal  string          `yaml:"min_withdrawal"`
	MinAddressLen  int             `yaml:"min_address_length"`
	Networks       []NetworkConfig `yaml:"networks"`
	DepositNetwork string          `yaml:"deposit_network"`
}

// LoadCatalog reads the catalog file, or returns the built-in catalog when
// catalogFile is empty.
func LoadCatalog(catalogFile string) (*models.Catalog, error) {
	if catalogFile == "" {
		return tiers.DefaultCatalog(), nil
	}

	var catalogPath string
	if filepath.IsAbs(catalogFile) {
		catalogPath = catalogFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		catalogPath = filepath.Join(wd, catalogFile)
	}

	data, err := os.ReadFile(catalogPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", catalogFile, err)
	}
	catalog, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", catalogFile, err)
	}
	return catalog, nil
}

func ParseCatalog(data []byte) (*models.Catalog, error) {
	var config CatalogConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}
	if len(config.Tiers) == 0 {
		return nil, fmt.Errorf("catalog has no tiers")
	}

	catalog := &models.Catalog{
		MinAddressLen:  config.MinAddressLen,
		DepositNetwork: config.DepositNetwork,
	}

	seen := make(map[int]struct{}, len(config.Tiers))
	for i, t := range config.Tiers {
		if t.Id <= 0 {
			return nil, fmt.Errorf("tier at index %d has invalid id %d", i, t.Id)
		}
		if _, dup := seen[t.Id]; dup {
			return nil, fmt.Errorf("duplicate tier id %d", t.Id)
		}
		seen[t.Id] = struct{}{}

		price, err := parseAmount(t.UnlockPrice)
		if err != nil {
			return nil, fmt.Errorf("tier %d unlock_price: %w", t.Id, err)
		}
		pct, err := parseAmount(t.DailyPayoutPercent)
		if err != nil {
			return nil, fmt.Errorf("tier %d daily_payout_percent: %w", t.Id, err)
		}
		catalog.Tiers = append(catalog.Tiers, models.TierDefinition{Id: t.Id, UnlockPrice: price, DailyPayoutPercent: pct})
	}

	for i, p := range config.Prizes {
		amount, err := parseAmount(p.Amount)
		if err != nil {
			return nil, fmt.Errorf("prize at index %d: %w", i, err)
		}
		if p.Weight < 0 {
			return nil, fmt.Errorf("prize at index %d has negative weight", i)
		}
		catalog.Prizes = append(catalog.Prizes, models.Prize{Amount: amount, Weight: p.Weight})
	}

	for i, r := range config.ReferralRates {
		rate, err := parseAmount(r)
		if err != nil {
			return nil, fmt.Errorf("referral rate for level %d: %w", i+1, err)
		}
		catalog.ReferralRates = append(catalog.ReferralRates, rate)
	}

	if config.MinWithdrawal != "" {
		min, err := parseAmount(config.MinWithdrawal)
		if err != nil {
			return nil, fmt.Errorf("min_withdrawal: %w", err)
		}
		catalog.MinWithdrawal = min
	}

	for i, n := range config.Networks {
		if n.Name == "" {
			return nil, fmt.Errorf("network at index %d missing name", i)
		}
		catalog.Networks = append(catalog.Networks, models.Network{
			Name:             n.Name,
			PrimeNetworkId:   n.PrimeNetworkId,
			PrimeNetworkType: n.PrimeNetworkType,
			PrimeSymbol:      n.PrimeSymbol,
		})
	}
	return catalog, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative amount %s", s)
	}
	return d, nil
}
