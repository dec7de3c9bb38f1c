package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"

	"github.com/nexclub/nexclub/types"
)

var App *AppConfig

// AppConfig carries the business policy loaded from config/app.yml: tier
// pricing, the withdrawal floor and the well-known admin member id. The admin
// id is injected into the engines at construction, never resolved by query.
type AppConfig struct {
	AdminID              uint64            `yaml:"admin_id"`
	MinimumWithdrawal    string            `yaml:"minimum_withdrawal"`
	PayoutTimeoutSeconds int               `yaml:"payout_timeout_seconds"`
	TierPrices           map[string]string `yaml:"tier_prices"`

	minimumWithdrawal decimal.Decimal
	tierPrices        map[types.Tier]decimal.Decimal
}

func LoadApp() error {
	path := os.Getenv("APP_CONFIG")
	if len(path) == 0 {
		path = "config/app.yml"
	}

	buf, err := ioutil.ReadFile(path)
	if err != nil {
		return err
	}

	c := &AppConfig{}
	if err := yaml.Unmarshal(buf, c); err != nil {
		return err
	}

	if err := c.parse(); err != nil {
		return err
	}

	App = c

	return nil
}

func (c *AppConfig) parse() error {
	min, err := decimal.NewFromString(c.MinimumWithdrawal)
	if err != nil {
		return fmt.Errorf("app config: minimum_withdrawal: %w", err)
	}
	c.minimumWithdrawal = min

	c.tierPrices = make(map[types.Tier]decimal.Decimal, len(c.TierPrices))
	for name, raw := range c.TierPrices {
		tier, ok := types.ParseTier(name)
		if !ok || tier == types.TierNone {
			return fmt.Errorf("app config: unknown tier %q", name)
		}

		price, err := decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("app config: price of %q: %w", name, err)
		}

		c.tierPrices[tier] = price
	}

	return nil
}

func (c *AppConfig) TierPrice(tier types.Tier) (decimal.Decimal, bool) {
	price, ok := c.tierPrices[tier]

	return price, ok
}

func (c *AppConfig) Prices() map[types.Tier]decimal.Decimal {
	return c.tierPrices
}

func (c *AppConfig) Minimum() decimal.Decimal {
	return c.minimumWithdrawal
}

func (c *AppConfig) PayoutTimeout() time.Duration {
	if c.PayoutTimeoutSeconds <= 0 {
		return 15 * time.Second
	}

	return time.Duration(c.PayoutTimeoutSeconds) * time.Second
}
