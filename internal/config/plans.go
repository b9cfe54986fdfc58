package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Plans describes the tier policy: quota defaults, pricing and payment
// details shown in the VIP upgrade flow.
type Plans struct {
	// default daily message limit for free users
	// the owner can override it at runtime, the override is persisted in the settings table
	FreeMessageLimit int64 `yaml:"free_message_limit"`

	// api pacing per tier, requests per second
	FreeRPS       float64 `yaml:"free_rps"`
	PrivilegedRPS float64 `yaml:"privileged_rps"`

	VIPPriceEGP int `yaml:"vip_price_egp"`
	VIPPriceUSD int `yaml:"vip_price_usd"`

	// payment method name -> account/wallet identifier
	PaymentMethods map[string]string `yaml:"payment_methods"`

	// username to contact for payment verification
	SupportUsername string `yaml:"support_username"`
}

// DefaultPlans returns the policy used when no plans file exists.
func DefaultPlans() *Plans {
	return &Plans{
		FreeMessageLimit: 1000,
		FreeRPS:          2.0,
		PrivilegedRPS:    10.0,
		VIPPriceUSD:      5,
		PaymentMethods:   map[string]string{},
		SupportUsername:  "",
	}
}

// LoadPlans reads the tier policy from the given yaml file.
// A missing file is not an error - defaults apply.
func LoadPlans(path string) (*Plans, error) {
	plans := DefaultPlans()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return plans, nil
		}
		return nil, fmt.Errorf("read plans file: %w", err)
	}

	if err := yaml.Unmarshal(data, plans); err != nil {
		return nil, fmt.Errorf("parse plans file: %w", err)
	}

	if plans.FreeMessageLimit <= 0 {
		return nil, fmt.Errorf("free_message_limit must be positive, got %d", plans.FreeMessageLimit)
	}
	if plans.FreeRPS <= 0 || plans.PrivilegedRPS <= 0 {
		return nil, fmt.Errorf("rps values must be positive")
	}

	return plans, nil
}
