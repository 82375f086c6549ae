package config

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestPricingFeeRateDefault(t *testing.T) {
	cfg := PricingConfig{MarketplaceFeeRate: "0.05"}
	rate, err := cfg.FeeRate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rate.Equal(decimal.RequireFromString("0.05")) {
		t.Fatalf("expected 0.05, got %s", rate)
	}
}

func TestPricingFeeRateRejectsGarbage(t *testing.T) {
	cases := []string{"", "five percent", "-0.1", "1.5"}
	for _, raw := range cases {
		cfg := PricingConfig{MarketplaceFeeRate: raw}
		if _, err := cfg.FeeRate(); err == nil {
			t.Fatalf("expected error for rate %q", raw)
		}
	}
}

func TestAppConfigEnvChecks(t *testing.T) {
	app := AppConfig{Env: "DEV"}
	if !app.IsDev() {
		t.Fatal("expected IsDev for DEV")
	}
	if app.IsProd() {
		t.Fatal("did not expect IsProd for DEV")
	}
}
