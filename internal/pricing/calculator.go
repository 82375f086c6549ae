package pricing

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/jdupreez/veemark-gateway/pkg/config"
	"github.com/jdupreez/veemark-gateway/pkg/enums"
	pkgerrors "github.com/jdupreez/veemark-gateway/pkg/errors"
)

// A negative or zero quantity reaching this package is a violated
// precondition upstream, so these fail loud rather than clamping.
var (
	ErrInvalidQuantity    = pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	ErrInvalidPrice       = pkgerrors.New(pkgerrors.CodeValidation, "unit price must be positive")
	ErrNegativeAmount     = pkgerrors.New(pkgerrors.CodeInternal, "negative amount in total computation")
	ErrArithmeticOverflow = pkgerrors.New(pkgerrors.CodeInternal, "monetary amount overflow")
)

// Config carries the pricing constants in minor currency units.
type Config struct {
	MinShippingFeeMinor int64
	PerKmPerUnitMinor   int64
	FeeRate             decimal.Decimal
}

// DefaultConfig returns the documented marketplace defaults: R50 shipping
// floor, R2 per km per unit, 5% marketplace fee.
func DefaultConfig() Config {
	return Config{
		MinShippingFeeMinor: 5000,
		PerKmPerUnitMinor:   200,
		FeeRate:             decimal.RequireFromString("0.05"),
	}
}

// FromAppConfig builds a calculator config from the environment config.
func FromAppConfig(cfg config.PricingConfig) (Config, error) {
	rate, err := cfg.FeeRate()
	if err != nil {
		return Config{}, err
	}
	return Config{
		MinShippingFeeMinor: cfg.MinShippingFeeMinor,
		PerKmPerUnitMinor:   cfg.PerKmPerUnitMinor,
		FeeRate:             rate,
	}, nil
}

// LineTotal multiplies a unit price by a quantity, both in minor units.
func LineTotal(unitPriceMinor int64, qty int) (int64, error) {
	if qty <= 0 {
		return 0, ErrInvalidQuantity
	}
	if unitPriceMinor <= 0 {
		return 0, ErrInvalidPrice
	}
	total := unitPriceMinor * int64(qty)
	if total/int64(qty) != unitPriceMinor {
		return 0, ErrArithmeticOverflow
	}
	return total, nil
}

// ShippingCost computes the seller-transport shipping charge. It is zero
// unless the seller delivers and a road distance is known; otherwise the
// per-km-per-unit rate applies with a configured floor.
func (c Config) ShippingCost(mode enums.DeliveryMode, distanceKm *float64, qty int) int64 {
	if mode != enums.DeliveryModeSeller || distanceKm == nil || qty <= 0 {
		return 0
	}
	cost := int64(math.Round(*distanceKm * float64(c.PerKmPerUnitMinor) * float64(qty)))
	if cost < c.MinShippingFeeMinor {
		return c.MinShippingFeeMinor
	}
	return cost
}

// MarketplaceFee rounds subtotal times the configured fee rate to the
// nearest minor unit.
func (c Config) MarketplaceFee(subtotalMinor int64) int64 {
	return decimal.NewFromInt(subtotalMinor).Mul(c.FeeRate).Round(0).IntPart()
}

// GrandTotal sums the order components. All inputs must be non-negative;
// the result never is.
func GrandTotal(subtotalMinor, feeMinor, shippingMinor, abattoirFeeMinor int64) (int64, error) {
	total := int64(0)
	for _, part := range []int64{subtotalMinor, feeMinor, shippingMinor, abattoirFeeMinor} {
		if part < 0 {
			return 0, ErrNegativeAmount
		}
		sum := total + part
		if sum < total {
			return 0, ErrArithmeticOverflow
		}
		total = sum
	}
	return total, nil
}
