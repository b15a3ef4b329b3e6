package pricing

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/angelmondragon/storefront-orders/pkg/config"
	"github.com/angelmondragon/storefront-orders/pkg/enums"
	"github.com/shopspring/decimal"
)

// RoundingMode selects how fractional tax minor units are resolved.
type RoundingMode string

const (
	// RoundHalfUp rounds to the nearest minor unit with halves away from zero.
	RoundHalfUp RoundingMode = "half_up"
	// RoundHalfEven rounds halves to the nearest even minor unit.
	RoundHalfEven RoundingMode = "half_even"
)

// ParseRoundingMode maps a config value to a RoundingMode.
func ParseRoundingMode(value string) (RoundingMode, error) {
	switch RoundingMode(strings.ToLower(strings.TrimSpace(value))) {
	case RoundHalfUp, "":
		return RoundHalfUp, nil
	case RoundHalfEven:
		return RoundHalfEven, nil
	default:
		return "", fmt.Errorf("invalid rounding mode %q", value)
	}
}

// Config is the injected shipping table and tax rule.
type Config struct {
	ShippingCosts map[enums.ShippingMethod]int64
	TaxRate       decimal.Decimal
	Rounding      RoundingMode
}

// DefaultConfig returns the storefront's standard shipping table and 21% tax.
func DefaultConfig() Config {
	return Config{
		ShippingCosts: map[enums.ShippingMethod]int64{
			enums.ShippingMethodPickup:   0,
			enums.ShippingMethodStandard: 300000,
			enums.ShippingMethodExpress:  800000,
		},
		TaxRate:  decimal.RequireFromString("0.21"),
		Rounding: RoundHalfUp,
	}
}

// FromConfig builds a Config from environment-loaded pricing settings.
func FromConfig(cfg config.PricingConfig) (Config, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(cfg.TaxRate))
	if err != nil {
		return Config{}, fmt.Errorf("parse tax rate %q: %w", cfg.TaxRate, err)
	}
	if rate.IsNegative() {
		return Config{}, fmt.Errorf("tax rate must not be negative")
	}
	rounding, err := ParseRoundingMode(cfg.TaxRounding)
	if err != nil {
		return Config{}, err
	}
	return Config{
		ShippingCosts: map[enums.ShippingMethod]int64{
			enums.ShippingMethodPickup:   cfg.PickupCents,
			enums.ShippingMethodStandard: cfg.StandardCents,
			enums.ShippingMethodExpress:  cfg.ExpressCents,
		},
		TaxRate:  rate,
		Rounding: rounding,
	}, nil
}

// Line is one priced cart entry taken from the catalog snapshot.
type Line struct {
	ProductID      int64
	UnitPriceCents int64
	Quantity       int
}

// PricedLine is a Line with its computed total.
type PricedLine struct {
	Line
	LineTotalCents int64
}

// Quote is the full price breakdown for a cart.
type Quote struct {
	Lines         []PricedLine
	SubtotalCents int64
	ShippingCents int64
	TaxCents      int64
	TotalCents    int64
}

// Calculator prices carts against a fixed Config.
type Calculator struct {
	cfg Config
}

// NewCalculator returns a Calculator for cfg.
func NewCalculator(cfg Config) *Calculator {
	return &Calculator{cfg: cfg}
}

// ShippingCost looks up the method's fixed cost. Unknown methods cost 0.
func (c *Calculator) ShippingCost(method enums.ShippingMethod) int64 {
	return c.cfg.ShippingCosts[method]
}

// Tax applies the configured rate and rounding to subtotal.
func (c *Calculator) Tax(subtotal int64) int64 {
	return c.roundedTax(subtotal).IntPart()
}

func (c *Calculator) roundedTax(subtotal int64) decimal.Decimal {
	raw := decimal.NewFromInt(subtotal).Mul(c.cfg.TaxRate)
	if c.cfg.Rounding == RoundHalfEven {
		return raw.RoundBank(0)
	}
	return raw.Round(0)
}

// ErrAmountOutOfRange reports a cart whose amounts do not fit in int64 minor units.
var ErrAmountOutOfRange = errors.New("amount out of range")

// Quote computes subtotal, shipping, tax and total. It has no side effects.
func (c *Calculator) Quote(lines []Line, method enums.ShippingMethod) (Quote, error) {
	priced := make([]PricedLine, 0, len(lines))
	var subtotal int64
	for _, line := range lines {
		total, ok := mulCents(line.UnitPriceCents, int64(line.Quantity))
		if !ok {
			return Quote{}, fmt.Errorf("product %d: %w", line.ProductID, ErrAmountOutOfRange)
		}
		if subtotal, ok = addCents(subtotal, total); !ok {
			return Quote{}, fmt.Errorf("subtotal: %w", ErrAmountOutOfRange)
		}
		priced = append(priced, PricedLine{Line: line, LineTotalCents: total})
	}

	tax := c.roundedTax(subtotal)
	if tax.GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
		return Quote{}, fmt.Errorf("tax: %w", ErrAmountOutOfRange)
	}
	taxCents := tax.IntPart()
	shipping := c.ShippingCost(method)
	total, ok := addCents(subtotal, shipping)
	if ok {
		total, ok = addCents(total, taxCents)
	}
	if !ok {
		return Quote{}, fmt.Errorf("total: %w", ErrAmountOutOfRange)
	}
	return Quote{
		Lines:         priced,
		SubtotalCents: subtotal,
		ShippingCents: shipping,
		TaxCents:      taxCents,
		TotalCents:    total,
	}, nil
}

// mulCents multiplies non-negative amounts, failing on negatives or overflow.
func mulCents(a, b int64) (int64, bool) {
	if a < 0 || b < 0 {
		return 0, false
	}
	if a != 0 && b > math.MaxInt64/a {
		return 0, false
	}
	return a * b, true
}

func addCents(a, b int64) (int64, bool) {
	if a < 0 || b < 0 || a > math.MaxInt64-b {
		return 0, false
	}
	return a + b, true
}

// TaxPercent renders the rate as a percentage without trailing zeros, e.g. "21" or "10.5".
func (c Config) TaxPercent() string {
	return c.TaxRate.Mul(decimal.NewFromInt(100)).String()
}
