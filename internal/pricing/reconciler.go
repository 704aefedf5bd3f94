// =============================================================================
// Catalog to Dolibarr Converter - Tax/Price Reconciler
// =============================================================================
//
// Dolibarr stores every price twice: excluding tax (HT) and including tax
// (TTC). This module keeps both legs consistent when one of them changes.
//
// FORMULAS:
//   TTC = HT  * (1 + rate/100)
//   HT  = TTC / (1 + rate/100)
//
// Every computed price is rounded to the cent (half away from zero on the
// decimal value) and printed with exactly two decimals.
//
// =============================================================================

package pricing

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/catalog-to-dolibarr/internal/normalize"
	"github.com/ginjaninja78/catalog-to-dolibarr/internal/types"
)

// =============================================================================
// DIRECTIONS AND TARGETS
// =============================================================================

// Direction tells RecomputePrice which leg to derive.
type Direction int

const (
	// ToIncl derives the tax-inclusive price from the exclusive one.
	ToIncl Direction = iota

	// ToExcl derives the tax-exclusive price from the inclusive one.
	ToExcl
)

// Target names the price leg a bulk operation modifies.
type Target string

const (
	// TargetHT modifies the tax-exclusive leg (and the minimum price).
	TargetHT Target = "HT"

	// TargetTTC modifies the tax-inclusive leg.
	TargetTTC Target = "TTC"
)

// ParseTarget reads "HT" or "TTC", case-insensitively.
func ParseTarget(s string) (Target, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(TargetHT):
		return TargetHT, nil
	case string(TargetTTC):
		return TargetTTC, nil
	default:
		return "", fmt.Errorf("invalid price target %q (expected HT or TTC)", s)
	}
}

// =============================================================================
// ROUNDING
// =============================================================================

// Round2 rounds f to the cent. Non-finite values are returned unchanged.
func Round2(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return f
	}
	rounded, _ := decimal.NewFromFloat(f).Round(2).Float64()
	return rounded
}

// FormatCents prints f with exactly two decimals, after rounding to the cent.
func FormatCents(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return types.FormatNumber(f)
	}
	return decimal.NewFromFloat(f).StringFixed(2)
}

// FormatRate prints a tax rate with one decimal, the way Dolibarr exports it
// ("21.0", "5.5").
func FormatRate(rate float64) string {
	return decimal.NewFromFloat(rate).StringFixed(1)
}

// =============================================================================
// RECONCILIATION
// =============================================================================

// RecomputePrice derives the other leg of a price pair.
//
// PARAMETERS:
//   - price: The known leg, as a decimal string.
//   - rate: The tax rate in percent, as a decimal string ("21.0").
//   - dir: Which leg to derive.
//
// RETURNS:
//   - The derived leg with two decimals.
//   - "" when price or rate is empty or not numeric.
func RecomputePrice(price, rate string, dir Direction) string {
	if rate == "" {
		return ""
	}
	r, ok := normalize.ParseFloat(rate)
	if !ok || math.IsInf(r, 0) {
		return ""
	}
	return DerivePrice(price, r, dir)
}

// DerivePrice is RecomputePrice with a numeric tax rate, used when the rate
// comes from the conversion options rather than from a cell.
func DerivePrice(price string, rate float64, dir Direction) string {
	if price == "" {
		return ""
	}
	p, ok := normalize.ParseFloat(price)
	if !ok || math.IsInf(p, 0) {
		return ""
	}

	factor := 1 + rate/100
	var result float64
	switch dir {
	case ToExcl:
		result = p / factor
	default:
		result = p * factor
	}

	if math.IsNaN(result) || math.IsInf(result, 0) {
		return ""
	}
	return FormatCents(Round2(result))
}
