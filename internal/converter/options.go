package converter

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/catalog-to-dolibarr/internal/pricing"
	"github.com/ginjaninja78/catalog-to-dolibarr/internal/refops"
)

// =============================================================================
// SPREADSHEET OPTIONS
// =============================================================================

// ConversionOptions drives a spreadsheet to Dolibarr conversion. A value is
// supplied whole by the caller and never modified during a run.
type ConversionOptions struct {
	// TaxRate is the VAT rate in percent, written to every row ("21.0").
	TaxRate float64

	// PriceBase is the Dolibarr price_base_type: HT or TTC.
	PriceBase pricing.Target

	// ProductType is 0 for products, 1 for services.
	ProductType int

	// ToSell and ToBuy fill the tosell/tobuy flags.
	ToSell bool
	ToBuy  bool

	// RefOperation is applied to every non-empty reference. nil means none.
	RefOperation refops.Operation

	// PriceOperation is applied to the PriceTarget leg of every row, and the
	// other leg is derived from it. nil means none.
	PriceOperation pricing.Operation

	// PriceTarget selects the leg PriceOperation modifies.
	PriceTarget pricing.Target
}

// DefaultOptions returns the options used when the caller sets nothing:
// Belgian VAT, HT prices, sellable and purchasable products.
func DefaultOptions() ConversionOptions {
	return ConversionOptions{
		TaxRate:     21.0,
		PriceBase:   pricing.TargetHT,
		ProductType: 0,
		ToSell:      true,
		ToBuy:       true,
		PriceTarget: pricing.TargetHT,
	}
}

// =============================================================================
// FEED OPTIONS
// =============================================================================

// Language selects the title and description language of a feed conversion.
type Language string

const (
	LanguageFR Language = "FR"
	LanguageEN Language = "EN"
	LanguageNL Language = "NL"
	LanguageDE Language = "DE"
)

// ParseLanguage reads a language code, case-insensitively.
func ParseLanguage(s string) (Language, error) {
	switch lang := Language(strings.ToUpper(strings.TrimSpace(s))); lang {
	case LanguageFR, LanguageEN, LanguageNL, LanguageDE:
		return lang, nil
	default:
		return "", fmt.Errorf("invalid language %q (expected FR, EN, NL or DE)", s)
	}
}

// WeightSource selects which feed weight fills the Dolibarr weight column.
type WeightSource string

const (
	// WeightProduct uses the bare product weight, falling back to the package
	// weight when the product weight is missing.
	WeightProduct WeightSource = "product"

	// WeightPackage always uses the package weight.
	WeightPackage WeightSource = "package"
)

// ParseWeightSource reads "product" or "package".
func ParseWeightSource(s string) (WeightSource, error) {
	switch src := WeightSource(strings.ToLower(strings.TrimSpace(s))); src {
	case WeightProduct, WeightPackage:
		return src, nil
	default:
		return "", fmt.Errorf("invalid weight source %q (expected product or package)", s)
	}
}

// FeedOptions drives a vendor feed conversion.
type FeedOptions struct {
	ConversionOptions

	// Language picks the title and description translation.
	Language Language

	// WeightSource picks the product or package weight.
	WeightSource WeightSource

	// Optional column groups.
	IncludeBarcode    bool
	IncludeWeight     bool
	IncludeDimensions bool
	IncludeURL        bool
	IncludePriceMin   bool

	// DimensionUnit is the unit written next to lengths. The feed uses mm.
	DimensionUnit string
}

// DefaultFeedOptions returns the feed defaults: French texts, package weight,
// barcode, weight, URL and minimum price columns on, dimensions off.
func DefaultFeedOptions() FeedOptions {
	return FeedOptions{
		ConversionOptions: DefaultOptions(),
		Language:          LanguageFR,
		WeightSource:      WeightPackage,
		IncludeBarcode:    true,
		IncludeWeight:     true,
		IncludeDimensions: false,
		IncludeURL:        true,
		IncludePriceMin:   true,
		DimensionUnit:     "mm",
	}
}
