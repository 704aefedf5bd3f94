// =============================================================================
// Catalog to Dolibarr Converter - Feed Transformer
// =============================================================================
//
// This module turns Valkenpower feed products into Dolibarr import rows.
// Unlike spreadsheets, the feed has a fixed shape, so the output columns are
// a fixed list whose optional groups are switched on by FeedOptions:
//
//   ref, label, type, tosell, tobuy, description,
//   [url], [weight, weight_units], [length, width, height with units],
//   price, [price_min], price_ttc, tva_tx, price_base_type, [barcode]
//
// =============================================================================

package converter

import (
	"strconv"

	"github.com/ginjaninja78/catalog-to-dolibarr/internal/feed"
	"github.com/ginjaninja78/catalog-to-dolibarr/internal/mapping"
	"github.com/ginjaninja78/catalog-to-dolibarr/internal/normalize"
	"github.com/ginjaninja78/catalog-to-dolibarr/internal/pricing"
	"github.com/ginjaninja78/catalog-to-dolibarr/internal/refops"
	"github.com/ginjaninja78/catalog-to-dolibarr/internal/types"
	"github.com/ginjaninja78/catalog-to-dolibarr/internal/validation"
)

// Dimension headers, which the spreadsheet catalog does not carry.
const (
	headerLength      = "Longueur (p.length)"
	headerLengthUnits = "Unité de longueur (p.length_units)"
	headerWidth       = "Largeur (p.width)"
	headerWidthUnits  = "Unité de largeur (p.width_units)"
	headerHeight      = "Hauteur (p.height)"
	headerHeightUnits = "Unité de hauteur (p.height_units)"
)

// feedColumn is one output column of a feed conversion.
type feedColumn struct {
	id     string
	header string
	value  func(p feed.Product) string
}

// =============================================================================
// LANGUAGE FALLBACKS
// =============================================================================

// Title returns the product title in lang, falling back to English then
// Dutch. Dutch has no fallback.
func Title(p feed.Product, lang Language) string {
	switch lang {
	case LanguageEN:
		return firstNonEmpty(p.TitleEN, p.TitleNL)
	case LanguageNL:
		return p.TitleNL
	case LanguageDE:
		return firstNonEmpty(p.TitleDE, p.TitleEN, p.TitleNL)
	default:
		return firstNonEmpty(p.TitleFR, p.TitleEN, p.TitleNL)
	}
}

// Description returns the plain-text description in lang, with the same
// fallback chain as Title.
func Description(p feed.Product, lang Language) string {
	var raw string
	switch lang {
	case LanguageEN:
		raw = firstNonEmpty(p.DescriptionEN, p.DescriptionNL)
	case LanguageNL:
		raw = p.DescriptionNL
	case LanguageDE:
		raw = firstNonEmpty(p.DescriptionDE, p.DescriptionEN, p.DescriptionNL)
	default:
		raw = firstNonEmpty(p.DescriptionFR, p.DescriptionEN, p.DescriptionNL)
	}
	return normalize.HTMLToPlainText(raw)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// weight picks the product or package weight in kg.
func weight(p feed.Product, source WeightSource) float64 {
	if source == WeightProduct && p.ProdWeight > 0 {
		return p.ProdWeight
	}
	return p.PackWeight
}

// positive formats a measurement, or "" when it is not positive.
func positive(f float64) string {
	if f <= 0 {
		return ""
	}
	return types.FormatNumber(f)
}

// dimension prefers the product measurement over the package one.
func dimension(prod, pack float64) float64 {
	if prod > 0 {
		return prod
	}
	return pack
}

// =============================================================================
// COLUMNS
// =============================================================================

// feedRef returns the output reference of a product.
func feedRef(p feed.Product, opts FeedOptions) string {
	if opts.RefOperation != nil {
		return refops.Apply(p.Model, opts.RefOperation)
	}
	return p.Model
}

func buildFeedColumns(opts FeedOptions) []feedColumn {
	catalog := mapping.DolibarrCatalog()
	header := func(id string) string {
		field, _ := catalog.Field(id)
		return field.Header
	}
	constant := func(v string) func(feed.Product) string {
		return func(feed.Product) string { return v }
	}

	columns := []feedColumn{
		{mapping.FieldRef, header(mapping.FieldRef), func(p feed.Product) string { return feedRef(p, opts) }},
		{mapping.FieldLabel, header(mapping.FieldLabel), func(p feed.Product) string { return Title(p, opts.Language) }},
		{mapping.FieldProductType, header(mapping.FieldProductType), constant(strconv.Itoa(opts.ProductType))},
		{mapping.FieldToSell, header(mapping.FieldToSell), constant(flag(opts.ToSell))},
		{mapping.FieldToBuy, header(mapping.FieldToBuy), constant(flag(opts.ToBuy))},
		{mapping.FieldDescription, header(mapping.FieldDescription), func(p feed.Product) string { return Description(p, opts.Language) }},
	}

	if opts.IncludeURL {
		columns = append(columns, feedColumn{mapping.FieldURL, header(mapping.FieldURL), func(p feed.Product) string { return p.MainImage }})
	}

	if opts.IncludeWeight {
		columns = append(columns,
			feedColumn{mapping.FieldWeight, header(mapping.FieldWeight), func(p feed.Product) string {
				return positive(weight(p, opts.WeightSource))
			}},
			feedColumn{mapping.FieldWeightUnits, header(mapping.FieldWeightUnits), func(p feed.Product) string {
				if weight(p, opts.WeightSource) > 0 {
					return "kg"
				}
				return ""
			}},
		)
	}

	if opts.IncludeDimensions {
		unit := opts.DimensionUnit
		if unit == "" {
			unit = "mm"
		}
		measure := func(get func(feed.Product) (float64, float64)) func(feed.Product) string {
			return func(p feed.Product) string { return positive(dimension(get(p))) }
		}
		unitOf := func(get func(feed.Product) (float64, float64)) func(feed.Product) string {
			return func(p feed.Product) string {
				if prod, pack := get(p); prod > 0 || pack > 0 {
					return unit
				}
				return ""
			}
		}
		length := func(p feed.Product) (float64, float64) { return p.ProdLength, p.PackLength }
		width := func(p feed.Product) (float64, float64) { return p.ProdWidth, p.PackWidth }
		height := func(p feed.Product) (float64, float64) { return p.ProdHeight, p.PackHeight }

		columns = append(columns,
			feedColumn{"length", headerLength, measure(length)},
			feedColumn{"length_units", headerLengthUnits, unitOf(length)},
			feedColumn{"width", headerWidth, measure(width)},
			feedColumn{"width_units", headerWidthUnits, unitOf(width)},
			feedColumn{"height", headerHeight, measure(height)},
			feedColumn{"height_units", headerHeightUnits, unitOf(height)},
		)
	}

	columns = append(columns, feedColumn{mapping.FieldPrice, header(mapping.FieldPrice), func(p feed.Product) string { return p.PriceExVAT }})
	if opts.IncludePriceMin {
		columns = append(columns, feedColumn{mapping.FieldPriceMin, header(mapping.FieldPriceMin), func(p feed.Product) string { return p.SpecialPriceExVAT }})
	}
	columns = append(columns,
		feedColumn{mapping.FieldPriceTTC, header(mapping.FieldPriceTTC), func(p feed.Product) string { return p.PriceInVAT }},
		feedColumn{mapping.FieldTaxRate, header(mapping.FieldTaxRate), constant(pricing.FormatRate(opts.TaxRate))},
		feedColumn{mapping.FieldPriceBaseType, header(mapping.FieldPriceBaseType), constant(string(opts.PriceBase))},
	)

	if opts.IncludeBarcode {
		columns = append(columns, feedColumn{mapping.FieldBarcode, header(mapping.FieldBarcode), func(p feed.Product) string { return p.Barcode }})
	}

	return columns
}

// =============================================================================
// TRANSFORMATION
// =============================================================================

// TransformFeed converts feed products into Dolibarr rows, one per product,
// in feed order. Warnings are numbered by product position (1-based) and
// carry the product model.
func TransformFeed(products []feed.Product, opts FeedOptions) *Transformed {
	columns := buildFeedColumns(opts)

	headers := make([]string, len(columns))
	htIdx, ttcIdx := -1, -1
	for i, c := range columns {
		headers[i] = c.header
		switch c.id {
		case mapping.FieldPrice:
			htIdx = i
		case mapping.FieldPriceTTC:
			ttcIdx = i
		}
	}

	warnings := validation.NewCollector()
	barcodes := validation.NewDuplicateTracker()
	refs := validation.NewDuplicateTracker()
	rows := make([][]string, 0, len(products))

	for i, p := range products {
		rowNum := i + 1

		if opts.IncludeBarcode {
			if p.Barcode == "" {
				warnings.Addf(validation.KindMissingBarcode, rowNum, p.Model, "Pas de code-barres pour %s", p.Model)
			} else if n, first := barcodes.Observe(p.Barcode, p.Model); n > 1 {
				warnings.Addf(validation.KindDuplicateBarcode, rowNum, p.Model,
					"Code-barres \"%s\" dupliqué (déjà utilisé par %s)", p.Barcode, first)
			}
		}

		ref := feedRef(p, opts)
		if n, _ := refs.Observe(ref, p.Model); n > 1 {
			warnings.Addf(validation.KindDuplicateRef, rowNum, p.Model,
				"Référence \"%s\" dupliquée (occurrence #%d)", ref, n)
		}

		if Title(p, opts.Language) == "" {
			warnings.Addf(validation.KindMissingTitle, rowNum, p.Model, "Pas de titre en %s pour %s", opts.Language, p.Model)
		}
		if p.PriceExVAT == "" && p.PriceInVAT == "" {
			warnings.Addf(validation.KindMissingPrice, rowNum, p.Model, "Pas de prix pour %s", p.Model)
		}

		row := make([]string, len(columns))
		for c, col := range columns {
			row[c] = col.value(p)
		}
		if opts.PriceOperation != nil {
			applyPriceOperation(row, htIdx, ttcIdx, opts.ConversionOptions)
		}
		rows = append(rows, row)
	}

	return &Transformed{Headers: headers, Rows: rows, Warnings: warnings.Warnings()}
}
