// =============================================================================
// Catalog to Dolibarr Converter - Row Transformer
// =============================================================================
//
// This module turns the rows of a parsed supplier table into Dolibarr import
// rows, following the column mappings chosen by the alias matcher (or the
// user).
//
// OUTPUT COLUMNS (catalog order):
//   - every mapped field
//   - required fields that have a default (type, tosell, tobuy)
//   - tva_tx and price_base_type when the HT price is mapped
//   - weight_units when the weight is mapped
//   - a computed TTC column appended at the end when only HT is mapped, or a
//     computed HT column inserted before TTC when only TTC is mapped
//
// PER-ROW PROCESSING:
//   1. Resolve each column: mapped cell through the field transform, or the
//      field default with the option-driven overrides (tax rate, price base,
//      product type, tosell, tobuy).
//   2. Apply the reference operation to a non-empty reference.
//   3. Apply the price operation to the targeted leg and derive the other
//      one; without an operation, fill the computed leg.
//   4. Record warnings. Rows are never dropped, reordered or altered by
//      validation.
//
// =============================================================================

package converter

import (
	"strconv"

	"github.com/ginjaninja78/catalog-to-dolibarr/internal/mapping"
	"github.com/ginjaninja78/catalog-to-dolibarr/internal/pricing"
	"github.com/ginjaninja78/catalog-to-dolibarr/internal/refops"
	"github.com/ginjaninja78/catalog-to-dolibarr/internal/types"
	"github.com/ginjaninja78/catalog-to-dolibarr/internal/validation"
)

// Transformed is the outcome of a transformation, before serialization.
type Transformed struct {
	Headers  []string
	Rows     [][]string
	Warnings []validation.Warning
}

// outputColumn is one resolved output column.
type outputColumn struct {
	field mapping.TargetField

	// source is the mapped source column, or -1 when the value comes from
	// the field default.
	source int
}

// =============================================================================
// COLUMN RESOLUTION
// =============================================================================

// resolveColumns builds the output column list from the catalog and the
// mappings.
func resolveColumns(catalog mapping.Catalog, mappings []mapping.ColumnMapping) []outputColumn {
	sources := make(map[string]int)
	for _, m := range catalog.Mapped(mappings) {
		sources[m.Field.ID] = m.Mapping.SourceIndex
	}
	_, priceMapped := sources[mapping.FieldPrice]
	_, weightMapped := sources[mapping.FieldWeight]

	var columns []outputColumn
	for _, field := range catalog {
		if idx, ok := sources[field.ID]; ok {
			columns = append(columns, outputColumn{field: field, source: idx})
			continue
		}

		include := false
		switch {
		case field.Required && field.HasDefault():
			include = true
		case field.ID == mapping.FieldTaxRate && priceMapped:
			include = true
		case field.ID == mapping.FieldPriceBaseType && priceMapped:
			include = true
		case field.ID == mapping.FieldWeightUnits && weightMapped:
			include = true
		}
		if include {
			columns = append(columns, outputColumn{field: field, source: -1})
		}
	}

	hasHT := columnIndex(columns, mapping.FieldPrice) >= 0
	hasTTC := columnIndex(columns, mapping.FieldPriceTTC) >= 0

	if hasHT && !hasTTC {
		if field, ok := catalog.Field(mapping.FieldPriceTTC); ok {
			columns = append(columns, outputColumn{field: field, source: -1})
		}
	}
	if hasTTC && !hasHT {
		if field, ok := catalog.Field(mapping.FieldPrice); ok {
			at := columnIndex(columns, mapping.FieldPriceTTC)
			columns = append(columns[:at], append([]outputColumn{{field: field, source: -1}}, columns[at:]...)...)
		}
	}

	return columns
}

func columnIndex(columns []outputColumn, id string) int {
	for i, c := range columns {
		if c.field.ID == id {
			return i
		}
	}
	return -1
}

// =============================================================================
// TRANSFORMATION
// =============================================================================

// Transform converts the table rows into Dolibarr rows.
//
// PARAMETERS:
//   - catalog: The target catalog, normally mapping.DolibarrCatalog().
//   - table: The parsed source table.
//   - mappings: One mapping per source column.
//   - opts: The conversion options.
//
// RETURNS:
//   - The output headers, one row per non-empty source row, and the warnings
//     raised along the way.
func Transform(catalog mapping.Catalog, table *types.Table, mappings []mapping.ColumnMapping, opts ConversionOptions) *Transformed {
	columns := resolveColumns(catalog, mappings)

	headers := make([]string, len(columns))
	for i, c := range columns {
		headers[i] = c.field.Header
	}

	refIdx := columnIndex(columns, mapping.FieldRef)
	labelIdx := columnIndex(columns, mapping.FieldLabel)
	htIdx := columnIndex(columns, mapping.FieldPrice)
	ttcIdx := columnIndex(columns, mapping.FieldPriceTTC)

	// A leg is computed when its column exists but no source feeds it.
	computedTTC := ttcIdx >= 0 && columns[ttcIdx].source < 0
	computedHT := htIdx >= 0 && columns[htIdx].source < 0

	warnings := validation.NewCollector()
	refs := validation.NewDuplicateTracker()
	rows := make([][]string, 0, len(table.Rows))

	for _, source := range table.Rows {
		if source.IsEmpty() {
			continue
		}
		rowNum := len(rows) + 1

		out := make([]string, len(columns))
		for i, col := range columns {
			out[i] = resolveValue(col, source, opts)
		}

		// Complete the pair before any operation so the targeted leg exists
		// even when only the other one is mapped.
		if computedTTC && htIdx >= 0 && out[htIdx] != "" {
			out[ttcIdx] = pricing.DerivePrice(out[htIdx], opts.TaxRate, pricing.ToIncl)
		}
		if computedHT {
			out[htIdx] = pricing.DerivePrice(out[ttcIdx], opts.TaxRate, pricing.ToExcl)
		}
		if opts.PriceOperation != nil {
			applyPriceOperation(out, htIdx, ttcIdx, opts)
		}

		ref := ""
		if refIdx >= 0 {
			ref = out[refIdx]
		}
		if ref == "" {
			warnings.Addf(validation.KindMissingRef, rowNum, "", "Ligne %d: référence manquante", rowNum)
		} else if n, _ := refs.Observe(ref, ""); n > 1 {
			warnings.Addf(validation.KindDuplicateRef, rowNum, ref,
				"Ligne %d: référence \"%s\" dupliquée (occurrence #%d)", rowNum, ref, n)
		}
		if labelIdx >= 0 && out[labelIdx] == "" {
			warnings.Addf(validation.KindMissingLabel, rowNum, ref, "Ligne %d: libellé manquant", rowNum)
		}

		rows = append(rows, out)
	}

	return &Transformed{Headers: headers, Rows: rows, Warnings: warnings.Warnings()}
}

// resolveValue computes one cell of an output row, reference operation
// included.
func resolveValue(col outputColumn, source types.Row, opts ConversionOptions) string {
	var value string
	if col.source >= 0 {
		value = col.field.Value(source.At(col.source))
	} else {
		if col.field.Default != nil {
			value = col.field.Default(source)
		}
		value = optionOverride(col.field.ID, value, opts)
	}

	if col.field.ID == mapping.FieldRef && opts.RefOperation != nil && value != "" {
		value = refops.Apply(value, opts.RefOperation)
	}
	return value
}

// optionOverride replaces the default of an unsourced field that the options
// control.
func optionOverride(id, value string, opts ConversionOptions) string {
	switch id {
	case mapping.FieldTaxRate:
		return pricing.FormatRate(opts.TaxRate)
	case mapping.FieldPriceBaseType:
		return string(opts.PriceBase)
	case mapping.FieldProductType:
		return strconv.Itoa(opts.ProductType)
	case mapping.FieldToSell:
		return flag(opts.ToSell)
	case mapping.FieldToBuy:
		return flag(opts.ToBuy)
	default:
		return value
	}
}

// applyPriceOperation modifies the targeted leg of out in place and derives
// the other leg from the new value. Rows whose targeted leg is empty are left
// alone.
func applyPriceOperation(out []string, htIdx, ttcIdx int, opts ConversionOptions) {
	rate := pricing.FormatRate(opts.TaxRate)

	switch opts.PriceTarget {
	case pricing.TargetTTC:
		if ttcIdx < 0 || out[ttcIdx] == "" {
			return
		}
		out[ttcIdx] = pricing.ApplyOperationToString(out[ttcIdx], opts.PriceOperation)
		if htIdx >= 0 {
			out[htIdx] = pricing.RecomputePrice(out[ttcIdx], rate, pricing.ToExcl)
		}
	default:
		if htIdx < 0 || out[htIdx] == "" {
			return
		}
		out[htIdx] = pricing.ApplyOperationToString(out[htIdx], opts.PriceOperation)
		if ttcIdx >= 0 {
			out[ttcIdx] = pricing.RecomputePrice(out[htIdx], rate, pricing.ToIncl)
		}
	}
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
