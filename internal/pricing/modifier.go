package pricing

// PriceRow is one product price line as read from a price list or export.
// Every field is kept as text; an empty string means "not provided".
type PriceRow struct {
	Ref           string
	PriceHT       string
	PriceTTC      string
	PriceMin      string
	TaxRate       string
	PriceBaseType string
}

// Modification is the outcome of a bulk operation on one PriceRow.
type Modification struct {
	Ref      string
	PriceHT  string
	PriceTTC string
	PriceMin string

	OriginalPriceHT  string
	OriginalPriceTTC string
	OriginalPriceMin string

	TaxRate       string
	PriceBaseType string

	// Changed is true when any of the three prices differs from the input.
	Changed bool
}

// ApplyToPrices applies op to every row and reconciles the other leg.
//
// With TargetHT the tax-exclusive price and the minimum price are modified,
// then the inclusive price is recomputed from the new exclusive one. With
// TargetTTC only the inclusive price is modified and the exclusive one is
// derived from it. When the counterpart cannot be recomputed (no tax rate,
// empty leg) the original counterpart is kept.
func ApplyToPrices(rows []PriceRow, op Operation, target Target) []Modification {
	out := make([]Modification, 0, len(rows))

	for _, row := range rows {
		var newHT, newTTC, newMin string

		if target == TargetTTC {
			newTTC = ApplyOperationToString(row.PriceTTC, op)
			newHT = orDefault(RecomputePrice(newTTC, row.TaxRate, ToExcl), row.PriceHT)
			newMin = row.PriceMin
		} else {
			newHT = ApplyOperationToString(row.PriceHT, op)
			newMin = ApplyOperationToString(row.PriceMin, op)
			newTTC = orDefault(RecomputePrice(newHT, row.TaxRate, ToIncl), row.PriceTTC)
		}

		out = append(out, Modification{
			Ref:              row.Ref,
			PriceHT:          newHT,
			PriceTTC:         newTTC,
			PriceMin:         newMin,
			OriginalPriceHT:  row.PriceHT,
			OriginalPriceTTC: row.PriceTTC,
			OriginalPriceMin: row.PriceMin,
			TaxRate:          row.TaxRate,
			PriceBaseType:    row.PriceBaseType,
			Changed:          newHT != row.PriceHT || newTTC != row.PriceTTC || newMin != row.PriceMin,
		})
	}

	return out
}

// CountChanged returns how many modifications actually changed a price.
func CountChanged(mods []Modification) int {
	n := 0
	for _, m := range mods {
		if m.Changed {
			n++
		}
	}
	return n
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
