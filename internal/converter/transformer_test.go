package converter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/catalog-to-dolibarr/internal/mapping"
	"github.com/ginjaninja78/catalog-to-dolibarr/internal/pricing"
	"github.com/ginjaninja78/catalog-to-dolibarr/internal/refops"
	"github.com/ginjaninja78/catalog-to-dolibarr/internal/types"
	"github.com/ginjaninja78/catalog-to-dolibarr/internal/validation"
)

func table(headers []string, rows ...[]string) *types.Table {
	t := &types.Table{Headers: headers}
	for _, r := range rows {
		t.Rows = append(t.Rows, types.RowFromStrings(r))
	}
	return t
}

func mappings(targets ...string) []mapping.ColumnMapping {
	out := make([]mapping.ColumnMapping, len(targets))
	for i, target := range targets {
		out[i] = mapping.ColumnMapping{SourceIndex: i, SourceHeader: target, TargetID: target}
	}
	return out
}

func column(t *testing.T, tr *Transformed, id string) int {
	t.Helper()
	field, ok := mapping.DolibarrCatalog().Field(id)
	require.True(t, ok)
	for i, h := range tr.Headers {
		if h == field.Header {
			return i
		}
	}
	t.Fatalf("column %s not in output", id)
	return -1
}

func TestTransformColumns(t *testing.T) {
	src := table([]string{"Ref", "Nom", "Prix"}, []string{"A1", "Pompe", "10"})
	tr := Transform(mapping.DolibarrCatalog(), src, mappings(mapping.FieldRef, mapping.FieldLabel, mapping.FieldPrice), DefaultOptions())

	assert.Equal(t, []string{
		"Réf.* (p.ref)",
		"Libellé* (p.label)",
		"Type* (p.fk_product_type)",
		"En vente* (p.tosell)",
		"En achat* (p.tobuy)",
		"Prix de vente HT (p.price)",
		"Taux TVA (p.tva_tx)",
		"PriceBaseType (p.price_base_type)",
		"Prix de vente TTC (p.price_ttc)",
	}, tr.Headers)
	require.Len(t, tr.Rows, 1)
	assert.Equal(t, []string{"A1", "Pompe", "0", "1", "1", "10", "21.0", "HT", "12.10"}, tr.Rows[0])
	assert.Empty(t, tr.Warnings)
}

func TestTransformDerivesHTFromTTC(t *testing.T) {
	src := table([]string{"Ref", "Nom", "TTC"}, []string{"A1", "Pompe", "12.10"})
	tr := Transform(mapping.DolibarrCatalog(), src, mappings(mapping.FieldRef, mapping.FieldLabel, mapping.FieldPriceTTC), DefaultOptions())

	ht := column(t, tr, mapping.FieldPrice)
	ttc := column(t, tr, mapping.FieldPriceTTC)
	assert.Equal(t, ttc-1, ht, "HT sits right before TTC")
	assert.Equal(t, "10.00", tr.Rows[0][ht])
	assert.Equal(t, "12.1", tr.Rows[0][ttc])
}

func TestTransformOptionOverrides(t *testing.T) {
	opts := DefaultOptions()
	opts.TaxRate = 6
	opts.ProductType = 1
	opts.ToBuy = false
	opts.PriceBase = pricing.TargetTTC

	src := table([]string{"Ref", "Prix", "Poids"}, []string{"S1", "100", "2"})
	tr := Transform(mapping.DolibarrCatalog(), src, mappings(mapping.FieldRef, mapping.FieldPrice, mapping.FieldWeight), opts)

	row := tr.Rows[0]
	assert.Equal(t, "1", row[column(t, tr, mapping.FieldProductType)])
	assert.Equal(t, "0", row[column(t, tr, mapping.FieldToBuy)])
	assert.Equal(t, "6.0", row[column(t, tr, mapping.FieldTaxRate)])
	assert.Equal(t, "TTC", row[column(t, tr, mapping.FieldPriceBaseType)])
	assert.Equal(t, "106.00", row[column(t, tr, mapping.FieldPriceTTC)])
	assert.Equal(t, "kg", row[column(t, tr, mapping.FieldWeightUnits)])
}

func TestTransformOperations(t *testing.T) {
	opts := DefaultOptions()
	opts.RefOperation = refops.AddPrefix{Prefix: "VP-"}
	opts.PriceOperation = pricing.IncreasePercent{Percent: 10}

	src := table([]string{"Ref", "Nom", "Prix"},
		[]string{"A1", "Pompe", "10"},
		[]string{"", "Sans ref", ""},
	)
	tr := Transform(mapping.DolibarrCatalog(), src, mappings(mapping.FieldRef, mapping.FieldLabel, mapping.FieldPrice), opts)

	ref := column(t, tr, mapping.FieldRef)
	ht := column(t, tr, mapping.FieldPrice)
	ttc := column(t, tr, mapping.FieldPriceTTC)

	assert.Equal(t, "VP-A1", tr.Rows[0][ref])
	assert.Equal(t, "11.00", tr.Rows[0][ht])
	assert.Equal(t, "13.31", tr.Rows[0][ttc])

	assert.Equal(t, "", tr.Rows[1][ref], "empty references are not prefixed")
	assert.Equal(t, "", tr.Rows[1][ht])
}

func TestTransformOperationOnUnmappedLeg(t *testing.T) {
	tests := []struct {
		name   string
		target pricing.Target
		header string
		field  string
		price  string
	}{
		{name: "TTC target with HT mapped", target: pricing.TargetTTC, header: "Prix HT", field: mapping.FieldPrice, price: "100"},
		{name: "HT target with TTC mapped", target: pricing.TargetHT, header: "Prix TTC", field: mapping.FieldPriceTTC, price: "121"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.PriceOperation = pricing.IncreasePercent{Percent: 10}
			opts.PriceTarget = tt.target

			src := table([]string{"Ref", tt.header}, []string{"A1", tt.price})
			tr := Transform(mapping.DolibarrCatalog(), src, mappings(mapping.FieldRef, tt.field), opts)

			require.Len(t, tr.Rows, 1)
			assert.Equal(t, "110.00", tr.Rows[0][column(t, tr, mapping.FieldPrice)])
			assert.Equal(t, "133.10", tr.Rows[0][column(t, tr, mapping.FieldPriceTTC)])
		})
	}
}

func TestTransformWarnings(t *testing.T) {
	src := table([]string{"Ref", "Nom"},
		[]string{"A1", "Pompe"},
		[]string{"", ""},
		[]string{"A1", ""},
		[]string{"", "Vanne"},
	)
	tr := Transform(mapping.DolibarrCatalog(), src, mappings(mapping.FieldRef, mapping.FieldLabel), DefaultOptions())

	require.Len(t, tr.Rows, 3, "empty rows are skipped")
	assert.Equal(t, []validation.Warning{
		{Kind: validation.KindDuplicateRef, Row: 2, Ref: "A1", Message: `Ligne 2: référence "A1" dupliquée (occurrence #2)`},
		{Kind: validation.KindMissingLabel, Row: 2, Ref: "A1", Message: "Ligne 2: libellé manquant"},
		{Kind: validation.KindMissingRef, Row: 3, Message: "Ligne 3: référence manquante"},
	}, tr.Warnings)
}

func TestTransformWithoutRefMapping(t *testing.T) {
	src := table([]string{"Nom"}, []string{"Pompe"}, []string{"Vanne"})
	tr := Transform(mapping.DolibarrCatalog(), src, mappings(mapping.FieldLabel), DefaultOptions())

	counts := validation.CountByKind(tr.Warnings)
	assert.Equal(t, 2, counts[validation.KindMissingRef])
}
