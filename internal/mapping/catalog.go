// =============================================================================
// Catalog to Dolibarr Converter - Target Catalog
// =============================================================================
//
// A catalog is the fixed, ordered list of output fields for one destination
// format. The order matters twice:
//   1. output columns are written in catalog order
//   2. auto-detection tries targets in catalog order, so a field listed
//      earlier wins a header that matches the aliases of several fields
//
// The Dolibarr catalog below is data, not code: the transformer only reads it.
//
// =============================================================================

package mapping

import (
	"strings"

	"github.com/ginjaninja78/catalog-to-dolibarr/internal/normalize"
	"github.com/ginjaninja78/catalog-to-dolibarr/internal/types"
)

// =============================================================================
// FIELD IDENTIFIERS
// =============================================================================

// Dolibarr product field identifiers.
const (
	FieldRef           = "ref"
	FieldLabel         = "label"
	FieldProductType   = "fk_product_type"
	FieldToSell        = "tosell"
	FieldToBuy         = "tobuy"
	FieldDescription   = "description"
	FieldPrice         = "price"
	FieldPriceMin      = "price_min"
	FieldPriceTTC      = "price_ttc"
	FieldTaxRate       = "tva_tx"
	FieldPriceBaseType = "price_base_type"
	FieldBarcode       = "barcode"
	FieldWeight        = "weight"
	FieldWeightUnits   = "weight_units"
	FieldURL           = "url"
)

// =============================================================================
// TARGET FIELD
// =============================================================================

// DefaultFunc computes a value for a field that no source column supplies.
type DefaultFunc func(row types.Row) string

// TransformFunc normalizes one raw source cell into its output string.
type TransformFunc func(cell types.Cell) string

// StaticDefault returns a DefaultFunc that always yields value.
func StaticDefault(value string) DefaultFunc {
	return func(types.Row) string { return value }
}

// TargetField describes one output column of a destination format.
type TargetField struct {
	// ID is the stable key used by mappings.
	ID string

	// Header is written verbatim as the output column header.
	Header string

	// Label is the short display name.
	Label string

	// Required fields must be mapped unless they have a default.
	Required bool

	// Aliases are candidate source header names or substrings.
	Aliases []string

	// Default is used when no source column is mapped; nil means none.
	Default DefaultFunc

	// Transform normalizes mapped values; nil means trimmed text.
	Transform TransformFunc
}

// HasDefault reports whether the field can be filled without a source column.
func (f TargetField) HasDefault() bool {
	return f.Default != nil
}

// Value converts a mapped source cell into the output string.
func (f TargetField) Value(cell types.Cell) string {
	if f.Transform != nil {
		return f.Transform(cell)
	}
	return strings.TrimSpace(cell.String())
}

// =============================================================================
// CATALOG
// =============================================================================

// Catalog is an ordered list of target fields.
type Catalog []TargetField

// Field looks a field up by ID.
func (c Catalog) Field(id string) (TargetField, bool) {
	for _, f := range c {
		if f.ID == id {
			return f, true
		}
	}
	return TargetField{}, false
}

// Has reports whether the catalog defines id.
func (c Catalog) Has(id string) bool {
	_, ok := c.Field(id)
	return ok
}

// DolibarrCatalog returns the Dolibarr 22 product import catalog.
//
// The order is load-bearing for auto-detection and must not be reshuffled:
// "ref" precedes "barcode" so a header such as "code_article" lands on the
// reference while "EAN code" still reaches the barcode.
func DolibarrCatalog() Catalog {
	price := TransformFunc(normalize.ParsePrice)

	return Catalog{
		{
			ID:       FieldRef,
			Header:   "Réf.* (p.ref)",
			Label:    "Référence",
			Required: true,
			Aliases: []string{
				"ref", "référence", "referentie", "reference", "sku",
				"article", "product_code", "code_article",
			},
		},
		{
			ID:       FieldLabel,
			Header:   "Libellé* (p.label)",
			Label:    "Libellé",
			Required: true,
			Aliases: []string{
				"label", "libellé", "libelle", "désignation", "designation",
				"benaming", "name", "nom", "title", "titre", "product_name",
				"nom_produit", "intitulé", "intitule",
			},
		},
		{
			ID:       FieldProductType,
			Header:   "Type* (p.fk_product_type)",
			Label:    "Type produit",
			Required: true,
			Aliases:  []string{"type", "product_type", "type_produit"},
			Default:  StaticDefault("0"),
		},
		{
			ID:       FieldToSell,
			Header:   "En vente* (p.tosell)",
			Label:    "En vente",
			Required: true,
			Aliases:  []string{"tosell", "en_vente", "vente", "sellable", "a_vendre"},
			Default:  StaticDefault("1"),
		},
		{
			ID:       FieldToBuy,
			Header:   "En achat* (p.tobuy)",
			Label:    "En achat",
			Required: true,
			Aliases:  []string{"tobuy", "en_achat", "achat", "buyable", "a_acheter"},
			Default:  StaticDefault("1"),
		},
		{
			ID:     FieldDescription,
			Header: "Description (p.description)",
			Label:  "Description",
			Aliases: []string{
				"description", "desc", "détail", "detail", "details",
				"product_description",
			},
		},
		{
			ID:     FieldPrice,
			Header: "Prix de vente HT (p.price)",
			Label:  "Prix HT",
			Aliases: []string{
				"prix", "price", "prijs", "prix_ht", "price_ht", "prix_vente",
				"selling_price", "pvht", "prix_hors_taxe", "prix de vente",
			},
			Transform: price,
		},
		{
			ID:        FieldPriceMin,
			Header:    "Prix de vente min. (p.price_min)",
			Label:     "Prix min",
			Aliases:   []string{"prix_min", "price_min", "prix_minimum", "min_price", "prix_mini"},
			Transform: price,
		},
		{
			ID:     FieldPriceTTC,
			Header: "Prix de vente TTC (p.price_ttc)",
			Label:  "Prix TTC",
			Aliases: []string{
				"prix_ttc", "price_ttc", "prix_vente_ttc", "price_incl_vat",
				"prix_avec_taxes", "pvttc",
			},
			Transform: price,
		},
		{
			ID:      FieldTaxRate,
			Header:  "Taux TVA (p.tva_tx)",
			Label:   "TVA",
			Aliases: []string{"tva", "vat", "btw", "tva_tx", "taux_tva", "vat_rate"},
			Default: StaticDefault("21.0"),
		},
		{
			ID:      FieldPriceBaseType,
			Header:  "PriceBaseType (p.price_base_type)",
			Label:   "Base prix",
			Aliases: []string{"price_base_type", "base_price", "type_prix"},
			Default: StaticDefault("HT"),
		},
		{
			ID:     FieldBarcode,
			Header: "Code-barres (p.barcode)",
			Label:  "Code-barres",
			Aliases: []string{
				"ean", "barcode", "code_barre", "code-barres", "codebarre",
				"upc", "gtin", "ean13", "ean-13",
			},
		},
		{
			ID:      FieldWeight,
			Header:  "Weight (p.weight)",
			Label:   "Poids",
			Aliases: []string{"poids", "weight", "gewicht", "masse"},
		},
		{
			ID:      FieldWeightUnits,
			Header:  "Unité de poids (p.weight_units)",
			Label:   "Unité poids",
			Aliases: []string{"weight_unit", "unité_poids", "unite_poids"},
			Default: StaticDefault("kg"),
		},
		{
			ID:      FieldURL,
			Header:  "URL publique (p.url)",
			Label:   "URL",
			Aliases: []string{"url", "lien", "link", "website", "image", "image_url"},
		},
	}
}
