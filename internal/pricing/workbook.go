package pricing

import (
	"github.com/ginjaninja78/catalog-to-dolibarr/internal/types"
	"github.com/ginjaninja78/catalog-to-dolibarr/internal/xlsxwriter"
)

// SheetName is the worksheet of a price update file.
const SheetName = "Modifications"

// OutputHeaders are the Dolibarr price import columns, in output order.
var OutputHeaders = []string{
	"Réf.* (p.ref)",
	"Prix de vente HT (p.price)",
	"Prix de vente min. (p.price_min)",
	"Prix de vente TTC (p.price_ttc)",
	"Taux TVA (p.tva_tx)",
	"PriceBaseType (p.price_base_type)",
}

// Table lays modifications out as a Dolibarr price import table.
func Table(mods []Modification) types.StringTable {
	rows := make([][]string, len(mods))
	for i, m := range mods {
		rows[i] = []string{m.Ref, m.PriceHT, m.PriceMin, m.PriceTTC, m.TaxRate, m.PriceBaseType}
	}
	return types.StringTable{Headers: OutputHeaders, Rows: rows}
}

// GenerateWorkbook serializes modifications into an XLSX price update file.
func GenerateWorkbook(mods []Modification) ([]byte, error) {
	return xlsxwriter.Bytes(SheetName, Table(mods))
}
