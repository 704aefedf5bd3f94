// =============================================================================
// Catalog to Dolibarr Converter - Price List Input
// =============================================================================
//
// Price lists reach the bulk price editor in three shapes:
//   - pasted text, one "REF<TAB>PRICE" pair per line
//   - a workbook, typically a previous Dolibarr export
//   - a ZIP of such workbooks (a split export)
//
// WORKBOOK COLUMNS (first matching header wins, per sheet):
//
//   | Column | Recognized headers                                         |
//   |--------|------------------------------------------------------------|
//   | ref    | Réf..., Ref..., ... (p.ref), Référence..., Reference...    |
//   | HT     | ... (p.price), Prix de vente HT, Prix ... HT               |
//   | TTC    | ... (p.price_ttc), Prix de vente TTC, Prix ... TTC         |
//   | min    | ... (p.price_min), Prix de vente min, Prix ... min         |
//   | rate   | ... (p.tva_tx), Taux TVA, TVA...                           |
//   | base   | ... (p.price_base_type), PriceBaseType                     |
//
//   A sheet without HT and TTC columns falls back to a bare "Prix", "Price"
//   or "Montant" column read as HT. Sheets without a ref column or without
//   any price column are skipped.
//
// =============================================================================

package pricing

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/ginjaninja78/catalog-to-dolibarr/internal/archive"
	"github.com/ginjaninja78/catalog-to-dolibarr/internal/mapping"
	"github.com/ginjaninja78/catalog-to-dolibarr/internal/normalize"
	"github.com/ginjaninja78/catalog-to-dolibarr/internal/types"
	"github.com/ginjaninja78/catalog-to-dolibarr/internal/xlsxparser"
)

var (
	htHeaders = mapping.HeaderPatterns{
		regexp.MustCompile(`(?i)\(p\.price\)$`),
		regexp.MustCompile(`(?i)prix.*vente.*ht`),
		regexp.MustCompile(`(?i)^prix.*ht`),
	}
	ttcHeaders = mapping.HeaderPatterns{
		regexp.MustCompile(`(?i)\(p\.price_ttc\)`),
		regexp.MustCompile(`(?i)prix.*vente.*ttc`),
		regexp.MustCompile(`(?i)^prix.*ttc`),
	}
	minHeaders = mapping.HeaderPatterns{
		regexp.MustCompile(`(?i)\(p\.price_min\)`),
		regexp.MustCompile(`(?i)prix.*vente.*min`),
		regexp.MustCompile(`(?i)^prix.*min`),
	}
	rateHeaders = mapping.HeaderPatterns{
		regexp.MustCompile(`(?i)\(p\.tva_tx\)`),
		regexp.MustCompile(`(?i)taux.*tva`),
		regexp.MustCompile(`(?i)^tva`),
	}
	baseHeaders = mapping.HeaderPatterns{
		regexp.MustCompile(`(?i)\(p\.price_base_type\)`),
		regexp.MustCompile(`(?i)pricebasetype`),
	}
	genericPriceHeaders = mapping.HeaderPatterns{
		regexp.MustCompile(`(?i)^prix$`),
		regexp.MustCompile(`(?i)^price$`),
		regexp.MustCompile(`(?i)^montant$`),
	}
)

// lineBreak splits pasted text on LF and CRLF.
var lineBreak = regexp.MustCompile(`\r?\n`)

// =============================================================================
// TEXT INPUT
// =============================================================================

// TextPricePair is one "REF<TAB>PRICE" line of pasted text.
type TextPricePair struct {
	Ref   string
	Price string
}

// ParsePricesFromText reads tab-separated ref/price pairs, one per line.
// Blank lines, lines without a tab and lines whose price is not numeric are
// skipped.
func ParsePricesFromText(text string) []TextPricePair {
	var pairs []TextPricePair
	for _, line := range lineBreak.Split(text, -1) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		parts := strings.Split(line, "\t")
		if len(parts) < 2 {
			continue
		}

		ref := strings.TrimSpace(parts[0])
		price := strings.TrimSpace(parts[1])
		if ref == "" || price == "" || !isNumeric(price) {
			continue
		}
		pairs = append(pairs, TextPricePair{Ref: ref, Price: price})
	}
	return pairs
}

// PairsToRows turns pasted pairs into price rows. The price lands on the leg
// the operation targets; rate and base type come from the caller.
func PairsToRows(pairs []TextPricePair, target Target, rate, baseType string) []PriceRow {
	rows := make([]PriceRow, len(pairs))
	for i, p := range pairs {
		row := PriceRow{Ref: p.Ref, TaxRate: rate, PriceBaseType: baseType}
		if target == TargetTTC {
			row.PriceTTC = p.Price
		} else {
			row.PriceHT = p.Price
		}
		rows[i] = row
	}
	return rows
}

// =============================================================================
// WORKBOOK INPUT
// =============================================================================

// ParsePricesFromWorkbook extracts price rows from every usable sheet.
//
// RETURNS:
//   - The rows in sheet order. Rows without a ref, or whose HT and TTC cells
//     are both empty or not numeric, are skipped.
//   - An error if the content is not a readable workbook.
func ParsePricesFromWorkbook(r io.Reader) ([]PriceRow, error) {
	sheets, err := xlsxparser.ReadWorkbook(r)
	if err != nil {
		return nil, err
	}

	var rows []PriceRow
	for _, sheet := range sheets {
		rows = append(rows, pricesFromSheet(sheet)...)
	}
	return rows, nil
}

// ParsePricesFromArchive reads every .xlsx entry of a ZIP buffer.
func ParsePricesFromArchive(data []byte) ([]PriceRow, error) {
	files, err := archive.Extract(data, ".xlsx")
	if err != nil {
		return nil, err
	}

	var rows []PriceRow
	for _, file := range files {
		fileRows, err := ParsePricesFromWorkbook(bytes.NewReader(file.Data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file.Name, err)
		}
		rows = append(rows, fileRows...)
	}
	return rows, nil
}

func pricesFromSheet(sheet xlsxparser.Sheet) []PriceRow {
	if len(sheet.Rows) < 2 {
		return nil
	}

	header := sheet.Rows[0]
	refCol := mapping.RefHeaders.FindColumn(header)
	if refCol < 0 {
		return nil
	}

	htCol := htHeaders.FindColumn(header)
	ttcCol := ttcHeaders.FindColumn(header)
	minCol := minHeaders.FindColumn(header)
	rateCol := rateHeaders.FindColumn(header)
	baseCol := baseHeaders.FindColumn(header)

	if htCol < 0 && ttcCol < 0 {
		htCol = genericPriceHeaders.FindColumn(header)
	}
	if htCol < 0 && ttcCol < 0 {
		return nil
	}

	var rows []PriceRow
	for _, row := range sheet.Rows[1:] {
		ref := cellText(row, refCol)
		if ref == "" {
			continue
		}

		ht := cellText(row, htCol)
		ttc := cellText(row, ttcCol)
		if !isNumeric(ht) && !isNumeric(ttc) {
			continue
		}

		rows = append(rows, PriceRow{
			Ref:           ref,
			PriceHT:       ht,
			PriceTTC:      ttc,
			PriceMin:      cellText(row, minCol),
			TaxRate:       cellText(row, rateCol),
			PriceBaseType: cellText(row, baseCol),
		})
	}
	return rows
}

// cellText returns the trimmed text of column col, or "" when col is -1.
func cellText(row types.Row, col int) string {
	if col < 0 {
		return ""
	}
	return strings.TrimSpace(row.At(col).String())
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	_, ok := normalize.ParseFloat(s)
	return ok
}
