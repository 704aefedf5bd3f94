// =============================================================================
// Catalog to Dolibarr Converter - XLSX Table Writer
// =============================================================================
//
// Serializes a header row plus string rows into a single-sheet workbook.
//
// Every cell is written as text. Dolibarr imports barcodes, references and
// prices from text cells without complaint, whereas a numeric cell holding
// "5411234567890" comes back from Excel as 5.41123E+12.
//
// =============================================================================

package xlsxwriter

import (
	"bytes"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/catalog-to-dolibarr/internal/types"
)

// defaultSheet is the sheet excelize creates in a new workbook.
const defaultSheet = "Sheet1"

// Write serializes table as a workbook with one sheet named sheetName.
//
// PARAMETERS:
//   - w: Destination of the XLSX bytes.
//   - sheetName: Name of the only worksheet.
//   - table: Headers (row 1) and data rows (row 2 onward).
//
// RETURNS:
//   - An error if a cell cannot be set or the workbook cannot be written.
func Write(w io.Writer, sheetName string, table types.StringTable) error {
	f := excelize.NewFile()
	defer f.Close()

	if sheetName == "" {
		sheetName = defaultSheet
	}
	if sheetName != defaultSheet {
		if err := f.SetSheetName(defaultSheet, sheetName); err != nil {
			return fmt.Errorf("failed to name sheet: %w", err)
		}
	}

	if err := writeRow(f, sheetName, 1, table.Headers); err != nil {
		return err
	}
	for i, row := range table.Rows {
		if err := writeRow(f, sheetName, i+2, row); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// Bytes is Write into memory.
func Bytes(sheetName string, table types.StringTable) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, sheetName, table); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeRow sets one physical row (1-based), skipping empty values so blank
// cells stay absent from the sheet.
func writeRow(f *excelize.File, sheet string, rowNum int, values []string) error {
	for c, v := range values {
		if v == "" {
			continue
		}
		axis, err := excelize.CoordinatesToCellName(c+1, rowNum)
		if err != nil {
			return fmt.Errorf("invalid cell at row %d column %d: %w", rowNum, c+1, err)
		}
		if err := f.SetCellStr(sheet, axis, v); err != nil {
			return fmt.Errorf("failed to set cell %s: %w", axis, err)
		}
	}
	return nil
}
