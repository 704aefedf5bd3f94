// =============================================================================
// Catalog to Dolibarr Converter - XLSX Table Parser
// =============================================================================
//
// This module reads supplier workbooks into the shared table types. It offers
// three views of a workbook:
//   - ReadWorkbook: every sheet as a raw grid of typed cells
//   - ParseTable:   one sheet with an auto-detected header row (excel path)
//   - ParseSheets:  every sheet as trimmed text, concatenated (fusion path)
//
// HEADER DETECTION:
//   Supplier exports often start with a company block (name, address, blank
//   line) before the real header. The first row within the scan window whose
//   filled cells number at least 2 and exceed 40% of the sheet width is taken
//   as the header row.
//
//   | Row | A            | B          | C      |
//   |-----|--------------|------------|--------|
//   | 0   | Company Name |            |        |   1/3 filled: skipped
//   | 1   | Address Line |            |        |   1/3 filled: skipped
//   | 2   |              |            |        |
//   | 3   | Ref          | Name       | Price  |   header row
//   | 4   | A001         | Product A  | 10     |
//
// CELL TYPES:
//   Numeric cells come back as numbers; shared and inline strings stay text,
//   so a barcode stored as text is never turned into a float.
//
// =============================================================================

package xlsxparser

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/catalog-to-dolibarr/internal/types"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNoSheets is returned for a workbook without any sheet.
	ErrNoSheets = errors.New("workbook contains no sheets")

	// ErrSheetNotFound is returned when the requested sheet does not exist.
	ErrSheetNotFound = errors.New("sheet not found")

	// ErrNoHeaderRow is returned when no row qualifies as a header row.
	ErrNoHeaderRow = errors.New("unable to detect the header row, specify it manually")
)

// =============================================================================
// PARSE OPTIONS
// =============================================================================

// AutoDetect asks ParseTable to find the header row itself.
const AutoDetect = -1

// DefaultHeaderScanRows is the last 0-based row index inspected by header
// detection.
const DefaultHeaderScanRows = 20

// ParseOptions controls which sheet is read and where the header sits.
type ParseOptions struct {
	// Sheet is the sheet name to read. Empty means the first sheet.
	Sheet string

	// SheetIndex selects a sheet by position when Sheet is empty.
	// A negative value means the first sheet.
	SheetIndex int

	// HeaderRow is the 0-based header row, or AutoDetect.
	HeaderRow int

	// MaxScanRows bounds header detection. Zero uses DefaultHeaderScanRows.
	MaxScanRows int
}

// DefaultParseOptions returns options that read the first sheet and detect
// the header row.
func DefaultParseOptions() ParseOptions {
	return ParseOptions{
		SheetIndex:  -1,
		HeaderRow:   AutoDetect,
		MaxScanRows: DefaultHeaderScanRows,
	}
}

// =============================================================================
// RAW WORKBOOK ACCESS
// =============================================================================

// Sheet is one worksheet as a grid of typed cells. Rows keep their physical
// position: blank rows inside the used range are present as empty rows.
type Sheet struct {
	Name string
	Rows []types.Row
}

// Width returns the number of columns of the widest row.
func (s Sheet) Width() int {
	width := 0
	for _, row := range s.Rows {
		if len(row) > width {
			width = len(row)
		}
	}
	return width
}

// ReadWorkbook reads every sheet of a workbook, in workbook order.
//
// PARAMETERS:
//   - r: The XLSX content.
//
// RETURNS:
//   - One Sheet per worksheet.
//   - An error if the content is not a readable workbook.
func ReadWorkbook(r io.Reader) ([]Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	names := f.GetSheetList()
	sheets := make([]Sheet, 0, len(names))
	for _, name := range names {
		rows, err := readRows(f, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", name, err)
		}
		sheets = append(sheets, Sheet{Name: name, Rows: rows})
	}
	return sheets, nil
}

// readRows loads one sheet with raw (unformatted) values and types each cell.
func readRows(f *excelize.File, sheet string) ([]types.Row, error) {
	grid, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}

	rows := make([]types.Row, len(grid))
	for r, values := range grid {
		row := make(types.Row, len(values))
		for c, v := range values {
			row[c] = typedCell(f, sheet, c, r, v)
		}
		rows[r] = row
	}
	return rows, nil
}

// typedCell turns a raw value into a number cell when the worksheet stores it
// as a number, and into a text cell otherwise.
func typedCell(f *excelize.File, sheet string, col, row int, value string) types.Cell {
	if value == "" {
		return types.EmptyCell()
	}

	axis, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return types.StringCell(value)
	}

	kind, err := f.GetCellType(sheet, axis)
	if err != nil {
		return types.StringCell(value)
	}

	// Number cells carry no type attribute at all.
	if kind == excelize.CellTypeNumber || kind == excelize.CellTypeUnset {
		if n, err := strconv.ParseFloat(value, 64); err == nil {
			return types.NumberCell(n)
		}
	}
	return types.StringCell(value)
}

// =============================================================================
// TABLE PARSING
// =============================================================================

// ParseFile opens an XLSX file and parses one table from it.
func ParseFile(path string, opts ParseOptions) (*types.Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return ParseTable(file, opts)
}

// ParseTable reads one sheet and splits it into headers and data rows.
//
// PARAMETERS:
//   - r: The XLSX content.
//   - opts: Sheet selection and header row.
//
// RETURNS:
//   - The table. Header cells left blank are named "Colonne N" (1-based).
//     Data rows are padded to the header width; fully blank rows are dropped.
//   - ErrNoSheets, ErrSheetNotFound or ErrNoHeaderRow (wrapped) on bad input.
func ParseTable(r io.Reader, opts ParseOptions) (*types.Table, error) {
	sheets, err := ReadWorkbook(r)
	if err != nil {
		return nil, err
	}
	if len(sheets) == 0 {
		return nil, ErrNoSheets
	}

	sheet, err := selectSheet(sheets, opts)
	if err != nil {
		return nil, err
	}

	table, err := TableFromSheet(sheet, opts.HeaderRow, opts.MaxScanRows)
	if err != nil {
		return nil, err
	}
	table.SheetNames = sheetNames(sheets)
	return table, nil
}

// TableFromSheet splits a grid into headers and data rows. It backs
// ParseTable and the CSV reader.
//
// PARAMETERS:
//   - sheet: The grid.
//   - headerRow: The 0-based header row, or AutoDetect.
//   - maxScanRows: Bounds header detection. Zero uses DefaultHeaderScanRows.
func TableFromSheet(sheet Sheet, headerRow, maxScanRows int) (*types.Table, error) {
	if headerRow == AutoDetect {
		detected, ok := DetectHeaderRow(sheet, maxScanRows)
		if !ok {
			return nil, fmt.Errorf("sheet %q: %w", sheet.Name, ErrNoHeaderRow)
		}
		headerRow = detected
	}

	width := sheet.Width()
	table := &types.Table{
		SheetName: sheet.Name,
		HeaderRow: headerRow,
		Headers:   make([]string, width),
		Rows:      []types.Row{},
	}

	var header types.Row
	if headerRow >= 0 && headerRow < len(sheet.Rows) {
		header = sheet.Rows[headerRow]
	}
	for c := 0; c < width; c++ {
		name := strings.TrimSpace(header.At(c).String())
		if name == "" {
			name = fmt.Sprintf("Colonne %d", c+1)
		}
		table.Headers[c] = name
	}

	for r := headerRow + 1; r < len(sheet.Rows); r++ {
		row := sheet.Rows[r]
		if row.IsEmpty() {
			continue
		}
		padded := make(types.Row, width)
		for c := 0; c < width; c++ {
			padded[c] = row.At(c)
		}
		table.Rows = append(table.Rows, padded)
	}

	return table, nil
}

// DetectHeaderRow returns the first row, up to index maxRows, holding at least
// two filled cells that also make up more than 40% of the sheet width.
func DetectHeaderRow(sheet Sheet, maxRows int) (int, bool) {
	if maxRows <= 0 {
		maxRows = DefaultHeaderScanRows
	}

	width := sheet.Width()
	if width == 0 {
		return 0, false
	}

	for r := 0; r < len(sheet.Rows) && r <= maxRows; r++ {
		filled := 0
		for _, cell := range sheet.Rows[r] {
			if !cell.IsEmpty() {
				filled++
			}
		}
		if filled >= 2 && float64(filled)/float64(width) > 0.4 {
			return r, true
		}
	}
	return 0, false
}

// selectSheet resolves the sheet named or indexed by opts.
func selectSheet(sheets []Sheet, opts ParseOptions) (Sheet, error) {
	if opts.Sheet != "" {
		for _, s := range sheets {
			if s.Name == opts.Sheet {
				return s, nil
			}
		}
		return Sheet{}, fmt.Errorf("%w: %q", ErrSheetNotFound, opts.Sheet)
	}

	if opts.SheetIndex < 0 {
		return sheets[0], nil
	}
	if opts.SheetIndex >= len(sheets) {
		return Sheet{}, fmt.Errorf("%w: index %d", ErrSheetNotFound, opts.SheetIndex)
	}
	return sheets[opts.SheetIndex], nil
}

func sheetNames(sheets []Sheet) []string {
	names := make([]string, len(sheets))
	for i, s := range sheets {
		names[i] = s.Name
	}
	return names
}

// =============================================================================
// MULTI-SHEET SUPPORT
// =============================================================================

// ParseSheets reads every sheet as trimmed text and concatenates their rows.
//
// The first sheet with at least one data row fixes the headers (row 0).
// Later sheets whose header row differs are skipped. Data rows are cut or
// padded to the header width and fully blank rows are dropped.
//
// RETURNS:
//   - The concatenated table. An empty workbook yields an empty table.
//   - An error if the content is not a readable workbook.
func ParseSheets(r io.Reader) (types.StringTable, error) {
	sheets, err := ReadWorkbook(r)
	if err != nil {
		return types.StringTable{}, err
	}

	var out types.StringTable
	for _, sheet := range sheets {
		if len(sheet.Rows) < 2 {
			continue
		}

		headers := TrimmedStrings(sheet.Rows[0], len(sheet.Rows[0]))
		if out.Headers == nil {
			out.Headers = headers
		} else if strings.Join(headers, "|") != strings.Join(out.Headers, "|") {
			continue
		}

		for _, row := range sheet.Rows[1:] {
			values := TrimmedStrings(row, len(out.Headers))
			if allBlank(values) {
				continue
			}
			out.Rows = append(out.Rows, values)
		}
	}

	if out.Headers == nil {
		out.Headers = []string{}
	}
	if out.Rows == nil {
		out.Rows = [][]string{}
	}
	return out, nil
}

// TrimmedStrings renders the first width cells of row as trimmed text.
func TrimmedStrings(row types.Row, width int) []string {
	values := make([]string, width)
	for i := range values {
		values[i] = strings.TrimSpace(row.At(i).String())
	}
	return values
}

func allBlank(values []string) bool {
	for _, v := range values {
		if v != "" {
			return false
		}
	}
	return true
}
