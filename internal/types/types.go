// =============================================================================
// Catalog to Dolibarr Converter - Shared Types
// =============================================================================
//
// This package contains the table types shared by the parsers, the mapping
// engine and the serializers. Types defined here are used by:
//   - xlsxparser / csvparser (producers)
//   - mapping / converter (consumers)
//   - normalize (cell-level parsing)
//
// =============================================================================

package types

import (
	"math"
	"strconv"
	"strings"
)

// =============================================================================
// CELL TYPES
// =============================================================================

// CellKind tells which member of the cell union is populated.
type CellKind int

const (
	// CellEmpty is a missing or blank cell.
	CellEmpty CellKind = iota

	// CellString is a text cell.
	CellString

	// CellNumber is a numeric cell.
	CellNumber
)

// Cell is a single raw source value: string, number or nothing.
type Cell struct {
	Kind   CellKind
	Text   string
	Number float64
}

// StringCell wraps a text value. An empty string yields an empty cell.
func StringCell(s string) Cell {
	if s == "" {
		return Cell{Kind: CellEmpty}
	}
	return Cell{Kind: CellString, Text: s}
}

// NumberCell wraps a numeric value.
func NumberCell(f float64) Cell {
	return Cell{Kind: CellNumber, Number: f}
}

// EmptyCell returns a blank cell.
func EmptyCell() Cell {
	return Cell{Kind: CellEmpty}
}

// IsEmpty reports whether the cell carries no value.
func (c Cell) IsEmpty() bool {
	return c.Kind == CellEmpty
}

// String renders the cell the way it would be displayed: text verbatim,
// numbers in their shortest round-trip form, empty cells as "".
func (c Cell) String() string {
	switch c.Kind {
	case CellString:
		return c.Text
	case CellNumber:
		return FormatNumber(c.Number)
	default:
		return ""
	}
}

// FormatNumber formats a float with the fewest digits that round-trip.
// Negative zero is printed as "0". Magnitudes from 1e21 up and below 1e-6
// use the exponent form spreadsheets export ("1e+21", "1.5e-7").
func FormatNumber(f float64) string {
	if f == 0 {
		return "0"
	}
	if math.IsInf(f, 1) {
		return "Infinity"
	}
	if math.IsInf(f, -1) {
		return "-Infinity"
	}
	if abs := math.Abs(f); abs >= 1e21 || abs < 1e-6 {
		mantissa, exp, _ := strings.Cut(strconv.FormatFloat(f, 'e', -1, 64), "e")
		return mantissa + "e" + exp[:1] + strings.TrimLeft(exp[1:], "0")
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// =============================================================================
// ROW AND TABLE TYPES
// =============================================================================

// Row is an ordered sequence of cells aligned with the table headers.
type Row []Cell

// At returns the cell at index i, or an empty cell when the row is shorter.
func (r Row) At(i int) Cell {
	if i < 0 || i >= len(r) {
		return EmptyCell()
	}
	return r[i]
}

// IsEmpty reports whether every cell in the row is blank.
func (r Row) IsEmpty() bool {
	for _, c := range r {
		if !c.IsEmpty() {
			return false
		}
	}
	return true
}

// RowFromStrings builds a row of string cells. Whitespace-only values are
// kept as text; only "" becomes an empty cell.
func RowFromStrings(values []string) Row {
	row := make(Row, len(values))
	for i, v := range values {
		row[i] = StringCell(v)
	}
	return row
}

// Table is a parsed source table: headers plus data rows.
type Table struct {
	// SheetName is the sheet the table was read from (empty for CSV).
	SheetName string

	// SheetNames lists every sheet of the workbook.
	SheetNames []string

	// HeaderRow is the 0-based physical row holding the headers.
	HeaderRow int

	// Headers are the column names, one per column.
	Headers []string

	// Rows are the data rows; fully empty rows are never included.
	Rows []Row
}

// TotalRows returns the number of data rows.
func (t *Table) TotalRows() int {
	return len(t.Rows)
}

// ColumnValues returns every value of one column, empty cells included.
func (t *Table) ColumnValues(index int) []Cell {
	values := make([]Cell, len(t.Rows))
	for i, row := range t.Rows {
		values[i] = row.At(index)
	}
	return values
}

// ColumnIndex finds a header by case-insensitive name.
func (t *Table) ColumnIndex(name string) (int, bool) {
	lower := strings.ToLower(name)
	for i, h := range t.Headers {
		if strings.ToLower(h) == lower {
			return i, true
		}
	}
	return -1, false
}

// =============================================================================
// STRING TABLES
// =============================================================================

// StringTable is a table whose cells were all read back as trimmed text.
// The merge engine and the serializers work on this shape.
type StringTable struct {
	Headers []string
	Rows    [][]string
}

// Len returns the number of data rows.
func (t StringTable) Len() int {
	return len(t.Rows)
}
