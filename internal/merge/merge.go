// =============================================================================
// Catalog to Dolibarr Converter - Fusion Merge
// =============================================================================
//
// Merges two spreadsheets row by row: every base row is looked up in the
// source by a key column, and mapped columns are overwritten with the source
// values. Typical use: pour French titles from a translation export into an
// existing Dolibarr product export.
//
// MATCHING RULES:
//   - Keys are compared trimmed and lowercased.
//   - When the source repeats a key, the first row wins.
//   - A column is replaced only when the source value is non-blank, so a
//     sparse source never erases base data.
//   - Unmatched base rows are copied unchanged. Row order and count follow
//     the base.
//
// =============================================================================

package merge

import (
	"bytes"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/ginjaninja78/catalog-to-dolibarr/internal/archive"
	"github.com/ginjaninja78/catalog-to-dolibarr/internal/types"
	"github.com/ginjaninja78/catalog-to-dolibarr/internal/xlsxparser"
)

// ColumnMapping copies SourceCol of the matching source row into BaseCol.
type ColumnMapping struct {
	BaseCol   int
	SourceCol int
}

// Options configures a merge.
type Options struct {
	// BaseKeyCol is the key column of the base sheet.
	BaseKeyCol int

	// SourceKeyCol is the key column of the source sheet.
	SourceKeyCol int

	// Mappings lists the replaced columns.
	Mappings []ColumnMapping
}

// Result is the merged table with match statistics.
type Result struct {
	Headers []string
	Rows    [][]string

	// MatchedCount is the number of base rows found in the source.
	MatchedCount int

	// UnmatchedCount is the number of base rows left untouched.
	UnmatchedCount int

	// TotalRows is the number of output rows.
	TotalRows int

	// UnmatchedRefs lists the base keys with no source row. Rows with a blank
	// key are counted as unmatched but not listed.
	UnmatchedRefs []string
}

// Merge overlays source onto base. Neither input is modified.
func Merge(base, source types.StringTable, opts Options) *Result {
	lookup := make(map[string][]string, len(source.Rows))
	for _, row := range source.Rows {
		key := normalizeKey(cell(row, opts.SourceKeyCol))
		if key == "" {
			continue
		}
		if _, seen := lookup[key]; !seen {
			lookup[key] = row
		}
	}

	result := &Result{
		Headers: base.Headers,
		Rows:    make([][]string, 0, len(base.Rows)),
	}

	for _, baseRow := range base.Rows {
		merged := slices.Clone(baseRow)
		key := normalizeKey(cell(baseRow, opts.BaseKeyCol))

		sourceRow, ok := lookup[key]
		if key == "" || !ok {
			result.Rows = append(result.Rows, merged)
			if key != "" {
				result.UnmatchedRefs = append(result.UnmatchedRefs, cell(baseRow, opts.BaseKeyCol))
			}
			continue
		}

		for _, m := range opts.Mappings {
			value := cell(sourceRow, m.SourceCol)
			if strings.TrimSpace(value) == "" {
				continue
			}
			merged = setCell(merged, m.BaseCol, value)
		}
		result.Rows = append(result.Rows, merged)
		result.MatchedCount++
	}

	result.TotalRows = len(result.Rows)
	result.UnmatchedCount = len(base.Rows) - result.MatchedCount
	return result
}

func normalizeKey(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// setCell writes value at i, growing the row when the base is short.
func setCell(row []string, i int, value string) []string {
	if i < 0 {
		return row
	}
	for len(row) <= i {
		row = append(row, "")
	}
	row[i] = value
	return row
}

// =============================================================================
// COLUMN SELECTION
// =============================================================================

var keyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\(p\.ref\)`),
	regexp.MustCompile(`(?i)^réf`),
	regexp.MustCompile(`(?i)^ref`),
}

// DetectKeyColumn guesses the reference column: a Dolibarr "(p.ref)" header
// first, then a header starting with "Réf", then "Ref". Defaults to 0.
func DetectKeyColumn(headers []string) int {
	for _, p := range keyPatterns {
		for i, h := range headers {
			if p.MatchString(h) {
				return i
			}
		}
	}
	return 0
}

// HeaderMapping names a replaced column pair by header.
type HeaderMapping struct {
	Base   string `yaml:"base"`
	Source string `yaml:"source"`
}

// ResolveMappings turns header-named mappings into column indexes.
// Header names are matched case-insensitively after trimming.
func ResolveMappings(base, source []string, mappings []HeaderMapping) ([]ColumnMapping, error) {
	out := make([]ColumnMapping, 0, len(mappings))
	for _, m := range mappings {
		b := headerIndex(base, m.Base)
		if b < 0 {
			return nil, fmt.Errorf("base column %q not found", m.Base)
		}
		s := headerIndex(source, m.Source)
		if s < 0 {
			return nil, fmt.Errorf("source column %q not found", m.Source)
		}
		out = append(out, ColumnMapping{BaseCol: b, SourceCol: s})
	}
	return out, nil
}

func headerIndex(headers []string, name string) int {
	name = strings.TrimSpace(name)
	for i, h := range headers {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

// =============================================================================
// INPUT
// =============================================================================

// LoadTable reads a merge input. A ZIP is read entry by entry and its rows are
// concatenated under the headers of the first workbook that has any; other
// names are read as a single workbook.
func LoadTable(name string, data []byte) (types.StringTable, error) {
	if !archive.IsArchive(name) {
		return xlsxparser.ParseSheets(bytes.NewReader(data))
	}

	files, err := archive.Extract(data, ".xlsx")
	if err != nil {
		return types.StringTable{}, err
	}

	table := types.StringTable{Headers: []string{}, Rows: [][]string{}}
	for _, file := range files {
		part, err := xlsxparser.ParseSheets(bytes.NewReader(file.Data))
		if err != nil {
			return types.StringTable{}, fmt.Errorf("%s: %w", file.Name, err)
		}
		if len(part.Headers) == 0 {
			continue
		}
		if len(table.Headers) == 0 {
			table.Headers = part.Headers
		}
		table.Rows = append(table.Rows, part.Rows...)
	}
	return table, nil
}
