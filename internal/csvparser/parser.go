// =============================================================================
// Catalog to Dolibarr Converter - CSV Parser Module
// =============================================================================
//
// This module reads supplier price lists delivered as CSV instead of XLSX.
// The result is the same table shape the workbook parser produces, so the
// rest of the pipeline never knows which format the supplier sent.
//
// FEATURES:
//   - Comma, semicolon, tab and pipe delimiters, or detection from the
//     first non-blank line
//   - Any IANA encoding (UTF-8, ISO-8859-1, windows-1252, ...); a UTF-8 BOM
//     is always stripped
//   - Header row detection shared with the workbook parser
//   - Ragged rows and stray quotes are tolerated
//
// =============================================================================

package csvparser

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/ginjaninja78/catalog-to-dolibarr/internal/config"
	"github.com/ginjaninja78/catalog-to-dolibarr/internal/types"
	"github.com/ginjaninja78/catalog-to-dolibarr/internal/xlsxparser"
)

// candidateDelimiters are tried, in order of preference, when the
// delimiter is detected.
var candidateDelimiters = []rune{';', ',', '\t', '|'}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads a CSV file into a table.
//
// PARAMETERS:
//   - filePath: The path to the CSV file.
//   - settings: The CSV settings from the supplier profile.
//
// RETURNS:
//   - The table. SheetName is empty; blank header cells are "Colonne N".
//   - An error if the file cannot be read, decoded or has no header row.
func Parse(filePath string, settings config.CSVSettings) (*types.Table, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return ParseReader(file, settings)
}

// ParseReader is Parse for an already opened stream.
//
// PARSING PROCESS:
//   1. Decode the content to UTF-8 and strip the BOM
//   2. Resolve the delimiter
//   3. Read every record
//   4. Locate the header row and split headers from data rows
func ParseReader(r io.Reader, settings config.CSVSettings) (*types.Table, error) {
	enc, err := lookupEncoding(settings.Encoding)
	if err != nil {
		return nil, err
	}

	content, err := io.ReadAll(transform.NewReader(r, unicode.BOMOverride(enc.NewDecoder())))
	if err != nil {
		return nil, fmt.Errorf("failed to decode CSV: %w", err)
	}

	delimiter, err := resolveDelimiter(settings.Delimiter, content)
	if err != nil {
		return nil, err
	}

	csvReader := csv.NewReader(bytes.NewReader(content))
	configureReader(csvReader, delimiter)

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("CSV file is empty")
	}

	sheet := xlsxparser.Sheet{Rows: make([]types.Row, len(records))}
	for i, record := range records {
		sheet.Rows[i] = types.RowFromStrings(record)
	}

	headerRow := xlsxparser.AutoDetect
	if settings.HeaderRow > 0 {
		headerRow = settings.HeaderRow - 1
	}
	return xlsxparser.TableFromSheet(sheet, headerRow, 0)
}

// configureReader sets up the reader for loosely formatted supplier files.
func configureReader(reader *csv.Reader, delimiter rune) {
	reader.Comma = delimiter

	// Rows may have fewer or more fields than the header.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
}

// =============================================================================
// ENCODING AND DELIMITER
// =============================================================================

// lookupEncoding resolves an IANA or WHATWG encoding name. Empty is UTF-8.
func lookupEncoding(name string) (encoding.Encoding, error) {
	if name == "" {
		return unicode.UTF8, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", name, err)
	}
	return enc, nil
}

// resolveDelimiter maps a configured delimiter to a rune, detecting it from
// the content when the setting is empty or "auto".
func resolveDelimiter(setting string, content []byte) (rune, error) {
	switch strings.ToLower(setting) {
	case "", "auto":
		return DetectDelimiter(content), nil
	case "\\t", "tab":
		return '\t', nil
	case "pipe":
		return '|', nil
	case "semicolon":
		return ';', nil
	case "comma":
		return ',', nil
	}

	runes := []rune(setting)
	if len(runes) != 1 || runes[0] == '"' || runes[0] == '\r' || runes[0] == '\n' {
		return 0, fmt.Errorf("invalid CSV delimiter %q", setting)
	}
	return runes[0], nil
}

// DetectDelimiter picks the candidate occurring most often, outside quotes,
// on the first non-blank line. Ties go to the earlier candidate; a line
// with none of them yields a comma.
func DetectDelimiter(content []byte) rune {
	var line string
	for _, l := range strings.Split(string(content), "\n") {
		if strings.TrimSpace(l) != "" {
			line = l
			break
		}
	}

	counts := make(map[rune]int)
	inQuotes := false
	for _, r := range line {
		if r == '"' {
			inQuotes = !inQuotes
			continue
		}
		if !inQuotes {
			counts[r]++
		}
	}

	best, bestCount := ',', 0
	for _, d := range candidateDelimiters {
		if counts[d] > bestCount {
			best, bestCount = d, counts[d]
		}
	}
	return best
}
