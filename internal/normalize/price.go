// =============================================================================
// Catalog to Dolibarr Converter - Value Normalizer (Prices)
// =============================================================================
//
// Supplier files write prices in every locale imaginable: "€ 1.234,56",
// "1 234,56 EUR", "1,234.56", "12.5". This file turns them into a canonical
// decimal string ("1234.56") or "" when nothing numeric can be recovered.
//
// DISAMBIGUATION RULES:
//   - a period before the first comma is a thousands separator: "1.234,56"
//   - a comma with no period before it is the decimal mark: "1234,56"
//   - otherwise the period is the decimal mark and commas are thousands
//     separators, dropped by the final non-numeric filter: "1,234.56"
//
// =============================================================================

package normalize

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/ginjaninja78/catalog-to-dolibarr/internal/types"
)

var (
	// currencyWord matches the literal EUR marker in any case.
	currencyWord = regexp.MustCompile(`(?i)EUR`)

	// nonNumeric matches everything a decimal string cannot contain.
	nonNumeric = regexp.MustCompile(`[^0-9.\-]`)

	// leadingFloat matches the longest decimal prefix of a string.
	leadingFloat = regexp.MustCompile(`^[+-]?(?:[0-9]+\.?[0-9]*|\.[0-9]+)(?:[eE][+-]?[0-9]+)?`)
)

// ParsePrice converts a raw cell into a canonical price string.
//
// PARAMETERS:
//   - cell: The raw source cell (string, number or empty).
//
// RETURNS:
//   - "" for empty or unparsable input.
//   - The shortest decimal representation of the parsed value otherwise.
func ParsePrice(cell types.Cell) string {
	switch cell.Kind {
	case types.CellEmpty:
		return ""
	case types.CellNumber:
		return types.FormatNumber(cell.Number)
	default:
		return ParsePriceString(cell.Text)
	}
}

// ParsePriceString is ParsePrice for plain strings.
func ParsePriceString(raw string) string {
	if raw == "" {
		return ""
	}

	cleaned := strings.ReplaceAll(raw, "€", "")
	cleaned = currencyWord.ReplaceAllString(cleaned, "")
	cleaned = strings.ReplaceAll(cleaned, "$", "")
	cleaned = stripSpaces(cleaned)

	if comma := strings.Index(cleaned, ","); comma >= 0 {
		// A missing period (-1) also sorts before the comma.
		if strings.Index(cleaned, ".") < comma {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		}
	}

	cleaned = nonNumeric.ReplaceAllString(cleaned, "")

	f, ok := ParseFloat(cleaned)
	if !ok {
		return ""
	}
	return types.FormatNumber(f)
}

// ParseFloat reads the longest leading decimal number of s, ignoring leading
// whitespace. Trailing garbage is ignored: "12.5kg" parses as 12.5.
//
// RETURNS:
//   - The parsed value and true, or 0 and false when s has no numeric prefix.
func ParseFloat(s string) (float64, bool) {
	s = strings.TrimLeftFunc(s, isSpace)
	if s == "" {
		return 0, false
	}

	match := leadingFloat.FindString(s)
	if match == "" {
		return 0, false
	}

	f, err := strconv.ParseFloat(match, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	return f, true
}

// stripSpaces removes every whitespace rune, including non-breaking spaces
// used as thousands separators in French exports.
func stripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if isSpace(r) {
			return -1
		}
		return r
	}, s)
}

// isSpace extends unicode.IsSpace with the byte order mark.
func isSpace(r rune) bool {
	return unicode.IsSpace(r) || r == '\uFEFF'
}
