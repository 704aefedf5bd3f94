package mapping

import (
	"regexp"
	"strings"

	"github.com/ginjaninja78/catalog-to-dolibarr/internal/types"
)

// HeaderPatterns is an ordered set of regular expressions recognizing one
// kind of column in a header row.
type HeaderPatterns []*regexp.Regexp

// RefHeaders recognizes a product reference column, in Dolibarr export form
// ("Réf.* (p.ref)") as well as plain "Ref" or "Reference".
var RefHeaders = HeaderPatterns{
	regexp.MustCompile(`(?i)^réf`),
	regexp.MustCompile(`(?i)^ref`),
	regexp.MustCompile(`(?i)\(p\.ref\)`),
	regexp.MustCompile(`(?i)^référence`),
	regexp.MustCompile(`(?i)^reference`),
}

// Matches reports whether header, once trimmed, satisfies any pattern.
func (p HeaderPatterns) Matches(header string) bool {
	header = strings.TrimSpace(header)
	for _, re := range p {
		if re.MatchString(header) {
			return true
		}
	}
	return false
}

// FindColumn returns the index of the first header cell matching p, or -1.
func (p HeaderPatterns) FindColumn(header types.Row) int {
	for i, cell := range header {
		if p.Matches(cell.String()) {
			return i
		}
	}
	return -1
}
