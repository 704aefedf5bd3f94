// =============================================================================
// Catalog to Dolibarr Converter - Alias Matcher
// =============================================================================
//
// The matcher links arbitrary source headers to catalog fields. Comparison
// works on normalized strings (lowercase, no diacritics, alphanumerics only).
//
// MATCHING ALGORITHM (greedy, order-sensitive):
//   For each source header, in source order:
//     for each catalog field not yet claimed in this call, in catalog order:
//       for each alias: match when the normalized header contains the
//       normalized alias (equality included)
//     the first matching field is claimed; unmatched headers stay unmapped
//
// INVARIANT:
//   No target ID is ever held by two mappings at once.
//
// =============================================================================

package mapping

import (
	"fmt"
	"strings"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// =============================================================================
// COLUMN MAPPING
// =============================================================================

// ColumnMapping links one source column to a target field.
type ColumnMapping struct {
	// SourceIndex is the 0-based position of the column in the source table.
	SourceIndex int

	// SourceHeader is the header text as found in the source.
	SourceHeader string

	// TargetID is the catalog field ID, or "" when the column is unmapped.
	TargetID string
}

// IsMapped reports whether the column feeds a target field.
func (m ColumnMapping) IsMapped() bool {
	return m.TargetID != ""
}

// MappedColumn pairs a mapping with the catalog field it resolves to.
type MappedColumn struct {
	Mapping ColumnMapping
	Field   TargetField
}

// Override reassigns a source header to a target by hand.
// An empty Target clears the mapping.
type Override struct {
	Header string
	Target string
}

// =============================================================================
// NORMALIZATION
// =============================================================================

// combiningMarks covers the Combining Diacritical Marks block left behind by
// NFD decomposition.
var combiningMarks = runes.Predicate(func(r rune) bool {
	return r >= 0x0300 && r <= 0x036F
})

// Normalize lowercases s, strips diacritics and drops every character
// outside [a-z0-9].
func Normalize(s string) string {
	// A fresh chain per call keeps Normalize safe for concurrent use.
	t := transform.Chain(norm.NFD, runes.Remove(combiningMarks))
	decomposed, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		decomposed = strings.ToLower(s)
	}

	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// =============================================================================
// AUTO-DETECTION
// =============================================================================

// AutoDetect proposes a mapping for every source header.
//
// PARAMETERS:
//   - headers: The source headers, in source order.
//
// RETURNS:
//   - One ColumnMapping per header, in the same order. Each target is
//     claimed by at most one header.
func (c Catalog) AutoDetect(headers []string) []ColumnMapping {
	claimed := make(map[string]bool, len(c))
	normalizedAliases := c.normalizedAliases()
	mappings := make([]ColumnMapping, 0, len(headers))

	for i, header := range headers {
		normalized := Normalize(header)
		target := ""

		for fi, field := range c {
			if claimed[field.ID] {
				continue
			}
			if matchesAny(normalized, normalizedAliases[fi]) {
				target = field.ID
				break
			}
		}

		if target != "" {
			claimed[target] = true
		}

		mappings = append(mappings, ColumnMapping{
			SourceIndex:  i,
			SourceHeader: header,
			TargetID:     target,
		})
	}

	return mappings
}

// normalizedAliases precomputes the normalized aliases of each field.
func (c Catalog) normalizedAliases() [][]string {
	out := make([][]string, len(c))
	for i, field := range c {
		for _, alias := range field.Aliases {
			if n := Normalize(alias); n != "" {
				out[i] = append(out[i], n)
			}
		}
	}
	return out
}

// matchesAny reports whether header equals or contains one of the aliases.
func matchesAny(header string, aliases []string) bool {
	for _, alias := range aliases {
		if header == alias || strings.Contains(header, alias) {
			return true
		}
	}
	return false
}

// =============================================================================
// MAPPING UPDATES
// =============================================================================

// UpdateMapping assigns targetID to the mapping at sourceIndex and returns a
// new slice. Any other mapping holding targetID is cleared in the same pass.
// An empty targetID unmaps the column. The input slice is not modified.
func UpdateMapping(mappings []ColumnMapping, sourceIndex int, targetID string) []ColumnMapping {
	out := make([]ColumnMapping, len(mappings))
	for i, m := range mappings {
		switch {
		case m.SourceIndex == sourceIndex:
			m.TargetID = targetID
		case targetID != "" && m.TargetID == targetID:
			m.TargetID = ""
		}
		out[i] = m
	}
	return out
}

// ApplyOverrides applies manual header-to-target assignments in order.
// Headers are matched case-insensitively after trimming.
//
// RETURNS:
//   - The updated mappings.
//   - An error naming the first unknown header or target.
func (c Catalog) ApplyOverrides(mappings []ColumnMapping, overrides []Override) ([]ColumnMapping, error) {
	for _, o := range overrides {
		target := strings.TrimSpace(o.Target)
		if target != "" && !c.Has(target) {
			return nil, fmt.Errorf("unknown target field %q", target)
		}

		index := -1
		for _, m := range mappings {
			if strings.EqualFold(strings.TrimSpace(m.SourceHeader), strings.TrimSpace(o.Header)) {
				index = m.SourceIndex
				break
			}
		}
		if index < 0 {
			return nil, fmt.Errorf("unknown source column %q", o.Header)
		}

		mappings = UpdateMapping(mappings, index, target)
	}
	return mappings, nil
}

// =============================================================================
// QUERIES
// =============================================================================

// MissingRequired lists required fields that are unmapped and have no default.
func (c Catalog) MissingRequired(mappings []ColumnMapping) []TargetField {
	mapped := mappedIDs(mappings)
	var missing []TargetField
	for _, f := range c {
		if f.Required && !mapped[f.ID] && !f.HasDefault() {
			missing = append(missing, f)
		}
	}
	return missing
}

// AvailableTargets lists catalog fields no mapping points at yet.
func (c Catalog) AvailableTargets(mappings []ColumnMapping) []TargetField {
	mapped := mappedIDs(mappings)
	var available []TargetField
	for _, f := range c {
		if !mapped[f.ID] {
			available = append(available, f)
		}
	}
	return available
}

// Mapped returns the mapped columns with their fields, in source order.
// Mappings pointing at IDs outside the catalog are skipped.
func (c Catalog) Mapped(mappings []ColumnMapping) []MappedColumn {
	var out []MappedColumn
	for _, m := range mappings {
		if !m.IsMapped() {
			continue
		}
		if f, ok := c.Field(m.TargetID); ok {
			out = append(out, MappedColumn{Mapping: m, Field: f})
		}
	}
	return out
}

// UnmappedSources returns the source columns without a target.
func UnmappedSources(mappings []ColumnMapping) []ColumnMapping {
	var out []ColumnMapping
	for _, m := range mappings {
		if !m.IsMapped() {
			out = append(out, m)
		}
	}
	return out
}

func mappedIDs(mappings []ColumnMapping) map[string]bool {
	ids := make(map[string]bool, len(mappings))
	for _, m := range mappings {
		if m.IsMapped() {
			ids[m.TargetID] = true
		}
	}
	return ids
}
