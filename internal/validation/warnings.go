// =============================================================================
// Catalog to Dolibarr Converter - Warning Collector
// =============================================================================
//
// Row-level data quality issues never stop a conversion. They are collected
// here and returned alongside the converted rows so the user can fix the
// source file, or import anyway.
//
// COLLECTION RULES:
//   - Append-only: warnings come out in the order they were added.
//   - Rows are numbered from 1, the way a user reads them.
//   - No deduplication: a reference appearing three times yields two
//     duplicate warnings (occurrences #2 and #3), one per repeat.
//   - A warning annotates its row; it never removes or alters it.
//
// Messages are written in French, the language of the Dolibarr users the
// output is meant for.
//
// =============================================================================

package validation

import (
	"fmt"
	"sort"
	"strings"
)

// =============================================================================
// WARNING TYPES
// =============================================================================

// Kind classifies a warning. The set is closed.
type Kind string

const (
	// KindMissingRef flags a row without a product reference.
	KindMissingRef Kind = "missing_ref"

	// KindMissingLabel flags a row without a label.
	KindMissingLabel Kind = "missing_label"

	// KindMissingPrice flags a product with neither price leg.
	KindMissingPrice Kind = "missing_price"

	// KindMissingTitle flags a feed product without a title in any fallback
	// language.
	KindMissingTitle Kind = "missing_title"

	// KindMissingBarcode flags a feed product without a barcode.
	KindMissingBarcode Kind = "missing_barcode"

	// KindDuplicateRef flags the second and later uses of a reference.
	KindDuplicateRef Kind = "duplicate_ref"

	// KindDuplicateBarcode flags a barcode already used by another product.
	KindDuplicateBarcode Kind = "duplicate_barcode"
)

// Warning is one row-level issue.
type Warning struct {
	// Kind is the issue category.
	Kind Kind `json:"type"`

	// Row is the 1-based row (or product) number.
	Row int `json:"row"`

	// Ref is the product reference involved, when known.
	Ref string `json:"ref,omitempty"`

	// Message is the user-facing description.
	Message string `json:"message"`
}

// String renders the warning on one line.
func (w Warning) String() string {
	return fmt.Sprintf("[%s] %s", w.Kind, w.Message)
}

// =============================================================================
// COLLECTOR
// =============================================================================

// Collector accumulates warnings for one conversion run.
// A Collector is not safe for concurrent use; each run owns its own.
type Collector struct {
	warnings []Warning
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Add appends a warning.
func (c *Collector) Add(w Warning) {
	c.warnings = append(c.warnings, w)
}

// Addf appends a warning with a formatted message.
func (c *Collector) Addf(kind Kind, row int, ref, format string, args ...any) {
	c.Add(Warning{Kind: kind, Row: row, Ref: ref, Message: fmt.Sprintf(format, args...)})
}

// Warnings returns a copy of the collected warnings, in insertion order.
func (c *Collector) Warnings() []Warning {
	out := make([]Warning, len(c.warnings))
	copy(out, c.warnings)
	return out
}

// Len returns the number of warnings collected so far.
func (c *Collector) Len() int {
	return len(c.warnings)
}

// CountByKind tallies the collected warnings per kind.
func (c *Collector) CountByKind() map[Kind]int {
	return CountByKind(c.warnings)
}

// =============================================================================
// DUPLICATE TRACKING
// =============================================================================

// DuplicateTracker counts how often each key has been seen and remembers who
// used it first.
type DuplicateTracker struct {
	counts map[string]int
	owners map[string]string
}

// NewDuplicateTracker returns an empty tracker.
func NewDuplicateTracker() *DuplicateTracker {
	return &DuplicateTracker{
		counts: make(map[string]int),
		owners: make(map[string]string),
	}
}

// Observe records one use of key by owner.
//
// RETURNS:
//   - The occurrence number of this use (1 for the first).
//   - The owner recorded at the first use.
func (d *DuplicateTracker) Observe(key, owner string) (int, string) {
	d.counts[key]++
	if _, ok := d.owners[key]; !ok {
		d.owners[key] = owner
	}
	return d.counts[key], d.owners[key]
}

// =============================================================================
// REPORTING
// =============================================================================

// CountByKind tallies warnings per kind.
func CountByKind(warnings []Warning) map[Kind]int {
	counts := make(map[Kind]int)
	for _, w := range warnings {
		counts[w.Kind]++
	}
	return counts
}

// FormatWarnings renders warnings one per line, followed by a per-kind tally.
// It returns "" when there is nothing to report.
func FormatWarnings(warnings []Warning) string {
	if len(warnings) == 0 {
		return ""
	}

	var b strings.Builder
	for _, w := range warnings {
		b.WriteString(w.String())
		b.WriteByte('\n')
	}

	counts := CountByKind(warnings)
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)

	b.WriteString("\n")
	for _, k := range kinds {
		fmt.Fprintf(&b, "%s: %d\n", k, counts[Kind(k)])
	}
	return b.String()
}
