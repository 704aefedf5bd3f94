package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	c := NewCollector()
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Warnings())

	c.Addf(KindMissingRef, 3, "", "Ligne %d: référence manquante", 3)
	c.Add(Warning{Kind: KindDuplicateRef, Row: 5, Ref: "A1", Message: `Ligne 5: référence "A1" dupliquée (occurrence #2)`})
	c.Addf(KindMissingRef, 9, "", "Ligne %d: référence manquante", 9)

	warnings := c.Warnings()
	require.Len(t, warnings, 3)
	assert.Equal(t, 3, warnings[0].Row)
	assert.Equal(t, "Ligne 3: référence manquante", warnings[0].Message)
	assert.Equal(t, KindDuplicateRef, warnings[1].Kind)
	assert.Equal(t, 9, warnings[2].Row)

	assert.Equal(t, map[Kind]int{KindMissingRef: 2, KindDuplicateRef: 1}, c.CountByKind())
}

func TestCollectorWarningsIsACopy(t *testing.T) {
	c := NewCollector()
	c.Addf(KindMissingLabel, 1, "A", "Ligne 1: libellé manquant")

	got := c.Warnings()
	got[0].Message = "changed"

	assert.Equal(t, "Ligne 1: libellé manquant", c.Warnings()[0].Message)
}

func TestDuplicateTracker(t *testing.T) {
	d := NewDuplicateTracker()

	n, owner := d.Observe("5411", "M1")
	assert.Equal(t, 1, n)
	assert.Equal(t, "M1", owner)

	n, owner = d.Observe("5411", "M2")
	assert.Equal(t, 2, n)
	assert.Equal(t, "M1", owner)

	n, _ = d.Observe("5411", "M3")
	assert.Equal(t, 3, n)

	n, owner = d.Observe("9999", "M4")
	assert.Equal(t, 1, n)
	assert.Equal(t, "M4", owner)
}

func TestFormatWarnings(t *testing.T) {
	assert.Equal(t, "", FormatWarnings(nil))

	out := FormatWarnings([]Warning{
		{Kind: KindMissingRef, Row: 1, Message: "Ligne 1: référence manquante"},
		{Kind: KindMissingLabel, Row: 1, Message: "Ligne 1: libellé manquant"},
	})

	assert.Contains(t, out, "[missing_ref] Ligne 1: référence manquante\n")
	assert.Contains(t, out, "[missing_label] Ligne 1: libellé manquant\n")
	assert.Contains(t, out, "missing_label: 1\nmissing_ref: 1\n")
}
