package refops

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/catalog-to-dolibarr/internal/archive"
)

func mustRegex(t *testing.T, pattern, flags, replace string) RegexReplace {
	t.Helper()
	op, err := NewRegexReplace(pattern, flags, replace)
	require.NoError(t, err)
	return op
}

func TestApply(t *testing.T) {
	tests := []struct {
		name string
		ref  string
		op   Operation
		want string
	}{
		{"add prefix", "ABC123", AddPrefix{Prefix: "PFX-"}, "PFX-ABC123"},
		{"add prefix to empty", "", AddPrefix{Prefix: "PFX-"}, "PFX-"},
		{"add prefix twice", "PFX-ABC", AddPrefix{Prefix: "PFX-"}, "PFX-PFX-ABC"},
		{"add suffix", "ABC123", AddSuffix{Suffix: "-V2"}, "ABC123-V2"},
		{"add suffix to empty", "", AddSuffix{Suffix: "-V2"}, "-V2"},
		{"remove prefix", "OLD-ABC123", RemovePrefix{Prefix: "OLD-"}, "ABC123"},
		{"remove prefix mismatch", "NEW-ABC123", RemovePrefix{Prefix: "OLD-"}, "NEW-ABC123"},
		{"remove prefix is case-sensitive", "old-ABC123", RemovePrefix{Prefix: "OLD-"}, "old-ABC123"},
		{"remove prefix only at start", "XOLD-ABC", RemovePrefix{Prefix: "OLD-"}, "XOLD-ABC"},
		{"remove suffix", "ABC123-OLD", RemoveSuffix{Suffix: "-OLD"}, "ABC123"},
		{"remove suffix mismatch", "ABC123-NEW", RemoveSuffix{Suffix: "-OLD"}, "ABC123-NEW"},
		{"remove suffix only at end", "ABC-OLDX", RemoveSuffix{Suffix: "-OLD"}, "ABC-OLDX"},
		{"remove empty suffix", "ABC", RemoveSuffix{Suffix: ""}, "ABC"},
		{"find replace all", "A-B-C", FindReplace{Search: "-", Replace: "_"}, "A_B_C"},
		{"find replace miss", "ABC123", FindReplace{Search: "XYZ", Replace: "!"}, "ABC123"},
		{"find replace delete", "PROD-V1", FindReplace{Search: "-V1"}, "PROD"},
		{"find replace empty search", "AB", FindReplace{Search: "", Replace: "-"}, "-A-B-"},
		{"regex", "ABC123DEF456", mustRegex(t, `\d+`, "", "NUM"), "ABCNUMDEFNUM"},
		{"regex groups", "PREFIX-SUFFIX", mustRegex(t, `^(\w+)-(\w+)$`, "", "$2-$1"), "SUFFIX-PREFIX"},
		{"regex case-insensitive", "ABC123", mustRegex(t, "abc", "i", "XYZ"), "XYZ123"},
		{"regex no match", "ABC123", mustRegex(t, "^ZZZ", "", "AAA"), "ABC123"},
		{"regex whole match", "A1", mustRegex(t, `\d`, "", "[$&]"), "A[1]"},
		{"regex literal dollar", "A1", mustRegex(t, `\d`, "", "$$"), "A$"},
		{"regex group followed by text", "AB-12", mustRegex(t, `^(\w+)-`, "", "$1x"), "ABx12"},
		{"regex missing group stays literal", "AB", mustRegex(t, `B`, "", "$3"), "A$3"},
		{"regex named group", "AB-12", mustRegex(t, `(?P<num>\d+)`, "", "#$<num>"), "AB-#12"},
		{"regex without precompile", "a-b", RegexReplace{Pattern: "-", Replace: "+"}, "a+b"},
		{"regex invalid at apply time", "a-b", RegexReplace{Pattern: "("}, "a-b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Apply(tt.ref, tt.op))
		})
	}
}

func TestBuildOperation(t *testing.T) {
	assert.Equal(t, AddPrefix{Prefix: "X"}, BuildOperation(KindAddPrefix, "X", "", ""))
	assert.Equal(t, FindReplace{Search: "-", Replace: ""}, BuildOperation(KindFindReplace, "-", "", ""))

	assert.Nil(t, BuildOperation(KindAddPrefix, "", "", ""))
	assert.Nil(t, BuildOperation(KindRemoveSuffix, "", "", ""))
	assert.Nil(t, BuildOperation(KindRegexReplace, "(", "", ""))
	assert.Nil(t, BuildOperation(KindRegexReplace, "a", "", "q"))
	assert.Nil(t, BuildOperation(KindRegexReplace, "a", "", "g"))
	assert.Nil(t, BuildOperation(KindRegexReplace, "a", "", "ii"))
	assert.Nil(t, BuildOperation(OperationKind("reverse"), "a", "", ""))

	op := BuildOperation(KindRegexReplace, "abc", "X", "im")
	require.NotNil(t, op)
	assert.Equal(t, KindRegexReplace, op.Kind())
	assert.Equal(t, "X1", Apply("ABC1", op))
}

func TestParseKind(t *testing.T) {
	kind, err := ParseKind("Regex-Replace")
	require.NoError(t, err)
	assert.Equal(t, KindRegexReplace, kind)

	_, err = ParseKind("upper")
	assert.Error(t, err)
}

func TestApplyToRefs(t *testing.T) {
	got := ApplyToRefs([]string{"A", "B", "C"}, AddPrefix{Prefix: "X-"})
	assert.Equal(t, []Modification{
		{Original: "A", Modified: "X-A", Changed: true},
		{Original: "B", Modified: "X-B", Changed: true},
		{Original: "C", Modified: "X-C", Changed: true},
	}, got)

	got = ApplyToRefs([]string{"PFX-A", "B", "PFX-C"}, RemovePrefix{Prefix: "PFX-"})
	assert.True(t, got[0].Changed)
	assert.False(t, got[1].Changed)
	assert.True(t, got[2].Changed)
	assert.Equal(t, 2, CountChanged(got))

	assert.Empty(t, ApplyToRefs(nil, AddPrefix{Prefix: "X"}))
}

func TestParseRefsFromText(t *testing.T) {
	assert.Equal(t, []string{"A", "B", "C"}, ParseRefsFromText("A\nB\nC"))
	assert.Equal(t, []string{"A", "B", "C"}, ParseRefsFromText("A\r\nB\r\nC"))
	assert.Equal(t, []string{"A", "B"}, ParseRefsFromText("  A  \n  B  "))
	assert.Equal(t, []string{"A", "B"}, ParseRefsFromText("A\n\n\nB\n\n"))
	assert.Empty(t, ParseRefsFromText(""))
	assert.Empty(t, ParseRefsFromText("   \n  \n  "))
	assert.Equal(t, []string{"ABC123"}, ParseRefsFromText("ABC123"))
}

// workbook builds an XLSX buffer; each sheet is a list of string rows.
func workbook(t *testing.T, sheets ...[][]string) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, rows := range sheets {
		name := "Sheet1"
		if i > 0 {
			name = "Sheet" + string(rune('1'+i))
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for r, row := range rows {
			for c, v := range row {
				if v == "" {
					continue
				}
				axis, err := excelize.CoordinatesToCellName(c+1, r+1)
				require.NoError(t, err)
				require.NoError(t, f.SetCellStr(name, axis, v))
			}
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestParseRefsFromWorkbook(t *testing.T) {
	tests := []struct {
		name   string
		sheets [][][]string
		want   []string
	}{
		{
			name:   "Dolibarr header",
			sheets: [][][]string{{{"Réf.* (p.ref)", "Label"}, {"ABC", "Product A"}, {"DEF", "Product B"}}},
			want:   []string{"ABC", "DEF"},
		},
		{
			name:   "lowercase ref",
			sheets: [][][]string{{{"ref", "other"}, {"X1", "a"}, {"X2", "b"}}},
			want:   []string{"X1", "X2"},
		},
		{
			name:   "Référence",
			sheets: [][][]string{{{"Référence", "Nom"}, {"R1", "Item"}}},
			want:   []string{"R1"},
		},
		{
			name:   "no ref column",
			sheets: [][][]string{{{"Name", "Price"}, {"Product", "10"}}},
			want:   nil,
		},
		{
			name:   "empty refs skipped",
			sheets: [][][]string{{{"Ref", "Label"}, {"A", "x"}, {"", "y"}, {"B", "z"}}},
			want:   []string{"A", "B"},
		},
		{
			name:   "several sheets",
			sheets: [][][]string{{{"Ref"}, {"A1"}, {"A2"}}, {{"Ref"}, {"B1"}}},
			want:   []string{"A1", "A2", "B1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRefsFromWorkbook(bytes.NewReader(workbook(t, tt.sheets...)))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRefsFromArchive(t *testing.T) {
	zipped, err := archive.Package(context.Background(), []archive.File{
		{Name: "produits_1.xlsx", Data: workbook(t, [][]string{{"Réf.* (p.ref)", "Label"}, {"Z1", "a"}})},
		{Name: "produits_2.xlsx", Data: workbook(t, [][]string{{"Réf.* (p.ref)", "Label"}, {"Z2", "b"}})},
		{Name: "readme.txt", Data: []byte("hello")},
	})
	require.NoError(t, err)

	refs, err := ParseRefsFromArchive(zipped)
	require.NoError(t, err)
	assert.Equal(t, []string{"Z1", "Z2"}, refs)

	empty, err := archive.Package(context.Background(), []archive.File{{Name: "notes.txt", Data: []byte("x")}})
	require.NoError(t, err)
	refs, err = ParseRefsFromArchive(empty)
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestGenerateWorkbook(t *testing.T) {
	data, err := GenerateWorkbook([]Modification{
		{Original: "A", Modified: "X-A", Changed: true},
		{Original: "B", Modified: "B"},
	})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Ref", "Nouvelle Ref"}, {"A", "X-A"}, {"B", "B"}}, rows)
}
