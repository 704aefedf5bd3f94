package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ginjaninja78/catalog-to-dolibarr/internal/types"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name string
		cell types.Cell
		want string
	}{
		{name: "euro with thousands period", cell: types.StringCell("€ 1.234,56"), want: "1234.56"},
		{name: "space thousands", cell: types.StringCell("1 234,56"), want: "1234.56"},
		{name: "non-breaking space thousands", cell: types.StringCell("1 234,56 €"), want: "1234.56"},
		{name: "comma decimal", cell: types.StringCell("12,5"), want: "12.5"},
		{name: "comma thousands", cell: types.StringCell("1,234.56"), want: "1234.56"},
		{name: "EUR suffix any case", cell: types.StringCell("99,90 eur"), want: "99.9"},
		{name: "dollar", cell: types.StringCell("$19.99"), want: "19.99"},
		{name: "integer stays integer", cell: types.StringCell("100"), want: "100"},
		{name: "trailing zeros dropped", cell: types.StringCell("10.50"), want: "10.5"},
		{name: "negative", cell: types.StringCell("-5,25"), want: "-5.25"},
		{name: "number cell", cell: types.NumberCell(42.1), want: "42.1"},
		{name: "number cell integer", cell: types.NumberCell(7), want: "7"},
		{name: "empty string", cell: types.StringCell(""), want: ""},
		{name: "empty cell", cell: types.EmptyCell(), want: ""},
		{name: "garbage", cell: types.StringCell("n/a"), want: ""},
		{name: "double period keeps prefix", cell: types.StringCell("1.234.5"), want: "1.234"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParsePrice(tt.cell))
		})
	}
}

func TestParsePriceIsIdempotent(t *testing.T) {
	inputs := []string{"€ 1.234,56", "1 234,56", "", "12,5", "1,234.56", "abc", "0,10", "-3", "1.5e3"}

	for _, in := range inputs {
		once := ParsePriceString(in)
		assert.Equal(t, once, ParsePriceString(once), "input %q", in)
	}
}

func TestParseFloat(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"12.5", 12.5, true},
		{"  7", 7, true},
		{"12.5kg", 12.5, true},
		{".5", 0.5, true},
		{"1e2", 100, true},
		{"-0.25", -0.25, true},
		{"", 0, false},
		{"abc", 0, false},
		{"-", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseFloat(tt.in)
		assert.Equal(t, tt.wantOK, ok, "input %q", tt.in)
		assert.InDelta(t, tt.want, got, 1e-9, "input %q", tt.in)
	}
}

func TestHTMLToPlainText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "line break", in: "Line 1<br>Line 2", want: "Line 1 | Line 2"},
		{name: "self-closing breaks", in: "A<br/>B<br />C", want: "A | B | C"},
		{name: "inline tags stripped", in: "<b>Bold</b> <i>Italic</i>", want: "Bold Italic"},
		{name: "repeated breaks collapse", in: "A<br><br>B", want: "A | B"},
		{name: "three breaks collapse", in: "A<br><br><br>B", want: "A | B"},
		{name: "paragraphs", in: "<p>First</p><p>Second</p>", want: "First | Second"},
		{name: "paragraphs with whitespace", in: "<p>First</p>\n  <p>Second</p>", want: "First | Second"},
		{name: "list items are plain tags", in: "<ul><li>Item 1</li><li>Item 2</li></ul>", want: "Item 1Item 2"},
		{name: "leading and trailing breaks", in: "<br>Text<br>", want: "Text"},
		{name: "entities decoded", in: "Tom &amp; Jerry &quot;quoted&quot; &#39;x&#39;", want: `Tom & Jerry "quoted" 'x'`},
		{name: "encoded markup is stripped", in: "&lt;b&gt;Bold&lt;/b&gt; text", want: "Bold text"},
		{name: "whitespace collapsed", in: "  many   \n\t spaces  ", want: "many spaces"},
		{name: "uppercase tags", in: "A<BR>B", want: "A | B"},
		{name: "empty", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTMLToPlainText(tt.in))
		})
	}
}
