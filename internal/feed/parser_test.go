package feed

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeXML(products ...string) string {
	return `<?xml version="1.0" encoding="UTF-8"?><products>` + strings.Join(products, "") + `</products>`
}

// makeProduct renders a complete product; overrides replace or add fields.
func makeProduct(overrides map[string]string) string {
	fields := map[string]string{
		"model":             "TEST01",
		"barcode":           "8720028050130",
		"titleNL":           "Titel NL",
		"titleEN":           "Title EN",
		"titleDE":           "Titel DE",
		"titleFR":           "",
		"priceEXVAT":        "100.00",
		"priceINVAT":        "121.00",
		"specialpriceEXVAT": "90.00",
		"descriptionNL":     "Beschrijving NL",
		"descriptionEN":     "Description EN",
		"descriptionDE":     "Beschreibung DE",
		"descriptionFR":     "",
		"stock":             "50",
		"mainimage":         "https://example.com/img.jpg",
		"ProdWeight":        "5.5",
		"ProdLength":        "300",
		"ProdWidth":         "200",
		"ProdHeight":        "100",
		"PackWeight":        "7.2",
		"PackLength":        "400",
		"PackWidth":         "300",
		"PackHeight":        "200",
	}
	for k, v := range overrides {
		fields[k] = v
	}

	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("<product>")
	for _, k := range names {
		fmt.Fprintf(&b, "<%s>%s</%s>", k, fields[k], k)
	}
	b.WriteString("</product>")
	return b.String()
}

func TestParseCompleteProduct(t *testing.T) {
	products, err := ParseString(makeXML(makeProduct(nil)))
	require.NoError(t, err)
	require.Len(t, products, 1)

	assert.Equal(t, Product{
		Model:             "TEST01",
		Barcode:           "8720028050130",
		TitleNL:           "Titel NL",
		TitleEN:           "Title EN",
		TitleDE:           "Titel DE",
		PriceExVAT:        "100.00",
		PriceInVAT:        "121.00",
		SpecialPriceExVAT: "90.00",
		DescriptionNL:     "Beschrijving NL",
		DescriptionEN:     "Description EN",
		DescriptionDE:     "Beschreibung DE",
		Stock:             "50",
		MainImage:         "https://example.com/img.jpg",
		ProdWeight:        5.5,
		ProdLength:        300,
		ProdWidth:         200,
		ProdHeight:        100,
		PackWeight:        7.2,
		PackLength:        400,
		PackWidth:         300,
		PackHeight:        200,
	}, products[0])
}

func TestParseKeepsDocumentOrder(t *testing.T) {
	products, err := ParseString(makeXML(
		makeProduct(map[string]string{"model": "A01"}),
		makeProduct(map[string]string{"model": "B02"}),
		makeProduct(map[string]string{"model": "C03"}),
	))
	require.NoError(t, err)

	models := make([]string, len(products))
	for i, p := range products {
		models[i] = p.Model
	}
	assert.Equal(t, []string{"A01", "B02", "C03"}, models)
}

func TestParseEmptyFeed(t *testing.T) {
	products, err := ParseString(makeXML())
	require.NoError(t, err)
	assert.Empty(t, products)
	assert.NotNil(t, products)
}

func TestParseMinimalProduct(t *testing.T) {
	products, err := ParseString(makeXML("<product><model>MINIMAL</model></product>"))
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, Product{Model: "MINIMAL"}, products[0])
}

func TestParseTextHandling(t *testing.T) {
	tests := []struct {
		name  string
		field string
		raw   string
		get   func(Product) string
		want  string
	}{
		{"trims whitespace", "titleEN", "  Title with spaces  ", func(p Product) string { return p.TitleEN }, "Title with spaces"},
		{"decodes XML entities", "titleEN", "Pump 1/2&quot; &amp; 3/4&quot;", func(p Product) string { return p.TitleEN }, `Pump 1/2" & 3/4"`},
		{"decodes HTML entities", "titleFR", "Pompe &eacute;lectrique", func(p Product) string { return p.TitleFR }, "Pompe électrique"},
		{"keeps CDATA verbatim", "descriptionEN", "<![CDATA[<p>Bold <b>text</b></p>]]>", func(p Product) string { return p.DescriptionEN }, "<p>Bold <b>text</b></p>"},
		{"keeps escaped markup", "descriptionNL", "&lt;p&gt;Tekst&lt;/p&gt;", func(p Product) string { return p.DescriptionNL }, "<p>Tekst</p>"},
		{"barcode stays textual", "barcode", "0008720028050130", func(p Product) string { return p.Barcode }, "0008720028050130"},
		{"decimal prices stay textual", "priceEXVAT", "1234.56", func(p Product) string { return p.PriceExVAT }, "1234.56"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products, err := ParseString(makeXML(makeProduct(map[string]string{tt.field: tt.raw})))
			require.NoError(t, err)
			assert.Equal(t, tt.want, tt.get(products[0]))
		})
	}
}

func TestParseNumericFields(t *testing.T) {
	products, err := ParseString(makeXML(makeProduct(map[string]string{
		"ProdWeight": "not-a-number",
		"PackLength": "",
		"ProdHeight": "-3.5",
		"PackWidth":  "12.5mm",
	})))
	require.NoError(t, err)

	p := products[0]
	assert.Equal(t, 0.0, p.ProdWeight)
	assert.Equal(t, 0.0, p.PackLength)
	assert.Equal(t, -3.5, p.ProdHeight)
	assert.Equal(t, 12.5, p.PackWidth)
}

func TestParseFirstNestedElementWins(t *testing.T) {
	products, err := ParseString(makeXML(
		`<product><model>M1</model><variants><variant><model>M1-A</model></variant></variants></product>`,
	))
	require.NoError(t, err)
	assert.Equal(t, "M1", products[0].Model)

	products, err = ParseString(makeXML(`<product><titleEN>Big <b>pump</b></titleEN></product>`))
	require.NoError(t, err)
	assert.Equal(t, "Big pump", products[0].TitleEN)
}

func TestParseMalformed(t *testing.T) {
	for _, input := range []string{"<broken><unclosed>", "", "<a></b>", "just text"} {
		_, err := ParseString(input)
		assert.True(t, errors.Is(err, ErrMalformed), "input %q: %v", input, err)
	}
}

func TestParseLatin1Feed(t *testing.T) {
	// "Pompe à eau" in ISO-8859-1.
	content := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><products><product><titleFR>Pompe \xe0 eau</titleFR></product></products>"

	products, err := ParseString(content)
	require.NoError(t, err)
	assert.Equal(t, "Pompe à eau", products[0].TitleFR)
}
