// =============================================================================
// Catalog to Dolibarr Converter - Vendor Feed Parser
// =============================================================================
//
// This module reads the Valkenpower XML product feed. The feed is a flat list
// of <product> elements, each carrying one child element per field:
//
//   <products>
//     <product>
//       <model>CS50</model>
//       <barcode>8720028050130</barcode>
//       <titleFR>...</titleFR>
//       <descriptionEN><![CDATA[<p>...</p>]]></descriptionEN>
//       <ProdWeight>5.5</ProdWeight>
//       ...
//     </product>
//   </products>
//
// PARSING RULES:
//   - A field is the text of the first element with that name anywhere inside
//     the product, trimmed. Missing fields are "".
//   - Descriptions keep their HTML; CDATA is returned verbatim and entities
//     (including HTML ones such as &eacute;) are decoded.
//   - Weights and dimensions are parsed as leading decimals; anything
//     unreadable is 0.
//   - Malformed markup, or a document without any element, fails the whole
//     parse.
//
// =============================================================================

package feed

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/ginjaninja78/catalog-to-dolibarr/internal/normalize"
)

var (
	// ErrMalformed is returned when the feed is not well-formed XML.
	ErrMalformed = errors.New("XML parsing error")

	// ErrEmpty is returned by callers that require at least one product.
	ErrEmpty = errors.New("no product found in feed")
)

// productElement is the element wrapping one product.
const productElement = "product"

// =============================================================================
// PRODUCT
// =============================================================================

// Product is one feed record. Text fields are trimmed; numeric fields are in
// the feed's units (kg for weights, mm for dimensions).
type Product struct {
	Model   string
	Barcode string

	TitleNL string
	TitleEN string
	TitleDE string
	TitleFR string

	PriceExVAT        string
	PriceInVAT        string
	SpecialPriceExVAT string

	DescriptionNL string
	DescriptionEN string
	DescriptionDE string
	DescriptionFR string

	Stock     string
	MainImage string

	ProdWeight float64
	ProdLength float64
	ProdWidth  float64
	ProdHeight float64
	PackWeight float64
	PackLength float64
	PackWidth  float64
	PackHeight float64
}

// textFields binds feed element names to the Product text fields.
var textFields = map[string]func(*Product) *string{
	"model":             func(p *Product) *string { return &p.Model },
	"barcode":           func(p *Product) *string { return &p.Barcode },
	"titleNL":           func(p *Product) *string { return &p.TitleNL },
	"titleEN":           func(p *Product) *string { return &p.TitleEN },
	"titleDE":           func(p *Product) *string { return &p.TitleDE },
	"titleFR":           func(p *Product) *string { return &p.TitleFR },
	"priceEXVAT":        func(p *Product) *string { return &p.PriceExVAT },
	"priceINVAT":        func(p *Product) *string { return &p.PriceInVAT },
	"specialpriceEXVAT": func(p *Product) *string { return &p.SpecialPriceExVAT },
	"descriptionNL":     func(p *Product) *string { return &p.DescriptionNL },
	"descriptionEN":     func(p *Product) *string { return &p.DescriptionEN },
	"descriptionDE":     func(p *Product) *string { return &p.DescriptionDE },
	"descriptionFR":     func(p *Product) *string { return &p.DescriptionFR },
	"stock":             func(p *Product) *string { return &p.Stock },
	"mainimage":         func(p *Product) *string { return &p.MainImage },
}

// numericFields binds feed element names to the Product measurements.
var numericFields = map[string]func(*Product) *float64{
	"ProdWeight": func(p *Product) *float64 { return &p.ProdWeight },
	"ProdLength": func(p *Product) *float64 { return &p.ProdLength },
	"ProdWidth":  func(p *Product) *float64 { return &p.ProdWidth },
	"ProdHeight": func(p *Product) *float64 { return &p.ProdHeight },
	"PackWeight": func(p *Product) *float64 { return &p.PackWeight },
	"PackLength": func(p *Product) *float64 { return &p.PackLength },
	"PackWidth":  func(p *Product) *float64 { return &p.PackWidth },
	"PackHeight": func(p *Product) *float64 { return &p.PackHeight },
}

// =============================================================================
// PARSER
// =============================================================================

// Parse reads every <product> of a feed, in document order.
//
// PARAMETERS:
//   - r: The feed content. Non-UTF-8 feeds must declare their encoding.
//
// RETURNS:
//   - The products; an empty feed yields an empty slice.
//   - ErrMalformed (wrapped with the position) on invalid markup.
func Parse(r io.Reader) ([]Product, error) {
	decoder := xml.NewDecoder(r)
	decoder.Strict = true
	decoder.Entity = xml.HTMLEntity
	decoder.CharsetReader = charset.NewReaderLabel

	products := []Product{}
	var current *record
	sawRoot := false

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			sawRoot = true
			name := t.Name.Local
			if current == nil {
				if name == productElement {
					current = newRecord()
				}
				continue
			}
			current.open(name)

		case xml.EndElement:
			if current == nil {
				continue
			}
			if current.depth == 0 && t.Name.Local == productElement {
				products = append(products, current.product())
				current = nil
				continue
			}
			current.close()

		case xml.CharData:
			if current != nil {
				current.text(t)
			}
		}
	}

	if !sawRoot {
		return nil, fmt.Errorf("%w: no root element", ErrMalformed)
	}
	return products, nil
}

// ParseString is Parse for in-memory feeds.
func ParseString(content string) ([]Product, error) {
	return Parse(strings.NewReader(content))
}

// =============================================================================
// RECORD ASSEMBLY
// =============================================================================

// record collects the field texts of the product being read.
type record struct {
	// values holds the text of the first element seen for each name.
	values map[string]*strings.Builder

	// stack holds, per nesting level, the builder collecting text at that
	// level, or nil when the element repeats an earlier name.
	stack []*strings.Builder

	depth int
}

func newRecord() *record {
	return &record{values: make(map[string]*strings.Builder)}
}

func (r *record) open(name string) {
	var b *strings.Builder
	if _, seen := r.values[name]; !seen {
		b = &strings.Builder{}
		r.values[name] = b
	}
	r.stack = append(r.stack, b)
	r.depth++
}

func (r *record) close() {
	r.stack = r.stack[:len(r.stack)-1]
	r.depth--
}

// text appends character data to every element currently open, mirroring
// how an element's text includes its descendants.
func (r *record) text(data []byte) {
	for _, b := range r.stack {
		if b != nil {
			b.Write(data)
		}
	}
}

func (r *record) value(name string) string {
	if b, ok := r.values[name]; ok {
		return strings.TrimSpace(b.String())
	}
	return ""
}

func (r *record) product() Product {
	var p Product
	for name, field := range textFields {
		*field(&p) = r.value(name)
	}
	for name, field := range numericFields {
		if f, ok := normalize.ParseFloat(r.value(name)); ok {
			*field(&p) = f
		}
	}
	return p
}
