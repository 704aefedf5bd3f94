// =============================================================================
// Catalog to Dolibarr Converter - Output Chunker
// =============================================================================
//
// Dolibarr's import wizard struggles with large spreadsheets, so big outputs
// are split into pages of at most MaxRowsPerFile rows, each serialized as its
// own workbook with the same headers, and all pages are packaged into one ZIP.
//
// FLOW:
//   1. Paginate: pure, synchronous split of the row set into named pages.
//   2. Serialize: each page becomes XLSX bytes (Serializer).
//   3. Package: pages are compressed into a single archive (Packager).
//
// Step 3 is the only step that may block for long; it is injected so callers
// and tests can swap it out.
//
// =============================================================================

package chunker

import (
	"context"
	"fmt"
	"regexp"

	"github.com/ginjaninja78/catalog-to-dolibarr/internal/archive"
	"github.com/ginjaninja78/catalog-to-dolibarr/internal/types"
	"github.com/ginjaninja78/catalog-to-dolibarr/internal/xlsxwriter"
)

// MaxRowsPerFile is the largest number of data rows written to one workbook.
const MaxRowsPerFile = 800

// dolibarrHeader matches the "(p.field)" suffix of Dolibarr import headers.
var dolibarrHeader = regexp.MustCompile(`(?i)\(p\.[a-z_]+\)`)

// IsDolibarrFormat reports whether any header looks like a Dolibarr import
// column.
func IsDolibarrFormat(headers []string) bool {
	for _, h := range headers {
		if dolibarrHeader.MatchString(h) {
			return true
		}
	}
	return false
}

// =============================================================================
// PAGINATION
// =============================================================================

// Page is one slice of the output rows.
type Page struct {
	// FileName is "<prefix>_<n>.xlsx", numbered from 1.
	FileName string

	// Table holds the shared headers and this page's rows.
	Table types.StringTable
}

// Paginate splits rows into consecutive pages of threshold rows. The last page
// holds the remainder; an empty page is never produced. No rows yield no pages.
func Paginate(headers []string, rows [][]string, threshold int, prefix string) []Page {
	if threshold <= 0 {
		threshold = MaxRowsPerFile
	}

	pages := make([]Page, 0, (len(rows)+threshold-1)/threshold)
	for start := 0; start < len(rows); start += threshold {
		end := min(start+threshold, len(rows))
		pages = append(pages, Page{
			FileName: fmt.Sprintf("%s_%d.xlsx", prefix, len(pages)+1),
			Table:    types.StringTable{Headers: headers, Rows: rows[start:end]},
		})
	}
	return pages
}

// =============================================================================
// POLICIES
// =============================================================================

// Policy decides when and how an output is split.
type Policy struct {
	// Threshold is the maximum rows per page.
	Threshold int

	// SplitWhen gates splitting on the output headers. nil means always.
	SplitWhen func(headers []string) bool

	// PagePrefix names the page files inside the archive.
	PagePrefix string

	// SheetName is the worksheet name of every produced workbook.
	SheetName string
}

// ProductsPolicy applies to Dolibarr product imports: always split beyond
// the threshold.
func ProductsPolicy() Policy {
	return Policy{Threshold: MaxRowsPerFile, PagePrefix: "produits", SheetName: "Produits"}
}

// FusionPolicy splits merged tables only when they are Dolibarr imports.
func FusionPolicy() Policy {
	return Policy{
		Threshold:  MaxRowsPerFile,
		SplitWhen:  IsDolibarrFormat,
		PagePrefix: "fusion",
		SheetName:  "Fusion",
	}
}

// ModificationsPolicy never splits; rename and price files stay whole.
func ModificationsPolicy() Policy {
	return Policy{
		Threshold: MaxRowsPerFile,
		SplitWhen: func([]string) bool { return false },
		SheetName: "Modifications",
	}
}

func (p Policy) shouldSplit(headers []string, rows int) bool {
	threshold := p.Threshold
	if threshold <= 0 {
		threshold = MaxRowsPerFile
	}
	if rows <= threshold {
		return false
	}
	return p.SplitWhen == nil || p.SplitWhen(headers)
}

// =============================================================================
// COLLABORATORS
// =============================================================================

// Serializer turns one table into workbook bytes.
type Serializer interface {
	Serialize(sheetName string, table types.StringTable) ([]byte, error)
}

// SerializerFunc adapts a function to Serializer.
type SerializerFunc func(sheetName string, table types.StringTable) ([]byte, error)

// Serialize calls f.
func (f SerializerFunc) Serialize(sheetName string, table types.StringTable) ([]byte, error) {
	return f(sheetName, table)
}

// Packager compresses named files into one archive.
type Packager interface {
	Package(ctx context.Context, files []archive.File) ([]byte, error)
}

// PackagerFunc adapts a function to Packager.
type PackagerFunc func(ctx context.Context, files []archive.File) ([]byte, error)

// Package calls f.
func (f PackagerFunc) Package(ctx context.Context, files []archive.File) ([]byte, error) {
	return f(ctx, files)
}

// XLSXSerializer writes tables with the string-preserving XLSX writer.
var XLSXSerializer Serializer = SerializerFunc(xlsxwriter.Bytes)

// ZipPackager packages pages into a deflated ZIP.
var ZipPackager Packager = PackagerFunc(archive.Package)

// =============================================================================
// BUILD
// =============================================================================

// Output is the serialized result of a conversion.
type Output struct {
	// Data is the XLSX bytes, or the ZIP bytes when IsArchive is set.
	Data []byte

	// IsArchive tells whether Data is a ZIP of several workbooks.
	IsArchive bool

	// FileCount is the number of workbooks produced.
	FileCount int
}

// Build serializes headers and rows following policy.
//
// PARAMETERS:
//   - ctx: Only consulted by the packager.
//   - headers, rows: The complete output table.
//   - policy: Split threshold, trigger and naming.
//   - serializer, packager: nil selects XLSXSerializer and ZipPackager.
//
// RETURNS:
//   - A single workbook when rows fit in one page or the policy does not
//     trigger, otherwise a ZIP holding ceil(rows/threshold) workbooks.
func Build(ctx context.Context, headers []string, rows [][]string, policy Policy,
	serializer Serializer, packager Packager) (*Output, error) {

	if serializer == nil {
		serializer = XLSXSerializer
	}
	if packager == nil {
		packager = ZipPackager
	}

	if !policy.shouldSplit(headers, len(rows)) {
		data, err := serializer.Serialize(policy.SheetName, types.StringTable{Headers: headers, Rows: rows})
		if err != nil {
			return nil, fmt.Errorf("failed to serialize table: %w", err)
		}
		return &Output{Data: data, FileCount: 1}, nil
	}

	pages := Paginate(headers, rows, policy.Threshold, policy.PagePrefix)
	files := make([]archive.File, 0, len(pages))
	for _, page := range pages {
		data, err := serializer.Serialize(policy.SheetName, page.Table)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize %s: %w", page.FileName, err)
		}
		files = append(files, archive.File{Name: page.FileName, Data: data})
	}

	data, err := packager.Package(ctx, files)
	if err != nil {
		return nil, fmt.Errorf("failed to package %d files: %w", len(files), err)
	}
	return &Output{Data: data, IsArchive: true, FileCount: len(files)}, nil
}
