// =============================================================================
// Catalog to Dolibarr Converter - Conversions
// =============================================================================
//
// The five conversions, working on in-memory input. Each one transforms its
// input, hands the rows to the output chunker and returns the serialized
// result together with the rows it wrote, so callers can preview or report
// on them.
//
//   valkenpower : vendor XML feed        -> Dolibarr product import
//   excel       : supplier spreadsheet   -> Dolibarr product import
//   refs        : list of references     -> reference modification sheet
//   prices      : list of prices         -> price modification sheet
//   fusion      : export + translations  -> merged Dolibarr export
//
// =============================================================================

package converter

import (
	"context"
	"errors"

	"github.com/ginjaninja78/catalog-to-dolibarr/internal/chunker"
	"github.com/ginjaninja78/catalog-to-dolibarr/internal/feed"
	"github.com/ginjaninja78/catalog-to-dolibarr/internal/mapping"
	"github.com/ginjaninja78/catalog-to-dolibarr/internal/merge"
	"github.com/ginjaninja78/catalog-to-dolibarr/internal/pricing"
	"github.com/ginjaninja78/catalog-to-dolibarr/internal/refops"
	"github.com/ginjaninja78/catalog-to-dolibarr/internal/types"
	"github.com/ginjaninja78/catalog-to-dolibarr/internal/validation"
)

var (
	// ErrNoRows is returned when the input holds nothing to convert.
	ErrNoRows = errors.New("no rows to convert")

	// ErrNoOperation is returned by the modification conversions when no
	// operation is configured.
	ErrNoOperation = errors.New("no operation configured")
)

// ConversionResult is the outcome of one conversion.
type ConversionResult struct {
	// Data is one workbook, or a ZIP of workbooks when IsArchive is set.
	Data      []byte
	IsArchive bool
	FileCount int

	// Headers and Rows are the full output table, before pagination.
	Headers []string
	Rows    [][]string

	// TotalRows is the number of input records (products, rows, refs).
	TotalRows int

	Warnings []validation.Warning

	// Changed counts the modified rows of the refs and prices conversions.
	Changed int

	// Merge holds the match statistics of a fusion.
	Merge *merge.Result
}

// Extension returns the file extension matching the output data.
func (r *ConversionResult) Extension() string {
	if r.IsArchive {
		return ".zip"
	}
	return ".xlsx"
}

func build(ctx context.Context, headers []string, rows [][]string, policy chunker.Policy) (*ConversionResult, error) {
	out, err := chunker.Build(ctx, headers, rows, policy, nil, nil)
	if err != nil {
		return nil, err
	}
	return &ConversionResult{
		Data:      out.Data,
		IsArchive: out.IsArchive,
		FileCount: out.FileCount,
		Headers:   headers,
		Rows:      rows,
		TotalRows: len(rows),
	}, nil
}

// =============================================================================
// PRODUCT IMPORTS
// =============================================================================

// ConvertFeed converts feed products into a Dolibarr product import.
//
// RETURNS:
//   - feed.ErrEmpty when there is no product.
func ConvertFeed(ctx context.Context, products []feed.Product, opts FeedOptions) (*ConversionResult, error) {
	if len(products) == 0 {
		return nil, feed.ErrEmpty
	}

	t := TransformFeed(products, opts)
	result, err := build(ctx, t.Headers, t.Rows, chunker.ProductsPolicy())
	if err != nil {
		return nil, err
	}
	result.TotalRows = len(products)
	result.Warnings = t.Warnings
	return result, nil
}

// ConvertTable converts a parsed supplier table into a Dolibarr product
// import, using mappings to route source columns.
//
// RETURNS:
//   - ErrNoRows when the table has no data row.
func ConvertTable(ctx context.Context, table *types.Table, mappings []mapping.ColumnMapping, opts ConversionOptions) (*ConversionResult, error) {
	if table.TotalRows() == 0 {
		return nil, ErrNoRows
	}

	t := Transform(mapping.DolibarrCatalog(), table, mappings, opts)
	result, err := build(ctx, t.Headers, t.Rows, chunker.ProductsPolicy())
	if err != nil {
		return nil, err
	}
	result.TotalRows = table.TotalRows()
	result.Warnings = t.Warnings
	return result, nil
}

// =============================================================================
// MODIFICATION SHEETS
// =============================================================================

// ModifyRefs applies op to every reference and builds the old/new sheet.
func ModifyRefs(ctx context.Context, refs []string, op refops.Operation) (*ConversionResult, error) {
	if op == nil {
		return nil, ErrNoOperation
	}
	if len(refs) == 0 {
		return nil, ErrNoRows
	}

	mods := refops.ApplyToRefs(refs, op)
	table := refops.Table(mods)
	result, err := build(ctx, table.Headers, table.Rows, chunker.ModificationsPolicy())
	if err != nil {
		return nil, err
	}
	result.Changed = refops.CountChanged(mods)
	return result, nil
}

// ModifyPrices applies op to the target leg of every row, reconciles the
// other leg and builds the price update sheet.
func ModifyPrices(ctx context.Context, rows []pricing.PriceRow, op pricing.Operation, target pricing.Target) (*ConversionResult, error) {
	if op == nil {
		return nil, ErrNoOperation
	}
	if len(rows) == 0 {
		return nil, ErrNoRows
	}

	mods := pricing.ApplyToPrices(rows, op, target)
	table := pricing.Table(mods)
	result, err := build(ctx, table.Headers, table.Rows, chunker.ModificationsPolicy())
	if err != nil {
		return nil, err
	}
	result.Changed = pricing.CountChanged(mods)
	return result, nil
}

// =============================================================================
// FUSION
// =============================================================================

// Fuse merges translated columns from source into base and builds the
// merged export. Dolibarr-shaped results are split like product imports.
func Fuse(ctx context.Context, base, source types.StringTable, opts merge.Options) (*ConversionResult, error) {
	if base.Len() == 0 {
		return nil, ErrNoRows
	}

	merged := merge.Merge(base, source, opts)
	result, err := build(ctx, merged.Headers, merged.Rows, chunker.FusionPolicy())
	if err != nil {
		return nil, err
	}
	result.Merge = merged
	return result, nil
}
