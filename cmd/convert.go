// =============================================================================
// Catalog to Dolibarr Converter - Single File Commands
// =============================================================================
//
// This file defines one command per conversion. Each converts a single file
// given on the command line, without profile matching.
//
// COMMAND USAGE:
//   dolibarr-converter valkenpower FEED.xml [flags]
//   dolibarr-converter excel CATALOG.xlsx|CATALOG.csv [flags]
//   dolibarr-converter refs REFS.txt|REFS.xlsx|REFS.zip --ref-op KIND --ref-value V
//   dolibarr-converter prices PRICES.txt|PRICES.xlsx|PRICES.zip --price-op KIND --price-value N
//   dolibarr-converter fusion EXPORT.xlsx TRANSLATIONS.xlsx --column "Base=Source"
//
// OPTION RESOLUTION:
//   The options start from the configured defaults, or from a profile when
//   --profile is given. Flags set on the command line win.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/catalog-to-dolibarr/internal/config"
	"github.com/ginjaninja78/catalog-to-dolibarr/internal/converter"
	"github.com/ginjaninja78/catalog-to-dolibarr/internal/validation"
)

// jobFlags holds the flags of one conversion command.
type jobFlags struct {
	profile string
	archive bool

	taxRate      float64
	priceBase    string
	productType  int
	toSell       bool
	toBuy        bool
	language     string
	weightSource string
	dimensions   bool
	noBarcode    bool
	noURL        bool
	noPriceMin   bool
	dimUnit      string

	refOp      string
	refValue   string
	refReplace string
	refFlags   string

	priceOp     string
	priceValue  string
	priceTarget string

	sheet     string
	delimiter string
	encoding  string
	headerRow int
	overrides []string

	columns   []string
	baseKey   string
	sourceKey string
}

// =============================================================================
// COMMAND DEFINITIONS
// =============================================================================

func init() {
	rootCmd.AddCommand(
		newConvertCmd(config.KindValkenpower, "valkenpower FEED",
			"Convert a Valkenpower XML feed to a Dolibarr product import", cobra.ExactArgs(1)),
		newConvertCmd(config.KindExcel, "excel CATALOG",
			"Convert a supplier spreadsheet (XLSX or CSV) to a Dolibarr product import", cobra.ExactArgs(1)),
		newConvertCmd(config.KindRefs, "refs INPUT",
			"Build a reference rename sheet from a list of references", cobra.ExactArgs(1)),
		newConvertCmd(config.KindPrices, "prices INPUT",
			"Build a price update sheet from a list of prices", cobra.ExactArgs(1)),
		newConvertCmd(config.KindFusion, "fusion EXPORT TRANSLATIONS",
			"Merge translated columns into a Dolibarr export", cobra.ExactArgs(2)),
	)
}

// newConvertCmd builds the command running one conversion kind.
func newConvertCmd(kind, use, short string, args cobra.PositionalArgs) *cobra.Command {
	flags := &jobFlags{}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := buildJob(cmd, kind, flags, args)
			if err != nil {
				return err
			}
			return runSingle(cmd.Context(), job, flags.archive)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.profile, "profile", "", "Start from the options of this profile code")
	f.BoolVar(&flags.archive, "archive", false, "Archive the input and output after a successful conversion")

	switch kind {
	case config.KindValkenpower, config.KindExcel:
		f.Float64Var(&flags.taxRate, "tax-rate", 21, "VAT rate in percent")
		f.StringVar(&flags.priceBase, "price-base", "HT", "Dolibarr price base type (HT or TTC)")
		f.IntVar(&flags.productType, "product-type", 0, "0 for products, 1 for services")
		f.BoolVar(&flags.toSell, "to-sell", true, "Mark products as sellable")
		f.BoolVar(&flags.toBuy, "to-buy", true, "Mark products as purchasable")
		addRefFlags(cmd, flags)
		addPriceFlags(cmd, flags)
	case config.KindRefs:
		addRefFlags(cmd, flags)
	case config.KindPrices:
		f.Float64Var(&flags.taxRate, "tax-rate", 21, "VAT rate for pasted prices")
		addPriceFlags(cmd, flags)
	case config.KindFusion:
		f.StringArrayVar(&flags.columns, "column", nil, `Column pair "Base header=Source header" (repeatable)`)
		f.StringVar(&flags.baseKey, "base-key", "", "Key column of the export (default: detected)")
		f.StringVar(&flags.sourceKey, "source-key", "", "Key column of the translations (default: detected)")
	}

	switch kind {
	case config.KindValkenpower:
		f.StringVar(&flags.language, "language", "FR", "Title and description language (FR, EN, NL, DE)")
		f.StringVar(&flags.weightSource, "weight-source", "package", "Weight to export (product or package)")
		f.BoolVar(&flags.dimensions, "dimensions", false, "Export length, width and height")
		f.StringVar(&flags.dimUnit, "dimension-unit", "mm", "Unit written next to dimensions")
		f.BoolVar(&flags.noBarcode, "no-barcode", false, "Leave out the barcode column")
		f.BoolVar(&flags.noURL, "no-url", false, "Leave out the image URL column")
		f.BoolVar(&flags.noPriceMin, "no-price-min", false, "Leave out the minimum price column")
	case config.KindExcel:
		f.StringVar(&flags.sheet, "sheet", "", "Sheet to read (default: first)")
		f.StringVar(&flags.delimiter, "delimiter", "", "CSV delimiter (default: detected)")
		f.StringVar(&flags.encoding, "encoding", "", "CSV encoding (default: UTF-8)")
		f.IntVar(&flags.headerRow, "header-row", 0, "1-based header row (default: detected)")
		f.StringArrayVar(&flags.overrides, "map", nil, `Column override "Source header=target field" (repeatable; empty target unmaps)`)
	}

	return cmd
}

func addRefFlags(cmd *cobra.Command, flags *jobFlags) {
	f := cmd.Flags()
	f.StringVar(&flags.refOp, "ref-op", "", "Reference operation: add-prefix, add-suffix, remove-prefix, remove-suffix, find-replace, regex-replace")
	f.StringVar(&flags.refValue, "ref-value", "", "Prefix, suffix, search text or pattern")
	f.StringVar(&flags.refReplace, "ref-replace", "", "Replacement (find-replace and regex-replace)")
	f.StringVar(&flags.refFlags, "ref-flags", "", "Regex flags (i, m, s)")
}

func addPriceFlags(cmd *cobra.Command, flags *jobFlags) {
	f := cmd.Flags()
	f.StringVar(&flags.priceOp, "price-op", "", "Price operation: increase-fixed, decrease-fixed, increase-percent, decrease-percent")
	f.StringVar(&flags.priceValue, "price-value", "", "Amount or percentage")
	f.StringVar(&flags.priceTarget, "price-target", "HT", "Price leg to modify (HT or TTC)")
}

// =============================================================================
// JOB ASSEMBLY
// =============================================================================

// buildJob resolves the profile, applies the flags set on the command line
// and turns the result into a converter job.
func buildJob(cmd *cobra.Command, kind string, flags *jobFlags, args []string) (converter.Job, error) {
	profile := &config.Profile{Kind: kind, Options: app.cfg.Defaults}
	if flags.profile != "" {
		p, err := findProfile(flags.profile)
		if err != nil {
			return converter.Job{}, err
		}
		copied := *p
		profile = &copied
	}

	changed := cmd.Flags().Changed
	opts := &profile.Options

	if changed("tax-rate") {
		opts.TaxRate = flags.taxRate
	}
	if changed("price-base") {
		opts.PriceBaseType = flags.priceBase
	}
	if changed("product-type") {
		opts.ProductType = flags.productType
	}
	if changed("to-sell") {
		opts.ToSell = flags.toSell
	}
	if changed("to-buy") {
		opts.ToBuy = flags.toBuy
	}
	if changed("language") {
		opts.Language = flags.language
	}
	if changed("weight-source") {
		opts.WeightSource = flags.weightSource
	}
	if changed("dimensions") {
		opts.IncludeDimensions = flags.dimensions
	}
	if changed("dimension-unit") {
		opts.DimensionUnit = flags.dimUnit
	}
	if changed("no-barcode") {
		opts.IncludeBarcode = !flags.noBarcode
	}
	if changed("no-url") {
		opts.IncludeURL = !flags.noURL
	}
	if changed("no-price-min") {
		opts.IncludePriceMin = !flags.noPriceMin
	}
	if flags.refOp != "" {
		opts.RefOperation = &config.RefOperation{
			Kind:    flags.refOp,
			Value:   flags.refValue,
			Replace: flags.refReplace,
			Flags:   flags.refFlags,
		}
	}
	if flags.priceOp != "" {
		opts.PriceOperation = &config.PriceOperation{
			Kind:   flags.priceOp,
			Value:  flags.priceValue,
			Target: flags.priceTarget,
		}
	}

	if changed("sheet") {
		profile.Sheet = flags.sheet
	}
	if changed("delimiter") {
		profile.CSVSettings.Delimiter = flags.delimiter
	}
	if changed("encoding") {
		profile.CSVSettings.Encoding = flags.encoding
	}
	if changed("header-row") {
		profile.CSVSettings.HeaderRow = flags.headerRow
	}
	for _, o := range flags.overrides {
		header, target, _ := strings.Cut(o, "=")
		profile.ColumnOverrides = append(profile.ColumnOverrides, config.ColumnOverride{
			Header: strings.TrimSpace(header),
			Target: strings.TrimSpace(target),
		})
	}

	if kind == config.KindFusion {
		profile.Fusion.Source = args[1]
		for _, c := range flags.columns {
			base, source, ok := strings.Cut(c, "=")
			if !ok {
				return converter.Job{}, fmt.Errorf("invalid --column %q (expected \"Base=Source\")", c)
			}
			profile.Fusion.Columns = append(profile.Fusion.Columns, config.ColumnPair{
				Base:   strings.TrimSpace(base),
				Source: strings.TrimSpace(source),
			})
		}
		if changed("base-key") {
			profile.Fusion.BaseKey = flags.baseKey
		}
		if changed("source-key") {
			profile.Fusion.SourceKey = flags.sourceKey
		}
	}

	if kind == config.KindRefs && opts.RefOperation == nil {
		return converter.Job{}, fmt.Errorf("refs needs --ref-op and --ref-value")
	}
	if kind == config.KindPrices && opts.PriceOperation == nil {
		return converter.Job{}, fmt.Errorf("prices needs --price-op and --price-value")
	}
	if err := opts.Validate(); err != nil {
		return converter.Job{}, err
	}

	job, err := converter.JobFromProfile(args[0], profile)
	if err != nil {
		return converter.Job{}, err
	}
	job.Kind = kind
	return job, nil
}

// findProfile loads the profiles and returns the one with the given code.
func findProfile(code string) (*config.Profile, error) {
	profiles, err := config.LoadProfiles(app.cfg.ProfilesDir, app.cfg.Defaults)
	if err != nil {
		return nil, fmt.Errorf("failed to load profiles: %w", err)
	}
	for _, p := range profiles {
		if strings.EqualFold(p.Code, code) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("profile %q not found in %s", code, app.cfg.ProfilesDir)
}

// =============================================================================
// EXECUTION
// =============================================================================

// runSingle converts one file and prints the outcome.
func runSingle(ctx context.Context, job converter.Job, archive bool) error {
	files := newFileManager(app.cfg)
	files.ArchiveOnSuccess = archive
	if err := files.EnsureDirectories(); err != nil {
		return err
	}

	result := converter.New(job, files, app.cfg, app.logger).Run(ctx)
	if !result.Success {
		errStyle.Printf("✗ %s: %v\n", filepath.Base(job.InputPath), result.Error)
		return errConversionFailed
	}

	printResult(result)
	printWarnings(result.Warnings)
	return nil
}

func printResult(result converter.Result) {
	okStyle.Printf("✓ %s -> %s\n", filepath.Base(result.FilePath), result.OutputFile)

	stats := result.Stats
	fmt.Printf("  Rows:       %d in, %d out\n", stats.RowsProcessed, stats.RowsWritten)
	if stats.FileCount > 1 {
		fmt.Printf("  Workbooks:  %d (ZIP)\n", stats.FileCount)
	}
	if stats.Changed > 0 {
		fmt.Printf("  Modified:   %d\n", stats.Changed)
	}
	if stats.Matched > 0 || stats.Unmatched > 0 {
		fmt.Printf("  Matched:    %d, unmatched: %d\n", stats.Matched, stats.Unmatched)
	}
	fmt.Printf("  Time:       %s\n", stats.ProcessingTime.Round(time.Millisecond))
}

// maxPrintedWarnings bounds the warnings echoed to the terminal; the warning
// log has them all.
const maxPrintedWarnings = 10

func printWarnings(warnings []validation.Warning) {
	if len(warnings) == 0 {
		return
	}

	counts := validation.CountByKind(warnings)
	kinds := make([]string, 0, len(counts))
	for kind := range counts {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)

	warnStyle.Printf("  %d warning(s):", len(warnings))
	for _, kind := range kinds {
		warnStyle.Printf(" %s=%d", kind, counts[validation.Kind(kind)])
	}
	fmt.Println()

	for i, w := range warnings {
		if i == maxPrintedWarnings {
			fmt.Printf("    ... %d more in the warning log\n", len(warnings)-maxPrintedWarnings)
			break
		}
		fmt.Printf("    %s\n", w.Message)
	}
}
