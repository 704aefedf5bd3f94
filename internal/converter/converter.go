// =============================================================================
// Catalog to Dolibarr Converter - Converter Module
// =============================================================================
//
// This module runs one conversion job from an input file on disk to an
// output file in the output directory.
//
// CONVERSION PIPELINE:
//   1. Read the input (XML feed, XLSX/CSV table, text list or ZIP)
//   2. Convert it (see conversions.go)
//   3. Write the workbook, or the ZIP of workbooks
//   4. Write the warning log and the JSON report
//   5. Archive the processed files
//
// CONCURRENCY:
//   A Converter holds no shared state. The process command runs one
//   Converter per input file in its own goroutine.
//
// =============================================================================

package converter

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ginjaninja78/catalog-to-dolibarr/internal/config"
	"github.com/ginjaninja78/catalog-to-dolibarr/internal/csvparser"
	"github.com/ginjaninja78/catalog-to-dolibarr/internal/feed"
	"github.com/ginjaninja78/catalog-to-dolibarr/internal/mapping"
	"github.com/ginjaninja78/catalog-to-dolibarr/internal/merge"
	"github.com/ginjaninja78/catalog-to-dolibarr/internal/pricing"
	"github.com/ginjaninja78/catalog-to-dolibarr/internal/refops"
	"github.com/ginjaninja78/catalog-to-dolibarr/internal/types"
	"github.com/ginjaninja78/catalog-to-dolibarr/internal/validation"
	"github.com/ginjaninja78/catalog-to-dolibarr/internal/xlsxparser"
	"github.com/ginjaninja78/catalog-to-dolibarr/pkg/utils"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of processing a single file.
type Result struct {
	// FilePath is the path to the input file that was processed.
	FilePath string

	// OutputFile is the path to the generated workbook or ZIP.
	// This is empty if processing failed.
	OutputFile string

	// ArchivePath is where the input was moved, when archiving is on.
	ArchivePath string

	// Success indicates whether the processing was successful.
	Success bool

	// Error contains the error if processing failed.
	Error error

	// Warnings are the data issues found in the input. They never fail a
	// conversion.
	Warnings []validation.Warning

	// Stats contains processing statistics.
	Stats ProcessingStats
}

// ProcessingStats contains statistics about the processing.
type ProcessingStats struct {
	// RowsProcessed is the number of input records.
	RowsProcessed int

	// RowsWritten is the number of output data rows.
	RowsWritten int

	// FileCount is the number of workbooks written (more than one inside
	// a ZIP).
	FileCount int

	// Changed is the number of modified rows of a refs or prices job.
	Changed int

	// Matched and Unmatched are the fusion statistics.
	Matched   int
	Unmatched int

	// ProcessingTime is the time taken to process the file.
	ProcessingTime time.Duration
}

// =============================================================================
// JOB DESCRIPTION
// =============================================================================

// Job describes what to do with one input file.
type Job struct {
	// Kind is one of the config.Kind* conversions.
	Kind string

	// InputPath is the file to convert.
	InputPath string

	// Profile names the profile the job came from, for reports.
	Profile string

	// Sheet is the workbook sheet read by excel jobs. Empty reads the first.
	Sheet string

	// CSV configures CSV input of excel jobs.
	CSV config.CSVSettings

	// Overrides fix column mappings that auto-detection gets wrong.
	Overrides []mapping.Override

	// Options holds the conversion settings.
	Options FeedOptions

	// Fusion describes the translation source of fusion jobs.
	Fusion FusionJob
}

// FusionJob is the fusion part of a Job.
type FusionJob struct {
	SourcePath string
	BaseKey    string
	SourceKey  string
	Columns    []merge.HeaderMapping
}

// OptionsFromConfig turns validated configuration options into conversion
// options.
func OptionsFromConfig(o config.Options) (FeedOptions, error) {
	opts := DefaultFeedOptions()
	opts.TaxRate = o.TaxRate
	opts.ProductType = o.ProductType
	opts.ToSell = o.ToSell
	opts.ToBuy = o.ToBuy
	opts.IncludeBarcode = o.IncludeBarcode
	opts.IncludeWeight = o.IncludeWeight
	opts.IncludeDimensions = o.IncludeDimensions
	opts.IncludeURL = o.IncludeURL
	opts.IncludePriceMin = o.IncludePriceMin
	if o.DimensionUnit != "" {
		opts.DimensionUnit = o.DimensionUnit
	}

	var err error
	if opts.PriceBase, err = pricing.ParseTarget(o.PriceBaseType); err != nil {
		return opts, err
	}
	if opts.Language, err = ParseLanguage(o.Language); err != nil {
		return opts, err
	}
	if opts.WeightSource, err = ParseWeightSource(o.WeightSource); err != nil {
		return opts, err
	}
	if o.RefOperation != nil {
		if opts.RefOperation, err = o.RefOperation.Build(); err != nil {
			return opts, err
		}
	}
	if o.PriceOperation != nil {
		if opts.PriceOperation, opts.PriceTarget, err = o.PriceOperation.Build(); err != nil {
			return opts, err
		}
	}
	return opts, nil
}

// JobFromProfile builds the job converting inputPath with profile p.
func JobFromProfile(inputPath string, p *config.Profile) (Job, error) {
	opts, err := OptionsFromConfig(p.Options)
	if err != nil {
		return Job{}, fmt.Errorf("profile %s: %w", p.Code, err)
	}

	job := Job{
		Kind:      p.Kind,
		InputPath: inputPath,
		Profile:   p.Code,
		Sheet:     p.Sheet,
		CSV:       p.CSVSettings,
		Options:   opts,
		Fusion: FusionJob{
			SourcePath: p.Fusion.Source,
			BaseKey:    p.Fusion.BaseKey,
			SourceKey:  p.Fusion.SourceKey,
		},
	}
	for _, o := range p.ColumnOverrides {
		job.Overrides = append(job.Overrides, mapping.Override{Header: o.Header, Target: o.Target})
	}
	for _, c := range p.Fusion.Columns {
		job.Fusion.Columns = append(job.Fusion.Columns, merge.HeaderMapping{Base: c.Base, Source: c.Source})
	}
	return job, nil
}

// kindLabels fill the {kind} placeholder of output names.
var kindLabels = map[string]string{
	config.KindValkenpower: "dolibarr",
	config.KindExcel:       "dolibarr",
	config.KindRefs:        "modification_refs",
	config.KindPrices:      "modification_prix",
	config.KindFusion:      "fusion",
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Converter runs one Job.
type Converter struct {
	job    Job
	files  *utils.FileManager
	cfg    *config.MainConfig
	logger Logger
}

// Logger is the logging interface used by the converter. *slog.Logger
// satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// New creates a Converter.
//
// PARAMETERS:
//   - job: The job to run.
//   - files: Output and archive locations.
//   - cfg: The main configuration (naming, reports).
//   - logger: Receives progress; nil discards it.
func New(job Job, files *utils.FileManager, cfg *config.MainConfig, logger Logger) *Converter {
	if logger == nil {
		logger = discardLogger{}
	}
	return &Converter{job: job, files: files, cfg: cfg, logger: logger}
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes the conversion pipeline for the file. Cancelling ctx stops
// archive packaging.
func (c *Converter) Run(ctx context.Context) Result {
	startTime := time.Now()
	result := Result{FilePath: c.job.InputPath}

	c.logger.Info("processing file", "file", c.job.InputPath, "kind", c.job.Kind, "profile", c.job.Profile)

	// =========================================================================
	// STEP 1 AND 2: READ AND CONVERT
	// =========================================================================

	conv, err := c.convert(ctx)
	if err != nil {
		result.Error = err
		return result
	}

	result.Warnings = conv.Warnings
	result.Stats.RowsProcessed = conv.TotalRows
	result.Stats.RowsWritten = len(conv.Rows)
	result.Stats.FileCount = conv.FileCount
	result.Stats.Changed = conv.Changed
	if conv.Merge != nil {
		result.Stats.Matched = conv.Merge.MatchedCount
		result.Stats.Unmatched = conv.Merge.UnmatchedCount
	}

	for _, w := range conv.Warnings {
		c.logger.Debug("data warning", "file", c.job.InputPath, "type", w.Kind, "row", w.Row, "message", w.Message)
	}
	c.logger.Debug("converted", "rows", len(conv.Rows), "files", conv.FileCount, "warnings", len(conv.Warnings))

	// =========================================================================
	// STEP 3: WRITE OUTPUT FILE
	// =========================================================================

	fileName := utils.GenerateOutputFileName(c.cfg.OutputNaming, map[string]string{
		"original": utils.BaseName(c.job.InputPath),
		"kind":     kindLabels[c.job.Kind],
		"profile":  c.job.Profile,
	}, conv.Extension())

	outputPath, err := c.files.WriteOutput(fileName, conv.Data)
	if err != nil {
		result.Error = fmt.Errorf("failed to write output: %w", err)
		return result
	}
	result.OutputFile = outputPath
	c.logger.Info("wrote output", "file", outputPath, "rows", len(conv.Rows), "workbooks", conv.FileCount)

	// =========================================================================
	// STEP 4: WARNING LOG AND REPORT
	// =========================================================================
	// Failures here are logged; the output is already written.

	if logPath, err := utils.WriteWarningLog(conv.Warnings, c.job.InputPath, outputPath); err != nil {
		c.logger.Warn("failed to write warning log", "error", err)
	} else if logPath != "" {
		c.logger.Info("wrote warning log", "file", logPath, "warnings", len(conv.Warnings))
	}

	if c.cfg.WriteReports {
		report := utils.Report{
			InputFile:   c.job.InputPath,
			OutputFile:  outputPath,
			Kind:        c.job.Kind,
			Profile:     c.job.Profile,
			TotalRows:   conv.TotalRows,
			FileCount:   conv.FileCount,
			IsArchive:   conv.IsArchive,
			Warnings:    conv.Warnings,
			GeneratedAt: time.Now(),
			Duration:    time.Since(startTime).Round(time.Millisecond).String(),
		}
		if _, err := utils.WriteReport(report); err != nil {
			c.logger.Warn("failed to write report", "error", err)
		}
	}

	// =========================================================================
	// STEP 5: ARCHIVE FILES
	// =========================================================================

	if archivePath, err := c.files.ArchiveInputFile(c.job.InputPath); err != nil {
		c.logger.Warn("failed to archive input", "file", c.job.InputPath, "error", err)
	} else {
		result.ArchivePath = archivePath
	}
	if _, err := c.files.ArchiveOutputFile(outputPath); err != nil {
		c.logger.Warn("failed to archive output", "file", outputPath, "error", err)
	}

	result.Success = true
	result.Stats.ProcessingTime = time.Since(startTime)
	return result
}

// convert reads the input and dispatches on the job kind.
func (c *Converter) convert(ctx context.Context) (*ConversionResult, error) {
	switch c.job.Kind {
	case config.KindValkenpower:
		products, err := c.readFeed()
		if err != nil {
			return nil, err
		}
		return ConvertFeed(ctx, products, c.job.Options)

	case config.KindExcel:
		table, mappings, err := c.readTable()
		if err != nil {
			return nil, err
		}
		return ConvertTable(ctx, table, mappings, c.job.Options.ConversionOptions)

	case config.KindRefs:
		refs, err := c.readRefs()
		if err != nil {
			return nil, err
		}
		return ModifyRefs(ctx, refs, c.job.Options.RefOperation)

	case config.KindPrices:
		rows, err := c.readPrices()
		if err != nil {
			return nil, err
		}
		return ModifyPrices(ctx, rows, c.job.Options.PriceOperation, c.job.Options.PriceTarget)

	case config.KindFusion:
		return c.fuse(ctx)

	default:
		return nil, fmt.Errorf("unknown conversion kind %q", c.job.Kind)
	}
}

// =============================================================================
// INPUT READING
// =============================================================================

func extension(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

func (c *Converter) readFeed() ([]feed.Product, error) {
	file, err := os.Open(c.job.InputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open feed: %w", err)
	}
	defer file.Close()

	products, err := feed.Parse(file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}
	c.logger.Debug("parsed feed", "products", len(products))
	return products, nil
}

// readTable parses a supplier spreadsheet and maps its columns.
func (c *Converter) readTable() (*types.Table, []mapping.ColumnMapping, error) {
	var (
		table *types.Table
		err   error
	)
	switch extension(c.job.InputPath) {
	case ".csv", ".txt":
		table, err = csvparser.Parse(c.job.InputPath, c.job.CSV)
	default:
		opts := xlsxparser.DefaultParseOptions()
		opts.Sheet = c.job.Sheet
		if c.job.CSV.HeaderRow > 0 {
			opts.HeaderRow = c.job.CSV.HeaderRow - 1
		}
		table, err = xlsxparser.ParseFile(c.job.InputPath, opts)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse table: %w", err)
	}
	c.logger.Debug("parsed table", "sheet", table.SheetName, "header_row", table.HeaderRow+1, "rows", table.TotalRows())

	catalog := mapping.DolibarrCatalog()
	mappings, err := catalog.ApplyOverrides(catalog.AutoDetect(table.Headers), c.job.Overrides)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid column override: %w", err)
	}

	for _, m := range catalog.Mapped(mappings) {
		c.logger.Debug("mapped column", "source", m.Mapping.SourceHeader, "target", m.Field.ID)
	}
	for _, f := range catalog.MissingRequired(mappings) {
		c.logger.Warn("required column not found", "file", c.job.InputPath, "field", f.Header)
	}
	return table, mappings, nil
}

func (c *Converter) readRefs() ([]string, error) {
	data, err := os.ReadFile(c.job.InputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read references: %w", err)
	}

	switch extension(c.job.InputPath) {
	case ".txt", ".csv":
		return refops.ParseRefsFromText(string(data)), nil
	case ".zip":
		return refops.ParseRefsFromArchive(data)
	default:
		return refops.ParseRefsFromWorkbook(bytes.NewReader(data))
	}
}

func (c *Converter) readPrices() ([]pricing.PriceRow, error) {
	data, err := os.ReadFile(c.job.InputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read prices: %w", err)
	}

	opts := c.job.Options
	switch extension(c.job.InputPath) {
	case ".txt", ".csv":
		pairs := pricing.ParsePricesFromText(string(data))
		return pricing.PairsToRows(pairs, opts.PriceTarget, pricing.FormatRate(opts.TaxRate), string(opts.PriceBase)), nil
	case ".zip":
		return pricing.ParsePricesFromArchive(data)
	default:
		return pricing.ParsePricesFromWorkbook(bytes.NewReader(data))
	}
}

// fuse loads both sides of a fusion and resolves its columns.
func (c *Converter) fuse(ctx context.Context) (*ConversionResult, error) {
	fusion := c.job.Fusion
	if fusion.SourcePath == "" {
		return nil, fmt.Errorf("fusion needs a translation source")
	}
	if len(fusion.Columns) == 0 {
		return nil, fmt.Errorf("fusion needs at least one column pair")
	}

	base, err := loadMergeTable(c.job.InputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read base: %w", err)
	}
	source, err := loadMergeTable(fusion.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read source: %w", err)
	}

	mappings, err := merge.ResolveMappings(base.Headers, source.Headers, fusion.Columns)
	if err != nil {
		return nil, err
	}
	baseKey, err := keyColumn(base.Headers, fusion.BaseKey)
	if err != nil {
		return nil, fmt.Errorf("base: %w", err)
	}
	sourceKey, err := keyColumn(source.Headers, fusion.SourceKey)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	c.logger.Debug("fusion keys", "base", base.Headers[baseKey], "source", source.Headers[sourceKey])

	result, err := Fuse(ctx, base, source, merge.Options{
		BaseKeyCol:   baseKey,
		SourceKeyCol: sourceKey,
		Mappings:     mappings,
	})
	if err != nil {
		return nil, err
	}
	if n := len(result.Merge.UnmatchedRefs); n > 0 {
		c.logger.Info("references without translation", "count", n)
	}
	return result, nil
}

func loadMergeTable(path string) (types.StringTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.StringTable{}, err
	}
	table, err := merge.LoadTable(filepath.Base(path), data)
	if err != nil {
		return types.StringTable{}, err
	}
	if len(table.Headers) == 0 {
		return types.StringTable{}, fmt.Errorf("%s has no header row", filepath.Base(path))
	}
	return table, nil
}

// keyColumn finds the named key column, or detects it when name is empty.
func keyColumn(headers []string, name string) (int, error) {
	if strings.TrimSpace(name) == "" {
		return merge.DetectKeyColumn(headers), nil
	}
	for i, h := range headers {
		if strings.EqualFold(strings.TrimSpace(h), strings.TrimSpace(name)) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("key column %q not found", name)
}

// =============================================================================
// DEFAULT LOGGER
// =============================================================================

type discardLogger struct{}

func (discardLogger) Debug(string, ...any) {}
func (discardLogger) Info(string, ...any)  {}
func (discardLogger) Warn(string, ...any)  {}
func (discardLogger) Error(string, ...any) {}
