// =============================================================================
// Catalog to Dolibarr Converter - Configuration Module
// =============================================================================
//
// This module loads the application configuration and the supplier profiles.
//
// CONFIGURATION SOURCES (later wins):
//   1. Built-in defaults (DefaultMainConfig)
//   2. Main config file (config.yaml)
//   3. A .env file next to the config file, then the process environment
//      (DOLIBARR_* variables)
//
// PROFILES:
//   Each YAML file in the profiles directory describes one supplier: which
//   input files it owns, which conversion applies to them, and how its
//   options differ from the global defaults. Only the keys a profile sets
//   override the defaults.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/caarlos0/env/v6"
	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/catalog-to-dolibarr/internal/pricing"
	"github.com/ginjaninja78/catalog-to-dolibarr/internal/refops"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is scanned by the process command for supplier files.
	InputDir string `yaml:"input_dir" env:"DOLIBARR_INPUT_DIR"`

	// OutputDir receives the generated workbooks and archives.
	OutputDir string `yaml:"output_dir" env:"DOLIBARR_OUTPUT_DIR"`

	// InputArchiveDir receives input files once converted.
	InputArchiveDir string `yaml:"input_archive_dir" env:"DOLIBARR_INPUT_ARCHIVE_DIR"`

	// OutputArchiveDir keeps a copy of every output file.
	OutputArchiveDir string `yaml:"output_archive_dir" env:"DOLIBARR_OUTPUT_ARCHIVE_DIR"`

	// ProfilesDir holds one YAML file per supplier profile.
	ProfilesDir string `yaml:"profiles_dir" env:"DOLIBARR_PROFILES_DIR"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogFile is the rotated log file. Empty disables file logging.
	LogFile string `yaml:"log_file" env:"DOLIBARR_LOG_FILE"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" env:"DOLIBARR_LOG_LEVEL"`

	// LogFormat is "text" or "json" and applies to the log file.
	LogFormat string `yaml:"log_format" env:"DOLIBARR_LOG_FORMAT"`

	// LogMaxSizeMB, LogMaxBackups and LogMaxAgeDays drive log rotation.
	LogMaxSizeMB  int `yaml:"log_max_size_mb"`
	LogMaxBackups int `yaml:"log_max_backups"`
	LogMaxAgeDays int `yaml:"log_max_age_days"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// OutputNaming is the output file name pattern. Placeholders:
	// {original}, {kind}, {profile}, {timestamp}, {date}, {time}, {uuid}.
	// The extension (.xlsx or .zip) is added by the converter.
	OutputNaming string `yaml:"output_naming" env:"DOLIBARR_OUTPUT_NAMING"`

	// MaxConcurrency bounds the number of files converted at once.
	MaxConcurrency int `yaml:"max_concurrency" env:"DOLIBARR_MAX_CONCURRENCY"`

	// ContinueOnError keeps a batch running after a file fails.
	ContinueOnError bool `yaml:"continue_on_error" env:"DOLIBARR_CONTINUE_ON_ERROR"`

	// ArchiveOnSuccess moves converted inputs to InputArchiveDir.
	ArchiveOnSuccess bool `yaml:"archive_on_success" env:"DOLIBARR_ARCHIVE_ON_SUCCESS"`

	// UseTimestampSubdirs archives into dated subdirectories.
	UseTimestampSubdirs bool `yaml:"use_timestamp_subdirs"`

	// ArchiveRetentionDays purges archived files older than this many days
	// at the start of a batch. 0 keeps everything.
	ArchiveRetentionDays int `yaml:"archive_retention_days"`

	// WriteReports writes a warning log and a JSON report next to every
	// output file.
	WriteReports bool `yaml:"write_reports" env:"DOLIBARR_WRITE_REPORTS"`

	// Defaults are the conversion options every profile starts from.
	Defaults Options `yaml:"defaults"`
}

// =============================================================================
// CONVERSION OPTIONS
// =============================================================================

// Options is the configurable part of a conversion. Enumerations are kept as
// text here and checked by Validate; the converter turns them into typed
// options.
type Options struct {
	TaxRate       float64 `yaml:"tax_rate" env:"DOLIBARR_TAX_RATE"`
	PriceBaseType string  `yaml:"price_base_type" env:"DOLIBARR_PRICE_BASE_TYPE"`
	ProductType   int     `yaml:"product_type" env:"DOLIBARR_PRODUCT_TYPE"`
	ToSell        bool    `yaml:"to_sell" env:"DOLIBARR_TO_SELL"`
	ToBuy         bool    `yaml:"to_buy" env:"DOLIBARR_TO_BUY"`

	// Feed settings.
	Language          string `yaml:"language" env:"DOLIBARR_LANGUAGE"`
	WeightSource      string `yaml:"weight_source" env:"DOLIBARR_WEIGHT_SOURCE"`
	IncludeBarcode    bool   `yaml:"include_barcode"`
	IncludeWeight     bool   `yaml:"include_weight"`
	IncludeDimensions bool   `yaml:"include_dimensions"`
	IncludeURL        bool   `yaml:"include_url"`
	IncludePriceMin   bool   `yaml:"include_price_min"`
	DimensionUnit     string `yaml:"dimension_unit"`

	// Optional bulk operations.
	RefOperation   *RefOperation   `yaml:"ref_operation,omitempty"`
	PriceOperation *PriceOperation `yaml:"price_operation,omitempty"`
}

// RefOperation configures a reference rewrite. Value and Replace accept any
// scalar so that numeric prefixes need no quoting.
type RefOperation struct {
	Kind    string `yaml:"kind"`
	Value   any    `yaml:"value"`
	Replace any    `yaml:"replace"`
	Flags   string `yaml:"flags"`
}

// Build returns the configured operation.
func (r *RefOperation) Build() (refops.Operation, error) {
	kind, err := refops.ParseKind(r.Kind)
	if err != nil {
		return nil, err
	}
	value, err := cast.ToStringE(r.Value)
	if err != nil {
		return nil, fmt.Errorf("ref operation value: %w", err)
	}
	replace, err := cast.ToStringE(r.Replace)
	if err != nil {
		return nil, fmt.Errorf("ref operation replacement: %w", err)
	}

	op := refops.BuildOperation(kind, value, replace, r.Flags)
	if op == nil {
		return nil, fmt.Errorf("ref operation %s: invalid or missing value %q", kind, value)
	}
	return op, nil
}

// PriceOperation configures a bulk price change.
type PriceOperation struct {
	Kind   string `yaml:"kind"`
	Value  any    `yaml:"value"`
	Target string `yaml:"target"`
}

// Build returns the configured operation and its target leg.
func (p *PriceOperation) Build() (pricing.Operation, pricing.Target, error) {
	kind, err := pricing.ParseKind(p.Kind)
	if err != nil {
		return nil, "", err
	}

	target := pricing.TargetHT
	if p.Target != "" {
		if target, err = pricing.ParseTarget(p.Target); err != nil {
			return nil, "", err
		}
	}

	amount, err := cast.ToFloat64E(p.Value)
	if err != nil {
		return nil, "", fmt.Errorf("price operation value: %w", err)
	}
	op := pricing.BuildOperation(kind, cast.ToString(amount))
	if op == nil {
		return nil, "", fmt.Errorf("price operation %s: value must be a non-negative number, got %v", kind, p.Value)
	}
	return op, target, nil
}

// clone copies o so that decoding a profile over it never writes through the
// shared operation pointers.
func (o Options) clone() Options {
	if o.RefOperation != nil {
		r := *o.RefOperation
		o.RefOperation = &r
	}
	if o.PriceOperation != nil {
		p := *o.PriceOperation
		o.PriceOperation = &p
	}
	return o
}

// Validate checks every option and reports all problems at once.
func (o Options) Validate() error {
	var result *multierror.Error

	if o.TaxRate < 0 || o.TaxRate > 100 {
		result = multierror.Append(result, fmt.Errorf("tax_rate must be between 0 and 100, got %g", o.TaxRate))
	}
	if _, err := pricing.ParseTarget(o.PriceBaseType); err != nil {
		result = multierror.Append(result, fmt.Errorf("price_base_type: %w", err))
	}
	if o.ProductType != 0 && o.ProductType != 1 {
		result = multierror.Append(result, fmt.Errorf("product_type must be 0 (product) or 1 (service), got %d", o.ProductType))
	}
	if !oneOf(strings.ToUpper(o.Language), "FR", "EN", "NL", "DE") {
		result = multierror.Append(result, fmt.Errorf("language must be FR, EN, NL or DE, got %q", o.Language))
	}
	if !oneOf(strings.ToLower(o.WeightSource), "product", "package") {
		result = multierror.Append(result, fmt.Errorf("weight_source must be product or package, got %q", o.WeightSource))
	}
	if o.RefOperation != nil {
		if _, err := o.RefOperation.Build(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if o.PriceOperation != nil {
		if _, _, err := o.PriceOperation.Build(); err != nil {
			result = multierror.Append(result, err)
		}
	}

	return result.ErrorOrNil()
}

func oneOf(s string, values ...string) bool {
	for _, v := range values {
		if s == v {
			return true
		}
	}
	return false
}

// =============================================================================
// PROFILE CONFIGURATION STRUCTURE
// =============================================================================

// Conversion kinds a profile can select.
const (
	KindValkenpower = "valkenpower"
	KindExcel       = "excel"
	KindRefs        = "refs"
	KindPrices      = "prices"
	KindFusion      = "fusion"
)

// Kinds lists the conversion kinds, in display order.
var Kinds = []string{KindValkenpower, KindExcel, KindRefs, KindPrices, KindFusion}

// Profile describes one supplier's input files.
type Profile struct {
	// Name is the display name, Code the short identifier used in file names.
	Name string `yaml:"name"`
	Code string `yaml:"code"`

	// FileMatchingPatterns are glob patterns matched case-insensitively
	// against input file names.
	FileMatchingPatterns []string `yaml:"file_matching_patterns"`

	// Kind selects the conversion.
	Kind string `yaml:"kind"`

	// Sheet is the workbook sheet to read (excel kind). Empty is the first.
	Sheet string `yaml:"sheet"`

	// CSVSettings apply to CSV inputs of the excel kind.
	CSVSettings CSVSettings `yaml:"csv_settings"`

	// ColumnOverrides pin source headers to catalog fields, after automatic
	// detection.
	ColumnOverrides []ColumnOverride `yaml:"column_overrides"`

	// Fusion configures the fusion kind.
	Fusion FusionSettings `yaml:"fusion"`

	// RawOptions holds the option keys this profile overrides.
	RawOptions yaml.Node `yaml:"options"`

	// Options are the effective options, set by LoadProfiles.
	Options Options `yaml:"-"`

	// Path is the file the profile was read from.
	Path string `yaml:"-"`
}

// CSVSettings describes a CSV input.
type CSVSettings struct {
	// Delimiter is a single character, or "tab" / "auto". Default: auto.
	Delimiter string `yaml:"delimiter"`

	// Encoding is an IANA charset name such as "UTF-8" or "windows-1252".
	Encoding string `yaml:"encoding"`

	// HeaderRow is the 1-based header line. 0 detects it.
	HeaderRow int `yaml:"header_row"`
}

// ColumnOverride maps a source header to a catalog field ID. An empty
// Target unmaps the column.
type ColumnOverride struct {
	Header string `yaml:"header"`
	Target string `yaml:"target"`
}

// FusionSettings describes the translation file merged into the input.
type FusionSettings struct {
	// Source is the path of the translation workbook or archive.
	Source string `yaml:"source"`

	// BaseKey and SourceKey are key column headers. Empty detects the
	// reference column.
	BaseKey   string `yaml:"base_key"`
	SourceKey string `yaml:"source_key"`

	// Columns lists the base columns to overwrite and their source columns.
	Columns []ColumnPair `yaml:"columns"`
}

// ColumnPair names a base column and the source column that feeds it.
type ColumnPair struct {
	Base   string `yaml:"base"`
	Source string `yaml:"source"`
}

// Matches reports whether the profile owns fileName.
func (p *Profile) Matches(fileName string) bool {
	name := strings.ToLower(filepath.Base(fileName))
	for _, pattern := range p.FileMatchingPatterns {
		if ok, _ := filepath.Match(strings.ToLower(pattern), name); ok {
			return true
		}
	}
	return false
}

// =============================================================================
// LOADING
// =============================================================================

// DefaultMainConfig returns the built-in configuration.
func DefaultMainConfig() *MainConfig {
	return &MainConfig{
		InputDir:         "./input",
		OutputDir:        "./output",
		InputArchiveDir:  "./input_archive",
		OutputArchiveDir: "./output_archive",
		ProfilesDir:      "./profiles",
		LogFile:          "./logs/converter.log",
		LogLevel:         "info",
		LogFormat:        "text",
		LogMaxSizeMB:     10,
		LogMaxBackups:    5,
		LogMaxAgeDays:    30,
		OutputNaming:     "{original}_{kind}",
		MaxConcurrency:   4,
		ArchiveOnSuccess: true,
		WriteReports:     true,
		Defaults:         DefaultOptions(),
	}
}

// DefaultOptions returns the built-in conversion options.
func DefaultOptions() Options {
	return Options{
		TaxRate:         21.0,
		PriceBaseType:   "HT",
		ProductType:     0,
		ToSell:          true,
		ToBuy:           true,
		Language:        "FR",
		WeightSource:    "package",
		IncludeBarcode:  true,
		IncludeWeight:   true,
		IncludeURL:      true,
		IncludePriceMin: true,
		DimensionUnit:   "mm",
	}
}

// LoadMainConfig loads the main configuration.
//
// PARAMETERS:
//   - configPath: The YAML file. Empty means built-in defaults only.
//
// RETURNS:
//   - The configuration, with defaults applied, environment overrides
//     applied, and its directories created.
//   - An error listing every invalid setting.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	cfg := DefaultMainConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}

		envFile := filepath.Join(filepath.Dir(configPath), ".env")
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	applyMainConfigDefaults(cfg)

	if err := validateMainConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyMainConfigDefaults restores defaults that the file blanked out.
func applyMainConfigDefaults(cfg *MainConfig) {
	def := DefaultMainConfig()

	if cfg.InputDir == "" {
		cfg.InputDir = def.InputDir
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = def.OutputDir
	}
	if cfg.InputArchiveDir == "" {
		cfg.InputArchiveDir = def.InputArchiveDir
	}
	if cfg.OutputArchiveDir == "" {
		cfg.OutputArchiveDir = def.OutputArchiveDir
	}
	if cfg.ProfilesDir == "" {
		cfg.ProfilesDir = def.ProfilesDir
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = def.LogLevel
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = def.LogFormat
	}
	if cfg.OutputNaming == "" {
		cfg.OutputNaming = def.OutputNaming
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = def.MaxConcurrency
	}
	if cfg.Defaults.PriceBaseType == "" {
		cfg.Defaults.PriceBaseType = def.Defaults.PriceBaseType
	}
	if cfg.Defaults.Language == "" {
		cfg.Defaults.Language = def.Defaults.Language
	}
	if cfg.Defaults.WeightSource == "" {
		cfg.Defaults.WeightSource = def.Defaults.WeightSource
	}
	if cfg.Defaults.DimensionUnit == "" {
		cfg.Defaults.DimensionUnit = def.Defaults.DimensionUnit
	}
}

// validateMainConfig checks the settings and creates the working
// directories.
func validateMainConfig(cfg *MainConfig) error {
	var result *multierror.Error

	if !oneOf(strings.ToLower(cfg.LogLevel), "debug", "info", "warn", "error") {
		result = multierror.Append(result, fmt.Errorf("log_level must be debug, info, warn or error, got %q", cfg.LogLevel))
	}
	if !oneOf(strings.ToLower(cfg.LogFormat), "text", "json") {
		result = multierror.Append(result, fmt.Errorf("log_format must be text or json, got %q", cfg.LogFormat))
	}
	if err := cfg.Defaults.Validate(); err != nil {
		result = multierror.Append(result, fmt.Errorf("defaults: %w", err))
	}
	if result.ErrorOrNil() != nil {
		return result
	}

	for _, dir := range []string{cfg.InputDir, cfg.OutputDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// LoadProfiles loads every profile in profilesDir, sorted by file name.
//
// PARAMETERS:
//   - profilesDir: The directory holding *.yaml / *.yml profiles. A missing
//     directory yields no profiles.
//   - defaults: The options each profile starts from.
//
// RETURNS:
//   - The profiles with their effective Options resolved.
//   - An error naming every invalid profile.
func LoadProfiles(profilesDir string, defaults Options) ([]*Profile, error) {
	files, err := filepath.Glob(filepath.Join(profilesDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	ymlFiles, err := filepath.Glob(filepath.Join(profilesDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	files = append(files, ymlFiles...)
	sort.Strings(files)

	var result *multierror.Error
	profiles := make([]*Profile, 0, len(files))
	for _, file := range files {
		profile, err := loadProfile(file, defaults)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", filepath.Base(file), err))
			continue
		}
		profiles = append(profiles, profile)
	}

	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return profiles, nil
}

// loadProfile reads one profile file.
func loadProfile(filePath string, defaults Options) (*Profile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse file: %w", err)
	}
	profile.Path = filePath

	if profile.Code == "" {
		profile.Code = strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	}
	if profile.Name == "" {
		profile.Name = profile.Code
	}

	if profile.Options, err = ResolveOptions(profile.RawOptions, defaults); err != nil {
		return nil, err
	}
	if err := profile.validate(); err != nil {
		return nil, err
	}
	return &profile, nil
}

// ResolveOptions overlays the keys set in raw onto defaults. A zero node
// returns defaults unchanged.
func ResolveOptions(raw yaml.Node, defaults Options) (Options, error) {
	opts := defaults.clone()
	if raw.Kind == 0 {
		return opts, nil
	}
	if err := raw.Decode(&opts); err != nil {
		return Options{}, fmt.Errorf("failed to parse options: %w", err)
	}
	return opts, nil
}

// validate checks a loaded profile, effective options included.
func (p *Profile) validate() error {
	var result *multierror.Error

	if !oneOf(p.Kind, Kinds...) {
		result = multierror.Append(result, fmt.Errorf("kind must be one of %s, got %q", strings.Join(Kinds, ", "), p.Kind))
	}
	if len(p.FileMatchingPatterns) == 0 {
		result = multierror.Append(result, errors.New("file_matching_patterns is empty"))
	}
	for _, pattern := range p.FileMatchingPatterns {
		if _, err := filepath.Match(pattern, ""); err != nil {
			result = multierror.Append(result, fmt.Errorf("bad pattern %q: %w", pattern, err))
		}
	}
	if p.Kind == KindFusion {
		if p.Fusion.Source == "" {
			result = multierror.Append(result, errors.New("fusion.source is required"))
		}
		if len(p.Fusion.Columns) == 0 {
			result = multierror.Append(result, errors.New("fusion.columns is empty"))
		}
	}
	if p.Kind == KindRefs && p.Options.RefOperation == nil {
		result = multierror.Append(result, errors.New("refs profiles need options.ref_operation"))
	}
	if p.Kind == KindPrices && p.Options.PriceOperation == nil {
		result = multierror.Append(result, errors.New("prices profiles need options.price_operation"))
	}
	if err := p.Options.Validate(); err != nil {
		result = multierror.Append(result, err)
	}

	return result.ErrorOrNil()
}

// MatchProfile returns the first profile owning fileName, or nil.
func MatchProfile(profiles []*Profile, fileName string) *Profile {
	for _, p := range profiles {
		if p.Matches(fileName) {
			return p
		}
	}
	return nil
}
