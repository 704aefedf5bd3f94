// =============================================================================
// Catalog to Dolibarr Converter - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Every other command
// is attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (dolibarr-converter)
//   ├── processCmd     (process the input directory with supplier profiles)
//   ├── valkenpowerCmd (convert one vendor XML feed)
//   ├── excelCmd       (convert one supplier spreadsheet)
//   ├── refsCmd        (build a reference rename sheet)
//   ├── pricesCmd      (build a price update sheet)
//   ├── fusionCmd      (merge translations into a Dolibarr export)
//   ├── validateCmd    (check configuration and profiles)
//   └── versionCmd     (print the version)
//
// BOOTSTRAP:
//   Before any command but version runs, the root command:
//   1. Loads the main configuration (YAML, .env, DOLIBARR_* variables)
//   2. Applies the global flag overrides
//   3. Sets up logging (stderr plus a rotated log file)
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/catalog-to-dolibarr/internal/config"
	"github.com/ginjaninja78/catalog-to-dolibarr/internal/logging"
	"github.com/ginjaninja78/catalog-to-dolibarr/pkg/utils"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose enables debug output on stderr.
var verbose bool

// outputDirFlag overrides the configured output directory.
var outputDirFlag string

// app holds what the bootstrap built for the running command.
var app struct {
	cfg      *config.MainConfig
	logger   *slog.Logger
	closeLog func() error
}

// Terminal styles.
var (
	okStyle   = color.New(color.FgGreen)
	warnStyle = color.New(color.FgYellow)
	errStyle  = color.New(color.FgRed, color.Bold)
	headStyle = color.New(color.Bold)
)

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "dolibarr-converter",
	Short: "Catalog to Dolibarr Converter - Turn supplier catalogs into Dolibarr product imports",
	Long: `Catalog to Dolibarr Converter turns supplier catalogs into the XLSX files
the Dolibarr ERP product import expects.

Conversions:
  - Vendor XML feeds (Valkenpower) to product imports
  - Supplier spreadsheets (XLSX or CSV) to product imports, with automatic
    column detection
  - Reference lists to reference rename sheets
  - Price lists to price update sheets, with the other price leg recomputed
  - Dolibarr exports merged with translated labels

Large imports are split into several workbooks delivered as one ZIP.

Example Usage:
  dolibarr-converter process                         # Convert the input directory
  dolibarr-converter excel tarifs.xlsx --tax-rate 6  # Convert one spreadsheet
  dolibarr-converter refs refs.txt --ref-op add-prefix --ref-value VP-`,

	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == versionCmd.Name() {
			return nil
		}
		return bootstrap()
	},

	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if app.closeLog != nil {
			return app.closeLog()
		}
		return nil
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the CLI. It is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		errStyle.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"Path to the main configuration file (default is config.yaml when present)",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)

	rootCmd.PersistentFlags().StringVarP(
		&outputDirFlag,
		"output-dir",
		"o",
		"",
		"Write outputs to this directory instead of the configured one",
	)
}

// bootstrap loads the configuration and sets up logging.
func bootstrap() error {
	path := cfgFile
	if path == "" && utils.FileExists("config.yaml") {
		path = "config.yaml"
	}

	cfg, err := config.LoadMainConfig(path)
	if err != nil {
		return fmt.Errorf("failed to load main config: %w", err)
	}
	if outputDirFlag != "" {
		cfg.OutputDir = outputDirFlag
	}

	logger, closeLog, err := logging.Setup(logging.Settings{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		Format:     cfg.LogFormat,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	}, verbose, os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}

	app.cfg = cfg
	app.logger = logger
	app.closeLog = closeLog
	logger.Debug("configuration loaded", "file", path, "input_dir", cfg.InputDir, "output_dir", cfg.OutputDir)
	return nil
}

// newFileManager builds the file manager from the loaded configuration.
func newFileManager(cfg *config.MainConfig) *utils.FileManager {
	files := utils.NewFileManager(cfg.InputDir, cfg.OutputDir, cfg.InputArchiveDir, cfg.OutputArchiveDir)
	files.UseTimestampSubdirs = cfg.UseTimestampSubdirs
	files.ArchiveOnSuccess = cfg.ArchiveOnSuccess
	return files
}

// errConversionFailed is returned when at least one file failed.
var errConversionFailed = errors.New("conversion failed")
