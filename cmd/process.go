// =============================================================================
// Catalog to Dolibarr Converter - Process Command
// =============================================================================
//
// This file defines the 'process' command, which converts every file of the
// input directory using the supplier profile its name matches.
//
// COMMAND USAGE:
//   dolibarr-converter process [flags]
//
// FLAGS:
//   --dry-run  : List the files and the profile each would use, then stop
//   --file     : Process only this file of the input directory
//   --profile  : Process only the files of this profile
//
// PROCESSING PIPELINE:
//   1. Load the supplier profiles
//   2. Discover the input files and match each to a profile
//   3. Convert the files concurrently (max_concurrency at a time)
//   4. Print and write the processing summary
//   5. Remove archives older than archive_retention_days
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ginjaninja78/catalog-to-dolibarr/internal/config"
	"github.com/ginjaninja78/catalog-to-dolibarr/internal/converter"
	"github.com/ginjaninja78/catalog-to-dolibarr/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// dryRun lists the planned conversions without running them.
var dryRun bool

// onlyFile restricts processing to one input file.
var onlyFile string

// onlyProfile restricts processing to the files of one profile.
var onlyProfile string

// =============================================================================
// PROCESS COMMAND DEFINITION
// =============================================================================

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Convert every file of the input directory",
	Long: `The process command scans the input directory, matches each file name to
a supplier profile and runs the conversion the profile describes.

Files are converted concurrently. Each file is independent: a failure is
reported and the other files are still converted, unless continue_on_error
is off.

On success:
  - The workbook (or ZIP of workbooks) is placed in the output directory
  - A warning log and a JSON report are written next to it
  - The input is moved to the input archive

On error:
  - The input stays in the input directory
  - The error is listed in the processing summary

Files no profile matches are skipped and listed in the summary.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().BoolVar(&dryRun, "dry-run", false, "List the planned conversions without running them")
	processCmd.Flags().StringVar(&onlyFile, "file", "", "Process only this file of the input directory")
	processCmd.Flags().StringVar(&onlyProfile, "profile", "", "Process only the files of this profile code")
}

// plannedJob pairs an input file with its converter job.
type plannedJob struct {
	profile *config.Profile
	job     converter.Job
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runProcess(ctx context.Context) error {
	cfg := app.cfg
	logger := app.logger
	summary := utils.ProcessingSummary{StartTime: time.Now()}

	headStyle.Println("=== Catalog to Dolibarr Converter ===")

	// =========================================================================
	// STEP 1: LOAD PROFILES
	// =========================================================================

	profiles, err := config.LoadProfiles(cfg.ProfilesDir, cfg.Defaults)
	if err != nil {
		return fmt.Errorf("failed to load profiles: %w", err)
	}
	if len(profiles) == 0 {
		warnStyle.Printf("No profile found in %s\n", cfg.ProfilesDir)
		return nil
	}
	fmt.Printf("Loaded %d profile(s)\n", len(profiles))

	// =========================================================================
	// STEP 2: DISCOVER AND MATCH INPUT FILES
	// =========================================================================

	files := newFileManager(cfg)
	if err := files.EnsureDirectories(); err != nil {
		return err
	}

	inputFiles, err := files.DiscoverInputFiles()
	if err != nil {
		return err
	}
	if onlyFile != "" {
		inputFiles = filterFile(inputFiles, onlyFile)
	}

	var plan []plannedJob
	for _, input := range inputFiles {
		profile := config.MatchProfile(profiles, filepath.Base(input))
		if profile == nil {
			summary.SkippedFiles = append(summary.SkippedFiles, input)
			logger.Debug("no profile matches", "file", input)
			continue
		}
		if onlyProfile != "" && !strings.EqualFold(profile.Code, onlyProfile) {
			continue
		}

		job, err := converter.JobFromProfile(input, profile)
		if err != nil {
			return err
		}
		plan = append(plan, plannedJob{profile: profile, job: job})
	}

	if len(plan) == 0 {
		fmt.Println("No file to process in the input directory.")
		return nil
	}
	fmt.Printf("Found %d file(s) to process\n", len(plan))

	if dryRun {
		for _, p := range plan {
			fmt.Printf("  %s -> %s (%s)\n", filepath.Base(p.job.InputPath), p.profile.Name, p.job.Kind)
		}
		for _, s := range summary.SkippedFiles {
			warnStyle.Printf("  %s -> no profile\n", filepath.Base(s))
		}
		return nil
	}

	// =========================================================================
	// STEP 3: PROCESS FILES CONCURRENTLY
	// =========================================================================
	// Each goroutine writes its own slot of results. Without
	// continue_on_error, the first failure cancels the files not started yet.

	results := make([]converter.Result, len(plan))
	started := make([]bool, len(plan))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.MaxConcurrency)

	for i, p := range plan {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			started[i] = true

			result := converter.New(p.job, files, cfg, logger).Run(gctx)
			results[i] = result

			if !result.Success {
				logger.Error("conversion failed", "file", p.job.InputPath, "profile", p.profile.Code, "error", result.Error)
				if !cfg.ContinueOnError {
					return fmt.Errorf("%s: %w", filepath.Base(p.job.InputPath), result.Error)
				}
			}
			return nil
		})
	}
	groupErr := g.Wait()

	// =========================================================================
	// STEP 4: COLLECT RESULTS AND WRITE SUMMARY
	// =========================================================================

	for i, p := range plan {
		if !started[i] {
			summary.SkippedFiles = append(summary.SkippedFiles, p.job.InputPath)
			continue
		}
		summary.TotalFiles++

		result := results[i]
		if !result.Success {
			summary.FailedFiles++
			summary.FailedFilesList = append(summary.FailedFilesList, utils.FailedFileInfo{
				InputFile:    result.FilePath,
				ErrorMessage: result.Error.Error(),
			})
			errStyle.Printf("  ✗ %s: %v\n", filepath.Base(result.FilePath), result.Error)
			continue
		}

		summary.SuccessfulFiles++
		summary.TotalRows += result.Stats.RowsProcessed
		summary.TotalWarnings += len(result.Warnings)
		summary.ProcessedFiles = append(summary.ProcessedFiles, utils.ProcessedFileInfo{
			InputFile:   result.FilePath,
			OutputFile:  result.OutputFile,
			ArchivePath: result.ArchivePath,
			Kind:        p.job.Kind,
			Profile:     p.profile.Code,
			Rows:        result.Stats.RowsProcessed,
			FileCount:   result.Stats.FileCount,
			Warnings:    len(result.Warnings),
			ProcessTime: result.Stats.ProcessingTime,
		})

		line := fmt.Sprintf("  ✓ %s -> %s", filepath.Base(result.FilePath), filepath.Base(result.OutputFile))
		if n := len(result.Warnings); n > 0 {
			okStyle.Print(line)
			warnStyle.Printf(" (%d warning(s))\n", n)
		} else {
			okStyle.Println(line)
		}
	}
	summary.EndTime = time.Now()

	fmt.Println()
	headStyle.Println("=== Processing Complete ===")
	fmt.Printf("Total files:     %d\n", summary.TotalFiles)
	okStyle.Printf("Successful:      %d\n", summary.SuccessfulFiles)
	if summary.FailedFiles > 0 {
		errStyle.Printf("Errors:          %d\n", summary.FailedFiles)
	} else {
		fmt.Printf("Errors:          %d\n", summary.FailedFiles)
	}
	fmt.Printf("Skipped:         %d\n", len(summary.SkippedFiles))
	fmt.Printf("Rows:            %d\n", summary.TotalRows)
	fmt.Printf("Warnings:        %d\n", summary.TotalWarnings)
	fmt.Printf("Time elapsed:    %s\n", summary.EndTime.Sub(summary.StartTime).Round(time.Millisecond))

	if summaryPath, err := utils.WriteSummaryLog(summary, cfg.OutputDir); err != nil {
		logger.Warn("failed to write summary", "error", err)
	} else {
		fmt.Printf("Summary:         %s\n", summaryPath)
	}

	// =========================================================================
	// STEP 5: ARCHIVE RETENTION
	// =========================================================================

	if cfg.ArchiveRetentionDays > 0 {
		maxAge := time.Duration(cfg.ArchiveRetentionDays) * 24 * time.Hour
		for _, dir := range []string{cfg.InputArchiveDir, cfg.OutputArchiveDir} {
			removed, err := utils.CleanOldArchives(dir, maxAge)
			if err != nil {
				logger.Warn("failed to clean archives", "dir", dir, "error", err)
				continue
			}
			if removed > 0 {
				logger.Info("removed old archives", "dir", dir, "count", removed)
			}
		}
	}

	if groupErr != nil {
		return groupErr
	}
	if summary.FailedFiles > 0 {
		return fmt.Errorf("%w: %d of %d file(s)", errConversionFailed, summary.FailedFiles, summary.TotalFiles)
	}
	return nil
}

// filterFile keeps the input whose name or path equals name.
func filterFile(inputs []string, name string) []string {
	for _, input := range inputs {
		if input == name || strings.EqualFold(filepath.Base(input), filepath.Base(name)) {
			return []string{input}
		}
	}
	return nil
}
