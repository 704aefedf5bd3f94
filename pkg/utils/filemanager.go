// =============================================================================
// Catalog to Dolibarr Converter - File Manager Utility
// =============================================================================
//
// This module provides the file handling around a conversion:
//   - Input discovery in the input directory
//   - Output naming and writing (.xlsx or .zip)
//   - Archival of processed inputs and outputs
//   - Warning logs, JSON reports and run summaries
//
// ARCHIVAL STRATEGY:
//   - Input files are moved to input_archive after a successful conversion
//   - Output files are copied to output_archive for long-term storage
//   - Failed inputs stay where they are
//   - Warning logs and reports sit next to the output they describe
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/ginjaninja78/catalog-to-dolibarr/internal/validation"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const separatorLine = "================================================================================\n"

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager owns the catalog, output and archive directories of a run.
type FileManager struct {
	// InputDir receives the supplier catalogs to convert.
	InputDir string

	// OutputDir receives the Dolibarr workbooks, logs and reports.
	OutputDir string

	// InputArchiveDir keeps the catalogs that converted successfully.
	InputArchiveDir string

	// OutputArchiveDir keeps a copy of every delivered output.
	OutputArchiveDir string

	// UseTimestampSubdirs files archives under YYYY/MM/DD folders.
	// Example: input_archive/2024/01/15/catalog.xlsx
	UseTimestampSubdirs bool

	// ArchiveOnSuccess determines whether to archive files after a
	// successful conversion.
	ArchiveOnSuccess bool
}

// NewFileManager returns a FileManager over the four run directories.
func NewFileManager(inputDir, outputDir, inputArchiveDir, outputArchiveDir string) *FileManager {
	return &FileManager{
		InputDir:         inputDir,
		OutputDir:        outputDir,
		InputArchiveDir:  inputArchiveDir,
		OutputArchiveDir: outputArchiveDir,
		ArchiveOnSuccess: true,
	}
}

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDirectories creates the run directories that are missing.
// Archive directories are only created when archiving is on.
func (fm *FileManager) EnsureDirectories() error {
	dirs := []string{fm.InputDir, fm.OutputDir}
	if fm.ArchiveOnSuccess {
		dirs = append(dirs, fm.InputArchiveDir, fm.OutputArchiveDir)
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// DiscoverInputFiles scans the input directory for files matching any of
// the patterns.
//
// PARAMETERS:
//   - patterns: Glob patterns matched case-insensitively against file names.
//     No pattern matches every file.
//
// RETURNS:
//   - The matching file paths, sorted. Directories and hidden files are
//     skipped.
//   - An error if the directory cannot be read.
func (fm *FileManager) DiscoverInputFiles(patterns ...string) ([]string, error) {
	entries, err := os.ReadDir(fm.InputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan input directory: %w", err)
	}

	var result []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if matchesAny(name, patterns) {
			result = append(result, filepath.Join(fm.InputDir, name))
		}
	}

	sort.Strings(result)
	return result, nil
}

func matchesAny(name string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	lower := strings.ToLower(name)
	for _, pattern := range patterns {
		if ok, _ := filepath.Match(strings.ToLower(pattern), lower); ok {
			return true
		}
	}
	return false
}

// =============================================================================
// OUTPUT WRITING
// =============================================================================

// WriteOutput writes data to fileName inside the output directory.
//
// RETURNS:
//   - The path of the written file.
func (fm *FileManager) WriteOutput(fileName string, data []byte) (string, error) {
	if err := os.MkdirAll(fm.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	outputPath := filepath.Join(fm.OutputDir, fileName)
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return outputPath, nil
}

// =============================================================================
// FILE ARCHIVAL
// =============================================================================

// ArchiveInputFile moves a converted catalog out of the input directory.
//
// RETURNS:
//   - The path to the archived file (the original path when archiving is off).
//   - An error if archival fails.
func (fm *FileManager) ArchiveInputFile(filePath string) (string, error) {
	if !fm.ArchiveOnSuccess {
		return filePath, nil
	}

	archivePath := fm.getArchivePath(fm.InputArchiveDir, filePath)
	if err := os.MkdirAll(filepath.Dir(archivePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	if err := os.Rename(filePath, archivePath); err != nil {
		// Cross-device moves need a copy.
		if err := copyFile(filePath, archivePath); err != nil {
			return "", fmt.Errorf("failed to copy file to archive: %w", err)
		}
		if err := os.Remove(filePath); err != nil {
			return "", fmt.Errorf("failed to remove original file: %w", err)
		}
	}

	return archivePath, nil
}

// ArchiveOutputFile copies an output file to the archive directory. The
// output stays in place.
func (fm *FileManager) ArchiveOutputFile(filePath string) (string, error) {
	if !fm.ArchiveOnSuccess {
		return filePath, nil
	}

	archivePath := fm.getArchivePath(fm.OutputArchiveDir, filePath)
	if err := os.MkdirAll(filepath.Dir(archivePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	if err := copyFile(filePath, archivePath); err != nil {
		return "", fmt.Errorf("failed to copy file to archive: %w", err)
	}
	return archivePath, nil
}

// getArchivePath places filePath under archiveDir, in the day folder when enabled.
func (fm *FileManager) getArchivePath(archiveDir, filePath string) string {
	fileName := filepath.Base(filePath)

	if fm.UseTimestampSubdirs {
		now := time.Now()
		return filepath.Join(archiveDir, now.Format("2006"), now.Format("01"), now.Format("02"), fileName)
	}
	return filepath.Join(archiveDir, fileName)
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// GenerateOutputFileName builds an output file name from a pattern.
//
// PARAMETERS:
//   - format: The name pattern. Built-in placeholders:
//     {uuid}      - A random UUID
//     {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//     {date}      - Current date (YYYYMMDD)
//     {time}      - Current time (HHMMSS)
//   - params: Extra placeholder values, such as "original" or "kind".
//   - ext: The extension to enforce (".xlsx", ".zip").
//
// EXAMPLE:
//   format: "{original}_{kind}_{date}"
//   params: {"original": "tarifs", "kind": "dolibarr"}
//   ext:    ".zip"
//   output: "tarifs_dolibarr_20240115.zip"
func GenerateOutputFileName(format string, params map[string]string, ext string) string {
	now := time.Now()

	replacements := map[string]string{
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
		"{time}":      now.Format("150405"),
	}
	for key, value := range params {
		replacements["{"+key+"}"] = value
	}

	result := format
	if strings.Contains(result, "{uuid}") {
		result = strings.ReplaceAll(result, "{uuid}", uuid.New().String())
	}
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}

	if ext != "" && !strings.HasSuffix(strings.ToLower(result), strings.ToLower(ext)) {
		result += ext
	}
	return result
}

// BaseName returns the file name of path without its extension.
func BaseName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// =============================================================================
// WARNING LOG GENERATION
// =============================================================================

// WriteWarningLog writes the warnings of one conversion next to its output,
// as "<output name>_warnings.txt".
//
// PARAMETERS:
//   - warnings: The warnings to write.
//   - inputFile: The converted input, named in the header.
//   - outputPath: The output the warnings belong to.
//
// RETURNS:
//   - The path to the log, or "" when there is nothing to write.
//   - An error if writing fails.
func WriteWarningLog(warnings []validation.Warning, inputFile, outputPath string) (string, error) {
	if len(warnings) == 0 {
		return "", nil
	}

	logPath := filepath.Join(filepath.Dir(outputPath), BaseName(outputPath)+"_warnings.txt")
	file, err := os.Create(logPath)
	if err != nil {
		return "", fmt.Errorf("failed to create warning log: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	fmt.Fprintf(writer, "Catalog to Dolibarr Converter - Warning Log\n"+
		"Generated:      %s\n"+
		"Input:          %s\n"+
		"Output:         %s\n"+
		"Total Warnings: %d\n"+
		separatorLine+"\n",
		time.Now().Format("2006-01-02 15:04:05"),
		filepath.Base(inputFile),
		filepath.Base(outputPath),
		len(warnings))

	writer.WriteString(validation.FormatWarnings(warnings))
	writer.WriteString("\n" + separatorLine + "End of Warning Log\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush warning log: %w", err)
	}
	return logPath, nil
}

// =============================================================================
// JSON REPORTS
// =============================================================================

// Report is the machine-readable account of one conversion.
type Report struct {
	InputFile   string                  `json:"input_file"`
	OutputFile  string                  `json:"output_file"`
	Kind        string                  `json:"kind"`
	Profile     string                  `json:"profile,omitempty"`
	TotalRows   int                     `json:"total_rows"`
	FileCount   int                     `json:"file_count"`
	IsArchive   bool                    `json:"is_archive"`
	Warnings    []validation.Warning    `json:"warnings"`
	Counts      map[validation.Kind]int `json:"warning_counts"`
	GeneratedAt time.Time               `json:"generated_at"`
	Duration    string                  `json:"duration"`
}

// WriteReport writes report as "<output name>_report.json" next to the
// output.
func WriteReport(report Report) (string, error) {
	if report.Warnings == nil {
		report.Warnings = []validation.Warning{}
	}
	if report.Counts == nil {
		report.Counts = validation.CountByKind(report.Warnings)
	}

	reportPath := filepath.Join(filepath.Dir(report.OutputFile), BaseName(report.OutputFile)+"_report.json")
	if err := writeJSON(reportPath, report); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return reportPath, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

// =============================================================================
// PROCESSING SUMMARY
// =============================================================================

// ProcessingSummary aggregates the outcome of one process run.
type ProcessingSummary struct {
	StartTime       time.Time           `json:"start_time"`
	EndTime         time.Time           `json:"end_time"`
	TotalFiles      int                 `json:"total_files"`
	SuccessfulFiles int                 `json:"successful_files"`
	FailedFiles     int                 `json:"failed_files"`
	SkippedFiles    []string            `json:"skipped_files,omitempty"`
	TotalRows       int                 `json:"total_rows"`
	TotalWarnings   int                 `json:"total_warnings"`
	ProcessedFiles  []ProcessedFileInfo `json:"processed_files"`
	FailedFilesList []FailedFileInfo    `json:"failed_files_list"`
}

// ProcessedFileInfo contains information about a converted file.
type ProcessedFileInfo struct {
	InputFile   string        `json:"input_file"`
	OutputFile  string        `json:"output_file"`
	ArchivePath string        `json:"archive_path,omitempty"`
	Kind        string        `json:"kind"`
	Profile     string        `json:"profile"`
	Rows        int           `json:"rows"`
	FileCount   int           `json:"file_count"`
	Warnings    int           `json:"warnings"`
	ProcessTime time.Duration `json:"process_time_ns"`
}

// FailedFileInfo is a catalog whose conversion failed.
type FailedFileInfo struct {
	InputFile    string `json:"input_file"`
	ErrorMessage string `json:"error"`
}

// WriteSummaryLog writes a processing summary as text and as JSON, both
// named after the run start time.
//
// RETURNS:
//   - The path to the text summary.
//   - An error if writing fails.
func WriteSummaryLog(summary ProcessingSummary, outputDir string) (string, error) {
	stamp := summary.StartTime.Format("20060102_150405")
	summaryPath := filepath.Join(outputDir, fmt.Sprintf("processing_summary_%s.txt", stamp))

	file, err := os.Create(summaryPath)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	fmt.Fprintf(writer, "Catalog to Dolibarr Converter - Processing Summary\n"+
		separatorLine+"\n"+
		"Run Information:\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n\n"+
		"Statistics:\n"+
		"  Total Files:    %d\n"+
		"  Successful:     %d\n"+
		"  Failed:         %d\n"+
		"  Skipped:        %d\n"+
		"  Total Rows:     %d\n"+
		"  Total Warnings: %d\n\n",
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Sub(summary.StartTime).String(),
		summary.TotalFiles,
		summary.SuccessfulFiles,
		summary.FailedFiles,
		len(summary.SkippedFiles),
		summary.TotalRows,
		summary.TotalWarnings)

	if len(summary.ProcessedFiles) > 0 {
		writer.WriteString("Successful Files:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, pf := range summary.ProcessedFiles {
			fmt.Fprintf(writer, "  Input:        %s\n", pf.InputFile)
			fmt.Fprintf(writer, "  Output:       %s\n", pf.OutputFile)
			fmt.Fprintf(writer, "  Kind:         %s (%s)\n", pf.Kind, pf.Profile)
			fmt.Fprintf(writer, "  Rows:         %d in %d file(s)\n", pf.Rows, pf.FileCount)
			fmt.Fprintf(writer, "  Warnings:     %d\n", pf.Warnings)
			fmt.Fprintf(writer, "  Process Time: %s\n\n", pf.ProcessTime.String())
		}
	}

	if len(summary.FailedFilesList) > 0 {
		writer.WriteString("Failed Files:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, ff := range summary.FailedFilesList {
			fmt.Fprintf(writer, "  File:  %s\n", ff.InputFile)
			fmt.Fprintf(writer, "  Error: %s\n\n", ff.ErrorMessage)
		}
	}

	if len(summary.SkippedFiles) > 0 {
		writer.WriteString("Skipped Files (no matching profile):\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, name := range summary.SkippedFiles {
			fmt.Fprintf(writer, "  %s\n", name)
		}
		writer.WriteString("\n")
	}

	writer.WriteString(separatorLine + "End of Summary\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush summary file: %w", err)
	}

	jsonPath := strings.TrimSuffix(summaryPath, ".txt") + ".json"
	if err := writeJSON(jsonPath, summary); err != nil {
		return "", fmt.Errorf("failed to write summary JSON: %w", err)
	}

	return summaryPath, nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// copyFile copies src to dst, used when a rename crosses devices.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}
	return destFile.Sync()
}

// FileExists reports whether path exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// CleanOldArchives removes archive files older than maxAge.
//
// RETURNS:
//   - The number of files removed.
//   - An error if cleaning fails. A missing directory is not an error.
func CleanOldArchives(archiveDir string, maxAge time.Duration) (int, error) {
	if !FileExists(archiveDir) {
		return 0, nil
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	err := filepath.Walk(archiveDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err != nil {
				return err
			}
			removed++
		}
		return nil
	})

	if err != nil {
		return removed, fmt.Errorf("failed to clean archives: %w", err)
	}
	return removed, nil
}
