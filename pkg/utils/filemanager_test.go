package utils

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/catalog-to-dolibarr/internal/validation"
)

func newTestManager(t *testing.T) *FileManager {
	t.Helper()
	root := t.TempDir()
	fm := NewFileManager(
		filepath.Join(root, "input"),
		filepath.Join(root, "output"),
		filepath.Join(root, "input_archive"),
		filepath.Join(root, "output_archive"),
	)
	require.NoError(t, fm.EnsureDirectories())
	return fm
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
}

func TestDiscoverInputFiles(t *testing.T) {
	fm := newTestManager(t)
	for _, name := range []string{"b.xlsx", "A.XLSX", "feed.xml", ".hidden.xlsx", "notes.txt"} {
		touch(t, filepath.Join(fm.InputDir, name))
	}
	require.NoError(t, os.Mkdir(filepath.Join(fm.InputDir, "sub.xlsx"), 0755))

	files, err := fm.DiscoverInputFiles("*.xlsx", "*.xml")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(fm.InputDir, "A.XLSX"),
		filepath.Join(fm.InputDir, "b.xlsx"),
		filepath.Join(fm.InputDir, "feed.xml"),
	}, files)

	all, err := fm.DiscoverInputFiles()
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestWriteOutputAndArchive(t *testing.T) {
	fm := newTestManager(t)
	fm.UseTimestampSubdirs = true

	input := filepath.Join(fm.InputDir, "tarifs.xlsx")
	touch(t, input)

	out, err := fm.WriteOutput("tarifs_dolibarr.xlsx", []byte("data"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fm.OutputDir, "tarifs_dolibarr.xlsx"), out)

	archived, err := fm.ArchiveInputFile(input)
	require.NoError(t, err)
	assert.NoFileExists(t, input)
	assert.FileExists(t, archived)
	assert.Contains(t, archived, filepath.Join(fm.InputArchiveDir, time.Now().Format("2006")))

	copied, err := fm.ArchiveOutputFile(out)
	require.NoError(t, err)
	assert.FileExists(t, out)
	assert.FileExists(t, copied)
}

func TestArchiveDisabled(t *testing.T) {
	fm := newTestManager(t)
	fm.ArchiveOnSuccess = false

	input := filepath.Join(fm.InputDir, "tarifs.xlsx")
	touch(t, input)

	got, err := fm.ArchiveInputFile(input)
	require.NoError(t, err)
	assert.Equal(t, input, got)
	assert.FileExists(t, input)
}

func TestGenerateOutputFileName(t *testing.T) {
	name := GenerateOutputFileName("{original}_{kind}", map[string]string{"original": "tarifs", "kind": "dolibarr"}, ".zip")
	assert.Equal(t, "tarifs_dolibarr.zip", name)

	name = GenerateOutputFileName("export.XLSX", nil, ".xlsx")
	assert.Equal(t, "export.XLSX", name)

	name = GenerateOutputFileName("{uuid}_{date}", nil, ".xlsx")
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f-]{36}_\d{8}\.xlsx$`), name)
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "catalog", BaseName("/in/catalog.xlsx"))
	assert.Equal(t, "archive.tar", BaseName("archive.tar.gz"))
}

func TestWriteWarningLog(t *testing.T) {
	fm := newTestManager(t)
	out := filepath.Join(fm.OutputDir, "tarifs_dolibarr.xlsx")

	path, err := WriteWarningLog(nil, "tarifs.xlsx", out)
	require.NoError(t, err)
	assert.Empty(t, path)

	warnings := []validation.Warning{
		{Kind: validation.KindMissingRef, Row: 2, Message: "Ligne 2: référence manquante"},
		{Kind: validation.KindMissingLabel, Row: 2, Message: "Ligne 2: libellé manquant"},
	}
	path, err = WriteWarningLog(warnings, "tarifs.xlsx", out)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fm.OutputDir, "tarifs_dolibarr_warnings.txt"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(content)
	assert.Contains(t, text, "Total Warnings: 2")
	assert.Contains(t, text, "[missing_ref] Ligne 2: référence manquante")
	assert.Contains(t, text, "missing_label: 1")
	assert.True(t, strings.HasSuffix(text, "End of Warning Log\n"))
}

func TestWriteReport(t *testing.T) {
	fm := newTestManager(t)

	path, err := WriteReport(Report{
		InputFile:  "feed.xml",
		OutputFile: filepath.Join(fm.OutputDir, "feed_dolibarr.zip"),
		Kind:       "valkenpower",
		TotalRows:  1601,
		FileCount:  3,
		IsArchive:  true,
		Warnings:   []validation.Warning{{Kind: validation.KindMissingPrice, Row: 4, Ref: "M4", Message: "Pas de prix pour M4"}},
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fm.OutputDir, "feed_dolibarr_report.json"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(content, &decoded))
	assert.Equal(t, float64(1601), decoded["total_rows"])
	assert.Equal(t, true, decoded["is_archive"])
	assert.Equal(t, map[string]any{"missing_price": float64(1)}, decoded["warning_counts"])
	assert.Equal(t, "missing_price", decoded["warnings"].([]any)[0].(map[string]any)["type"])
}

func TestWriteSummaryLog(t *testing.T) {
	fm := newTestManager(t)
	start := time.Date(2024, 1, 15, 14, 30, 22, 0, time.UTC)

	path, err := WriteSummaryLog(ProcessingSummary{
		StartTime:       start,
		EndTime:         start.Add(3 * time.Second),
		TotalFiles:      3,
		SuccessfulFiles: 1,
		FailedFiles:     1,
		SkippedFiles:    []string{"notes.txt"},
		ProcessedFiles:  []ProcessedFileInfo{{InputFile: "a.xlsx", OutputFile: "a_dolibarr.xlsx", Kind: "excel", Profile: "acme", Rows: 10, FileCount: 1}},
		FailedFilesList: []FailedFileInfo{{InputFile: "b.xml", ErrorMessage: "XML parsing error"}},
	}, fm.OutputDir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fm.OutputDir, "processing_summary_20240115_143022.txt"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Duration:       3s")
	assert.Contains(t, string(content), "Error: XML parsing error")
	assert.Contains(t, string(content), "  notes.txt\n")
	assert.FileExists(t, filepath.Join(fm.OutputDir, "processing_summary_20240115_143022.json"))
}

func TestCleanOldArchives(t *testing.T) {
	fm := newTestManager(t)
	old := filepath.Join(fm.OutputArchiveDir, "old.xlsx")
	fresh := filepath.Join(fm.OutputArchiveDir, "fresh.xlsx")
	touch(t, old)
	touch(t, fresh)
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	removed, err := CleanOldArchives(fm.OutputArchiveDir, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.NoFileExists(t, old)
	assert.FileExists(t, fresh)

	removed, err = CleanOldArchives(filepath.Join(fm.OutputArchiveDir, "missing"), time.Hour)
	require.NoError(t, err)
	assert.Zero(t, removed)
}
