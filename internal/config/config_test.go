package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/catalog-to-dolibarr/internal/pricing"
	"github.com/ginjaninja78/catalog-to-dolibarr/internal/refops"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadMainConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadMainConfig("")
	require.NoError(t, err)

	assert.Equal(t, "./output", cfg.OutputDir)
	assert.Equal(t, 4, cfg.MaxConcurrency)
	assert.Equal(t, DefaultOptions(), cfg.Defaults)
	assert.DirExists(t, "output")
	assert.DirExists(t, "input")
}

func TestLoadMainConfigFileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
input_dir: `+filepath.Join(dir, "in")+`
output_dir: `+filepath.Join(dir, "out")+`
log_level: debug
max_concurrency: 0
defaults:
  tax_rate: 6
  language: nl
  include_url: false
`)
	writeFile(t, dir, ".env", "DOLIBARR_WEIGHT_SOURCE=product\n")
	t.Setenv("DOLIBARR_TAX_RATE", "12")
	t.Cleanup(func() { os.Unsetenv("DOLIBARR_WEIGHT_SOURCE") })

	cfg, err := LoadMainConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 4, cfg.MaxConcurrency, "non-positive concurrency falls back to the default")
	assert.Equal(t, 12.0, cfg.Defaults.TaxRate, "environment wins over the file")
	assert.Equal(t, "nl", cfg.Defaults.Language)
	assert.Equal(t, "product", cfg.Defaults.WeightSource)
	assert.False(t, cfg.Defaults.IncludeURL)
	assert.True(t, cfg.Defaults.IncludeBarcode, "keys absent from the file keep their default")
	assert.Equal(t, "HT", cfg.Defaults.PriceBaseType)
}

func TestLoadMainConfigReportsEveryProblem(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
output_dir: `+filepath.Join(dir, "out")+`
log_level: loud
defaults:
  tax_rate: -1
  price_base_type: NET
  language: IT
`)

	_, err := LoadMainConfig(path)
	require.Error(t, err)
	for _, want := range []string{"log_level", "tax_rate", "price_base_type", "language"} {
		assert.ErrorContains(t, err, want)
	}
}

func TestLoadMainConfigMissingFile(t *testing.T) {
	_, err := LoadMainConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestOperationsBuild(t *testing.T) {
	op, err := (&RefOperation{Kind: "add-prefix", Value: 42}).Build()
	require.NoError(t, err)
	assert.Equal(t, refops.AddPrefix{Prefix: "42"}, op)

	_, err = (&RefOperation{Kind: "add-prefix"}).Build()
	assert.Error(t, err)

	_, err = (&RefOperation{Kind: "rotate"}).Build()
	assert.Error(t, err)

	price, target, err := (&PriceOperation{Kind: "increase-percent", Value: 10.5, Target: "ttc"}).Build()
	require.NoError(t, err)
	assert.Equal(t, pricing.IncreasePercent{Percent: 10.5}, price)
	assert.Equal(t, pricing.TargetTTC, target)

	price, target, err = (&PriceOperation{Kind: "decrease-fixed", Value: "2"}).Build()
	require.NoError(t, err)
	assert.Equal(t, pricing.DecreaseFixed{Amount: 2}, price)
	assert.Equal(t, pricing.TargetHT, target)

	_, _, err = (&PriceOperation{Kind: "decrease-fixed", Value: -2}).Build()
	assert.Error(t, err)

	_, _, err = (&PriceOperation{Kind: "decrease-fixed", Value: "abc"}).Build()
	assert.Error(t, err)
}

func TestLoadProfiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b_valken.yaml", `
name: Valkenpower
kind: valkenpower
file_matching_patterns: ["valken*.xml"]
options:
  language: EN
  ref_operation:
    kind: add-prefix
    value: VP-
`)
	writeFile(t, dir, "a_supplier.yml", `
kind: excel
file_matching_patterns: ["*.xlsx", "*.csv"]
sheet: Tarifs
column_overrides:
  - header: Code
    target: ref
csv_settings:
  delimiter: ";"
  encoding: windows-1252
`)

	defaults := DefaultOptions()
	profiles, err := LoadProfiles(dir, defaults)
	require.NoError(t, err)
	require.Len(t, profiles, 2)

	supplier, valken := profiles[0], profiles[1]

	assert.Equal(t, "a_supplier", supplier.Code)
	assert.Equal(t, "a_supplier", supplier.Name)
	assert.Equal(t, defaults, supplier.Options)
	assert.Equal(t, []ColumnOverride{{Header: "Code", Target: "ref"}}, supplier.ColumnOverrides)
	assert.Equal(t, ";", supplier.CSVSettings.Delimiter)

	assert.Equal(t, "Valkenpower", valken.Name)
	assert.Equal(t, "EN", valken.Options.Language)
	assert.Equal(t, 21.0, valken.Options.TaxRate)
	require.NotNil(t, valken.Options.RefOperation)
	assert.Equal(t, "VP-", valken.Options.RefOperation.Value)

	assert.Same(t, valken, MatchProfile(profiles, "/in/VALKEN_2024.xml"))
	assert.Same(t, supplier, MatchProfile(profiles, "tarifs.CSV"))
	assert.Nil(t, MatchProfile(profiles, "notes.txt"))
}

func TestLoadProfilesMissingDirectory(t *testing.T) {
	profiles, err := LoadProfiles(filepath.Join(t.TempDir(), "absent"), DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, profiles)
}

func TestLoadProfilesValidation(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.yaml", `
kind: fusion
options:
  weight_source: box
`)
	writeFile(t, dir, "refs.yaml", `
kind: refs
file_matching_patterns: ["refs*.txt"]
`)

	_, err := LoadProfiles(dir, DefaultOptions())
	require.Error(t, err)
	for _, want := range []string{
		"bad.yaml", "file_matching_patterns", "fusion.source", "fusion.columns", "weight_source",
		"refs.yaml", "ref_operation",
	} {
		assert.ErrorContains(t, err, want)
	}
}

func TestResolveOptionsDoesNotAlterDefaults(t *testing.T) {
	defaults := DefaultOptions()
	defaults.RefOperation = &RefOperation{Kind: "add-prefix", Value: "A"}

	dir := t.TempDir()
	writeFile(t, dir, "p.yaml", `
kind: excel
file_matching_patterns: ["*.xlsx"]
options:
  ref_operation:
    value: B
`)

	profiles, err := LoadProfiles(dir, defaults)
	require.NoError(t, err)
	assert.Equal(t, "B", profiles[0].Options.RefOperation.Value)
	assert.Equal(t, "add-prefix", profiles[0].Options.RefOperation.Kind)
	assert.Equal(t, "A", defaults.RefOperation.Value)
}
