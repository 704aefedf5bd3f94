// =============================================================================
// Catalog to Dolibarr Converter - Main Entry Point
// =============================================================================
//
// USAGE:
//   dolibarr-converter process      - Convert the input directory with profiles
//   dolibarr-converter excel FILE   - Convert one supplier spreadsheet
//   dolibarr-converter validate     - Check configuration and profiles
//   dolibarr-converter version      - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : CLI commands (Cobra)
//   - internal/  : Parsing, conversion and output logic
//   - pkg/       : File management and reports
//   - profiles/  : Supplier profiles (YAML)
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/catalog-to-dolibarr/cmd"
)

func main() {
	cmd.Execute()
}
