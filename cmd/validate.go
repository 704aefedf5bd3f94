// =============================================================================
// Catalog to Dolibarr Converter - Validate Command
// =============================================================================
//
// This file defines the 'validate' command, which checks the configuration
// and every supplier profile without converting anything.
//
// COMMAND USAGE:
//   dolibarr-converter validate
//
// =============================================================================

package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/catalog-to-dolibarr/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration and the supplier profiles",
	Long: `The validate command loads the main configuration and every profile of the
profiles directory, and reports all problems at once. The main configuration
is already checked when the command starts.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate()
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate() error {
	cfg := app.cfg
	okStyle.Println("✓ Main configuration is valid")
	fmt.Printf("  Input:     %s\n", cfg.InputDir)
	fmt.Printf("  Output:    %s\n", cfg.OutputDir)
	fmt.Printf("  Profiles:  %s\n", cfg.ProfilesDir)

	profiles, err := config.LoadProfiles(cfg.ProfilesDir, cfg.Defaults)
	if err != nil {
		errStyle.Println("✗ Invalid profiles")
		return err
	}

	if len(profiles) == 0 {
		warnStyle.Printf("No profile found in %s\n", cfg.ProfilesDir)
		return nil
	}
	for _, p := range profiles {
		okStyle.Printf("✓ %s", p.Name)
		fmt.Printf(" (%s, %s) %s\n", p.Kind, filepath.Base(p.Path), strings.Join(p.FileMatchingPatterns, ", "))
	}
	return nil
}
