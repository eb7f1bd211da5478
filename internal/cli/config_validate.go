package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rshade/cryptoassets-importer/internal/config"
)

// NewConfigValidateCmd creates the config validate command for validating configuration.
func NewConfigValidateCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		Long: `Validates the configuration file for syntax and semantic correctness.

This includes:
- The config version against the supported range
- Import concurrency and output format
- Cache TTL and directory
- Importer definitions: unique names, relative paths, loaders and skip patterns`,
		Example: `  # Validate current configuration
  assetimport config validate

  # Validate and list the importers
  assetimport config validate --verbose`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigValidate(cmd, verbose)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show detailed validation information")

	return cmd
}

// runConfigValidate executes the configuration validation logic.
func runConfigValidate(cmd *cobra.Command, verbose bool) error {
	cfg := config.GetGlobalConfig()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	cmd.Printf("Configuration is valid\n")

	if verbose {
		printVerboseDetails(cmd, cfg)
	}
	return nil
}

// printVerboseDetails lists the effective import settings and importers.
func printVerboseDetails(cmd *cobra.Command, cfg *config.Config) {
	cmd.Printf("\nVersion:      %s\n", cfg.Version)
	cmd.Printf("Concurrency:  %d\n", cfg.Import.Concurrency)
	cmd.Printf("Output:       %s (%s)\n", cfg.Import.OutputDir, cfg.Import.Format)
	cmd.Printf("Tickers URL:  %s\n", cfg.Registry.TickersURL)
	cmd.Printf("\nImporters (%d):\n", len(cfg.Importers))
	for _, imp := range cfg.Importers {
		loader := imp.Loader
		if loader == "" {
			loader = config.LoaderJSON
		}
		cmd.Printf("  - %s [%s] %v\n", imp.Name, loader, imp.Paths)
	}
}

// NewConfigShowCmd creates the config show command, printing the effective configuration.
func NewConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Long:  "Prints the configuration after defaults, the config file and environment overrides are applied.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := config.GetGlobalConfig().Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
