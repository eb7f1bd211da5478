package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rshade/cryptoassets-importer/internal/config"
	"github.com/rshade/cryptoassets-importer/internal/logging"
)

// annotationSkipConfig marks commands that must run even when the config file
// cannot be loaded.
const annotationSkipConfig = "assetimport/skip-config"

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// logger is the package-level logger for CLI operations.
var logger zerolog.Logger //nolint:gochecknoglobals // Required for zerolog context integration

// NewRootCmd creates the root Cobra command for the assetimport CLI.
func NewRootCmd(ver string) *cobra.Command {
	return NewRootCmdWithEnv(ver, os.LookupEnv)
}

// NewRootCmdWithEnv creates the root command with an explicit env lookup for testability.
func NewRootCmdWithEnv(ver string, lookupEnv func(string) (string, bool)) *cobra.Command {
	var logResult *logging.LogPathResult

	cmd := &cobra.Command{
		Use:   "assetimport",
		Short: "Generate crypto-assets data files from a registry checkout",
		Long: `assetimport reads a checkout of the crypto-assets registry and generates
the token and currency data files, loading assets in bounded parallel batches.`,
		Version:       ver,
		Example:       rootCmdExample,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadConfig(cmd, lookupEnv); err != nil {
				if cmd.Annotations[annotationSkipConfig] == "" {
					return err
				}
				config.SetGlobalConfig(config.NewWithEnv(lookupEnv))
			}

			result := setupLogging(cmd)
			logResult = &result
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return cleanupLogging(cmd, logResult)
		},
	}

	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	cmd.PersistentFlags().String("config", "", "config file (default $ASSETIMPORT_HOME/config.yaml)")
	cmd.PersistentFlags().String("log-format", "", "log format: console or json (overrides config)")
	cmd.AddCommand(NewImportCmd(), newConfigCmd(lookupEnv), newCacheCmd())

	return cmd
}

// loadConfig reads the config file named by --config (or the default path)
// and installs it as the global configuration.
func loadConfig(cmd *cobra.Command, lookupEnv func(string) (string, bool)) error {
	path, err := configPath(cmd, lookupEnv)
	if err != nil {
		return err
	}

	cfg, err := config.LoadWithEnv(path, lookupEnv)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	config.SetGlobalConfig(cfg)
	return nil
}

// configPath returns the --config flag value or the default config location.
func configPath(cmd *cobra.Command, lookupEnv func(string) (string, bool)) (string, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return path, nil
	}
	return config.DefaultPathWithEnv(lookupEnv)
}

const rootCmdExample = `  # Generate every data file from a registry checkout
  assetimport import ../crypto-assets

  # Generate JSON instead of the configured format
  assetimport import ../crypto-assets --json

  # Only regenerate two importers with a smaller batch window
  assetimport import ../crypto-assets --only erc20,bep20 --concurrency 10

  # Write a default configuration file
  assetimport config init`

// newConfigCmd creates the config command group with configuration subcommands.
func newConfigCmd(lookupEnv func(string) (string, bool)) *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Configuration management commands"}
	cmd.AddCommand(NewConfigInitCmd(lookupEnv), NewConfigValidateCmd(), NewConfigShowCmd())
	return cmd
}

// newCacheCmd creates the cache command group.
func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "cache", Short: "Registry response cache commands"}
	cmd.AddCommand(NewCacheClearCmd())
	return cmd
}
