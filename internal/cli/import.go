package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/rshade/cryptoassets-importer/internal/config"
	"github.com/rshade/cryptoassets-importer/internal/engine/cache"
	"github.com/rshade/cryptoassets-importer/internal/importer"
	"github.com/rshade/cryptoassets-importer/internal/registry"
	"github.com/rshade/cryptoassets-importer/internal/tui"
)

// ErrUnknownImporter is returned when --only names an importer that is not configured.
var ErrUnknownImporter = errors.New("unknown importer")

// importFlags holds the flags of the import command.
type importFlags struct {
	json        bool
	format      string
	output      string
	concurrency int
	only        []string
	tickersURL  string
	noCache     bool
	progress    bool
	strict      bool
}

// NewImportCmd creates the import command.
func NewImportCmd() *cobra.Command {
	var flags importFlags

	cmd := &cobra.Command{
		Use:   "import <registry-folder>",
		Short: "Generate data files from a crypto-assets registry checkout",
		Long: `Reads <registry-folder>/assets/<path>/<id>/ for every configured importer,
loads the assets in bounded parallel batches, drops the ones that fail to load
or have no countervalue ticker, and writes one file per importer.`,
		Example: `  # Generate every configured importer
  assetimport import ../crypto-assets

  # JSON output into a custom folder
  assetimport import ../crypto-assets --json --output ./src/data

  # Fail the build when any asset could not be loaded
  assetimport import ../crypto-assets --strict`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, args[0], flags)
		},
	}

	cmd.Flags().BoolVar(&flags.json, "json", false, "write JSON output (same as --format json)")
	cmd.Flags().StringVar(&flags.format, "format", "", "output format: json or yaml (overrides config)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "output directory (overrides config)")
	cmd.Flags().IntVarP(&flags.concurrency, "concurrency", "c", 0, "assets loaded at once per importer (overrides config)")
	cmd.Flags().StringSliceVar(&flags.only, "only", nil, "run only these importers (comma-separated)")
	cmd.Flags().StringVar(&flags.tickersURL, "tickers-url", "", "countervalues tickers endpoint (overrides config)")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "bypass the registry response cache")
	cmd.Flags().BoolVar(&flags.progress, "progress", false, "show a progress bar when attached to a terminal")
	cmd.Flags().BoolVar(&flags.strict, "strict", false, "exit non-zero when any asset failed to load")

	return cmd
}

// runImport executes the import command.
func runImport(cmd *cobra.Command, registryDir string, flags importFlags) error {
	ctx := cmd.Context()
	cfg := config.GetGlobalConfig()

	settings, err := resolveImportSettings(cmd, cfg, flags)
	if err != nil {
		return err
	}

	if err = checkRegistryDir(registryDir); err != nil {
		return err
	}

	defs, err := selectImporters(cfg.Importers, flags.only)
	if err != nil {
		return err
	}

	tickers, err := loadTickers(ctx, cfg, settings, defs)
	if err != nil {
		return err
	}

	im, err := importer.New(importer.Options{
		RegistryDir:       registryDir,
		OutputDir:         settings.Import.OutputDir,
		Format:            settings.Import.Format,
		Concurrency:       settings.Import.Concurrency,
		ParallelImporters: settings.Import.ParallelImporters,
		Tickers:           tickers,
	})
	if err != nil {
		return err
	}

	var summary *importer.Summary
	if flags.progress && isTerminal(os.Stderr) {
		summary, err = runWithProgress(ctx, cmd, im, defs)
	} else {
		summary, err = im.Run(ctx, defs)
	}
	if err != nil {
		return err
	}

	_, _ = fmt.Fprint(cmd.OutOrStdout(), tui.RenderSummary(summary, tui.SummaryOptions{Color: isTerminal(os.Stdout)}))

	return importExitError(summary, flags.strict)
}

// resolveImportSettings applies the command flags to a copy of the configuration.
func resolveImportSettings(cmd *cobra.Command, cfg *config.Config, flags importFlags) (*config.Config, error) {
	settings := *cfg

	if flags.json {
		settings.Import.Format = config.FormatJSON
	}
	if cmd.Flags().Changed("format") {
		settings.Import.Format = strings.ToLower(flags.format)
	}
	if flags.json && cmd.Flags().Changed("format") && settings.Import.Format != config.FormatJSON {
		return nil, fmt.Errorf("--json conflicts with --format %s", flags.format)
	}
	if !config.IsKnownFormat(settings.Import.Format) {
		return nil, fmt.Errorf("unsupported output format %q (use json or yaml)", settings.Import.Format)
	}
	if flags.output != "" {
		settings.Import.OutputDir = flags.output
	}
	if cmd.Flags().Changed("concurrency") {
		if flags.concurrency < 1 {
			return nil, fmt.Errorf("--concurrency must be at least 1, got %d", flags.concurrency)
		}
		settings.Import.Concurrency = flags.concurrency
	}
	if cmd.Flags().Changed("tickers-url") {
		settings.Registry.TickersURL = flags.tickersURL
	}
	if flags.noCache {
		settings.Cache.Enabled = false
	}
	return &settings, nil
}

// checkRegistryDir verifies dir looks like a registry checkout.
func checkRegistryDir(dir string) error {
	info, err := os.Stat(filepath.Join(dir, "assets"))
	if err != nil {
		return fmt.Errorf("registry folder %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("registry folder %s: assets is not a directory", dir)
	}
	return nil
}

// selectImporters returns the configured importers, limited to only when given.
func selectImporters(list []config.ImporterConfig, only []string) ([]importer.Definition, error) {
	if len(only) == 0 {
		return importer.Definitions(list), nil
	}

	var selected []config.ImporterConfig
	for _, name := range only {
		name = strings.TrimSpace(name)
		idx := slices.IndexFunc(list, func(ic config.ImporterConfig) bool { return ic.Name == name })
		if idx < 0 {
			return nil, fmt.Errorf("%w %q", ErrUnknownImporter, name)
		}
		if !slices.ContainsFunc(selected, func(ic config.ImporterConfig) bool { return ic.Name == name }) {
			selected = append(selected, list[idx])
		}
	}
	return importer.Definitions(selected), nil
}

// loadTickers fetches the countervalue tickers when an importer needs them.
func loadTickers(
	ctx context.Context,
	cfg *config.Config,
	settings *config.Config,
	defs []importer.Definition,
) (*registry.Tickers, error) {
	needed := slices.ContainsFunc(defs, func(d importer.Definition) bool { return d.RequireTicker })
	if !needed {
		return nil, nil //nolint:nilnil // No importer validates tickers.
	}
	if settings.Registry.TickersURL == "" {
		logger.Warn().Ctx(ctx).Msg("no tickers URL configured, ticker validation is disabled")
		return nil, nil //nolint:nilnil // Validation explicitly disabled.
	}

	store, err := cache.NewFileStore(cfg.Cache.Directory, settings.Cache.Enabled, cfg.Cache.TTL)
	if err != nil {
		logger.Warn().Ctx(ctx).Err(err).Msg("registry cache unavailable")
		store, _ = cache.NewFileStore("", false, 0)
	}
	logger.Debug().
		Ctx(ctx).
		Bool("enabled", store.IsEnabled()).
		Str("directory", store.Directory()).
		Dur("ttl", store.TTL()).
		Msg("registry cache")

	client := registry.NewClient(settings.Registry.TickersURL, settings.Registry.Timeout).WithCache(store)
	tickers, err := client.FetchTickers(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching countervalue tickers: %w", err)
	}
	logger.Info().Ctx(ctx).Int("tickers", tickers.Len()).Msg("countervalue tickers loaded")
	return tickers, nil
}

// runWithProgress runs the import while a Bubble Tea progress bar renders on stderr.
// Quitting the bar cancels the run.
func runWithProgress(
	ctx context.Context,
	cmd *cobra.Command,
	im *importer.Importer,
	defs []importer.Definition,
) (*importer.Summary, error) {
	names := make([]string, 0, len(defs))
	for _, d := range defs {
		names = append(names, d.Name)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := tui.NewProgressModel(names)
	program := tea.NewProgram(model, tea.WithOutput(cmd.ErrOrStderr()), tea.WithContext(ctx))
	im.SetProgressFunc(tui.ProgressCallback(program))

	type result struct {
		summary *importer.Summary
		err     error
	}
	done := make(chan result, 1)
	go func() {
		summary, err := im.Run(ctx, defs)
		done <- result{summary, err}
		program.Send(tui.DoneMsg{})
	}()

	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		logger.Warn().Ctx(ctx).Err(err).Msg("progress display failed")
	}
	if model.Interrupted() {
		cancel()
	}

	res := <-done
	return res.summary, res.err
}

// importExitError converts a summary into the command's exit status.
func importExitError(summary *importer.Summary, strict bool) error {
	if !summary.HasFailures() {
		return nil
	}
	if failed := summary.FailedImporters(); len(failed) > 0 {
		names := make([]string, 0, len(failed))
		for _, r := range failed {
			names = append(names, r.Importer)
		}
		return &ImportFailedError{
			ExitCode: ExitImporterFailed,
			Reason:   fmt.Sprintf("%d importer(s) failed: %s", len(failed), strings.Join(names, ", ")),
		}
	}

	if strict {
		if totals := summary.Totals(); totals.Failed > 0 {
			return &ImportFailedError{
				ExitCode: ExitItemsFailed,
				Reason:   fmt.Sprintf("%d asset(s) failed to load", totals.Failed),
			}
		}
	}
	return nil
}
