package importer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/rshade/cryptoassets-importer/internal/config"
	"github.com/rshade/cryptoassets-importer/internal/engine/batch"
	"github.com/rshade/cryptoassets-importer/internal/logging"
	"github.com/rshade/cryptoassets-importer/internal/registry"
)

// Option errors.
var (
	ErrNoRegistryDir = errors.New("registry folder is required")
	ErrNoOutputDir   = errors.New("output directory is required")
)

// ProgressFunc receives runner progress for one importer.
type ProgressFunc func(importer string, snapshot batch.ProgressSnapshot)

// Options configure an Importer.
type Options struct {
	// RegistryDir is the root of a crypto-assets registry checkout.
	RegistryDir string
	OutputDir   string
	Format      string

	// Concurrency bounds the assets loaded at once within one importer.
	Concurrency int

	// ParallelImporters bounds the importers run at once (0 = all).
	ParallelImporters int

	// Tickers validates importers with RequireTicker. When nil that
	// validation is skipped.
	Tickers *registry.Tickers

	OnProgress ProgressFunc
}

// Importer runs importer definitions against a registry checkout.
type Importer struct {
	opts Options
	now  func() time.Time
}

// New validates opts and returns an Importer.
func New(opts Options) (*Importer, error) {
	if opts.RegistryDir == "" {
		return nil, ErrNoRegistryDir
	}
	if opts.OutputDir == "" {
		return nil, ErrNoOutputDir
	}
	if opts.Format == "" {
		opts.Format = config.DefaultFormat
	}
	if !config.IsKnownFormat(opts.Format) {
		return nil, fmt.Errorf("unsupported output format %q", opts.Format)
	}
	if opts.Concurrency < 1 {
		return nil, fmt.Errorf("%w: got %d", batch.ErrInvalidConcurrency, opts.Concurrency)
	}
	if opts.ParallelImporters < 0 {
		return nil, fmt.Errorf("%w: parallel importers %d", batch.ErrInvalidConcurrency, opts.ParallelImporters)
	}
	return &Importer{opts: opts, now: time.Now}, nil
}

// SetProgressFunc replaces the progress callback. It must not be called
// while Run is in progress.
func (im *Importer) SetProgressFunc(fn ProgressFunc) {
	im.opts.OnProgress = fn
}

// Run executes every definition and returns one Report per definition in
// input order. Importer failures are recorded in their reports; the returned
// error is non-nil only for problems that prevent the run from starting.
func (im *Importer) Run(ctx context.Context, defs []Definition) (*Summary, error) {
	start := im.now()
	summary := &Summary{
		RunID:     ulid.Make().String(),
		StartedAt: start,
	}

	log := logging.FromContext(ctx).With().
		Str("component", "importer").
		Str("run_id", summary.RunID).
		Logger()
	ctx = log.WithContext(ctx)

	window := im.opts.ParallelImporters
	if window == 0 {
		window = max(len(defs), 1)
	}
	runner, err := batch.NewRunner[Definition, Report](window)
	if err != nil {
		return nil, err
	}

	log.Info().
		Ctx(ctx).
		Str("registry", im.opts.RegistryDir).
		Str("output_dir", im.opts.OutputDir).
		Int("importers", len(defs)).
		Int("parallel_importers", runner.Concurrency()).
		Int("concurrency", im.opts.Concurrency).
		Msg("import started")

	outcomes, err := runner.Run(ctx, defs, func(ctx context.Context, def Definition, _ int) (Report, error) {
		return im.runOne(ctx, def), nil
	})
	if err != nil {
		return nil, err
	}

	summary.Reports = make([]Report, len(outcomes))
	for i, o := range outcomes {
		if o.OK() {
			summary.Reports[i] = o.Value
			continue
		}
		// Only a panic inside runOne lands here.
		summary.Reports[i] = Report{Importer: defs[i].Name, Err: o.Err}
	}
	summary.Duration = im.now().Sub(start)

	totals := summary.Totals()
	log.Info().
		Ctx(ctx).
		Int("loaded", totals.Loaded).
		Int("failed", totals.Failed).
		Int("dropped", totals.Dropped).
		Int("failed_importers", len(summary.FailedImporters())).
		Dur("duration", summary.Duration).
		Msg("import completed")

	return summary, nil
}

// runOne executes a single definition.
func (im *Importer) runOne(ctx context.Context, def Definition) Report {
	start := im.now()
	report := Report{Importer: def.Name}

	log := logging.FromContext(ctx).With().Str("importer", def.Name).Logger()
	ctx = log.WithContext(ctx)

	fail := func(err error) Report {
		report.Err = err
		report.Duration = im.now().Sub(start)
		log.Error().Ctx(ctx).Err(err).Msg("importer failed")
		return report
	}

	load, err := loaderFor(def)
	if err != nil {
		return fail(err)
	}

	var sources []Source
	for _, p := range def.Paths {
		found, discoverErr := discover(ctx, im.opts.RegistryDir, def, p)
		if discoverErr != nil {
			return fail(discoverErr)
		}
		sources = append(sources, found...)
	}
	report.Discovered = len(sources)

	runner, err := batch.NewRunner[Source, Asset](im.opts.Concurrency)
	if err != nil {
		return fail(err)
	}
	runner.WithFailureCallback(func(ctx context.Context, src Source, _ int, loadErr error) {
		logging.FromContext(ctx).Warn().
			Ctx(ctx).
			Str("path", src.Path).
			Str("id", src.ID).
			Err(loadErr).
			Msgf("FAILED %s", src.ID)
	})
	if im.opts.OnProgress != nil {
		runner.WithProgressCallback(func(snap batch.ProgressSnapshot) {
			im.opts.OnProgress(def.Name, snap)
		})
	}

	outcomes, err := runner.Run(ctx, sources, func(ctx context.Context, src Source, _ int) (Asset, error) {
		return load(ctx, src)
	})
	if err != nil {
		return fail(err)
	}

	assets := batch.Values(outcomes)
	report.Failed = len(batch.Failures(outcomes))
	if report.Failed > 0 {
		log.Debug().
			Ctx(ctx).
			Err(batch.Errs(outcomes)).
			Int("failed", report.Failed).
			Msg("asset load failures")
	}

	// A cancelled run keeps the previous output instead of a partial one.
	if err = ctx.Err(); err != nil {
		return fail(err)
	}

	assets = im.validate(ctx, def, assets)
	data, kept := join(ctx, def, assets)
	report.Dropped = report.Discovered - report.Failed - kept

	out := filepath.Join(im.opts.OutputDir, def.OutputFile(im.opts.Format))
	if err = WriteFile(out, im.opts.Format, data); err != nil {
		return fail(err)
	}

	report.Loaded = kept
	report.Output = out
	report.Duration = im.now().Sub(start)

	log.Info().
		Ctx(ctx).
		Int("discovered", report.Discovered).
		Int("loaded", report.Loaded).
		Int("failed", report.Failed).
		Int("dropped", report.Dropped).
		Str("output", out).
		Msg("importer completed")

	return report
}

// validate drops assets without a known countervalue ticker when the
// definition requires one.
func (im *Importer) validate(ctx context.Context, def Definition, assets []Asset) []Asset {
	if !def.RequireTicker {
		return assets
	}
	if im.opts.Tickers == nil {
		logging.FromContext(ctx).Warn().
			Ctx(ctx).
			Msg("no tickers available, skipping ticker validation")
		return assets
	}

	return batch.Filter(assets, func(a Asset) bool {
		if im.opts.Tickers.Has(a.Ticker()) {
			return true
		}
		logging.FromContext(ctx).Debug().
			Ctx(ctx).
			Str("id", a.ID).
			Str("ticker", a.Ticker()).
			Msg("dropping asset without countervalue")
		return false
	})
}

// join orders assets by (path, id) and builds the document to write: a list
// of records, or an object keyed by id with KeyByID. The second return is the
// number of assets in the document.
func join(ctx context.Context, def Definition, assets []Asset) (any, int) {
	pathOrder := make(map[string]int, len(def.Paths))
	for i, p := range def.Paths {
		if _, ok := pathOrder[p]; !ok {
			pathOrder[p] = i
		}
	}
	sort.SliceStable(assets, func(i, j int) bool {
		pi, pj := pathOrder[assets[i].Path], pathOrder[assets[j].Path]
		if pi != pj {
			return pi < pj
		}
		return assets[i].ID < assets[j].ID
	})

	if !def.KeyByID {
		list := make([]map[string]any, 0, len(assets))
		for _, a := range assets {
			list = append(list, a.Record())
		}
		return list, len(list)
	}

	byID := make(map[string]map[string]any, len(assets))
	for _, a := range assets {
		if _, dup := byID[a.ID]; dup {
			logging.FromContext(ctx).Warn().
				Ctx(ctx).
				Str("id", a.ID).
				Str("path", a.Path).
				Msg("duplicate asset id, keeping the first")
			continue
		}
		byID[a.ID] = a.Record()
	}
	return byID, len(byID)
}
