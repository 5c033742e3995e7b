// Package coverage runs the endpoint coverage pipeline: fetch the remote
// sources, extract every inventory, align and merge them, check them against
// each other and splice the resulting table into the report document.
package coverage

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/PentesterFlow/apicoverage/internal/cache"
	"github.com/PentesterFlow/apicoverage/internal/errors"
	"github.com/PentesterFlow/apicoverage/internal/fetch"
	"github.com/PentesterFlow/apicoverage/internal/logger"
	"github.com/PentesterFlow/apicoverage/internal/metrics"
	"github.com/PentesterFlow/apicoverage/internal/output"
	"github.com/PentesterFlow/apicoverage/internal/parser"
	"github.com/PentesterFlow/apicoverage/internal/progress"
	"github.com/PentesterFlow/apicoverage/internal/reconcile"
	"github.com/PentesterFlow/apicoverage/internal/scope"
)

// Runner is the coverage pipeline orchestrator.
type Runner struct {
	config    *Config
	logger    *logger.Logger
	metrics   *metrics.Collector
	fetcher   fetch.Fetcher
	cache     cache.Cache
	ownsCache bool
	sourceFS  fs.FS
	scope     *scope.Checker
	client    *fetch.Client
	progress  *progress.Display
}

// New creates a new runner with the given options.
func New(opts ...Option) (*Runner, error) {
	r := &Runner{
		config:    DefaultConfig(),
		ownsCache: true,
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	// Validate config
	if err := r.config.Validate(); err != nil {
		return nil, errors.NewConfigError("invalid configuration", err)
	}

	if r.logger == nil {
		logLevel := logger.InfoLevel
		if r.config.Debug || r.config.Verbose {
			logLevel = logger.DebugLevel
		}
		cfg := logger.DefaultConfig()
		cfg.Level = logLevel
		cfg.Component = "coverage"
		r.logger = logger.New(cfg)
	}

	if r.metrics == nil {
		r.metrics = metrics.New()
	}

	checker, err := scope.NewChecker(r.config.Filter)
	if err != nil {
		return nil, errors.NewConfigError("invalid filter", err)
	}
	r.scope = checker

	if r.fetcher == nil {
		r.client = fetch.NewClient(r.config.HTTP)
		r.client.SetMetrics(r.metrics)
		r.fetcher = r.client
	}

	if r.cache == nil {
		c, err := cache.New(r.config.Cache.Backend, r.config.Cache.Dir, r.config.Cache.Compress)
		if err != nil {
			return nil, errors.NewConfigError("failed to open cache", err)
		}
		r.cache = c
		r.ownsCache = true
	}

	return r, nil
}

// Stages lists the pipeline stages reported to the progress display. Build
// runs all but the last.
var Stages = []string{"extract", "rename", "merge", "check", "filter", "render", "write"}

// Config returns the effective configuration.
func (r *Runner) Config() *Config {
	return r.config
}

// Metrics returns the metrics collector.
func (r *Runner) Metrics() *metrics.Collector {
	return r.metrics
}

// Close releases the cache and idle connections.
func (r *Runner) Close() error {
	if r.client != nil {
		r.client.Close()
	}
	if r.ownsCache && r.cache != nil {
		return r.cache.Close()
	}
	return nil
}

// cachedFetcher wraps the configured fetcher with the cache.
func (r *Runner) cachedFetcher() *fetch.CachedFetcher {
	cf := fetch.NewCachedFetcher(r.fetcher, r.cache, r.config.Cache.UseCached)
	cf.Logger = r.logger.WithComponent("fetch")
	cf.Metrics = r.metrics
	return cf
}

// Fetch fetches the remote sources into the cache without parsing them.
func (r *Runner) Fetch(ctx context.Context) (*FetchResult, error) {
	bodies, err := fetch.FetchAll(ctx, r.cachedFetcher(), r.config.Sources.List())
	if err != nil {
		r.recordError(err, "fetch")
		return nil, err
	}

	sizes := make(map[string]int, len(bodies))
	for name, body := range bodies {
		sizes[name] = len(body)
	}
	return &FetchResult{
		Sizes:    sizes,
		CacheDir: r.config.Cache.Dir,
		Backend:  r.config.Cache.Backend,
	}, nil
}

// Build runs the pipeline through filtering and renders the table. Nothing
// is written.
func (r *Runner) Build(ctx context.Context) (*Result, error) {
	result := &Result{StartedAt: time.Now()}

	r.stage("extract")
	sources, err := r.extract(ctx)
	if err != nil {
		r.recordError(err, "extract")
		return nil, err
	}

	result.Totals = sources.Totals()
	r.logger.Info("TOTALS: (before filtering and merging)")
	for _, name := range []string{parser.SourceMacro, parser.SourceFleet, parser.SourceCommand, parser.SourceCatalog} {
		r.logger.SourceEvent(name, result.Totals[name])
		r.metrics.SetSourceCount(name, result.Totals[name])
	}

	r.stage("rename")
	renames, err := reconcile.RenameAll(sources, r.config.Renames)
	if err != nil {
		r.recordError(err, "rename")
		return nil, err
	}
	for _, rn := range renames {
		r.logger.RenameEvent(rn.Source, rn.From, rn.To, rn.URI)
	}
	r.metrics.RecordRenames(len(renames))
	result.Renames = renames

	r.stage("merge")
	merged := sources.Merge()
	r.metrics.SetMerged(len(merged))
	result.Merged = merged

	r.stage("check")
	if err := reconcile.CheckConsistency(merged); err != nil {
		var mismatch *errors.MismatchError
		if stderrors.As(err, &mismatch) {
			r.metrics.RecordMismatches(len(mismatch.Mismatches))
			for _, m := range mismatch.Mismatches {
				r.logger.MismatchEvent(m.Key, m.Left, m.LeftURI, m.Right, m.RightURI)
			}
		}
		r.recordError(err, "check")
		return nil, err
	}

	r.stage("filter")
	filtered, dropped := reconcile.Filter(merged, r.scope)
	for _, key := range dropped {
		r.logger.WithKey(key).Debug("Filtered out of scope")
	}
	r.metrics.RecordFiltered(len(dropped))
	result.Registry = filtered
	result.Filtered = dropped

	r.stage("render")
	result.Table = output.RenderTable(filtered)
	result.Report = output.NewReport(filtered, result.Totals, renames, dropped)
	result.CompletedAt = time.Now()
	result.Metrics = r.metrics.Snapshot()
	return result, nil
}

// Run runs the full pipeline and writes the outputs unless the run is a dry
// run. No output is written when any stage fails. The JSON dump is written
// before the report document, so a failed dump leaves the document as it was.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	result, err := r.Build(ctx)
	if err != nil {
		return nil, err
	}

	if r.config.Report.DryRun {
		r.logger.Info("Dry run, report not written")
		return result, nil
	}

	r.stage("write")
	if r.config.Report.JSONPath != "" {
		if err := r.writeJSON(result.Report); err != nil {
			r.recordError(err, "write")
			return nil, err
		}
	}

	if err := output.UpdateFile(r.config.Report.Path, result.Table); err != nil {
		r.recordError(err, "write")
		return nil, err
	}
	result.Written = true
	r.logger.WithField("path", r.config.Report.Path).
		WithField("rows", len(result.Registry)).
		Info("Report updated")

	result.CompletedAt = time.Now()
	result.Metrics = r.metrics.Snapshot()
	r.logger.StatsEvent(result.Metrics.Summary())
	return result, nil
}

// writeJSON dumps report to the configured JSON path.
func (r *Runner) writeJSON(report *output.Report) error {
	w, err := output.Create(output.Config{
		Format:   output.FormatJSON,
		Pretty:   true,
		FilePath: r.config.Report.JSONPath,
	})
	if err != nil {
		return err
	}
	if err := w.WriteReport(report); err != nil {
		w.Close()
		return fmt.Errorf("failed to write JSON report: %w", err)
	}
	return w.Close()
}

// extract loads the client library, fetches the remote sources and runs the
// four extractors.
func (r *Runner) extract(ctx context.Context) (*reconcile.Sources, error) {
	var files []parser.SourceFile
	var err error
	if r.sourceFS != nil {
		files, err = fetch.LoadSourceFS(r.sourceFS, r.config.Client.Pattern)
	} else {
		files, err = fetch.LoadSourceTree(r.config.Client.Root, r.config.Client.Pattern)
	}
	if err != nil {
		return nil, err
	}

	bodies, err := fetch.FetchAll(ctx, r.cachedFetcher(), r.config.Sources.List())
	if err != nil {
		return nil, err
	}

	parseLog := r.logger.WithComponent("parser")

	macroOpts := r.config.MacroOptions()
	macroOpts.Logger = parseLog
	macro, err := parser.ParseMacroSources(files, macroOpts)
	if err != nil {
		return nil, err
	}

	fleetOpts := r.config.FleetOptions()
	fleetOpts.Logger = parseLog
	fleet, err := parser.ParseFleetDocs(string(bodies[r.config.Sources.Fleet.Name]), fleetOpts)
	if err != nil {
		return nil, err
	}

	catalog, err := parser.ParseCatalog(bodies[r.config.Sources.Catalog.Name])
	if err != nil {
		return nil, err
	}

	commands, err := parser.ParseCommands(string(bodies[r.config.Sources.Command.Name]))
	if err != nil {
		return nil, err
	}

	return &reconcile.Sources{
		Macro:   macro,
		Fleet:   fleet,
		Command: commands,
		Catalog: catalog,
	}, nil
}

func (r *Runner) stage(name string) {
	if r.progress != nil {
		r.progress.Stage(name)
	}
}

// recordError counts err by type and logs it against the failing stage.
func (r *Runner) recordError(err error, stage string) {
	r.metrics.RecordError(errors.GetErrorType(err).String())

	var source string
	var covErr *errors.CoverageError
	if stderrors.As(err, &covErr) {
		source = covErr.Source
	}
	r.logger.ErrorEvent(err, source, stage)
}
