package coverage

import (
	"fmt"
	"io/fs"

	"github.com/PentesterFlow/apicoverage/internal/cache"
	"github.com/PentesterFlow/apicoverage/internal/fetch"
	"github.com/PentesterFlow/apicoverage/internal/logger"
	"github.com/PentesterFlow/apicoverage/internal/metrics"
	"github.com/PentesterFlow/apicoverage/internal/progress"
)

// Option is a functional option for configuring the Runner.
type Option func(*Runner) error

// WithConfig sets the entire configuration.
func WithConfig(config *Config) Option {
	return func(r *Runner) error {
		if config == nil {
			return fmt.Errorf("nil config")
		}
		r.config = config.Clone()
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *logger.Logger) Option {
	return func(r *Runner) error {
		r.logger = l
		return nil
	}
}

// WithMetrics sets a custom metrics collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(r *Runner) error {
		r.metrics = m
		return nil
	}
}

// WithFetcher replaces the HTTP client used for the remote sources. The
// fetcher is still wrapped by the cache.
func WithFetcher(f fetch.Fetcher) Option {
	return func(r *Runner) error {
		r.fetcher = f
		return nil
	}
}

// WithCache sets the cache instead of opening the configured backend. The
// runner does not close a cache passed this way.
func WithCache(c cache.Cache) Option {
	return func(r *Runner) error {
		r.cache = c
		r.ownsCache = false
		return nil
	}
}

// WithSourceFS reads the client library from fsys instead of Client.Root.
func WithSourceFS(fsys fs.FS) Option {
	return func(r *Runner) error {
		r.sourceFS = fsys
		return nil
	}
}

// WithCached reuses cached bodies instead of fetching.
func WithCached(cached bool) Option {
	return func(r *Runner) error {
		r.config.Cache.UseCached = cached
		return nil
	}
}

// WithCacheDir sets the cache directory.
func WithCacheDir(dir string) Option {
	return func(r *Runner) error {
		r.config.Cache.Dir = dir
		return nil
	}
}

// WithCacheBackend sets the cache backend.
func WithCacheBackend(backend string) Option {
	return func(r *Runner) error {
		r.config.Cache.Backend = backend
		return nil
	}
}

// WithClientRoot sets the client library checkout.
func WithClientRoot(root string) Option {
	return func(r *Runner) error {
		r.config.Client.Root = root
		return nil
	}
}

// WithReportPath sets the document the table is spliced into.
func WithReportPath(path string) Option {
	return func(r *Runner) error {
		r.config.Report.Path = path
		return nil
	}
}

// WithJSONPath enables the JSON dump of the merged registry.
func WithJSONPath(path string) Option {
	return func(r *Runner) error {
		r.config.Report.JSONPath = path
		return nil
	}
}

// WithDryRun disables every write.
func WithDryRun(dryRun bool) Option {
	return func(r *Runner) error {
		r.config.Report.DryRun = dryRun
		return nil
	}
}

// WithVerbose enables/disables verbose logging.
func WithVerbose(verbose bool) Option {
	return func(r *Runner) error {
		r.config.Verbose = verbose
		return nil
	}
}

// WithDebug enables/disables debug mode.
func WithDebug(debug bool) Option {
	return func(r *Runner) error {
		r.config.Debug = debug
		return nil
	}
}

// WithProgress reports pipeline stages to d.
func WithProgress(d *progress.Display) Option {
	return func(r *Runner) error {
		r.progress = d
		return nil
	}
}
