package coverage

import (
	"time"

	"github.com/PentesterFlow/apicoverage/internal/metrics"
	"github.com/PentesterFlow/apicoverage/internal/output"
	"github.com/PentesterFlow/apicoverage/internal/reconcile"
)

// Result is the outcome of one coverage run.
type Result struct {
	// Totals counts the records of each source before renaming.
	Totals map[string]int `json:"totals"`

	// Renames lists every key change, in the order applied.
	Renames []reconcile.Rename `json:"renames"`

	// Merged is the registry before filtering.
	Merged reconcile.Registry `json:"-"`

	// Registry is the filtered registry the table is built from.
	Registry reconcile.Registry `json:"-"`

	// Filtered lists the keys dropped by the filter.
	Filtered []string `json:"filtered"`

	// Table is the rendered markdown table.
	Table string `json:"-"`

	// Report is the JSON form of the run.
	Report *output.Report `json:"report"`

	// Written is set when the report document was updated.
	Written bool `json:"written"`

	StartedAt   time.Time         `json:"started_at"`
	CompletedAt time.Time         `json:"completed_at"`
	Metrics     *metrics.Snapshot `json:"metrics,omitempty"`
}

// Duration returns how long the run took.
func (r *Result) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}

// FetchResult is the outcome of a fetch-only run.
type FetchResult struct {
	Sizes    map[string]int `json:"sizes"`
	CacheDir string         `json:"cache_dir"`
	Backend  string         `json:"backend"`
}
