package output

import (
	"time"

	"github.com/PentesterFlow/apicoverage/internal/reconcile"
)

// Report is the JSON form of a coverage run.
type Report struct {
	GeneratedAt time.Time             `json:"generated_at"`
	Stats       Statistics            `json:"stats"`
	Endpoints   []*reconcile.Endpoint `json:"endpoints"`
	Renames     []reconcile.Rename    `json:"renames,omitempty"`
	Filtered    []string              `json:"filtered,omitempty"`
}

// Statistics counts the entries of a run.
type Statistics struct {
	SourceTotals map[string]int `json:"source_totals"`
	Merged       int            `json:"merged"`
	Reported     int            `json:"reported"`
	Filtered     int            `json:"filtered"`
	Renames      int            `json:"renames"`
	Coverage     map[string]int `json:"coverage"`
}

// NewReport builds a report over the filtered registry reg.
func NewReport(reg reconcile.Registry, totals map[string]int, renames []reconcile.Rename, filtered []string) *Report {
	keys := reg.Keys()
	endpoints := make([]*reconcile.Endpoint, 0, len(keys))
	for _, key := range keys {
		endpoints = append(endpoints, reg[key])
	}

	return &Report{
		GeneratedAt: time.Now().UTC(),
		Stats: Statistics{
			SourceTotals: totals,
			Merged:       len(reg) + len(filtered),
			Reported:     len(reg),
			Filtered:     len(filtered),
			Renames:      len(renames),
			Coverage:     reg.Count(),
		},
		Endpoints: endpoints,
		Renames:   renames,
		Filtered:  filtered,
	}
}

// Registry rebuilds the registry the report was made from.
func (r *Report) Registry() reconcile.Registry {
	reg := make(reconcile.Registry, len(r.Endpoints))
	for _, ep := range r.Endpoints {
		reg[ep.Name] = ep
	}
	return reg
}
