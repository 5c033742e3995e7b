// Package reconcile joins the per-source endpoint inventories into one
// registry and checks the sources against each other.
package reconcile

import (
	"sort"

	"github.com/PentesterFlow/apicoverage/internal/parser"
)

// Endpoint is every source record that shares one canonical key. A nil
// field means the source does not know the endpoint.
type Endpoint struct {
	Name    string                  `json:"name"`
	Macro   *parser.MacroEndpoint   `json:"macro,omitempty"`
	Fleet   *parser.FleetEndpoint   `json:"fleet,omitempty"`
	Command *parser.CommandEndpoint `json:"command,omitempty"`
	Catalog *parser.CatalogEndpoint `json:"catalog,omitempty"`
}

// Sources lists the sources that know the endpoint.
func (e *Endpoint) Sources() []string {
	var sources []string
	if e.Macro != nil {
		sources = append(sources, parser.SourceMacro)
	}
	if e.Fleet != nil {
		sources = append(sources, parser.SourceFleet)
	}
	if e.Command != nil {
		sources = append(sources, parser.SourceCommand)
	}
	if e.Catalog != nil {
		sources = append(sources, parser.SourceCatalog)
	}
	return sources
}

// Registry is the merged inventory keyed by canonical name.
type Registry map[string]*Endpoint

// Keys returns the registry keys in sorted order.
func (r Registry) Keys() []string {
	return sortedKeys(r)
}

// Count returns how many entries each source contributes.
func (r Registry) Count() map[string]int {
	counts := map[string]int{
		parser.SourceMacro:   0,
		parser.SourceFleet:   0,
		parser.SourceCommand: 0,
		parser.SourceCatalog: 0,
	}
	for _, ep := range r {
		for _, s := range ep.Sources() {
			counts[s]++
		}
	}
	return counts
}

// Rename records one key change made in a target registry.
type Rename struct {
	Source string        `json:"source"`
	From   string        `json:"from"`
	To     string        `json:"to"`
	Method parser.Method `json:"method,omitempty"`
	URI    string        `json:"uri,omitempty"`
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
