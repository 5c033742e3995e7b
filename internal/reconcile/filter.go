package reconcile

import (
	"github.com/PentesterFlow/apicoverage/internal/scope"
)

// Filter returns the entries whose catalog URI is in scope, plus the sorted
// keys it dropped. Entries without a catalog record are always kept. reg is
// not modified.
func Filter(reg Registry, checker *scope.Checker) (Registry, []string) {
	kept := make(Registry, len(reg))
	var dropped []string

	for _, key := range reg.Keys() {
		ep := reg[key]
		if ep.Catalog != nil && !checker.IsInScope(ep.Catalog.URI) {
			dropped = append(dropped, key)
			continue
		}
		kept[key] = ep
	}

	return kept, dropped
}
