package reconcile

import (
	"github.com/PentesterFlow/apicoverage/internal/parser"
)

// Merge builds the registry over the union of all keys. Each entry carries
// the records of the sources that know it; absent sources stay nil.
func Merge(
	macro map[string]parser.MacroEndpoint,
	fleet map[string]parser.FleetEndpoint,
	command map[string]parser.CommandEndpoint,
	catalog map[string]parser.CatalogEndpoint,
) Registry {
	reg := make(Registry, len(macro)+len(fleet)+len(command)+len(catalog))

	entry := func(key string) *Endpoint {
		ep, ok := reg[key]
		if !ok {
			ep = &Endpoint{Name: key}
			reg[key] = ep
		}
		return ep
	}

	for key, rec := range macro {
		entry(key).Macro = &rec
	}
	for key, rec := range fleet {
		entry(key).Fleet = &rec
	}
	for key, rec := range command {
		entry(key).Command = &rec
	}
	for key, rec := range catalog {
		entry(key).Catalog = &rec
	}

	return reg
}
