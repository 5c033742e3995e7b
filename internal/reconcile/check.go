package reconcile

import (
	"github.com/PentesterFlow/apicoverage/internal/errors"
	"github.com/PentesterFlow/apicoverage/internal/parser"
)

// CheckConsistency compares the documentation and catalog records of every
// entry that has both. URIs must be byte-equal and methods must agree. Every
// disagreement is collected into a single *errors.MismatchError.
func CheckConsistency(reg Registry) error {
	var mismatches []errors.URIMismatch

	for _, key := range reg.Keys() {
		ep := reg[key]
		if ep.Fleet == nil || ep.Catalog == nil {
			continue
		}

		fleet, catalog := ep.Fleet, ep.Catalog
		switch {
		case fleet.Method != catalog.Method:
			mismatches = append(mismatches, errors.URIMismatch{
				Key:      key,
				Left:     parser.SourceFleet,
				LeftURI:  string(fleet.Method) + " " + fleet.URI,
				Right:    parser.SourceCatalog,
				RightURI: string(catalog.Method) + " " + catalog.URI,
			})
		case fleet.URI != catalog.URI:
			mismatches = append(mismatches, errors.URIMismatch{
				Key:      key,
				Left:     parser.SourceFleet,
				LeftURI:  fleet.URI,
				Right:    parser.SourceCatalog,
				RightURI: catalog.URI,
			})
		}
	}

	if len(mismatches) == 0 {
		return nil
	}
	return errors.NewMismatchError(mismatches)
}
