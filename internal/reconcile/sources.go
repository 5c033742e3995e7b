package reconcile

import (
	"github.com/PentesterFlow/apicoverage/internal/parser"
)

// Sources holds the four per-source inventories before merging.
type Sources struct {
	Macro   map[string]parser.MacroEndpoint
	Fleet   map[string]parser.FleetEndpoint
	Command map[string]parser.CommandEndpoint
	Catalog map[string]parser.CatalogEndpoint
}

// Totals returns the number of records per source.
func (s *Sources) Totals() map[string]int {
	return map[string]int{
		parser.SourceMacro:   len(s.Macro),
		parser.SourceFleet:   len(s.Fleet),
		parser.SourceCommand: len(s.Command),
		parser.SourceCatalog: len(s.Catalog),
	}
}

// RenameAll aligns the keys of s in place. The order is fixed: the
// documentation follows the macros, the catalog follows the macros, then the
// catalog follows the documentation. The command table is renamed last from
// commandRenames.
func RenameAll(s *Sources, commandRenames []parser.CommandRename) ([]Rename, error) {
	var all []Rename

	renames, err := RenameByURI(parser.SourceFleet, s.Macro, s.Fleet)
	if err != nil {
		return nil, err
	}
	all = append(all, renames...)

	if renames, err = RenameByURI(parser.SourceCatalog, s.Macro, s.Catalog); err != nil {
		return nil, err
	}
	all = append(all, renames...)

	if renames, err = RenameByURI(parser.SourceCatalog, s.Fleet, s.Catalog); err != nil {
		return nil, err
	}
	all = append(all, renames...)

	if err := parser.RenameCommands(s.Command, commandRenames); err != nil {
		return nil, err
	}
	for _, r := range commandRenames {
		all = append(all, Rename{Source: parser.SourceCommand, From: r.From, To: r.To})
	}

	return all, nil
}

// Merge merges s. See Merge.
func (s *Sources) Merge() Registry {
	return Merge(s.Macro, s.Fleet, s.Command, s.Catalog)
}
