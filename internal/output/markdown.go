package output

import (
	"fmt"
	"os"
	"strings"

	"github.com/PentesterFlow/apicoverage/internal/errors"
	"github.com/PentesterFlow/apicoverage/internal/reconcile"
)

// Sentinels delimiting the generated table in the report document.
const (
	StartMarker = "<!-- tesla_api_coverage start table -->"
	EndMarker   = "<!-- tesla_api_coverage end table -->"
)

// Presence markers used in the table cells.
const (
	Covered       = "✅"
	Missing       = "🔴"
	NotApplicable = "➖"
)

const tableHeader = "| API | Owners API | Fleet API | Command Mode |\n| --- | --- | --- | --- |"

// Row is one table line.
type Row struct {
	Name    string `json:"name"`
	Owners  string `json:"owners"`
	Fleet   string `json:"fleet"`
	Command string `json:"command"`
}

// Rows builds the table rows for reg, sorted by key.
func Rows(reg reconcile.Registry) []Row {
	keys := reg.Keys()
	rows := make([]Row, 0, len(keys))
	for _, key := range keys {
		ep := reg[key]
		row := Row{Name: key, Owners: NotApplicable, Fleet: NotApplicable, Command: NotApplicable}

		switch {
		case ep.Macro != nil:
			row.Owners = Covered
		case ep.Catalog != nil:
			row.Owners = Missing
		}
		if ep.Fleet != nil {
			row.Fleet = Missing
		}
		if ep.Command != nil {
			row.Command = Missing
		}
		rows = append(rows, row)
	}
	return rows
}

// RenderTable renders reg as a markdown table without a trailing newline.
func RenderTable(reg reconcile.Registry) string {
	var b strings.Builder
	b.WriteString(tableHeader)
	for _, row := range Rows(reg) {
		fmt.Fprintf(&b, "\n| %s | %s | %s | %s |", row.Name, row.Owners, row.Fleet, row.Command)
	}
	return b.String()
}

// Splice replaces the region between the sentinels of doc with table.
// Everything outside the sentinels is kept as is.
func Splice(doc, table string) (string, error) {
	if n := strings.Count(doc, StartMarker); n != 1 {
		return "", errors.NewStructureError("report", StartMarker, fmt.Sprintf("expected one start marker, found %d", n))
	}
	if n := strings.Count(doc, EndMarker); n != 1 {
		return "", errors.NewStructureError("report", EndMarker, fmt.Sprintf("expected one end marker, found %d", n))
	}

	before, rest, _ := strings.Cut(doc, StartMarker)
	_, after, found := strings.Cut(rest, EndMarker)
	if !found {
		return "", errors.NewStructureError("report", EndMarker, "end marker precedes start marker")
	}

	var b strings.Builder
	b.Grow(len(before) + len(table) + len(after) + len(StartMarker) + len(EndMarker) + 2)
	b.WriteString(before)
	b.WriteString(StartMarker)
	b.WriteByte('\n')
	b.WriteString(table)
	b.WriteByte('\n')
	b.WriteString(EndMarker)
	b.WriteString(after)
	return b.String(), nil
}

// UpdateFile splices table into the document at path. The file is left
// untouched if the sentinels are missing.
func UpdateFile(path, table string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat report: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read report: %w", err)
	}

	updated, err := Splice(string(data), table)
	if err != nil {
		return err
	}
	if updated == string(data) {
		return nil
	}

	return os.WriteFile(path, []byte(updated), info.Mode().Perm())
}
