package reconcile

import (
	"fmt"
	"strings"

	"github.com/PentesterFlow/apicoverage/internal/errors"
	"github.com/PentesterFlow/apicoverage/internal/parser"
)

// Renamable is a REST record that can be moved to another key.
type Renamable[T any] interface {
	parser.Restful
	WithName(name string) T
}

// RenameByURI moves target entries onto the key base uses for the same call.
//
// For every base key, the target entries with the same method and the same
// URI (placeholders compared by position only) under a different key are
// collected. A single match is renamed to the base key. Several matches for
// one base key, one target entry matched by several base keys, or a rename
// onto a key the target already holds are all errors; target is left
// untouched when an error is returned.
func RenameByURI[A parser.Restful, B Renamable[B]](source string, base map[string]A, target map[string]B) ([]Rename, error) {
	targetKeys := sortedKeys(target)
	claimedBy := make(map[string]string)
	var renames []Rename

	for _, baseKey := range sortedKeys(base) {
		b := base[baseKey]

		var matches []string
		for _, key := range targetKeys {
			if key != baseKey && parser.SameCall(b, target[key]) {
				matches = append(matches, key)
			}
		}

		switch len(matches) {
		case 0:
			continue
		case 1:
		default:
			return nil, errors.NewAmbiguousRenameError(source, baseKey,
				fmt.Sprintf("%s %s matches %s", b.HTTPMethod(), b.Path(), strings.Join(matches, ", ")))
		}

		from := matches[0]
		if prev, claimed := claimedBy[from]; claimed {
			return nil, errors.NewAmbiguousRenameError(source, from,
				fmt.Sprintf("matched by both %s and %s", prev, baseKey))
		}
		claimedBy[from] = baseKey

		renames = append(renames, Rename{
			Source: source,
			From:   from,
			To:     baseKey,
			Method: b.HTTPMethod(),
			URI:    target[from].Path(),
		})
	}

	for _, r := range renames {
		if _, exists := target[r.To]; !exists {
			continue
		}
		if _, leaving := claimedBy[r.To]; !leaving {
			return nil, errors.NewAmbiguousRenameError(source, r.To,
				fmt.Sprintf("cannot rename %s: key already present", r.From))
		}
	}

	moved := make(map[string]B, len(renames))
	for _, r := range renames {
		moved[r.To] = target[r.From].WithName(r.To)
		delete(target, r.From)
	}
	for key, rec := range moved {
		target[key] = rec
	}

	return renames, nil
}
