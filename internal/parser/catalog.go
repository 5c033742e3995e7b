package parser

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/PentesterFlow/apicoverage/internal/errors"
)

// catalogEntry is one record of the catalog as published.
type catalogEntry struct {
	Type string `json:"TYPE"`
	URI  string `json:"uri"`
	Auth bool   `json:"auth"`
}

// ParseCatalog decodes the community endpoint catalog, a JSON object of
//
//	"SET_CHARGE_LIMIT": {"TYPE": "POST", "uri": "api/1/vehicles/{vehicle_id}/command/set_charge_limit", "auth": true}
//
// Keys are normalized and every URI is made absolute.
func ParseCatalog(data []byte) (map[string]CatalogEndpoint, error) {
	var raw map[string]catalogEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.NewParseError(SourceCatalog, "json", err)
	}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	result := make(map[string]CatalogEndpoint, len(raw))
	origin := make(map[string]string, len(raw))

	for _, name := range names {
		entry := raw[name]
		key := Normalize(name)

		method, err := ParseMethod(entry.Type)
		if err != nil {
			return nil, errors.NewParseError(SourceCatalog, "method", err).WithKey(name)
		}

		uri := strings.TrimSpace(entry.URI)
		if uri == "" {
			return nil, errors.NewStructureError(SourceCatalog, name, "empty uri")
		}
		if !strings.HasPrefix(uri, "/") {
			uri = "/" + uri
		}

		if prev, exists := origin[key]; exists {
			return nil, errors.NewStructureError(SourceCatalog, key,
				fmt.Sprintf("%q and %q normalize to the same key", prev, name))
		}
		origin[key] = name

		result[key] = CatalogEndpoint{
			Name:   key,
			Method: method,
			URI:    uri,
			Auth:   entry.Auth,
		}
	}

	return result, nil
}
