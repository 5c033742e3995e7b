package parser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/PentesterFlow/apicoverage/internal/errors"
	"github.com/PentesterFlow/apicoverage/internal/logger"
)

// exampleSelector marks a request example block on the documentation page.
const exampleSelector = `div[class="highlight"]`

// FleetOptions configures ParseFleetDocs.
type FleetOptions struct {
	// ContentSelector scopes the search for the first h1.
	ContentSelector string
	// MaxExamples bounds the example blocks accepted per endpoint.
	MaxExamples int
	// ExemptKeys are endpoints documented without examples.
	ExemptKeys []string
	Logger     *logger.Logger
}

// DefaultFleetOptions returns the options matching the published page.
func DefaultFleetOptions() FleetOptions {
	return FleetOptions{
		ContentSelector: ".content",
		MaxExamples:     10,
		ExemptKeys:      []string{"api-status"},
	}
}

type fleetWalker struct {
	maxExamples int
	exempt      map[string]bool
	log         *logger.Logger
}

// ParseFleetDocs extracts the endpoints documented on the Fleet API page.
//
// Starting at the first h1 of the content region, it walks sibling elements in
// document order. An h1 selects the current category; an h2 under a known
// category is a candidate endpoint. A candidate whose next element holds no
// "GET " or "POST " code span is not an endpoint and is skipped.
func ParseFleetDocs(doc string, opts FleetOptions) (map[string]FleetEndpoint, error) {
	defaults := DefaultFleetOptions()
	if opts.ContentSelector == "" {
		opts.ContentSelector = defaults.ContentSelector
	}
	if opts.MaxExamples <= 0 {
		opts.MaxExamples = defaults.MaxExamples
	}
	if opts.ExemptKeys == nil {
		opts.ExemptKeys = defaults.ExemptKeys
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	w := &fleetWalker{
		maxExamples: opts.MaxExamples,
		exempt:      make(map[string]bool, len(opts.ExemptKeys)),
		log:         log.WithSource(SourceFleet),
	}
	for _, k := range opts.ExemptKeys {
		w.exempt[Normalize(k)] = true
	}

	d, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	if err != nil {
		return nil, errors.NewParseError(SourceFleet, "html", err)
	}

	first := d.Find(opts.ContentSelector + " h1").First()
	if first.Length() == 0 {
		return nil, errors.NewStructureError(SourceFleet, "",
			fmt.Sprintf("no h1 inside %q", opts.ContentSelector))
	}

	result := make(map[string]FleetEndpoint, 100)
	var (
		category Category
		active   bool
	)

	for el := first; el.Length() > 0; el = el.Next() {
		switch elementAtom(el) {
		case atom.H1:
			id, _ := el.Attr("id")
			category, active = ParseCategory(id)
			if !active {
				w.log.Debugf("ignoring section %q", id)
			}

		case atom.H2:
			if !active {
				continue
			}

			key := headingKey(el)
			ep, ok, err := w.parseCall(el, key)
			if err != nil {
				return nil, err
			}
			if !ok {
				w.log.WithKey(key).Trace("heading is not an endpoint")
				continue
			}

			ep.Name = key
			ep.Category = category
			if prev, exists := result[key]; exists && (prev.URI != ep.URI || prev.Method != ep.Method) {
				return nil, errors.NewStructureError(SourceFleet, key,
					fmt.Sprintf("declared as %s %s and %s %s", prev.Method, prev.URI, ep.Method, ep.URI))
			}
			w.log.WithKey(key).Debugf("%s %s %s", category, ep.Method, ep.URI)
			result[key] = ep
		}
	}

	for key, ep := range result {
		ep.URI = strings.ReplaceAll(ep.URI, "vehicles/{id}/", "vehicles/{vehicle_id}/")
		result[key] = ep
	}

	return result, nil
}

// parseCall reads the elements that follow an h2:
//
//	<p><span class="endpoint"><code>POST /api/1/vehicles/{id}/command/honk_horn</code></span></p>
//	<p>scopes: <em>vehicle_cmds</em></p>
//	<div class="highlight">...</div>   (one per example language)
func (w *fleetWalker) parseCall(heading *goquery.Selection, key string) (FleetEndpoint, bool, error) {
	call := heading.Next()
	if call.Length() == 0 {
		return FleetEndpoint{}, false, errors.NewStructureError(SourceFleet, key, "heading is the last element")
	}

	code := call.Find("code").First()
	if code.Length() == 0 {
		return FleetEndpoint{}, false, nil
	}
	text := strings.TrimSpace(code.Text())
	if !strings.HasPrefix(text, "GET ") && !strings.HasPrefix(text, "POST ") {
		return FleetEndpoint{}, false, nil
	}

	verb, uri, _ := strings.Cut(text, " ")
	method, err := ParseMethod(verb)
	if err != nil {
		return FleetEndpoint{}, false, errors.NewParseError(SourceFleet, "method", err).WithKey(key)
	}

	scopesEl := call.Next()
	if scopesEl.Length() == 0 {
		return FleetEndpoint{}, false, errors.NewStructureError(SourceFleet, key, "missing scopes after endpoint")
	}

	var scopes []Scope
	scopesEl.Find("em").Each(func(_ int, em *goquery.Selection) {
		name := strings.TrimSpace(em.Text())
		if s, ok := ParseScope(name); ok {
			scopes = append(scopes, s)
		} else {
			w.log.WithKey(key).Warnf("unknown scope %q", name)
		}
	})

	examples := 0
	for el := scopesEl.Next(); el.Length() > 0 && isExample(el); el = el.Next() {
		examples++
		if examples > w.maxExamples {
			return FleetEndpoint{}, false, errors.NewStructureError(SourceFleet, key,
				fmt.Sprintf("more than %d examples", w.maxExamples))
		}
	}
	if examples == 0 && !w.exempt[key] {
		return FleetEndpoint{}, false, errors.NewStructureError(SourceFleet, key, "no examples")
	}

	return FleetEndpoint{
		Method:   method,
		URI:      strings.TrimSpace(uri),
		Scopes:   scopes,
		Examples: examples,
	}, true, nil
}

func headingKey(h *goquery.Selection) string {
	if id, ok := h.Attr("id"); ok && id != "" {
		return Normalize(id)
	}
	return Normalize(strings.TrimSpace(h.Text()))
}

func isExample(el *goquery.Selection) bool {
	return el.Is(exampleSelector) || el.Find(exampleSelector).Length() > 0
}

func elementAtom(sel *goquery.Selection) atom.Atom {
	n := sel.Get(0)
	if n == nil || n.Type != html.ElementNode {
		return 0
	}
	return n.DataAtom
}
