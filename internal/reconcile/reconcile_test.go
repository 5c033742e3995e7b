package reconcile

import (
	stderrors "errors"
	"reflect"
	"strings"
	"testing"

	"github.com/PentesterFlow/apicoverage/internal/errors"
	"github.com/PentesterFlow/apicoverage/internal/parser"
	"github.com/PentesterFlow/apicoverage/internal/scope"
)

func macro(name string, method parser.Method, uri string) parser.MacroEndpoint {
	return parser.MacroEndpoint{Name: name, Method: method, URI: uri}
}

func fleet(name string, method parser.Method, uri string) parser.FleetEndpoint {
	return parser.FleetEndpoint{Name: name, Method: method, URI: uri}
}

func catalog(name string, method parser.Method, uri string) parser.CatalogEndpoint {
	return parser.CatalogEndpoint{Name: name, Method: method, URI: uri}
}

// =============================================================================
// RenameByURI Tests
// =============================================================================

func TestRenameByURI(t *testing.T) {
	base := map[string]parser.MacroEndpoint{
		"wake-up":      macro("wake-up", parser.MethodPost, "/api/1/vehicles/{}/command/wake_up"),
		"vehicle-data": macro("vehicle-data", parser.MethodGet, "/api/1/vehicles/{}/vehicle_data"),
		"products":     macro("products", parser.MethodGet, "/api/1/products"),
	}
	target := map[string]parser.CatalogEndpoint{
		"wake":         catalog("wake", parser.MethodPost, "/api/1/vehicles/{vehicle_id}/command/wake_up"),
		"vehicle-data": catalog("vehicle-data", parser.MethodGet, "/api/1/vehicles/{vehicle_id}/vehicle_data"),
		"products":     catalog("products", parser.MethodPost, "/api/1/products"),
		"status":       catalog("status", parser.MethodGet, "/status"),
	}

	renames, err := RenameByURI(parser.SourceCatalog, base, target)
	if err != nil {
		t.Fatalf("RenameByURI() error = %v", err)
	}

	want := []Rename{{
		Source: parser.SourceCatalog,
		From:   "wake",
		To:     "wake-up",
		Method: parser.MethodPost,
		URI:    "/api/1/vehicles/{vehicle_id}/command/wake_up",
	}}
	if !reflect.DeepEqual(renames, want) {
		t.Errorf("renames = %+v, want %+v", renames, want)
	}

	if _, ok := target["wake"]; ok {
		t.Error("old key should be gone")
	}
	if ep, ok := target["wake-up"]; !ok || ep.Name != "wake-up" {
		t.Errorf("wake-up = %+v", ep)
	}
	if len(target) != 4 {
		t.Errorf("len(target) = %d, want 4", len(target))
	}
	if target["products"].Method != parser.MethodPost {
		t.Error("method mismatch must not rename")
	}
}

func TestRenameByURI_Ambiguous(t *testing.T) {
	base := map[string]parser.MacroEndpoint{
		"wake-up": macro("wake-up", parser.MethodPost, "/api/1/vehicles/{}/wake_up"),
	}
	target := map[string]parser.FleetEndpoint{
		"wake":     fleet("wake", parser.MethodPost, "/api/1/vehicles/{id}/wake_up"),
		"wake-car": fleet("wake-car", parser.MethodPost, "/api/1/vehicles/{vehicle_id}/wake_up"),
	}

	_, err := RenameByURI(parser.SourceFleet, base, target)
	if err == nil {
		t.Fatal("RenameByURI() should fail on two matches")
	}
	if errors.GetErrorType(err) != errors.AmbiguousRename {
		t.Errorf("error type = %v, want AmbiguousRename", errors.GetErrorType(err))
	}
	if len(target) != 2 {
		t.Error("target must be untouched on error")
	}
}

func TestRenameByURI_DoubleClaim(t *testing.T) {
	base := map[string]parser.MacroEndpoint{
		"a": macro("a", parser.MethodGet, "/x"),
		"b": macro("b", parser.MethodGet, "/x"),
	}
	target := map[string]parser.FleetEndpoint{
		"c": fleet("c", parser.MethodGet, "/x"),
	}

	if _, err := RenameByURI(parser.SourceFleet, base, target); errors.GetErrorType(err) != errors.AmbiguousRename {
		t.Errorf("error = %v, want AmbiguousRename", err)
	}
	if _, ok := target["c"]; !ok {
		t.Error("target must be untouched on error")
	}
}

func TestRenameByURI_Collision(t *testing.T) {
	base := map[string]parser.MacroEndpoint{
		"honk-horn": macro("honk-horn", parser.MethodPost, "/honk"),
	}
	target := map[string]parser.FleetEndpoint{
		"honk":      fleet("honk", parser.MethodPost, "/honk"),
		"honk-horn": fleet("honk-horn", parser.MethodPost, "/horn"),
	}

	if _, err := RenameByURI(parser.SourceFleet, base, target); err == nil {
		t.Fatal("RenameByURI() should refuse to overwrite an existing key")
	}
	if target["honk-horn"].URI != "/horn" {
		t.Error("target must be untouched on error")
	}
}

func TestRenameByURI_Swap(t *testing.T) {
	base := map[string]parser.MacroEndpoint{
		"a": macro("a", parser.MethodGet, "/x"),
		"b": macro("b", parser.MethodGet, "/y"),
	}
	target := map[string]parser.FleetEndpoint{
		"a": fleet("a", parser.MethodGet, "/y"),
		"b": fleet("b", parser.MethodGet, "/x"),
	}

	renames, err := RenameByURI(parser.SourceFleet, base, target)
	if err != nil {
		t.Fatalf("RenameByURI() error = %v", err)
	}
	if len(renames) != 2 {
		t.Errorf("len(renames) = %d, want 2", len(renames))
	}
	if target["a"].URI != "/x" || target["b"].URI != "/y" {
		t.Errorf("target = %+v", target)
	}
}

func TestRenameByURI_SameKeyNotRenamed(t *testing.T) {
	base := map[string]parser.MacroEndpoint{
		"vehicles": macro("vehicles", parser.MethodGet, "/api/1/vehicles"),
	}
	target := map[string]parser.CatalogEndpoint{
		"vehicles": catalog("vehicles", parser.MethodGet, "/api/1/vehicles"),
	}

	renames, err := RenameByURI(parser.SourceCatalog, base, target)
	if err != nil {
		t.Fatalf("RenameByURI() error = %v", err)
	}
	if len(renames) != 0 {
		t.Errorf("renames = %+v, want none", renames)
	}
}

func TestRenameAll(t *testing.T) {
	s := &Sources{
		Macro: map[string]parser.MacroEndpoint{
			"wake-up": macro("wake-up", parser.MethodPost, "/api/1/vehicles/{}/command/wake_up"),
		},
		Fleet: map[string]parser.FleetEndpoint{
			"wake":         fleet("wake", parser.MethodPost, "/api/1/vehicles/{vehicle_id}/command/wake_up"),
			"flash-lights": fleet("flash-lights", parser.MethodPost, "/api/1/vehicles/{vehicle_id}/command/flash_lights"),
			"fleet-only":   fleet("fleet-only", parser.MethodGet, "/api/1/fleet"),
		},
		Catalog: map[string]parser.CatalogEndpoint{
			"wake-up-car": catalog("wake-up-car", parser.MethodPost, "/api/1/vehicles/{vehicle_id}/command/wake_up"),
			"flash":       catalog("flash", parser.MethodPost, "/api/1/vehicles/{vehicle_id}/command/flash_lights"),
		},
		Command: map[string]parser.CommandEndpoint{
			"wake":         {Name: "wake"},
			"flash-lights": {Name: "flash-lights"},
		},
	}

	renames, err := RenameAll(s, []parser.CommandRename{{From: "wake", To: "wake-up"}})
	if err != nil {
		t.Fatalf("RenameAll() error = %v", err)
	}

	if len(renames) != 4 {
		t.Errorf("len(renames) = %d, want 4: %+v", len(renames), renames)
	}
	for _, key := range []string{"wake-up", "flash-lights"} {
		if _, ok := s.Fleet[key]; !ok {
			t.Errorf("fleet missing %q", key)
		}
		if _, ok := s.Catalog[key]; !ok {
			t.Errorf("catalog missing %q", key)
		}
		if _, ok := s.Command[key]; !ok {
			t.Errorf("command missing %q", key)
		}
	}

	reg := s.Merge()
	if len(reg) != 3 {
		t.Errorf("len(registry) = %d, want 3: %v", len(reg), reg.Keys())
	}
	if got := reg["wake-up"].Sources(); len(got) != 4 {
		t.Errorf("wake-up sources = %v, want all four", got)
	}
}

func TestRenameAll_CommandTableOutOfSync(t *testing.T) {
	s := &Sources{Command: map[string]parser.CommandEndpoint{"unlock": {Name: "unlock"}}}
	if _, err := RenameAll(s, parser.DefaultCommandRenames()); err == nil {
		t.Error("RenameAll() should fail when a rename source is missing")
	}
}

// =============================================================================
// Merge Tests
// =============================================================================

func TestMerge(t *testing.T) {
	m := map[string]parser.MacroEndpoint{
		"a": macro("a", parser.MethodGet, "/a"),
		"b": macro("b", parser.MethodGet, "/b"),
	}
	f := map[string]parser.FleetEndpoint{
		"b": fleet("b", parser.MethodGet, "/b"),
		"c": fleet("c", parser.MethodGet, "/c"),
	}
	c := map[string]parser.CommandEndpoint{
		"d": {Name: "d"},
	}
	cat := map[string]parser.CatalogEndpoint{
		"a": catalog("a", parser.MethodGet, "/a"),
		"e": catalog("e", parser.MethodGet, "/e"),
	}

	reg := Merge(m, f, c, cat)

	if got, want := reg.Keys(), []string{"a", "b", "c", "d", "e"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}

	if reg["a"].Macro == nil || reg["a"].Catalog == nil || reg["a"].Fleet != nil || reg["a"].Command != nil {
		t.Errorf("a = %+v", reg["a"])
	}
	if reg["d"].Command == nil || len(reg["d"].Sources()) != 1 {
		t.Errorf("d = %+v", reg["d"])
	}
	if reg["b"].Macro.URI != "/b" || reg["b"].Fleet.URI != "/b" {
		t.Error("records should be attached by value")
	}

	counts := reg.Count()
	want := map[string]int{"macro": 2, "fleet": 2, "command": 1, "catalog": 2}
	if !reflect.DeepEqual(counts, want) {
		t.Errorf("Count() = %v, want %v", counts, want)
	}
}

func TestMerge_Empty(t *testing.T) {
	reg := Merge(nil, nil, nil, nil)
	if len(reg) != 0 {
		t.Errorf("len(registry) = %d, want 0", len(reg))
	}
}

// =============================================================================
// CheckConsistency Tests
// =============================================================================

func TestCheckConsistency(t *testing.T) {
	reg := Registry{
		"same": {
			Name:    "same",
			Fleet:   &parser.FleetEndpoint{Method: parser.MethodGet, URI: "/api/1/vehicles/{id}/same"},
			Catalog: &parser.CatalogEndpoint{Method: parser.MethodGet, URI: "/api/1/vehicles/{id}/same"},
		},
		"fleet-only": {
			Name:  "fleet-only",
			Fleet: &parser.FleetEndpoint{Method: parser.MethodGet, URI: "/x"},
		},
	}
	if err := CheckConsistency(reg); err != nil {
		t.Errorf("CheckConsistency() error = %v", err)
	}
}

func TestCheckConsistency_ReportsEveryMismatch(t *testing.T) {
	reg := Registry{
		"foo": {
			Name:    "foo",
			Fleet:   &parser.FleetEndpoint{Method: parser.MethodGet, URI: "/api/1/vehicles/{id}/foo"},
			Catalog: &parser.CatalogEndpoint{Method: parser.MethodGet, URI: "/api/1/vehicles/{id}/bar"},
		},
		"alpha": {
			Name:    "alpha",
			Fleet:   &parser.FleetEndpoint{Method: parser.MethodPost, URI: "/alpha"},
			Catalog: &parser.CatalogEndpoint{Method: parser.MethodGet, URI: "/alpha"},
		},
		"placeholder": {
			Name:    "placeholder",
			Fleet:   &parser.FleetEndpoint{Method: parser.MethodGet, URI: "/v/{vehicle_id}/p"},
			Catalog: &parser.CatalogEndpoint{Method: parser.MethodGet, URI: "/v/{id}/p"},
		},
	}

	err := CheckConsistency(reg)
	if err == nil {
		t.Fatal("CheckConsistency() should fail")
	}

	var mismatch *errors.MismatchError
	if !stderrors.As(err, &mismatch) {
		t.Fatalf("error should be *MismatchError, got %T", err)
	}
	if len(mismatch.Mismatches) != 3 {
		t.Fatalf("len(Mismatches) = %d, want 3", len(mismatch.Mismatches))
	}
	if mismatch.Mismatches[0].Key != "alpha" || mismatch.Mismatches[1].Key != "foo" {
		t.Errorf("mismatches should be sorted by key: %+v", mismatch.Mismatches)
	}

	msg := err.Error()
	for _, want := range []string{"/api/1/vehicles/{id}/foo", "/api/1/vehicles/{id}/bar", "POST /alpha", "GET /alpha"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error should mention %q: %s", want, msg)
		}
	}
	if errors.GetErrorType(err) != errors.Mismatch {
		t.Errorf("error type = %v, want Mismatch", errors.GetErrorType(err))
	}
}

// =============================================================================
// Filter Tests
// =============================================================================

func TestFilter(t *testing.T) {
	reg := Registry{
		"vehicles": {
			Name:    "vehicles",
			Catalog: &parser.CatalogEndpoint{URI: "/api/1/vehicles"},
		},
		"directives": {
			Name:    "directives",
			Catalog: &parser.CatalogEndpoint{URI: "/api/1/directives"},
		},
		"mobile": {
			Name:    "mobile",
			Catalog: &parser.CatalogEndpoint{URI: "/bff/v2/mobile-app/x"},
		},
		"macro-only": {
			Name:  "macro-only",
			Macro: &parser.MacroEndpoint{URI: "/api/1/directives/x"},
		},
	}

	checker, err := scope.NewChecker(scope.DefaultRules())
	if err != nil {
		t.Fatalf("NewChecker() error = %v", err)
	}
	kept, dropped := Filter(reg, checker)

	if got, want := kept.Keys(), []string{"macro-only", "vehicles"}; !reflect.DeepEqual(got, want) {
		t.Errorf("kept = %v, want %v", got, want)
	}
	if want := []string{"directives", "mobile"}; !reflect.DeepEqual(dropped, want) {
		t.Errorf("dropped = %v, want %v", dropped, want)
	}
	if len(reg) != 4 {
		t.Error("Filter must not modify its input")
	}
}
