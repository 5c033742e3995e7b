package coverage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/PentesterFlow/apicoverage/internal/cache"
	"github.com/PentesterFlow/apicoverage/internal/parser"
	"github.com/PentesterFlow/apicoverage/internal/scope"
)

// =============================================================================
// DefaultConfig Tests
// =============================================================================

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Sources.Fleet.Name != parser.SourceFleet || config.Sources.Fleet.URL != DefaultFleetURL {
		t.Errorf("Sources.Fleet = %+v", config.Sources.Fleet)
	}
	if config.Sources.Catalog.URL != DefaultCatalogURL {
		t.Errorf("Sources.Catalog.URL = %s", config.Sources.Catalog.URL)
	}
	if config.Cache.Backend != cache.BackendFile {
		t.Errorf("Cache.Backend = %s, want file", config.Cache.Backend)
	}
	if config.Client.BlockOpener != "OwnerApi {" || config.Client.RootPath != "/api/1" {
		t.Errorf("Client = %+v", config.Client)
	}
	if len(config.Filter.ExcludePrefixes) != len(scope.DefaultExcludePrefixes) {
		t.Errorf("Filter.ExcludePrefixes = %v", config.Filter.ExcludePrefixes)
	}
	if len(config.Renames) != 9 {
		t.Errorf("len(Renames) = %d, want 9", len(config.Renames))
	}
	if config.Fleet.MaxExamples != 10 {
		t.Errorf("Fleet.MaxExamples = %d, want 10", config.Fleet.MaxExamples)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() error = %v", err)
	}
}

// =============================================================================
// Validate Tests
// =============================================================================

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"default", func(c *Config) {}, false},
		{"missing source url", func(c *Config) { c.Sources.Catalog.URL = "" }, true},
		{"missing source name", func(c *Config) { c.Sources.Fleet.Name = "" }, true},
		{"duplicate source name", func(c *Config) { c.Sources.Command.Name = c.Sources.Fleet.Name }, true},
		{"missing client root", func(c *Config) { c.Client.Root = "" }, true},
		{"missing block opener", func(c *Config) { c.Client.BlockOpener = "" }, true},
		{"unknown backend", func(c *Config) { c.Cache.Backend = "redis" }, true},
		{"bolt backend", func(c *Config) { c.Cache.Backend = cache.BackendBolt }, false},
		{"missing report path", func(c *Config) { c.Report.Path = "" }, true},
		{"dry run without report path", func(c *Config) { c.Report.Path = ""; c.Report.DryRun = true }, false},
		{"zero max examples", func(c *Config) { c.Fleet.MaxExamples = 0 }, true},
		{"short timeout", func(c *Config) { c.HTTP.Timeout = time.Millisecond }, true},
		{"empty rename", func(c *Config) { c.Renames = append(c.Renames, parser.CommandRename{From: "x"}) }, true},
		{"duplicate rename", func(c *Config) { c.Renames = append(c.Renames, c.Renames[0]) }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.modify(config)
			err := config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// =============================================================================
// File Tests
// =============================================================================

func TestLoadFromFile_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coverage.yaml")
	content := `
client:
  root: /src/teslatte
cache:
  backend: bolt
  use_cached: true
report:
  path: /src/teslatte/API.md
http:
  timeout: 45s
renames:
  - from: wake
    to: wake-up
filter:
  exclude_prefixes:
    - /commerce-api
  exclude_globs:
    - /api/1/dx/**
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	config, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if config.Client.Root != "/src/teslatte" {
		t.Errorf("Client.Root = %s", config.Client.Root)
	}
	if config.Client.BlockOpener != "OwnerApi {" {
		t.Errorf("Client.BlockOpener = %q, default should be kept", config.Client.BlockOpener)
	}
	if config.Cache.Backend != cache.BackendBolt || !config.Cache.UseCached {
		t.Errorf("Cache = %+v", config.Cache)
	}
	if config.HTTP.Timeout != 45*time.Second {
		t.Errorf("HTTP.Timeout = %v, want 45s", config.HTTP.Timeout)
	}
	if len(config.Renames) != 1 || config.Renames[0].To != "wake-up" {
		t.Errorf("Renames = %+v", config.Renames)
	}
	if len(config.Filter.ExcludeGlobs) != 1 {
		t.Errorf("Filter.ExcludeGlobs = %v", config.Filter.ExcludeGlobs)
	}
	if config.Sources.Fleet.URL != DefaultFleetURL {
		t.Errorf("Sources.Fleet.URL = %s, default should be kept", config.Sources.Fleet.URL)
	}
}

func TestLoadFromFile_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coverage.json")
	content := `{"report": {"path": "docs/API.md", "json_path": "out.json"}, "verbose": true}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	config, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if config.Report.Path != "docs/API.md" || config.Report.JSONPath != "out.json" {
		t.Errorf("Report = %+v", config.Report)
	}
	if !config.Verbose {
		t.Error("Verbose should be true")
	}
}

func TestLoadFromFile_Errors(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadFromFile() on a missing file should fail")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("client: [unclosed"), 0644)
	if _, err := LoadFromFile(path); err == nil {
		t.Error("LoadFromFile() on invalid YAML should fail")
	}
}

func TestConfig_SaveToFile_RoundTrip(t *testing.T) {
	for _, name := range []string{"coverage.yaml", "coverage.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)

			config := DefaultConfig()
			config.Client.Root = "/work/teslatte"
			config.Cache.Compress = true
			if err := config.SaveToFile(path); err != nil {
				t.Fatalf("SaveToFile() error = %v", err)
			}

			loaded, err := LoadFromFile(path)
			if err != nil {
				t.Fatalf("LoadFromFile() error = %v", err)
			}
			if loaded.Client.Root != "/work/teslatte" || !loaded.Cache.Compress {
				t.Errorf("loaded = %+v", loaded)
			}
			if loaded.HTTP.Timeout != config.HTTP.Timeout {
				t.Errorf("HTTP.Timeout = %v, want %v", loaded.HTTP.Timeout, config.HTTP.Timeout)
			}
		})
	}
}

func TestConfig_Clone(t *testing.T) {
	config := DefaultConfig()
	clone := config.Clone()

	clone.Renames[0].To = "changed"
	clone.Filter.ExcludePrefixes[0] = "/changed"

	if config.Renames[0].To == "changed" || config.Filter.ExcludePrefixes[0] == "/changed" {
		t.Error("Clone() should not share slices")
	}
}

func TestConfig_ExtractorOptions(t *testing.T) {
	config := DefaultConfig()
	config.Client.RootPath = "/api/2"
	config.Fleet.MaxExamples = 3

	if got := config.MacroOptions(); got.RootPath != "/api/2" || got.BlockOpener != config.Client.BlockOpener {
		t.Errorf("MacroOptions() = %+v", got)
	}
	if got := config.FleetOptions(); got.MaxExamples != 3 || got.ContentSelector != ".content" {
		t.Errorf("FleetOptions() = %+v", got)
	}
}
