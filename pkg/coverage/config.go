package coverage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/PentesterFlow/apicoverage/internal/cache"
	"github.com/PentesterFlow/apicoverage/internal/fetch"
	"github.com/PentesterFlow/apicoverage/internal/parser"
	"github.com/PentesterFlow/apicoverage/internal/scope"
)

// Default source locations.
const (
	DefaultFleetURL   = "https://developer.tesla.com/docs/fleet-api"
	DefaultCatalogURL = "https://raw.githubusercontent.com/timdorr/tesla-api/master/ownerapi_endpoints.json"
	DefaultCommandURL = "https://raw.githubusercontent.com/teslamotors/vehicle-command/main/cmd/tesla-control/commands.go"
)

// Config holds all coverage run configuration.
type Config struct {
	// Remote sources
	Sources SourcesConfig `json:"sources" yaml:"sources"`

	// Local client library checkout
	Client ClientConfig `json:"client" yaml:"client"`

	// Fetch cache
	Cache CacheConfig `json:"cache" yaml:"cache"`

	// Report document and JSON dump
	Report ReportConfig `json:"report" yaml:"report"`

	// Endpoints left out of the report
	Filter scope.ScopeRules `json:"filter" yaml:"filter"`

	// Command table renames applied before merging
	Renames []parser.CommandRename `json:"renames" yaml:"renames"`

	// Fleet documentation extraction
	Fleet FleetConfig `json:"fleet" yaml:"fleet"`

	// HTTP client
	HTTP fetch.ClientConfig `json:"http" yaml:"http"`

	// Verbose logging
	Verbose bool `json:"verbose" yaml:"verbose"`

	// Debug mode
	Debug bool `json:"debug" yaml:"debug"`
}

// SourcesConfig names the three remote documents. Each name doubles as the
// cache key.
type SourcesConfig struct {
	Fleet   fetch.Source `json:"fleet" yaml:"fleet"`
	Catalog fetch.Source `json:"catalog" yaml:"catalog"`
	Command fetch.Source `json:"command" yaml:"command"`
}

// List returns the sources in fetch order.
func (s SourcesConfig) List() []fetch.Source {
	return []fetch.Source{s.Fleet, s.Catalog, s.Command}
}

// ClientConfig locates the macro declarations of the client library.
type ClientConfig struct {
	Root        string `json:"root" yaml:"root"`
	Pattern     string `json:"pattern" yaml:"pattern"`
	BlockOpener string `json:"block_opener" yaml:"block_opener"`
	RootPath    string `json:"root_path" yaml:"root_path"`
}

// CacheConfig configures the fetch cache.
type CacheConfig struct {
	Dir       string `json:"dir" yaml:"dir"`
	Backend   string `json:"backend" yaml:"backend"`
	Compress  bool   `json:"compress" yaml:"compress"`
	UseCached bool   `json:"use_cached" yaml:"use_cached"`
}

// ReportConfig configures the outputs.
type ReportConfig struct {
	Path     string `json:"path" yaml:"path"`
	JSONPath string `json:"json_path,omitempty" yaml:"json_path,omitempty"`
	DryRun   bool   `json:"dry_run" yaml:"dry_run"`
}

// FleetConfig mirrors parser.FleetOptions.
type FleetConfig struct {
	ContentSelector string   `json:"content_selector" yaml:"content_selector"`
	MaxExamples     int      `json:"max_examples" yaml:"max_examples"`
	ExemptKeys      []string `json:"exempt_keys" yaml:"exempt_keys"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	macro := parser.DefaultMacroOptions()
	fleet := parser.DefaultFleetOptions()

	return &Config{
		Sources: SourcesConfig{
			Fleet:   fetch.Source{Name: parser.SourceFleet, URL: DefaultFleetURL},
			Catalog: fetch.Source{Name: parser.SourceCatalog, URL: DefaultCatalogURL},
			Command: fetch.Source{Name: parser.SourceCommand, URL: DefaultCommandURL},
		},
		Client: ClientConfig{
			Root:        "..",
			Pattern:     fetch.DefaultSourcePattern,
			BlockOpener: macro.BlockOpener,
			RootPath:    macro.RootPath,
		},
		Cache: CacheConfig{
			Dir:     "cached",
			Backend: cache.BackendFile,
		},
		Report: ReportConfig{
			Path: "../API.md",
		},
		Filter:  scope.DefaultRules(),
		Renames: parser.DefaultCommandRenames(),
		Fleet: FleetConfig{
			ContentSelector: fleet.ContentSelector,
			MaxExamples:     fleet.MaxExamples,
			ExemptKeys:      fleet.ExemptKeys,
		},
		HTTP: fetch.DefaultClientConfig(),
	}
}

// LoadFromFile loads configuration from a file. Files ending in .json are
// read as JSON, everything else as YAML. Unset fields keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()

	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, config)
	} else {
		err = yaml.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a file.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err = json.MarshalIndent(c, "", "  ")
	} else {
		data, err = yaml.Marshal(c)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	names := make(map[string]bool)
	for _, src := range c.Sources.List() {
		if src.Name == "" {
			return fmt.Errorf("every source needs a name")
		}
		if src.URL == "" {
			return fmt.Errorf("source %s has no URL", src.Name)
		}
		if names[src.Name] {
			return fmt.Errorf("duplicate source name %s", src.Name)
		}
		names[src.Name] = true
	}

	if c.Client.Root == "" {
		return fmt.Errorf("client source root is required")
	}
	if c.Client.BlockOpener == "" {
		return fmt.Errorf("client block opener is required")
	}

	switch c.Cache.Backend {
	case "", cache.BackendFile, cache.BackendBolt, cache.BackendMemory:
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}

	if c.Report.Path == "" && !c.Report.DryRun {
		return fmt.Errorf("report path is required")
	}

	if c.Fleet.MaxExamples < 1 {
		return fmt.Errorf("fleet max examples must be at least 1")
	}

	if c.HTTP.Timeout < time.Second {
		return fmt.Errorf("http timeout must be at least 1s")
	}

	seen := make(map[string]bool)
	for _, r := range c.Renames {
		if r.From == "" || r.To == "" {
			return fmt.Errorf("rename entries need both from and to")
		}
		if seen[r.From] {
			return fmt.Errorf("command %s renamed twice", r.From)
		}
		seen[r.From] = true
	}

	return nil
}

// MacroOptions returns the macro extractor options for c.
func (c *Config) MacroOptions() parser.MacroOptions {
	return parser.MacroOptions{
		BlockOpener: c.Client.BlockOpener,
		RootPath:    c.Client.RootPath,
	}
}

// FleetOptions returns the documentation extractor options for c.
func (c *Config) FleetOptions() parser.FleetOptions {
	return parser.FleetOptions{
		ContentSelector: c.Fleet.ContentSelector,
		MaxExamples:     c.Fleet.MaxExamples,
		ExemptKeys:      c.Fleet.ExemptKeys,
	}
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	data, _ := json.Marshal(c)
	clone := &Config{}
	json.Unmarshal(data, clone)
	return clone
}
