package scope

// ScopeRules defines which endpoint URIs belong in the coverage report.
type ScopeRules struct {
	// ExcludePrefixes drop any URI starting with one of them.
	ExcludePrefixes []string `json:"exclude_prefixes" yaml:"exclude_prefixes"`
	// ExcludeGlobs drop URIs matching a doublestar pattern such as
	// "/api/1/dx/**".
	ExcludeGlobs []string `json:"exclude_globs,omitempty" yaml:"exclude_globs,omitempty"`
	// ExcludePatterns drop URIs matching a regular expression.
	ExcludePatterns []string `json:"exclude_patterns,omitempty" yaml:"exclude_patterns,omitempty"`
}
