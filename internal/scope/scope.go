// Package scope decides which endpoint URIs are in scope for the coverage
// report.
package scope

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Checker validates URIs against scope rules.
type Checker struct {
	rules          ScopeRules
	excludeRegexps []*regexp.Regexp
}

// NewChecker creates a new scope checker.
func NewChecker(rules ScopeRules) (*Checker, error) {
	c := &Checker{}

	for _, prefix := range rules.ExcludePrefixes {
		if prefix == "" {
			return nil, fmt.Errorf("empty exclude prefix")
		}
	}

	for _, glob := range rules.ExcludeGlobs {
		if !doublestar.ValidatePattern(glob) {
			return nil, fmt.Errorf("invalid exclude glob %q", glob)
		}
	}

	// Compile exclude patterns
	for _, pattern := range rules.ExcludePatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, err
		}
		c.excludeRegexps = append(c.excludeRegexps, re)
	}

	c.rules = rules
	return c, nil
}

// IsInScope reports whether uri belongs in the report.
func (c *Checker) IsInScope(uri string) bool {
	_, excluded := c.ExcludedBy(uri)
	return !excluded
}

// ExcludedBy returns the rule that excludes uri, if any.
func (c *Checker) ExcludedBy(uri string) (string, bool) {
	for _, prefix := range c.rules.ExcludePrefixes {
		if strings.HasPrefix(uri, prefix) {
			return prefix, true
		}
	}

	for _, glob := range c.rules.ExcludeGlobs {
		if ok, _ := doublestar.Match(glob, uri); ok {
			return glob, true
		}
	}

	for _, re := range c.excludeRegexps {
		if re.MatchString(uri) {
			return re.String(), true
		}
	}

	return "", false
}
