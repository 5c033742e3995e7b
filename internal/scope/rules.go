package scope

// DefaultExcludePrefixes are administrative and app-internal paths that are
// not part of the public API.
var DefaultExcludePrefixes = []string{
	"/commerce-api",
	"/api/1/directives",
	"/api/1/subscriptions",
	"/api/1/dx/",
	"/mobile-app",
	"/bff/mobile-app",
	"/bff/v2/mobile-app",
}

// DefaultRules returns rules excluding DefaultExcludePrefixes.
func DefaultRules() ScopeRules {
	return ScopeRules{
		ExcludePrefixes: append([]string(nil), DefaultExcludePrefixes...),
	}
}
