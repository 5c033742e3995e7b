package parser

import (
	"regexp"
	"strings"
	"unicode"
)

var placeholderPattern = regexp.MustCompile(`\{[^{}]*\}`)

// Normalize converts an identifier from any source to its canonical
// kebab-case key. snake_case, PascalCase, camelCase, heading text and
// kebab-case all map to the same form:
//
//	Normalize("SetChargeLimit")   == "set-charge-limit"
//	Normalize("set_charge_limit") == "set-charge-limit"
//
// Digits stay attached to the word they follow. Normalize is idempotent.
func Normalize(s string) string {
	runes := []rune(s)
	words := make([]string, 0, 4)
	word := make([]rune, 0, len(runes))

	flush := func() {
		if len(word) > 0 {
			words = append(words, strings.ToLower(string(word)))
			word = word[:0]
		}
	}

	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}

		if unicode.IsUpper(r) && len(word) > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			// "chargeLimit", "api1Status", and the last capital of "HTTPServer"
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}

		word = append(word, r)
	}
	flush()

	return strings.Join(words, "-")
}

// CanonicalURI replaces every path placeholder with {} so that "{id}",
// "{vehicle_id}" and "{}" compare equal.
func CanonicalURI(uri string) string {
	return placeholderPattern.ReplaceAllString(uri, "{}")
}

// SameCall reports whether two REST endpoints describe the same call.
func SameCall(a, b Restful) bool {
	return a.HTTPMethod() == b.HTTPMethod() && CanonicalURI(a.Path()) == CanonicalURI(b.Path())
}
