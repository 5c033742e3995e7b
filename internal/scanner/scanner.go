// Package scanner provides small cursor-style parsing primitives shared by the
// text-based endpoint extractors.
//
// Every function takes the remaining input and returns what is left after it
// consumed something, plus the extracted value. Nothing is mutated, so the
// primitives compose freely and can be tested one at a time.
package scanner

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoMatch is wrapped by every scanner failure.
var ErrNoMatch = errors.New("no match")

// traceWidth is how much of the remaining input an Error keeps for context.
const traceWidth = 20

// Error describes where a primitive failed.
type Error struct {
	Op    string
	Input string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: expected match at %q", e.Op, e.Input)
}

// Unwrap returns ErrNoMatch.
func (e *Error) Unwrap() error {
	return ErrNoMatch
}

func fail(op, s string) error {
	return &Error{Op: op, Input: Snippet(s)}
}

// Snippet returns the first few characters of s, for log and error context.
func Snippet(s string) string {
	if len(s) <= traceWidth {
		return s
	}
	return s[:traceWidth] + "..."
}

// QuotedString expects s to start with a double quote and returns the content
// up to, not including, the next unescaped double quote. Escape sequences are
// returned verbatim.
func QuotedString(s string) (rest, value string, err error) {
	if !strings.HasPrefix(s, `"`) {
		return s, "", fail("quoted string", s)
	}

	escaped := false
	for i := 1; i < len(s); i++ {
		switch {
		case escaped:
			escaped = false
		case s[i] == '\\':
			escaped = true
		case s[i] == '"':
			return s[i+1:], s[1:i], nil
		}
	}

	return s, "", fail("quoted string (unterminated)", s)
}

// SkipWhitespace consumes spaces, tabs and line endings. It never fails.
func SkipWhitespace(s string) string {
	return strings.TrimLeft(s, " \t\r\n")
}

// ConsumeLine consumes through the next newline and returns the line without
// it. A trailing carriage return is dropped as well.
func ConsumeLine(s string) (rest, line string, err error) {
	idx := strings.IndexByte(s, '\n')
	if idx < 0 {
		return s, "", fail("end of line", s)
	}
	return s[idx+1:], strings.TrimSuffix(s[:idx], "\r"), nil
}

// Tag consumes the literal t.
func Tag(s, t string) (string, error) {
	if !strings.HasPrefix(s, t) {
		return s, fail("tag "+t, s)
	}
	return s[len(t):], nil
}

// TakeUntil returns everything before marker. The marker itself is not
// consumed.
func TakeUntil(s, marker string) (rest, taken string, err error) {
	idx := strings.Index(s, marker)
	if idx < 0 {
		return s, "", fail("take until "+marker, s)
	}
	return s[idx:], s[:idx], nil
}

// TakeWhile1 consumes one or more leading bytes accepted by pred.
func TakeWhile1(s string, pred func(byte) bool) (rest, taken string, err error) {
	i := 0
	for i < len(s) && pred(s[i]) {
		i++
	}
	if i == 0 {
		return s, "", fail("take while", s)
	}
	return s[i:], s[:i], nil
}

// Bool consumes a literal true or false.
func Bool(s string) (rest string, value bool, err error) {
	if r, err := Tag(s, "true"); err == nil {
		return r, true, nil
	}
	if r, err := Tag(s, "false"); err == nil {
		return r, false, nil
	}
	return s, false, fail("bool", s)
}

// SkipBalanced consumes input until the brace that closes an already-open
// group of the given depth, and returns the input after that brace. Braces
// inside double-quoted, back-quoted and rune literals, and inside line
// comments, are not counted.
func SkipBalanced(s string, depth int) (string, error) {
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[i+1:], nil
			}
		case '"', '\'':
			end := closingQuote(s, i, c)
			if end < 0 {
				return s, fail("balanced braces (unterminated literal)", s[i:])
			}
			i = end
		case '`':
			end := strings.IndexByte(s[i+1:], '`')
			if end < 0 {
				return s, fail("balanced braces (unterminated raw string)", s[i:])
			}
			i += end + 1
		case '/':
			if i+1 < len(s) && s[i+1] == '/' {
				end := strings.IndexByte(s[i:], '\n')
				if end < 0 {
					return s, fail("balanced braces", s)
				}
				i += end
			}
		}
	}
	return s, fail("balanced braces", s)
}

// closingQuote returns the index of the quote that closes the literal opened
// at s[start], honouring backslash escapes.
func closingQuote(s string, start int, quote byte) int {
	escaped := false
	for i := start + 1; i < len(s); i++ {
		switch {
		case escaped:
			escaped = false
		case s[i] == '\\':
			escaped = true
		case s[i] == quote:
			return i
		case s[i] == '\n':
			return -1
		}
	}
	return -1
}
