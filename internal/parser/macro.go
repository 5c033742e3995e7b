package parser

import (
	"fmt"
	"strings"

	"github.com/PentesterFlow/apicoverage/internal/errors"
	"github.com/PentesterFlow/apicoverage/internal/logger"
	"github.com/PentesterFlow/apicoverage/internal/scanner"
)

// MacroOptions configures ParseMacroSources.
type MacroOptions struct {
	// BlockOpener is the suffix of the line that opens the scanned impl block.
	BlockOpener string
	// RootPath is prepended to every URI, as the macros do when expanded.
	RootPath string
	Logger   *logger.Logger
}

// DefaultMacroOptions returns the options matching the client library.
func DefaultMacroOptions() MacroOptions {
	return MacroOptions{
		BlockOpener: "OwnerApi {",
		RootPath:    "/api/1",
	}
}

// macroShape describes one family of endpoint macros.
//
//	get!(vehicles, Vec<Vehicle>, "/vehicles");
//	get_arg!(vehicle_data, VehicleData, "/vehicles/{}/vehicle_data", VehicleId);
//	get_args!(energy_history, EnergyHistory, "/powerwalls/{}/energyhistory", EnergyHistoryValues);
//	post_arg!(set_charge_limit, SetChargeLimit, "/vehicles/{}/command/set_charge_limit", VehicleId);
//	post_arg_empty!(wake_up, "/vehicles/{}/command/wake_up", VehicleId);
type macroShape struct {
	name         string
	method       Method
	responseType bool
	argType      bool
}

// Matched in order; the first tag that matches decides the shape.
var macroShapes = []macroShape{
	{name: "get", method: MethodGet, responseType: true},
	{name: "get_arg", method: MethodGet, responseType: true, argType: true},
	{name: "get_args", method: MethodGet, responseType: true, argType: true},
	{name: "post_arg", method: MethodPost, responseType: true, argType: true},
	{name: "post_arg_empty", method: MethodPost, argType: true},
}

func (m macroShape) tags() []string {
	return []string{m.name + "!(", "pub_" + m.name + "!("}
}

// blockState is the scan accumulator threaded through the lines of a file.
type blockState struct {
	inside    bool
	depth     int
	openedAt  int
	endpoints []MacroEndpoint
}

// ParseMacroSources scans the client library sources for endpoint macros
// declared inside the target impl block and returns them keyed by their
// normalized function name.
func ParseMacroSources(files []SourceFile, opts MacroOptions) (map[string]MacroEndpoint, error) {
	defaults := DefaultMacroOptions()
	if opts.BlockOpener == "" {
		opts.BlockOpener = defaults.BlockOpener
	}
	if opts.RootPath == "" {
		opts.RootPath = defaults.RootPath
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	log = log.WithSource(SourceMacro)

	result := make(map[string]MacroEndpoint, 100)
	for _, file := range files {
		endpoints, err := parseMacroFile(file, opts.BlockOpener)
		if err != nil {
			return nil, err
		}

		for _, ep := range endpoints {
			ep.Name = Normalize(ep.Name)
			ep.URI = opts.RootPath + ep.URI

			if prev, exists := result[ep.Name]; exists && (prev.URI != ep.URI || prev.Method != ep.Method) {
				return nil, errors.NewStructureError(SourceMacro, ep.Name,
					fmt.Sprintf("%s:%d declares %s %s, %s:%d declares %s %s",
						prev.File, prev.Line, prev.Method, prev.URI, ep.File, ep.Line, ep.Method, ep.URI))
			}
			log.WithKey(ep.Name).Debugf("%s %s", ep.Method, ep.URI)
			result[ep.Name] = ep
		}
	}

	return result, nil
}

func parseMacroFile(file SourceFile, opener string) ([]MacroEndpoint, error) {
	st := blockState{}

	for i, raw := range strings.Split(file.Content, "\n") {
		lineNo := i + 1
		line := strings.TrimSpace(raw)

		if strings.HasSuffix(line, opener) {
			if st.inside {
				return nil, errors.NewStructureError(SourceMacro, "",
					fmt.Sprintf("%s:%d: nested %q inside block opened at line %d", file.Path, lineNo, opener, st.openedAt))
			}
			st.inside = true
			st.depth = 1
			st.openedAt = lineNo
			continue
		}

		if !st.inside {
			continue
		}

		if line == "}" && st.depth == 1 {
			st.inside = false
			st.depth = 0
			continue
		}
		st.depth += braceDelta(line)

		ep, ok, err := parseMacroLine(line)
		if err != nil {
			return nil, errors.NewCoverageError(errors.Parse, SourceMacro, "macro",
				fmt.Sprintf("%s:%d: malformed macro invocation", file.Path, lineNo), err)
		}
		if !ok {
			continue
		}

		ep.File = file.Path
		ep.Line = lineNo
		st.endpoints = append(st.endpoints, ep)
	}

	if st.inside {
		return nil, errors.NewStructureError(SourceMacro, "",
			fmt.Sprintf("%s: block opened at line %d is never closed", file.Path, st.openedAt))
	}

	return st.endpoints, nil
}

// parseMacroLine matches line against the macro shapes. A line that starts
// with none of the macro tags is not an endpoint. A line that does start with
// one must be well formed.
func parseMacroLine(line string) (MacroEndpoint, bool, error) {
	for _, shape := range macroShapes {
		for _, tag := range shape.tags() {
			rest, err := scanner.Tag(line, tag)
			if err != nil {
				continue
			}
			ep, err := parseMacroArgs(shape, rest)
			if err != nil {
				return MacroEndpoint{}, false, fmt.Errorf("%s: %w", tag, err)
			}
			return ep, true, nil
		}
	}
	return MacroEndpoint{}, false, nil
}

func parseMacroArgs(shape macroShape, s string) (MacroEndpoint, error) {
	var (
		name, uri string
		err       error
	)

	s = scanner.SkipWhitespace(s)
	if s, name, err = scanner.TakeWhile1(s, isFunctionChar); err != nil {
		return MacroEndpoint{}, err
	}
	if s, err = comma(s); err != nil {
		return MacroEndpoint{}, err
	}

	if shape.responseType {
		if s, _, err = scanner.TakeWhile1(s, isTypeChar); err != nil {
			return MacroEndpoint{}, err
		}
		if s, err = comma(s); err != nil {
			return MacroEndpoint{}, err
		}
	}

	if s, uri, err = scanner.QuotedString(s); err != nil {
		return MacroEndpoint{}, err
	}

	if shape.argType {
		if s, err = comma(s); err != nil {
			return MacroEndpoint{}, err
		}
		if s, _, err = scanner.TakeWhile1(s, isTypeChar); err != nil {
			return MacroEndpoint{}, err
		}
	}

	s = scanner.SkipWhitespace(s)
	if _, err = scanner.Tag(s, ");"); err != nil {
		return MacroEndpoint{}, err
	}

	return MacroEndpoint{
		Name:   name,
		Method: shape.method,
		URI:    uri,
	}, nil
}

func comma(s string) (string, error) {
	s, err := scanner.Tag(scanner.SkipWhitespace(s), ",")
	if err != nil {
		return s, err
	}
	return scanner.SkipWhitespace(s), nil
}

func isFunctionChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_'
}

func isTypeChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') ||
		c == '_' || c == '<' || c == '>' || c == ':'
}

// braceDelta counts opening minus closing braces outside string literals,
// ignoring a trailing line comment.
func braceDelta(line string) int {
	delta := 0
	inString := false
	escaped := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '/' && i+1 < len(line) && line[i+1] == '/':
			return delta
		case c == '{':
			delta++
		case c == '}':
			delta--
		}
	}
	return delta
}
