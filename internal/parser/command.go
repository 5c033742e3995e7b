package parser

import (
	"fmt"
	"strings"

	"github.com/PentesterFlow/apicoverage/internal/errors"
	"github.com/PentesterFlow/apicoverage/internal/scanner"
)

// commandsAnchor opens the map literal holding every command.
const commandsAnchor = "var commands = map[string]*Command{\n"

// CommandRename maps a command name to the name the other sources use.
type CommandRename struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// DefaultCommandRenames lists the commands whose names differ from the REST
// endpoint they drive.
func DefaultCommandRenames() []CommandRename {
	return []CommandRename{
		{From: "auto-seat-and-climate", To: "auto-conditioning-start"},
		{From: "charging-set-limit", To: "set-charge-limit"},
		{From: "charging-start", To: "charge-start"},
		{From: "charging-stop", To: "charge-stop"},
		{From: "charge-port-open", To: "charge-port-door-open"},
		{From: "charge-port-close", To: "charge-port-door-close"},
		{From: "honk", To: "honk-horn"},
		{From: "software-update-cancel", To: "cancel-software-update"},
		{From: "wake", To: "wake-up"},
	}
}

// ParseCommands extracts the command table of the vehicle command tool. Each
// entry of the map literal looks like
//
//	"unlock": &Command{
//		help:             "Unlock vehicle",
//		requiresAuth:     true,
//		requiresFleetAPI: false,
//		args: []Argument{
//			Argument{name: "ROLE", help: "One of: owner, driver"},
//		},
//		handler: func(ctx context.Context, acct *account.Account, car *vehicle.Vehicle, args map[string]string) error {
//			return car.Unlock(ctx)
//		},
//	},
//
// Keys are kept verbatim. Everything after the argument lists is skipped.
func ParseCommands(src string) (map[string]CommandEndpoint, error) {
	_, s, found := strings.Cut(src, commandsAnchor)
	if !found {
		return nil, errors.NewStructureError(SourceCommand, "", "command map not found")
	}

	result := make(map[string]CommandEndpoint, 100)
	for {
		s = skipTrivia(s)
		if !strings.HasPrefix(s, `"`) {
			break
		}

		rest, ep, err := parseCommandEntry(s)
		if err != nil {
			return nil, err
		}
		if _, exists := result[ep.Name]; exists {
			return nil, errors.NewStructureError(SourceCommand, ep.Name, "duplicate command")
		}
		result[ep.Name] = ep
		s = rest
	}

	if _, err := scanner.Tag(s, "}"); err != nil {
		return nil, errors.NewStructureError(SourceCommand, "",
			fmt.Sprintf("expected a command key or the end of the map, found %q", scanner.Snippet(s)))
	}

	if len(result) == 0 {
		return nil, errors.NewStructureError(SourceCommand, "",
			fmt.Sprintf("no commands after map opening, found %q", scanner.Snippet(s)))
	}

	return result, nil
}

// RenameCommands applies renames to commands in order. Every From must be
// present and no To may already be taken.
func RenameCommands(commands map[string]CommandEndpoint, renames []CommandRename) error {
	for _, r := range renames {
		ep, ok := commands[r.From]
		if !ok {
			return errors.NewStructureError(SourceCommand, r.From,
				fmt.Sprintf("rename to %q: command not found", r.To))
		}
		if _, taken := commands[r.To]; taken {
			return errors.NewStructureError(SourceCommand, r.To,
				fmt.Sprintf("rename from %q: command already exists", r.From))
		}

		delete(commands, r.From)
		ep.Name = r.To
		commands[r.To] = ep
	}
	return nil
}

func parseCommandEntry(s string) (string, CommandEndpoint, error) {
	var (
		ep  CommandEndpoint
		err error
	)

	if s, ep.Name, err = scanner.QuotedString(s); err != nil {
		return s, ep, commandError("", "key", err)
	}
	fail := func(field string, err error) (string, CommandEndpoint, error) {
		return s, CommandEndpoint{}, commandError(ep.Name, field, err)
	}

	// rest of `"unlock": &Command{`
	if s, _, err = scanner.ConsumeLine(s); err != nil {
		return fail("key", err)
	}

	if s, err = scanner.Tag(scanner.SkipWhitespace(s), "help:"); err != nil {
		return fail("help", err)
	}
	if s, ep.Help, err = scanner.QuotedString(scanner.SkipWhitespace(s)); err != nil {
		return fail("help", err)
	}
	if s, err = scanner.Tag(scanner.SkipWhitespace(s), ","); err != nil {
		return fail("help", err)
	}

	if s, ep.RequiresAuth, err = optionalBool(s, "requiresAuth:"); err != nil {
		return fail("requiresAuth", err)
	}
	if s, ep.RequiresFleetAPI, err = optionalBool(s, "requiresFleetAPI:"); err != nil {
		return fail("requiresFleetAPI", err)
	}
	if s, ep.Args, err = optionalArguments(s, "args: []Argument{"); err != nil {
		return fail("args", err)
	}
	if s, ep.Optional, err = optionalArguments(s, "optional: []Argument{"); err != nil {
		return fail("optional", err)
	}

	// handler and anything else, up to the entry's own closing brace
	if s, err = scanner.SkipBalanced(s, 1); err != nil {
		return fail("handler", err)
	}
	if s, err = scanner.Tag(scanner.SkipWhitespace(s), ","); err != nil {
		return fail("end of entry", err)
	}

	return s, ep, nil
}

// optionalBool reads `label value,`. An absent label yields false.
func optionalBool(s, label string) (string, bool, error) {
	r, err := scanner.Tag(scanner.SkipWhitespace(s), label)
	if err != nil {
		return s, false, nil
	}

	r, value, err := scanner.Bool(scanner.SkipWhitespace(r))
	if err != nil {
		return s, false, err
	}
	if r, err = scanner.Tag(scanner.SkipWhitespace(r), ","); err != nil {
		return s, false, err
	}
	return r, value, nil
}

// optionalArguments reads `label Argument{...}, ... },`. An absent label
// yields no arguments.
func optionalArguments(s, label string) (string, []Argument, error) {
	r, err := scanner.Tag(scanner.SkipWhitespace(s), label)
	if err != nil {
		return s, nil, nil
	}

	var args []Argument
	for {
		r = skipTrivia(r)
		if rest, err := scanner.Tag(r, "}"); err == nil {
			r = rest
			break
		}

		var arg Argument
		if r, arg, err = parseArgument(r); err != nil {
			return s, nil, err
		}
		args = append(args, arg)
	}

	if r, err = scanner.Tag(scanner.SkipWhitespace(r), ","); err != nil {
		return s, nil, err
	}
	return r, args, nil
}

// parseArgument reads `Argument{name: "..", help: ".."},`. The type name may
// be elided, as gofmt -s does inside slice literals.
func parseArgument(s string) (string, Argument, error) {
	var (
		arg Argument
		err error
	)

	if rest, err := scanner.Tag(s, "Argument"); err == nil {
		s = rest
	}
	if s, err = scanner.Tag(s, "{"); err != nil {
		return s, arg, err
	}
	if s, err = scanner.Tag(scanner.SkipWhitespace(s), "name:"); err != nil {
		return s, arg, err
	}
	if s, arg.Name, err = scanner.QuotedString(scanner.SkipWhitespace(s)); err != nil {
		return s, arg, err
	}
	if s, err = scanner.Tag(scanner.SkipWhitespace(s), ","); err != nil {
		return s, arg, err
	}
	if s, err = scanner.Tag(scanner.SkipWhitespace(s), "help:"); err != nil {
		return s, arg, err
	}
	if s, arg.Help, err = scanner.QuotedString(scanner.SkipWhitespace(s)); err != nil {
		return s, arg, err
	}

	s = scanner.SkipWhitespace(s)
	if rest, err := scanner.Tag(s, ","); err == nil {
		s = scanner.SkipWhitespace(rest)
	}
	if s, err = scanner.Tag(s, "}"); err != nil {
		return s, arg, err
	}
	if rest, err := scanner.Tag(scanner.SkipWhitespace(s), ","); err == nil {
		s = rest
	}
	return s, arg, nil
}

// skipTrivia skips whitespace and line comments.
func skipTrivia(s string) string {
	for {
		s = scanner.SkipWhitespace(s)
		if !strings.HasPrefix(s, "//") {
			return s
		}
		rest, _, err := scanner.ConsumeLine(s)
		if err != nil {
			return ""
		}
		s = rest
	}
}

func commandError(key, field string, err error) error {
	return errors.NewCoverageError(errors.Parse, SourceCommand, "command",
		fmt.Sprintf("field %s", field), err).WithKey(key)
}
