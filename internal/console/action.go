// Package console implements Radar's remote control channel: a second
// listener on the server accepting QUERY frames such as {"action":
// "disable(3, 4)"}, and the client used by `radar console` and `radar watch`.
package console

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/radarmon/radar/internal/errors"
)

// Action is a parsed console command: a name and integer arguments.
type Action struct {
	Name string
	Args []int
}

func (a Action) String() string {
	args := make([]string, len(a.Args))
	for i, n := range a.Args {
		args[i] = strconv.Itoa(n)
	}
	return a.Name + "(" + strings.Join(args, ", ") + ")"
}

// ParseAction parses `name`, `name()` or `name(1, 2, ...)`.
func ParseAction(s string) (Action, error) {
	s = strings.TrimSpace(s)
	open := strings.IndexByte(s, '(')

	name := s
	if open >= 0 {
		name = strings.TrimSpace(s[:open])
	}
	if !isIdent(name) {
		return Action{}, parseError(s, "expected a command name")
	}
	if open < 0 {
		return Action{Name: name}, nil
	}

	if !strings.HasSuffix(s, ")") {
		return Action{}, parseError(s, "missing closing parenthesis")
	}
	body := strings.TrimSpace(s[open+1 : len(s)-1])
	a := Action{Name: name}
	if body == "" {
		return a, nil
	}
	for _, part := range strings.Split(body, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return Action{}, parseError(s, fmt.Sprintf("'%s' is not an integer", strings.TrimSpace(part)))
		}
		a.Args = append(a.Args, n)
	}
	return a, nil
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return true
}

func parseError(cmd, detail string) error {
	return errors.New(errors.ErrConsole,
		fmt.Sprintf("Error - Couldn't parse command : '%s'. Details : '%s'.", cmd, detail),
		"Commands look like list(), enable(1, 2), disable(3) or test(4)")
}
