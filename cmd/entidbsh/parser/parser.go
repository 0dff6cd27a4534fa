// Package parser tokenizes one REPL input line into a dot-command plus its
// arguments.
//
// Adapted from the teacher's cmd/docdbsh/parser/parser.go: the dot-prefix
// convention and Command shape are kept verbatim; ValidateDB (a
// socket-session concept) is dropped since this shell holds an embedded
// *database.Database directly rather than a remote db handle.
package parser

import (
	"fmt"
	"strconv"
	"strings"
)

// Command is one parsed REPL line: a dot-command name plus its
// whitespace-separated arguments. A double-quoted span stays one argument;
// any run of whitespace inside it is kept as a single space.
type Command struct {
	Name string
	Args []string
	Line string
}

// Parse tokenizes line into a Command. Every command must start with '.'.
func Parse(line string) (*Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, fmt.Errorf("empty command")
	}

	var parts []string
	open := false
	for _, f := range strings.Fields(line) {
		if open {
			parts[len(parts)-1] += " " + f
		} else {
			parts = append(parts, f)
		}
		if strings.Count(f, `"`)%2 == 1 {
			open = !open
		}
	}
	if !strings.HasPrefix(parts[0], ".") {
		return nil, fmt.Errorf("commands must start with '.'")
	}

	return &Command{Name: parts[0], Args: parts[1:], Line: line}, nil
}

// ValidateArgs returns an error if cmd has fewer than count arguments.
func ValidateArgs(cmd *Command, count int) error {
	if len(cmd.Args) < count {
		return fmt.Errorf("expected %d argument(s), got %d", count, len(cmd.Args))
	}
	return nil
}

// ParseUint64 parses a base-10 unsigned integer argument.
func ParseUint64(s string) (uint64, error) {
	return strconv.ParseUint(s, 10, 64)
}
