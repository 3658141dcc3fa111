package app

import (
	"flag"
	"strconv"
	"strings"
)

// ParseArgs parses flags that may appear before, between or after positional
// arguments ("queue.db --debug" and "--debug queue.db" are equivalent).
// Everything after "--" is positional. Empty arguments stay positional.
//
// Once positionals have started, a dash-prefixed argument that does not name
// a known flag stays positional when it contains a space or is a negative
// number, so alert texts like "-1 days until expiry" are not taken as flags.
func ParseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	rest := fs.Args()
	if consumed := args[:len(args)-len(rest)]; len(consumed) > 0 && consumed[len(consumed)-1] == "--" {
		return rest, nil
	}

	var pos []string
	for len(rest) > 0 {
		switch {
		case isPositional(fs, rest[0]):
			pos = append(pos, rest[0])
			rest = rest[1:]
		case rest[0] == "--":
			return append(pos, rest[1:]...), nil
		default:
			n := flagLen(fs, rest)
			if err := fs.Parse(rest[:n]); err != nil {
				return nil, err
			}
			rest = rest[n:]
		}
	}
	return pos, nil
}

func flagName(s string) (name string, hasValue bool) {
	name, _, hasValue = strings.Cut(strings.TrimPrefix(s[1:], "-"), "=")
	return name, hasValue
}

func isPositional(fs *flag.FlagSet, s string) bool {
	if len(s) < 2 || s[0] != '-' {
		return true
	}
	if s == "--" {
		return false
	}
	if name, _ := flagName(s); fs.Lookup(name) != nil {
		return false
	}
	if strings.ContainsRune(s, ' ') {
		return true
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// flagLen is the number of arguments the flag at args[0] takes, its value included.
func flagLen(fs *flag.FlagSet, args []string) int {
	name, hasValue := flagName(args[0])
	f := fs.Lookup(name)
	if f == nil || hasValue || len(args) == 1 {
		return 1
	}
	if b, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && b.IsBoolFlag() {
		return 1
	}
	return 2
}
