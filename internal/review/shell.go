package review

import (
	"path"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// maxNesting bounds how deep eval and sh -c payloads are followed.
const maxNesting = 8

// program is one command name found in a command line. dynamic is set when
// the name is only known at run time, such as $EDITOR or $(which rm).
type program struct {
	name    string
	dynamic bool
}

// shells run their -c argument as a script.
var shells = map[string]bool{
	"sh": true, "bash": true, "dash": true, "zsh": true, "ksh": true, "ash": true,
}

// wrappers run their first operand as another program.
var wrappers = map[string]bool{
	"sudo": true, "env": true, "nohup": true, "exec": true, "command": true,
	"builtin": true, "time": true, "nice": true, "timeout": true, "xargs": true,
	"doas": true, "stdbuf": true,
}

// programsOf parses command as bash and returns every program it would run,
// in source order.
func programsOf(command string) ([]program, error) {
	return parsePrograms(command, 0)
}

func parsePrograms(script string, depth int) ([]program, error) {
	f, err := syntax.NewParser().Parse(strings.NewReader(script), "")
	if err != nil {
		return nil, err
	}

	var programs []program
	syntax.Walk(f, func(node syntax.Node) bool {
		switch x := node.(type) {
		case *syntax.CallExpr:
			programs = append(programs, callPrograms(x.Args, depth)...)
		case *syntax.DeclClause:
			if x.Variant != nil {
				programs = append(programs, program{name: x.Variant.Value})
			}
		}
		return true
	})
	return programs, nil
}

// callPrograms returns the program of a simple command plus whatever it
// runs on behalf of its arguments.
func callPrograms(args []*syntax.Word, depth int) []program {
	if len(args) == 0 {
		return nil
	}
	name, ok := literal(args[0])
	if !ok {
		return []program{{dynamic: true}}
	}

	programs := []program{{name: name}}
	base := path.Base(name)
	rest := args[1:]

	switch {
	case base == "eval":
		programs = append(programs, payload(rest, depth)...)
	case shells[base]:
		for i, w := range rest {
			flag, ok := literal(w)
			if !ok || !strings.HasPrefix(flag, "-") || strings.HasPrefix(flag, "--") {
				continue
			}
			if strings.Contains(flag, "c") && i+1 < len(rest) {
				programs = append(programs, payload(rest[i+1:i+2], depth)...)
				break
			}
		}
	case wrappers[base]:
		programs = append(programs, callPrograms(operands(rest), depth)...)
	}
	return programs
}

// payload parses words as a nested script.
func payload(words []*syntax.Word, depth int) []program {
	if len(words) == 0 {
		return nil
	}
	if depth >= maxNesting {
		return []program{{dynamic: true}}
	}

	parts := make([]string, 0, len(words))
	for _, w := range words {
		s, ok := literal(w)
		if !ok {
			return []program{{dynamic: true}}
		}
		parts = append(parts, s)
	}

	programs, err := parsePrograms(strings.Join(parts, " "), depth+1)
	if err != nil {
		return []program{{dynamic: true}}
	}
	return programs
}

// operands skips the options, assignments and numeric arguments a wrapper
// takes before the program it runs.
func operands(words []*syntax.Word) []*syntax.Word {
	for i, w := range words {
		s, ok := literal(w)
		if !ok {
			return words[i:]
		}
		if strings.HasPrefix(s, "-") || strings.Contains(s, "=") || isNumber(s) {
			continue
		}
		return words[i:]
	}
	return nil
}

// literal returns the value of a word with quotes removed. ok is false when
// the word contains an expansion.
func literal(w *syntax.Word) (string, bool) {
	var sb strings.Builder
	for _, part := range w.Parts {
		switch x := part.(type) {
		case *syntax.Lit:
			sb.WriteString(unescape(x.Value))
		case *syntax.SglQuoted:
			if x.Dollar {
				return "", false
			}
			sb.WriteString(x.Value)
		case *syntax.DblQuoted:
			for _, inner := range x.Parts {
				lit, ok := inner.(*syntax.Lit)
				if !ok {
					return "", false
				}
				sb.WriteString(lit.Value)
			}
		default:
			return "", false
		}
	}
	return sb.String(), true
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

func isNumber(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && c != '.' && c != 's' && c != 'm' {
			return false
		}
	}
	return true
}
