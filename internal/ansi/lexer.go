package ansi

import (
	"strconv"
	"strings"
)

// Kind identifies the type of control sequence found by Find.
type Kind int

const (
	KindCarriageReturn Kind = iota
	KindSGR
	KindCursorUp
	KindEraseLine
	KindEraseDisplay
	KindOSC
	KindUnknown
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindCarriageReturn:
		return "carriage_return"
	case KindSGR:
		return "sgr"
	case KindCursorUp:
		return "cursor_up"
	case KindEraseLine:
		return "erase_line"
	case KindEraseDisplay:
		return "erase_display"
	case KindOSC:
		return "osc"
	default:
		return "unknown"
	}
}

// Match is a control sequence located in a line. Start and End are byte
// offsets, End exclusive.
type Match struct {
	Kind  Kind
	Start int
	End   int

	// Count is the number of lines for KindCursorUp.
	Count int
	// Mode is the erase mode for KindEraseLine and KindEraseDisplay.
	Mode int
}

const esc = '\x1b'

// escapePrefixes lists every accepted spelling of ESC. Only the first is a
// real control byte; the rest are unexpanded escapes printed by scripts.
var escapePrefixes = []string{
	"\x1b",
	`\x1b`,
	`\033`,
	`\u001b`,
	`\e`,
}

// Find returns the leftmost control sequence in line.
func Find(line string) (Match, bool) {
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '\r':
			return Match{Kind: KindCarriageReturn, Start: i, End: i + 1}, true
		case c == '\\' && i+1 < len(line) && line[i+1] == 'r':
			return Match{Kind: KindCarriageReturn, Start: i, End: i + 2}, true
		case c == esc || c == '\\':
			for _, prefix := range escapePrefixes {
				if !strings.HasPrefix(line[i:], prefix) {
					continue
				}
				if m, ok := parseSequence(line, i, i+len(prefix)); ok {
					return m, true
				}
			}
		}
	}
	return Match{}, false
}

// parseSequence reads the sequence introduced at body (just past the escape
// prefix that starts at start).
func parseSequence(line string, start, body int) (Match, bool) {
	if body >= len(line) {
		return Match{}, false
	}

	switch line[body] {
	case '[', '(':
		return parseCSI(line, start, body)
	case ']':
		return parseOSC(line, start, body+1)
	default:
		return Match{}, false
	}
}

func parseCSI(line string, start, body int) (Match, bool) {
	introducer := line[body]
	k := body + 1

	private := false
	if k < len(line) && line[k] == '?' {
		private = true
		k++
	}

	paramStart := k
	for k < len(line) && (isDigit(line[k]) || line[k] == ';') {
		k++
	}
	if k >= len(line) || !isLetter(line[k]) {
		return Match{}, false
	}

	params := line[paramStart:k]
	m := Match{Kind: KindUnknown, Start: start, End: k + 1}
	if private || introducer != '[' {
		return m, true
	}

	switch line[k] {
	case 'm':
		m.Kind = KindSGR
	case 'A':
		m.Kind = KindCursorUp
		// CUU treats an explicit 0 like the default of 1.
		m.Count = firstParam(params, 1)
		if m.Count == 0 {
			m.Count = 1
		}
	case 'K':
		m.Kind = KindEraseLine
		m.Mode = firstParam(params, 0)
	case 'J':
		m.Kind = KindEraseDisplay
		m.Mode = firstParam(params, 0)
	}
	return m, true
}

// parseOSC finds the BEL or ST terminator of an operating system command.
func parseOSC(line string, start, data int) (Match, bool) {
	for k := data; k < len(line); k++ {
		switch {
		case line[k] == '\a':
			return Match{Kind: KindOSC, Start: start, End: k + 1}, true
		case line[k] == esc && k+1 < len(line) && line[k+1] == '\\':
			return Match{Kind: KindOSC, Start: start, End: k + 2}, true
		}
	}
	return Match{}, false
}

// firstParam parses the first semicolon-separated parameter, falling back to
// def when it is absent or not a number.
func firstParam(params string, def int) int {
	first, _, _ := strings.Cut(params, ";")
	if first == "" {
		return def
	}
	n, err := strconv.Atoi(first)
	if err != nil {
		return def
	}
	return n
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
