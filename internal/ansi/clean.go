package ansi

import "strings"

// Clean interprets the control sequences in text and returns the lines a
// reader would see, joined with "\n". CRLF line endings are normalized first.
func Clean(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var out lineLog
	for _, line := range strings.Split(text, "\n") {
		out.push(cleanLine(line, &out))
	}
	return strings.Join(out, "\n")
}

// cleanLine resolves every control sequence in line. Cursor movement upward
// drops already finished lines from out.
func cleanLine(line string, out *lineLog) string {
	// Searching from the start again after each edit catches sequences that
	// only become complete once an inner one is removed.
	for {
		m, ok := Find(line)
		if !ok {
			return line
		}

		switch m.Kind {
		case KindCarriageReturn:
			line = line[m.End:]
		case KindCursorUp:
			out.pop(m.Count)
			line = line[:m.Start] + line[m.End:]
		default:
			line = line[:m.Start] + line[m.End:]
		}
	}
}

// lineLog holds finished lines. Redraws pop from the back.
type lineLog []string

func (l *lineLog) push(line string) {
	*l = append(*l, line)
}

func (l *lineLog) pop(n int) {
	if n > len(*l) {
		n = len(*l)
	}
	*l = (*l)[:len(*l)-n]
}
