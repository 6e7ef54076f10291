package decision

// line is one line of a body without its terminator; start and next are
// byte offsets of the line and of the line that follows it.
type line struct {
	text  string
	start int
	next  int
}

// splitLines breaks text on "\n", "\r\n" and "\r"
func splitLines(text string) []line {
	var lines []line
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\n':
			lines = append(lines, line{text: text[start:i], start: start, next: i + 1})
			start = i + 1
		case '\r':
			next := i + 1
			if next < len(text) && text[next] == '\n' {
				next++
			}
			lines = append(lines, line{text: text[start:i], start: start, next: next})
			start = next
			i = next - 1
		}
	}
	if start < len(text) {
		lines = append(lines, line{text: text[start:], start: start, next: len(text)})
	}
	return lines
}

type section struct {
	first, last int // line indices, last exclusive
	start, end  int // byte offsets into the body
}

// sections groups lines into one section per decision heading. Lines before
// the first heading belong to no section.
func sections(body string, lines []line) []section {
	var out []section
	for i, l := range lines {
		if !headingPattern.MatchString(l.text) {
			continue
		}
		if n := len(out); n > 0 {
			out[n-1].last = i
			out[n-1].end = l.start
		}
		out = append(out, section{first: i, last: len(lines), start: l.start, end: len(body)})
	}
	return out
}
