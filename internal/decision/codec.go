// Package decision converts between the body of a marker block and an
// ordered list of decision records.
//
// A record has the canonical shape
//
//	### <id> <title>
//	* **Status**: <status>
//	* **Decision**: <text>
//	* **Context**: <text>
//	* **Consequences**: <text>
//
// Field values may span several lines. Parsing keeps records in the order
// their headings appear; rendering always emits the canonical shape.
package decision

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pbaille/vrdx/internal/domain"
)

const (
	LabelStatus       = "Status"
	LabelDecision     = "Decision"
	LabelContext      = "Context"
	LabelConsequences = "Consequences"
)

// Labels lists the canonical field labels in render order
var Labels = []string{LabelStatus, LabelDecision, LabelContext, LabelConsequences}

var (
	headingPattern = regexp.MustCompile(`^###[ \t]+(\d+)[ \t]+(.*\S)[ \t]*$`)
	fieldPattern   = regexp.MustCompile(`^\*\s+\*\*(Status|Decision|Context|Consequences)\*\*:\s*(.*)$`)
)

// ErrParse is matched by every *ParseError
var ErrParse = errors.New("decision parse error")

// ParseError describes why a block body could not be parsed
type ParseError struct {
	ID      int
	Title   string
	Missing []string
	Reason  string
}

func (e *ParseError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("decision %d %q is missing fields: %s", e.ID, e.Title, strings.Join(e.Missing, ", "))
	}
	return e.Reason
}

// Is lets errors.Is(err, ErrParse) match any ParseError
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// Parse reads every decision in body. A body holding only whitespace has no
// decisions; any other body must yield at least one.
func Parse(body string) ([]domain.Decision, error) {
	lines := splitLines(body)

	var decisions []domain.Decision
	for _, sec := range sections(body, lines) {
		d, err := parseSection(body[sec.start:sec.end], lines[sec.first:sec.last])
		if err != nil {
			return nil, err
		}
		decisions = append(decisions, d)
	}

	if len(decisions) == 0 && strings.TrimSpace(body) != "" {
		return nil, &ParseError{Reason: "no valid decision entries were found in the marker block"}
	}
	return decisions, nil
}

func parseSection(text string, lines []line) (domain.Decision, error) {
	raw := strings.TrimSpace(text)

	m := headingPattern.FindStringSubmatch(lines[0].text)
	if m == nil {
		return domain.Decision{}, &ParseError{Reason: fmt.Sprintf("missing decision heading in block:\n%s", raw)}
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return domain.Decision{}, &ParseError{Reason: fmt.Sprintf("invalid decision id %q", m[1])}
	}
	title := strings.TrimSpace(m[2])

	fields := extractFields(lines[1:])

	var missing []string
	for _, label := range Labels {
		if fields[label] == "" {
			missing = append(missing, label)
		}
	}
	if len(missing) > 0 {
		return domain.Decision{}, &ParseError{ID: id, Title: title, Missing: missing}
	}

	return domain.Decision{
		ID:           id,
		Title:        title,
		Status:       fields[LabelStatus],
		Decision:     fields[LabelDecision],
		Context:      fields[LabelContext],
		Consequences: fields[LabelConsequences],
		Raw:          raw,
	}, nil
}

type scanState int

const (
	seekingField scanState = iota
	accumulatingValue
)

// extractFields scans the lines after a heading. A value runs from its field
// marker up to the next field marker or a "### " line; blank lines inside a
// value are dropped.
func extractFields(lines []line) map[string]string {
	result := make(map[string]string, len(Labels))

	state := seekingField
	var label string
	var buf []string

	flush := func() {
		var parts []string
		for _, part := range buf {
			if part != "" {
				parts = append(parts, part)
			}
		}
		result[label] = strings.TrimSpace(strings.Join(parts, "\n"))
		buf = buf[:0]
	}

	for _, l := range lines {
		m := fieldPattern.FindStringSubmatch(strings.TrimSpace(l.text))

		switch state {
		case seekingField:
			if m == nil {
				continue
			}
		case accumulatingValue:
			if m == nil {
				if strings.HasPrefix(l.text, "### ") {
					flush()
					state = seekingField
					continue
				}
				buf = append(buf, strings.TrimRight(l.text, " \t"))
				continue
			}
			flush()
		}

		label = m[1]
		buf = append(buf, strings.TrimRight(m[2], " \t"))
		state = accumulatingValue
	}

	if state == accumulatingValue {
		flush()
	}
	return result
}

// Render formats a single decision in canonical form
func Render(d domain.Decision, newline string) string {
	parts := []string{
		fmt.Sprintf("### %d %s", d.ID, d.Title),
		fmt.Sprintf("* **%s**: %s", LabelStatus, d.Status),
		fmt.Sprintf("* **%s**: %s", LabelDecision, d.Decision),
		fmt.Sprintf("* **%s**: %s", LabelContext, d.Context),
		fmt.Sprintf("* **%s**: %s", LabelConsequences, d.Consequences),
	}
	return strings.Join(parts, newline)
}

// DefaultSeparator is the blank line placed between rendered decisions
func DefaultSeparator(newline string) string {
	return newline + newline
}

// RenderAll renders decisions in order joined by separator
func RenderAll(decisions []domain.Decision, newline, separator string) string {
	rendered := make([]string, len(decisions))
	for i, d := range decisions {
		rendered[i] = Render(d, newline)
	}
	return strings.Join(rendered, separator)
}

// UpdateBody renders decisions as a block body ending with newline
func UpdateBody(decisions []domain.Decision, newline string) string {
	rendered := RenderAll(decisions, newline, DefaultSeparator(newline))
	if rendered != "" && !strings.HasSuffix(rendered, newline) {
		rendered += newline
	}
	return rendered
}

// WithRender returns d with Raw recomputed from its canonical render
func WithRender(d domain.Decision) domain.Decision {
	raw := Render(d, "\n")
	return d.With(domain.DecisionPatch{Raw: &raw})
}

// NextID returns one past the highest id, 0 when there are no decisions
func NextID(decisions []domain.Decision) int {
	if len(decisions) == 0 {
		return 0
	}
	highest := decisions[0].ID
	for _, d := range decisions[1:] {
		if d.ID > highest {
			highest = d.ID
		}
	}
	return highest + 1
}
