// Package marker finds, creates and rewrites the single sentinel-delimited
// block that holds decision records inside a Markdown document.
package marker

import (
	"errors"
	"fmt"
	"strings"
)

const (
	StartMarker = "<!-- vrdx start -->"
	EndMarker   = "<!-- vrdx end -->"
)

var (
	// ErrMarker is the family every structural marker error belongs to
	ErrMarker = errors.New("marker error")

	// ErrMissingMarker is returned when only one of the two sentinels is present
	ErrMissingMarker = fmt.Errorf("%w: only one of the start and end markers is present", ErrMarker)

	// ErrDuplicateMarker is returned when a sentinel occurs more than once
	ErrDuplicateMarker = fmt.Errorf("%w: multiple marker blocks detected", ErrMarker)

	// ErrMarkerOrder is returned when the end marker precedes the start marker
	ErrMarkerOrder = fmt.Errorf("%w: end marker appears before start marker", ErrMarker)
)

// Span holds byte offsets of a marker block. Offsets are only valid for the
// text they were computed from.
type Span struct {
	Start        int `json:"start"`
	ContentStart int `json:"content_start"`
	ContentEnd   int `json:"content_end"`
	End          int `json:"end"`
}

// Body returns the text between the two sentinels
func (s Span) Body(text string) string {
	return text[s.ContentStart:s.ContentEnd]
}

// ReplaceBody returns text with the block body swapped for body
func (s Span) ReplaceBody(text, body string) string {
	var sb strings.Builder
	sb.Grow(len(text) - (s.ContentEnd - s.ContentStart) + len(body))
	sb.WriteString(text[:s.ContentStart])
	sb.WriteString(body)
	sb.WriteString(text[s.ContentEnd:])
	return sb.String()
}

// Locate returns the block span. ok is false when neither sentinel exists.
func Locate(text string) (span Span, ok bool, err error) {
	starts := strings.Count(text, StartMarker)
	ends := strings.Count(text, EndMarker)

	switch {
	case starts == 0 && ends == 0:
		return Span{}, false, nil
	case starts == 0 || ends == 0:
		return Span{}, false, ErrMissingMarker
	case starts > 1 || ends > 1:
		return Span{}, false, ErrDuplicateMarker
	}

	start := strings.Index(text, StartMarker)
	end := strings.Index(text, EndMarker)
	if end < start {
		return Span{}, false, ErrMarkerOrder
	}

	return Span{
		Start:        start,
		ContentStart: start + len(StartMarker),
		ContentEnd:   end,
		End:          end + len(EndMarker),
	}, true, nil
}

// DetectNewline returns the first line terminator found in text, "\n" when
// there is none.
func DetectNewline(text string) string {
	i := strings.IndexAny(text, "\r\n")
	if i < 0 {
		return "\n"
	}
	if text[i] == '\n' {
		return "\n"
	}
	if i+1 < len(text) && text[i+1] == '\n' {
		return "\r\n"
	}
	return "\r"
}

// Scaffold returns an empty block with one blank content line
func Scaffold(newline string) string {
	return StartMarker + newline + newline + EndMarker + newline
}

// Ensure guarantees text holds a block. An existing block is returned as is
// with inserted=false. Otherwise the scaffold is appended using newline, or
// the convention detected in text when newline is empty.
func Ensure(text, newline string) (updated string, span Span, inserted bool, err error) {
	span, ok, err := Locate(text)
	if err != nil {
		return text, Span{}, false, err
	}
	if ok {
		return text, span, false, nil
	}

	nl := newline
	if nl == "" {
		nl = DetectNewline(text)
	}

	updated = text
	if updated != "" {
		trailing := trailingNewline(updated)
		switch {
		case trailing == "":
			updated += nl
		case trailing != nl:
			updated = updated[:len(updated)-len(trailing)] + nl
		}
	}
	updated += Scaffold(nl)

	span, ok, err = Locate(updated)
	if err != nil {
		return text, Span{}, false, err
	}
	if !ok {
		return text, Span{}, false, fmt.Errorf("%w: failed to create marker block", ErrMarker)
	}
	return updated, span, true, nil
}

// FrameBody positions a rendered body between the sentinels: it starts on
// the line after the start marker, and an empty body keeps the scaffold's
// single blank line.
func FrameBody(rendered, newline string) string {
	if rendered == "" {
		return newline + newline
	}
	return newline + rendered
}

func trailingNewline(text string) string {
	switch {
	case strings.HasSuffix(text, "\r\n"):
		return "\r\n"
	case strings.HasSuffix(text, "\n"):
		return "\n"
	case strings.HasSuffix(text, "\r"):
		return "\r"
	default:
		return ""
	}
}
