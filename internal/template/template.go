// Package template holds the curated status vocabulary and renders skeletons
// for new decision records.
package template

import (
	"fmt"
	"slices"
	"strings"
)

// DefaultStatus is applied to new records and to unsupported statuses
const DefaultStatus = "📝 Draft"

// statuses is ordered so choice lists stay predictable
var statuses = []string{
	DefaultStatus,
	"✅ Accepted",
	"❌ Rejected",
	"⛔ Deprecated by …",
	"⬆️ Supersedes …",
}

// Statuses returns a copy of the curated status labels
func Statuses() []string {
	return slices.Clone(statuses)
}

// IsSupported reports whether status exactly matches a curated label
func IsSupported(status string) bool {
	return slices.Contains(statuses, status)
}

// Normalise returns status when it is curated, DefaultStatus otherwise
func Normalise(status string) string {
	if IsSupported(status) {
		return status
	}
	return DefaultStatus
}

// Template is a skeleton for a decision that has not been written yet
type Template struct {
	NextID       int
	Title        string
	Status       string
	Decision     string
	Context      string
	Consequences string
}

// New returns a template for nextID with the default status
func New(nextID int) Template {
	return Template{NextID: nextID, Status: DefaultStatus}
}

// Render produces the five-line record shape. The heading is right-trimmed so
// an empty title leaves no trailing space.
func (t Template) Render(newline string) string {
	status := t.Status
	if status == "" {
		status = DefaultStatus
	}
	parts := []string{
		strings.TrimRight(fmt.Sprintf("### %d %s", t.NextID, t.Title), " "),
		"* **Status**: " + status,
		"* **Decision**: " + t.Decision,
		"* **Context**: " + t.Context,
		"* **Consequences**: " + t.Consequences,
	}
	return strings.Join(parts, newline)
}

// Option pre-fills a template field
type Option func(*renderOptions)

type renderOptions struct {
	tpl     Template
	newline string
}

// WithTitle sets the rendered title
func WithTitle(title string) Option {
	return func(o *renderOptions) { o.tpl.Title = title }
}

// WithStatus sets the rendered status label
func WithStatus(status string) Option {
	return func(o *renderOptions) { o.tpl.Status = status }
}

// WithDecision sets the Decision field text
func WithDecision(text string) Option {
	return func(o *renderOptions) { o.tpl.Decision = text }
}

// WithContext sets the Context field text
func WithContext(text string) Option {
	return func(o *renderOptions) { o.tpl.Context = text }
}

// WithConsequences sets the Consequences field text
func WithConsequences(text string) Option {
	return func(o *renderOptions) { o.tpl.Consequences = text }
}

// WithNewline sets the line separator, "\n" by default
func WithNewline(newline string) Option {
	return func(o *renderOptions) { o.newline = newline }
}

// Render builds and renders a template for nextID. The status is normalised.
func Render(nextID int, opts ...Option) string {
	o := renderOptions{tpl: New(nextID), newline: "\n"}
	for _, opt := range opts {
		opt(&o)
	}
	o.tpl.Status = Normalise(o.tpl.Status)
	return o.tpl.Render(o.newline)
}
