// Package preview turns decision records and documents into HTML and plain
// text for display and indexing.
package preview

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"golang.org/x/net/html"

	"github.com/pbaille/vrdx/internal/decision"
	"github.com/pbaille/vrdx/internal/domain"
)

// Renderer converts Markdown to HTML. It is stateless and safe to share.
type Renderer struct {
	md goldmark.Markdown
}

// NewRenderer returns a renderer with GFM tables, task lists and autolinks.
// Raw HTML in the source is not emitted.
func NewRenderer() *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Linkify, extension.TaskList),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
	}
}

// HTML renders markdown
func (r *Renderer) HTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}

// Decision renders one record in its canonical shape
func (r *Renderer) Decision(d domain.Decision) (string, error) {
	return r.HTML(decision.Render(d, "\n"))
}

// PlainText renders markdown and returns its readable text with whitespace
// collapsed
func (r *Renderer) PlainText(markdown string) (string, error) {
	rendered, err := r.HTML(markdown)
	if err != nil {
		return "", err
	}
	return extractText(rendered), nil
}

var skipTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "iframe": true,
}

// extractText walks the parsed HTML and joins its text nodes
func extractText(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return ""
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skipTags[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return strings.Join(strings.Fields(sb.String()), " ")
}

type documentMeta struct {
	Title string `yaml:"title" toml:"title" json:"title"`
}

// DocumentTitle returns the front matter title, else the first level one
// heading, else fallback
func DocumentTitle(text, fallback string) string {
	var meta documentMeta
	body, err := frontmatter.Parse(strings.NewReader(text), &meta)
	if err != nil {
		body = []byte(text)
	}
	if title := strings.TrimSpace(meta.Title); title != "" {
		return title
	}

	for _, line := range strings.FieldsFunc(string(body), func(r rune) bool { return r == '\n' || r == '\r' }) {
		if rest, ok := strings.CutPrefix(line, "# "); ok {
			if title := strings.TrimSpace(rest); title != "" {
				return title
			}
		}
	}
	return fallback
}
