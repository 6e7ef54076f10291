package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Decision represents a single decision record parsed from a marker block
type Decision struct {
	ID           int    `json:"id"`
	Title        string `json:"title"`
	Status       string `json:"status"`
	Decision     string `json:"decision"`
	Context      string `json:"context"`
	Consequences string `json:"consequences"`
	Raw          string `json:"raw,omitempty"`
}

// DecisionPatch lists the fields to override when deriving a new Decision.
// Nil fields keep the current value.
type DecisionPatch struct {
	Title        *string
	Status       *string
	Decision     *string
	Context      *string
	Consequences *string
	Raw          *string
}

// With returns a copy of d with the patch applied. Supplied text fields are
// trimmed; Raw is copied verbatim.
func (d Decision) With(p DecisionPatch) Decision {
	out := d
	if p.Title != nil {
		out.Title = strings.TrimSpace(*p.Title)
	}
	if p.Status != nil {
		out.Status = strings.TrimSpace(*p.Status)
	}
	if p.Decision != nil {
		out.Decision = strings.TrimSpace(*p.Decision)
	}
	if p.Context != nil {
		out.Context = strings.TrimSpace(*p.Context)
	}
	if p.Consequences != nil {
		out.Consequences = strings.TrimSpace(*p.Consequences)
	}
	if p.Raw != nil {
		out.Raw = *p.Raw
	}
	return out
}

// Equal reports whether two decisions carry the same fields, ignoring Raw
func (d Decision) Equal(other Decision) bool {
	return d.ID == other.ID &&
		d.Title == other.Title &&
		d.Status == other.Status &&
		d.Decision == other.Decision &&
		d.Context == other.Context &&
		d.Consequences == other.Consequences
}

// Relation is the kind of a directed link between two decisions
type Relation int

const (
	RelationSupersedes Relation = iota + 1
	RelationDeprecatedBy
)

// ErrUnsupportedRelation is returned when a relation name is not recognised
var ErrUnsupportedRelation = errors.New("unsupported relation")

// ParseRelation maps a relation name to its Relation value
func ParseRelation(name string) (Relation, error) {
	switch name {
	case "supersedes":
		return RelationSupersedes, nil
	case "deprecated_by":
		return RelationDeprecatedBy, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedRelation, name)
	}
}

// Inverse returns the relation the target of a link holds back to its source
func (r Relation) Inverse() Relation {
	if r == RelationSupersedes {
		return RelationDeprecatedBy
	}
	return RelationSupersedes
}

func (r Relation) String() string {
	switch r {
	case RelationSupersedes:
		return "supersedes"
	case RelationDeprecatedBy:
		return "deprecated_by"
	default:
		return "unknown"
	}
}

// MarshalText encodes the relation by name
func (r Relation) MarshalText() ([]byte, error) {
	if r != RelationSupersedes && r != RelationDeprecatedBy {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedRelation, int(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText decodes a relation name
func (r *Relation) UnmarshalText(text []byte) error {
	parsed, err := ParseRelation(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Link represents a typed edge from one decision to another
type Link struct {
	SourceID int      `json:"source_id"`
	TargetID int      `json:"target_id"`
	Relation Relation `json:"relation"`
}

// Pane identifies a focusable area of an interactive front end
type Pane int

const (
	PaneDecisions Pane = iota
	PaneEditor
	PanePreview
	PaneFiles
)

// ParsePane maps a pane name to its Pane value
func ParsePane(name string) (Pane, error) {
	switch name {
	case "decisions":
		return PaneDecisions, nil
	case "editor":
		return PaneEditor, nil
	case "preview":
		return PanePreview, nil
	case "files":
		return PaneFiles, nil
	default:
		return 0, fmt.Errorf("unknown pane: %q", name)
	}
}

func (p Pane) String() string {
	switch p {
	case PaneDecisions:
		return "decisions"
	case PaneEditor:
		return "editor"
	case PanePreview:
		return "preview"
	case PaneFiles:
		return "files"
	default:
		return "unknown"
	}
}

// IndexedFile summarises a document in the search index
type IndexedFile struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Decisions int       `json:"decisions"`
	Error     string    `json:"error,omitempty"`
	IndexedAt time.Time `json:"indexed_at"`
}

// SearchHit is a decision matched by an index search
type SearchHit struct {
	Path      string   `json:"path"`
	FileTitle string   `json:"file_title"`
	Position  int      `json:"position"`
	Decision  Decision `json:"decision"`
}
