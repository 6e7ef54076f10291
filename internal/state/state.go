// Package state holds the in-memory model of loaded documents: the parsed
// decisions of each file, their links, and the current selection.
package state

import (
	"errors"
	"fmt"
	"slices"

	"github.com/pbaille/vrdx/internal/decision"
	"github.com/pbaille/vrdx/internal/domain"
	"github.com/pbaille/vrdx/internal/template"
)

var (
	// ErrIndexOutOfRange is returned when a selection index has no element
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrDecisionNotFound is returned when no decision carries the given id
	ErrDecisionNotFound = errors.New("decision not found")
)

// DecisionState wraps a record with its outgoing links
type DecisionState struct {
	Record domain.Decision `json:"record"`
	Links  []domain.Link   `json:"links"`
}

// NewDecisionState wraps a record with no links
func NewDecisionState(record domain.Decision) *DecisionState {
	return &DecisionState{Record: record}
}

// HasLink reports whether a link of rel to target exists
func (d *DecisionState) HasLink(rel domain.Relation, target int) bool {
	return slices.ContainsFunc(d.Links, func(l domain.Link) bool {
		return l.Relation == rel && l.TargetID == target
	})
}

// AddLink records a link of rel to target unless it already exists
func (d *DecisionState) AddLink(rel domain.Relation, target int) {
	if d.HasLink(rel, target) {
		return
	}
	d.Links = append(d.Links, domain.Link{SourceID: d.Record.ID, TargetID: target, Relation: rel})
}

// RemoveLink drops any link of rel to target
func (d *DecisionState) RemoveLink(rel domain.Relation, target int) {
	d.Links = slices.DeleteFunc(d.Links, func(l domain.Link) bool {
		return l.Relation == rel && l.TargetID == target
	})
}

// FileState holds the decisions of one Markdown document in persisted order
type FileState struct {
	Path           string           `json:"path"`
	Decisions      []*DecisionState `json:"decisions"`
	MarkerPresent  bool             `json:"marker_present"`
	InsertedMarker bool             `json:"inserted_marker"`
	Modified       bool             `json:"modified"`
}

// NewFileState returns an empty FileState for path
func NewFileState(path string, markerPresent bool) *FileState {
	return &FileState{Path: path, MarkerPresent: markerPresent}
}

// Records returns the decision records in current order
func (f *FileState) Records() []domain.Decision {
	out := make([]domain.Decision, len(f.Decisions))
	for i, d := range f.Decisions {
		out[i] = d.Record
	}
	return out
}

// ParseBody replaces all decisions with those parsed from body. On error the
// current decisions are left untouched.
func (f *FileState) ParseBody(body string) error {
	records, err := decision.Parse(body)
	if err != nil {
		return err
	}
	decisions := make([]*DecisionState, len(records))
	for i, r := range records {
		decisions[i] = NewDecisionState(r)
	}
	f.Decisions = decisions
	return nil
}

// SerializeBody renders the decisions in current order
func (f *FileState) SerializeBody() string {
	return decision.RenderAll(f.Records(), "\n", decision.DefaultSeparator("\n"))
}

// Find returns the decision with id, or nil
func (f *FileState) Find(id int) *DecisionState {
	if i := f.IndexOf(id); i >= 0 {
		return f.Decisions[i]
	}
	return nil
}

// IndexOf returns the position of the decision with id, or -1
func (f *FileState) IndexOf(id int) int {
	return slices.IndexFunc(f.Decisions, func(d *DecisionState) bool {
		return d.Record.ID == id
	})
}

// NextID returns an id that does not collide with current decisions
func (f *FileState) NextID() int {
	return decision.NextID(f.Records())
}

// SortByIDDescending orders decisions newest id first
func (f *FileState) SortByIDDescending() {
	slices.SortStableFunc(f.Decisions, func(a, b *DecisionState) int {
		return b.Record.ID - a.Record.ID
	})
}

// Link adds a link from source to target together with its inverse on the
// target. Both endpoints must exist.
func (f *FileState) Link(source, target int, rel domain.Relation) (domain.Link, error) {
	src := f.Find(source)
	if src == nil {
		return domain.Link{}, fmt.Errorf("source decision %d: %w", source, ErrDecisionNotFound)
	}
	dst := f.Find(target)
	if dst == nil {
		return domain.Link{}, fmt.Errorf("target decision %d: %w", target, ErrDecisionNotFound)
	}

	src.AddLink(rel, target)
	dst.AddLink(rel.Inverse(), source)
	return domain.Link{SourceID: source, TargetID: target, Relation: rel}, nil
}

// Unlink removes a link and its inverse. It reports whether both endpoints
// exist; a missing endpoint leaves everything unchanged.
func (f *FileState) Unlink(source, target int, rel domain.Relation) bool {
	src := f.Find(source)
	dst := f.Find(target)
	if src == nil || dst == nil {
		return false
	}
	src.RemoveLink(rel, target)
	dst.RemoveLink(rel.Inverse(), source)
	return true
}

// RemoveAt deletes and returns the decision at index i
func (f *FileState) RemoveAt(i int) (*DecisionState, error) {
	if i < 0 || i >= len(f.Decisions) {
		return nil, fmt.Errorf("decision index %d: %w", i, ErrIndexOutOfRange)
	}
	removed := f.Decisions[i]
	f.Decisions = slices.Delete(f.Decisions, i, i+1)
	return removed, nil
}

// AppState aggregates loaded files, the selection, and the modified flag
type AppState struct {
	Files            []*FileState
	SelectedFile     int
	SelectedDecision int
	ActivePane       domain.Pane
	Modified         bool
}

// New returns an empty AppState with no selected file
func New() *AppState {
	return &AppState{SelectedFile: -1, ActivePane: domain.PaneDecisions}
}

// Reset drops all files and clears the selection
func (a *AppState) Reset() {
	a.Files = nil
	a.SelectedFile = -1
	a.SelectedDecision = 0
	a.Modified = false
}

// SetFiles replaces the loaded files and selects the first one
func (a *AppState) SetFiles(files []*FileState) {
	a.Files = slices.Clone(files)
	a.SelectedFile = -1
	if len(a.Files) > 0 {
		a.SelectedFile = 0
	}
	a.SelectedDecision = 0
	a.Modified = false
}

// AddFile appends a file, selecting it when nothing was selected
func (a *AppState) AddFile(file *FileState) {
	a.Files = append(a.Files, file)
	if a.SelectedFile < 0 {
		a.SelectedFile = 0
		a.SelectedDecision = 0
	}
}

// RemoveFile drops every file with path and clamps the selection
func (a *AppState) RemoveFile(path string) {
	a.Files = slices.DeleteFunc(a.Files, func(f *FileState) bool {
		return f.Path == path
	})
	a.refreshModified()
	switch {
	case len(a.Files) == 0:
		a.SelectedFile = -1
		a.SelectedDecision = 0
	case a.SelectedFile >= len(a.Files):
		a.SelectedFile = len(a.Files) - 1
		a.SelectedDecision = 0
	}
}

// FileIndex returns the position of the file with path, or -1
func (a *AppState) FileIndex(path string) int {
	return slices.IndexFunc(a.Files, func(f *FileState) bool {
		return f.Path == path
	})
}

// CurrentFile returns the selected file, or nil
func (a *AppState) CurrentFile() *FileState {
	if a.SelectedFile >= 0 && a.SelectedFile < len(a.Files) {
		return a.Files[a.SelectedFile]
	}
	return nil
}

// SelectFile selects the file at index and resets the decision selection
func (a *AppState) SelectFile(index int) error {
	if index < 0 || index >= len(a.Files) {
		return fmt.Errorf("file index %d: %w", index, ErrIndexOutOfRange)
	}
	a.SelectedFile = index
	a.SelectedDecision = 0
	return nil
}

// CurrentDecision returns the selected decision of the selected file, or nil
func (a *AppState) CurrentDecision() *DecisionState {
	file := a.CurrentFile()
	if file == nil {
		return nil
	}
	if a.SelectedDecision >= 0 && a.SelectedDecision < len(file.Decisions) {
		return file.Decisions[a.SelectedDecision]
	}
	return nil
}

// SelectDecision selects the decision at index in the selected file
func (a *AppState) SelectDecision(index int) error {
	file := a.CurrentFile()
	if file == nil {
		return fmt.Errorf("no file selected: %w", ErrIndexOutOfRange)
	}
	if index < 0 || index >= len(file.Decisions) {
		return fmt.Errorf("decision index %d: %w", index, ErrIndexOutOfRange)
	}
	a.SelectedDecision = index
	return nil
}

// ClampDecision pulls the decision selection back inside the selected file
func (a *AppState) ClampDecision() {
	file := a.CurrentFile()
	if file == nil || len(file.Decisions) == 0 {
		a.SelectedDecision = 0
		return
	}
	a.SelectedDecision = max(0, min(a.SelectedDecision, len(file.Decisions)-1))
}

// MarkModified flags the selected file and the state as having unsaved edits
func (a *AppState) MarkModified() {
	if file := a.CurrentFile(); file != nil {
		file.Modified = true
	}
	a.Modified = true
}

// MarkSaved clears the modified flag of every file
func (a *AppState) MarkSaved() {
	for _, f := range a.Files {
		f.Modified = false
	}
	a.Modified = false
}

// MarkFileSaved clears the flag of one file. The state stays modified while
// any other file has unsaved edits.
func (a *AppState) MarkFileSaved(file *FileState) {
	file.Modified = false
	a.refreshModified()
}

func (a *AppState) refreshModified() {
	a.Modified = slices.ContainsFunc(a.Files, func(f *FileState) bool {
		return f.Modified
	})
}

// FocusPane makes pane the active one
func (a *AppState) FocusPane(pane domain.Pane) { a.ActivePane = pane }

// StatusOptions returns the curated status labels for choice lists
func (a *AppState) StatusOptions() []string {
	return template.Statuses()
}
