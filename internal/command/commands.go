// Package command implements the mutations a front end applies to the
// selected file and decision of an AppState.
package command

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/pbaille/vrdx/internal/decision"
	"github.com/pbaille/vrdx/internal/domain"
	"github.com/pbaille/vrdx/internal/state"
	"github.com/pbaille/vrdx/internal/template"
)

var (
	// ErrNoActiveFile is returned when a command needs a selected file
	ErrNoActiveFile = errors.New("no markdown file is currently selected")

	// ErrNoActiveDecision is returned when a command needs a selected decision
	ErrNoActiveDecision = errors.New("no decision is currently selected")

	ErrDecisionNotFound    = state.ErrDecisionNotFound
	ErrIndexOutOfRange     = state.ErrIndexOutOfRange
	ErrUnsupportedRelation = domain.ErrUnsupportedRelation
)

// CreateInput holds the fields of a new decision. A blank title becomes
// "Decision <id>" and a blank status becomes the default.
type CreateInput struct {
	Title        string
	Status       string
	Decision     string
	Context      string
	Consequences string
}

// UpdateInput names a decision and the fields to replace. Nil fields keep
// their current value.
type UpdateInput struct {
	ID           int
	Title        *string
	Status       *string
	Decision     *string
	Context      *string
	Consequences *string
}

func activeFile(app *state.AppState) (*state.FileState, error) {
	file := app.CurrentFile()
	if file == nil {
		return nil, ErrNoActiveFile
	}
	return file, nil
}

// ActiveDecision returns the selected decision of the selected file
func ActiveDecision(app *state.AppState) (*state.DecisionState, error) {
	if _, err := activeFile(app); err != nil {
		return nil, err
	}
	d := app.CurrentDecision()
	if d == nil {
		return nil, ErrNoActiveDecision
	}
	return d, nil
}

// Create inserts a new decision at the top of the selected file and selects it
func Create(app *state.AppState, in CreateInput) (*state.DecisionState, error) {
	file, err := activeFile(app)
	if err != nil {
		return nil, err
	}

	id := file.NextID()
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = fmt.Sprintf("Decision %d", id)
	}
	status := strings.TrimSpace(in.Status)
	if status == "" {
		status = template.DefaultStatus
	}

	record := decision.WithRender(domain.Decision{
		ID:           id,
		Title:        title,
		Status:       template.Normalise(status),
		Decision:     strings.TrimSpace(in.Decision),
		Context:      strings.TrimSpace(in.Context),
		Consequences: strings.TrimSpace(in.Consequences),
	})

	created := state.NewDecisionState(record)
	file.Decisions = append([]*state.DecisionState{created}, file.Decisions...)
	app.SelectedDecision = 0
	app.MarkModified()
	return created, nil
}

// Update replaces the supplied fields of a decision in the selected file
func Update(app *state.AppState, in UpdateInput) (*state.DecisionState, error) {
	file, err := activeFile(app)
	if err != nil {
		return nil, err
	}
	target := file.Find(in.ID)
	if target == nil {
		return nil, fmt.Errorf("update decision %d: %w", in.ID, ErrDecisionNotFound)
	}

	patch := domain.DecisionPatch{
		Title:        in.Title,
		Decision:     in.Decision,
		Context:      in.Context,
		Consequences: in.Consequences,
	}
	if in.Status != nil {
		status := template.Normalise(strings.TrimSpace(*in.Status))
		patch.Status = &status
	}

	target.Record = decision.WithRender(target.Record.With(patch))
	app.MarkModified()
	return target, nil
}

// Move relocates the decision at from to position to and keeps it selected
func Move(app *state.AppState, from, to int) error {
	file, err := activeFile(app)
	if err != nil {
		return err
	}
	n := len(file.Decisions)
	if from < 0 || from >= n {
		return fmt.Errorf("source index %d: %w", from, ErrIndexOutOfRange)
	}
	if to < 0 || to >= n {
		return fmt.Errorf("target index %d: %w", to, ErrIndexOutOfRange)
	}

	moved, err := file.RemoveAt(from)
	if err != nil {
		return err
	}
	file.Decisions = slices.Insert(file.Decisions, to, moved)
	app.SelectedDecision = to
	app.MarkModified()
	return nil
}

// Delete removes the decision with id from the selected file
func Delete(app *state.AppState, id int) (*state.DecisionState, error) {
	file, err := activeFile(app)
	if err != nil {
		return nil, err
	}
	i := file.IndexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("delete decision %d: %w", id, ErrDecisionNotFound)
	}

	removed, err := file.RemoveAt(i)
	if err != nil {
		return nil, err
	}
	app.ClampDecision()
	app.MarkModified()
	return removed, nil
}

// Link adds a relation between two decisions of the selected file along with
// its inverse
func Link(app *state.AppState, source, target int, relation string) (domain.Link, error) {
	rel, err := domain.ParseRelation(relation)
	if err != nil {
		return domain.Link{}, err
	}
	file, err := activeFile(app)
	if err != nil {
		return domain.Link{}, err
	}

	link, err := file.Link(source, target, rel)
	if err != nil {
		return domain.Link{}, err
	}
	app.MarkModified()
	return link, nil
}

// Unlink removes a relation and its inverse. A missing endpoint is a no-op.
func Unlink(app *state.AppState, source, target int, relation string) error {
	rel, err := domain.ParseRelation(relation)
	if err != nil {
		return err
	}
	file, err := activeFile(app)
	if err != nil {
		return err
	}

	if file.Unlink(source, target, rel) {
		app.MarkModified()
	}
	return nil
}

// FocusNext moves the decision selection down, stopping at the last one
func FocusNext(app *state.AppState) error {
	file, err := activeFile(app)
	if err != nil {
		return err
	}
	if len(file.Decisions) == 0 {
		return nil
	}
	app.SelectedDecision = min(app.SelectedDecision+1, len(file.Decisions)-1)
	return nil
}

// FocusPrevious moves the decision selection up, stopping at the first one
func FocusPrevious(app *state.AppState) error {
	file, err := activeFile(app)
	if err != nil {
		return err
	}
	if len(file.Decisions) == 0 {
		return nil
	}
	app.SelectedDecision = max(app.SelectedDecision-1, 0)
	return nil
}

// FocusPane makes pane the active one
func FocusPane(app *state.AppState, pane domain.Pane) {
	app.FocusPane(pane)
}

// ParseFile builds a fresh FileState from a marker block body keeping the
// written order
func ParseFile(path, body string, markerPresent, inserted bool) (*state.FileState, error) {
	file := state.NewFileState(path, markerPresent)
	file.InsertedMarker = inserted
	if err := file.ParseBody(body); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return file, nil
}

// RefreshFromBody builds a fresh FileState from a marker block body with the
// decisions ordered newest id first
func RefreshFromBody(path, body string, markerPresent, inserted bool) (*state.FileState, error) {
	file, err := ParseFile(path, body, markerPresent, inserted)
	if err != nil {
		return nil, err
	}
	file.SortByIDDescending()
	return file, nil
}

// SerializeCurrent renders the decisions of the selected file
func SerializeCurrent(app *state.AppState) (string, error) {
	file, err := activeFile(app)
	if err != nil {
		return "", err
	}
	return file.SerializeBody(), nil
}

// TemplateForEditor renders an empty skeleton numbered after the selected
// file's decisions
func TemplateForEditor(app *state.AppState) (string, error) {
	file, err := activeFile(app)
	if err != nil {
		return "", err
	}
	return template.New(file.NextID()).Render("\n"), nil
}

// LoadFiles installs freshly loaded files and clears the modified flag. A nil
// pane leaves the focus where it is.
func LoadFiles(app *state.AppState, files []*state.FileState, pane *domain.Pane) {
	app.SetFiles(files)
	if pane != nil {
		app.FocusPane(*pane)
	}
	app.MarkSaved()
}

// AppendFile adds one freshly loaded file. Unsaved edits in other files keep
// the state modified.
func AppendFile(app *state.AppState, file *state.FileState) {
	app.AddFile(file)
	app.MarkFileSaved(file)
}
