package dispatch

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	createDecisionType  = "vrdx.decision.create"
	updateDecisionType  = "vrdx.decision.update"
	moveDecisionType    = "vrdx.decision.move"
	deleteDecisionType  = "vrdx.decision.delete"
	linkDecisionsType   = "vrdx.decision.link"
	unlinkDecisionsType = "vrdx.decision.unlink"
	focusDecisionType   = "vrdx.focus.decision"
	focusPaneType       = "vrdx.focus.pane"
)

var (
	relations  = []any{"supersedes", "deprecated_by"}
	directions = []any{"next", "previous"}
	panes      = []any{"decisions", "editor", "preview", "files"}
)

// singleLine rejects titles that would break the record heading
var singleLine = validation.By(func(value any) error {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case *string:
		if v == nil {
			return nil
		}
		s = *v
	}
	if strings.ContainsAny(s, "\r\n") {
		return errors.New("must be a single line")
	}
	return nil
})

// notBlank rejects values that would render an empty record field. Nil
// pointers pass so omitted update fields stay untouched.
var notBlank = validation.By(func(value any) error {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case *string:
		if v == nil {
			return nil
		}
		s = *v
	}
	if strings.TrimSpace(s) == "" {
		return errors.New("cannot be blank")
	}
	return nil
})

// CreateDecision adds a decision to the selected file
type CreateDecision struct {
	Title        string `json:"title"`
	Status       string `json:"status"`
	Decision     string `json:"decision"`
	Context      string `json:"context"`
	Consequences string `json:"consequences"`
}

func (CreateDecision) Type() string { return createDecisionType }

func (m CreateDecision) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Title, singleLine),
		validation.Field(&m.Status, singleLine),
		validation.Field(&m.Decision, notBlank),
		validation.Field(&m.Context, notBlank),
		validation.Field(&m.Consequences, notBlank),
	)
}

// UpdateDecision replaces the supplied fields of a decision
type UpdateDecision struct {
	ID           int     `json:"id"`
	Title        *string `json:"title,omitempty"`
	Status       *string `json:"status,omitempty"`
	Decision     *string `json:"decision,omitempty"`
	Context      *string `json:"context,omitempty"`
	Consequences *string `json:"consequences,omitempty"`
}

func (UpdateDecision) Type() string { return updateDecisionType }

func (m UpdateDecision) Validate() error {
	errs := validation.Errors{}
	if m.ID < 0 {
		errs["id"] = validation.NewError("vrdx.decision.update.id_invalid", "id must not be negative")
	}
	if m.Title == nil && m.Status == nil && m.Decision == nil && m.Context == nil && m.Consequences == nil {
		errs["fields"] = validation.NewError("vrdx.decision.update.empty", "at least one field must be supplied")
	}
	fields := map[string]*string{
		"title":        m.Title,
		"status":       m.Status,
		"decision":     m.Decision,
		"context":      m.Context,
		"consequences": m.Consequences,
	}
	for name, value := range fields {
		if err := notBlank.Validate(value); err != nil {
			errs[name] = err
		}
	}
	if err := singleLine.Validate(m.Title); err != nil {
		errs["title"] = err
	}
	if err := singleLine.Validate(m.Status); err != nil {
		errs["status"] = err
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// MoveDecision relocates a decision within the selected file
type MoveDecision struct {
	From int `json:"from"`
	To   int `json:"to"`
}

func (MoveDecision) Type() string { return moveDecisionType }

func (m MoveDecision) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.From, validation.Min(0)),
		validation.Field(&m.To, validation.Min(0)),
	)
}

// DeleteDecision removes a decision by id
type DeleteDecision struct {
	ID int `json:"id"`
}

func (DeleteDecision) Type() string { return deleteDecisionType }

func (m DeleteDecision) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.ID, validation.Min(0)),
	)
}

// LinkDecisions relates two decisions of the selected file
type LinkDecisions struct {
	SourceID int    `json:"source_id"`
	TargetID int    `json:"target_id"`
	Relation string `json:"relation"`
}

func (LinkDecisions) Type() string { return linkDecisionsType }

func (m LinkDecisions) Validate() error {
	return validateLink(m.SourceID, m.TargetID, m.Relation)
}

// UnlinkDecisions removes a relation between two decisions
type UnlinkDecisions struct {
	SourceID int    `json:"source_id"`
	TargetID int    `json:"target_id"`
	Relation string `json:"relation"`
}

func (UnlinkDecisions) Type() string { return unlinkDecisionsType }

func (m UnlinkDecisions) Validate() error {
	return validateLink(m.SourceID, m.TargetID, m.Relation)
}

func validateLink(source, target int, relation string) error {
	errs := validation.Errors{
		"source_id": validation.Validate(source, validation.Min(0)),
		"target_id": validation.Validate(target, validation.Min(0)),
		"relation":  validation.Validate(relation, validation.Required, validation.In(relations...)),
	}
	return errs.Filter()
}

// FocusDecision moves the decision selection one step
type FocusDecision struct {
	Direction string `json:"direction"`
}

func (FocusDecision) Type() string { return focusDecisionType }

func (m FocusDecision) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Direction, validation.Required, validation.In(directions...)),
	)
}

// FocusPane moves focus to a named pane
type FocusPane struct {
	Pane string `json:"pane"`
}

func (FocusPane) Type() string { return focusPaneType }

func (m FocusPane) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Pane, validation.Required, validation.In(panes...)),
	)
}
