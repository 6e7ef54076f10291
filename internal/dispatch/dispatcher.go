// Package dispatch runs validated decision commands against an AppState
// through go-command handlers.
package dispatch

import (
	"context"
	"fmt"
	"time"

	command "github.com/goliatone/go-command"

	cmds "github.com/pbaille/vrdx/internal/command"
	"github.com/pbaille/vrdx/internal/domain"
	"github.com/pbaille/vrdx/internal/logging"
	"github.com/pbaille/vrdx/internal/state"
)

var (
	_ command.Commander[CreateDecision] = (*Handler[CreateDecision])(nil)
	_ command.Commander[LinkDecisions]  = (*Handler[LinkDecisions])(nil)
)

// Dispatcher executes messages against one AppState. It is not safe for
// concurrent use.
type Dispatcher struct {
	app     *state.AppState
	logger  logging.Logger
	timeout time.Duration
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithDispatchLogger sets the logger used for command events
func WithDispatchLogger(logger logging.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithDispatchTimeout bounds each command with a deadline
func WithDispatchTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) { d.timeout = timeout }
}

// New returns a Dispatcher bound to app
func New(app *state.AppState, opts ...Option) *Dispatcher {
	d := &Dispatcher{app: app, logger: logging.NoOp(), timeout: defaultTimeout}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// State returns the AppState the dispatcher mutates
func (d *Dispatcher) State() *state.AppState {
	return d.app
}

func run[T command.Message](ctx context.Context, d *Dispatcher, operation string, msg T, fn command.CommandFunc[T]) error {
	h := NewHandler(fn,
		WithLogger[T](d.logger),
		WithOperation[T](operation),
		WithTimeout[T](d.timeout),
	)
	return h.Execute(ctx, msg)
}

// Create adds a decision to the selected file
func (d *Dispatcher) Create(ctx context.Context, msg CreateDecision) (*state.DecisionState, error) {
	var created *state.DecisionState
	err := run(ctx, d, "decision.create", msg, func(_ context.Context, m CreateDecision) error {
		var err error
		created, err = cmds.Create(d.app, cmds.CreateInput{
			Title:        m.Title,
			Status:       m.Status,
			Decision:     m.Decision,
			Context:      m.Context,
			Consequences: m.Consequences,
		})
		return err
	})
	return created, err
}

// Update replaces the supplied fields of a decision
func (d *Dispatcher) Update(ctx context.Context, msg UpdateDecision) (*state.DecisionState, error) {
	var updated *state.DecisionState
	err := run(ctx, d, "decision.update", msg, func(_ context.Context, m UpdateDecision) error {
		var err error
		updated, err = cmds.Update(d.app, cmds.UpdateInput{
			ID:           m.ID,
			Title:        m.Title,
			Status:       m.Status,
			Decision:     m.Decision,
			Context:      m.Context,
			Consequences: m.Consequences,
		})
		return err
	})
	return updated, err
}

// Move repositions a decision within the active file
func (d *Dispatcher) Move(ctx context.Context, msg MoveDecision) error {
	return run(ctx, d, "decision.move", msg, func(_ context.Context, m MoveDecision) error {
		return cmds.Move(d.app, m.From, m.To)
	})
}

// Delete removes a decision and returns it
func (d *Dispatcher) Delete(ctx context.Context, msg DeleteDecision) (*state.DecisionState, error) {
	var removed *state.DecisionState
	err := run(ctx, d, "decision.delete", msg, func(_ context.Context, m DeleteDecision) error {
		var err error
		removed, err = cmds.Delete(d.app, m.ID)
		return err
	})
	return removed, err
}

// Link records a relation and its inverse between two decisions
func (d *Dispatcher) Link(ctx context.Context, msg LinkDecisions) (domain.Link, error) {
	var link domain.Link
	err := run(ctx, d, "decision.link", msg, func(_ context.Context, m LinkDecisions) error {
		var err error
		link, err = cmds.Link(d.app, m.SourceID, m.TargetID, m.Relation)
		return err
	})
	return link, err
}

// Unlink removes a relation and its inverse
func (d *Dispatcher) Unlink(ctx context.Context, msg UnlinkDecisions) error {
	return run(ctx, d, "decision.unlink", msg, func(_ context.Context, m UnlinkDecisions) error {
		return cmds.Unlink(d.app, m.SourceID, m.TargetID, m.Relation)
	})
}

// Focus moves the decision selection in the requested direction
func (d *Dispatcher) Focus(ctx context.Context, msg FocusDecision) error {
	return run(ctx, d, "focus.decision", msg, func(_ context.Context, m FocusDecision) error {
		switch m.Direction {
		case "next":
			return cmds.FocusNext(d.app)
		case "previous":
			return cmds.FocusPrevious(d.app)
		default:
			return fmt.Errorf("unknown direction %q", m.Direction)
		}
	})
}

// FocusPane activates the named pane
func (d *Dispatcher) FocusPane(ctx context.Context, msg FocusPane) error {
	return run(ctx, d, "focus.pane", msg, func(_ context.Context, m FocusPane) error {
		pane, err := domain.ParsePane(m.Pane)
		if err != nil {
			return err
		}
		cmds.FocusPane(d.app, pane)
		return nil
	})
}
