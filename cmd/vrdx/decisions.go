package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pbaille/vrdx/internal/command"
	"github.com/pbaille/vrdx/internal/decision"
	"github.com/pbaille/vrdx/internal/dispatch"
	"github.com/pbaille/vrdx/internal/persistence"
	"github.com/pbaille/vrdx/internal/preview"
	"github.com/pbaille/vrdx/internal/template"
	"github.com/pbaille/vrdx/internal/workspace"
)

// mutate loads path, applies fn through a dispatcher and saves the document
func mutate(path string, fn func(*dispatch.Dispatcher) error) (*workspace.Workspace, error) {
	ws, err := openFile(path)
	if err != nil {
		return nil, err
	}
	d := dispatch.New(ws.App, dispatch.WithDispatchLogger(logger))
	if err := fn(d); err != nil {
		return nil, err
	}
	if err := ws.SaveCurrent(); err != nil {
		return nil, err
	}
	return ws, nil
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [file]",
		Short: "List the decisions of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openFile(args[0])
			if err != nil {
				return err
			}

			file := ws.App.CurrentFile()
			if !file.MarkerPresent {
				fmt.Println("No decision block. Use 'vrdx init' to add one.")
				return nil
			}
			if len(file.Decisions) == 0 {
				fmt.Println("No decisions yet. Use 'vrdx new' to create one.")
				return nil
			}

			for _, d := range file.Decisions {
				fmt.Printf("%4d  %-14s  %s\n", d.Record.ID, d.Record.Status, truncate(d.Record.Title, 60))
			}
			return nil
		},
	}
}

func showCmd() *cobra.Command {
	var asHTML bool

	cmd := &cobra.Command{
		Use:   "show [file] [id]",
		Short: "Show one decision",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			ws, err := openFile(args[0])
			if err != nil {
				return err
			}

			d := ws.App.CurrentFile().Find(id)
			if d == nil {
				return fmt.Errorf("decision %d: %w", id, command.ErrDecisionNotFound)
			}

			if asHTML {
				out, err := preview.NewRenderer().Decision(d.Record)
				if err != nil {
					return err
				}
				fmt.Print(out)
				return nil
			}
			fmt.Print(decision.Render(d.Record, "\n"))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asHTML, "html", false, "render as HTML")
	return cmd
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [file]",
		Short: "Add an empty decision block to a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, inserted, err := persistence.EnsureMarkerBlock(args[0], cfg.NewlineSequence())
			if err != nil {
				return err
			}
			if inserted {
				fmt.Printf("Added decision block to %s\n", args[0])
			} else {
				fmt.Printf("%s already has a decision block\n", args[0])
			}
			return nil
		},
	}
}

// recordFlags holds the text fields shared by new and edit
type recordFlags struct {
	title, status, decision, context, consequences string
}

func (f *recordFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.title, "title", "t", "", "decision title")
	cmd.Flags().StringVarP(&f.status, "status", "s", "", "status label (see 'vrdx statuses')")
	cmd.Flags().StringVarP(&f.decision, "decision", "d", "", "what was decided")
	cmd.Flags().StringVarP(&f.context, "context", "c", "", "why it was needed")
	cmd.Flags().StringVar(&f.consequences, "consequences", "", "what follows from it")
}

func newCmd() *cobra.Command {
	var f recordFlags

	cmd := &cobra.Command{
		Use:   "new [file]",
		Short: "Create a decision at the top of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := mutate(args[0], func(d *dispatch.Dispatcher) error {
				_, err := d.Create(cmd.Context(), dispatch.CreateDecision{
					Title:        f.title,
					Status:       f.status,
					Decision:     f.decision,
					Context:      f.context,
					Consequences: f.consequences,
				})
				return err
			})
			if err != nil {
				return err
			}
			created := ws.App.CurrentDecision().Record
			fmt.Printf("Created decision %d %s\n", created.ID, created.Title)
			return nil
		},
	}

	f.register(cmd)
	// A record with an empty field does not parse back
	for _, name := range []string{"decision", "context", "consequences"} {
		cmd.MarkFlagRequired(name)
	}
	return cmd
}

func editCmd() *cobra.Command {
	var f recordFlags

	cmd := &cobra.Command{
		Use:   "edit [file] [id]",
		Short: "Replace fields of a decision",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[1])
			if err != nil {
				return err
			}

			msg := dispatch.UpdateDecision{ID: id}
			flags := cmd.Flags()
			if flags.Changed("title") {
				msg.Title = &f.title
			}
			if flags.Changed("status") {
				msg.Status = &f.status
			}
			if flags.Changed("decision") {
				msg.Decision = &f.decision
			}
			if flags.Changed("context") {
				msg.Context = &f.context
			}
			if flags.Changed("consequences") {
				msg.Consequences = &f.consequences
			}

			_, err = mutate(args[0], func(d *dispatch.Dispatcher) error {
				_, err := d.Update(cmd.Context(), msg)
				return err
			})
			if err != nil {
				return err
			}
			fmt.Printf("Updated decision %d\n", id)
			return nil
		},
	}

	f.register(cmd)
	return cmd
}

func rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm [file] [id]",
		Short: "Delete a decision",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			_, err = mutate(args[0], func(d *dispatch.Dispatcher) error {
				_, err := d.Delete(cmd.Context(), dispatch.DeleteDecision{ID: id})
				return err
			})
			if err != nil {
				return err
			}
			fmt.Printf("Deleted decision %d\n", id)
			return nil
		},
	}
}

func mvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mv [file] [from] [to]",
		Short: "Move the decision at one position to another",
		Long:  "Move the decision at position <from> to position <to>. Positions count from 0 at the top of the block.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseID(args[1])
			if err != nil {
				return err
			}
			to, err := parseID(args[2])
			if err != nil {
				return err
			}

			ws, err := mutate(args[0], func(d *dispatch.Dispatcher) error {
				return d.Move(cmd.Context(), dispatch.MoveDecision{From: from, To: to})
			})
			if err != nil {
				return err
			}
			moved := ws.App.CurrentDecision()
			fmt.Printf("Moved decision %d to position %d\n", moved.Record.ID, to)
			return nil
		},
	}
}

func templateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "template [file]",
		Short: "Print an empty decision numbered for a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openFile(args[0])
			if err != nil {
				return err
			}
			tpl, err := command.TemplateForEditor(ws.App)
			if err != nil {
				return err
			}
			fmt.Print(tpl)
			return nil
		},
	}
}

func statusesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "statuses",
		Short: "List the supported status labels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, s := range template.Statuses() {
				if s == template.DefaultStatus {
					fmt.Printf("%s (default)\n", s)
					continue
				}
				fmt.Println(s)
			}
			return nil
		},
	}
}
