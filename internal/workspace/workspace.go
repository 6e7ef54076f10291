// Package workspace loads the Markdown documents of a directory into an
// AppState and writes edited decisions back to disk.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/pbaille/vrdx/internal/command"
	"github.com/pbaille/vrdx/internal/decision"
	"github.com/pbaille/vrdx/internal/discovery"
	"github.com/pbaille/vrdx/internal/logging"
	"github.com/pbaille/vrdx/internal/marker"
	"github.com/pbaille/vrdx/internal/persistence"
	"github.com/pbaille/vrdx/internal/state"
)

// Options configures loading and saving
type Options struct {
	Discovery discovery.Options
	// InsertMarkers appends an empty block to documents that have none
	InsertMarkers bool
	// Newline forces the line terminator used when writing. Empty keeps each
	// document's own.
	Newline string
	// KeepOrder loads decisions in their written order instead of newest id
	// first
	KeepOrder bool
	Logger    logging.Logger
}

// Failure records a document that could not be loaded
type Failure struct {
	Path string
	Err  error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Path, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

// Workspace ties an AppState to the directory it was loaded from
type Workspace struct {
	Root     string
	App      *state.AppState
	Failures []Failure

	opts   Options
	logger logging.Logger
}

// Open discovers documents under root and loads each one. A document that
// fails to load is recorded in Failures and skipped.
func Open(root string, opts Options) (*Workspace, error) {
	if opts.Logger == nil {
		opts.Logger = logging.NoOp()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", root, err)
	}

	w := &Workspace{
		Root:   abs,
		App:    state.New(),
		opts:   opts,
		logger: logging.WithFields(opts.Logger, map[string]any{"root": abs}),
	}

	paths, err := discovery.Find(abs, opts.Discovery)
	if err != nil {
		return nil, err
	}

	files := make([]*state.FileState, 0, len(paths))
	for _, path := range paths {
		file, err := w.LoadFile(path)
		if err != nil {
			w.logger.Warn("workspace.load.failed", "path", path, "error", err)
			w.Failures = append(w.Failures, Failure{Path: path, Err: err})
			continue
		}
		files = append(files, file)
	}
	command.LoadFiles(w.App, files, nil)

	w.logger.Info("workspace.opened", "files", len(files), "failures", len(w.Failures))
	return w, nil
}

// OpenFile loads a single document into a workspace rooted at its directory.
// Unlike Open, a failure to load the document is returned.
func OpenFile(path string, opts Options) (*Workspace, error) {
	if opts.Logger == nil {
		opts.Logger = logging.NoOp()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}

	opts.KeepOrder = true
	w := &Workspace{
		Root:   filepath.Dir(abs),
		App:    state.New(),
		opts:   opts,
		logger: logging.WithFields(opts.Logger, map[string]any{"file": abs}),
	}
	file, err := w.LoadFile(abs)
	if err != nil {
		return nil, err
	}
	command.LoadFiles(w.App, []*state.FileState{file}, nil)
	return w, nil
}

// LoadFile reads one document into a FileState. Without a marker block the
// state is empty and MarkerPresent is false.
func (w *Workspace) LoadFile(path string) (*state.FileState, error) {
	inserted := false
	if w.opts.InsertMarkers {
		var err error
		if _, inserted, err = persistence.EnsureMarkerBlock(path, w.opts.Newline); err != nil {
			return nil, err
		}
		if inserted {
			w.logger.Info("workspace.marker.inserted", "path", path)
		}
	}

	text, err := persistence.Read(path)
	if err != nil {
		return nil, err
	}
	span, ok, err := marker.Locate(text)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if !ok {
		return state.NewFileState(path, false), nil
	}
	if w.opts.KeepOrder {
		return command.ParseFile(path, span.Body(text), true, inserted)
	}
	return command.RefreshFromBody(path, span.Body(text), true, inserted)
}

// Resolve maps a path relative to the root, or an absolute one, to the
// loaded FileState
func (w *Workspace) Resolve(path string) *state.FileState {
	if i := w.App.FileIndex(w.abs(path)); i >= 0 {
		return w.App.Files[i]
	}
	return nil
}

// Select makes the document at path the active file
func (w *Workspace) Select(path string) (*state.FileState, error) {
	i := w.App.FileIndex(w.abs(path))
	if i < 0 {
		return nil, fmt.Errorf("%s: %w", path, fs.ErrNotExist)
	}
	if err := w.App.SelectFile(i); err != nil {
		return nil, err
	}
	return w.App.Files[i], nil
}

// Rel returns path relative to the root when possible
func (w *Workspace) Rel(path string) string {
	rel, err := filepath.Rel(w.Root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

func (w *Workspace) abs(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(w.Root, filepath.FromSlash(path))
}

// Reload re-reads one document from disk. A deleted or filtered document is
// dropped; a failing one is recorded and dropped.
func (w *Workspace) Reload(path string) (*state.FileState, error) {
	path = w.abs(path)
	w.clearFailure(path)

	file, err := w.LoadFile(path)
	if err != nil {
		w.App.RemoveFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			w.logger.Debug("workspace.file.removed", "path", path)
			return nil, nil
		}
		w.Failures = append(w.Failures, Failure{Path: path, Err: err})
		return nil, err
	}

	if i := w.App.FileIndex(path); i >= 0 {
		w.App.Files[i] = file
		w.App.ClampDecision()
		w.App.MarkFileSaved(file)
	} else {
		command.AppendFile(w.App, file)
	}
	return file, nil
}

func (w *Workspace) clearFailure(path string) {
	kept := w.Failures[:0]
	for _, f := range w.Failures {
		if f.Path != path {
			kept = append(kept, f)
		}
	}
	w.Failures = kept
}

// Save writes the decisions of file into its document, creating the marker
// block when missing. The document's newline convention is kept unless a
// newline was configured.
func (w *Workspace) Save(file *state.FileState) error {
	text, err := persistence.Read(file.Path)
	if err != nil {
		return err
	}
	nl := w.opts.Newline
	if nl == "" {
		nl = marker.DetectNewline(text)
	}

	withBlock, span, inserted, err := marker.Ensure(text, nl)
	if err != nil {
		return fmt.Errorf("%s: %w", file.Path, err)
	}
	body := marker.FrameBody(decision.UpdateBody(file.Records(), nl), nl)
	updated := span.ReplaceBody(withBlock, body)

	file.MarkerPresent = true
	file.InsertedMarker = file.InsertedMarker || inserted
	if updated != text {
		if err := persistence.Write(file.Path, updated); err != nil {
			return err
		}
		w.logger.Info("workspace.file.saved", "path", file.Path, "decisions", len(file.Decisions))
	}
	w.App.MarkFileSaved(file)
	return nil
}

// SaveAll writes every loaded document. Documents that fail to save stay
// modified.
func (w *Workspace) SaveAll() error {
	var errs []error
	for _, file := range w.App.Files {
		if err := w.Save(file); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SaveCurrent writes the active document. Other documents keep their
// unsaved edits and the modified flag.
func (w *Workspace) SaveCurrent() error {
	file := w.App.CurrentFile()
	if file == nil {
		return command.ErrNoActiveFile
	}
	return w.Save(file)
}
