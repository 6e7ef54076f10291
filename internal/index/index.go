// Package index keeps the SQLite search index in step with documents on disk.
package index

import (
	"errors"
	"io/fs"
	"path/filepath"

	"github.com/pbaille/vrdx/internal/decision"
	"github.com/pbaille/vrdx/internal/domain"
	"github.com/pbaille/vrdx/internal/logging"
	"github.com/pbaille/vrdx/internal/persistence"
	"github.com/pbaille/vrdx/internal/preview"
	"github.com/pbaille/vrdx/internal/state"
	"github.com/pbaille/vrdx/internal/store"
	"github.com/pbaille/vrdx/internal/workspace"
)

// Indexer writes documents and load failures into a Store
type Indexer struct {
	store    *store.Store
	renderer *preview.Renderer
	logger   logging.Logger
}

// New returns an Indexer over s. A nil logger discards output.
func New(s *store.Store, renderer *preview.Renderer, logger logging.Logger) *Indexer {
	if renderer == nil {
		renderer = preview.NewRenderer()
	}
	if logger == nil {
		logger = logging.NoOp()
	}
	return &Indexer{store: s, renderer: renderer, logger: logger}
}

// Stats counts the outcome of indexing a workspace
type Stats struct {
	Files     int `json:"files"`
	Decisions int `json:"decisions"`
	Failures  int `json:"failures"`
	Pruned    int `json:"pruned"`
}

// Workspace indexes every loaded document and failure of ws, then prunes
// entries under its root that no longer exist
func (ix *Indexer) Workspace(ws *workspace.Workspace) (Stats, error) {
	var stats Stats
	keep := make([]string, 0, len(ws.App.Files)+len(ws.Failures))

	for _, file := range ws.App.Files {
		if err := ix.File(file); err != nil {
			return stats, err
		}
		keep = append(keep, file.Path)
		stats.Files++
		stats.Decisions += len(file.Decisions)
	}
	for _, failure := range ws.Failures {
		if _, err := ix.store.RecordFailure(failure.Path, failure.Err); err != nil {
			return stats, err
		}
		keep = append(keep, failure.Path)
		stats.Failures++
	}

	pruned, err := ix.store.Prune(ws.Root+string(filepath.Separator), keep)
	stats.Pruned = pruned
	if err != nil {
		return stats, err
	}

	ix.logger.Info("index.workspace.done",
		"files", stats.Files, "decisions", stats.Decisions, "failures", stats.Failures, "pruned", stats.Pruned)
	return stats, nil
}

// File indexes one loaded document under its title
func (ix *Indexer) File(file *state.FileState) error {
	title := filepath.Base(file.Path)
	if text, err := persistence.Read(file.Path); err == nil {
		title = preview.DocumentTitle(text, title)
	}

	_, err := ix.store.IndexFile(file.Path, title, file.Records(), ix.plain)
	if err != nil {
		return err
	}
	ix.logger.Debug("index.file.done", "path", file.Path, "decisions", len(file.Decisions))
	return nil
}

// Refresh reloads paths through ws and updates the index. Deleted documents
// are removed and unreadable ones recorded as failures.
func (ix *Indexer) Refresh(ws *workspace.Workspace, paths []string) error {
	var errs []error
	for _, path := range paths {
		file, err := ws.Reload(path)
		switch {
		case err != nil:
			_, err = ix.store.RecordFailure(path, err)
		case file == nil:
			err = ix.store.RemoveFile(path)
		default:
			err = ix.File(file)
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (ix *Indexer) plain(d domain.Decision) string {
	text, err := ix.renderer.PlainText(decision.Render(d, "\n"))
	if err != nil {
		ix.logger.Warn("index.plain.failed", "decision", d.ID, "error", err)
		return ""
	}
	return text
}

// Search queries the index
func (ix *Indexer) Search(query string, limit int) ([]domain.SearchHit, error) {
	return ix.store.Search(query, limit)
}
