package api

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"strconv"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"

	"github.com/pbaille/vrdx/internal/command"
	"github.com/pbaille/vrdx/internal/decision"
	"github.com/pbaille/vrdx/internal/dispatch"
	"github.com/pbaille/vrdx/internal/domain"
	"github.com/pbaille/vrdx/internal/index"
	"github.com/pbaille/vrdx/internal/logging"
	"github.com/pbaille/vrdx/internal/marker"
	"github.com/pbaille/vrdx/internal/preview"
	"github.com/pbaille/vrdx/internal/state"
	"github.com/pbaille/vrdx/internal/template"
	"github.com/pbaille/vrdx/internal/workspace"
)

// Server exposes a workspace over HTTP. Requests touching the workspace are
// serialised.
type Server struct {
	ws       *workspace.Workspace
	dispatch *dispatch.Dispatcher
	index    *index.Indexer
	renderer *preview.Renderer
	logger   logging.Logger
	addr     string

	mu sync.Mutex
}

// Option configures a Server
type Option func(*Server)

// WithIndex enables search and re-indexing on save
func WithIndex(ix *index.Indexer) Option {
	return func(s *Server) { s.index = ix }
}

func WithLogger(logger logging.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a server for ws listening on addr
func New(ws *workspace.Workspace, addr string, opts ...Option) *Server {
	s := &Server{
		ws:       ws,
		renderer: preview.NewRenderer(),
		logger:   logging.NoOp(),
		addr:     addr,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.dispatch = dispatch.New(ws.App, dispatch.WithDispatchLogger(s.logger))
	return s
}

// Handler returns the routed handler with request ids and CORS applied.
// File names in paths are relative to the workspace root with slashes
// escaped, e.g. /files/docs%2Fadr.md/decisions.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("GET /statuses", s.statuses)

	// Files
	mux.HandleFunc("GET /files", s.listFiles)
	mux.HandleFunc("GET /files/{file}/template", s.template)
	mux.HandleFunc("POST /files/{file}/save", s.save)

	// Decisions
	mux.HandleFunc("GET /files/{file}/decisions", s.listDecisions)
	mux.HandleFunc("POST /files/{file}/decisions", s.createDecision)
	mux.HandleFunc("GET /files/{file}/decisions/{id}", s.getDecision)
	mux.HandleFunc("PATCH /files/{file}/decisions/{id}", s.updateDecision)
	mux.HandleFunc("DELETE /files/{file}/decisions/{id}", s.deleteDecision)
	mux.HandleFunc("GET /files/{file}/decisions/{id}/preview", s.previewDecision)
	mux.HandleFunc("POST /files/{file}/move", s.moveDecision)

	// Links
	mux.HandleFunc("POST /files/{file}/links", s.link)
	mux.HandleFunc("DELETE /files/{file}/links", s.unlink)

	mux.HandleFunc("GET /search", s.search)

	return s.withRequestID(withCORS(mux))
}

// Run serves until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api.listen", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		h.ServeHTTP(w, r)
	})
}

func (s *Server) withRequestID(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", id)

		start := time.Now()
		h.ServeHTTP(w, r)
		s.logger.Debug("api.request", "method", r.Method, "path", r.URL.Path,
			"request_id", id, "duration", time.Since(start))
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) statuses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"statuses": template.Statuses(),
		"default":  template.DefaultStatus,
	})
}

// FileSummary describes a loaded document
type FileSummary struct {
	Path          string `json:"path"`
	MarkerPresent bool   `json:"marker_present"`
	Decisions     int    `json:"decisions"`
	Modified      bool   `json:"modified"`
}

// FailureSummary describes a document that could not be loaded
type FailureSummary struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

func (s *Server) listFiles(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	files := make([]FileSummary, 0, len(s.ws.App.Files))
	for _, f := range s.ws.App.Files {
		files = append(files, FileSummary{
			Path:          s.ws.Rel(f.Path),
			MarkerPresent: f.MarkerPresent,
			Decisions:     len(f.Decisions),
			Modified:      f.Modified,
		})
	}
	failures := make([]FailureSummary, 0, len(s.ws.Failures))
	for _, f := range s.ws.Failures {
		failures = append(failures, FailureSummary{Path: s.ws.Rel(f.Path), Error: f.Err.Error()})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"files":    files,
		"failures": failures,
		"modified": s.ws.App.Modified,
	})
}

// selectFile makes the {file} path value the active file. Callers hold mu.
func (s *Server) selectFile(w http.ResponseWriter, r *http.Request) (*state.FileState, bool) {
	file, err := s.ws.Select(r.PathValue("file"))
	if err != nil {
		writeFailure(w, err)
		return nil, false
	}
	return file, true
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid decision id")
		return 0, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (s *Server) listDecisions(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, ok := s.selectFile(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"path":      s.ws.Rel(file.Path),
		"decisions": decisionsOf(file),
		"modified":  s.ws.App.Modified,
	})
}

func decisionsOf(file *state.FileState) []*state.DecisionState {
	if file.Decisions == nil {
		return []*state.DecisionState{}
	}
	return file.Decisions
}

func (s *Server) getDecision(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, ok := s.selectFile(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	d := file.Find(id)
	if d == nil {
		writeFailure(w, command.ErrDecisionNotFound)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) previewDecision(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, ok := s.selectFile(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	d := file.Find(id)
	if d == nil {
		writeFailure(w, command.ErrDecisionNotFound)
		return
	}
	out, err := s.renderer.Decision(d.Record)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "html": out})
}

func (s *Server) template(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.selectFile(w, r); !ok {
		return
	}
	tpl, err := command.TemplateForEditor(s.ws.App)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"template": tpl})
}

func (s *Server) createDecision(w http.ResponseWriter, r *http.Request) {
	var msg dispatch.CreateDecision
	if !decode(w, r, &msg) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.selectFile(w, r); !ok {
		return
	}
	created, err := s.dispatch.Create(r.Context(), msg)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) updateDecision(w http.ResponseWriter, r *http.Request) {
	var msg dispatch.UpdateDecision
	if !decode(w, r, &msg) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	msg.ID = id

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.selectFile(w, r); !ok {
		return
	}
	updated, err := s.dispatch.Update(r.Context(), msg)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteDecision(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.selectFile(w, r); !ok {
		return
	}
	removed, err := s.dispatch.Delete(r.Context(), dispatch.DeleteDecision{ID: id})
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, removed)
}

func (s *Server) moveDecision(w http.ResponseWriter, r *http.Request) {
	var msg dispatch.MoveDecision
	if !decode(w, r, &msg) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, ok := s.selectFile(w, r)
	if !ok {
		return
	}
	if err := s.dispatch.Move(r.Context(), msg); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"decisions": decisionsOf(file)})
}

func (s *Server) link(w http.ResponseWriter, r *http.Request) {
	var msg dispatch.LinkDecisions
	if !decode(w, r, &msg) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.selectFile(w, r); !ok {
		return
	}
	link, err := s.dispatch.Link(r.Context(), msg)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, link)
}

func (s *Server) unlink(w http.ResponseWriter, r *http.Request) {
	var msg dispatch.UnlinkDecisions
	if !decode(w, r, &msg) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.selectFile(w, r); !ok {
		return
	}
	if err := s.dispatch.Unlink(r.Context(), msg); err != nil {
		writeFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) save(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, ok := s.selectFile(w, r)
	if !ok {
		return
	}
	if err := s.ws.SaveCurrent(); err != nil {
		writeFailure(w, err)
		return
	}
	if s.index != nil {
		if err := s.index.File(file); err != nil {
			s.logger.Warn("api.index.failed", "path", file.Path, "error", err)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"path":      s.ws.Rel(file.Path),
		"decisions": len(file.Decisions),
		"modified":  s.ws.App.Modified,
	})
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	if s.index == nil {
		writeError(w, http.StatusServiceUnavailable, "search index is not configured")
		return
	}

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	hits, err := s.index.Search(query, limit)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if hits == nil {
		hits = []domain.SearchHit{}
	}
	for i := range hits {
		hits[i].Path = s.ws.Rel(hits[i].Path)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"hits":  hits,
		"query": query,
	})
}

// statusFor maps workspace and command errors onto HTTP statuses
func statusFor(err error) int {
	switch {
	case errors.Is(err, command.ErrDecisionNotFound), errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, command.ErrNoActiveFile), errors.Is(err, command.ErrNoActiveDecision):
		return http.StatusConflict
	case goerrors.IsCategory(err, goerrors.CategoryValidation),
		errors.Is(err, decision.ErrParse),
		errors.Is(err, marker.ErrMarker),
		errors.Is(err, command.ErrIndexOutOfRange),
		errors.Is(err, command.ErrUnsupportedRelation):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeFailure(w http.ResponseWriter, err error) {
	body := map[string]any{"error": err.Error()}
	var gerr *goerrors.Error
	if errors.As(err, &gerr) {
		if gerr.TextCode != "" {
			body["code"] = gerr.TextCode
		}
		if len(gerr.ValidationErrors) > 0 {
			body["validation"] = gerr.ValidationErrors
		}
	}
	writeJSON(w, statusFor(err), body)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
