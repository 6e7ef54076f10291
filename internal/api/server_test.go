package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/vrdx/internal/discovery"
	"github.com/pbaille/vrdx/internal/index"
	"github.com/pbaille/vrdx/internal/marker"
	"github.com/pbaille/vrdx/internal/store"
	"github.com/pbaille/vrdx/internal/workspace"
)

const record = "### 1 Use SQLite\n" +
	"* **Status**: ✅ Accepted\n" +
	"* **Decision**: Keep the search index in SQLite.\n" +
	"* **Context**: Single binary deployments.\n" +
	"* **Consequences**: Needs cgo.\n"

type fixture struct {
	root    string
	handler http.Handler
}

func setup(t *testing.T, withIndex bool) fixture {
	t.Helper()
	root := t.TempDir()
	write(t, filepath.Join(root, "a.md"), "# A\n"+marker.StartMarker+"\n"+record+marker.EndMarker+"\n")
	write(t, filepath.Join(root, "docs", "adr.md"), "# ADR\n")
	write(t, filepath.Join(root, "broken.md"), marker.StartMarker+"\n")

	ws, err := workspace.Open(root, workspace.Options{Discovery: discovery.DefaultOptions()})
	require.NoError(t, err)

	var opts []Option
	if withIndex {
		s, err := store.New(filepath.Join(t.TempDir(), "index.db"))
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		ix := index.New(s, nil, nil)
		_, err = ix.Workspace(ws)
		require.NoError(t, err)
		opts = append(opts, WithIndex(ix))
	}

	return fixture{root: root, handler: New(ws, ":0", opts...).Handler()}
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func (f fixture) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func TestHealthAndStatuses(t *testing.T) {
	f := setup(t, false)

	rec, body := f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	_, body = f.do(t, http.MethodGet, "/statuses", "")
	assert.Equal(t, "📝 Draft", body["default"])
	assert.Len(t, body["statuses"], 5)
}

func TestRequestIDIsEchoed(t *testing.T) {
	f := setup(t, false)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, "abc", rec.Header().Get("X-Request-ID"))
}

func TestListFiles(t *testing.T) {
	f := setup(t, false)

	rec, body := f.do(t, http.MethodGet, "/files", "")
	require.Equal(t, http.StatusOK, rec.Code)

	files := body["files"].([]any)
	require.Len(t, files, 2)
	assert.Equal(t, "a.md", files[0].(map[string]any)["path"])
	assert.Equal(t, "docs/adr.md", files[1].(map[string]any)["path"])

	failures := body["failures"].([]any)
	require.Len(t, failures, 1)
	assert.Equal(t, "broken.md", failures[0].(map[string]any)["path"])
}

func TestDecisionLifecycle(t *testing.T) {
	f := setup(t, false)

	rec, body := f.do(t, http.MethodPost, "/files/a.md/decisions", `{"title":"Add API","status":"✅ Accepted","decision":"Expose a REST API.","context":"Remote editing.","consequences":"A server to run."}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.EqualValues(t, 2, body["record"].(map[string]any)["id"])

	rec, body = f.do(t, http.MethodPatch, "/files/a.md/decisions/2", `{"context":"Editing from other tools."}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Editing from other tools.", body["record"].(map[string]any)["context"])

	rec, _ = f.do(t, http.MethodPost, "/files/a.md/links", `{"source_id":2,"target_id":1,"relation":"supersedes"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, body = f.do(t, http.MethodGet, "/files/a.md/decisions/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["links"], 1)

	rec, body = f.do(t, http.MethodPost, "/files/a.md/save", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, false, body["modified"])

	data, err := os.ReadFile(filepath.Join(f.root, "a.md"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "### 2 Add API\n")
	assert.Contains(t, string(data), "* **Context**: Editing from other tools.\n")

	rec, _ = f.do(t, http.MethodDelete, "/files/a.md/links", `{"source_id":2,"target_id":1,"relation":"supersedes"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, body = f.do(t, http.MethodDelete, "/files/a.md/decisions/2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Add API", body["record"].(map[string]any)["title"])
}

func TestSaveKeepsOtherFilesModified(t *testing.T) {
	f := setup(t, false)
	body := `{"title":"Pending","decision":"d","context":"c","consequences":"q"}`

	rec, _ := f.do(t, http.MethodPost, "/files/a.md/decisions", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec, _ = f.do(t, http.MethodPost, "/files/docs%2Fadr.md/decisions", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, out := f.do(t, http.MethodPost, "/files/a.md/save", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, out["modified"])

	_, out = f.do(t, http.MethodGet, "/files", "")
	assert.Equal(t, true, out["modified"])
	files := out["files"].([]any)
	assert.Equal(t, false, files[0].(map[string]any)["modified"])
	assert.Equal(t, true, files[1].(map[string]any)["modified"])

	rec, out = f.do(t, http.MethodPost, "/files/docs%2Fadr.md/save", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, false, out["modified"])
}

func TestEscapedNestedPath(t *testing.T) {
	f := setup(t, false)

	rec, body := f.do(t, http.MethodGet, "/files/docs%2Fadr.md/decisions", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "docs/adr.md", body["path"])
	assert.Empty(t, body["decisions"])

	rec, body = f.do(t, http.MethodGet, "/files/docs%2Fadr.md/template", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(body["template"].(string), "### 0\n"))
}

func TestMoveAndPreview(t *testing.T) {
	f := setup(t, false)
	f.do(t, http.MethodPost, "/files/a.md/decisions", `{"title":"Second","decision":"Expose a REST API.","context":"Remote editing.","consequences":"A server to run."}`)

	rec, body := f.do(t, http.MethodPost, "/files/a.md/move", `{"from":0,"to":1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	first := body["decisions"].([]any)[0].(map[string]any)
	assert.EqualValues(t, 1, first["record"].(map[string]any)["id"])

	rec, body = f.do(t, http.MethodGet, "/files/a.md/decisions/1/preview", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body["html"], "Use SQLite")
}

func TestErrorMapping(t *testing.T) {
	f := setup(t, false)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"unknown file", http.MethodGet, "/files/missing.md/decisions", "", http.StatusNotFound},
		{"unknown decision", http.MethodGet, "/files/a.md/decisions/9", "", http.StatusNotFound},
		{"bad id", http.MethodGet, "/files/a.md/decisions/x", "", http.StatusBadRequest},
		{"bad body", http.MethodPost, "/files/a.md/decisions", "{", http.StatusBadRequest},
		{"multi-line title", http.MethodPost, "/files/a.md/decisions", `{"title":"a\nb"}`, http.StatusUnprocessableEntity},
		{"missing body", http.MethodPost, "/files/a.md/decisions", `{"title":"x"}`, http.StatusUnprocessableEntity},
		{"blank context", http.MethodPatch, "/files/a.md/decisions/1", `{"context":" "}`, http.StatusUnprocessableEntity},
		{"blank status", http.MethodPatch, "/files/a.md/decisions/1", `{"status":""}`, http.StatusUnprocessableEntity},
		{"empty update", http.MethodPatch, "/files/a.md/decisions/1", `{}`, http.StatusUnprocessableEntity},
		{"update unknown", http.MethodPatch, "/files/a.md/decisions/9", `{"title":"x"}`, http.StatusNotFound},
		{"move out of range", http.MethodPost, "/files/a.md/move", `{"from":0,"to":4}`, http.StatusUnprocessableEntity},
		{"bad relation", http.MethodPost, "/files/a.md/links", `{"source_id":1,"target_id":2,"relation":"replaces"}`, http.StatusUnprocessableEntity},
		{"link unknown", http.MethodPost, "/files/a.md/links", `{"source_id":1,"target_id":2,"relation":"supersedes"}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := f.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestSearch(t *testing.T) {
	f := setup(t, true)

	rec, body := f.do(t, http.MethodGet, "/search?q=cgo", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	hits := body["hits"].([]any)
	require.Len(t, hits, 1)
	assert.Equal(t, "a.md", hits[0].(map[string]any)["path"])

	rec, _ = f.do(t, http.MethodGet, "/search", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSaveReindexes(t *testing.T) {
	f := setup(t, true)

	f.do(t, http.MethodPost, "/files/a.md/decisions", `{"title":"Adopt fsnotify","decision":"Reload on change.","context":"Watch mode.","consequences":"One more dependency."}`)
	_, body := f.do(t, http.MethodGet, "/search?q=fsnotify", "")
	assert.Empty(t, body["hits"])

	f.do(t, http.MethodPost, "/files/a.md/save", "")
	_, body = f.do(t, http.MethodGet, "/search?q=fsnotify", "")
	assert.Len(t, body["hits"], 1)
}

func TestSearchWithoutIndex(t *testing.T) {
	f := setup(t, false)

	rec, _ := f.do(t, http.MethodGet, "/search?q=x", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
