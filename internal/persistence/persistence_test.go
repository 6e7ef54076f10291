package persistence

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/vrdx/internal/marker"
)

func TestWriteReplacesAndKeepsMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.md")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0600))

	require.NoError(t, Write(path, "new"))
	text, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, "new", text)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteCreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fresh.md")
	require.NoError(t, Write(path, "hello"))

	text, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
}

func TestReadMissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "nope.md"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestEnsureMarkerBlockInsertsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.md")
	require.NoError(t, os.WriteFile(path, []byte("# Intro\n"), 0644))

	span, inserted, err := EnsureMarkerBlock(path, "")
	require.NoError(t, err)
	assert.True(t, inserted)

	text, err := Read(path)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(text, marker.EndMarker+"\n"))
	assert.Equal(t, "\n\n", span.Body(text))

	again, inserted, err := EnsureMarkerBlock(path, "")
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, span, again)
}

func TestEnsureMarkerBlockUsesNewlineOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.md")
	require.NoError(t, os.WriteFile(path, []byte("# Intro"), 0644))

	_, inserted, err := EnsureMarkerBlock(path, "\r\n")
	require.NoError(t, err)
	assert.True(t, inserted)

	text, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, "# Intro\r\n"+marker.StartMarker+"\r\n\r\n"+marker.EndMarker+"\r\n", text)
}

func TestEnsureMarkerBlockLeavesMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.md")
	original := "# Intro\n" + marker.StartMarker + "\n"
	require.NoError(t, os.WriteFile(path, []byte(original), 0644))

	_, _, err := EnsureMarkerBlock(path, "")
	assert.ErrorIs(t, err, marker.ErrMissingMarker)

	text, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, original, text)
}
