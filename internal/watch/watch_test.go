package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/vrdx/internal/discovery"
)

func TestWatcherBatchesDocumentChanges(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules"), 0755))

	batches := make(chan []string, 8)
	w, err := New(root, Options{Discovery: discovery.DefaultOptions(), Debounce: 50 * time.Millisecond},
		func(_ context.Context, paths []string) { batches <- paths })
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	doc := filepath.Join(root, "a.md")
	require.NoError(t, os.WriteFile(doc, []byte("# A\n"), 0644))
	require.NoError(t, os.WriteFile(doc, []byte("# A2\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "node_modules", "b.md"), []byte("x"), 0644))

	select {
	case paths := <-batches:
		assert.Equal(t, []string{doc}, paths)
	case <-time.After(5 * time.Second):
		t.Fatal("no batch delivered")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcherFollowsNewDirectories(t *testing.T) {
	root := t.TempDir()

	batches := make(chan []string, 8)
	w, err := New(root, Options{Discovery: discovery.DefaultOptions(), Debounce: 50 * time.Millisecond},
		func(_ context.Context, paths []string) { batches <- paths })
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	dir := filepath.Join(root, "docs")
	require.NoError(t, os.Mkdir(dir, 0755))
	time.Sleep(100 * time.Millisecond)

	doc := filepath.Join(dir, "adr.md")
	require.NoError(t, os.WriteFile(doc, []byte("# ADR\n"), 0644))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case paths := <-batches:
			if assert.NotEmpty(t, paths) && paths[len(paths)-1] == doc {
				return
			}
		case <-deadline:
			t.Fatal("change in new directory not reported")
		}
	}
}

func TestNewRequiresHandler(t *testing.T) {
	_, err := New(t.TempDir(), Options{}, nil)
	assert.Error(t, err)
}
