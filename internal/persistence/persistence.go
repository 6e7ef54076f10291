// Package persistence reads and atomically rewrites Markdown documents.
package persistence

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pbaille/vrdx/internal/marker"
)

const defaultMode fs.FileMode = 0644

// Read returns the contents of path as text
func Read(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

// Write replaces path with content through a temporary file in the same
// directory. An existing file keeps its permissions.
func Write(path, content string) error {
	mode := defaultMode
	info, err := os.Stat(path)
	switch {
	case err == nil:
		mode = info.Mode().Perm()
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("stat %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// EnsureMarkerBlock makes sure the file at path holds a marker block and
// writes it back only when one was appended. An empty newline keeps the
// file's own convention.
func EnsureMarkerBlock(path, newline string) (marker.Span, bool, error) {
	text, err := Read(path)
	if err != nil {
		return marker.Span{}, false, err
	}
	updated, span, inserted, err := marker.Ensure(text, newline)
	if err != nil {
		return marker.Span{}, false, fmt.Errorf("%s: %w", path, err)
	}
	if inserted {
		if err := Write(path, updated); err != nil {
			return marker.Span{}, false, err
		}
	}
	return span, inserted, nil
}
