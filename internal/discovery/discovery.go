// Package discovery finds Markdown documents beneath a directory.
package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// ErrNotDirectory is returned when the root exists but is not a directory
var ErrNotDirectory = errors.New("not a directory")

// Options controls which files and directories are considered
type Options struct {
	Extensions  []string
	IgnoredDirs []string
}

// DefaultOptions matches .md and .markdown and skips VCS and dependency dirs
func DefaultOptions() Options {
	return Options{
		Extensions:  []string{".md", ".markdown"},
		IgnoredDirs: []string{".git", ".hg", ".svn", ".venv", "__pycache__", "node_modules"},
	}
}

// Matches reports whether name has one of the extensions, ignoring case
func (o Options) Matches(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext != "" && slices.ContainsFunc(o.Extensions, func(e string) bool {
		return strings.ToLower(e) == ext
	})
}

// Ignored reports whether a directory with this base name is skipped
func (o Options) Ignored(name string) bool {
	return slices.Contains(o.IgnoredDirs, name)
}

// Find returns the sorted absolute paths of matching files under root
func Find(root string, opts Options) ([]string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("base directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("base directory %s: %w", abs, ErrNotDirectory)
	}

	var files []string
	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != abs && opts.Ignored(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if opts.Matches(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", abs, err)
	}

	slices.Sort(files)
	return files, nil
}
