package store

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pbaille/vrdx/internal/domain"
)

//go:embed schema.sql
var schema string

// Store is the SQLite search index over decision documents
type Store struct {
	db *sql.DB
}

// New opens the index at dbPath and applies the schema
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// PlainFunc extracts searchable text from a decision
type PlainFunc func(domain.Decision) string

// IndexFile replaces everything stored for path with records
func (s *Store) IndexFile(path, title string, records []domain.Decision, plain PlainFunc) (*domain.IndexedFile, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	file, err := upsertFile(tx, path, title, len(records), "")
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec("DELETE FROM decisions WHERE file_id = ?", file.ID); err != nil {
		return nil, fmt.Errorf("clear decisions: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO decisions (file_id, position, decision_id, title, status, decision, context, consequences, plain)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, d := range records {
		text := ""
		if plain != nil {
			text = plain(d)
		}
		if _, err := stmt.Exec(file.ID, i, d.ID, d.Title, d.Status, d.Decision, d.Context, d.Consequences, text); err != nil {
			return nil, fmt.Errorf("insert decision %d: %w", d.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return file, nil
}

// RecordFailure marks path as unreadable and drops its decisions
func (s *Store) RecordFailure(path string, cause error) (*domain.IndexedFile, error) {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	file, err := upsertFile(tx, path, "", 0, msg)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec("DELETE FROM decisions WHERE file_id = ?", file.ID); err != nil {
		return nil, fmt.Errorf("clear decisions: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return file, nil
}

func upsertFile(tx *sql.Tx, path, title string, count int, failure string) (*domain.IndexedFile, error) {
	now := time.Now().UTC()

	var id string
	err := tx.QueryRow("SELECT id FROM files WHERE path = ?", path).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		id = uuid.New().String()
		_, err = tx.Exec(
			"INSERT INTO files (id, path, title, decision_count, error, indexed_at) VALUES (?, ?, ?, ?, ?, ?)",
			id, path, title, count, failure, now,
		)
		if err != nil {
			return nil, fmt.Errorf("insert file: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("find file: %w", err)
	default:
		_, err = tx.Exec(
			"UPDATE files SET title = ?, decision_count = ?, error = ?, indexed_at = ? WHERE id = ?",
			title, count, failure, now, id,
		)
		if err != nil {
			return nil, fmt.Errorf("update file: %w", err)
		}
	}

	return &domain.IndexedFile{
		ID:        id,
		Path:      path,
		Title:     title,
		Decisions: count,
		Error:     failure,
		IndexedAt: now,
	}, nil
}

// RemoveFile drops path and its decisions from the index
func (s *Store) RemoveFile(path string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM decisions WHERE file_id IN (SELECT id FROM files WHERE path = ?)", path); err != nil {
		return fmt.Errorf("remove decisions: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM files WHERE path = ?", path); err != nil {
		return fmt.Errorf("remove file: %w", err)
	}
	return tx.Commit()
}

// Prune removes indexed files under root that are not listed in keep
func (s *Store) Prune(root string, keep []string) (int, error) {
	files, err := s.ListFiles()
	if err != nil {
		return 0, err
	}
	kept := make(map[string]bool, len(keep))
	for _, p := range keep {
		kept[p] = true
	}

	removed := 0
	for _, f := range files {
		if !strings.HasPrefix(f.Path, root) || kept[f.Path] {
			continue
		}
		if err := s.RemoveFile(f.Path); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// ListFiles returns every indexed file ordered by path
func (s *Store) ListFiles() ([]domain.IndexedFile, error) {
	rows, err := s.db.Query(
		"SELECT id, path, title, decision_count, error, indexed_at FROM files ORDER BY path",
	)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var files []domain.IndexedFile
	for rows.Next() {
		var f domain.IndexedFile
		if err := rows.Scan(&f.ID, &f.Path, &f.Title, &f.Decisions, &f.Error, &f.IndexedAt); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// Search returns decisions whose fields contain query, ignoring ASCII case
func (s *Store) Search(query string, limit int) ([]domain.SearchHit, error) {
	if limit <= 0 {
		limit = 50
	}
	pattern := "%" + escapeLike(strings.TrimSpace(query)) + "%"

	rows, err := s.db.Query(`
		SELECT f.path, f.title, d.position, d.decision_id, d.title, d.status, d.decision, d.context, d.consequences
		FROM decisions d
		JOIN files f ON f.id = d.file_id
		WHERE d.title LIKE ?1 ESCAPE '\'
		   OR d.status LIKE ?1 ESCAPE '\'
		   OR d.decision LIKE ?1 ESCAPE '\'
		   OR d.context LIKE ?1 ESCAPE '\'
		   OR d.consequences LIKE ?1 ESCAPE '\'
		   OR d.plain LIKE ?1 ESCAPE '\'
		ORDER BY f.path, d.position
		LIMIT ?2
	`, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search decisions: %w", err)
	}
	defer rows.Close()

	var hits []domain.SearchHit
	for rows.Next() {
		var h domain.SearchHit
		d := &h.Decision
		if err := rows.Scan(&h.Path, &h.FileTitle, &h.Position, &d.ID, &d.Title, &d.Status, &d.Decision, &d.Context, &d.Consequences); err != nil {
			return nil, fmt.Errorf("scan hit: %w", err)
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
