// Package history persists finished notes in a local SQLite database.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/zen-systems/noteforge/pkg/pipeline"
)

// ErrNotFound is returned when no entry has the requested id.
var ErrNotFound = errors.New("history entry not found")

// Entry is one finished note.
type Entry struct {
	ID        string                 `json:"id"`
	RunID     string                 `json:"run_id,omitempty"`
	Title     string                 `json:"title"`
	Topic     string                 `json:"topic"`
	Provider  string                 `json:"provider"`
	ModelTier string                 `json:"model_tier"`
	Model     string                 `json:"model,omitempty"`
	Markdown  string                 `json:"markdown"`
	HTML      string                 `json:"html,omitempty"`
	Stages    []pipeline.StageOutput `json:"stages,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// Summary is the list view of an entry.
type Summary struct {
	ID        string
	Title     string
	Topic     string
	Provider  string
	ModelTier string
	HasHTML   bool
	Chars     int
	CreatedAt time.Time
}

// Store provides access to the history database.
type Store struct {
	db *sql.DB
}

// Open opens the database at path, creating parent directories, and applies
// migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	db, err := OpenSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", path, err)
	}
	s, err := New(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps db and initialises the schema.
func New(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var version int
	err := s.db.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := s.db.Exec(`INSERT INTO schema_version (version) VALUES (0)`); err != nil {
			return fmt.Errorf("init schema version: %w", err)
		}
		version = 0
	} else if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	migrations := []func() error{
		s.migrateV1, // v0 → v1: notes table
	}
	for i := version; i < len(migrations); i++ {
		if err := migrations[i](); err != nil {
			return fmt.Errorf("migration v%d→v%d: %w", i, i+1, err)
		}
		if _, err := s.db.Exec(`UPDATE schema_version SET version = ?`, i+1); err != nil {
			return fmt.Errorf("update schema version to %d: %w", i+1, err)
		}
	}
	return nil
}

func (s *Store) migrateV1() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS notes (
		id          TEXT PRIMARY KEY,
		run_id      TEXT,
		title       TEXT NOT NULL,
		topic       TEXT NOT NULL,
		provider    TEXT NOT NULL,
		model_tier  TEXT NOT NULL,
		model       TEXT,
		markdown    TEXT NOT NULL,
		html        TEXT,
		stages_json TEXT NOT NULL DEFAULT '[]',
		created_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_notes_created ON notes(created_at DESC);
	`)
	return err
}

// Save inserts e, assigning an id and creation time when they are unset.
func (s *Store) Save(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	stages, err := json.Marshal(e.Stages)
	if err != nil {
		return Entry{}, fmt.Errorf("encode stages: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO notes (id, run_id, title, topic, provider, model_tier, model, markdown, html, stages_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.RunID, e.Title, e.Topic, e.Provider, e.ModelTier, e.Model, e.Markdown, e.HTML, string(stages),
		e.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("save history entry: %w", err)
	}
	return e, nil
}

// List returns the newest entries first. A limit of zero or less returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Summary, error) {
	query := `SELECT id, title, topic, provider, model_tier, COALESCE(html, '') != '', LENGTH(markdown), created_at
		FROM notes ORDER BY created_at DESC, id`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		var created string
		if err := rows.Scan(&sum.ID, &sum.Title, &sum.Topic, &sum.Provider, &sum.ModelTier, &sum.HasHTML, &sum.Chars, &created); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		sum.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Get returns the entry with id.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	var (
		e       Entry
		runID   sql.NullString
		model   sql.NullString
		html    sql.NullString
		stages  string
		created string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, run_id, title, topic, provider, model_tier, model, markdown, html, stages_json, created_at
		FROM notes WHERE id = ?`, id,
	).Scan(&e.ID, &runID, &e.Title, &e.Topic, &e.Provider, &e.ModelTier, &model, &e.Markdown, &html, &stages, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get history entry: %w", err)
	}

	e.RunID, e.Model, e.HTML = runID.String, model.String, html.String
	if err := json.Unmarshal([]byte(stages), &e.Stages); err != nil {
		return nil, fmt.Errorf("history entry %s stages are corrupted: %w", id, err)
	}
	e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return &e, nil
}

// Delete removes the entry with id.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete history entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
