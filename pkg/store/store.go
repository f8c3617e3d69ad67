// Package store is the durable record store for notes, backed by SQLite.
// It is the source of truth for note content and metadata; the vector index
// only mirrors embedded text and is owned by a separate adapter.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/mtegner/mnemo/pkg/note"
)

// Store persists notes in a SQLite table.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Open opens (or creates) the SQLite database at path with WAL enabled.
// The returned handle is shared with the vector index adapter so a single
// file carries both stores.
func Open(path string) (*sql.DB, error) {
	if path == "" {
		return nil, errors.New("database path is required")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	return db, nil
}

// New creates a Store over db and initializes its schema.
func New(db *sql.DB, logger zerolog.Logger) (*Store, error) {
	s := &Store{db: db, logger: logger}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize record schema: %w", err)
	}
	s.logger.Debug().Msg("Record store ready")
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS notes (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			file_path TEXT NOT NULL DEFAULT '',
			line_number INTEGER NOT NULL DEFAULT 0,
			code_snippet TEXT NOT NULL DEFAULT '',
			web_context TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			is_task INTEGER NOT NULL DEFAULT 0,
			embedding TEXT,
			indexed_text TEXT NOT NULL DEFAULT '',
			ingest_batch TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_notes_user ON notes(user_id);
		CREATE INDEX IF NOT EXISTS idx_notes_user_task ON notes(user_id, is_task);
		CREATE INDEX IF NOT EXISTS idx_notes_created ON notes(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Insert writes a new note row.
func (s *Store) Insert(ctx context.Context, n *note.Note) error {
	embedding, err := marshalEmbedding(n.Embedding)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO notes (id, user_id, content, created_at, file_path, line_number,
			code_snippet, web_context, category, is_task, embedding, indexed_text, ingest_batch)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.Content, n.CreatedAt.UnixNano(), n.FilePath, n.LineNumber,
		n.CodeSnippet, n.WebContext, n.Category, boolToInt(n.IsTask), embedding, n.IndexedText, n.IngestBatch,
	)
	if err != nil {
		return fmt.Errorf("failed to insert note: %w", err)
	}
	return nil
}

// Get returns the note with the given id owned by userID, or nil when no
// such note exists.
func (s *Store) Get(ctx context.Context, userID, id string) (*note.Note, error) {
	row := s.db.QueryRowContext(ctx,
		selectColumns+" FROM notes WHERE id = ? AND user_id = ?", id, userID)

	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return n, err
}

// UpdateContent replaces content, embedding and the composed indexed text
// of an owned note. Returns false when the note does not exist for that
// user.
func (s *Store) UpdateContent(ctx context.Context, userID, id, content string, embedding []float32, indexedText string) (bool, error) {
	blob, err := marshalEmbedding(embedding)
	if err != nil {
		return false, err
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE notes SET content = ?, embedding = ?, indexed_text = ? WHERE id = ? AND user_id = ?",
		content, blob, indexedText, id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to update note: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// SetCategory overwrites the category label of a note. Used only by the
// clustering pass.
func (s *Store) SetCategory(ctx context.Context, id, category string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE notes SET category = ? WHERE id = ?", category, id)
	if err != nil {
		return fmt.Errorf("failed to set category: %w", err)
	}
	return nil
}

// Delete removes an owned note. Returns false when nothing was deleted.
func (s *Store) Delete(ctx context.Context, userID, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM notes WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete note: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ListByUser returns every note of a user, newest first.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]note.Note, error) {
	return s.queryNotes(ctx,
		selectColumns+" FROM notes WHERE user_id = ? ORDER BY created_at DESC", userID)
}

// ListTasks returns the user's task-flagged notes, newest first.
func (s *Store) ListTasks(ctx context.Context, userID string) ([]note.Note, error) {
	return s.queryNotes(ctx,
		selectColumns+" FROM notes WHERE user_id = ? AND is_task = 1 ORDER BY created_at DESC", userID)
}

// CreatedSince returns the user's notes created at or after the cutoff,
// newest first.
func (s *Store) CreatedSince(ctx context.Context, userID string, cutoff time.Time) ([]note.Note, error) {
	return s.queryNotes(ctx,
		selectColumns+" FROM notes WHERE user_id = ? AND created_at >= ? ORDER BY created_at DESC",
		userID, cutoff.UnixNano())
}

// ListEmbedded returns the user's notes that carry an embedding, in stable
// insertion order. Input set for clustering and the consistency sweep.
func (s *Store) ListEmbedded(ctx context.Context, userID string) ([]note.Note, error) {
	return s.queryNotes(ctx,
		selectColumns+" FROM notes WHERE user_id = ? AND embedding IS NOT NULL ORDER BY created_at ASC, id ASC",
		userID)
}

// MatchContent is the non-semantic fallback query: a case-insensitive
// substring match over content.
func (s *Store) MatchContent(ctx context.Context, userID, pattern string) ([]note.Note, error) {
	return s.queryNotes(ctx,
		selectColumns+" FROM notes WHERE user_id = ? AND content LIKE ? ORDER BY created_at DESC",
		userID, "%"+pattern+"%")
}

// Users returns every distinct owner id present in the store. Scheduled
// maintenance iterates this set.
func (s *Store) Users(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT user_id FROM notes ORDER BY user_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Count returns the total number of notes across all users.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM notes").Scan(&n)
	return n, err
}

const selectColumns = `SELECT id, user_id, content, created_at, file_path, line_number,
	code_snippet, web_context, category, is_task, embedding, indexed_text, ingest_batch`

func (s *Store) queryNotes(ctx context.Context, query string, args ...interface{}) ([]note.Note, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	var notes []note.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, *n)
	}
	return notes, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanNote(row rowScanner) (*note.Note, error) {
	var (
		n         note.Note
		createdAt int64
		isTask    int
		embedding sql.NullString
	)

	err := row.Scan(&n.ID, &n.UserID, &n.Content, &createdAt, &n.FilePath, &n.LineNumber,
		&n.CodeSnippet, &n.WebContext, &n.Category, &isTask, &embedding, &n.IndexedText, &n.IngestBatch)
	if err != nil {
		return nil, err
	}

	n.CreatedAt = time.Unix(0, createdAt)
	n.IsTask = isTask != 0

	if embedding.Valid && embedding.String != "" {
		if err := json.Unmarshal([]byte(embedding.String), &n.Embedding); err != nil {
			return nil, fmt.Errorf("failed to unmarshal embedding: %w", err)
		}
	}

	return &n, nil
}

func marshalEmbedding(embedding []float32) (interface{}, error) {
	if len(embedding) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding: %w", err)
	}
	return string(data), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
