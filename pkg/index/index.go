// Package index adapts the sqlite-vec similarity index for the memory
// service. It is the sole owner of the mapping between note identifiers and
// index entries; no other package addresses the vec0 table directly.
package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"github.com/rs/zerolog"
)

func init() {
	// Auto-register the sqlite-vec extension for every sqlite3 connection.
	sqlite_vec.Auto()
}

// Hit is one ranked query result. Distance is cosine distance; lower means
// more similar.
type Hit struct {
	NoteID   string  `json:"note_id"`
	Distance float64 `json:"distance"`
	Text     string  `json:"text"`
}

// Index mirrors embedded note text into a vec0 virtual table plus a
// sidecar metadata table used for user filtering.
type Index struct {
	db        *sql.DB
	dimension int
	logger    zerolog.Logger
}

// New creates the index adapter over db and initializes its tables for the
// given embedding dimension.
func New(db *sql.DB, dimension int, logger zerolog.Logger) (*Index, error) {
	if dimension <= 0 {
		return nil, errors.New("embedding dimension must be positive")
	}

	idx := &Index{db: db, dimension: dimension, logger: logger}
	if err := idx.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize index schema: %w", err)
	}
	idx.logger.Debug().Int("dimension", dimension).Msg("Vector index ready")
	return idx, nil
}

func (idx *Index) initSchema() error {
	vectorSchema := fmt.Sprintf(`
		CREATE VIRTUAL TABLE IF NOT EXISTS note_vectors USING vec0(
			note_id TEXT PRIMARY KEY,
			embedding float[%d] distance_metric=cosine
		);
	`, idx.dimension)

	if _, err := idx.db.Exec(vectorSchema); err != nil {
		return fmt.Errorf("failed to create vector table: %w", err)
	}

	metaSchema := `
		CREATE TABLE IF NOT EXISTS note_vector_meta (
			note_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			embed_text TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_vector_meta_user ON note_vector_meta(user_id);
	`
	if _, err := idx.db.Exec(metaSchema); err != nil {
		return fmt.Errorf("failed to create vector metadata table: %w", err)
	}

	return nil
}

// Upsert writes or replaces the index entry for a note.
func (idx *Index) Upsert(ctx context.Context, noteID string, vector []float32, text, userID string) error {
	if len(vector) != idx.dimension {
		return fmt.Errorf("vector dimension %d does not match index dimension %d", len(vector), idx.dimension)
	}

	embeddingJSON, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}

	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin index transaction: %w", err)
	}
	defer tx.Rollback()

	// vec0 tables reject INSERT OR REPLACE on some builds; delete-then-insert
	// keeps upsert semantics portable.
	if _, err := tx.ExecContext(ctx, "DELETE FROM note_vectors WHERE note_id = ?", noteID); err != nil {
		return fmt.Errorf("failed to clear vector row: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO note_vectors (note_id, embedding) VALUES (?, ?)",
		noteID, string(embeddingJSON)); err != nil {
		return fmt.Errorf("failed to store vector: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO note_vector_meta (note_id, user_id, embed_text) VALUES (?, ?, ?)",
		noteID, userID, text); err != nil {
		return fmt.Errorf("failed to store vector metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit index write: %w", err)
	}
	return nil
}

// Remove deletes the index entry for a note. Removing an id that is not
// present is a no-op, not an error.
func (idx *Index) Remove(ctx context.Context, noteID string) error {
	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin index transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM note_vectors WHERE note_id = ?", noteID); err != nil {
		return fmt.Errorf("failed to remove vector: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM note_vector_meta WHERE note_id = ?", noteID); err != nil {
		return fmt.Errorf("failed to remove vector metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit index removal: %w", err)
	}
	return nil
}

// Query returns up to topK hits for the user, ordered by ascending cosine
// distance.
func (idx *Index) Query(ctx context.Context, vector []float32, userID string, topK int) ([]Hit, error) {
	if topK <= 0 {
		return []Hit{}, nil
	}

	embeddingJSON, err := json.Marshal(vector)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query embedding: %w", err)
	}

	rows, err := idx.db.QueryContext(ctx, `
		SELECT v.note_id,
			vec_distance_cosine(v.embedding, ?) AS distance,
			m.embed_text
		FROM note_vectors v
		JOIN note_vector_meta m ON m.note_id = v.note_id
		WHERE m.user_id = ?
		ORDER BY distance ASC
		LIMIT ?`,
		string(embeddingJSON), userID, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to query index: %w", err)
	}
	defer rows.Close()

	hits := []Hit{}
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.NoteID, &h.Distance, &h.Text); err != nil {
			return nil, fmt.Errorf("failed to scan hit: %w", err)
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// Has reports whether an index entry exists for the note.
func (idx *Index) Has(ctx context.Context, noteID string) (bool, error) {
	var one int
	err := idx.db.QueryRowContext(ctx,
		"SELECT 1 FROM note_vector_meta WHERE note_id = ?", noteID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// ListIDs returns every indexed note id for a user. Used by the
// consistency sweep.
func (idx *Index) ListIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := idx.db.QueryContext(ctx,
		"SELECT note_id FROM note_vector_meta WHERE user_id = ?", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list index ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
