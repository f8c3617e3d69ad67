package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/mtegner/mnemo/internal/observability"
	"github.com/mtegner/mnemo/internal/tracing"
	"github.com/mtegner/mnemo/pkg/chunk"
	"github.com/mtegner/mnemo/pkg/cluster"
	"github.com/mtegner/mnemo/pkg/embed"
	"github.com/mtegner/mnemo/pkg/fetch"
	"github.com/mtegner/mnemo/pkg/index"
	"github.com/mtegner/mnemo/pkg/note"
	"github.com/mtegner/mnemo/pkg/store"
)

const tracerName = "mnemo.memory"

// AddRequest carries the optional source-context attributes of a new note.
type AddRequest struct {
	Content     string `json:"content"`
	FilePath    string `json:"file_path,omitempty"`
	LineNumber  int    `json:"line_number,omitempty"`
	CodeSnippet string `json:"code_snippet,omitempty"`
}

// ClusterInfo summarizes one cluster produced by Organize.
type ClusterInfo struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// ClusterSummary is the result of an Organize pass.
type ClusterSummary struct {
	Notes    int           `json:"notes"`
	Clusters []ClusterInfo `json:"clusters"`
}

// SweepReport is the result of a consistency sweep for one user.
type SweepReport struct {
	// Missing are note ids present in the record store with an embedding
	// but absent from the index.
	Missing []string `json:"missing"`
	// Orphaned are index entries whose record no longer exists.
	Orphaned []string `json:"orphaned"`
	Repaired bool     `json:"repaired"`
}

// Clean reports whether the sweep found the two stores consistent.
func (r *SweepReport) Clean() bool {
	return len(r.Missing) == 0 && len(r.Orphaned) == 0
}

// Service is the memory facade. All operations are scoped to a caller-
// supplied user id and serialized: one operation runs to completion before
// the next starts.
type Service struct {
	store    *store.Store
	index    *index.Index
	embedder embed.Provider
	fetcher  fetch.Fetcher
	logger   zerolog.Logger
	mu       sync.Mutex
}

// Config holds the capabilities a Service composes. Embedder and the two
// stores are required; Fetcher is optional and nil disables URL enrichment.
type Config struct {
	Store    *store.Store
	Index    *index.Index
	Embedder embed.Provider
	Fetcher  fetch.Fetcher
	Logger   zerolog.Logger
}

// New creates the memory service.
func New(cfg Config) (*Service, error) {
	observability.EnsureRegistered()

	if cfg.Store == nil {
		return nil, errors.New("record store is required")
	}
	if cfg.Index == nil {
		return nil, errors.New("vector index is required")
	}
	if cfg.Embedder == nil {
		return nil, errors.New("embedding provider is required")
	}

	s := &Service{
		store:    cfg.Store,
		index:    cfg.Index,
		embedder: cfg.Embedder,
		fetcher:  cfg.Fetcher,
		logger:   cfg.Logger,
	}

	s.logger.Info().Int("dimension", cfg.Embedder.Dimension()).Msg("Memory service initialized")
	return s, nil
}

// Add classifies, enriches, embeds and persists a new note, returning it
// with its assigned id. The record is written first; if the index write
// then fails the record is rolled back and a *PersistenceError is returned,
// so the index never leads the record.
func (s *Service) Add(ctx context.Context, userID string, req AddRequest) (*note.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, span := tracing.StartSpan(ctx, tracerName, "memory.add",
		attribute.String("user_id", userID))
	defer span.End()

	logger := tracing.LoggerFromContext(ctx, s.logger)
	start := time.Now()
	defer func() { observability.RecordMemoryWrite(time.Since(start)) }()

	if userID == "" {
		return nil, errors.New("user id is required")
	}
	if req.Content == "" {
		return nil, errors.New("content is required")
	}

	// Task classification runs on the raw content, before enrichment.
	isTask := note.ClassifyTask(req.Content)

	content, webContext := s.enrich(ctx, req.Content)
	embedText := note.EmbedText(content, req.CodeSnippet, webContext)

	vector, err := s.embedder.GenerateEmbedding(ctx, embedText)
	if err != nil {
		span.SetStatus(codes.Error, "embedding failed")
		return nil, fmt.Errorf("failed to embed note: %w", err)
	}

	n := &note.Note{
		ID:          uuid.New().String(),
		UserID:      userID,
		Content:     content,
		CreatedAt:   time.Now(),
		FilePath:    req.FilePath,
		LineNumber:  req.LineNumber,
		CodeSnippet: req.CodeSnippet,
		WebContext:  webContext,
		IsTask:      isTask,
		Embedding:   vector,
		IndexedText: embedText,
	}

	if err := s.persist(ctx, n, "add"); err != nil {
		span.SetStatus(codes.Error, "persist failed")
		return nil, err
	}

	logger.Info().Str("note_id", n.ID).Bool("is_task", isTask).Msg("Note added")
	s.refreshNoteCount(ctx)
	return n, nil
}

// persist writes the record then its index entry, mirroring the note's
// composed indexed text. On index failure the record is deleted again
// before the error is reported.
func (s *Service) persist(ctx context.Context, n *note.Note, op string) error {
	if err := s.store.Insert(ctx, n); err != nil {
		return &PersistenceError{Stage: "record", Op: op, Err: err}
	}

	if err := s.index.Upsert(ctx, n.ID, n.Embedding, n.IndexedText, n.UserID); err != nil {
		if _, rbErr := s.store.Delete(ctx, n.UserID, n.ID); rbErr != nil {
			s.logger.Error().Str("note_id", n.ID).Err(rbErr).
				Msg("Rollback after index failure also failed; sweep will repair")
		}
		return &PersistenceError{Stage: "index", Op: op, Err: err}
	}
	return nil
}

// Delete removes a note and its index entry. It returns false when no note
// with that id is owned by the caller. A failed index removal is logged and
// tolerated: the record is already gone and the sweep collects the garbage.
func (s *Service) Delete(ctx context.Context, userID, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, span := tracing.StartSpan(ctx, tracerName, "memory.delete",
		attribute.String("user_id", userID), attribute.String("note_id", id))
	defer span.End()

	logger := tracing.LoggerFromContext(ctx, s.logger)
	start := time.Now()
	defer func() { observability.RecordMemoryWrite(time.Since(start)) }()

	deleted, err := s.store.Delete(ctx, userID, id)
	if err != nil {
		span.SetStatus(codes.Error, "record delete failed")
		return false, &PersistenceError{Stage: "record", Op: "delete", Err: err}
	}
	if !deleted {
		return false, nil
	}

	if err := s.index.Remove(ctx, id); err != nil {
		logger.Warn().Str("note_id", id).Err(err).
			Msg("Index removal failed; entry left for consistency sweep")
	}

	logger.Info().Str("note_id", id).Msg("Note deleted")
	s.refreshNoteCount(ctx)
	return true, nil
}

// Update replaces a note's content, recomputing its embedding from the new
// content plus the note's existing code snippet. Prior web context is
// deliberately dropped from the re-embedded text. Returns false when the
// note does not exist for the caller.
func (s *Service) Update(ctx context.Context, userID, id, newContent string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, span := tracing.StartSpan(ctx, tracerName, "memory.update",
		attribute.String("user_id", userID), attribute.String("note_id", id))
	defer span.End()

	logger := tracing.LoggerFromContext(ctx, s.logger)
	start := time.Now()
	defer func() { observability.RecordMemoryWrite(time.Since(start)) }()

	if newContent == "" {
		return false, errors.New("content is required")
	}

	existing, err := s.store.Get(ctx, userID, id)
	if err != nil {
		return false, fmt.Errorf("failed to load note: %w", err)
	}
	if existing == nil {
		return false, nil
	}

	embedText := note.EmbedText(newContent, existing.CodeSnippet, "")
	vector, err := s.embedder.GenerateEmbedding(ctx, embedText)
	if err != nil {
		span.SetStatus(codes.Error, "embedding failed")
		return false, fmt.Errorf("failed to embed note: %w", err)
	}

	updated, err := s.store.UpdateContent(ctx, userID, id, newContent, vector, embedText)
	if err != nil {
		span.SetStatus(codes.Error, "record update failed")
		return false, &PersistenceError{Stage: "record", Op: "update", Err: err}
	}
	if !updated {
		return false, nil
	}

	if err := s.index.Upsert(ctx, id, vector, embedText, userID); err != nil {
		span.SetStatus(codes.Error, "index update failed")
		return false, &PersistenceError{Stage: "index", Op: "update", Err: err}
	}

	logger.Info().Str("note_id", id).Msg("Note updated")
	return true, nil
}

// Search embeds the query and returns up to topK of the caller's notes
// ranked by ascending cosine distance. An empty query or zero matches yield
// an empty slice, never an error.
func (s *Service) Search(ctx context.Context, userID, query string, topK int) ([]index.Hit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, span := tracing.StartSpan(ctx, tracerName, "memory.search",
		attribute.String("user_id", userID), attribute.Int("top_k", topK))
	defer span.End()

	start := time.Now()
	defer func() { observability.RecordMemorySearch(time.Since(start)) }()

	if query == "" {
		return []index.Hit{}, nil
	}
	if topK <= 0 {
		topK = 5
	}

	vector, err := s.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		span.SetStatus(codes.Error, "embedding failed")
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	hits, err := s.index.Query(ctx, vector, userID, topK)
	if err != nil {
		span.SetStatus(codes.Error, "index query failed")
		return nil, fmt.Errorf("search failed: %w", err)
	}
	return hits, nil
}

// MatchContent is the non-semantic fallback query: a substring match over
// stored content, no index involvement.
func (s *Service) MatchContent(ctx context.Context, userID, pattern string) ([]note.Note, error) {
	return s.store.MatchContent(ctx, userID, pattern)
}

// ListAll returns every note of the caller, newest first.
func (s *Service) ListAll(ctx context.Context, userID string) ([]note.Note, error) {
	return s.store.ListByUser(ctx, userID)
}

// ListTasks returns the caller's task-flagged notes, newest first.
func (s *Service) ListTasks(ctx context.Context, userID string) ([]note.Note, error) {
	return s.store.ListTasks(ctx, userID)
}

// ReportSince returns the caller's notes created within the given window,
// newest first.
func (s *Service) ReportSince(ctx context.Context, userID string, window time.Duration) ([]note.Note, error) {
	return s.store.CreatedSince(ctx, userID, time.Now().Add(-window))
}

// IngestDirectory walks root, splits every ingestible file into fixed-size
// chunks and persists each chunk as an independent note. Chunks commit one
// by one: a failure or cancellation partway keeps everything already
// committed. Returns the number of chunks persisted.
func (s *Service) IngestDirectory(ctx context.Context, userID, root string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, span := tracing.StartSpan(ctx, tracerName, "memory.ingest",
		attribute.String("user_id", userID), attribute.String("root", root))
	defer span.End()

	logger := tracing.LoggerFromContext(ctx, s.logger)

	batch, err := gonanoid.New()
	if err != nil {
		return 0, fmt.Errorf("failed to generate batch id: %w", err)
	}

	count := 0
	walkErr := chunk.Walk(root, func(f chunk.File) error {
		for _, c := range chunk.Split(f.Content, chunk.DefaultSize) {
			// Honor cancellation between chunks, never inside one.
			if err := ctx.Err(); err != nil {
				return err
			}

			if err := s.ingestChunk(ctx, userID, batch, f.Path, c); err != nil {
				logger.Warn().Str("file", f.Path).Err(err).Msg("Chunk skipped")
				continue
			}
			count++
		}
		return nil
	})

	observability.RecordIngestedChunks(count)
	s.refreshNoteCount(ctx)

	if walkErr != nil {
		logger.Warn().Str("root", root).Int("chunks", count).Err(walkErr).Msg("Ingestion stopped early")
		return count, walkErr
	}

	logger.Info().Str("root", root).Int("chunks", count).Str("batch", batch).Msg("Directory ingested")
	return count, nil
}

func (s *Service) ingestChunk(ctx context.Context, userID, batch, path, content string) error {
	embedText := note.IngestEmbedText(path, content)
	vector, err := s.embedder.GenerateEmbedding(ctx, embedText)
	if err != nil {
		return fmt.Errorf("failed to embed chunk: %w", err)
	}

	n := &note.Note{
		ID:          uuid.New().String(),
		UserID:      userID,
		Content:     content,
		CreatedAt:   time.Now(),
		FilePath:    path,
		Embedding:   vector,
		IndexedText: embedText,
		IngestBatch: batch,
	}
	return s.persist(ctx, n, "ingest")
}

// Organize clusters the caller's embedded notes into at most four groups
// and overwrites each note's category with the cluster label. Re-running
// without intervening writes reproduces the same assignment.
func (s *Service) Organize(ctx context.Context, userID string) (*ClusterSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, span := tracing.StartSpan(ctx, tracerName, "memory.organize",
		attribute.String("user_id", userID))
	defer span.End()

	logger := tracing.LoggerFromContext(ctx, s.logger)

	notes, err := s.store.ListEmbedded(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded notes: %w", err)
	}

	vectors := make([][]float32, len(notes))
	for i := range notes {
		vectors[i] = notes[i].Embedding
	}

	assignment, k, err := cluster.Assign(vectors)
	if err != nil {
		return nil, err
	}

	members := make([][]string, k)
	for i, c := range assignment {
		members[c] = append(members[c], notes[i].Content)
	}

	labels := make([]string, k)
	summary := &ClusterSummary{Notes: len(notes), Clusters: make([]ClusterInfo, k)}
	for c := 0; c < k; c++ {
		labels[c] = cluster.Label(members[c], c)
		summary.Clusters[c] = ClusterInfo{Label: labels[c], Count: len(members[c])}
	}

	for i, c := range assignment {
		if err := s.store.SetCategory(ctx, notes[i].ID, labels[c]); err != nil {
			span.SetStatus(codes.Error, "category write failed")
			return nil, &PersistenceError{Stage: "record", Op: "organize", Err: err}
		}
	}

	observability.RecordOrganizeRun()
	logger.Info().Int("notes", len(notes)).Int("clusters", k).Msg("Notes organized")
	return summary, nil
}

// SweepConsistency compares the record store and the index for one user and
// reports drift. With repair set, missing index entries are rebuilt from
// stored embeddings and orphaned index entries are removed.
func (s *Service) SweepConsistency(ctx context.Context, userID string, repair bool) (*SweepReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, span := tracing.StartSpan(ctx, tracerName, "memory.sweep",
		attribute.String("user_id", userID), attribute.Bool("repair", repair))
	defer span.End()

	logger := tracing.LoggerFromContext(ctx, s.logger)

	notes, err := s.store.ListEmbedded(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded notes: %w", err)
	}
	indexed, err := s.index.ListIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list index entries: %w", err)
	}

	indexedSet := make(map[string]bool, len(indexed))
	for _, id := range indexed {
		indexedSet[id] = true
	}
	recordSet := make(map[string]*note.Note, len(notes))
	for i := range notes {
		recordSet[notes[i].ID] = &notes[i]
	}

	report := &SweepReport{Missing: []string{}, Orphaned: []string{}}
	for i := range notes {
		if !indexedSet[notes[i].ID] {
			report.Missing = append(report.Missing, notes[i].ID)
		}
	}
	for _, id := range indexed {
		if recordSet[id] == nil {
			report.Orphaned = append(report.Orphaned, id)
		}
	}

	observability.SetSweepOrphans(len(report.Missing) + len(report.Orphaned))

	if repair && !report.Clean() {
		for _, id := range report.Missing {
			n := recordSet[id]
			if err := s.index.Upsert(ctx, n.ID, n.Embedding, indexedText(n), n.UserID); err != nil {
				return report, &PersistenceError{Stage: "index", Op: "sweep", Err: err}
			}
		}
		for _, id := range report.Orphaned {
			if err := s.index.Remove(ctx, id); err != nil {
				return report, &PersistenceError{Stage: "index", Op: "sweep", Err: err}
			}
		}
		report.Repaired = true
	}

	logger.Info().
		Int("missing", len(report.Missing)).
		Int("orphaned", len(report.Orphaned)).
		Bool("repaired", report.Repaired).
		Msg("Consistency sweep finished")
	return report, nil
}

// indexedText returns the exact text a note's stored embedding was computed
// from. Rows written before the text was persisted are recomposed by
// origin: ingested chunks carry the local-file framing, everything else the
// standard composition.
func indexedText(n *note.Note) string {
	if n.IndexedText != "" {
		return n.IndexedText
	}
	if n.IngestBatch != "" {
		return note.IngestEmbedText(n.FilePath, n.Content)
	}
	return note.EmbedText(n.Content, n.CodeSnippet, n.WebContext)
}

// Users returns every user id with at least one note.
func (s *Service) Users(ctx context.Context) ([]string, error) {
	return s.store.Users(ctx)
}

func (s *Service) refreshNoteCount(ctx context.Context) {
	if n, err := s.store.Count(ctx); err == nil {
		observability.SetNoteCount(n)
	}
}
