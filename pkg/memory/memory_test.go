package memory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtegner/mnemo/pkg/embed"
	"github.com/mtegner/mnemo/pkg/fetch"
	"github.com/mtegner/mnemo/pkg/index"
	"github.com/mtegner/mnemo/pkg/note"
	"github.com/mtegner/mnemo/pkg/store"
)

const testDimension = 64

type stubFetcher struct {
	text string
	err  error
}

func (f *stubFetcher) Fetch(ctx context.Context, url string) (string, error) {
	return f.text, f.err
}

func newTestService(t *testing.T, fetcher fetch.Fetcher) *Service {
	t.Helper()
	return newTestServiceWithDimension(t, fetcher, testDimension)
}

func newTestServiceWithDimension(t *testing.T, fetcher fetch.Fetcher, embedDim int) *Service {
	t.Helper()

	db, err := store.Open(filepath.Join(t.TempDir(), "memory.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := zerolog.Nop()
	st, err := store.New(db, logger)
	require.NoError(t, err)
	idx, err := index.New(db, testDimension, logger)
	require.NoError(t, err)

	svc, err := New(Config{
		Store:    st,
		Index:    idx,
		Embedder: embed.NewMock(embedDim),
		Fetcher:  fetcher,
		Logger:   logger,
	})
	require.NoError(t, err)
	return svc
}

func TestNew_RequiresCapabilities(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}

func TestAdd_SearchFindsOwnNote(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	n, err := svc.Add(ctx, "u1", AddRequest{Content: "postgres connection pooling settings"})
	require.NoError(t, err)
	require.NotEmpty(t, n.ID)

	hits, err := svc.Search(ctx, "u1", "postgres connection pooling settings", 3)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, n.ID, hits[0].NoteID)
	assert.InDelta(t, 0.0, hits[0].Distance, 1e-6)

	// Another user's scope never sees it.
	other, err := svc.Search(ctx, "u2", "postgres connection pooling settings", 3)
	require.NoError(t, err)
	for _, h := range other {
		assert.NotEqual(t, n.ID, h.NoteID)
	}
	assert.Empty(t, other)
}

func TestAdd_ClassifiesTaskAndEnriches(t *testing.T) {
	svc := newTestService(t, &stubFetcher{text: "Bug tracker page text"})
	ctx := context.Background()

	n, err := svc.Add(ctx, "u1", AddRequest{Content: "TODO: fix login bug https://example.com/bug"})
	require.NoError(t, err)

	assert.True(t, n.IsTask)
	assert.Contains(t, n.Content, "[Enriched URL Context for https://example.com/bug]:")
	assert.Contains(t, n.Content, "Bug tracker page text")
	assert.Equal(t, "Bug tracker page text", n.WebContext)

	// Persisted content carries the enrichment block, not the raw text alone.
	stored, err := svc.ListAll(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, n.Content, stored[0].Content)
}

func TestAdd_FetchFailureBecomesInlineMarker(t *testing.T) {
	svc := newTestService(t, &stubFetcher{err: errors.New("connection refused")})
	ctx := context.Background()

	n, err := svc.Add(ctx, "u1", AddRequest{Content: "see https://example.com/down for details"})
	require.NoError(t, err, "enrichment failure must not abort note creation")

	assert.Contains(t, n.Content, "[fetch failed:")
	assert.Empty(t, n.WebContext)
}

func TestAdd_NoFetcherSkipsEnrichment(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	n, err := svc.Add(ctx, "u1", AddRequest{Content: "reading https://example.com/post today"})
	require.NoError(t, err)
	assert.Equal(t, "reading https://example.com/post today", n.Content)
}

func TestAdd_IndexFailureRollsBackRecord(t *testing.T) {
	// Embedder dimension disagrees with the index, so every index write fails.
	svc := newTestServiceWithDimension(t, nil, testDimension/2)
	ctx := context.Background()

	_, err := svc.Add(ctx, "u1", AddRequest{Content: "doomed note"})
	require.Error(t, err)

	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "index", pe.Stage)
	assert.Equal(t, "add", pe.Op)

	notes, err := svc.ListAll(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, notes, "record must be rolled back when the index write fails")
}

func TestUpdate_RoundTripRecomputesEmbedding(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	n, err := svc.Add(ctx, "u1", AddRequest{Content: "original text", CodeSnippet: "x := 1"})
	require.NoError(t, err)
	before := n.Embedding

	found, err := svc.Update(ctx, "u1", n.ID, "replacement text")
	require.NoError(t, err)
	require.True(t, found)

	stored, err := svc.ListAll(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "replacement text", stored[0].Content)
	assert.NotEqual(t, before, stored[0].Embedding)

	// The new embedding covers content plus the retained code snippet.
	hits, err := svc.Search(ctx, "u1", note.EmbedText("replacement text", "x := 1", ""), 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.InDelta(t, 0.0, hits[0].Distance, 1e-6)
}

func TestUpdate_NotFound(t *testing.T) {
	svc := newTestService(t, nil)

	found, err := svc.Update(context.Background(), "u1", "missing-id", "anything")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDelete_ScopedToOwner(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	n, err := svc.Add(ctx, "u1", AddRequest{Content: "keep me"})
	require.NoError(t, err)

	// A different caller cannot delete it.
	found, err := svc.Delete(ctx, "u2", n.ID)
	require.NoError(t, err)
	assert.False(t, found)

	notes, err := svc.ListAll(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, notes, 1)

	// The owner can, and the index entry goes with it.
	found, err = svc.Delete(ctx, "u1", n.ID)
	require.NoError(t, err)
	assert.True(t, found)

	hits, err := svc.Search(ctx, "u1", "keep me", 3)
	require.NoError(t, err)
	assert.Empty(t, hits)

	// Double delete is a clean not-found.
	found, err = svc.Delete(ctx, "u1", n.ID)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSearch_EmptyQuery(t *testing.T) {
	svc := newTestService(t, nil)

	hits, err := svc.Search(context.Background(), "u1", "", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestListTasks_EmptyIsExplicit(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.Add(ctx, "u1", AddRequest{Content: "just a thought"})
	require.NoError(t, err)

	result, err := MemoryTasks(ctx, svc, MemoryListParams{UserID: "u1"})
	require.NoError(t, err)
	assert.Zero(t, result.Count)
	assert.Equal(t, "no open tasks", result.Message)

	_, err = svc.Add(ctx, "u1", AddRequest{Content: "meeting with infra team friday"})
	require.NoError(t, err)

	result, err = MemoryTasks(ctx, svc, MemoryListParams{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Count)
	assert.Empty(t, result.Message)
}

func TestReportSince_WindowFilter(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.Add(ctx, "u1", AddRequest{Content: "fresh note"})
	require.NoError(t, err)

	notes, err := svc.ReportSince(ctx, "u1", time.Hour)
	require.NoError(t, err)
	require.Len(t, notes, 1)

	notes, err = svc.ReportSince(ctx, "u1", time.Nanosecond)
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestOrganize_InsufficientData(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := svc.Add(ctx, "u1", AddRequest{Content: fmt.Sprintf("note %d about databases", i)})
		require.NoError(t, err)
	}

	_, err := svc.Organize(ctx, "u1")
	require.ErrorIs(t, err, ErrInsufficientData)
}

func TestOrganize_LabelsAndIdempotence(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	contents := []string{
		"database migration plan for the orders schema",
		"database migration rollback checklist",
		"kubernetes ingress routing for staging",
		"kubernetes ingress certificates renewal",
		"quarterly budget spreadsheet review",
	}
	for _, c := range contents {
		_, err := svc.Add(ctx, "u1", AddRequest{Content: c})
		require.NoError(t, err)
	}

	summary, err := svc.Organize(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, len(contents), summary.Notes)
	assert.Len(t, summary.Clusters, 4)

	categories := func() map[string]string {
		notes, err := svc.ListAll(ctx, "u1")
		require.NoError(t, err)
		out := make(map[string]string, len(notes))
		for _, n := range notes {
			require.NotEmpty(t, n.Category)
			out[n.ID] = n.Category
		}
		return out
	}

	first := categories()

	// Re-running without intervening writes reproduces the assignment.
	_, err = svc.Organize(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, first, categories())
}

func TestIngestDirectory(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	root := t.TempDir()
	big := strings.Repeat("a", 2000) + strings.Repeat("b", 2000) + strings.Repeat("c", 500)
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.md"), []byte(big), 0o644))

	// Dependency caches are never ingested.
	depDir := filepath.Join(root, "node_modules")
	require.NoError(t, os.Mkdir(depDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(depDir, "pkg.js"), []byte("ignored"), 0o644))

	count, err := svc.IngestDirectory(ctx, "u1", root)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	notes, err := svc.ListAll(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, notes, 3)

	batch := notes[0].IngestBatch
	require.NotEmpty(t, batch)
	lengths := map[int]int{}
	for _, n := range notes {
		assert.Equal(t, batch, n.IngestBatch)
		assert.Contains(t, n.FilePath, "notes.md")
		lengths[len(n.Content)]++
	}
	assert.Equal(t, map[int]int{2000: 2, 500: 1}, lengths)

	// Chunks are individually searchable under the ingestion embed text.
	hits, err := svc.Search(ctx, "u1", note.IngestEmbedText(notes[0].FilePath, notes[0].Content), 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
}

func TestIngestDirectory_CancelBetweenChunks(t *testing.T) {
	svc := newTestService(t, nil)

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	count, err := svc.IngestDirectory(ctx, "u1", root)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, count)
}

func TestSweepConsistency(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		n, err := svc.Add(ctx, "u1", AddRequest{Content: fmt.Sprintf("note number %d", i)})
		require.NoError(t, err)
		ids = append(ids, n.ID)
	}

	report, err := svc.SweepConsistency(ctx, "u1", false)
	require.NoError(t, err)
	assert.True(t, report.Clean())

	// Drop one index entry behind the facade's back.
	require.NoError(t, svc.index.Remove(ctx, ids[1]))

	report, err = svc.SweepConsistency(ctx, "u1", false)
	require.NoError(t, err)
	assert.Equal(t, []string{ids[1]}, report.Missing)
	assert.Empty(t, report.Orphaned)
	assert.False(t, report.Repaired)

	// Repair rebuilds the entry from the stored embedding.
	report, err = svc.SweepConsistency(ctx, "u1", true)
	require.NoError(t, err)
	assert.True(t, report.Repaired)

	report, err = svc.SweepConsistency(ctx, "u1", false)
	require.NoError(t, err)
	assert.True(t, report.Clean())

	hits, err := svc.Search(ctx, "u1", "note number 1", 3)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, ids[1], hits[0].NoteID)
}

func TestSweepConsistency_RepairKeepsIngestFraming(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello chunk"), 0o644))

	count, err := svc.IngestDirectory(ctx, "u1", root)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	notes, err := svc.ListAll(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	chunkNote := notes[0]

	require.NoError(t, svc.index.Remove(ctx, chunkNote.ID))

	report, err := svc.SweepConsistency(ctx, "u1", true)
	require.NoError(t, err)
	require.True(t, report.Repaired)

	// The rebuilt entry carries the original file framing, not the bare
	// chunk content.
	hits, err := svc.Search(ctx, "u1", note.IngestEmbedText(chunkNote.FilePath, "hello chunk"), 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, chunkNote.ID, hits[0].NoteID)
	assert.Equal(t, note.IngestEmbedText(chunkNote.FilePath, "hello chunk"), hits[0].Text)
}

func TestSweepConsistency_RepairAfterUpdateDropsWebContext(t *testing.T) {
	svc := newTestService(t, &stubFetcher{text: "stale page text"})
	ctx := context.Background()

	n, err := svc.Add(ctx, "u1", AddRequest{
		Content:     "see https://example.com/doc",
		CodeSnippet: "x := 1",
	})
	require.NoError(t, err)
	require.Equal(t, "stale page text", n.WebContext)

	found, err := svc.Update(ctx, "u1", n.ID, "rewritten entirely")
	require.NoError(t, err)
	require.True(t, found)

	require.NoError(t, svc.index.Remove(ctx, n.ID))

	report, err := svc.SweepConsistency(ctx, "u1", true)
	require.NoError(t, err)
	require.True(t, report.Repaired)

	// Updates drop the enrichment from the embedded text; repair must not
	// sneak it back in.
	want := note.EmbedText("rewritten entirely", "x := 1", "")
	hits, err := svc.Search(ctx, "u1", want, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, n.ID, hits[0].NoteID)
	assert.Equal(t, want, hits[0].Text)
	assert.NotContains(t, hits[0].Text, "Web Context")
}

func TestSweepConsistency_RemovesOrphans(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	vec := make([]float32, testDimension)
	require.NoError(t, svc.index.Upsert(ctx, "ghost-id", vec, "ghost", "u1"))

	report, err := svc.SweepConsistency(ctx, "u1", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"ghost-id"}, report.Orphaned)
	assert.True(t, report.Repaired)

	report, err = svc.SweepConsistency(ctx, "u1", false)
	require.NoError(t, err)
	assert.True(t, report.Clean())
}

func TestUsers(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	for _, u := range []string{"u2", "u1", "u1"} {
		_, err := svc.Add(ctx, u, AddRequest{Content: "note for " + u})
		require.NoError(t, err)
	}

	users, err := svc.Users(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, users)
}
