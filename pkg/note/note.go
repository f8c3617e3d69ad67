package note

import (
	"strings"
	"time"
)

// Note is a single memory record. The record store is the source of truth
// for every field; the vector index only mirrors the embedded text.
type Note struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
	FilePath    string    `json:"file_path,omitempty"`
	LineNumber  int       `json:"line_number,omitempty"`
	CodeSnippet string    `json:"code_snippet,omitempty"`
	WebContext  string    `json:"web_context,omitempty"`
	Category    string    `json:"category,omitempty"`
	IsTask      bool      `json:"is_task"`
	Embedding   []float32 `json:"-"`
	// IndexedText is the exact composed text the stored embedding was
	// computed from. The index mirrors it; repair reuses it verbatim.
	IndexedText string `json:"-"`
	IngestBatch string `json:"ingest_batch,omitempty"`
}

// HasEmbedding reports whether the note carries a stored embedding and is
// therefore expected to have a matching index entry.
func (n *Note) HasEmbedding() bool {
	return len(n.Embedding) > 0
}

// EmbedText composes the exact string submitted to the embedding provider.
// Optional parts are appended only when present, in a fixed order, so the
// same inputs always produce the same embedded text.
func EmbedText(content, codeSnippet, webContext string) string {
	var b strings.Builder
	b.WriteString(content)
	if codeSnippet != "" {
		b.WriteString("\nCode Context: ")
		b.WriteString(codeSnippet)
	}
	if webContext != "" {
		b.WriteString("\nWeb Context: ")
		b.WriteString(webContext)
	}
	return b.String()
}

// IngestEmbedText composes the embedded text for a chunk produced by
// directory ingestion.
func IngestEmbedText(path, chunk string) string {
	return "[Local File Context from " + path + "]\n\n" + chunk
}
