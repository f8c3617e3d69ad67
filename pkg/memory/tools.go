package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/mtegner/mnemo/pkg/index"
	"github.com/mtegner/mnemo/pkg/note"
)

// MemoryAddParams defines parameters for the memory_add tool
type MemoryAddParams struct {
	UserID      string `json:"user_id"`
	Content     string `json:"content"`
	FilePath    string `json:"file_path,omitempty"`
	LineNumber  int    `json:"line_number,omitempty"`
	CodeSnippet string `json:"code_snippet,omitempty"`
}

// MemoryAddResult represents the result of adding a note
type MemoryAddResult struct {
	ID     string `json:"id"`
	IsTask bool   `json:"is_task"`
}

// MemoryAdd stores a new note for a user
func MemoryAdd(ctx context.Context, svc *Service, params MemoryAddParams) (*MemoryAddResult, error) {
	if params.UserID == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	if params.Content == "" {
		return nil, fmt.Errorf("content is required")
	}

	n, err := svc.Add(ctx, params.UserID, AddRequest{
		Content:     params.Content,
		FilePath:    params.FilePath,
		LineNumber:  params.LineNumber,
		CodeSnippet: params.CodeSnippet,
	})
	if err != nil {
		return nil, err
	}

	return &MemoryAddResult{ID: n.ID, IsTask: n.IsTask}, nil
}

// MemorySearchParams defines parameters for the memory_search tool
type MemorySearchParams struct {
	UserID string `json:"user_id"`
	Query  string `json:"query"`
	TopK   int    `json:"top_k,omitempty"`
}

// MemorySearchResult represents the result of a memory search
type MemorySearchResult struct {
	Results []index.Hit `json:"results"`
	Query   string      `json:"query"`
	Count   int         `json:"count"`
}

// MemorySearch searches a user's notes by semantic similarity
func MemorySearch(ctx context.Context, svc *Service, params MemorySearchParams) (*MemorySearchResult, error) {
	if params.UserID == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	if params.Query == "" {
		return nil, fmt.Errorf("query is required")
	}
	if params.TopK == 0 {
		params.TopK = 5
	}

	hits, err := svc.Search(ctx, params.UserID, params.Query, params.TopK)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	return &MemorySearchResult{Results: hits, Query: params.Query, Count: len(hits)}, nil
}

// MemoryUpdateParams defines parameters for the memory_update tool
type MemoryUpdateParams struct {
	UserID  string `json:"user_id"`
	ID      string `json:"id"`
	Content string `json:"content"`
}

// MemoryMutationResult reports whether a targeted note was found and changed
type MemoryMutationResult struct {
	ID    string `json:"id"`
	Found bool   `json:"found"`
}

// MemoryUpdate replaces a note's content and re-embeds it
func MemoryUpdate(ctx context.Context, svc *Service, params MemoryUpdateParams) (*MemoryMutationResult, error) {
	if params.UserID == "" || params.ID == "" {
		return nil, fmt.Errorf("user_id and id are required")
	}

	found, err := svc.Update(ctx, params.UserID, params.ID, params.Content)
	if err != nil {
		return nil, err
	}
	return &MemoryMutationResult{ID: params.ID, Found: found}, nil
}

// MemoryDeleteParams defines parameters for the memory_delete tool
type MemoryDeleteParams struct {
	UserID string `json:"user_id"`
	ID     string `json:"id"`
}

// MemoryDelete removes a note and its index entry
func MemoryDelete(ctx context.Context, svc *Service, params MemoryDeleteParams) (*MemoryMutationResult, error) {
	if params.UserID == "" || params.ID == "" {
		return nil, fmt.Errorf("user_id and id are required")
	}

	found, err := svc.Delete(ctx, params.UserID, params.ID)
	if err != nil {
		return nil, err
	}
	return &MemoryMutationResult{ID: params.ID, Found: found}, nil
}

// MemoryListParams defines parameters for the memory_list and memory_tasks tools
type MemoryListParams struct {
	UserID string `json:"user_id"`
}

// MemoryListResult carries a set of notes plus an explicit message for the
// empty case
type MemoryListResult struct {
	Notes   []note.Note `json:"notes"`
	Count   int         `json:"count"`
	Message string      `json:"message,omitempty"`
}

// MemoryList returns all of a user's notes, newest first
func MemoryList(ctx context.Context, svc *Service, params MemoryListParams) (*MemoryListResult, error) {
	if params.UserID == "" {
		return nil, fmt.Errorf("user_id is required")
	}

	notes, err := svc.ListAll(ctx, params.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}

	result := &MemoryListResult{Notes: notes, Count: len(notes)}
	if len(notes) == 0 {
		result.Message = "no notes found"
	}
	return result, nil
}

// MemoryTasks returns a user's task-flagged notes
func MemoryTasks(ctx context.Context, svc *Service, params MemoryListParams) (*MemoryListResult, error) {
	if params.UserID == "" {
		return nil, fmt.Errorf("user_id is required")
	}

	notes, err := svc.ListTasks(ctx, params.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	result := &MemoryListResult{Notes: notes, Count: len(notes)}
	if len(notes) == 0 {
		result.Message = "no open tasks"
	}
	return result, nil
}

// MemoryReportParams defines parameters for the memory_report tool
type MemoryReportParams struct {
	UserID string `json:"user_id"`
	Hours  int    `json:"hours,omitempty"`
}

// MemoryReport returns the notes created within the trailing window
func MemoryReport(ctx context.Context, svc *Service, params MemoryReportParams) (*MemoryListResult, error) {
	if params.UserID == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	if params.Hours <= 0 {
		params.Hours = 24
	}

	notes, err := svc.ReportSince(ctx, params.UserID, time.Duration(params.Hours)*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("failed to build report: %w", err)
	}

	result := &MemoryListResult{Notes: notes, Count: len(notes)}
	if len(notes) == 0 {
		result.Message = fmt.Sprintf("no notes in the last %d hours", params.Hours)
	}
	return result, nil
}

// MemoryIngestParams defines parameters for the memory_ingest tool
type MemoryIngestParams struct {
	UserID string `json:"user_id"`
	Path   string `json:"path"`
}

// MemoryIngestResult reports how many chunks a directory walk persisted
type MemoryIngestResult struct {
	Path   string `json:"path"`
	Chunks int    `json:"chunks"`
}

// MemoryIngest walks a directory and persists its files as note chunks
func MemoryIngest(ctx context.Context, svc *Service, params MemoryIngestParams) (*MemoryIngestResult, error) {
	if params.UserID == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	if params.Path == "" {
		return nil, fmt.Errorf("path is required")
	}

	count, err := svc.IngestDirectory(ctx, params.UserID, params.Path)
	if err != nil {
		return nil, fmt.Errorf("ingestion failed after %d chunks: %w", count, err)
	}
	return &MemoryIngestResult{Path: params.Path, Chunks: count}, nil
}

// MemoryOrganizeParams defines parameters for the memory_organize tool
type MemoryOrganizeParams struct {
	UserID string `json:"user_id"`
}

// MemoryOrganize clusters a user's notes into labeled categories
func MemoryOrganize(ctx context.Context, svc *Service, params MemoryOrganizeParams) (*ClusterSummary, error) {
	if params.UserID == "" {
		return nil, fmt.Errorf("user_id is required")
	}

	summary, err := svc.Organize(ctx, params.UserID)
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// MemorySweepParams defines parameters for the memory_sweep tool
type MemorySweepParams struct {
	UserID string `json:"user_id"`
	Repair bool   `json:"repair,omitempty"`
}

// MemorySweep checks record/index consistency for a user
func MemorySweep(ctx context.Context, svc *Service, params MemorySweepParams) (*SweepReport, error) {
	if params.UserID == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	return svc.SweepConsistency(ctx, params.UserID, params.Repair)
}
