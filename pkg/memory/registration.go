package memory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mtegner/mnemo/pkg/toolexecutor"
)

// ToolExecutor interface for registering tools
// This avoids circular dependency with pkg/toolexecutor
type ToolExecutor interface {
	RegisterTool(def toolexecutor.ToolDefinition) error
}

func decodeParams(params map[string]interface{}, out interface{}) error {
	jsonData, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to marshal params: %w", err)
	}
	if err := json.Unmarshal(jsonData, out); err != nil {
		return fmt.Errorf("failed to unmarshal params: %w", err)
	}
	return nil
}

var userParam = toolexecutor.ToolParameter{
	Name:        "user_id",
	Type:        "string",
	Description: "Owner of the notes; every operation is scoped to this user",
	Required:    true,
}

// RegisterMemoryTools registers all memory tools with the tool executor.
// Callers resolve user_id before invoking a tool; the service never
// authenticates.
func RegisterMemoryTools(executor ToolExecutor, svc *Service) error {
	tools := []toolexecutor.ToolDefinition{
		{
			Name:        "memory_add",
			Description: "Store a new note, with optional source context attributes",
			Parameters: []toolexecutor.ToolParameter{
				userParam,
				{
					Name:        "content",
					Type:        "string",
					Description: "Note text; a contained URL is fetched and appended as context",
					Required:    true,
				},
				{
					Name:        "file_path",
					Type:        "string",
					Description: "Source file the note refers to",
					Required:    false,
				},
				{
					Name:        "line_number",
					Type:        "integer",
					Description: "Line in the source file",
					Required:    false,
				},
				{
					Name:        "code_snippet",
					Type:        "string",
					Description: "Code excerpt embedded alongside the note text",
					Required:    false,
				},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				var addParams MemoryAddParams
				if err := decodeParams(params, &addParams); err != nil {
					return nil, err
				}
				return MemoryAdd(ctx, svc, addParams)
			},
		},
		{
			Name:        "memory_search",
			Description: "Search a user's notes by semantic similarity",
			Parameters: []toolexecutor.ToolParameter{
				userParam,
				{
					Name:        "query",
					Type:        "string",
					Description: "Search query",
					Required:    true,
				},
				{
					Name:        "top_k",
					Type:        "integer",
					Description: "Maximum number of results to return",
					Required:    false,
					Default:     5,
				},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				var searchParams MemorySearchParams
				if err := decodeParams(params, &searchParams); err != nil {
					return nil, err
				}
				return MemorySearch(ctx, svc, searchParams)
			},
		},
		{
			Name:        "memory_update",
			Description: "Replace a note's content and recompute its embedding",
			Parameters: []toolexecutor.ToolParameter{
				userParam,
				{
					Name:        "id",
					Type:        "string",
					Description: "Note id",
					Required:    true,
				},
				{
					Name:        "content",
					Type:        "string",
					Description: "Replacement text",
					Required:    true,
				},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				var updateParams MemoryUpdateParams
				if err := decodeParams(params, &updateParams); err != nil {
					return nil, err
				}
				return MemoryUpdate(ctx, svc, updateParams)
			},
		},
		{
			Name:        "memory_delete",
			Description: "Delete a note and its index entry",
			Parameters: []toolexecutor.ToolParameter{
				userParam,
				{
					Name:        "id",
					Type:        "string",
					Description: "Note id",
					Required:    true,
				},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				var deleteParams MemoryDeleteParams
				if err := decodeParams(params, &deleteParams); err != nil {
					return nil, err
				}
				return MemoryDelete(ctx, svc, deleteParams)
			},
		},
		{
			Name:        "memory_list",
			Description: "List all of a user's notes, newest first",
			Parameters:  []toolexecutor.ToolParameter{userParam},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				var listParams MemoryListParams
				if err := decodeParams(params, &listParams); err != nil {
					return nil, err
				}
				return MemoryList(ctx, svc, listParams)
			},
		},
		{
			Name:        "memory_tasks",
			Description: "List a user's task-flagged notes",
			Parameters:  []toolexecutor.ToolParameter{userParam},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				var listParams MemoryListParams
				if err := decodeParams(params, &listParams); err != nil {
					return nil, err
				}
				return MemoryTasks(ctx, svc, listParams)
			},
		},
		{
			Name:        "memory_report",
			Description: "List notes created within the trailing time window",
			Parameters: []toolexecutor.ToolParameter{
				userParam,
				{
					Name:        "hours",
					Type:        "integer",
					Description: "Window size in hours",
					Required:    false,
					Default:     24,
				},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				var reportParams MemoryReportParams
				if err := decodeParams(params, &reportParams); err != nil {
					return nil, err
				}
				return MemoryReport(ctx, svc, reportParams)
			},
		},
		{
			Name:        "memory_ingest",
			Description: "Ingest a local directory tree as note chunks",
			Parameters: []toolexecutor.ToolParameter{
				userParam,
				{
					Name:        "path",
					Type:        "string",
					Description: "Directory to walk",
					Required:    true,
				},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				var ingestParams MemoryIngestParams
				if err := decodeParams(params, &ingestParams); err != nil {
					return nil, err
				}
				return MemoryIngest(ctx, svc, ingestParams)
			},
		},
		{
			Name:        "memory_organize",
			Description: "Cluster a user's notes into labeled topical categories",
			Parameters:  []toolexecutor.ToolParameter{userParam},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				var organizeParams MemoryOrganizeParams
				if err := decodeParams(params, &organizeParams); err != nil {
					return nil, err
				}
				return MemoryOrganize(ctx, svc, organizeParams)
			},
		},
		{
			Name:        "memory_sweep",
			Description: "Check record/index consistency for a user, optionally repairing drift",
			Parameters: []toolexecutor.ToolParameter{
				userParam,
				{
					Name:        "repair",
					Type:        "boolean",
					Description: "Rebuild missing index entries and drop orphans",
					Required:    false,
					Default:     false,
				},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				var sweepParams MemorySweepParams
				if err := decodeParams(params, &sweepParams); err != nil {
					return nil, err
				}
				return MemorySweep(ctx, svc, sweepParams)
			},
		},
	}

	for _, tool := range tools {
		if err := executor.RegisterTool(tool); err != nil {
			return fmt.Errorf("failed to register tool %s: %w", tool.Name, err)
		}
	}

	svc.logger.Info().Int("tools", len(tools)).Msg("Memory tools registered")
	return nil
}
