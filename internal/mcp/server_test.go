package mcp

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0x99f/dualsync/internal/consistency"
	"github.com/0x99f/dualsync/internal/mapping"
	"github.com/0x99f/dualsync/internal/models"
	"github.com/0x99f/dualsync/internal/registry"
	"github.com/0x99f/dualsync/internal/storage/memory"
	"github.com/0x99f/dualsync/internal/txn"
)

func newTestServer(t *testing.T, opts ServerOptions) *Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := registry.New()
	vec := memory.NewVectorStore()
	graph := memory.NewGraphStore()
	coord := txn.NewCoordinator(vec, graph, reg, log)
	svc := mapping.NewService(reg, coord, log)
	checker := consistency.NewChecker(reg, vec, graph, log)
	return New(svc, checker, coord, opts)
}

func TestNew(t *testing.T) {
	srv := newTestServer(t, ServerOptions{})
	assert.NotNil(t, srv)
	assert.NotNil(t, srv.MCPServer())
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		name     string
		toolFunc func() mcp.Tool
		toolName string
	}{
		{"sync_entity", newSyncEntityTool, "sync_entity"},
		{"sync_project", newSyncProjectTool, "sync_project"},
		{"sync_stats", newSyncStatsTool, "sync_stats"},
		{"check_consistency", newCheckConsistencyTool, "check_consistency"},
		{"repair_issue", newRepairIssueTool, "repair_issue"},
		{"repair_all_issues", newRepairAllIssuesTool, "repair_all_issues"},
		{"consistency_stats", newConsistencyStatsTool, "consistency_stats"},
		{"transaction_stats", newTransactionStatsTool, "transaction_stats"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tool := tt.toolFunc()
			assert.Equal(t, tt.toolName, tool.Name)
			assert.NotEmpty(t, tool.Description)
		})
	}
}

func TestSyncEntityTool(t *testing.T) {
	tool := newSyncEntityTool()
	assert.Equal(t, "sync_entity", tool.Name)

	// check required params
	assert.Contains(t, tool.InputSchema.Properties, "entity_id")
	idProp := tool.InputSchema.Properties["entity_id"].(map[string]interface{})
	assert.Equal(t, "string", idProp["type"])
}

func TestHandleSyncEntityError(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t, ServerOptions{})

	// test missing required params
	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      "sync_entity",
			Arguments: map[string]any{},
		},
	}

	result, err := srv.handleSyncEntity(ctx, req)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.NotEmpty(t, result.Content)
}

func TestHandleSyncProjectRequiresProject(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t, ServerOptions{})

	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      "sync_project",
			Arguments: map[string]any{},
		},
	}

	result, err := srv.handleSyncProject(ctx, req)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleSyncProjectUsesDefault(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t, ServerOptions{Project: "proj-1"})

	data := models.ChunkData{Content: "func main() {}"}
	_, err := srv.mapping.CreateEntity(ctx, models.EntityFunction, "proj-1", &data, nil)
	require.NoError(t, err)

	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      "sync_project",
			Arguments: map[string]any{},
		},
	}

	result, err := srv.handleSyncProject(ctx, req)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	results := result.StructuredContent.([]models.SyncResult)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
}

func TestHandleSyncStats(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t, ServerOptions{})

	data := models.ChunkData{Content: "class Foo {}"}
	_, err := srv.mapping.CreateEntity(ctx, models.EntityClass, "proj-1", &data, &data)
	require.NoError(t, err)

	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      "sync_stats",
			Arguments: map[string]any{"project": "proj-1"},
		},
	}

	result, err := srv.handleSyncStats(ctx, req)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	stats := result.StructuredContent.(models.SyncStats)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Synced)
}

func TestHandleCheckConsistency(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t, ServerOptions{})

	data := models.ChunkData{Content: "func f() {}"}
	_, err := srv.mapping.CreateEntity(ctx, models.EntityFunction, "proj-1", &data, nil)
	require.NoError(t, err)

	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      "check_consistency",
			Arguments: map[string]any{"project": "proj-1"},
		},
	}

	result, err := srv.handleCheckConsistency(ctx, req)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	report := result.StructuredContent.(models.ConsistencyReport)
	assert.Equal(t, 1, report.IssuesFound)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, models.IssueMissingGraph, report.Issues[0].Type)
}

func TestHandleRepairIssueError(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t, ServerOptions{})

	// unknown issue id
	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      "repair_issue",
			Arguments: map[string]any{"issue_id": "nope"},
		},
	}

	result, err := srv.handleRepairIssue(ctx, req)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleRepairAllIssues(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t, ServerOptions{})

	data := models.ChunkData{Content: "func g() {}"}
	_, err := srv.mapping.CreateEntity(ctx, models.EntityFunction, "proj-1", nil, &data)
	require.NoError(t, err)
	srv.checker.CheckProjectConsistency("proj-1")

	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      "repair_all_issues",
			Arguments: map[string]any{"project": "proj-1"},
		},
	}

	result, err := srv.handleRepairAllIssues(ctx, req)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	actions := result.StructuredContent.([]models.RepairAction)
	require.Len(t, actions, 1)
	assert.True(t, actions[0].Success)
}

func TestHandleConsistencyStats(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t, ServerOptions{Project: "proj-1"})

	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      "consistency_stats",
			Arguments: map[string]any{},
		},
	}

	result, err := srv.handleConsistencyStats(ctx, req)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	stats := result.StructuredContent.(models.ConsistencyStats)
	assert.Zero(t, stats.TotalIssues)
}

func TestHandleTransactionStats(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t, ServerOptions{})

	data := models.ChunkData{Content: "func h() {}"}
	_, err := srv.mapping.CreateEntity(ctx, models.EntityFunction, "proj-1", &data, &data)
	require.NoError(t, err)

	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      "transaction_stats",
			Arguments: map[string]any{},
		},
	}

	result, err := srv.handleTransactionStats(ctx, req)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	stats := result.StructuredContent.(txn.Stats)
	assert.Equal(t, 1.0, stats.RecentSuccessRate)
}

func TestHandleSyncEntityNotFound(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t, ServerOptions{})

	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      "sync_entity",
			Arguments: map[string]any{"entity_id": "missing"},
		},
	}

	result, err := srv.handleSyncEntity(ctx, req)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}
