package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/0x99f/dualsync/internal/consistency"
	"github.com/0x99f/dualsync/internal/mapping"
	"github.com/0x99f/dualsync/internal/txn"
)

// ServerOptions contains configuration for the MCP server
type ServerOptions struct {
	Project string // Default project id for tools that accept one
}

// Server wraps an MCP server with the sync and consistency services
type Server struct {
	opts    ServerOptions
	server  *server.MCPServer
	mapping *mapping.Service
	checker *consistency.Checker
	coord   *txn.Coordinator
}

// New returns an MCP server exposing entity sync and consistency tools.
func New(
	svc *mapping.Service,
	checker *consistency.Checker,
	coord *txn.Coordinator,
	opts ServerOptions,
) *Server {
	srv := &Server{
		opts: opts,
		server: server.NewMCPServer(
			"dualsync/mcp",
			"0.1.0",
			server.WithToolCapabilities(true),
		),
		mapping: svc,
		checker: checker,
		coord:   coord,
	}

	// Sync tools
	srv.server.AddTool(newSyncEntityTool(), srv.handleSyncEntity)
	srv.server.AddTool(newSyncProjectTool(), srv.handleSyncProject)
	srv.server.AddTool(newSyncStatsTool(), srv.handleSyncStats)

	// Consistency tools
	srv.server.AddTool(newCheckConsistencyTool(), srv.handleCheckConsistency)
	srv.server.AddTool(newRepairIssueTool(), srv.handleRepairIssue)
	srv.server.AddTool(newRepairAllIssuesTool(), srv.handleRepairAllIssues)
	srv.server.AddTool(newConsistencyStatsTool(), srv.handleConsistencyStats)

	// Transaction tools
	srv.server.AddTool(newTransactionStatsTool(), srv.handleTransactionStats)

	return srv
}

// MCPServer returns the underlying server for transport wiring.
func (srv *Server) MCPServer() *server.MCPServer {
	return srv.server
}

// Tool definitions
func newSyncEntityTool() mcp.Tool {
	return mcp.NewTool(
		"sync_entity",
		mcp.WithDescription("Reconcile a single entity between the vector and graph stores"),
		mcp.WithString("entity_id", mcp.Description("Entity mapping id"), mcp.Required()),
	)
}

func newSyncProjectTool() mcp.Tool {
	return mcp.NewTool(
		"sync_project",
		mcp.WithDescription("Reconcile all unsynced entities of a project"),
		mcp.WithString("project", mcp.Description("Project id (optional, fallback to server config)")),
	)
}

func newSyncStatsTool() mcp.Tool {
	return mcp.NewTool(
		"sync_stats",
		mcp.WithDescription("Show sync status distribution for a project"),
		mcp.WithString("project", mcp.Description("Project id (optional, fallback to server config)")),
	)
}

func newCheckConsistencyTool() mcp.Tool {
	return mcp.NewTool(
		"check_consistency",
		mcp.WithDescription("Scan a project's mappings for consistency issues"),
		mcp.WithString("project", mcp.Description("Project id (optional, fallback to server config)")),
		mcp.WithBoolean(
			"stores",
			mcp.Description("Also verify recorded ids against store contents"),
			mcp.DefaultBool(false),
		),
	)
}

func newRepairIssueTool() mcp.Tool {
	return mcp.NewTool(
		"repair_issue",
		mcp.WithDescription("Repair a previously detected consistency issue"),
		mcp.WithString("issue_id", mcp.Description("Issue id from check_consistency"), mcp.Required()),
		mcp.WithString("strategy", mcp.Description("Repair strategy"), mcp.DefaultString("auto")),
	)
}

func newRepairAllIssuesTool() mcp.Tool {
	return mcp.NewTool(
		"repair_all_issues",
		mcp.WithDescription("Repair every unresolved issue of a project"),
		mcp.WithString("project", mcp.Description("Project id (optional, fallback to server config)")),
	)
}

func newConsistencyStatsTool() mcp.Tool {
	return mcp.NewTool(
		"consistency_stats",
		mcp.WithDescription("Show issue counts and resolution rate for a project"),
		mcp.WithString("project", mcp.Description("Project id (optional, fallback to server config)")),
	)
}

func newTransactionStatsTool() mcp.Tool {
	return mcp.NewTool(
		"transaction_stats",
		mcp.WithDescription("Show transaction coordinator counters"),
	)
}

// Handlers
func (srv *Server) handleSyncEntity(
	ctx context.Context,
	req mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	entityID, err := req.RequireString("entity_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := srv.mapping.SyncEntity(ctx, entityID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultStructuredOnly(res), nil
}

func (srv *Server) handleSyncProject(
	ctx context.Context,
	req mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	project := req.GetString("project", srv.opts.Project)
	if project == "" {
		return mcp.NewToolResultError(
			"project id must be specified (through parameters or server configuration)",
		), nil
	}
	results := srv.mapping.SyncProject(ctx, project)
	return mcp.NewToolResultStructuredOnly(results), nil
}

func (srv *Server) handleSyncStats(
	_ context.Context,
	req mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	project := req.GetString("project", srv.opts.Project)
	if project == "" {
		return mcp.NewToolResultError(
			"project id must be specified (through parameters or server configuration)",
		), nil
	}
	return mcp.NewToolResultStructuredOnly(srv.mapping.GetSyncStats(project)), nil
}

func (srv *Server) handleCheckConsistency(
	ctx context.Context,
	req mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	project := req.GetString("project", srv.opts.Project)
	if project == "" {
		return mcp.NewToolResultError(
			"project id must be specified (through parameters or server configuration)",
		), nil
	}
	report := srv.checker.CheckProjectConsistency(project)
	if req.GetBool("stores", false) {
		storeReport, err := srv.checker.CheckStoreConsistency(ctx, project)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("store scan failed: %v", err)), nil
		}
		report.Issues = append(report.Issues, storeReport.Issues...)
		report.IssuesFound += storeReport.IssuesFound
	}
	return mcp.NewToolResultStructuredOnly(report), nil
}

func (srv *Server) handleRepairIssue(
	ctx context.Context,
	req mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	issueID, err := req.RequireString("issue_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	strategy := req.GetString("strategy", "auto")
	action, err := srv.checker.RepairIssue(ctx, issueID, strategy)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultStructuredOnly(action), nil
}

func (srv *Server) handleRepairAllIssues(
	ctx context.Context,
	req mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	project := req.GetString("project", srv.opts.Project)
	if project == "" {
		return mcp.NewToolResultError(
			"project id must be specified (through parameters or server configuration)",
		), nil
	}
	actions := srv.checker.RepairAllIssues(ctx, project)
	return mcp.NewToolResultStructuredOnly(actions), nil
}

func (srv *Server) handleConsistencyStats(
	_ context.Context,
	req mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	project := req.GetString("project", srv.opts.Project)
	if project == "" {
		return mcp.NewToolResultError(
			"project id must be specified (through parameters or server configuration)",
		), nil
	}
	return mcp.NewToolResultStructuredOnly(srv.checker.GetConsistencyStats(project)), nil
}

func (srv *Server) handleTransactionStats(
	_ context.Context,
	_ mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultStructuredOnly(srv.coord.GetStats()), nil
}
