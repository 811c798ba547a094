package mcpfx

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/fx"

	"github.com/0x99f/dualsync/internal/config/configfx"
	"github.com/0x99f/dualsync/internal/consistency"
	"github.com/0x99f/dualsync/internal/mapping"
	appmcp "github.com/0x99f/dualsync/internal/mcp"
	"github.com/0x99f/dualsync/internal/txn"
)

// Params represents dependencies for MCP server
type Params struct {
	fx.In

	Mapping     *mapping.Service
	Checker     *consistency.Checker
	Coordinator *txn.Coordinator
	Config      *configfx.Config
}

// NewMCPServer creates a new MCP server instance
func NewMCPServer(params Params) *server.MCPServer {
	srv := appmcp.New(params.Mapping, params.Checker, params.Coordinator, appmcp.ServerOptions{
		Project: params.Config.Project,
	})
	return srv.MCPServer()
}

// Lifecycle manages MCP server lifecycle
type Lifecycle struct {
	mapping *mapping.Service
	config  *configfx.Config
	log     *slog.Logger
}

// NewLifecycle creates a new MCP lifecycle manager
func NewLifecycle(
	svc *mapping.Service,
	config *configfx.Config,
	log *slog.Logger,
) *Lifecycle {
	return &Lifecycle{mapping: svc, config: config, log: log}
}

// Start reconciles the configured project before serving requests.
func (m *Lifecycle) Start(ctx context.Context) error {
	if m.config.Project != "" {
		results := m.mapping.SyncProject(ctx, m.config.Project)
		failed := 0
		for _, r := range results {
			if !r.Success {
				failed++
			}
		}
		m.log.Info("startup sync completed",
			"project", m.config.Project,
			"entities", len(results),
			"failed", failed)
	}
	return nil
}

// Stop handles graceful shutdown
func (m *Lifecycle) Stop(ctx context.Context) error {
	// MCP server cleanup is handled by the framework
	return nil
}

// Module provides MCP server components
var Module = fx.Module("mcp",
	fx.Provide(
		NewMCPServer,
		NewLifecycle,
	),
)
