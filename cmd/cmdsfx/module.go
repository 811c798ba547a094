package cmdsfx

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/fx"

	"github.com/0x99f/dualsync/internal/config/configfx"
	"github.com/0x99f/dualsync/internal/consistency"
	"github.com/0x99f/dualsync/internal/mapping"
	"github.com/0x99f/dualsync/internal/txn"
)

// CommandRunner provides methods to run different application commands
type CommandRunner struct {
	config      *configfx.Config
	mapping     *mapping.Service
	checker     *consistency.Checker
	coordinator *txn.Coordinator
	mcpServer   *server.MCPServer
}

// Params represents dependencies for command runner
type Params struct {
	fx.In

	Config      *configfx.Config
	Mapping     *mapping.Service     `optional:"true"`
	Checker     *consistency.Checker `optional:"true"`
	Coordinator *txn.Coordinator     `optional:"true"`
	MCPServer   *server.MCPServer    `optional:"true"`
}

// NewCommandRunner creates a new command runner
func NewCommandRunner(params Params) *CommandRunner {
	return &CommandRunner{
		config:      params.Config,
		mapping:     params.Mapping,
		checker:     params.Checker,
		coordinator: params.Coordinator,
		mcpServer:   params.MCPServer,
	}
}

// projectOrDefault resolves the project argument against the configured default.
func (r *CommandRunner) projectOrDefault(project string) (string, error) {
	if project != "" {
		return project, nil
	}
	if r.config.Project != "" {
		return r.config.Project, nil
	}
	return "", fmt.Errorf("project id required (flag or configuration)")
}

// RunCheck scans a project for consistency issues and optionally repairs them.
func (r *CommandRunner) RunCheck(ctx context.Context, project string, repair bool) error {
	if r.checker == nil {
		return fmt.Errorf("consistency checker not available")
	}
	proj, err := r.projectOrDefault(project)
	if err != nil {
		return err
	}

	report := r.checker.CheckProjectConsistency(proj)
	fmt.Printf("checked %d entities in %s: %d issue(s)\n",
		report.TotalEntities, report.Duration, report.IssuesFound)
	for _, iss := range report.Issues {
		fmt.Printf("  [%s] %s entity=%s: %s\n",
			iss.Severity, iss.Type, iss.EntityID, iss.Description)
	}

	if !repair || report.IssuesFound == 0 {
		return nil
	}

	actions := r.checker.RepairAllIssues(ctx, proj)
	repaired := 0
	for _, a := range actions {
		if a.Success {
			repaired++
		} else {
			fmt.Printf("  repair failed issue=%s: %s\n", a.IssueID, a.Message)
		}
	}
	fmt.Printf("repaired %d/%d issue(s)\n", repaired, len(actions))
	return nil
}

// RunSync reconciles every unsynced entity of a project.
func (r *CommandRunner) RunSync(ctx context.Context, project string) error {
	if r.mapping == nil {
		return fmt.Errorf("mapping service not available")
	}
	proj, err := r.projectOrDefault(project)
	if err != nil {
		return err
	}

	results := r.mapping.SyncProject(ctx, proj)
	failed := 0
	for _, res := range results {
		if res.Success {
			fmt.Printf("synced %s (%s)\n", res.EntityID, res.Duration)
			continue
		}
		failed++
		fmt.Printf("failed %s: %s\n", res.EntityID, res.Error)
	}
	fmt.Printf("sync completed: %d ok, %d failed\n", len(results)-failed, failed)
	if failed > 0 {
		return fmt.Errorf("%d entities failed to sync", failed)
	}
	return nil
}

// RunStats prints sync, consistency and transaction statistics.
func (r *CommandRunner) RunStats(project string) error {
	if r.mapping == nil || r.checker == nil || r.coordinator == nil {
		return fmt.Errorf("services not available")
	}
	proj, err := r.projectOrDefault(project)
	if err != nil {
		return err
	}

	sync := r.mapping.GetSyncStats(proj)
	fmt.Printf("entities: %d (synced %d, vector-only %d, graph-only %d, conflicts %d)\n",
		sync.Total, sync.Synced, sync.VectorOnly, sync.GraphOnly, sync.Conflicts)

	cons := r.checker.GetConsistencyStats(proj)
	fmt.Printf("issues: %d (resolved %d, unresolved %d, resolution rate %.0f%%)\n",
		cons.TotalIssues, cons.ResolvedIssues, cons.UnresolvedIssues, cons.ResolutionRate*100)

	tx := r.coordinator.GetStats()
	fmt.Printf("transactions: %d active, %.0f%% recent success, avg %s\n",
		tx.ActiveTransactions, tx.RecentSuccessRate*100, tx.AverageTransactionTime)
	return nil
}

// RunMCPServer executes the MCP server
func (r *CommandRunner) RunMCPServer(transport, address string) error {
	if r.mcpServer == nil {
		return fmt.Errorf("MCP server not available")
	}

	switch transport {
	case "stdio":
		return server.ServeStdio(r.mcpServer)
	case "http":
		// Streamable HTTP server on address, default ":8080" if empty
		addr := address
		if addr == "" {
			addr = ":8080"
		}
		httpSrv := server.NewStreamableHTTPServer(r.mcpServer)
		return httpSrv.Start(addr)
	case "sse":
		// SSE server exposes two endpoints; default base path "/mcp"
		addr := address
		if addr == "" {
			addr = ":8080"
		}
		sseSrv := server.NewSSEServer(r.mcpServer,
			server.WithBaseURL(""),
			server.WithStaticBasePath("/mcp"),
		)
		return sseSrv.Start(addr)
	default:
		return fmt.Errorf(
			"unsupported transport: %s (supported: stdio, http, sse)",
			transport,
		)
	}
}

// Module provides command runner
var Module = fx.Module("commands",
	fx.Provide(NewCommandRunner),
)
