package appfx

import (
	"log/slog"
	"os"

	"go.uber.org/fx"

	"github.com/0x99f/dualsync/cmd/cmdsfx"
	"github.com/0x99f/dualsync/internal/config/configfx"
	"github.com/0x99f/dualsync/internal/consistency/consistencyfx"
	"github.com/0x99f/dualsync/internal/embeddings/embeddingsfx"
	"github.com/0x99f/dualsync/internal/mapping/mappingfx"
	"github.com/0x99f/dualsync/internal/mcp/mcpfx"
	"github.com/0x99f/dualsync/internal/registry/registryfx"
	"github.com/0x99f/dualsync/internal/storage/storagefx"
	"github.com/0x99f/dualsync/internal/txn/txnfx"
)

// NewLogger creates the application logger. Logs go to stderr so the MCP
// stdio transport keeps stdout to itself.
func NewLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

// Module combines all application modules
var Module = fx.Options(
	fx.Provide(NewLogger),
	configfx.Module,
	embeddingsfx.Module,
	storagefx.Module,
	registryfx.Module,
	txnfx.Module,
	mappingfx.Module,
	consistencyfx.Module,
	mcpfx.Module,
	cmdsfx.Module,
)

// NewAppWithConfig creates an Fx app with the given configuration values
func NewAppWithConfig(dbPath, embedURL, project string, syncWorkers int) *fx.App {
	return fx.New(
		Module,
		fx.Supply(
			fx.Annotate(dbPath, fx.ResultTags(`name:"dbPath"`)),
			fx.Annotate(embedURL, fx.ResultTags(`name:"embedURL"`)),
			fx.Annotate(project, fx.ResultTags(`name:"project"`)),
			fx.Annotate(syncWorkers, fx.ResultTags(`name:"syncWorkers"`)),
		),
		fx.Invoke(func(lc fx.Lifecycle, mcpLifecycle *mcpfx.Lifecycle) {
			lc.Append(fx.Hook{
				OnStart: mcpLifecycle.Start,
				OnStop:  mcpLifecycle.Stop,
			})
		}),
	)
}

// NewApp creates an Fx app with default configuration
func NewApp() *fx.App {
	return fx.New(Module)
}
