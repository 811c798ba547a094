package mappingfx

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/0x99f/dualsync/internal/config/configfx"
	"github.com/0x99f/dualsync/internal/mapping"
	"github.com/0x99f/dualsync/internal/registry"
	"github.com/0x99f/dualsync/internal/txn"
)

// Params represents dependencies for the entity mapping service
type Params struct {
	fx.In

	Registry    *registry.Registry
	Coordinator *txn.Coordinator
	Logger      *slog.Logger
	Config      *configfx.Config
}

// NewService creates the entity mapping service
func NewService(params Params) *mapping.Service {
	return mapping.NewService(
		params.Registry,
		params.Coordinator,
		params.Logger,
		mapping.WithSyncWorkers(params.Config.SyncWorkers),
	)
}

// Module provides the entity mapping service
var Module = fx.Module("mapping",
	fx.Provide(NewService),
)
