package txnfx

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/0x99f/dualsync/internal/registry"
	"github.com/0x99f/dualsync/internal/storage"
	"github.com/0x99f/dualsync/internal/txn"
)

// Params represents dependencies for the transaction coordinator
type Params struct {
	fx.In

	Vector   storage.VectorStore
	Graph    storage.GraphStore
	Registry *registry.Registry
	Logger   *slog.Logger
}

// NewCoordinator creates the transaction coordinator
func NewCoordinator(params Params) *txn.Coordinator {
	return txn.NewCoordinator(params.Vector, params.Graph, params.Registry, params.Logger)
}

// Module provides the transaction coordinator
var Module = fx.Module("txn",
	fx.Provide(NewCoordinator),
)
