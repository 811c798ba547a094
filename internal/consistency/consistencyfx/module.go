package consistencyfx

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/0x99f/dualsync/internal/consistency"
	"github.com/0x99f/dualsync/internal/registry"
	"github.com/0x99f/dualsync/internal/storage"
)

// Params represents dependencies for the consistency checker
type Params struct {
	fx.In

	Registry *registry.Registry
	Vector   storage.VectorStore
	Graph    storage.GraphStore
	Logger   *slog.Logger
}

// NewChecker creates the consistency checker
func NewChecker(params Params) *consistency.Checker {
	return consistency.NewChecker(params.Registry, params.Vector, params.Graph, params.Logger)
}

// Module provides the consistency checker
var Module = fx.Module("consistency",
	fx.Provide(NewChecker),
)
