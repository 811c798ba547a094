package registryfx

import (
	"go.uber.org/fx"

	"github.com/0x99f/dualsync/internal/registry"
)

// Module provides the mapping registry
var Module = fx.Module("registry",
	fx.Provide(registry.New),
)
