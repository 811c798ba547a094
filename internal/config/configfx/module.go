package configfx

import (
	"go.uber.org/fx"
)

// Config holds the application configuration
type Config struct {
	DBPath      string // empty selects the in-memory stores
	EmbedURL    string // empty selects the local hash embedder
	Project     string // default project scope for commands
	SyncWorkers int    // >1 enables parallel project sync
}

// Params represents the parameters needed to create configuration
type Params struct {
	fx.In

	DBPath      string `name:"dbPath"      optional:"true"`
	EmbedURL    string `name:"embedURL"    optional:"true"`
	Project     string `name:"project"     optional:"true"`
	SyncWorkers int    `name:"syncWorkers" optional:"true"`
}

// NewConfig creates a new configuration with defaults
func NewConfig(params Params) *Config {
	return &Config{
		DBPath:      params.DBPath,
		EmbedURL:    params.EmbedURL,
		Project:     params.Project,
		SyncWorkers: params.SyncWorkers,
	}
}

// Module provides configuration for the application
var Module = fx.Module("config",
	fx.Provide(NewConfig),
)
