package configfx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
)

func TestConfigModule(t *testing.T) {
	var config *Config
	app := fx.New(
		Module,
		fx.Supply(
			fx.Annotate("/tmp/dualsync.db", fx.ResultTags(`name:"dbPath"`)),
			fx.Annotate("http://localhost:8000/embed", fx.ResultTags(`name:"embedURL"`)),
			fx.Annotate("demo", fx.ResultTags(`name:"project"`)),
			fx.Annotate(4, fx.ResultTags(`name:"syncWorkers"`)),
		),
		fx.Populate(&config),
	)

	ctx := context.Background()
	require.NoError(t, app.Start(ctx))
	defer func() {
		require.NoError(t, app.Stop(ctx))
	}()

	assert.NotNil(t, config)
	assert.Equal(t, "/tmp/dualsync.db", config.DBPath)
	assert.Equal(t, "http://localhost:8000/embed", config.EmbedURL)
	assert.Equal(t, "demo", config.Project)
	assert.Equal(t, 4, config.SyncWorkers)
}

func TestConfigDefaults(t *testing.T) {
	var config *Config
	app := fx.New(
		Module,
		fx.Populate(&config),
	)

	ctx := context.Background()
	require.NoError(t, app.Start(ctx))
	defer func() {
		require.NoError(t, app.Stop(ctx))
	}()

	assert.NotNil(t, config)
	assert.Equal(t, "", config.DBPath) // in-memory stores
	assert.Equal(t, 0, config.SyncWorkers)
}
