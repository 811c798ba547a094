package appfx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"

	"github.com/0x99f/dualsync/cmd/cmdsfx"
)

func TestAppModule(t *testing.T) {
	// Test that all modules can be loaded together
	var runner *cmdsfx.CommandRunner

	app := fx.New(
		Module,
		fx.Supply(
			fx.Annotate("", fx.ResultTags(`name:"dbPath"`)),
			fx.Annotate("", fx.ResultTags(`name:"embedURL"`)),
			fx.Annotate("", fx.ResultTags(`name:"project"`)),
			fx.Annotate(0, fx.ResultTags(`name:"syncWorkers"`)),
		),
		fx.Populate(&runner),
	)

	ctx := context.Background()
	require.NoError(t, app.Start(ctx))
	defer func() {
		require.NoError(t, app.Stop(ctx))
	}()

	assert.NotNil(t, runner)
}

func TestNewAppWithConfig(t *testing.T) {
	// Empty db path selects the in-memory stores
	app := NewAppWithConfig("", "", "", 0)

	ctx := context.Background()
	require.NoError(t, app.Start(ctx))
	require.NoError(t, app.Stop(ctx))
}
