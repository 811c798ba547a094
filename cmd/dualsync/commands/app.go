package commands

import (
	"context"

	"go.uber.org/fx"

	"github.com/0x99f/dualsync/cmd/cmdsfx"
	"github.com/0x99f/dualsync/internal/app/appfx"
)

// commonFlags are the configuration flags shared by every command.
type commonFlags struct {
	db          string
	embedURL    string
	project     string
	syncWorkers int
}

// withRunner builds the application container, starts it and hands the
// command runner to fn, stopping the container afterwards.
func withRunner(
	ctx context.Context,
	flags commonFlags,
	fn func(r *cmdsfx.CommandRunner) error,
) error {
	var runner *cmdsfx.CommandRunner

	app := fx.New(
		appfx.Module,
		fx.Supply(
			fx.Annotate(flags.db, fx.ResultTags(`name:"dbPath"`)),
			fx.Annotate(flags.embedURL, fx.ResultTags(`name:"embedURL"`)),
			fx.Annotate(flags.project, fx.ResultTags(`name:"project"`)),
			fx.Annotate(flags.syncWorkers, fx.ResultTags(`name:"syncWorkers"`)),
		),
		fx.Populate(&runner),
		fx.NopLogger,
	)

	if err := app.Start(ctx); err != nil {
		return err
	}
	defer app.Stop(ctx) //nolint:errcheck

	return fn(runner)
}
