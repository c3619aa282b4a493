package main

import (
	"context"
	"flag"
	"os"
	"path"

	"expensetracker/internal/backend"
	"expensetracker/internal/cli"
	"expensetracker/internal/ctl"
	"expensetracker/internal/gateway"

	"github.com/google/subcommands"
)

func main() {
	cli.LoadEnvFile()

	app := &ctl.App{}
	flag.StringVar(&app.Owner, "owner", os.Getenv("EXPENSE_OWNER"), "Owner whose expenses are shown (env EXPENSE_OWNER)")
	flag.StringVar(&app.Currency, "currency", "EUR", "ISO 4217 code used to print amounts")
	flag.BoolVar(&app.Plain, "plain", false, "Print raw markdown instead of rendering it")

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	ctl.Register(commander, app)

	flag.Parse()

	cfg, err := cli.LoadConfig()
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(int(subcommands.ExitFailure))
	}
	app.Logger = cli.SetupLogger(cfg.LogLevel, os.Stderr)
	app.Open = func(ctx context.Context) (gateway.Gateway, func() error, error) {
		backendCfg, err := backend.FromAppConfig(cfg)
		if err != nil {
			return nil, nil, err
		}
		res, err := backend.NewFactory(app.Logger).CreateBackend(ctx, backendCfg)
		if err != nil {
			return nil, nil, err
		}
		return res.Gateway, res.Cleanup, nil
	}

	ctx, stop := cli.SignalContext(context.Background(), app.Logger)
	defer stop()
	status := commander.Execute(ctx)
	stop()
	os.Exit(int(status))
}
