package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"
)

var CLI struct {
	Version  kong.VersionFlag
	Verbose  bool   `help:"Log every step to stderr." short:"v"`
	Timezone string `help:"Zone that decides which calendar day a reading belongs to." default:"UTC" env:"APP_TIMEZONE"`

	Evaluate EvaluateCmd `cmd:"" help:"Grade a single reading without storing it."`
	Replay   ReplayCmd   `cmd:"" help:"Feed a JSON file of readings through the progress aggregator."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("vitalsctl"),
		kong.Description("Offline tools for HealthMate vitals, streaks and rewards"),
		kong.UsageOnError(),
		kong.Vars{"version": "v0.1.0"},
	)

	log := zap.NewNop()
	if CLI.Verbose {
		if l, err := zap.NewDevelopment(); err == nil {
			log = l
		}
	}
	defer func() { _ = log.Sync() }()

	appCtx := &Context{Out: os.Stdout, Log: log, Timezone: CLI.Timezone}
	if err := ctx.Run(appCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
