package main

import (
	"context"
	"os"

	"github.com/desertthunder/ytmp3/internal/shared"
	"github.com/urfave/cli/v3"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "0.1.0"

func main() {
	logger := shared.NewLogger(nil)

	if err := shared.LoadEnv(".env", ".env.local"); err != nil {
		logger.Warn("failed to load environment files", "error", err)
	}

	runner := NewRunner(RunnerOpts{
		ConfigPath: "config.toml",
		Logger:     logger,
		Version:    version,
	})

	app := newApp(runner, version)

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}

// newApp builds the root command with the global flags shared by every subcommand.
func newApp(runner *Runner, version string) *cli.Command {
	return &cli.Command{
		Name:    "ytmp3",
		Usage:   "Download YouTube audio as MP3 through a job server",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
				Sources: cli.EnvVars(shared.EnvPrefix + "CONFIG"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "server",
				Usage: "Base URL of the download server for client commands",
			},
		},
		Before:   runner.Load,
		Commands: runner.register(),
	}
}
