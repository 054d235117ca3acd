// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/desertthunder/ytmp3/internal/ui"
	"github.com/urfave/cli/v3"
)

func jsonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
		},
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create the config file, output directory and job database",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Run migrations even when the store backend is not sqlite",
			},
		},
		Action: r.Setup,
	}
}

// serveCommand runs the download server
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the download server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (overrides server.host)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Listen port (overrides server.port)",
			},
			&cli.StringFlag{
				Name:    "output-dir",
				Aliases: []string{"o"},
				Usage:   "Directory for converted files (overrides downloads.output_dir)",
			},
			&cli.IntFlag{
				Name:  "max-concurrent",
				Usage: "Worker slots (overrides downloads.max_concurrent)",
			},
			&cli.StringFlag{
				Name:  "store",
				Usage: "Job store backend: memory, sqlite, pebble or redis (overrides store.backend)",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Write logs to a file instead of stderr",
			},
		},
		Action: r.Serve,
	}
}

// submitCommand queues a download on a running server
func submitCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "submit",
		Aliases:   []string{"add"},
		Usage:     "Queue a YouTube URL for download",
		ArgsUsage: "<url>",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "url",
			},
		},
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    "name",
				Aliases: []string{"n"},
				Usage:   "Custom file name (without extension)",
			},
			&cli.BoolFlag{
				Name:    "wait",
				Aliases: []string{"w"},
				Usage:   "Wait for the download to finish, printing progress",
			},
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "Poll interval used with --wait",
				Value: time.Second,
			},
		}, jsonFlags()...),
		Action: r.Submit,
	}
}

func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "status",
		Usage:     "Show one download",
		ArgsUsage: "<id>",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "id",
			},
		},
		Flags:  jsonFlags(),
		Action: r.Status,
	}
}

func listCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List every download",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:  "status",
				Usage: "Only show downloads with this status",
			},
		}, jsonFlags()...),
		Action: r.List,
	}
}

func cancelCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "cancel",
		Usage:     "Cancel a queued or running download",
		ArgsUsage: "<id>",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "id",
			},
		},
		Flags:  jsonFlags(),
		Action: r.Cancel,
	}
}

func filesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "files",
		Usage:  "List converted files on the server",
		Flags:  jsonFlags(),
		Action: r.Files,
	}
}

func statsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "stats",
		Usage:  "Show job counts and disk usage",
		Flags:  jsonFlags(),
		Action: r.Stats,
	}
}

func healthCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "health",
		Usage:  "Check that the server is up",
		Flags:  jsonFlags(),
		Action: r.Health,
	}
}

func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "config",
		Usage:  "Show the server's public configuration",
		Flags:  jsonFlags(),
		Action: r.ServerConfig,
	}
}

// exportCommand writes the job table in a file format
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export downloads as CSV, Markdown, text or JSON",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Export format: csv, markdown, text or json",
				Value:   "csv",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output file path, - for stdout (default downloads.<ext>)",
			},
		},
		Action: r.Export,
	}
}

// watchCommand opens the terminal dashboard
func watchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "watch",
		Aliases: []string{"tui"},
		Usage:   "Open a live dashboard of the server's downloads",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "Refresh interval",
				Value: ui.DefaultInterval,
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Log file used while the dashboard owns the terminal",
			},
		},
		Action: r.Watch,
	}
}
