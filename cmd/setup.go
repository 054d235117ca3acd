package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/desertthunder/ytmp3/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file from the embedded template when it is missing,
// prepares the output directory and, for the sqlite backend, initializes the job database.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	if _, err := os.Stat(r.configPath); errors.Is(err, fs.ErrNotExist) {
		r.logger.Info("config file not found, creating from template", "path", r.configPath)
		if err := shared.CreateConfigFile(r.configPath); err != nil {
			return err
		}
		config, err := shared.LoadConfig(r.configPath)
		if err != nil {
			return fmt.Errorf("failed to load created config: %w", err)
		}
		if err := shared.ApplyEnv(config); err != nil {
			return err
		}
		r.config = config
	} else {
		r.logger.Info("using existing config", "path", r.configPath)
	}

	if err := r.config.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(r.config.Downloads.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	r.logger.Info("output directory ready", "path", r.config.Downloads.OutputDir)

	if r.config.Store.Backend == shared.BackendSQLite || cmd.Bool("force") {
		if err := r.SetupDatabase(); err != nil {
			return err
		}
	}

	r.writePlain("✓ Setup complete\n")
	r.writePlain("Config: %s\n", r.configPath)
	r.writePlain("Output: %s\n", r.config.Downloads.OutputDir)
	r.writePlain("Store:  %s\n", r.config.Store.Backend)
	r.writePlainln("Next steps:")
	r.writePlain("1. Make sure yt-dlp and ffmpeg are on your PATH (or set tools.ytdlp_path / tools.ffmpeg_path)\n")
	r.writePlain("2. Run 'ytmp3 serve' and submit a URL with 'ytmp3 submit <url>'\n")
	return nil
}

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase() error {
	r.logger.Info("initializing database", "path", r.config.Database.Path)

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, err := shared.CurrentVersion(db)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	r.logger.Infof("setup complete for database: %v (schema version %d)", r.config.Database.Path, version)
	return nil
}
