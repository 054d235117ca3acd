package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/ytmp3/internal/metrics"
	"github.com/desertthunder/ytmp3/internal/repositories"
	"github.com/desertthunder/ytmp3/internal/server"
	"github.com/desertthunder/ytmp3/internal/services"
	"github.com/desertthunder/ytmp3/internal/shared"
	"github.com/desertthunder/ytmp3/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Serve runs the download server until SIGINT or SIGTERM.
//
// Jobs persisted by a durable store backend are restored first; queued ones are
// requeued and the ones that were running when the process stopped are marked failed.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config := r.config
	if v := cmd.String("host"); v != "" {
		config.Server.Host = v
	}
	if v := cmd.Int("port"); v > 0 {
		config.Server.Port = v
	}
	if v := cmd.String("output-dir"); v != "" {
		config.Downloads.OutputDir = v
	}
	if v := cmd.Int("max-concurrent"); v > 0 {
		config.Downloads.MaxConcurrent = v
	}
	if v := cmd.String("store"); v != "" {
		config.Store.Backend = v
	}
	if err := config.Validate(); err != nil {
		return err
	}

	if path := cmd.String("log-file"); path != "" {
		fileLogger, err := shared.NewFileLogger(path)
		if err != nil {
			return err
		}
		shared.SetLogLevel(fileLogger, shared.ParseLogLevel(config.Log.Level))
		r.SetLogger(fileLogger)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	headers, err := shared.LoadRequestHeaders(config.Downloads.HeadersFile)
	if err != nil {
		return err
	}

	store, closeStore, err := r.openStore(config)
	if err != nil {
		return err
	}
	defer closeStore()

	manager := tasks.NewManager(config, store, tasks.Pipeline{
		Resolver:  services.NewYTDLPResolver(config, headers),
		Fetcher:   services.NewHTTPFetcher(config.Downloads.VerifySSL, headers),
		Converter: services.NewFFmpegConverter(config),
	}, r.logger)

	collector := metrics.New(nil)
	events, unsubscribe := manager.Subscribe()
	go collector.Run(ctx, events)
	defer unsubscribe()

	if err := manager.Start(); err != nil {
		return err
	}
	defer manager.Stop()

	if requeued, failed := manager.Recover(); requeued+failed > 0 {
		r.logger.Info("recovered jobs", "requeued", requeued, "failed", failed)
	}

	r.logger.Info("starting server",
		"addr", config.Server.Addr(),
		"version", r.version,
		"store", config.Store.Backend,
		"max_concurrent", config.Downloads.MaxConcurrent)

	return server.New(config, manager, collector, r.logger, r.version).ListenAndServe(ctx)
}

// openStore builds the job store and, for durable backends, restores it from the journal.
func (r *Runner) openStore(config *shared.Config) (*repositories.JobStore, func(), error) {
	journal, err := repositories.OpenJournal(config)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s store: %w", config.Store.Backend, err)
	}
	if journal == nil {
		return repositories.NewJobStore(), func() {}, nil
	}

	closeJournal := func() {
		if err := journal.Close(); err != nil {
			r.logger.Error("failed to close job store", "err", err)
		}
	}

	jobs, err := journal.Load()
	if err != nil {
		closeJournal()
		return nil, nil, fmt.Errorf("failed to load jobs: %w", err)
	}

	store := repositories.NewJobStore(repositories.WithJournal(journal))
	if n := store.Restore(jobs); n > 0 {
		r.logger.Info("restored jobs", "count", n, "store", config.Store.Backend)
	}
	return store, closeJournal, nil
}
