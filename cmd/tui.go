package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/ytmp3/internal/shared"
	"github.com/desertthunder/ytmp3/internal/ui"
	"github.com/urfave/cli/v3"
)

// Watch launches the terminal dashboard for a running server.
func (r *Runner) Watch(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.api.Health(ctx); err != nil {
		return fmt.Errorf("%w: %s: %w", shared.ErrServiceUnavailable, r.api.BaseURL(), err)
	}

	logPath := cmd.String("log-file")
	if logPath == "" {
		logPath = r.config.Log.File
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(logPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	model := ui.NewModel(ctx, r.api, cmd.Duration("interval"))
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
