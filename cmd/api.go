package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/desertthunder/ytmp3/internal/formatter"
	"github.com/desertthunder/ytmp3/internal/models"
	"github.com/desertthunder/ytmp3/internal/shared"
	"github.com/urfave/cli/v3"
)

// Submit queues a URL and optionally waits for it to finish.
func (r *Runner) Submit(ctx context.Context, cmd *cli.Command) error {
	sourceURL := cmd.StringArg("url")
	if sourceURL == "" {
		return fmt.Errorf("%w: url is required", shared.ErrMissingArgument)
	}

	r.logger.Debug("submitting download", "url", sourceURL, "server", r.api.BaseURL())

	id, err := r.api.Submit(ctx, sourceURL, cmd.String("name"))
	if err != nil {
		return fmt.Errorf("failed to submit download: %w", err)
	}

	if !cmd.Bool("wait") {
		if cmd.Bool("json") {
			return r.writeJSON(models.DownloadResponse{DownloadID: id}, cmd.Bool("pretty"))
		}
		return r.writePlain("%s\n", id)
	}

	job, err := r.wait(ctx, id, cmd.Duration("interval"), !cmd.Bool("json"))
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(models.NewJobResponse(*job), cmd.Bool("pretty"))
	}

	switch job.Status {
	case models.StatusCompleted:
		return r.writePlain("✓ %s\n", job.OutputPath)
	case models.StatusFailed:
		return fmt.Errorf("download %s failed: %s", id, job.Error)
	default:
		return r.writePlain("download %s %s\n", id, job.Status)
	}
}

// wait polls a job until it reaches a terminal status, printing each change when verbose.
func (r *Runner) wait(ctx context.Context, id string, interval time.Duration, verbose bool) (*models.Job, error) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last string
	for {
		job, err := r.api.Download(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to poll download %s: %w", id, err)
		}

		if line := fmt.Sprintf("%-11s %5.1f%%  %s", job.Status, job.Progress, jobName(*job)); verbose && line != last {
			r.writePlain("%s\n", line)
			last = line
		}
		if job.Status.IsTerminal() {
			return job, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Status prints one job.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: id is required", shared.ErrMissingArgument)
	}

	job, err := r.api.Download(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get download: %w", err)
	}
	if cmd.Bool("json") {
		return r.writeJSON(models.NewJobResponse(*job), cmd.Bool("pretty"))
	}

	r.writePlainHeader(jobName(*job))
	r.writeJob(*job)
	return nil
}

// List prints every job, oldest first.
func (r *Runner) List(ctx context.Context, cmd *cli.Command) error {
	byID, err := r.api.Downloads(ctx)
	if err != nil {
		return fmt.Errorf("failed to list downloads: %w", err)
	}

	filter := models.Status(strings.ToLower(cmd.String("status")))
	if filter != "" && !filter.Valid() {
		return fmt.Errorf("%w: unknown status %q", shared.ErrInvalidFlag, filter)
	}

	jobs := sortedJobs(byID)
	if filter != "" {
		kept := jobs[:0]
		for _, job := range jobs {
			if job.Status == filter {
				kept = append(kept, job)
			}
		}
		jobs = kept
	}

	if cmd.Bool("json") {
		out := make(map[string]models.JobResponse, len(jobs))
		for _, job := range jobs {
			out[job.ID] = models.NewJobResponse(job)
		}
		return r.writeJSON(out, cmd.Bool("pretty"))
	}

	if len(jobs) == 0 {
		return r.writePlain("No downloads.\n")
	}
	for _, job := range jobs {
		r.writePlain("%-36s  %-11s %5.1f%%  %s\n", job.ID, job.Status, job.Progress, jobName(job))
	}
	return nil
}

// Cancel cancels one job.
func (r *Runner) Cancel(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: id is required", shared.ErrMissingArgument)
	}

	job, err := r.api.Cancel(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to cancel download: %w", err)
	}
	if cmd.Bool("json") {
		return r.writeJSON(models.NewJobResponse(*job), cmd.Bool("pretty"))
	}
	return r.writePlain("✓ canceled %s\n", id)
}

// Files lists the converted files.
func (r *Runner) Files(ctx context.Context, cmd *cli.Command) error {
	files, err := r.api.Files(ctx)
	if err != nil {
		return fmt.Errorf("failed to list files: %w", err)
	}
	if cmd.Bool("json") {
		return r.writeJSON(files, cmd.Bool("pretty"))
	}

	if len(files) == 0 {
		return r.writePlain("No files.\n")
	}
	var total int64
	for _, f := range files {
		total += f.Size
		r.writePlain("%10s  %s  %s\n", shared.FormatBytes(f.Size), f.CreatedAt.Local().Format(time.DateTime), f.Name)
	}
	return r.writePlainln("%d files, %s", len(files), shared.FormatBytes(total))
}

// Stats prints job counts and disk usage.
func (r *Runner) Stats(ctx context.Context, cmd *cli.Command) error {
	stats, err := r.api.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}
	if cmd.Bool("json") {
		return r.writeJSON(stats, cmd.Bool("pretty"))
	}

	r.writePlainHeader("Downloads")
	for _, status := range models.Statuses {
		r.writePlain("%-12s %d\n", status, stats.ByStatus[status])
	}
	r.writePlainln("Pending: %d  Files: %d  Disk: %s", stats.DownloadCount, stats.TotalFiles, shared.FormatBytes(stats.DiskUsage))
	return nil
}

// Health checks the server.
func (r *Runner) Health(ctx context.Context, cmd *cli.Command) error {
	health, err := r.api.Health(ctx)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", shared.ErrServiceUnavailable, r.api.BaseURL(), err)
	}
	if cmd.Bool("json") {
		return r.writeJSON(health, cmd.Bool("pretty"))
	}

	uptime := time.Duration(health.UptimeSeconds * float64(time.Second)).Round(time.Second)
	return r.writePlain("%s (version %s, up %s) at %s\n", health.Status, health.Version, uptime, r.api.BaseURL())
}

// ServerConfig prints the server's public configuration.
func (r *Runner) ServerConfig(ctx context.Context, cmd *cli.Command) error {
	config, err := r.api.Config(ctx)
	if err != nil {
		return fmt.Errorf("failed to get server config: %w", err)
	}
	if cmd.Bool("json") {
		return r.writeJSON(config, cmd.Bool("pretty"))
	}

	r.writePlain("max_concurrent %d\n", config.MaxConcurrent)
	r.writePlain("queue_policy   %s\n", config.QueuePolicy)
	r.writePlain("queue_size     %d\n", config.QueueSize)
	r.writePlain("output_dir     %s\n", config.OutputDir)
	r.writePlain("audio_bitrate  %s\n", config.AudioBitrate)
	r.writePlain("verify_ssl     %t\n", config.VerifySSL)
	return nil
}

// Export writes every job and file in the selected format.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	byID, err := r.api.Downloads(ctx)
	if err != nil {
		return fmt.Errorf("failed to list downloads: %w", err)
	}
	files, err := r.api.Files(ctx)
	if err != nil {
		return fmt.Errorf("failed to list files: %w", err)
	}

	export := &formatter.Export{Jobs: sortedJobs(byID), Files: files, ExportedAt: time.Now()}

	if cmd.String("output") == "-" {
		data, err := formatter.Render(format, export)
		if err != nil {
			return err
		}
		_, err = r.output.Write(data)
		return err
	}

	path, err := formatter.WriteExport(format, export, cmd.String("output"))
	if err != nil {
		return err
	}
	r.logger.Info("export written", "path", path, "jobs", len(export.Jobs))
	return r.writePlain("✓ exported %d downloads to %s\n", len(export.Jobs), path)
}

func (r *Runner) writeJob(job models.Job) {
	r.writePlain("ID:       %s\n", job.ID)
	r.writePlain("Status:   %s\n", job.Status)
	r.writePlain("Progress: %.1f%%\n", job.Progress)
	r.writePlain("Source:   %s\n", job.SourceURL)
	if job.Title != "" {
		r.writePlain("Title:    %s\n", job.Title)
	}
	if job.Uploader != "" {
		r.writePlain("Uploader: %s\n", job.Uploader)
	}
	if job.Duration > 0 {
		r.writePlain("Length:   %s\n", shared.FormatDuration(int(job.Duration)))
	}
	if job.OutputPath != "" {
		r.writePlain("Output:   %s\n", job.OutputPath)
	}
	if job.Error != "" {
		r.writePlain("Error:    %s\n", job.Error)
	}
	r.writePlain("Created:  %s\n", job.CreatedAt.Local().Format(time.DateTime))
	if job.FinishedAt != nil {
		r.writePlain("Finished: %s\n", job.FinishedAt.Local().Format(time.DateTime))
	}
}

func sortedJobs(byID map[string]models.Job) []models.Job {
	jobs := make([]models.Job, 0, len(byID))
	for _, job := range byID {
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].ID < jobs[j].ID
		}
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})
	return jobs
}

func jobName(job models.Job) string {
	switch {
	case job.CustomName != "":
		return job.CustomName
	case job.Title != "":
		return job.Title
	}
	return job.SourceURL
}

