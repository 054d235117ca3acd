package tasks

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytmp3/internal/models"
	"github.com/desertthunder/ytmp3/internal/services"
	"github.com/desertthunder/ytmp3/internal/shared"
)

const (
	// fetchShare is the progress reached when the stream has been fetched; conversion covers the rest.
	fetchShare = 90.0

	// PartialDir holds in-flight artifacts inside the output directory.
	PartialDir = ".partial"
)

var errAborted = errors.New("job no longer active")

// Pipeline bundles the stages every job passes through.
type Pipeline struct {
	Resolver  services.Resolver
	Fetcher   services.Fetcher
	Converter services.Converter
}

// worker executes jobs for the pool. One worker is shared by every slot.
type worker struct {
	store     models.Repository
	pipeline  Pipeline
	outputDir string
	step      float64
	logger    *log.Logger
	onUpdate  func(models.Job)

	placeMu sync.Mutex
}

// update applies fn through the store and publishes the new snapshot.
func (w *worker) update(id string, fn func(j *models.Job)) (models.Job, error) {
	job, err := w.store.Update(id, func(j *models.Job) error {
		fn(j)
		return nil
	})
	if err != nil {
		return job, err
	}
	if w.onUpdate != nil {
		w.onUpdate(job)
	}
	return job, nil
}

func (w *worker) run(ctx context.Context, id string) {
	logger := shared.WithLogger(w.logger, "job", id)
	start := time.Now()

	job, err := w.update(id, func(j *models.Job) { j.Status = models.StatusDownloading })
	if err != nil {
		logger.Debug("skipping job", "err", err)
		return
	}
	logger.Info("download started", "url", job.SourceURL)

	if err := os.MkdirAll(filepath.Join(w.outputDir, PartialDir), 0755); err != nil {
		w.abandon(ctx, logger, id, err, failure(shared.ErrFetch, err))
		return
	}

	meta, err := w.pipeline.Resolver.Resolve(ctx, job.SourceURL)
	if err != nil {
		w.abandon(ctx, logger, id, err, shared.ErrMetadata.Error())
		return
	}
	if job, err = w.update(id, func(j *models.Job) {
		j.Title = meta.Title
		j.Uploader = meta.Uploader
		j.Duration = meta.Duration
	}); err != nil {
		logger.Debug("job stopped after resolution", "err", err)
		return
	}
	logger.Debug("source resolved", "title", meta.Title, "ext", meta.Ext, "protocol", meta.Protocol, "kbps", meta.Bitrate)

	input := meta.StreamURL
	if meta.Streamable() {
		partial, err := w.fetch(ctx, id, meta)
		if err != nil {
			w.abandon(ctx, logger, id, err, failure(shared.ErrFetch, err))
			return
		}
		defer os.Remove(partial)
		input = partial
	}

	if _, err := w.update(id, func(j *models.Job) {
		j.Status = models.StatusConverting
		j.Progress = fetchShare
	}); err != nil {
		logger.Debug("job stopped before conversion", "err", err)
		return
	}

	converted := filepath.Join(w.outputDir, PartialDir, id+".converted.mp3")
	if err := w.pipeline.Converter.Convert(ctx, input, converted); err != nil {
		os.Remove(converted)
		w.abandon(ctx, logger, id, err, failure(shared.ErrConversion, err))
		return
	}

	name := job.CustomName
	if name == "" {
		name = job.Title
	}
	final, err := w.place(converted, shared.SanitizeFilename(name))
	if err != nil {
		os.Remove(converted)
		w.abandon(ctx, logger, id, err, failure(shared.ErrConversion, err))
		return
	}

	if _, err := w.update(id, func(j *models.Job) {
		j.Status = models.StatusCompleted
		j.Progress = 100
		j.OutputPath = final
	}); err != nil {
		logger.Info("job canceled after conversion, removing output", "path", final)
		os.Remove(final)
		return
	}
	logger.Info("download completed", "path", final, "elapsed", time.Since(start).Round(time.Millisecond))
}

// fetch streams the audio into the partial directory, checkpointing on every progress step.
func (w *worker) fetch(ctx context.Context, id string, meta *services.Metadata) (string, error) {
	ext := meta.Ext
	if ext == "" {
		ext = "audio"
	}
	path := filepath.Join(w.outputDir, PartialDir, id+"."+ext)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create partial file: %w", err)
	}

	last := 0.0
	_, err = w.pipeline.Fetcher.Fetch(ctx, meta.StreamURL, f, func(written, total int64) error {
		pct := scaleProgress(written, total)
		if pct < 0 || pct-last < w.step {
			return nil
		}
		last = pct
		if _, err := w.update(id, func(j *models.Job) { j.Progress = pct }); err != nil {
			return fmt.Errorf("%w: %w", errAborted, err)
		}
		return nil
	})
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close partial file: %w", cerr)
	}
	if err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

// place moves the converted file to <base>.mp3, adding -1, -2, ... on collision.
func (w *worker) place(src, base string) (string, error) {
	w.placeMu.Lock()
	defer w.placeMu.Unlock()

	target := filepath.Join(w.outputDir, base+".mp3")
	for n := 1; ; n++ {
		_, err := os.Stat(target)
		if errors.Is(err, fs.ErrNotExist) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to check output path: %w", err)
		}
		target = filepath.Join(w.outputDir, fmt.Sprintf("%s-%d.mp3", base, n))
	}

	if err := os.Rename(src, target); err != nil {
		return "", fmt.Errorf("failed to move output into place: %w", err)
	}
	return target, nil
}

// abandon records why a job stopped. Cancellation by the user needs no record;
// a pool shutdown marks the job failed so it is not left active.
func (w *worker) abandon(ctx context.Context, logger *log.Logger, id string, cause error, message string) {
	switch {
	case errors.Is(cause, errAborted):
		logger.Info("job canceled during download")
		return
	case ctx.Err() != nil:
		if job, err := w.store.Get(id); err == nil && job.Status.IsTerminal() {
			logger.Info("job stopped", "status", job.Status)
			return
		}
		message = "interrupted by shutdown"
	}

	logger.Warn("job failed", "reason", message, "err", cause)
	if _, err := w.update(id, func(j *models.Job) {
		j.Status = models.StatusFailed
		j.Error = message
	}); err != nil && !errors.Is(err, shared.ErrAlreadyTerminal) {
		logger.Error("failed to record job failure", "err", err)
	}
}

// failure formats cause as "<kind>: <cause>" unless it already carries kind.
func failure(kind, cause error) string {
	if errors.Is(cause, kind) {
		return cause.Error()
	}
	return fmt.Sprintf("%s: %s", kind, cause)
}

// scaleProgress maps fetched bytes onto 0..fetchShare, or -1 when the total is unknown.
func scaleProgress(written, total int64) float64 {
	if total <= 0 {
		return -1
	}
	return min(float64(written)/float64(total)*fetchShare, fetchShare)
}
