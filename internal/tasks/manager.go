package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytmp3/internal/models"
	"github.com/desertthunder/ytmp3/internal/shared"
)

const eventBuffer = 64

// Manager is the entry point for every job operation. It owns the job table,
// the worker pool and the event stream; handlers never touch them directly.
type Manager struct {
	config  *shared.Config
	store   models.Repository
	pool    *Pool
	worker  *worker
	events  *broadcaster
	logger  *log.Logger
	now     func() time.Time
	started time.Time

	pubMu     sync.Mutex
	published map[string]uint64 // last revision published per job

	mu          sync.Mutex
	janitorStop context.CancelFunc
	janitorDone chan struct{}
}

// ManagerOption configures a [Manager].
type ManagerOption func(*Manager)

// WithClock replaces time.Now, used for retention tests.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// NewManager wires a manager around store and pipeline. Call [Manager.Start] before submitting.
func NewManager(config *shared.Config, store models.Repository, pipeline Pipeline, logger *log.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	m := &Manager{
		config: config,
		store:  store,
		events:    newBroadcaster(eventBuffer),
		logger:    shared.WithLogger(logger, "component", "manager"),
		now:       time.Now,
		published: make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.started = m.now()

	m.worker = &worker{
		store:     store,
		pipeline:  pipeline,
		outputDir: config.Downloads.OutputDir,
		step:      config.Downloads.ProgressStep,
		logger:    shared.WithLogger(logger, "component", "worker"),
		onUpdate:  m.publishStatus,
	}
	m.pool = NewPool(
		config.Downloads.MaxConcurrent,
		config.Downloads.QueueSize,
		config.Downloads.QueuePolicy,
		m.worker.run,
		shared.WithLogger(logger, "component", "pool"),
	)
	return m
}

// Start prepares the output directory, launches the pool and, when retention is configured, the janitor.
func (m *Manager) Start() error {
	if err := os.MkdirAll(m.config.Downloads.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	m.pool.Start()

	if m.config.Retention.MaxAge > 0 {
		m.startJanitor(m.config.Retention.Interval, m.config.Retention.MaxAge)
	}

	m.logger.Info("manager started",
		"slots", m.pool.Size(),
		"queue_policy", m.config.Downloads.QueuePolicy,
		"output_dir", m.config.Downloads.OutputDir)
	return nil
}

// Stop halts the janitor and the pool and closes every subscription.
func (m *Manager) Stop() {
	m.stopJanitor()
	m.pool.Stop()
	m.events.close()
	m.logger.Info("manager stopped")
}

// Config returns the configuration the manager was built with.
func (m *Manager) Config() *shared.Config { return m.config }

// Uptime returns the time since the manager was created.
func (m *Manager) Uptime() time.Duration { return m.now().Sub(m.started) }

// Submit validates the request, records a queued job and hands it to the pool.
// It returns as soon as the job is queued.
func (m *Manager) Submit(ctx context.Context, sourceURL, customName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	sourceURL = strings.TrimSpace(sourceURL)
	customName = strings.TrimSpace(customName)
	if err := validateSubmission(sourceURL, customName); err != nil {
		return "", err
	}

	job := models.NewJob(shared.GenerateID(), sourceURL, customName, m.now())
	if err := m.store.Put(job); err != nil {
		return "", fmt.Errorf("failed to store job: %w", err)
	}
	m.events.publish(startedEvent(job, m.now()))

	if err := m.pool.Submit(job.ID); err != nil {
		if derr := m.store.Delete(job.ID); derr != nil {
			m.logger.Error("failed to remove rejected job", "job", job.ID, "err", derr)
		}
		m.events.publish(rejectedEvent(job, m.now()))
		m.logger.Warn("download rejected", "job", job.ID, "err", err)
		return "", err
	}

	m.logger.Info("download queued", "job", job.ID, "url", sourceURL)
	return job.ID, nil
}

func validateSubmission(sourceURL, customName string) error {
	if sourceURL == "" {
		return fmt.Errorf("%w: url is required", shared.ErrInvalidInput)
	}

	u, err := url.Parse(sourceURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: url must be an absolute http or https URL", shared.ErrInvalidInput)
	}

	if strings.ContainsAny(customName, `/\`) {
		return fmt.Errorf("%w: custom_name must not contain path separators", shared.ErrInvalidInput)
	}
	if utf8.RuneCountInString(customName) > shared.MaxNameLength {
		return fmt.Errorf("%w: custom_name is longer than %d characters", shared.ErrInvalidInput, shared.MaxNameLength)
	}
	return nil
}

// GetStatus returns a snapshot of one job. Unknown ids are never created.
func (m *Manager) GetStatus(id string) (models.Job, error) {
	return m.store.Get(id)
}

// ListJobs returns snapshots of every job in submission order.
func (m *Manager) ListJobs() []models.Job {
	return m.store.List()
}

// Cancel moves a queued or active job to canceled and stops its slot at the next checkpoint.
// A finished job is returned unchanged with [shared.ErrAlreadyTerminal].
func (m *Manager) Cancel(id string) (models.Job, error) {
	job, err := m.store.Update(id, func(j *models.Job) error {
		j.Status = models.StatusCanceled
		return nil
	})
	if err != nil {
		return job, err
	}

	running := m.pool.Cancel(id)
	m.publishStatus(job)
	m.logger.Info("download canceled", "job", id, "was_running", running)
	return job, nil
}

// Subscribe returns a channel of events and a func that ends the subscription.
func (m *Manager) Subscribe() (<-chan Event, func()) {
	return m.events.subscribe()
}

// publishStatus emits a status event for job unless a later revision was already
// published. Commits from a slot and from Cancel can arrive here out of order.
func (m *Manager) publishStatus(job models.Job) {
	m.pubMu.Lock()
	defer m.pubMu.Unlock()

	if last, ok := m.published[job.ID]; ok && job.Revision <= last {
		m.logger.Debug("dropping stale status", "job", job.ID, "status", job.Status, "revision", job.Revision, "published", last)
		return
	}
	m.published[job.ID] = job.Revision
	m.events.publish(statusEvent(job, m.now()))
}

func (m *Manager) forget(id string) {
	m.pubMu.Lock()
	delete(m.published, id)
	m.pubMu.Unlock()
}

// Recover re-enqueues queued jobs loaded from a journal and fails jobs that were
// active when the previous process exited.
func (m *Manager) Recover() (requeued, failed int) {
	for _, job := range m.store.List() {
		switch {
		case job.Status == models.StatusQueued:
			err := m.pool.Submit(job.ID)
			if err == nil {
				requeued++
				continue
			}
			m.logger.Warn("could not requeue job", "job", job.ID, "err", err)
			if m.failRecovered(job.ID, err.Error()) {
				failed++
			}
		case job.Status.IsActive():
			if m.failRecovered(job.ID, "interrupted by restart") {
				failed++
			}
		}
	}

	if requeued > 0 || failed > 0 {
		m.logger.Info("recovered jobs", "requeued", requeued, "failed", failed)
	}
	return requeued, failed
}

func (m *Manager) failRecovered(id, message string) bool {
	job, err := m.store.Update(id, func(j *models.Job) error {
		j.Status = models.StatusFailed
		j.Error = message
		return nil
	})
	if err != nil {
		if !errors.Is(err, shared.ErrAlreadyTerminal) {
			m.logger.Error("failed to mark job failed", "job", id, "err", err)
		}
		return false
	}
	m.publishStatus(job)
	return true
}
