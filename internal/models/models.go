// package models defines the data model for the download service
package models

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a [Job].
type Status string

const (
	StatusQueued      Status = "queued"
	StatusDownloading Status = "downloading"
	StatusConverting  Status = "converting"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusCanceled    Status = "canceled"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusQueued, StatusDownloading, StatusConverting, StatusCompleted, StatusFailed, StatusCanceled}

// transitions holds the allowed next states for each state. Terminal states have none.
var transitions = map[Status][]Status{
	StatusQueued:      {StatusDownloading, StatusCanceled, StatusFailed},
	StatusDownloading: {StatusConverting, StatusFailed, StatusCanceled},
	StatusConverting:  {StatusCompleted, StatusFailed, StatusCanceled},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusQueued, StatusDownloading, StatusConverting, StatusCompleted, StatusFailed, StatusCanceled:
		return true
	}
	return false
}

// IsActive reports whether a worker slot currently owns the job.
func (s Status) IsActive() bool {
	return s == StatusDownloading || s == StatusConverting
}

// IsTerminal reports whether the job can no longer change.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCanceled
}

// CanTransition reports whether moving from s to next is allowed.
// Staying in the same non-terminal state is allowed (progress updates).
func (s Status) CanTransition(next Status) bool {
	if s == next {
		return !s.IsTerminal()
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s Status) String() string { return string(s) }

// Repository defines the job table operations.
//
// Update applies fn to a copy of the stored job and commits it atomically;
// updates of one job are serialized, updates of different jobs are independent.
type Repository interface {
	Put(job Job) error                                      // Put inserts a new job
	Get(id string) (Job, error)                             // Get returns a copy of a job
	List() []Job                                            // List returns copies in submission order
	Update(id string, fn func(job *Job) error) (Job, error) // Update performs an atomic read-modify-write
	Delete(id string) error                                 // Delete removes a job record
}

// File describes a converted artifact in the output directory.
type File struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
	JobID     string    `json:"job_id,omitempty"`
}

// Stats summarizes the job table and the output directory.
type Stats struct {
	DownloadCount int            `json:"download_count"` // queued + active
	TotalFiles    int            `json:"total_files"`
	DiskUsage     int64          `json:"disk_usage"`
	ByStatus      map[Status]int `json:"by_status"`
}

// Job is one requested download.
type Job struct {
	ID         string     `json:"id"`
	SourceURL  string     `json:"source_url"`
	CustomName string     `json:"custom_name,omitempty"`
	Status     Status     `json:"status"`
	Progress   float64    `json:"progress"`
	Title      string     `json:"title,omitempty"`
	Uploader   string     `json:"uploader,omitempty"`
	Duration   float64    `json:"duration,omitempty"` // seconds
	OutputPath string     `json:"output_path,omitempty"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Revision   uint64     `json:"revision"` // bumped by every committed update
}

// NewJob creates a queued job for sourceURL.
func NewJob(id, sourceURL, customName string, now time.Time) Job {
	return Job{
		ID:         id,
		SourceURL:  sourceURL,
		CustomName: customName,
		Status:     StatusQueued,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Validate checks field invariants tied to the status.
func (j *Job) Validate() error {
	switch {
	case j.ID == "":
		return fmt.Errorf("job id is required")
	case j.SourceURL == "":
		return fmt.Errorf("job %s: source url is required", j.ID)
	case !j.Status.Valid():
		return fmt.Errorf("job %s: unknown status %q", j.ID, j.Status)
	case j.Progress < 0 || j.Progress > 100:
		return fmt.Errorf("job %s: progress %.2f out of range", j.ID, j.Progress)
	case j.OutputPath != "" && j.Status != StatusCompleted:
		return fmt.Errorf("job %s: output path set while %s", j.ID, j.Status)
	case j.Error != "" && j.Status != StatusFailed:
		return fmt.Errorf("job %s: error set while %s", j.ID, j.Status)
	case j.Status == StatusCompleted && j.OutputPath == "":
		return fmt.Errorf("job %s: completed without output path", j.ID)
	}
	return nil
}

// Age returns how long ago the job reached a terminal state, or zero while it is still running.
func (j *Job) Age(now time.Time) time.Duration {
	if j.FinishedAt == nil {
		return 0
	}
	return now.Sub(*j.FinishedAt)
}
