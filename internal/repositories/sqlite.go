package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/ytmp3/internal/models"
	"github.com/desertthunder/ytmp3/internal/shared"
)

const jobColumns = `id, source_url, custom_name, status, progress, title, uploader, duration, output_path, error, created_at, updated_at, finished_at, revision`

// SQLiteJournal implements [Journal] on the jobs table.
//
// Sequence numbers keep the original submission order across restarts.
type SQLiteJournal struct {
	db *sql.DB
}

// NewSQLiteJournal creates a journal on a migrated database.
func NewSQLiteJournal(db *sql.DB) *SQLiteJournal {
	return &SQLiteJournal{db: db}
}

// Save upserts a job. New rows get the next sequence number.
func (r *SQLiteJournal) Save(job models.Job) error {
	query := `
		INSERT INTO jobs (sequence, ` + jobColumns + `)
		VALUES ((SELECT COALESCE(MAX(sequence), 0) + 1 FROM jobs), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			custom_name = excluded.custom_name,
			status = excluded.status,
			progress = excluded.progress,
			title = excluded.title,
			uploader = excluded.uploader,
			duration = excluded.duration,
			output_path = excluded.output_path,
			error = excluded.error,
			updated_at = excluded.updated_at,
			finished_at = excluded.finished_at,
			revision = excluded.revision
	`

	var finishedAt any
	if job.FinishedAt != nil {
		finishedAt = *job.FinishedAt
	}

	_, err := r.db.Exec(query,
		job.ID,
		job.SourceURL,
		nullable(job.CustomName),
		string(job.Status),
		job.Progress,
		nullable(job.Title),
		nullable(job.Uploader),
		job.Duration,
		nullable(job.OutputPath),
		nullable(job.Error),
		job.CreatedAt,
		job.UpdatedAt,
		finishedAt,
		job.Revision,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert job: %w", err)
	}
	return nil
}

// Get retrieves a job by id.
func (r *SQLiteJournal) Get(id string) (models.Job, error) {
	row := r.db.QueryRow(`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Job{}, fmt.Errorf("%w: %s", shared.ErrNotFound, id)
	}
	return job, err
}

// Delete removes a job row.
func (r *SQLiteJournal) Delete(id string) error {
	if _, err := r.db.Exec(`DELETE FROM jobs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}

// Load returns all jobs ordered by sequence.
func (r *SQLiteJournal) Load() ([]models.Job, error) {
	rows, err := r.db.Query(`SELECT ` + jobColumns + ` FROM jobs ORDER BY sequence ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return jobs, nil
}

// Close closes the database.
func (r *SQLiteJournal) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanJob scans one row selected with jobColumns.
func scanJob(row rowScanner) (models.Job, error) {
	var (
		job        models.Job
		status     string
		customName sql.NullString
		title      sql.NullString
		uploader   sql.NullString
		outputPath sql.NullString
		errMsg     sql.NullString
		createdAt  time.Time
		updatedAt  time.Time
		finishedAt sql.NullTime
	)

	err := row.Scan(&job.ID, &job.SourceURL, &customName, &status, &job.Progress, &title, &uploader, &job.Duration,
		&outputPath, &errMsg, &createdAt, &updatedAt, &finishedAt, &job.Revision)
	if errors.Is(err, sql.ErrNoRows) {
		return job, err
	}
	if err != nil {
		return job, fmt.Errorf("failed to scan job: %w", err)
	}

	job.Status = models.Status(status)
	job.CustomName = customName.String
	job.Title = title.String
	job.Uploader = uploader.String
	job.OutputPath = outputPath.String
	job.Error = errMsg.String
	job.CreatedAt = createdAt
	job.UpdatedAt = updatedAt
	if finishedAt.Valid {
		t := finishedAt.Time
		job.FinishedAt = &t
	}
	return job, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
