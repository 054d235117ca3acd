package repositories

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/cockroachdb/pebble"
	"github.com/desertthunder/ytmp3/internal/models"
	"github.com/desertthunder/ytmp3/internal/shared"
)

var (
	pebbleJobPrefix = []byte("job/")
	pebbleJobUpper  = []byte("job0") // '0' sorts right after '/'
)

// PebbleJournal implements [Journal] on an embedded Pebble store.
type PebbleJournal struct {
	db *pebble.DB
}

// OpenPebbleJournal opens (or creates) a Pebble store in dir.
func OpenPebbleJournal(dir string) (*PebbleJournal, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble store: %w", err)
	}
	return &PebbleJournal{db: db}, nil
}

func pebbleKey(id string) []byte {
	return append(append([]byte{}, pebbleJobPrefix...), id...)
}

// Save writes the job as JSON with a synced write.
func (p *PebbleJournal) Save(job models.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}
	if err := p.db.Set(pebbleKey(job.ID), data, pebble.Sync); err != nil {
		return fmt.Errorf("failed to write job: %w", err)
	}
	return nil
}

// Get reads a single job.
func (p *PebbleJournal) Get(id string) (models.Job, error) {
	value, closer, err := p.db.Get(pebbleKey(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return models.Job{}, fmt.Errorf("%w: %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return models.Job{}, fmt.Errorf("failed to read job: %w", err)
	}
	defer closer.Close()

	var job models.Job
	if err := json.Unmarshal(value, &job); err != nil {
		return models.Job{}, fmt.Errorf("failed to decode job %s: %w", id, err)
	}
	return job, nil
}

// Delete removes a job key.
func (p *PebbleJournal) Delete(id string) error {
	if err := p.db.Delete(pebbleKey(id), pebble.Sync); err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}

// Load scans every job key and returns jobs ordered by creation time.
func (p *PebbleJournal) Load() ([]models.Job, error) {
	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: pebbleJobPrefix,
		UpperBound: pebbleJobUpper,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create iterator: %w", err)
	}
	defer iter.Close()

	var jobs []models.Job
	for iter.First(); iter.Valid(); iter.Next() {
		var job models.Job
		if err := json.Unmarshal(iter.Value(), &job); err != nil {
			return nil, fmt.Errorf("failed to decode job %s: %w", iter.Key(), err)
		}
		jobs = append(jobs, job)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iteration error: %w", err)
	}

	sort.SliceStable(jobs, func(i, j int) bool { return jobs[i].CreatedAt.Before(jobs[j].CreatedAt) })
	return jobs, nil
}

// Close flushes and closes the store.
func (p *PebbleJournal) Close() error {
	return p.db.Close()
}
