// package repositories provides the job table and its durable journals.
package repositories

import (
	"fmt"

	"github.com/desertthunder/ytmp3/internal/models"
	"github.com/desertthunder/ytmp3/internal/shared"
	"github.com/redis/go-redis/v9"
)

// Journal is a durable write-through copy of the job table.
type Journal interface {
	Save(job models.Job) error   // Save inserts or replaces a job
	Delete(id string) error      // Delete removes a job, missing ids are not an error
	Load() ([]models.Job, error) // Load returns every stored job
	Close() error                // Close releases the underlying handle
}

// OpenJournal builds the journal selected by config.Store.Backend.
//
// The memory backend has no journal and returns nil.
func OpenJournal(config *shared.Config) (Journal, error) {
	switch config.Store.Backend {
	case shared.BackendMemory, "":
		return nil, nil
	case shared.BackendSQLite:
		db, err := shared.NewDatabase(config.Database.Path)
		if err != nil {
			return nil, err
		}
		shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)
		if err := shared.RunMigrations(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return NewSQLiteJournal(db), nil
	case shared.BackendPebble:
		return OpenPebbleJournal(config.Store.Path)
	case shared.BackendRedis:
		return NewRedisJournal(&redis.Options{
			Addr:     config.Redis.Addr,
			Password: config.Redis.Password,
			DB:       config.Redis.DB,
		}, config.Redis.TTL)
	default:
		return nil, fmt.Errorf("%w: unknown store backend %q", shared.ErrInvalidConfig, config.Store.Backend)
	}
}
