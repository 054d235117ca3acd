package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/desertthunder/ytmp3/internal/models"
	"github.com/desertthunder/ytmp3/internal/shared"
	"github.com/redis/go-redis/v9"
)

const redisJobPrefix = "job:"

// RedisJournal implements [Journal] on Redis string keys.
//
// Each write refreshes the key expiry, so records of idle jobs age out on
// their own when ttl is set.
type RedisJournal struct {
	client  *redis.Client
	ttl     time.Duration
	timeout time.Duration
}

// NewRedisJournal connects and pings the server.
func NewRedisJournal(opts *redis.Options, ttl time.Duration) (*RedisJournal, error) {
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: redis at %s: %v", shared.ErrServiceUnavailable, opts.Addr, err)
	}

	return &RedisJournal{client: client, ttl: ttl, timeout: 5 * time.Second}, nil
}

func (r *RedisJournal) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), r.timeout)
}

// Save writes the job as JSON.
func (r *RedisJournal) Save(job models.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}

	ctx, cancel := r.ctx()
	defer cancel()
	if err := r.client.Set(ctx, redisJobPrefix+job.ID, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write job: %w", err)
	}
	return nil
}

// Get reads a single job.
func (r *RedisJournal) Get(id string) (models.Job, error) {
	ctx, cancel := r.ctx()
	defer cancel()

	val, err := r.client.Get(ctx, redisJobPrefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return models.Job{}, fmt.Errorf("%w: %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return models.Job{}, fmt.Errorf("failed to read job: %w", err)
	}

	var job models.Job
	if err := json.Unmarshal([]byte(val), &job); err != nil {
		return models.Job{}, fmt.Errorf("failed to decode job %s: %w", id, err)
	}
	return job, nil
}

// Delete removes a job key.
func (r *RedisJournal) Delete(id string) error {
	ctx, cancel := r.ctx()
	defer cancel()
	if err := r.client.Del(ctx, redisJobPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}

// Load scans job:* keys and returns jobs ordered by creation time.
// Keys that expire between the scan and the read are skipped.
func (r *RedisJournal) Load() ([]models.Job, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 6*r.timeout)
	defer cancel()

	var jobs []models.Job
	iter := r.client.Scan(ctx, 0, redisJobPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		val, err := r.client.Get(ctx, iter.Val()).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", iter.Val(), err)
		}

		var job models.Job
		if err := json.Unmarshal([]byte(val), &job); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", iter.Val(), err)
		}
		jobs = append(jobs, job)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan jobs: %w", err)
	}

	sort.SliceStable(jobs, func(i, j int) bool { return jobs[i].CreatedAt.Before(jobs[j].CreatedAt) })
	return jobs, nil
}

// Close closes the client.
func (r *RedisJournal) Close() error {
	return r.client.Close()
}
