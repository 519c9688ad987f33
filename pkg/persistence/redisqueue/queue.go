// Package redisqueue implements persistence.JobRepository on Redis: job bodies live in a
// hash and readiness in a sorted set scored by the time a job may next be claimed.
package redisqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dukex/nurture/pkg/models"
	"github.com/dukex/nurture/pkg/persistence"
	"github.com/redis/go-redis/v9"
)

// claimScript leases due ids by pushing their score to the lease expiry, so an
// unacknowledged job becomes claimable again once the lease runs out.
var claimScript = redis.NewScript(`
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, tonumber(ARGV[3]))
for _, id in ipairs(ids) do
	redis.call('ZADD', KEYS[1], ARGV[2], id)
	redis.call('HINCRBY', KEYS[2], id, 1)
end
return ids
`)

type JobRepository struct {
	client redis.UniversalClient
	logger *slog.Logger
	prefix string
}

func NewJobRepository(client redis.UniversalClient, logger *slog.Logger, prefix string) *JobRepository {
	if prefix == "" {
		prefix = "nurture"
	}

	return &JobRepository{client: client, logger: logger, prefix: prefix}
}

// Connect parses a redis:// URL and verifies the server is reachable.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = client.Ping(pingCtx).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

func (r *JobRepository) jobsKey() string     { return r.prefix + ":jobs" }
func (r *JobRepository) dueKey() string      { return r.prefix + ":jobs:due" }
func (r *JobRepository) attemptsKey() string { return r.prefix + ":jobs:attempts" }

func (r *JobRepository) enrollmentKey(enrollmentID string) string {
	return r.prefix + ":jobs:enrollment:" + enrollmentID
}

func score(t time.Time) float64 {
	return float64(t.UnixMilli())
}

func (r *JobRepository) Save(ctx context.Context, job *models.Job) error {
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}

	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	ready := job.NotBefore
	if job.LockedUntil != nil && job.LockedUntil.After(ready) {
		ready = *job.LockedUntil
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.jobsKey(), job.ID, body)
		pipe.HSet(ctx, r.attemptsKey(), job.ID, job.Attempts)
		pipe.ZAdd(ctx, r.dueKey(), redis.Z{Score: score(ready), Member: job.ID})
		pipe.SAdd(ctx, r.enrollmentKey(job.EnrollmentID), job.ID)

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}

	return nil
}

func (r *JobRepository) ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*models.Job, error) {
	lockedUntil := now.Add(lease)

	result, err := claimScript.Run(ctx, r.client,
		[]string{r.dueKey(), r.attemptsKey()},
		strconv.FormatFloat(score(now), 'f', 0, 64),
		strconv.FormatFloat(score(lockedUntil), 'f', 0, 64),
		limit,
	).StringSlice()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to claim jobs: %w", err)
	}

	if len(result) == 0 {
		return []*models.Job{}, nil
	}

	bodies, err := r.client.HMGet(ctx, r.jobsKey(), result...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load claimed jobs: %w", err)
	}

	attempts, err := r.client.HMGet(ctx, r.attemptsKey(), result...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load job attempts: %w", err)
	}

	jobs := make([]*models.Job, 0, len(result))

	for i, id := range result {
		body, ok := bodies[i].(string)
		if !ok {
			r.logger.WarnContext(ctx, "Dropping due entry without job body", "job_id", id)
			r.client.ZRem(ctx, r.dueKey(), id)

			continue
		}

		var job models.Job
		if err := json.Unmarshal([]byte(body), &job); err != nil {
			return nil, fmt.Errorf("failed to unmarshal job %s: %w", id, err)
		}

		if count, ok := attempts[i].(string); ok {
			job.Attempts, _ = strconv.Atoi(count)
		}

		job.LockedUntil = &lockedUntil
		jobs = append(jobs, &job)
	}

	return jobs, nil
}

func (r *JobRepository) Delete(ctx context.Context, id string) error {
	body, err := r.client.HGet(ctx, r.jobsKey(), id).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return persistence.NewJobError("Delete", id, persistence.ErrJobNotFound)
		}

		return fmt.Errorf("failed to load job: %w", err)
	}

	var job models.Job
	if err := json.Unmarshal([]byte(body), &job); err != nil {
		return fmt.Errorf("failed to unmarshal job %s: %w", id, err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, r.jobsKey(), id)
		pipe.HDel(ctx, r.attemptsKey(), id)
		pipe.ZRem(ctx, r.dueKey(), id)
		pipe.SRem(ctx, r.enrollmentKey(job.EnrollmentID), id)

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}

	return nil
}

func (r *JobRepository) CountByEnrollment(ctx context.Context, enrollmentID, exceptJobID string) (int, error) {
	ids, err := r.client.SMembers(ctx, r.enrollmentKey(enrollmentID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count jobs: %w", err)
	}

	count := 0

	for _, id := range ids {
		if id != exceptJobID {
			count++
		}
	}

	return count, nil
}
