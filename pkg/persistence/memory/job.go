package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dukex/nurture/pkg/models"
	"github.com/dukex/nurture/pkg/persistence"
	memdb "github.com/hashicorp/go-memdb"
)

type JobRepository struct {
	db *memdb.MemDB
}

func (r *JobRepository) Save(_ context.Context, job *models.Job) error {
	return insert(r.db, tableJobs, cloneJob(job))
}

func (r *JobRepository) ClaimDue(_ context.Context, now time.Time, lease time.Duration, limit int) ([]*models.Job, error) {
	txn := r.db.Txn(true)
	defer txn.Abort()

	it, err := txn.Get(tableJobs, "id")
	if err != nil {
		return nil, fmt.Errorf("failed to scan jobs: %w", err)
	}

	due := make([]*models.Job, 0)

	for obj := it.Next(); obj != nil; obj = it.Next() {
		if job := obj.(*models.Job); job.Due(now) {
			due = append(due, cloneJob(job))
		}
	}

	sort.SliceStable(due, func(i, j int) bool {
		return due[i].NotBefore.Before(due[j].NotBefore)
	})

	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	lockedUntil := now.Add(lease)

	for _, job := range due {
		job.Attempts++
		job.LockedUntil = &lockedUntil

		if err := txn.Insert(tableJobs, cloneJob(job)); err != nil {
			return nil, fmt.Errorf("failed to lease job: %w", err)
		}
	}

	txn.Commit()

	return due, nil
}

func (r *JobRepository) Delete(_ context.Context, id string) error {
	txn := r.db.Txn(true)
	defer txn.Abort()

	deleted, err := txn.DeleteAll(tableJobs, "id", id)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}

	if deleted == 0 {
		return persistence.NewJobError("Delete", id, persistence.ErrJobNotFound)
	}

	txn.Commit()

	return nil
}

func (r *JobRepository) CountByEnrollment(_ context.Context, enrollmentID, exceptJobID string) (int, error) {
	it, err := r.db.Txn(false).Get(tableJobs, "enrollment", enrollmentID)
	if err != nil {
		return 0, fmt.Errorf("failed to count jobs: %w", err)
	}

	count := 0

	for obj := it.Next(); obj != nil; obj = it.Next() {
		if obj.(*models.Job).ID != exceptJobID {
			count++
		}
	}

	return count, nil
}
