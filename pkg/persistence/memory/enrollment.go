package memory

import (
	"context"
	"fmt"

	"github.com/dukex/nurture/pkg/models"
	"github.com/dukex/nurture/pkg/persistence"
	memdb "github.com/hashicorp/go-memdb"
)

type EnrollmentRepository struct {
	db *memdb.MemDB
}

// Create checks the in-flight pair and inserts inside one write transaction, so concurrent
// creates for the same pair are serialized.
func (r *EnrollmentRepository) Create(_ context.Context, enrollment *models.Enrollment) error {
	txn := r.db.Txn(true)
	defer txn.Abort()

	existing, err := inFlight(txn, enrollment.WorkflowID, enrollment.ContactID)
	if err != nil {
		return err
	}

	if existing != nil {
		return persistence.NewEnrollmentError("Create", existing.ID, persistence.ErrEnrollmentInFlight)
	}

	if err := txn.Insert(tableEnrollments, cloneEnrollment(enrollment)); err != nil {
		return fmt.Errorf("failed to insert enrollment: %w", err)
	}

	txn.Commit()

	return nil
}

func (r *EnrollmentRepository) Update(_ context.Context, enrollment *models.Enrollment) error {
	txn := r.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tableEnrollments, "id", enrollment.ID)
	if err != nil {
		return fmt.Errorf("failed to get enrollment: %w", err)
	}

	if raw == nil {
		return persistence.NewEnrollmentError("Update", enrollment.ID, persistence.ErrEnrollmentNotFound)
	}

	if !raw.(*models.Enrollment).Status.InFlight() {
		return persistence.NewEnrollmentError("Update", enrollment.ID, persistence.ErrEnrollmentFinished)
	}

	if err := txn.Insert(tableEnrollments, cloneEnrollment(enrollment)); err != nil {
		return fmt.Errorf("failed to update enrollment: %w", err)
	}

	txn.Commit()

	return nil
}

func (r *EnrollmentRepository) GetByID(_ context.Context, id string) (*models.Enrollment, error) {
	raw, err := r.db.Txn(false).First(tableEnrollments, "id", id)
	if err != nil {
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}

	if raw == nil {
		return nil, persistence.NewEnrollmentError("GetByID", id, persistence.ErrEnrollmentNotFound)
	}

	return cloneEnrollment(raw.(*models.Enrollment)), nil
}

func (r *EnrollmentRepository) FindInFlight(_ context.Context, workflowID, contactID string) (*models.Enrollment, error) {
	existing, err := inFlight(r.db.Txn(false), workflowID, contactID)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		return nil, persistence.ErrEnrollmentNotFound
	}

	return cloneEnrollment(existing), nil
}

func (r *EnrollmentRepository) List(_ context.Context, filter persistence.EnrollmentFilter) ([]*models.Enrollment, error) {
	it, err := r.db.Txn(false).Get(tableEnrollments, "id")
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}

	enrollments := make([]*models.Enrollment, 0)

	for _, enrollment := range collect(it, cloneEnrollment) {
		if filter.WorkflowID != "" && enrollment.WorkflowID != filter.WorkflowID {
			continue
		}

		if filter.ContactID != "" && enrollment.ContactID != filter.ContactID {
			continue
		}

		if filter.Status != "" && enrollment.Status != filter.Status {
			continue
		}

		enrollments = append(enrollments, enrollment)
	}

	return enrollments, nil
}

func inFlight(txn *memdb.Txn, workflowID, contactID string) (*models.Enrollment, error) {
	it, err := txn.Get(tableEnrollments, "pair", workflowID, contactID)
	if err != nil {
		return nil, fmt.Errorf("failed to query enrollments: %w", err)
	}

	for obj := it.Next(); obj != nil; obj = it.Next() {
		if enrollment := obj.(*models.Enrollment); enrollment.Status.InFlight() {
			return enrollment, nil
		}
	}

	return nil, nil
}
