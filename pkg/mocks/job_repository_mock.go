package mocks

import (
	"context"
	"time"

	"github.com/dukex/nurture/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockJobRepository is a mock implementation of persistence.JobRepository.
type MockJobRepository struct {
	mock.Mock
}

func (m *MockJobRepository) Save(ctx context.Context, job *models.Job) error {
	args := m.Called(ctx, job)

	return args.Error(0)
}

func (m *MockJobRepository) ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*models.Job, error) {
	args := m.Called(ctx, now, lease, limit)
	jobs, _ := args.Get(0).([]*models.Job)

	return jobs, args.Error(1)
}

func (m *MockJobRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

func (m *MockJobRepository) CountByEnrollment(ctx context.Context, enrollmentID, exceptJobID string) (int, error) {
	args := m.Called(ctx, enrollmentID, exceptJobID)

	return args.Int(0), args.Error(1)
}
