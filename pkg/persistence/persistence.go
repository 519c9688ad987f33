// Package persistence provides the storage abstraction for workflows, enrollments, the job
// queue and the contact records workflows act on.
package persistence

import (
	"context"
	"time"

	"github.com/dukex/nurture/pkg/models"
)

type Persistence interface {
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error

	WorkflowRepository() WorkflowRepository
	EnrollmentRepository() EnrollmentRepository
	ExecutionRepository() ExecutionRepository
	JobRepository() JobRepository

	ContactRepository() ContactRepository
	TagRepository() TagRepository
	ScoreRepository() ScoreRepository
	TemplateRepository() TemplateRepository
	UserRepository() UserRepository
}

// WorkflowRepository stores workflow definitions together with their steps and connections.
type WorkflowRepository interface {
	GetAll(ctx context.Context) ([]*models.Workflow, error)
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	FindActiveByTrigger(ctx context.Context, triggerType string) ([]*models.Workflow, error)
	Save(ctx context.Context, workflow *models.Workflow) error
	Delete(ctx context.Context, id string) error
}

// EnrollmentFilter narrows enrollment listings. Zero values match everything.
type EnrollmentFilter struct {
	WorkflowID string
	ContactID  string
	Status     models.EnrollmentStatus
}

type EnrollmentRepository interface {
	// Create inserts a new enrollment and returns ErrEnrollmentInFlight when the pair
	// already has an active or waiting enrollment.
	Create(ctx context.Context, enrollment *models.Enrollment) error
	// Update writes the enrollment only while the stored row is still active or waiting.
	// Terminal enrollments are never rewritten: Update returns ErrEnrollmentFinished.
	Update(ctx context.Context, enrollment *models.Enrollment) error
	GetByID(ctx context.Context, id string) (*models.Enrollment, error)
	// FindInFlight returns the active or waiting enrollment for the pair, or ErrEnrollmentNotFound.
	FindInFlight(ctx context.Context, workflowID, contactID string) (*models.Enrollment, error)
	List(ctx context.Context, filter EnrollmentFilter) ([]*models.Enrollment, error)
}

type ExecutionRepository interface {
	Save(ctx context.Context, execution *models.StepExecution) error
	ListByEnrollment(ctx context.Context, enrollmentID string) ([]*models.StepExecution, error)
	CountProcessing(ctx context.Context, enrollmentID string) (int, error)
}

// JobRepository is the durable queue of step invocations.
type JobRepository interface {
	Save(ctx context.Context, job *models.Job) error
	// ClaimDue leases up to limit due jobs until now+lease and increments their attempts.
	ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*models.Job, error)
	Delete(ctx context.Context, id string) error
	CountByEnrollment(ctx context.Context, enrollmentID, exceptJobID string) (int, error)
}

type ContactRepository interface {
	GetByID(ctx context.Context, id string) (*models.Contact, error)
	Save(ctx context.Context, contact *models.Contact) error
	// UpdateField writes one allow-listed attribute as a single atomic update.
	UpdateField(ctx context.Context, id, key, value string) (*models.Contact, error)
}

type TagRepository interface {
	GetByID(ctx context.Context, id string) (*models.Tag, error)
	GetByName(ctx context.Context, name string) (*models.Tag, error)
	Save(ctx context.Context, tag *models.Tag) error
	HasContactTag(ctx context.Context, contactID, tagID string) (bool, error)
	Attach(ctx context.Context, contactTag *models.ContactTag) error
	Detach(ctx context.Context, contactID, tagID string) error
	ContactTags(ctx context.Context, contactID string) ([]*models.ContactTag, error)
}

type ScoreRepository interface {
	// Add applies points to the contact score and appends the history record atomically.
	Add(ctx context.Context, contactID string, points int, reason, source string) (*models.ScoreHistory, error)
	History(ctx context.Context, contactID string) ([]*models.ScoreHistory, error)
}

type TemplateRepository interface {
	GetByID(ctx context.Context, id string) (*models.MessageTemplate, error)
	Save(ctx context.Context, template *models.MessageTemplate) error
}

type UserRepository interface {
	Save(ctx context.Context, user *models.User) error
	GetByIDs(ctx context.Context, ids []string) ([]*models.User, error)
	ByRole(ctx context.Context, role string) ([]*models.User, error)
	SaveNotification(ctx context.Context, notification *models.Notification) error
	Notifications(ctx context.Context, userID string) ([]*models.Notification, error)
}
