package persistence_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dukex/nurture/pkg/persistence"
	"github.com/stretchr/testify/assert"
)

func TestRecordErrors(t *testing.T) {
	t.Parallel()

	t.Run("wrapped sentinels are detectable", func(t *testing.T) {
		workflowErr := persistence.NewWorkflowError("GetByID", "workflow-123", persistence.ErrWorkflowNotFound)
		enrollmentErr := persistence.NewEnrollmentError("Create", "enrollment-1", persistence.ErrEnrollmentInFlight)

		assert.True(t, persistence.IsWorkflowNotFound(workflowErr))
		assert.True(t, errors.Is(enrollmentErr, persistence.ErrEnrollmentInFlight))
		assert.False(t, persistence.IsEnrollmentNotFound(enrollmentErr))
	})

	t.Run("error message contains context", func(t *testing.T) {
		err := persistence.NewContactError("UpdateField", "contact-9", persistence.ErrContactNotFound)

		assert.Contains(t, err.Error(), "UpdateField")
		assert.Contains(t, err.Error(), "contact contact-9")
		assert.Contains(t, err.Error(), "contact not found")
	})

	t.Run("IsNotFound covers every record kind", func(t *testing.T) {
		assert.True(t, persistence.IsNotFound(fmt.Errorf("lookup: %w", persistence.ErrTagNotFound)))
		assert.True(t, persistence.IsNotFound(persistence.NewJobError("Delete", "j", persistence.ErrJobNotFound)))
		assert.False(t, persistence.IsNotFound(persistence.ErrEnrollmentInFlight))
		assert.False(t, persistence.IsNotFound(nil))
	})
}
