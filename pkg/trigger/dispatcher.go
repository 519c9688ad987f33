package trigger

import (
	"context"
	"fmt"
	"log/slog"
	"maps"

	"github.com/dukex/nurture/pkg/models"
	"github.com/dukex/nurture/pkg/persistence"
)

// Enroller is the engine surface dispatch needs.
type Enroller interface {
	Enroll(ctx context.Context, workflow *models.Workflow, contact *models.Contact, data map[string]any) (*models.Enrollment, error)
}

type Option func(*Dispatcher)

// WithCascade lets events produced by one workflow enroll contacts into other workflows.
// The originating workflow itself is still skipped.
func WithCascade(allow bool) Option {
	return func(d *Dispatcher) { d.allowCascade = allow }
}

type Dispatcher struct {
	workflows    persistence.WorkflowRepository
	contacts     persistence.ContactRepository
	enroller     Enroller
	allowCascade bool
	logger       *slog.Logger
}

func NewDispatcher(workflows persistence.WorkflowRepository, contacts persistence.ContactRepository, enroller Enroller, logger *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		workflows: workflows,
		contacts:  contacts,
		enroller:  enroller,
		logger:    logger.With("module", "trigger_dispatcher"),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// FindWorkflowsForTrigger returns the active workflows of triggerType whose trigger_config
// accepts the conditions.
func (d *Dispatcher) FindWorkflowsForTrigger(ctx context.Context, triggerType string, conditions map[string]any) ([]*models.Workflow, error) {
	candidates, err := d.workflows.FindActiveByTrigger(ctx, triggerType)
	if err != nil {
		return nil, fmt.Errorf("failed to find workflows for %s: %w", triggerType, err)
	}

	matched := make([]*models.Workflow, 0, len(candidates))

	for _, workflow := range candidates {
		if !workflow.IsActive() || workflow.TriggerType != triggerType {
			continue
		}

		if MatchesTriggerConditions(workflow.TriggerConfig, conditions) {
			matched = append(matched, workflow)
		}
	}

	return matched, nil
}

// Dispatch enrolls the event's contact into every matching workflow. A failure on one
// workflow is logged and does not stop the others.
func (d *Dispatcher) Dispatch(ctx context.Context, event models.TriggerEvent) ([]*models.Enrollment, error) {
	logger := d.logger.With("trigger_type", event.TriggerType, "contact_id", event.ContactID)

	origin := event.OriginatingWorkflowID()
	if origin != "" && models.HandlerProducible[event.TriggerType] && !d.allowCascade {
		logger.DebugContext(ctx, "Ignoring event produced by a workflow", "originating_workflow_id", origin)

		return nil, nil
	}

	workflows, err := d.FindWorkflowsForTrigger(ctx, event.TriggerType, event.Conditions)
	if err != nil {
		return nil, err
	}

	if len(workflows) == 0 {
		return nil, nil
	}

	contact, err := d.contacts.GetByID(ctx, event.ContactID)
	if err != nil {
		return nil, fmt.Errorf("failed to load contact %s: %w", event.ContactID, err)
	}

	data := eventData(event)
	enrollments := make([]*models.Enrollment, 0, len(workflows))

	for _, workflow := range workflows {
		if origin != "" && workflow.ID == origin {
			continue
		}

		enrollment, err := d.enroller.Enroll(ctx, workflow, contact, data)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to enroll contact", "workflow_id", workflow.ID, "error", err)

			continue
		}

		if enrollment != nil {
			enrollments = append(enrollments, enrollment)
		}
	}

	logger.InfoContext(ctx, "Trigger dispatched", "matched", len(workflows), "enrolled", len(enrollments))

	return enrollments, nil
}

// eventData is the enrollment context: the event context with the conditions and the
// trigger type folded in.
func eventData(event models.TriggerEvent) map[string]any {
	data := make(map[string]any, len(event.Context)+len(event.Conditions)+1)
	maps.Copy(data, event.Context)

	for key, value := range event.Conditions {
		if _, exists := data[key]; !exists {
			data[key] = value
		}
	}

	data[models.ContextTriggerType] = event.TriggerType

	return data
}
