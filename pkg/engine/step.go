package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/dukex/nurture/pkg/models"
)

// outcome is what one step produced. delay is set only by delay steps.
type outcome struct {
	result models.ActionResult
	branch string
	delay  *time.Duration
	extra  map[string]any
}

func (o outcome) toMap() map[string]any {
	result := o.result.ToMap()

	for key, value := range o.extra {
		result[key] = value
	}

	if o.branch != "" {
		result["branch"] = o.branch
	}

	return result
}

func (e *Engine) run(ctx context.Context, workflow *models.Workflow, enrollment *models.Enrollment, step *models.WorkflowStep, contact *models.Contact) (outcome, error) {
	switch step.Type {
	case models.StepTypeTrigger:
		return outcome{result: models.ActionResult{Success: true}}, nil
	case models.StepTypeAction:
		return e.runAction(ctx, workflow, enrollment, step, contact)
	case models.StepTypeCondition:
		return runCondition(step, contact), nil
	case models.StepTypeDelay:
		return e.runDelay(step), nil
	default:
		return outcome{result: models.Failed("unknown step type %q", step.Type)}, nil
	}
}

func (e *Engine) runAction(ctx context.Context, workflow *models.Workflow, enrollment *models.Enrollment, step *models.WorkflowStep, contact *models.Contact) (outcome, error) {
	handler, ok := e.handlers.Handler(step.ActionType)
	if !ok {
		return outcome{result: models.Failed("unknown action type %q", step.ActionType)}, nil
	}

	result, err := handler.Execute(ctx, contact, step.Config, handlerData(workflow, enrollment, step, contact))
	if err != nil {
		return outcome{}, fmt.Errorf("action %s: %w", step.ActionType, err)
	}

	return outcome{result: result}, nil
}

func runCondition(step *models.WorkflowStep, contact *models.Contact) outcome {
	config := models.ParseConditionConfig(step.Config)
	matched := EvaluateCondition(config, contact)

	branch := models.BranchNo
	if matched {
		branch = models.BranchYes
	}

	return outcome{
		result: models.ActionResult{Success: matched, Message: fmt.Sprintf("%s %s %v", config.Field, config.Operator, config.Value)},
		branch: branch,
	}
}

func (e *Engine) runDelay(step *models.WorkflowStep) outcome {
	config := models.ParseDelayConfig(step.Config)
	delay := config.Duration()
	resumeAt := e.now().UTC().Add(delay)

	return outcome{
		result: models.Succeeded("waiting %d %s", config.Delay, config.Unit),
		delay:  &delay,
		extra: map[string]any{
			"delay_seconds": config.Seconds(),
			"resume_at":     resumeAt.Format(time.RFC3339),
		},
	}
}

// handlerData is the bag action handlers see: the enrollment context plus the ids of the
// running step and a contact snapshot.
func handlerData(workflow *models.Workflow, enrollment *models.Enrollment, step *models.WorkflowStep, contact *models.Contact) map[string]any {
	data := cloneData(enrollment.Context)
	data[models.ContextContact] = contact.ToMap()
	data[models.ContextWorkflowID] = workflow.ID
	data[models.ContextEnrollmentID] = enrollment.ID
	data[models.ContextStepID] = step.ID
	data[models.ContextTriggerType] = workflow.TriggerType

	return data
}
