package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dukex/nurture/pkg/engine"
	"github.com/dukex/nurture/pkg/models"
	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"
)

// ActionCatalog is the registry surface workflow validation needs.
type ActionCatalog interface {
	IsActionRegistered(actionType string) bool
	ActionSchema(actionType string) (map[string]any, bool)
}

// GraphValidator checks workflow definitions. Structure is checked on every save; the
// publish checks add the active-workflow invariant and per-step config.
type GraphValidator struct {
	validate *validator.Validate
	actions  ActionCatalog
}

func NewGraphValidator(validate *validator.Validate, actions ActionCatalog) *GraphValidator {
	return &GraphValidator{validate: validate, actions: actions}
}

// ValidateStructure checks fields, step types and that every connection joins two steps of
// the workflow with the right kind of label.
func (v *GraphValidator) ValidateStructure(workflow *models.Workflow) error {
	if workflow == nil {
		return ErrWorkflowNil
	}

	if strings.TrimSpace(workflow.Name) == "" {
		return ErrWorkflowNameRequired
	}

	if err := v.validate.Struct(workflow); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	steps := make(map[string]*models.WorkflowStep, len(workflow.Steps))

	for _, step := range workflow.Steps {
		if step.ID == "" {
			return fmt.Errorf("%w: step id is required", ErrInvalidStep)
		}

		if _, duplicate := steps[step.ID]; duplicate {
			return fmt.Errorf("%w: duplicate step id %s", ErrInvalidStep, step.ID)
		}

		if err := v.validate.Struct(step); err != nil {
			return fmt.Errorf("%w %s: %w", ErrInvalidStep, step.ID, err)
		}

		steps[step.ID] = step
	}

	for _, connection := range workflow.Connections {
		if err := v.validate.Struct(connection); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConnection, err)
		}

		source, ok := steps[connection.SourceStepID]
		if !ok {
			return fmt.Errorf("%w: unknown source step %s", ErrInvalidConnection, connection.SourceStepID)
		}

		if _, ok := steps[connection.TargetStepID]; !ok {
			return fmt.Errorf("%w: unknown target step %s", ErrInvalidConnection, connection.TargetStepID)
		}

		branch := connection.Branch()

		switch {
		case source.Type == models.StepTypeCondition && branch != models.BranchYes && branch != models.BranchNo:
			return fmt.Errorf("%w: edge from condition %s must be labeled yes or no", ErrInvalidConnection, source.ID)
		case source.Type != models.StepTypeCondition && branch != "":
			return fmt.Errorf("%w: edge from %s step %s must not be labeled", ErrInvalidConnection, source.Type, source.ID)
		}
	}

	return nil
}

// ValidateForPublishing runs the structural checks plus the rules an active workflow must
// meet. All step config problems are reported together.
func (v *GraphValidator) ValidateForPublishing(workflow *models.Workflow) error {
	if err := v.ValidateStructure(workflow); err != nil {
		return err
	}

	if workflow.CountSteps(models.StepTypeTrigger) == 0 {
		return ErrTriggerStepRequired
	}

	if workflow.CountSteps(models.StepTypeAction) == 0 {
		return ErrActionStepRequired
	}

	problems := make([]error, 0)

	for _, step := range workflow.Steps {
		if err := v.validateStepConfig(step); err != nil {
			problems = append(problems, err)
		}
	}

	return errors.Join(problems...)
}

func (v *GraphValidator) validateStepConfig(step *models.WorkflowStep) error {
	switch step.Type {
	case models.StepTypeAction:
		return v.validateActionConfig(step)
	case models.StepTypeCondition:
		config := models.ParseConditionConfig(step.Config)
		if config.Field == "" {
			return fmt.Errorf("%w: condition %s has no field", ErrInvalidStepConfig, step.ID)
		}

		if !engine.IsOperator(config.Operator) {
			return fmt.Errorf("%w: condition %s has unknown operator %q", ErrInvalidStepConfig, step.ID, config.Operator)
		}
	case models.StepTypeDelay:
		if models.ParseDelayConfig(step.Config).Delay <= 0 {
			return fmt.Errorf("%w: delay %s must be positive", ErrInvalidStepConfig, step.ID)
		}
	case models.StepTypeTrigger:
	}

	return nil
}

func (v *GraphValidator) validateActionConfig(step *models.WorkflowStep) error {
	if !v.actions.IsActionRegistered(step.ActionType) {
		return fmt.Errorf("%w: %q on step %s", ErrUnknownActionType, step.ActionType, step.ID)
	}

	schema, ok := v.actions.ActionSchema(step.ActionType)
	if !ok {
		return nil
	}

	config := step.Config
	if config == nil {
		config = map[string]any{}
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(config))
	if err != nil {
		return fmt.Errorf("%w: schema of %s: %w", ErrInvalidStepConfig, step.ActionType, err)
	}

	if result.Valid() {
		return nil
	}

	messages := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		messages = append(messages, desc.String())
	}

	return fmt.Errorf("%w: step %s: %s", ErrInvalidStepConfig, step.ID, strings.Join(messages, "; "))
}
