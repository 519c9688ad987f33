// Package field provides the update_field action implementation.
package field

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/nurture/pkg/mergetag"
	"github.com/dukex/nurture/pkg/models"
	"github.com/dukex/nurture/pkg/persistence"
	"github.com/dukex/nurture/pkg/protocol"
)

// Operation is how the configured value combines with the current one.
type Operation string

const (
	OperationSet     Operation = "set"
	OperationAppend  Operation = "append"
	OperationPrepend Operation = "prepend"
	OperationClear   Operation = "clear"
)

const defaultSeparator = " "

// Action writes one allow-listed contact attribute.
type Action struct {
	contacts  persistence.ContactRepository
	mergeTags *mergetag.Engine
	events    protocol.TriggerEmitter
	logger    *slog.Logger
}

func NewAction(deps protocol.Dependencies) *Action {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Action{
		contacts:  deps.Contacts,
		mergeTags: deps.MergeTags,
		events:    deps.Events,
		logger:    logger.With("module", "action", "action_type", "update_field"),
	}
}

func (a *Action) Execute(ctx context.Context, contact *models.Contact, config map[string]any, data map[string]any) (models.ActionResult, error) {
	key := models.ConfigString(config, "field")
	if key == "" {
		return models.Failed("field is required"), nil
	}

	if !models.UpdatableFields[key] {
		return models.Failed("field %q is not updatable", key), nil
	}

	operation := Operation(models.ConfigString(config, "operation"))
	if operation == "" {
		operation = OperationSet
	}

	value := models.ConfigString(config, "value")
	if a.mergeTags != nil {
		value = a.mergeTags.Resolve(value, data)
	}

	current, _ := contact.Field(key)
	previous := mergetag.Stringify(current)

	separator := defaultSeparator
	if raw, ok := config["separator"].(string); ok {
		separator = raw
	}

	var next string

	switch operation {
	case OperationSet:
		next = value
	case OperationAppend:
		next = join(previous, value, separator)
	case OperationPrepend:
		next = join(value, previous, separator)
	case OperationClear:
		next = ""
	default:
		return models.Failed("unknown operation %q", operation), nil
	}

	updated, err := a.contacts.UpdateField(ctx, contact.ID, key, next)
	if errors.Is(err, persistence.ErrContactNotFound) {
		return models.Failed("contact %s not found", contact.ID), nil
	}

	if err != nil {
		return models.ActionResult{}, fmt.Errorf("failed to update field %s: %w", key, err)
	}

	*contact = *updated

	event := models.TriggerEvent{
		TriggerType: models.TriggerFieldUpdated,
		ContactID:   contact.ID,
		Conditions:  map[string]any{"field": key},
		Context:     map[string]any{"field": key, "old_value": previous, "new_value": next},
	}
	if err := protocol.EmitFromWorkflow(ctx, a.events, data, event); err != nil {
		a.logger.WarnContext(ctx, "failed to emit field event", "field", key, "error", err)
	}

	return models.Succeeded("field %s updated", key).
		With("field", key).
		With("old_value", previous).
		With("new_value", next), nil
}

func join(left, right, separator string) string {
	if left == "" {
		return right
	}

	if right == "" {
		return left
	}

	return left + separator + right
}
