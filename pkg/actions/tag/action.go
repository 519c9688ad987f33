// Package tag provides the add_tag and remove_tag action implementations.
package tag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukex/nurture/pkg/models"
	"github.com/dukex/nurture/pkg/persistence"
	"github.com/dukex/nurture/pkg/protocol"
	"github.com/google/uuid"
)

// AddAction attaches a tag to the contact, creating the tag by name when needed.
type AddAction struct {
	tags   persistence.TagRepository
	events protocol.TriggerEmitter
	logger *slog.Logger
}

func NewAddAction(deps protocol.Dependencies) *AddAction {
	return &AddAction{tags: deps.Tags, events: deps.Events, logger: actionLogger(deps, "add_tag")}
}

func (a *AddAction) Execute(ctx context.Context, contact *models.Contact, config map[string]any, data map[string]any) (models.ActionResult, error) {
	tag, failure, err := resolveTag(ctx, a.tags, config, true)
	if err != nil {
		return models.ActionResult{}, err
	}

	if tag == nil {
		return models.Failed("%s", failure), nil
	}

	present, err := a.tags.HasContactTag(ctx, contact.ID, tag.ID)
	if err != nil {
		return models.ActionResult{}, fmt.Errorf("failed to check tag %s: %w", tag.ID, err)
	}

	if present {
		return models.Succeeded("contact already has tag %s", tag.Name).With("tag_id", tag.ID), nil
	}

	err = a.tags.Attach(ctx, &models.ContactTag{
		ContactID: contact.ID,
		TagID:     tag.ID,
		Source:    models.TagSourceWorkflow,
	})
	if err != nil {
		return models.ActionResult{}, fmt.Errorf("failed to attach tag %s: %w", tag.ID, err)
	}

	emitTagEvent(ctx, a.events, a.logger, models.TriggerTagAdded, contact, tag, data)

	return models.Succeeded("tag %s added", tag.Name).With("tag_id", tag.ID), nil
}

// RemoveAction detaches a tag from the contact.
type RemoveAction struct {
	tags   persistence.TagRepository
	events protocol.TriggerEmitter
	logger *slog.Logger
}

func NewRemoveAction(deps protocol.Dependencies) *RemoveAction {
	return &RemoveAction{tags: deps.Tags, events: deps.Events, logger: actionLogger(deps, "remove_tag")}
}

func (a *RemoveAction) Execute(ctx context.Context, contact *models.Contact, config map[string]any, data map[string]any) (models.ActionResult, error) {
	tag, failure, err := resolveTag(ctx, a.tags, config, false)
	if err != nil {
		return models.ActionResult{}, err
	}

	if tag == nil {
		return models.Failed("%s", failure), nil
	}

	present, err := a.tags.HasContactTag(ctx, contact.ID, tag.ID)
	if err != nil {
		return models.ActionResult{}, fmt.Errorf("failed to check tag %s: %w", tag.ID, err)
	}

	if !present {
		return models.Succeeded("contact does not have tag %s", tag.Name).With("tag_id", tag.ID), nil
	}

	if err := a.tags.Detach(ctx, contact.ID, tag.ID); err != nil {
		return models.ActionResult{}, fmt.Errorf("failed to detach tag %s: %w", tag.ID, err)
	}

	emitTagEvent(ctx, a.events, a.logger, models.TriggerTagRemoved, contact, tag, data)

	return models.Succeeded("tag %s removed", tag.Name).With("tag_id", tag.ID), nil
}

// resolveTag finds the configured tag by tag_id, then by tag_name. A nil tag with a message
// is a configuration failure; only lookup faults are returned as errors.
func resolveTag(ctx context.Context, tags persistence.TagRepository, config map[string]any, create bool) (*models.Tag, string, error) {
	if id := models.ConfigString(config, "tag_id"); id != "" {
		tag, err := tags.GetByID(ctx, id)
		if errors.Is(err, persistence.ErrTagNotFound) {
			return nil, fmt.Sprintf("tag %s not found", id), nil
		}

		if err != nil {
			return nil, "", fmt.Errorf("failed to get tag %s: %w", id, err)
		}

		return tag, "", nil
	}

	name := strings.TrimSpace(models.ConfigString(config, "tag_name"))
	if name == "" {
		return nil, "tag_id or tag_name is required", nil
	}

	tag, err := tags.GetByName(ctx, name)
	if err == nil {
		return tag, "", nil
	}

	if !errors.Is(err, persistence.ErrTagNotFound) {
		return nil, "", fmt.Errorf("failed to get tag %q: %w", name, err)
	}

	if !create {
		return nil, fmt.Sprintf("tag %q not found", name), nil
	}

	tag = &models.Tag{ID: uuid.NewString(), Name: name, CreatedAt: time.Now().UTC()}
	if err := tags.Save(ctx, tag); err != nil {
		return nil, "", fmt.Errorf("failed to create tag %q: %w", name, err)
	}

	return tag, "", nil
}

func emitTagEvent(
	ctx context.Context,
	events protocol.TriggerEmitter,
	logger *slog.Logger,
	triggerType string,
	contact *models.Contact,
	tag *models.Tag,
	data map[string]any,
) {
	event := models.TriggerEvent{
		TriggerType: triggerType,
		ContactID:   contact.ID,
		Conditions:  map[string]any{"tag_id": tag.ID},
		Context: map[string]any{
			"tag": map[string]any{"id": tag.ID, "name": tag.Name},
		},
	}

	if err := protocol.EmitFromWorkflow(ctx, events, data, event); err != nil {
		logger.WarnContext(ctx, "failed to emit tag event", "trigger_type", triggerType, "tag_id", tag.ID, "error", err)
	}
}

func actionLogger(deps protocol.Dependencies, action string) *slog.Logger {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return logger.With("module", "action", "action_type", action)
}
