// Package score provides the add_score action implementation.
package score

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/nurture/pkg/models"
	"github.com/dukex/nurture/pkg/persistence"
	"github.com/dukex/nurture/pkg/protocol"
)

const (
	defaultReason  = "Workflow automation"
	sourceWorkflow = "workflow"
)

// Action adds points to the contact lead score.
type Action struct {
	scores persistence.ScoreRepository
	events protocol.TriggerEmitter
	logger *slog.Logger
}

func NewAction(deps protocol.Dependencies) *Action {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Action{
		scores: deps.Scores,
		events: deps.Events,
		logger: logger.With("module", "action", "action_type", "add_score"),
	}
}

func (a *Action) Execute(ctx context.Context, contact *models.Contact, config map[string]any, data map[string]any) (models.ActionResult, error) {
	points := models.ConfigInt(config, "points", 0)
	if points == 0 {
		return models.Succeeded("no points to add"), nil
	}

	reason := models.ConfigString(config, "reason")
	if reason == "" {
		reason = defaultReason
	}

	entry, err := a.scores.Add(ctx, contact.ID, points, reason, sourceWorkflow)
	if errors.Is(err, persistence.ErrContactNotFound) {
		return models.Failed("contact %s not found", contact.ID), nil
	}

	if err != nil {
		return models.ActionResult{}, fmt.Errorf("failed to add score: %w", err)
	}

	contact.LeadScore = entry.NewScore

	event := models.TriggerEvent{
		TriggerType: models.TriggerScoreChanged,
		ContactID:   contact.ID,
		Context: map[string]any{
			"points":         entry.Points,
			"previous_score": entry.PreviousScore,
			"new_score":      entry.NewScore,
		},
	}
	if err := protocol.EmitFromWorkflow(ctx, a.events, data, event); err != nil {
		a.logger.WarnContext(ctx, "failed to emit score event", "contact_id", contact.ID, "error", err)
	}

	return models.Succeeded("score changed from %d to %d", entry.PreviousScore, entry.NewScore).
		With("points", entry.Points).
		With("previous_score", entry.PreviousScore).
		With("new_score", entry.NewScore), nil
}
