// Package notification provides the send_notification action implementation.
package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/nurture/pkg/mergetag"
	"github.com/dukex/nurture/pkg/models"
	"github.com/dukex/nurture/pkg/persistence"
	"github.com/dukex/nurture/pkg/protocol"
	"github.com/google/uuid"
)

const defaultTitle = "Workflow notification"

// Action notifies back-office users about the contact, either the configured user_ids or
// every admin.
type Action struct {
	users     persistence.UserRepository
	mergeTags *mergetag.Engine
	logger    *slog.Logger
}

func NewAction(deps protocol.Dependencies) *Action {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mergeTags := deps.MergeTags
	if mergeTags == nil {
		mergeTags = mergetag.NewEngine()
	}

	return &Action{
		users:     deps.Users,
		mergeTags: mergeTags,
		logger:    logger.With("module", "action", "action_type", "send_notification"),
	}
}

func (a *Action) Execute(ctx context.Context, contact *models.Contact, config map[string]any, data map[string]any) (models.ActionResult, error) {
	if a.users == nil {
		return models.Failed("users are not available"), nil
	}

	recipients, err := a.recipients(ctx, config)
	if err != nil {
		return models.ActionResult{}, err
	}

	if len(recipients) == 0 {
		return models.Succeeded("no recipients to notify").With("notified", 0), nil
	}

	title := models.ConfigString(config, "title")
	if title == "" {
		title = defaultTitle
	}

	title = a.mergeTags.Resolve(title, data)
	body := a.mergeTags.Resolve(models.ConfigString(config, "message"), data)
	now := time.Now().UTC()

	for _, user := range recipients {
		err := a.users.SaveNotification(ctx, &models.Notification{
			ID:     uuid.NewString(),
			UserID: user.ID,
			Title:  title,
			Body:   body,
			Data: map[string]any{
				"contact_id":    contact.ID,
				"workflow_id":   data[models.ContextWorkflowID],
				"enrollment_id": data[models.ContextEnrollmentID],
			},
			CreatedAt: now,
		})
		if err != nil {
			return models.ActionResult{}, fmt.Errorf("failed to notify user %s: %w", user.ID, err)
		}
	}

	a.logger.InfoContext(ctx, "notification sent", "contact_id", contact.ID, "recipients", len(recipients))

	return models.Succeeded("notified %d users", len(recipients)).With("notified", len(recipients)), nil
}

func (a *Action) recipients(ctx context.Context, config map[string]any) ([]*models.User, error) {
	if ids := models.ConfigStrings(config, "user_ids"); len(ids) > 0 {
		users, err := a.users.GetByIDs(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("failed to load users: %w", err)
		}

		return users, nil
	}

	users, err := a.users.ByRole(ctx, models.UserRoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to load admins: %w", err)
	}

	return users, nil
}
