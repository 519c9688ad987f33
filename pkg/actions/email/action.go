// Package email provides the send_email action implementation.
package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/nurture/pkg/models"
	"github.com/dukex/nurture/pkg/persistence"
	"github.com/dukex/nurture/pkg/protocol"
)

// Action sends an email to the contact from a stored template or a literal subject and body.
type Action struct {
	sender    protocol.EmailSender
	templates persistence.TemplateRepository
	logger    *slog.Logger
}

func NewAction(deps protocol.Dependencies) *Action {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Action{
		sender:    deps.Email,
		templates: deps.Templates,
		logger:    logger.With("module", "action", "action_type", "send_email"),
	}
}

func (a *Action) Execute(ctx context.Context, contact *models.Contact, config map[string]any, _ map[string]any) (models.ActionResult, error) {
	to := models.ConfigString(config, "to")
	if to == "" {
		to = contact.Email
	}

	if to == "" {
		return models.Failed("contact %s has no email address", contact.ID), nil
	}

	subject := models.ConfigString(config, "subject")
	body := models.ConfigString(config, "body")

	if templateID := models.ConfigString(config, "template_id"); templateID != "" {
		if a.templates == nil {
			return models.Failed("templates are not available"), nil
		}

		template, err := a.templates.GetByID(ctx, templateID)
		if errors.Is(err, persistence.ErrTemplateNotFound) {
			return models.Failed("template %s not found", templateID), nil
		}

		if err != nil {
			return models.ActionResult{}, fmt.Errorf("failed to get template %s: %w", templateID, err)
		}

		subject, body = template.Subject, template.Body
	}

	if subject == "" || body == "" {
		return models.Failed("subject and body are required"), nil
	}

	if a.sender == nil {
		return models.Failed("email transport is not configured"), nil
	}

	replacer := placeholders(contact)
	subject = replacer.Replace(subject)
	body = replacer.Replace(body)

	if err := a.sender.SendEmail(ctx, to, subject, body); err != nil {
		return models.ActionResult{}, fmt.Errorf("failed to send email to %s: %w", to, err)
	}

	a.logger.InfoContext(ctx, "email sent", "contact_id", contact.ID, "to", to)

	return models.Succeeded("email sent to %s", to).With("to", to).With("subject", subject), nil
}

// placeholders substitutes the literal contact placeholders supported in email copy.
func placeholders(contact *models.Contact) *strings.Replacer {
	return strings.NewReplacer(
		"{{name}}", contact.Name,
		"{{first_name}}", contact.FirstName(),
		"{{email}}", contact.Email,
		"{{phone}}", contact.Phone,
	)
}
