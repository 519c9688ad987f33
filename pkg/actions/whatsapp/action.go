// Package whatsapp provides the send_whatsapp action implementation.
package whatsapp

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

const defaultCountryCode = "55"

// phonePaths are the context locations checked for a destination number, most specific first.
var phonePaths = []string{
	"order_phone",
	"order.phone",
	"order.customer_phone",
	"contact_phone",
	"session_phone",
	"session.phone",
}

// Action sends a WhatsApp message with full merge tag resolution.
type Action struct {
	sender      protocol.WhatsAppSender
	templates   persistence.TemplateRepository
	mergeTags   *mergetag.Engine
	countryCode string
	logger      *slog.Logger
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

	countryCode := deps.DefaultRegion
	if countryCode == "" {
		countryCode = defaultCountryCode
	}

	return &Action{
		sender:      deps.WhatsApp,
		templates:   deps.Templates,
		mergeTags:   mergeTags,
		countryCode: countryCode,
		logger:      logger.With("module", "action", "action_type", "send_whatsapp"),
	}
}

func (a *Action) Execute(ctx context.Context, contact *models.Contact, config map[string]any, data map[string]any) (models.ActionResult, error) {
	message := models.ConfigString(config, "message")

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

		message = template.Body
	}

	if message == "" {
		return models.Failed("message or template_id is required"), nil
	}

	raw := DestinationPhone(contact, config, data)
	phone := models.NormalizePhone(raw, a.countryCode)

	if phone == "" {
		return models.Failed("no phone number for contact %s", contact.ID), nil
	}

	if a.sender == nil {
		return models.Failed("whatsapp transport is not configured"), nil
	}

	message = a.mergeTags.Resolve(message, data)

	if err := a.sender.SendWhatsApp(ctx, phone, message); err != nil {
		return models.ActionResult{}, fmt.Errorf("failed to send whatsapp to %s: %w", phone, err)
	}

	a.logger.InfoContext(ctx, "whatsapp sent", "contact_id", contact.ID, "phone", phone)

	return models.Succeeded("whatsapp sent to %s", phone).
		With("phone", phone).
		With("message", message), nil
}

// DestinationPhone picks the number to message: a phone carried by the triggering order or
// contact event, then the session phone, then the contact phone, then the context key named
// by config.phone_key.
func DestinationPhone(contact *models.Contact, config map[string]any, data map[string]any) string {
	for _, path := range phonePaths {
		if value, ok := models.Lookup(data, path); ok {
			if phone := models.ValueString(value); phone != "" {
				return phone
			}
		}
	}

	if contact != nil && contact.Phone != "" {
		return contact.Phone
	}

	if key := models.ConfigString(config, "phone_key"); key != "" {
		if value, ok := models.Lookup(data, key); ok {
			return models.ValueString(value)
		}
	}

	return ""
}
