package email

import "github.com/dukex/nurture/pkg/protocol"

// ActionFactory creates send_email actions.
type ActionFactory struct{}

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

func (*ActionFactory) Create(deps protocol.Dependencies) (protocol.ActionHandler, error) {
	return NewAction(deps), nil
}

func (*ActionFactory) ID() string {
	return "send_email"
}

func (*ActionFactory) Name() string {
	return "Send Email"
}

func (*ActionFactory) Description() string {
	return "Sends an email to the contact. Supports {{name}}, {{first_name}}, {{email}} and {{phone}} placeholders."
}

func (*ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"template_id": map[string]any{
				"type":        "string",
				"description": "Stored email template; overrides subject and body",
			},
			"subject": map[string]any{
				"type":     "string",
				"examples": []string{"Welcome, {{first_name}}!"},
			},
			"body": map[string]any{
				"type":     "string",
				"format":   "code",
				"examples": []string{"Hi {{name}}, thanks for signing up."},
			},
			"to": map[string]any{
				"type":        "string",
				"format":      "email",
				"description": "Recipient override. Defaults to the contact email.",
			},
		},
		"anyOf": []map[string]any{
			{"required": []string{"template_id"}},
			{"required": []string{"subject", "body"}},
		},
	}
}
