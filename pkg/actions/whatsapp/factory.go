package whatsapp

import "github.com/dukex/nurture/pkg/protocol"

// ActionFactory creates send_whatsapp actions.
type ActionFactory struct{}

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

func (*ActionFactory) Create(deps protocol.Dependencies) (protocol.ActionHandler, error) {
	return NewAction(deps), nil
}

func (*ActionFactory) ID() string {
	return "send_whatsapp"
}

func (*ActionFactory) Name() string {
	return "Send WhatsApp"
}

func (*ActionFactory) Description() string {
	return "Sends a WhatsApp message to the contact. The message supports merge tags."
}

func (*ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"template_id": map[string]any{
				"type":        "string",
				"description": "Stored WhatsApp template; overrides message",
			},
			"message": map[string]any{
				"type":     "string",
				"format":   "code",
				"examples": []string{"Hi {{contact.first_name}}, your order {{order.number}} was paid!"},
			},
			"phone_key": map[string]any{
				"type":        "string",
				"description": "Context key holding the phone when the contact has none",
			},
		},
		"anyOf": []map[string]any{
			{"required": []string{"template_id"}},
			{"required": []string{"message"}},
		},
	}
}
