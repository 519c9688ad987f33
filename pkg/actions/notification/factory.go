package notification

import "github.com/dukex/nurture/pkg/protocol"

// ActionFactory creates send_notification actions.
type ActionFactory struct{}

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

func (*ActionFactory) Create(deps protocol.Dependencies) (protocol.ActionHandler, error) {
	return NewAction(deps), nil
}

func (*ActionFactory) ID() string {
	return "send_notification"
}

func (*ActionFactory) Name() string {
	return "Send Notification"
}

func (*ActionFactory) Description() string {
	return "Notifies team members about the contact. Without user_ids every admin is notified."
}

func (*ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"user_ids": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"title": map[string]any{
				"type":     "string",
				"examples": []string{"New VIP: {{contact.name}}"},
			},
			"message": map[string]any{
				"type": "string",
			},
		},
	}
}
