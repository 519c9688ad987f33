package webhook

import "github.com/dukex/nurture/pkg/protocol"

// ActionFactory creates webhook actions.
type ActionFactory struct{}

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

func (*ActionFactory) Create(deps protocol.Dependencies) (protocol.ActionHandler, error) {
	return NewAction(deps), nil
}

func (*ActionFactory) ID() string {
	return "webhook"
}

func (*ActionFactory) Name() string {
	return "Webhook"
}

func (*ActionFactory) Description() string {
	return "Sends the enrollment data as JSON to an external URL."
}

func (*ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"url"},
		"properties": map[string]any{
			"url": map[string]any{
				"type":     "string",
				"examples": []string{"https://hooks.example.com/nurture"},
			},
			"method": map[string]any{
				"type":    "string",
				"enum":    []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
				"default": "POST",
			},
			"headers": map[string]any{
				"type":                 "object",
				"additionalProperties": map[string]any{"type": "string"},
			},
			"event": map[string]any{
				"type":    "string",
				"default": "workflow.webhook",
			},
			"include_contact": map[string]any{
				"type":    "boolean",
				"default": false,
			},
			"payload": map[string]any{
				"type":        "object",
				"description": "Extra fields sent under data. String values support merge tags.",
			},
		},
	}
}
